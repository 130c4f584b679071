package outbox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
	"github.com/businesssadigital-oss/backendpay/pkg/enums"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestEmitWritesRowInCallerTransaction(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(NewRepository(db), logger.New(logger.Options{ServiceName: "outbox-test"}))
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, DomainEvent{
			Collection:  enums.CollectionOrders,
			Operation:   enums.ChangeOperationInsert,
			DocumentKey: "ord-1",
			Data:        map[string]any{"total": "10.00"},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	var row models.OutboxEvent
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if row.Collection != enums.CollectionOrders || row.DocumentKey != "ord-1" {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.PublishedAt != nil {
		t.Fatal("new events must start unpublished")
	}
	if !strings.Contains(string(row.Payload), "10.00") {
		t.Fatalf("payload not serialized: %s", row.Payload)
	}
}

func TestEmitRolledBackWithCaller(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(NewRepository(db), logger.New(logger.Options{ServiceName: "outbox-test"}))

	boom := errors.New("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			Collection:  enums.CollectionCodes,
			Operation:   enums.ChangeOperationUpdate,
			DocumentKey: "c1",
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected caller error, got %v", err)
	}

	var count int64
	db.Model(&models.OutboxEvent{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected event rolled back, got %d rows", count)
	}
}

func TestEmitRequiresTransaction(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(NewRepository(db), nil)
	if err := svc.Emit(context.Background(), nil, DomainEvent{}); err == nil {
		t.Fatal("expected error for nil transaction")
	}
}

func TestFetchUnpublishedOldestFirst(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"e1", "e2", "e3"} {
		row := models.OutboxEvent{
			ID:          id,
			Collection:  enums.CollectionProducts,
			Operation:   enums.ChangeOperationUpdate,
			DocumentKey: "p1",
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("seed event: %v", err)
		}
	}

	batch, err := repo.FetchUnpublished(2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(batch) != 2 || batch[0].ID != "e1" || batch[1].ID != "e2" {
		t.Fatalf("unexpected batch: %+v", batch)
	}

	if err := repo.MarkPublished("e1"); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	batch, err = repo.FetchUnpublished(10)
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if len(batch) != 2 || batch[0].ID != "e2" {
		t.Fatalf("published row still selected: %+v", batch)
	}
}

func TestMarkFailedAndTerminal(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	row := models.OutboxEvent{
		ID:          "e1",
		Collection:  enums.CollectionOrders,
		Operation:   enums.ChangeOperationInsert,
		DocumentKey: "ord-1",
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}

	if err := repo.MarkFailed("e1", errors.New("redis down")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := repo.MarkFailed("e1", errors.New("redis down")); err != nil {
		t.Fatalf("mark failed again: %v", err)
	}

	var stored models.OutboxEvent
	if err := db.First(&stored, "id = ?", "e1").Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if stored.AttemptCount != 2 {
		t.Fatalf("expected 2 attempts, got %d", stored.AttemptCount)
	}
	if stored.PublishedAt != nil {
		t.Fatal("failed event must stay pending")
	}

	if err := repo.MarkTerminal("e1", errors.New("gave up")); err != nil {
		t.Fatalf("mark terminal: %v", err)
	}
	if err := db.First(&stored, "id = ?", "e1").Error; err != nil {
		t.Fatalf("reload event: %v", err)
	}
	if stored.PublishedAt == nil {
		t.Fatal("terminal event must leave the pending set")
	}
	if stored.LastError == nil || !strings.HasPrefix(*stored.LastError, "terminal: ") {
		t.Fatalf("unexpected last error: %v", stored.LastError)
	}

	batch, err := repo.FetchUnpublished(10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(batch) != 0 {
		t.Fatalf("terminal event still selected: %+v", batch)
	}
}
