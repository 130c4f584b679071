package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/businesssadigital-oss/backendpay/pkg/config"
	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
	"github.com/businesssadigital-oss/backendpay/pkg/enums"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
	"github.com/businesssadigital-oss/backendpay/pkg/outbox"
)

type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
	channels []string
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.channels = append(p.channels, channel)
	p.messages = append(p.messages, append([]byte(nil), payload...))
	return nil
}

type fakeMetrics struct {
	mu        sync.Mutex
	published int
	failed    int
}

func (m *fakeMetrics) IncOutboxPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published++
}

func (m *fakeMetrics) IncOutboxFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:broadcaster_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Broadcast: config.BroadcastConfig{
			Channel:        "test.changes",
			BatchSize:      10,
			PollInterval:   10 * time.Millisecond,
			PublishTimeout: 5 * time.Second,
			MaxAttempts:    3,
		},
	}
}

func newTestService(t *testing.T, db *gorm.DB, pub *fakePublisher, m *fakeMetrics) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:     testConfig(),
		Logger:     logger.New(logger.Options{ServiceName: "broadcaster-test"}),
		Repository: outbox.NewRepository(db),
		Publisher:  pub,
		Metrics:    m,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedEvent(t *testing.T, db *gorm.DB, id string, createdAt time.Time, attempts int) {
	t.Helper()
	row := models.OutboxEvent{
		ID:           id,
		Collection:   enums.CollectionProducts,
		Operation:    enums.ChangeOperationInsert,
		DocumentKey:  "p1",
		Payload:      json.RawMessage(`{"id":"p1","name":"Steam Card"}`),
		CreatedAt:    createdAt,
		AttemptCount: attempts,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed event %s: %v", id, err)
	}
}

func TestDrainOncePublishesOldestFirst(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	base := time.Now().Add(-time.Minute)
	seedEvent(t, db, "e2", base.Add(time.Second), 0)
	seedEvent(t, db, "e1", base, 0)

	pub := &fakePublisher{}
	m := &fakeMetrics{}
	svc := newTestService(t, db, pub, m)

	processed, err := svc.drainOnce(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to be processed")
	}
	if len(pub.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(pub.messages))
	}
	if pub.channels[0] != "test.changes" {
		t.Fatalf("unexpected channel %s", pub.channels[0])
	}

	var first outbox.ChangeEnvelope
	if err := json.Unmarshal(pub.messages[0], &first); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if first.EventID != "e1" {
		t.Fatalf("expected e1 first, got %s", first.EventID)
	}
	if first.Collection != "products" || first.Operation != "insert" || first.DocumentKey != "p1" {
		t.Fatalf("unexpected envelope %+v", first)
	}
	if !strings.Contains(string(first.Data), "Steam Card") {
		t.Fatalf("payload not carried through: %s", first.Data)
	}

	var pending int64
	if err := db.Model(&models.OutboxEvent{}).Where("published_at IS NULL").Count(&pending).Error; err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if pending != 0 {
		t.Fatalf("expected all rows published, %d still pending", pending)
	}
	if m.published != 2 || m.failed != 0 {
		t.Fatalf("unexpected metrics published=%d failed=%d", m.published, m.failed)
	}
}

func TestDrainOnceNothingPending(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, &fakePublisher{}, &fakeMetrics{})

	processed, err := svc.drainOnce(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if processed {
		t.Fatal("expected empty batch")
	}
}

func TestDrainOnceMarksFailedAndKeepsPending(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	seedEvent(t, db, "e1", time.Now().Add(-time.Minute), 0)

	pub := &fakePublisher{err: errors.New("redis unavailable")}
	m := &fakeMetrics{}
	svc := newTestService(t, db, pub, m)

	processed, err := svc.drainOnce(context.Background())
	if !processed {
		t.Fatal("expected batch to be processed")
	}
	if err == nil {
		t.Fatal("expected drain error")
	}

	var row models.OutboxEvent
	if err := db.First(&row, "id = ?", "e1").Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if row.PublishedAt != nil {
		t.Fatal("failed event must stay pending")
	}
	if row.AttemptCount != 1 {
		t.Fatalf("expected attempt_count 1, got %d", row.AttemptCount)
	}
	if row.LastError == nil || !strings.Contains(*row.LastError, "redis unavailable") {
		t.Fatalf("expected last_error to carry the cause, got %v", row.LastError)
	}
	if m.failed != 1 {
		t.Fatalf("expected 1 failure recorded, got %d", m.failed)
	}
}

func TestDrainOnceParksEventAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	// Already failed twice; MaxAttempts is 3 so the next failure is terminal.
	seedEvent(t, db, "e1", time.Now().Add(-time.Minute), 2)

	pub := &fakePublisher{err: errors.New("redis unavailable")}
	svc := newTestService(t, db, pub, &fakeMetrics{})

	if _, err := svc.drainOnce(context.Background()); err != nil {
		t.Fatalf("terminal parking should not surface as batch error: %v", err)
	}

	var row models.OutboxEvent
	if err := db.First(&row, "id = ?", "e1").Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if row.PublishedAt == nil {
		t.Fatal("terminal event must leave the pending set")
	}
	if row.LastError == nil || !strings.HasPrefix(*row.LastError, "terminal: ") {
		t.Fatalf("expected terminal last_error, got %v", row.LastError)
	}

	processed, err := svc.drainOnce(context.Background())
	if err != nil {
		t.Fatalf("drain after terminal: %v", err)
	}
	if processed {
		t.Fatal("parked event must not be selected again")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, &fakePublisher{}, &fakeMetrics{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}
