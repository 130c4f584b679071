package codes

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/businesssadigital-oss/backendpay/internal/products"
	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
	"github.com/businesssadigital-oss/backendpay/pkg/enums"
	pkgerrors "github.com/businesssadigital-oss/backendpay/pkg/errors"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
	"github.com/businesssadigital-oss/backendpay/pkg/outbox"
	"github.com/businesssadigital-oss/backendpay/pkg/types"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:codes_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.Code{}, &models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "codes-test"})
	events := outbox.NewService(outbox.NewRepository(db), logg)
	svc, err := NewService(NewRepository(db), products.NewRepository(db), gormTxRunner{db: db}, events, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, id string, codes []string) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:             id,
		Name:           "Test Card",
		AvailableCodes: types.StringList(codes),
		Stock:          len(codes),
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func TestAddCodesSkipsDuplicates(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedProduct(t, db, "p1", nil)

	first, err := svc.AddCodes(ctx, "p1", []string{"AAA", "BBB"})
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if first.Count != 2 || first.Duplicates != 0 {
		t.Fatalf("unexpected first result: %+v", first)
	}

	// BBB is already stored, CCC repeats within the request.
	second, err := svc.AddCodes(ctx, "p1", []string{"BBB", "CCC", "CCC"})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if second.Count != 1 {
		t.Fatalf("expected 1 new code, got %d", second.Count)
	}
	if second.Duplicates != 2 {
		t.Fatalf("expected 2 duplicates, got %d", second.Duplicates)
	}

	var total int64
	if err := db.Model(&models.Code{}).Where("product_id = ?", "p1").Count(&total).Error; err != nil {
		t.Fatalf("count codes: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 stored codes, got %d", total)
	}

	var product models.Product
	if err := db.First(&product, "id = ?", "p1").Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if product.Stock != 3 {
		t.Fatalf("expected projection stock 3, got %d", product.Stock)
	}
	if len(product.AvailableCodes) != 3 {
		t.Fatalf("expected 3 projected codes, got %v", product.AvailableCodes)
	}
}

func TestAddCodesSameValueDifferentProducts(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedProduct(t, db, "p1", nil)
	seedProduct(t, db, "p2", nil)

	if _, err := svc.AddCodes(ctx, "p1", []string{"SHARED"}); err != nil {
		t.Fatalf("add to p1: %v", err)
	}
	result, err := svc.AddCodes(ctx, "p2", []string{"SHARED"})
	if err != nil {
		t.Fatalf("add to p2: %v", err)
	}
	if result.Count != 1 || result.Duplicates != 0 {
		t.Fatalf("expected clean insert for second product, got %+v", result)
	}
}

func TestAddCodesToleratesMissingProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	result, err := svc.AddCodes(context.Background(), "ghost", []string{"AAA"})
	if err != nil {
		t.Fatalf("add codes: %v", err)
	}
	if result.Count != 1 {
		t.Fatalf("expected code stored despite missing product, got %+v", result)
	}
}

func TestAddCodesValidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	if _, err := svc.AddCodes(ctx, "", []string{"AAA"}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty product, got %v", err)
	}
	if _, err := svc.AddCodes(ctx, "p1", nil); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty codes, got %v", err)
	}
	if _, err := svc.AddCodes(ctx, "p1", []string{"  "}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for blank code, got %v", err)
	}
}

func TestMarkSoldIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedProduct(t, db, "p1", nil)

	added, err := svc.AddCodes(ctx, "p1", []string{"AAA"})
	if err != nil {
		t.Fatalf("add codes: %v", err)
	}
	id := added.Codes[0].ID

	sold, err := svc.MarkSold(ctx, id, MarkSoldInput{SoldTo: "u1", OrderID: "ord-1"})
	if err != nil {
		t.Fatalf("mark sold: %v", err)
	}
	if sold.Status != enums.CodeStatusSold {
		t.Fatalf("expected sold status, got %s", sold.Status)
	}
	if sold.SoldTo == nil || *sold.SoldTo != "u1" {
		t.Fatalf("expected sold_to u1, got %v", sold.SoldTo)
	}

	// Second call keeps the original attribution.
	again, err := svc.MarkSold(ctx, id, MarkSoldInput{SoldTo: "u2", OrderID: "ord-2"})
	if err != nil {
		t.Fatalf("mark sold again: %v", err)
	}
	if again.SoldTo == nil || *again.SoldTo != "u1" {
		t.Fatalf("expected attribution to stay u1, got %v", again.SoldTo)
	}
	if again.OrderID == nil || *again.OrderID != "ord-1" {
		t.Fatalf("expected order to stay ord-1, got %v", again.OrderID)
	}
}

func TestMarkSoldNotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.MarkSold(context.Background(), "missing", MarkSoldInput{})
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteCode(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	added, err := svc.AddCodes(ctx, "p1", []string{"AAA"})
	if err != nil {
		t.Fatalf("add codes: %v", err)
	}

	if err := svc.DeleteCode(ctx, added.Codes[0].ID); err != nil {
		t.Fatalf("delete code: %v", err)
	}
	if err := svc.DeleteCode(ctx, added.Codes[0].ID); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestStatsAndListFilters(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	added, err := svc.AddCodes(ctx, "p1", []string{"AAA", "BBB", "CCC"})
	if err != nil {
		t.Fatalf("add codes: %v", err)
	}
	if _, err := svc.MarkSold(ctx, added.Codes[0].ID, MarkSoldInput{SoldTo: "u1"}); err != nil {
		t.Fatalf("mark sold: %v", err)
	}

	stats, err := svc.Stats(ctx, "p1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Available != 2 || stats.Sold != 1 || stats.Total != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	available, err := svc.ListCodes(ctx, ListFilter{ProductID: "p1", Status: enums.CodeStatusAvailable})
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(available) != 2 {
		t.Fatalf("expected 2 available codes, got %d", len(available))
	}

	if _, err := svc.ListCodes(ctx, ListFilter{Status: "bogus"}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for bad status, got %v", err)
	}

	// Unknown product reports zeros.
	empty, err := svc.Stats(ctx, "ghost")
	if err != nil {
		t.Fatalf("stats for unknown product: %v", err)
	}
	if empty.Total != 0 {
		t.Fatalf("expected zero stats, got %+v", empty)
	}
}

func TestAddCodesWritesOutboxEvents(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedProduct(t, db, "p1", nil)

	if _, err := svc.AddCodes(ctx, "p1", []string{"AAA"}); err != nil {
		t.Fatalf("add codes: %v", err)
	}

	var events []models.OutboxEvent
	if err := db.Order("created_at ASC").Find(&events).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected codes + products events, got %d", len(events))
	}
	collections := map[enums.Collection]bool{}
	for _, e := range events {
		collections[e.Collection] = true
	}
	if !collections[enums.CollectionCodes] || !collections[enums.CollectionProducts] {
		t.Fatalf("unexpected event collections: %+v", events)
	}
}
