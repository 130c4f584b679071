package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
	"github.com/businesssadigital-oss/backendpay/pkg/enums"
	pkgerrors "github.com/businesssadigital-oss/backendpay/pkg/errors"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
	"github.com/businesssadigital-oss/backendpay/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), logger.New(logger.Options{ServiceName: "orders-test"}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedOrder(t *testing.T, db *gorm.DB, id string, createdAt time.Time) {
	t.Helper()
	order := &models.Order{
		ID:            id,
		UserID:        "u1",
		Date:          createdAt,
		Items:         []models.OrderItem{{ProductID: "p1", Quantity: 1}},
		Total:         decimal.NewFromInt(10),
		Status:        enums.OrderStatusCompleted,
		DeliveryCodes: types.DeliveryCodes{"p1": {"AAA"}},
		PaymentMethod: "Chargily Pay",
		CreatedAt:     createdAt,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	base := time.Now().Add(-time.Hour)
	seedOrder(t, db, "ord-old", base)
	seedOrder(t, db, "ord-new", base.Add(time.Minute))

	rows, err := svc.ListOrders(context.Background())
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(rows))
	}
	if rows[0].ID != "ord-new" || rows[1].ID != "ord-old" {
		t.Fatalf("expected newest first, got %s, %s", rows[0].ID, rows[1].ID)
	}
}

func TestAttachPayPalOrderID(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedOrder(t, db, "ord-1", time.Now())

	order, err := svc.AttachPayPalOrderID(ctx, "ord-1", "PAYPAL-123")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if order.PayPalOrderID == nil || *order.PayPalOrderID != "PAYPAL-123" {
		t.Fatalf("expected paypal id attached, got %v", order.PayPalOrderID)
	}

	if _, err := svc.AttachPayPalOrderID(ctx, "ghost", "PAYPAL-123"); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.AttachPayPalOrderID(ctx, "ord-1", ""); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
