package fulfillment

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/businesssadigital-oss/backendpay/internal/codes"
	"github.com/businesssadigital-oss/backendpay/internal/orders"
	"github.com/businesssadigital-oss/backendpay/internal/products"
	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
	"github.com/businesssadigital-oss/backendpay/pkg/enums"
	pkgerrors "github.com/businesssadigital-oss/backendpay/pkg/errors"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
	"github.com/businesssadigital-oss/backendpay/pkg/metrics"
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
	dsn := "file:fulfillment_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.Code{}, &models.Order{}, &models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "fulfillment-test"})
	events := outbox.NewService(outbox.NewRepository(db), logg)
	svc, err := NewService(
		products.NewRepository(db),
		codes.NewRepository(db),
		orders.NewRepository(db),
		gormTxRunner{db: db},
		events,
		metrics.New(nil),
		logg,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedProductWithCodes(t *testing.T, db *gorm.DB, productID string, price string, values []string) {
	t.Helper()
	product := &models.Product{
		ID:             productID,
		Name:           "Card " + productID,
		Price:          decimal.RequireFromString(price),
		AvailableCodes: types.StringList(values),
		Stock:          len(values),
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	base := time.Now().Add(-time.Hour)
	for i, v := range values {
		row := &models.Code{
			ID:        uuid.NewString(),
			ProductID: productID,
			Code:      v,
			Status:    enums.CodeStatusAvailable,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed code: %v", err)
		}
	}
}

func TestConfirmOrderHappyPath(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedProductWithCodes(t, db, "p1", "10.00", []string{"C1", "C2", "C3"})

	result, err := svc.ConfirmOrder(ctx, ConfirmOrderInput{ProductID: "p1", UserID: "u1", Quantity: 2})
	if err != nil {
		t.Fatalf("confirm order: %v", err)
	}
	if !result.Success || result.OrderID == "" {
		t.Fatalf("unexpected result: %+v", result)
	}

	// Oldest codes are delivered first.
	delivered := result.DeliveryCodes["p1"]
	if len(delivered) != 2 || delivered[0] != "C1" || delivered[1] != "C2" {
		t.Fatalf("unexpected delivery codes: %v", delivered)
	}

	var order models.Order
	if err := db.First(&order, "id = ?", result.OrderID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.Status != enums.OrderStatusCompleted {
		t.Fatalf("expected completed order, got %s", order.Status)
	}
	if !order.Total.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected total 20.00, got %s", order.Total)
	}
	if order.PaymentMethod != "Chargily Pay" {
		t.Fatalf("unexpected payment method %s", order.PaymentMethod)
	}

	var soldCount int64
	if err := db.Model(&models.Code{}).
		Where("product_id = ? AND status = ? AND order_id = ?", "p1", enums.CodeStatusSold, result.OrderID).
		Count(&soldCount).Error; err != nil {
		t.Fatalf("count sold: %v", err)
	}
	if soldCount != 2 {
		t.Fatalf("expected 2 sold codes, got %d", soldCount)
	}

	var product models.Product
	if err := db.First(&product, "id = ?", "p1").Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if product.Stock != 1 || len(product.AvailableCodes) != 1 || product.AvailableCodes[0] != "C3" {
		t.Fatalf("unexpected projection: stock=%d codes=%v", product.Stock, product.AvailableCodes)
	}
}

func TestConfirmOrderInsufficientStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedProductWithCodes(t, db, "p1", "10.00", []string{"C1"})

	_, err := svc.ConfirmOrder(ctx, ConfirmOrderInput{ProductID: "p1", UserID: "u1", Quantity: 2})
	if !pkgerrors.Is(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// Nothing was partially committed.
	var orderCount, soldCount int64
	db.Model(&models.Order{}).Count(&orderCount)
	db.Model(&models.Code{}).Where("status = ?", enums.CodeStatusSold).Count(&soldCount)
	if orderCount != 0 || soldCount != 0 {
		t.Fatalf("expected no partial state, orders=%d sold=%d", orderCount, soldCount)
	}
}

func TestConfirmOrderProductNotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.ConfirmOrder(context.Background(), ConfirmOrderInput{ProductID: "ghost", UserID: "u1", Quantity: 1})
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConfirmOrderValidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	cases := []ConfirmOrderInput{
		{ProductID: "", UserID: "u1", Quantity: 1},
		{ProductID: "p1", UserID: "", Quantity: 1},
		{ProductID: "p1", UserID: "u1", Quantity: 0},
		{ProductID: "p1", UserID: "u1", Quantity: -3},
	}
	for _, input := range cases {
		if _, err := svc.ConfirmOrder(ctx, input); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %+v, got %v", input, err)
		}
	}
}

func TestPlaceOrderMultiItem(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedProductWithCodes(t, db, "p1", "10.00", []string{"A1", "A2"})
	seedProductWithCodes(t, db, "p2", "5.00", []string{"B1"})

	order, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID: "u1",
		Items: []ItemInput{
			{ProductID: "p1", Quantity: 2, Name: "Card A"},
			{ProductID: "p2", Quantity: 1, Name: "Card B"},
		},
		Total:         decimal.RequireFromString("25.00"),
		PaymentMethod: "wallet",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if order.DeliveryCodes.Total() != 3 {
		t.Fatalf("expected 3 delivered codes, got %d", order.DeliveryCodes.Total())
	}
	if len(order.DeliveryCodes["p1"]) != 2 || len(order.DeliveryCodes["p2"]) != 1 {
		t.Fatalf("unexpected delivery split: %v", order.DeliveryCodes)
	}

	// No AUTO- placeholders, ever.
	for _, values := range order.DeliveryCodes {
		for _, v := range values {
			if strings.HasPrefix(v, "AUTO-") {
				t.Fatalf("placeholder code delivered: %s", v)
			}
		}
	}

	var p1 models.Product
	if err := db.First(&p1, "id = ?", "p1").Error; err != nil {
		t.Fatalf("load p1: %v", err)
	}
	if p1.Stock != 0 {
		t.Fatalf("expected p1 stock 0, got %d", p1.Stock)
	}
}

func TestPlaceOrderFailsWholeOrderOnShortage(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedProductWithCodes(t, db, "p1", "10.00", []string{"A1", "A2"})
	seedProductWithCodes(t, db, "p2", "5.00", nil)

	_, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID: "u1",
		Items: []ItemInput{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p2", Quantity: 1},
		},
		Total: decimal.RequireFromString("15.00"),
	})
	if !pkgerrors.Is(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// The satisfiable line must not have been committed.
	var soldCount int64
	db.Model(&models.Code{}).Where("status = ?", enums.CodeStatusSold).Count(&soldCount)
	if soldCount != 0 {
		t.Fatalf("expected rollback of all lines, got %d sold", soldCount)
	}
	var p1 models.Product
	if err := db.First(&p1, "id = ?", "p1").Error; err != nil {
		t.Fatalf("load p1: %v", err)
	}
	if p1.Stock != 2 {
		t.Fatalf("expected p1 stock untouched, got %d", p1.Stock)
	}
}

func TestPlaceOrderRejectsDuplicateItems(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID: "u1",
		Items: []ItemInput{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p1", Quantity: 1},
		},
		Total: decimal.NewFromInt(20),
	})
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// Concurrent confirms may serialize or fail on SQLite's single-writer
// model; the invariant under test is that no code is ever delivered twice
// and the ledger matches the sold rows exactly.
func TestConcurrentConfirmsNeverDoubleSell(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	seedProductWithCodes(t, db, "p1", "1.00", []string{"C1", "C2", "C3"})

	const attempts = 6
	var wg sync.WaitGroup
	results := make([]*ConfirmResult, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			for try := 0; try < 20; try++ {
				result, err := svc.ConfirmOrder(context.Background(), ConfirmOrderInput{
					ProductID: "p1",
					UserID:    "u1",
					Quantity:  1,
				})
				if err == nil {
					results[slot] = result
					return
				}
				if pkgerrors.Is(err, pkgerrors.CodeInsufficientStock) {
					return
				}
				// SQLite write contention; back off and retry.
				time.Sleep(5 * time.Millisecond)
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]int{}
	succeeded := 0
	for _, result := range results {
		if result == nil {
			continue
		}
		succeeded++
		for _, v := range result.DeliveryCodes["p1"] {
			seen[v]++
		}
	}
	if succeeded > 3 {
		t.Fatalf("more successes than codes: %d", succeeded)
	}
	for v, count := range seen {
		if count != 1 {
			t.Fatalf("code %s delivered %d times", v, count)
		}
	}

	var soldCount, orderCount int64
	db.Model(&models.Code{}).Where("status = ?", enums.CodeStatusSold).Count(&soldCount)
	db.Model(&models.Order{}).Count(&orderCount)
	if soldCount != int64(succeeded) || orderCount != int64(succeeded) {
		t.Fatalf("ledger mismatch: sold=%d orders=%d succeeded=%d", soldCount, orderCount, succeeded)
	}
}

func TestConfirmOrderWritesOutboxEvents(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	seedProductWithCodes(t, db, "p1", "10.00", []string{"C1"})

	result, err := svc.ConfirmOrder(context.Background(), ConfirmOrderInput{ProductID: "p1", UserID: "u1", Quantity: 1})
	if err != nil {
		t.Fatalf("confirm order: %v", err)
	}

	var events []models.OutboxEvent
	if err := db.Find(&events).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	byCollection := map[enums.Collection]int{}
	for _, e := range events {
		byCollection[e.Collection]++
	}
	if byCollection[enums.CollectionOrders] != 1 {
		t.Fatalf("expected 1 orders event, got %d", byCollection[enums.CollectionOrders])
	}
	if byCollection[enums.CollectionCodes] != 1 {
		t.Fatalf("expected 1 codes event, got %d", byCollection[enums.CollectionCodes])
	}
	if byCollection[enums.CollectionProducts] != 1 {
		t.Fatalf("expected 1 products event, got %d", byCollection[enums.CollectionProducts])
	}
	_ = result
}
