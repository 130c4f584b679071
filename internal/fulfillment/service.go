// Package fulfillment owns the two order-creation paths. Both run inside a
// single transaction: codes are claimed from the code store under a row
// lock, the ledger row is written, and the product projection is rewritten
// before commit. A shortage on any line item aborts the whole order.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
	"github.com/businesssadigital-oss/backendpay/pkg/enums"
	pkgerrors "github.com/businesssadigital-oss/backendpay/pkg/errors"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
	"github.com/businesssadigital-oss/backendpay/pkg/outbox"
	"github.com/businesssadigital-oss/backendpay/pkg/types"
)

const confirmPaymentMethod = "Chargily Pay"

type productsRepository interface {
	FindByIDLocked(tx *gorm.DB, id string) (*models.Product, error)
	SaveProjection(tx *gorm.DB, id string, availableCodes []string, stock int) error
}

type codesRepository interface {
	SelectAvailable(tx *gorm.DB, productID string, limit int) ([]models.Code, error)
	MarkSoldBatch(tx *gorm.DB, ids []string, soldTo, orderID string) (int64, error)
}

type ordersRepository interface {
	Insert(tx *gorm.DB, order *models.Order) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type fulfillmentMetrics interface {
	IncOrderFulfilled(path string)
	IncFulfillmentFailure(code string)
	AddCodesSold(n int)
}

// Service fulfills orders against the code store.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	ConfirmOrder(ctx context.Context, input ConfirmOrderInput) (*ConfirmResult, error)
}

// PlaceOrderInput is the cart-checkout request.
type PlaceOrderInput struct {
	UserID        string
	Items         []ItemInput
	Total         decimal.Decimal
	PaymentMethod string
}

// ItemInput is one cart line.
type ItemInput struct {
	ProductID string
	Quantity  int
	Name      string
}

// ConfirmOrderInput is the single-product checkout confirmation.
type ConfirmOrderInput struct {
	ProductID string
	UserID    string
	Quantity  int
}

// ConfirmResult mirrors the confirm endpoint's response shape.
type ConfirmResult struct {
	Success       bool                `json:"success"`
	OrderID       string              `json:"orderId"`
	DeliveryCodes types.DeliveryCodes `json:"deliveryCodes"`
}

type service struct {
	products productsRepository
	codes    codesRepository
	orders   ordersRepository
	tx       txRunner
	events   outboxEmitter
	metrics  fulfillmentMetrics
	logg     *logger.Logger
}

func NewService(products productsRepository, codes codesRepository, orders ordersRepository, tx txRunner, events outboxEmitter, metrics fulfillmentMetrics, logg *logger.Logger) (Service, error) {
	if products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if codes == nil {
		return nil, fmt.Errorf("codes repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if metrics == nil {
		return nil, fmt.Errorf("metrics required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		products: products,
		codes:    codes,
		orders:   orders,
		tx:       tx,
		events:   events,
		metrics:  metrics,
		logg:     logg,
	}, nil
}

// PlaceOrder fulfills a multi-item cart. Every line must be fully satisfiable
// from the code store or the order is rejected; no placeholder codes are ever
// synthesized.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, s.reject(pkgerrors.New(pkgerrors.CodeValidation, "userId is required"))
	}
	if len(input.Items) == 0 {
		return nil, s.reject(pkgerrors.New(pkgerrors.CodeValidation, "items are required"))
	}
	if input.Total.Sign() <= 0 {
		return nil, s.reject(pkgerrors.New(pkgerrors.CodeValidation, "total must be positive"))
	}
	seen := make(map[string]bool, len(input.Items))
	for _, item := range input.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return nil, s.reject(pkgerrors.New(pkgerrors.CodeValidation, "item productId is required"))
		}
		if item.Quantity <= 0 {
			return nil, s.reject(pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive"))
		}
		if seen[item.ProductID] {
			return nil, s.reject(pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in items"))
		}
		seen[item.ProductID] = true
	}

	order := &models.Order{
		ID:            newOrderID(),
		UserID:        input.UserID,
		Date:          time.Now().UTC(),
		Total:         input.Total,
		Status:        enums.OrderStatusCompleted,
		DeliveryCodes: types.DeliveryCodes{},
		PaymentMethod: input.PaymentMethod,
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = "unknown"
	}
	for _, item := range input.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Name:      item.Name,
		})
	}

	sold := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, item := range input.Items {
			values, err := s.claimCodes(ctx, tx, item.ProductID, item.Quantity, input.UserID, order.ID)
			if err != nil {
				return err
			}
			order.DeliveryCodes[item.ProductID] = values
			sold += len(values)
		}

		if err := s.orders.Insert(tx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}
		return s.emitFulfillment(ctx, tx, order)
	})
	if err != nil {
		return nil, s.reject(err)
	}

	s.metrics.IncOrderFulfilled("place")
	s.metrics.AddCodesSold(sold)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID,
		"user_id":  input.UserID,
		"items":    len(order.Items),
		"codes":    sold,
	}), "order placed")
	return order, nil
}

// ConfirmOrder fulfills a single-product checkout after an external payment
// succeeded.
func (s *service) ConfirmOrder(ctx context.Context, input ConfirmOrderInput) (*ConfirmResult, error) {
	if strings.TrimSpace(input.ProductID) == "" || strings.TrimSpace(input.UserID) == "" || input.Quantity <= 0 {
		return nil, s.reject(pkgerrors.New(pkgerrors.CodeValidation, "productId, userId and positive quantity are required"))
	}

	orderID := newOrderID()
	var result *ConfirmResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.products.FindByIDLocked(tx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
		}

		values, err := s.claimCodesLocked(ctx, tx, product, input.Quantity, input.UserID, orderID)
		if err != nil {
			return err
		}

		order := &models.Order{
			ID:     orderID,
			UserID: input.UserID,
			Date:   time.Now().UTC(),
			Items: []models.OrderItem{{
				ProductID: input.ProductID,
				Quantity:  input.Quantity,
			}},
			Total:         product.Price.Mul(decimal.NewFromInt(int64(input.Quantity))),
			Status:        enums.OrderStatusCompleted,
			DeliveryCodes: types.DeliveryCodes{input.ProductID: values},
			PaymentMethod: confirmPaymentMethod,
		}
		if err := s.orders.Insert(tx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}
		if err := s.emitFulfillment(ctx, tx, order); err != nil {
			return err
		}

		result = &ConfirmResult{
			Success:       true,
			OrderID:       order.ID,
			DeliveryCodes: order.DeliveryCodes,
		}
		return nil
	})
	if err != nil {
		return nil, s.reject(err)
	}

	s.metrics.IncOrderFulfilled("confirm")
	s.metrics.AddCodesSold(input.Quantity)
	s.logg.Info(s.logg.WithFields(s.logg.WithProductID(ctx, input.ProductID), map[string]any{
		"order_id": orderID,
		"user_id":  input.UserID,
		"quantity": input.Quantity,
	}), "order confirmed")
	return result, nil
}

// claimCodes locks the product row first, then delegates to
// claimCodesLocked. Lock ordering is by product id via the caller iterating
// its items; a duplicate-free item list keeps the ordering deadlock-free.
func (s *service) claimCodes(ctx context.Context, tx *gorm.DB, productID string, quantity int, userID, orderID string) ([]string, error) {
	product, err := s.products.FindByIDLocked(tx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", productID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}
	return s.claimCodesLocked(ctx, tx, product, quantity, userID, orderID)
}

// claimCodesLocked moves quantity codes to sold and rewrites the product
// projection from the surviving values. Caller must hold the product row
// lock.
func (s *service) claimCodesLocked(ctx context.Context, tx *gorm.DB, product *models.Product, quantity int, userID, orderID string) ([]string, error) {
	rows, err := s.codes.SelectAvailable(tx, product.ID, quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select available codes")
	}
	if len(rows) < quantity {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough codes for this product").
			WithDetails(map[string]any{
				"productId": product.ID,
				"requested": quantity,
				"available": len(rows),
			})
	}

	ids := make([]string, len(rows))
	values := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
		values[i] = row.Code
	}

	affected, err := s.codes.MarkSoldBatch(tx, ids, userID, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark codes sold")
	}
	if affected != int64(len(ids)) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "codes changed state during fulfillment")
	}

	soldSet := make(map[string]bool, len(values))
	for _, v := range values {
		soldSet[v] = true
	}
	remaining := make([]string, 0, len(product.AvailableCodes))
	for _, v := range product.AvailableCodes {
		if !soldSet[v] {
			remaining = append(remaining, v)
		}
	}
	if err := s.products.SaveProjection(tx, product.ID, remaining, len(remaining)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rewrite product projection")
	}
	product.AvailableCodes = types.StringList(remaining)
	product.Stock = len(remaining)
	return values, nil
}

func (s *service) emitFulfillment(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	events := []outbox.DomainEvent{
		{
			Collection:  enums.CollectionOrders,
			Operation:   enums.ChangeOperationInsert,
			DocumentKey: order.ID,
		},
		{
			Collection:  enums.CollectionCodes,
			Operation:   enums.ChangeOperationUpdate,
			DocumentKey: order.ID,
		},
	}
	for productID := range order.DeliveryCodes {
		events = append(events, outbox.DomainEvent{
			Collection:  enums.CollectionProducts,
			Operation:   enums.ChangeOperationUpdate,
			DocumentKey: productID,
		})
	}
	for _, event := range events {
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit fulfillment event")
		}
	}
	return nil
}

// reject counts the failure before passing the error through.
func (s *service) reject(err error) error {
	code := string(pkgerrors.CodeInternal)
	if typed := pkgerrors.As(err); typed != nil {
		code = string(typed.Code())
	}
	s.metrics.IncFulfillmentFailure(code)
	return err
}

func newOrderID() string {
	return "ord-" + uuid.NewString()
}
