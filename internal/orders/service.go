package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
	pkgerrors "github.com/businesssadigital-oss/backendpay/pkg/errors"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
)

type ordersRepository interface {
	List(ctx context.Context) ([]models.Order, error)
	FindByID(ctx context.Context, id string) (*models.Order, error)
	AttachPayPalOrderID(ctx context.Context, orderID, paypalOrderID string) (int64, error)
}

// Service reads the order ledger and attaches late payment references.
// Ledger rows are created by the fulfillment engine only.
type Service interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
	AttachPayPalOrderID(ctx context.Context, orderID, paypalOrderID string) (*models.Order, error)
}

type service struct {
	repo ordersRepository
	logg *logger.Logger
}

func NewService(repo ordersRepository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) ListOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

func (s *service) AttachPayPalOrderID(ctx context.Context, orderID, paypalOrderID string) (*models.Order, error) {
	if strings.TrimSpace(orderID) == "" || strings.TrimSpace(paypalOrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderId and paypalOrderId are required")
	}

	affected, err := s.repo.AttachPayPalOrderID(ctx, orderID, paypalOrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach paypal order id")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":        orderID,
		"paypal_order_id": paypalOrderID,
	}), "paypal order id attached")

	return s.repo.FindByID(ctx, orderID)
}
