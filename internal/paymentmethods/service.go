package paymentmethods

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
	"github.com/businesssadigital-oss/backendpay/pkg/enums"
	pkgerrors "github.com/businesssadigital-oss/backendpay/pkg/errors"
	"github.com/businesssadigital-oss/backendpay/pkg/outbox"
)

type methodsRepository interface {
	List(ctx context.Context) ([]models.PaymentMethod, error)
	FindByID(ctx context.Context, id string) (*models.PaymentMethod, error)
	Update(tx *gorm.DB, id string, changes *models.PaymentMethod, fields []string) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// UpdateInput toggles and relabels a payment method. Nil fields are left
// unchanged.
type UpdateInput struct {
	Name        *string
	Type        *string
	IsActive    *bool
	Description *string
}

type Service interface {
	ListMethods(ctx context.Context) ([]models.PaymentMethod, error)
	UpdateMethod(ctx context.Context, id string, input UpdateInput) (*models.PaymentMethod, error)
}

type service struct {
	repo   methodsRepository
	tx     txRunner
	events outboxEmitter
}

func NewService(repo methodsRepository, tx txRunner, events outboxEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payment methods repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: repo, tx: tx, events: events}, nil
}

func (s *service) ListMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment methods")
	}
	return rows, nil
}

func (s *service) UpdateMethod(ctx context.Context, id string, input UpdateInput) (*models.PaymentMethod, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method id is required")
	}

	changes := &models.PaymentMethod{}
	fields := []string{}
	if input.Name != nil {
		changes.Name = *input.Name
		fields = append(fields, "name")
	}
	if input.Type != nil {
		changes.Type = *input.Type
		fields = append(fields, "type")
	}
	if input.IsActive != nil {
		changes.IsActive = *input.IsActive
		fields = append(fields, "is_active")
	}
	if input.Description != nil {
		changes.Description = *input.Description
		fields = append(fields, "description")
	}
	if len(fields) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updatable fields provided")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.Update(tx, id, changes, fields)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment method")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			Collection:  enums.CollectionPaymentMethods,
			Operation:   enums.ChangeOperationUpdate,
			DocumentKey: id,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}
