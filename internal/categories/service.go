package categories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
	"github.com/businesssadigital-oss/backendpay/pkg/enums"
	pkgerrors "github.com/businesssadigital-oss/backendpay/pkg/errors"
	"github.com/businesssadigital-oss/backendpay/pkg/outbox"
)

type categoriesRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	Insert(tx *gorm.DB, category *models.Category) error
	Delete(tx *gorm.DB, id string) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type Service interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, id, name string) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

type service struct {
	repo   categoriesRepository
	tx     txRunner
	events outboxEmitter
}

func NewService(repo categoriesRepository, tx txRunner, events outboxEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("categories repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: repo, tx: tx, events: events}, nil
}

func (s *service) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return rows, nil
}

func (s *service) CreateCategory(ctx context.Context, id, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}

	category := &models.Category{ID: id, Name: name}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Insert(tx, category); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert category")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			Collection:  enums.CollectionCategories,
			Operation:   enums.ChangeOperationInsert,
			DocumentKey: category.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *service) DeleteCategory(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.Delete(tx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			Collection:  enums.CollectionCategories,
			Operation:   enums.ChangeOperationDelete,
			DocumentKey: id,
		})
	})
}
