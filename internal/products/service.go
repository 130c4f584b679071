package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

type productsRepository interface {
	List(ctx context.Context) ([]models.Product, error)
	FindByID(ctx context.Context, id string) (*models.Product, error)
	Update(ctx context.Context, id string, changes *models.Product, fields []string) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
}

type codesInventory interface {
	AvailableValues(ctx context.Context, productID string) ([]string, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes catalog operations plus the inventory integrity check.
type Service interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, input ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	CheckIntegrity(ctx context.Context, id string) (*IntegrityReport, error)
}

// ProductInput is the write shape shared by create and update.
type ProductInput struct {
	ID             string
	Name           string
	Description    string
	Price          decimal.Decimal
	Category       string
	Image          string
	Stock          *int
	AvailableCodes []string
}

// IntegrityReport compares the product projection against the code store.
type IntegrityReport struct {
	ProductID             string   `json:"productId"`
	Consistent            bool     `json:"consistent"`
	ProjectionStock       int      `json:"projectionStock"`
	StoreAvailable        int      `json:"storeAvailable"`
	MissingFromStore      []string `json:"missingFromStore"`
	MissingFromProjection []string `json:"missingFromProjection"`
}

type service struct {
	repo   productsRepository
	codes  codesInventory
	tx     txRunner
	events outboxEmitter
	logg   *logger.Logger
}

func NewService(repo productsRepository, codes codesInventory, tx txRunner, events outboxEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if codes == nil {
		return nil, fmt.Errorf("codes inventory required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, codes: codes, tx: tx, events: events, logg: logg}, nil
}

func (s *service) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return rows, nil
}

func (s *service) CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Price.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	}

	product := &models.Product{
		ID:             id,
		Name:           strings.TrimSpace(input.Name),
		Description:    input.Description,
		Price:          input.Price,
		Category:       input.Category,
		Image:          input.Image,
		AvailableCodes: types.StringList{},
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.AvailableCodes != nil {
		product.AvailableCodes = types.StringList(input.AvailableCodes)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(product).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			Collection:  enums.CollectionProducts,
			Operation:   enums.ChangeOperationInsert,
			DocumentKey: product.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, id string, input ProductInput) (*models.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Price.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}

	changes := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		Image:       input.Image,
	}
	fields := []string{}
	if changes.Name != "" {
		fields = append(fields, "name")
	}
	if input.Description != "" {
		fields = append(fields, "description")
	}
	if input.Price.Sign() > 0 {
		fields = append(fields, "price")
	}
	if input.Category != "" {
		fields = append(fields, "category")
	}
	if input.Image != "" {
		fields = append(fields, "image")
	}
	if input.Stock != nil {
		changes.Stock = *input.Stock
		fields = append(fields, "stock")
	}
	if input.AvailableCodes != nil {
		changes.AvailableCodes = types.StringList(input.AvailableCodes)
		fields = append(fields, "available_codes")
	}
	if len(fields) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updatable fields provided")
	}

	affected, err := s.repo.Update(ctx, id, changes, fields)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			Collection:  enums.CollectionProducts,
			Operation:   enums.ChangeOperationUpdate,
			DocumentKey: id,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) DeleteProduct(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			Collection:  enums.CollectionProducts,
			Operation:   enums.ChangeOperationDelete,
			DocumentKey: id,
		})
	})
}

// CheckIntegrity diffs the embedded projection against the code store. The
// store is authoritative; the report names values present on one side only.
func (s *service) CheckIntegrity(ctx context.Context, id string) (*IntegrityReport, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}

	storeValues, err := s.codes.AvailableValues(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load code store values")
	}

	inStore := make(map[string]bool, len(storeValues))
	for _, v := range storeValues {
		inStore[v] = true
	}
	inProjection := make(map[string]bool, len(product.AvailableCodes))
	for _, v := range product.AvailableCodes {
		inProjection[v] = true
	}

	report := &IntegrityReport{
		ProductID:             id,
		ProjectionStock:       product.Stock,
		StoreAvailable:        len(storeValues),
		MissingFromStore:      []string{},
		MissingFromProjection: []string{},
	}
	for _, v := range product.AvailableCodes {
		if !inStore[v] {
			report.MissingFromStore = append(report.MissingFromStore, v)
		}
	}
	for _, v := range storeValues {
		if !inProjection[v] {
			report.MissingFromProjection = append(report.MissingFromProjection, v)
		}
	}
	report.Consistent = len(report.MissingFromStore) == 0 &&
		len(report.MissingFromProjection) == 0 &&
		report.ProjectionStock == report.StoreAvailable

	if !report.Consistent {
		logCtx := s.logg.WithFields(s.logg.WithProductID(ctx, id), map[string]any{
			"projection_stock": report.ProjectionStock,
			"store_available":  report.StoreAvailable,
		})
		s.logg.Warn(logCtx, "inventory projection drift detected")
	}
	return report, nil
}
