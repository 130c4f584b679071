package codes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
	"github.com/businesssadigital-oss/backendpay/pkg/enums"
	pkgerrors "github.com/businesssadigital-oss/backendpay/pkg/errors"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
	"github.com/businesssadigital-oss/backendpay/pkg/outbox"
	"github.com/businesssadigital-oss/backendpay/pkg/types"
)

type codesRepository interface {
	List(ctx context.Context, filter ListFilter) ([]models.Code, error)
	FindByIDTx(tx *gorm.DB, id string) (*models.Code, error)
	ExistingValues(tx *gorm.DB, productID string, values []string) (map[string]bool, error)
	InsertBatch(tx *gorm.DB, rows []models.Code) error
	MarkSoldBatch(tx *gorm.DB, ids []string, soldTo, orderID string) (int64, error)
	Delete(tx *gorm.DB, id string) (int64, error)
	CountByStatus(ctx context.Context, productID string, status enums.CodeStatus) (int64, error)
}

type productsRepository interface {
	FindByIDLocked(tx *gorm.DB, id string) (*models.Product, error)
	Save(tx *gorm.DB, product *models.Product) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the code-store operations behind the inventory endpoints.
type Service interface {
	AddCodes(ctx context.Context, productID string, values []string) (*AddResult, error)
	ListCodes(ctx context.Context, filter ListFilter) ([]models.Code, error)
	MarkSold(ctx context.Context, id string, input MarkSoldInput) (*models.Code, error)
	DeleteCode(ctx context.Context, id string) error
	Stats(ctx context.Context, productID string) (*StatsResult, error)
}

// AddResult reports the outcome of a bulk add: how many rows were created and
// how many candidates were skipped as duplicates.
type AddResult struct {
	Count      int           `json:"count"`
	Duplicates int           `json:"duplicates"`
	Codes      []models.Code `json:"codes"`
}

// MarkSoldInput carries the optional sale attribution for a manual
// mark-sold.
type MarkSoldInput struct {
	SoldTo  string
	OrderID string
}

// StatsResult is the per-product inventory tally.
type StatsResult struct {
	ProductID string `json:"productId"`
	Available int64  `json:"available"`
	Sold      int64  `json:"sold"`
	Total     int64  `json:"total"`
}

type service struct {
	repo     codesRepository
	products productsRepository
	tx       txRunner
	events   outboxEmitter
	logg     *logger.Logger
}

func NewService(repo codesRepository, products productsRepository, tx txRunner, events outboxEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("codes repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("products repository required")
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
	return &service{repo: repo, products: products, tx: tx, events: events, logg: logg}, nil
}

// AddCodes inserts the candidate code strings for a product. Duplicates,
// whether already stored or repeated within the request, are skipped and
// counted rather than rejected. The product projection picks up the new
// values in the same transaction when the product row exists.
func (s *service) AddCodes(ctx context.Context, productID string, values []string) (*AddResult, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	if len(values) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "codes array is required")
	}

	candidates := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	duplicates := 0
	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "code values must not be empty")
		}
		if seen[value] {
			duplicates++
			continue
		}
		seen[value] = true
		candidates = append(candidates, value)
	}

	result := &AddResult{Codes: []models.Code{}}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		existing, err := s.repo.ExistingValues(tx, productID, candidates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing codes")
		}

		rows := make([]models.Code, 0, len(candidates))
		fresh := make([]string, 0, len(candidates))
		for _, value := range candidates {
			if existing[value] {
				duplicates++
				continue
			}
			rows = append(rows, models.Code{
				ID:        uuid.NewString(),
				ProductID: productID,
				Code:      value,
				Status:    enums.CodeStatusAvailable,
			})
			fresh = append(fresh, value)
		}

		if len(rows) > 0 {
			if err := s.repo.InsertBatch(tx, rows); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert codes")
			}
			if err := s.syncProductProjection(ctx, tx, productID, fresh); err != nil {
				return err
			}
			if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				Collection:  enums.CollectionCodes,
				Operation:   enums.ChangeOperationInsert,
				DocumentKey: productID,
				Data:        map[string]any{"count": len(rows)},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit codes event")
			}
		}

		result.Count = len(rows)
		result.Duplicates = duplicates
		result.Codes = rows
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithProductID(ctx, productID), map[string]any{
		"added":      result.Count,
		"duplicates": result.Duplicates,
	})
	s.logg.Info(logCtx, "codes added")
	return result, nil
}

// syncProductProjection appends the fresh values to the product's embedded
// inventory. A missing product row is tolerated: the code store can be
// loaded before the catalog entry exists.
func (s *service) syncProductProjection(ctx context.Context, tx *gorm.DB, productID string, fresh []string) error {
	product, err := s.products.FindByIDLocked(tx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(s.logg.WithProductID(ctx, productID), "product missing during code sync")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}

	product.AvailableCodes = append(product.AvailableCodes, types.StringList(fresh)...)
	product.Stock += len(fresh)
	if err := s.products.Save(tx, product); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync product projection")
	}
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		Collection:  enums.CollectionProducts,
		Operation:   enums.ChangeOperationUpdate,
		DocumentKey: productID,
	})
}

func (s *service) ListCodes(ctx context.Context, filter ListFilter) ([]models.Code, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list codes")
	}
	return rows, nil
}

// MarkSold flips one code to sold with optional attribution. Re-marking an
// already sold code is a no-op that returns the current row.
func (s *service) MarkSold(ctx context.Context, id string, input MarkSoldInput) (*models.Code, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code id is required")
	}

	var updated *models.Code
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		row, err := s.repo.FindByIDTx(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "code not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup code")
		}

		affected, err := s.repo.MarkSoldBatch(tx, []string{id}, input.SoldTo, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark code sold")
		}
		if affected == 0 {
			// Already sold; keep the original attribution.
			updated = row
			return nil
		}

		updated, err = s.repo.FindByIDTx(tx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload code")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			Collection:  enums.CollectionCodes,
			Operation:   enums.ChangeOperationUpdate,
			DocumentKey: id,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) DeleteCode(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "code id is required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.Delete(tx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete code")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "code not found")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			Collection:  enums.CollectionCodes,
			Operation:   enums.ChangeOperationDelete,
			DocumentKey: id,
		})
	})
}

// Stats tallies a product's inventory from the code store, the source of
// truth. Unknown products report zeros rather than an error.
func (s *service) Stats(ctx context.Context, productID string) (*StatsResult, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}

	available, err := s.repo.CountByStatus(ctx, productID, enums.CodeStatusAvailable)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count available codes")
	}
	sold, err := s.repo.CountByStatus(ctx, productID, enums.CodeStatusSold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count sold codes")
	}
	return &StatsResult{
		ProductID: productID,
		Available: available,
		Sold:      sold,
		Total:     available + sold,
	}, nil
}
