package codes

import (
	"context"
	"time"

	"gorm.io/gorm"

	dbpkg "github.com/businesssadigital-oss/backendpay/pkg/db"
	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
	"github.com/businesssadigital-oss/backendpay/pkg/enums"
)

// Repository exposes code-store persistence operations. Methods taking a tx
// participate in the caller's transaction.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	ProductID string
	Status    enums.CodeStatus
}

// List returns codes newest-first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Code, error) {
	query := r.db.WithContext(ctx).Model(&models.Code{})
	if filter.ProductID != "" {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	var rows []models.Code
	if err := query.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.Code, error) {
	var row models.Code
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ExistingValues returns which of the candidate code strings already exist
// for the product.
func (r *Repository) ExistingValues(tx *gorm.DB, productID string, values []string) (map[string]bool, error) {
	if len(values) == 0 {
		return map[string]bool{}, nil
	}
	var found []string
	err := tx.Model(&models.Code{}).
		Where("product_id = ? AND code IN ?", productID, values).
		Pluck("code", &found).Error
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(found))
	for _, v := range found {
		existing[v] = true
	}
	return existing, nil
}

func (r *Repository) InsertBatch(tx *gorm.DB, rows []models.Code) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

// SelectAvailable picks the oldest available codes for a product, locking
// them against concurrent fulfillments.
func (r *Repository) SelectAvailable(tx *gorm.DB, productID string, limit int) ([]models.Code, error) {
	var rows []models.Code
	err := dbpkg.LockForUpdate(tx).
		Where("product_id = ? AND status = ?", productID, enums.CodeStatusAvailable).
		Order("created_at ASC").Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkSoldBatch flips the given codes to sold. The status guard makes the
// transition idempotent: rows already sold are left untouched and not
// counted.
func (r *Repository) MarkSoldBatch(tx *gorm.DB, ids []string, soldTo, orderID string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := tx.Model(&models.Code{}).
		Where("id IN ? AND status = ?", ids, enums.CodeStatusAvailable).
		Updates(map[string]any{
			"status":   enums.CodeStatusSold,
			"sold_at":  time.Now(),
			"sold_to":  soldTo,
			"order_id": orderID,
		})
	return res.RowsAffected, res.Error
}

// FindByIDTx loads a code inside the caller's transaction.
func (r *Repository) FindByIDTx(tx *gorm.DB, id string) (*models.Code, error) {
	var row models.Code
	if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) Delete(tx *gorm.DB, id string) (int64, error) {
	res := tx.Where("id = ?", id).Delete(&models.Code{})
	return res.RowsAffected, res.Error
}

// CountByStatus tallies a product's codes for the stats endpoint.
func (r *Repository) CountByStatus(ctx context.Context, productID string, status enums.CodeStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Code{}).
		Where("product_id = ? AND status = ?", productID, status).
		Count(&count).Error
	return count, err
}

// AvailableValues returns the code strings still available for a product,
// oldest first. The integrity check compares this against the product
// projection.
func (r *Repository) AvailableValues(ctx context.Context, productID string) ([]string, error) {
	var values []string
	err := r.db.WithContext(ctx).Model(&models.Code{}).
		Where("product_id = ? AND status = ?", productID, enums.CodeStatusAvailable).
		Order("created_at ASC").Order("id ASC").
		Pluck("code", &values).Error
	return values, err
}
