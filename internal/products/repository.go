package products

import (
	"context"

	"gorm.io/gorm"

	dbpkg "github.com/businesssadigital-oss/backendpay/pkg/db"
	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
	"github.com/businesssadigital-oss/backendpay/pkg/types"
)

// Repository exposes product persistence operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	if err := r.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var row models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByIDLocked loads a product inside the caller's transaction with a row
// lock so concurrent fulfillments serialize on it.
func (r *Repository) FindByIDLocked(tx *gorm.DB, id string) (*models.Product, error) {
	var row models.Product
	if err := dbpkg.LockForUpdate(tx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Update applies the given field changes and reports whether the row existed.
func (r *Repository) Update(ctx context.Context, id string, changes *models.Product, fields []string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Select(fields).
		Updates(changes)
	return res.RowsAffected, res.Error
}

func (r *Repository) Delete(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	return res.RowsAffected, res.Error
}

// Save persists the full product row inside the caller's transaction.
func (r *Repository) Save(tx *gorm.DB, product *models.Product) error {
	return tx.Save(product).Error
}

// SaveProjection rewrites the denormalized inventory columns inside the
// caller's transaction.
func (r *Repository) SaveProjection(tx *gorm.DB, id string, availableCodes []string, stock int) error {
	if availableCodes == nil {
		availableCodes = []string{}
	}
	return tx.Model(&models.Product{}).
		Where("id = ?", id).
		Select("available_codes", "stock").
		Updates(&models.Product{
			AvailableCodes: types.StringList(availableCodes),
			Stock:          stock,
		}).Error
}

// SaveRating writes the derived review average inside the caller's
// transaction. Reports whether the product row existed.
func (r *Repository) SaveRating(tx *gorm.DB, id string, rating float64) (int64, error) {
	res := tx.Model(&models.Product{}).
		Where("id = ?", id).
		Select("rating").
		Updates(&models.Product{Rating: rating})
	return res.RowsAffected, res.Error
}
