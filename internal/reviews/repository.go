package reviews

import (
	"context"

	"gorm.io/gorm"

	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
)

// Repository exposes review persistence operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context, productID string) ([]models.Review, error) {
	query := r.db.WithContext(ctx).Order("date DESC").Order("id DESC")
	if productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	var rows []models.Review
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) Insert(tx *gorm.DB, review *models.Review) error {
	return tx.Create(review).Error
}

// RatingsForProduct returns every rating recorded for a product, inside the
// caller's transaction so the recomputed average includes the new row.
func (r *Repository) RatingsForProduct(tx *gorm.DB, productID string) ([]float64, error) {
	var ratings []float64
	err := tx.Model(&models.Review{}).
		Where("product_id = ?", productID).
		Pluck("rating", &ratings).Error
	return ratings, err
}
