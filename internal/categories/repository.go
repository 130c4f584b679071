package categories

import (
	"context"

	"gorm.io/gorm"

	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) Insert(tx *gorm.DB, category *models.Category) error {
	return tx.Create(category).Error
}

func (r *Repository) Delete(tx *gorm.DB, id string) (int64, error) {
	res := tx.Where("id = ?", id).Delete(&models.Category{})
	return res.RowsAffected, res.Error
}
