package paymentmethods

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

func (r *Repository) List(ctx context.Context) ([]models.PaymentMethod, error) {
	var rows []models.PaymentMethod
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.PaymentMethod, error) {
	var row models.PaymentMethod
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Update applies the selected fields and reports whether the row existed.
func (r *Repository) Update(tx *gorm.DB, id string, changes *models.PaymentMethod, fields []string) (int64, error) {
	res := tx.Model(&models.PaymentMethod{}).
		Where("id = ?", id).
		Select(fields).
		Updates(changes)
	return res.RowsAffected, res.Error
}
