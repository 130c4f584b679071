package settings

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
)

// singletonID pins the settings table to one row.
const singletonID = 1

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Find(ctx context.Context) (*models.Setting, error) {
	var row models.Setting
	if err := r.db.WithContext(ctx).Where("id = ?", singletonID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Upsert writes the singleton row, creating it on first save.
func (r *Repository) Upsert(tx *gorm.DB, setting *models.Setting) error {
	setting.ID = singletonID
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(setting).Error
}
