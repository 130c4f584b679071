package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
)

// Repository exposes order-ledger persistence operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context) ([]models.Order, error) {
	var rows []models.Order
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var row models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Insert writes a new ledger row inside the caller's transaction.
func (r *Repository) Insert(tx *gorm.DB, order *models.Order) error {
	return tx.Create(order).Error
}

// AttachPayPalOrderID records the external payment reference. Reports
// whether the order existed.
func (r *Repository) AttachPayPalOrderID(ctx context.Context, orderID, paypalOrderID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("paypal_order_id", paypalOrderID)
	return res.RowsAffected, res.Error
}
