package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/businesssadigital-oss/backendpay/pkg/types"
)

// Product is the canonical storefront listing. Stock and AvailableCodes are a
// denormalized projection of the codes table; the code store is the source of
// truth whenever both exist.
type Product struct {
	ID          string          `gorm:"column:id;primaryKey" json:"id"`
	Name        string          `gorm:"column:name;not null" json:"name"`
	Description string          `gorm:"column:description" json:"description"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Category    string          `gorm:"column:category;index" json:"category"`
	Image       string          `gorm:"column:image" json:"image"`
	// Rating is derived from reviews, rounded to one decimal place.
	Rating float64 `gorm:"column:rating;not null;default:0" json:"rating"`
	Stock  int     `gorm:"column:stock;not null;default:0" json:"stock"`
	// AvailableCodes is the legacy embedded inventory kept for the
	// compatibility order path.
	AvailableCodes types.StringList `gorm:"column:available_codes;type:jsonb;serializer:json" json:"availableCodes"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
