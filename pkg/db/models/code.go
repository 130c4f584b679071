package models

import (
	"time"

	"github.com/businesssadigital-oss/backendpay/pkg/enums"
)

// Code is a single-use redemption string. The composite unique index on
// (product_id, code) is what makes duplicate adds a counted no-op instead of
// a corruption source.
type Code struct {
	ID        string           `gorm:"column:id;primaryKey" json:"id"`
	ProductID string           `gorm:"column:product_id;not null;uniqueIndex:ux_codes_product_code" json:"productId"`
	Code      string           `gorm:"column:code;not null;uniqueIndex:ux_codes_product_code" json:"code"`
	Status    enums.CodeStatus `gorm:"column:status;not null;default:'available';index" json:"status"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
	SoldAt    *time.Time       `gorm:"column:sold_at" json:"soldAt"`
	SoldTo    *string          `gorm:"column:sold_to" json:"soldTo"`
	OrderID   *string          `gorm:"column:order_id" json:"orderId"`
}
