package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/businesssadigital-oss/backendpay/pkg/enums"
	"github.com/businesssadigital-oss/backendpay/pkg/types"
)

// OrderItem is the snapshot of one purchased line item.
type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Name      string `json:"name,omitempty"`
}

// Order is the durable ledger record of a fulfillment. Immutable after
// creation except for attaching a late-arriving external payment reference.
type Order struct {
	ID            string              `gorm:"column:id;primaryKey" json:"id"`
	UserID        string              `gorm:"column:user_id;not null;index" json:"userId"`
	Date          time.Time           `gorm:"column:date;not null" json:"date"`
	Items         []OrderItem         `gorm:"column:items;type:jsonb;serializer:json" json:"items"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null" json:"total"`
	Status        enums.OrderStatus   `gorm:"column:status;not null" json:"status"`
	DeliveryCodes types.DeliveryCodes `gorm:"column:delivery_codes;type:jsonb;serializer:json" json:"deliveryCodes"`
	PaymentMethod string              `gorm:"column:payment_method" json:"paymentMethod"`
	PayPalOrderID *string             `gorm:"column:paypal_order_id" json:"paypalOrderId,omitempty"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
