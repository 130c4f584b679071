package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           string          `gorm:"column:id;primaryKey" json:"id"`
	Name         string          `gorm:"column:name" json:"name"`
	Email        string          `gorm:"column:email;not null;unique" json:"email"`
	PasswordHash string          `gorm:"column:password_hash;not null" json:"-"`
	Role         string          `gorm:"column:role;not null;default:'user'" json:"role"`
	Balance      decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0" json:"balance"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}
