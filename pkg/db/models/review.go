package models

import "time"

// Review is one user's rating of a product. The owning product's rating field
// is recomputed after every insert.
type Review struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	ProductID string    `gorm:"column:product_id;not null;index" json:"productId"`
	UserID    string    `gorm:"column:user_id;not null" json:"userId"`
	UserName  string    `gorm:"column:user_name" json:"userName"`
	Rating    float64   `gorm:"column:rating;not null" json:"rating"`
	Comment   string    `gorm:"column:comment" json:"comment"`
	Date      time.Time `gorm:"column:date;autoCreateTime" json:"date"`
}
