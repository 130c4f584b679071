package models

type PaymentMethod struct {
	ID          string `gorm:"column:id;primaryKey" json:"id"`
	Name        string `gorm:"column:name;not null" json:"name"`
	Type        string `gorm:"column:type;not null" json:"type"`
	IsActive    bool   `gorm:"column:is_active;not null;default:false" json:"isActive"`
	Description string `gorm:"column:description" json:"description"`
}
