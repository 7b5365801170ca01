package models

import "time"

type Product struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Name        string      `gorm:"size:150;not null" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Category    string      `gorm:"size:100;not null;index" json:"category"`
	ImageURL    string      `gorm:"size:500" json:"imageUrl"`
	IsActive    bool        `gorm:"not null;index" json:"isActive"`
	Order       int         `gorm:"column:sort_order;not null;index" json:"order"`
	FruitTypes  []FruitType `gorm:"constraint:OnDelete:CASCADE" json:"fruitTypes,omitempty"`
	CreatedAt   time.Time   `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}
