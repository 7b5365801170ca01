package models

import "time"

// FruitType is a variant of a Product. Its Order is only meaningful among
// fruit types sharing the same ProductID.
type FruitType struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProductID   uint      `gorm:"not null;index;uniqueIndex:idx_fruit_type_product_slug" json:"productId"`
	Name        string    `gorm:"size:150;not null" json:"name"`
	Slug        string    `gorm:"size:170;not null;uniqueIndex:idx_fruit_type_product_slug" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	Order       int       `gorm:"column:sort_order;not null" json:"order"`
	CreatedAt   time.Time `json:"createdAt"`
}
