package models

import "github.com/shopspring/decimal"

type Item struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Category    string          `gorm:"type:varchar(100);not null" json:"category"`
	Description string          `gorm:"type:text" json:"description"`
	Image       string          `gorm:"type:text" json:"image"`
}

// ItemFields holds everything a caller supplies when creating an item.
type ItemFields struct {
	Name        string
	Price       decimal.Decimal
	Category    string
	Description string
	Image       string
}

// ItemPatch describes an edit. Nil fields keep the stored value.
type ItemPatch struct {
	Name        *string
	Price       *decimal.Decimal
	Category    *string
	Description *string
	Image       *string
}

func (f ItemFields) Item(id int64) Item {
	return Item{
		ID:          id,
		Name:        f.Name,
		Price:       f.Price,
		Category:    f.Category,
		Description: f.Description,
		Image:       f.Image,
	}
}

// Apply merges the non-nil fields of p into it.
func (p ItemPatch) Apply(it *Item) {
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Price != nil {
		it.Price = *p.Price
	}
	if p.Category != nil {
		it.Category = *p.Category
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.Image != nil {
		it.Image = *p.Image
	}
}

// Empty reports whether p changes nothing.
func (p ItemPatch) Empty() bool {
	return p.Name == nil && p.Price == nil && p.Category == nil && p.Description == nil && p.Image == nil
}
