package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultReorderThreshold = 5

type Product struct {
	ID               uint   `gorm:"primaryKey"`
	Name             string `gorm:"size:120;not null;index"`
	Description      string `gorm:"size:255"`
	CategoryID       uint   `gorm:"index;not null"`
	Category         Category
	Price            decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Stock            int             `gorm:"not null;default:0"`
	ReorderThreshold int             `gorm:"not null"`
	Available        bool            `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NeedsRestock her okumada stoktan türetilir, kolon olarak tutulmaz
func (p Product) NeedsRestock() bool {
	return p.Stock <= p.ReorderThreshold
}
