package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ShiftStatus string

const (
	ShiftOpen   ShiftStatus = "open"
	ShiftClosed ShiftStatus = "closed"
)

// Shift: kasiyer vardiyası (turno)
type Shift struct {
	ID           uint `gorm:"primaryKey"`
	UserID       uint `gorm:"index;not null"`
	User         User
	OpeningFloat decimal.Decimal     `gorm:"type:numeric(12,2);not null"`
	ClosingFloat decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	OpenedAt     time.Time           `gorm:"index;not null"`
	ClosedAt     *time.Time
	Status       ShiftStatus `gorm:"size:20;not null;default:open;index"`
	Notes        string      `gorm:"size:1000"`
	Payments     []Payment
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
