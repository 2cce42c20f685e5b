package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCard, PaymentTransfer}

func PaymentMethodNames() string {
	return joinNames(PaymentMethods)
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

// Payment: bir komandanın tek ödemesi, oluşturulduktan sonra değişmez
type Payment struct {
	ID         uint            `gorm:"primaryKey"`
	OrderID    uint            `gorm:"uniqueIndex;not null"`
	ShiftID    uint            `gorm:"index;not null"`
	Method     PaymentMethod   `gorm:"size:20;not null;index"`
	Amount     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Received   decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Change     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	TicketCode string          `gorm:"size:36;uniqueIndex;not null"`
	PaidAt     time.Time       `gorm:"index;not null"`
	CreatedAt  time.Time
}
