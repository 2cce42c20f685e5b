package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending       OrderStatus = "pending"
	OrderInPreparation OrderStatus = "in_preparation"
	OrderReady         OrderStatus = "ready"
	OrderDelivered     OrderStatus = "delivered"
	OrderCancelled     OrderStatus = "cancelled"
)

// ActiveOrderStatuses: masayı meşgul tutan durumlar
var ActiveOrderStatuses = []OrderStatus{OrderPending, OrderInPreparation, OrderReady}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderInPreparation, OrderReady, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// Order: masaya açılan komanda
type Order struct {
	ID        uint `gorm:"primaryKey"`
	TableID   uint `gorm:"index;not null"`
	Table     Table
	WaiterID  uint `gorm:"index;not null"`
	Waiter    User
	Status    OrderStatus     `gorm:"size:20;not null;default:pending;index"`
	Notes     string          `gorm:"size:500"`
	Total     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Items     []OrderItem     `gorm:"constraint:OnDelete:CASCADE"`
	Payment   *Payment
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// OrderItem: komanda detayı; birim fiyat ekleme anındaki ürün fiyatıdır
type OrderItem struct {
	ID        uint `gorm:"primaryKey"`
	OrderID   uint `gorm:"index;not null"`
	ProductID uint `gorm:"index;not null"`
	Product   Product
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Subtotal  decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Notes     string          `gorm:"size:255"`
	CreatedAt time.Time
}

func (i *OrderItem) CalculateSubtotal() {
	i.Subtotal = i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SumItems: kalan kalemlerin quantity * unit_price toplamı
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
