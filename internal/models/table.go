package models

import "time"

type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TableReserved  TableStatus = "reserved"
	TableCleaning  TableStatus = "cleaning"
)

func (s TableStatus) Valid() bool {
	switch s {
	case TableAvailable, TableOccupied, TableReserved, TableCleaning:
		return true
	}
	return false
}

// Table: restorandaki fiziksel masa
type Table struct {
	ID        uint        `gorm:"primaryKey"`
	Number    int         `gorm:"uniqueIndex;not null"`
	Capacity  int         `gorm:"not null"`
	Location  string      `gorm:"size:100"`
	Status    TableStatus `gorm:"size:20;not null;default:available;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
