package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleWaiter  UserRole = "waiter"
	RoleKitchen UserRole = "kitchen"
	RoleCashier UserRole = "cashier"
)

// Roles: yeni rol eklenirken orders.AllowedTargets da güncellenmeli
var Roles = []UserRole{RoleAdmin, RoleWaiter, RoleKitchen, RoleCashier}

// RoleNames hata mesajları için "admin|waiter|..." biçimi
func RoleNames() string {
	return joinNames(Roles)
}

func joinNames[T ~string](vals []T) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = string(v)
	}
	return strings.Join(parts, "|")
}

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleWaiter, RoleKitchen, RoleCashier:
		return true
	}
	return false
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:80;uniqueIndex;not null" json:"username"`
	Name         string    `gorm:"size:120" json:"name"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         UserRole  `gorm:"size:20;not null;default:waiter" json:"role"`
	Active       bool      `gorm:"not null" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName: isim girilmemişse kullanıcı adı
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
