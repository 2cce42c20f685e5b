// Package orders komanda iş akışını yönetir: açılış, kalem ekleme/çıkarma,
// durum geçişleri ve mutfak ekranı.
package orders

import "restoran-pos/internal/models"

// transitions: izin verilen durum geçişleri. delivered ve cancelled son durumdur.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:       {models.OrderInPreparation, models.OrderCancelled},
	models.OrderInPreparation: {models.OrderReady, models.OrderCancelled},
	models.OrderReady:         {models.OrderDelivered, models.OrderCancelled},
	models.OrderDelivered:     nil,
	models.OrderCancelled:     nil,
}

// CanTransition from -> to geçişi tabloda var mı
func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTargets rolün hedefleyebileceği durumlar. Yeni bir rol eklendiğinde
// bu switch'e de eklenmesi gerekir, aksi halde rol hiçbir geçiş yapamaz.
func AllowedTargets(role models.UserRole) []models.OrderStatus {
	switch role {
	case models.RoleAdmin:
		return []models.OrderStatus{
			models.OrderInPreparation,
			models.OrderReady,
			models.OrderDelivered,
			models.OrderCancelled,
		}
	case models.RoleKitchen:
		return []models.OrderStatus{models.OrderInPreparation, models.OrderReady}
	case models.RoleWaiter:
		return []models.OrderStatus{models.OrderDelivered, models.OrderCancelled}
	case models.RoleCashier:
		return nil
	}
	return nil
}

func RoleMayTarget(role models.UserRole, to models.OrderStatus) bool {
	for _, s := range AllowedTargets(role) {
		if s == to {
			return true
		}
	}
	return false
}

// NextStatuses: verilen rol için komandanın şu anki durumundan gidilebilecek durumlar
func NextStatuses(role models.UserRole, from models.OrderStatus) []models.OrderStatus {
	var res []models.OrderStatus
	for _, next := range transitions[from] {
		if RoleMayTarget(role, next) {
			res = append(res, next)
		}
	}
	return res
}
