// Package tables masa kaydını ve doluluk durumunu yönetir.
package tables

import (
	"errors"
	"fmt"
	"strings"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/models"

	"gorm.io/gorm"
)

type TableInput struct {
	Number   int
	Capacity int
	Location string
}

type UpdateTableInput struct {
	Number   *int
	Capacity *int
	Location *string
	Status   *models.TableStatus
}

// ActiveOrderSummary: masa haritasında gösterilen açık komanda özeti
type ActiveOrderSummary struct {
	OrderID    uint
	Status     models.OrderStatus
	WaiterName string
	Total      string
	ItemCount  int64
}

type MapEntry struct {
	Table       models.Table
	ActiveOrder *ActiveOrderSummary
}

func validateTableInput(in TableInput) error {
	if in.Number <= 0 {
		return apperr.Validation("Masa numarası pozitif olmalı")
	}
	if in.Capacity <= 0 {
		return apperr.Validation("Kapasite pozitif olmalı")
	}
	return nil
}

func numberTaken(tx *gorm.DB, number int, exceptID uint) (bool, error) {
	var count int64
	q := tx.Model(&models.Table{}).Where("number = ?", number)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasActiveOrder: masada pending/in_preparation/ready durumunda komanda var mı
func HasActiveOrder(tx *gorm.DB, tableID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.Order{}).
		Where("table_id = ? AND status IN ?", tableID, models.ActiveOrderStatuses).
		Count(&count).Error
	return count > 0, err
}

func List(db *gorm.DB) ([]models.Table, error) {
	var tables []models.Table
	err := db.Order("number asc").Find(&tables).Error
	return tables, err
}

func Get(db *gorm.DB, id uint) (models.Table, error) {
	var t models.Table
	if err := db.First(&t, "id = ?", id).Error; err != nil {
		return t, apperr.NotFoundOr(err, "Masa bulunamadı")
	}
	return t, nil
}

// Map: tüm masalar ve varsa açık komandalarının özeti
func Map(db *gorm.DB) ([]MapEntry, error) {
	tables, err := List(db)
	if err != nil {
		return nil, err
	}

	var orders []models.Order
	if err := db.Preload("Waiter").Preload("Items").
		Where("status IN ?", models.ActiveOrderStatuses).
		Find(&orders).Error; err != nil {
		return nil, err
	}

	byTable := make(map[uint]*ActiveOrderSummary, len(orders))
	for _, o := range orders {
		byTable[o.TableID] = &ActiveOrderSummary{
			OrderID:    o.ID,
			Status:     o.Status,
			WaiterName: o.Waiter.DisplayName(),
			Total:      o.Total.StringFixed(2),
			ItemCount:  int64(len(o.Items)),
		}
	}

	entries := make([]MapEntry, 0, len(tables))
	for _, t := range tables {
		entries = append(entries, MapEntry{Table: t, ActiveOrder: byTable[t.ID]})
	}
	return entries, nil
}

func Create(db *gorm.DB, actor auth.Actor, in TableInput) (models.Table, error) {
	in.Location = strings.TrimSpace(in.Location)
	if err := validateTableInput(in); err != nil {
		return models.Table{}, err
	}

	t := models.Table{
		Number:   in.Number,
		Capacity: in.Capacity,
		Location: in.Location,
		Status:   models.TableAvailable,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		taken, err := numberTaken(tx, in.Number, 0)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("%d numaralı masa zaten var", in.Number)
		}
		if err := tx.Create(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("%d numaralı masa zaten var", in.Number)
			}
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "table",
			EntityID:    t.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Masa %d oluşturuldu", t.Number),
			After:       t,
		})
	})
	return t, err
}

func Update(db *gorm.DB, actor auth.Actor, id uint, in UpdateTableInput) (models.Table, error) {
	var t models.Table
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&t, "id = ?", id).Error; err != nil {
			return apperr.NotFoundOr(err, "Masa bulunamadı")
		}
		before := t

		if in.Number != nil {
			t.Number = *in.Number
		}
		if in.Capacity != nil {
			t.Capacity = *in.Capacity
		}
		if in.Location != nil {
			t.Location = strings.TrimSpace(*in.Location)
		}
		if in.Status != nil {
			if !in.Status.Valid() {
				return apperr.Validation("Geçersiz masa durumu: %s", *in.Status)
			}
			if err := ensureCanRelease(tx, t, *in.Status); err != nil {
				return err
			}
			t.Status = *in.Status
		}

		if err := validateTableInput(TableInput{Number: t.Number, Capacity: t.Capacity}); err != nil {
			return err
		}
		if t.Number != before.Number {
			taken, err := numberTaken(tx, t.Number, t.ID)
			if err != nil {
				return err
			}
			if taken {
				return apperr.Conflict("%d numaralı masa zaten var", t.Number)
			}
		}

		if err := tx.Save(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("%d numaralı masa zaten var", t.Number)
			}
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "table",
			EntityID:    t.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Masa %d güncellendi", t.Number),
			Before:      before,
			After:       t,
		})
	})
	return t, err
}

// Delete: açık komandası olan masa silinemez. Geçmiş komandalar da silinmediği
// için komanda kaydı olan masa da silinemez.
func Delete(db *gorm.DB, actor auth.Actor, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var t models.Table
		if err := tx.First(&t, "id = ?", id).Error; err != nil {
			return apperr.NotFoundOr(err, "Masa bulunamadı")
		}

		active, err := HasActiveOrder(tx, t.ID)
		if err != nil {
			return err
		}
		if active {
			return apperr.Conflict("Masa %d üzerinde açık komanda var, silinemez", t.Number)
		}

		var history int64
		if err := tx.Model(&models.Order{}).Where("table_id = ?", t.ID).Count(&history).Error; err != nil {
			return err
		}
		if history > 0 {
			return &apperr.Error{
				Kind:    apperr.KindConflict,
				Message: fmt.Sprintf("Masa %d komanda geçmişine sahip, silinemez", t.Number),
				Count:   history,
			}
		}

		if err := tx.Delete(&t).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "table",
			EntityID:    t.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Masa %d silindi", t.Number),
			Before:      t,
		})
	})
}

// ensureCanRelease: açık komandası olan masa boşa (available) çekilemez
func ensureCanRelease(tx *gorm.DB, t models.Table, status models.TableStatus) error {
	if status != models.TableAvailable {
		return nil
	}
	active, err := HasActiveOrder(tx, t.ID)
	if err != nil {
		return err
	}
	if active {
		return apperr.Conflict("Masa %d üzerinde açık komanda var", t.Number)
	}
	return nil
}

func ChangeStatus(db *gorm.DB, actor auth.Actor, id uint, status models.TableStatus) (models.Table, error) {
	var t models.Table
	if !status.Valid() {
		return t, apperr.Validation("Geçersiz masa durumu: %s", status)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&t, "id = ?", id).Error; err != nil {
			return apperr.NotFoundOr(err, "Masa bulunamadı")
		}
		previous := t.Status

		if err := ensureCanRelease(tx, t, status); err != nil {
			return err
		}

		if err := SetStatus(tx, &t, status); err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "table",
			EntityID:    t.ID,
			Action:      models.AuditActionStatus,
			Description: fmt.Sprintf("Masa %d: %s -> %s", t.Number, previous, status),
			Before:      map[string]any{"status": previous},
			After:       map[string]any{"status": status},
		})
	})
	return t, err
}

// SetStatus sipariş ve ödeme akışlarının masa durumunu aynı transaction
// içinde değiştirmesi için kullanılır
func SetStatus(tx *gorm.DB, t *models.Table, status models.TableStatus) error {
	t.Status = status
	return tx.Model(t).Update("status", status).Error
}

// SetStatusByID masa kaydı elde yokken kullanılır
func SetStatusByID(tx *gorm.DB, tableID uint, status models.TableStatus) error {
	res := tx.Model(&models.Table{}).Where("id = ?", tableID).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Masa bulunamadı")
	}
	return nil
}
