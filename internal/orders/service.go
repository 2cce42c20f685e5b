package orders

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/models"
	"restoran-pos/internal/tables"

	"gorm.io/gorm"
)

// waiterHistoryLimit: garsonun listesinde gösterilen son komanda sayısı
const waiterHistoryLimit = 50

type ListFilter struct {
	Status   models.OrderStatus
	Page     int
	PageSize int
}

type ListResult struct {
	Orders []models.Order
	Total  int64
	Page   int
	Pages  int
}

func loadOrder(tx *gorm.DB, id uint) (models.Order, error) {
	var o models.Order
	err := tx.
		Preload("Table").
		Preload("Waiter").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Product").
		Preload("Payment").
		First(&o, "id = ?", id).Error
	if err != nil {
		return o, apperr.NotFoundOr(err, "Komanda bulunamadı")
	}
	return o, nil
}

// ensureCanEdit: garson yalnızca kendi komandasını değiştirebilir
func ensureCanEdit(actor auth.Actor, o models.Order) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleWaiter:
		if o.WaiterID != actor.UserID {
			return apperr.Forbidden("Bu komanda size ait değil")
		}
		return nil
	case models.RoleKitchen, models.RoleCashier:
		return apperr.Forbidden("Komandayı düzenleme yetkiniz yok")
	}
	return apperr.Forbidden("Komandayı düzenleme yetkiniz yok")
}

func ensureEditable(o models.Order) error {
	if o.Status.Terminal() {
		return apperr.Conflict("Komanda %s durumunda, düzenlenemez", o.Status)
	}
	return nil
}

// recomputeTotal: toplam, kalan kalemlerin quantity * unit_price toplamıdır
func recomputeTotal(tx *gorm.DB, orderID uint) error {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return err
	}
	return tx.Model(&models.Order{ID: orderID}).Update("total", models.SumItems(items)).Error
}

func Get(db *gorm.DB, id uint) (models.Order, error) {
	return loadOrder(db, id)
}

// GetFor: garson yalnızca kendi komandasını görür, diğer roller hepsini
func GetFor(db *gorm.DB, actor auth.Actor, id uint) (models.Order, error) {
	o, err := loadOrder(db, id)
	if err != nil {
		return o, err
	}
	if actor.Role == models.RoleWaiter && o.WaiterID != actor.UserID {
		return models.Order{}, apperr.Forbidden("Bu komanda size ait değil")
	}
	return o, nil
}

// List: rol bazlı komanda listesi.
// kitchen: bekleyen ve hazırlanan komandalar, eskiden yeniye.
// waiter: kendi son komandaları. admin/cashier: sayfalı, durum filtreli.
func List(db *gorm.DB, actor auth.Actor, f ListFilter) (ListResult, error) {
	var res ListResult

	q := db.Model(&models.Order{}).Preload("Table").Preload("Waiter").Preload("Items")

	if f.Status != "" && !f.Status.Valid() {
		return res, apperr.Validation("Geçersiz komanda durumu: %s", f.Status)
	}

	switch actor.Role {
	case models.RoleKitchen:
		err := q.Where("status IN ?", []models.OrderStatus{models.OrderPending, models.OrderInPreparation}).
			Order("created_at asc, id asc").
			Find(&res.Orders).Error
		res.Total = int64(len(res.Orders))
		res.Page, res.Pages = 1, 1
		return res, err

	case models.RoleWaiter:
		q = q.Where("waiter_id = ?", actor.UserID)
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		err := q.Order("created_at desc, id desc").Limit(waiterHistoryLimit).Find(&res.Orders).Error
		res.Total = int64(len(res.Orders))
		res.Page, res.Pages = 1, 1
		return res, err

	case models.RoleAdmin, models.RoleCashier:
	default:
		return res, apperr.Forbidden("Komandaları görme yetkiniz yok")
	}

	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	filter := func(tx *gorm.DB) *gorm.DB {
		if f.Status != "" {
			return tx.Where("status = ?", f.Status)
		}
		return tx
	}

	if err := db.Model(&models.Order{}).Scopes(filter).Count(&res.Total).Error; err != nil {
		return res, err
	}
	err := q.Scopes(filter).
		Order("created_at desc, id desc").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&res.Orders).Error

	res.Page = f.Page
	res.Pages = int((res.Total + int64(f.PageSize) - 1) / int64(f.PageSize))
	return res, err
}

// KitchenActive: mutfak ekranı için bekleyen ve hazırlanan komandalar
func KitchenActive(db *gorm.DB) ([]models.Order, error) {
	var list []models.Order
	err := db.
		Preload("Table").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Product").
		Where("status IN ?", []models.OrderStatus{models.OrderPending, models.OrderInPreparation}).
		Order("created_at asc, id asc").
		Find(&list).Error
	return list, err
}

// Create: masaya yeni komanda açar. Masada açık komanda varsa conflict.
// Ön kontrol yarışa açık olduğu için asıl garanti kısmi unique index'tir.
func Create(db *gorm.DB, actor auth.Actor, tableID uint, notes string) (models.Order, error) {
	if !actor.Is(models.RoleAdmin, models.RoleWaiter) {
		return models.Order{}, apperr.Forbidden("Komanda açma yetkiniz yok")
	}

	var o models.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		var t models.Table
		if err := tx.First(&t, "id = ?", tableID).Error; err != nil {
			return apperr.NotFoundOr(err, "Masa bulunamadı")
		}

		active, err := tables.HasActiveOrder(tx, t.ID)
		if err != nil {
			return err
		}
		if active {
			return apperr.Conflict("Masa %d için zaten açık bir komanda var", t.Number)
		}

		o = models.Order{
			TableID:  t.ID,
			WaiterID: actor.UserID,
			Status:   models.OrderPending,
			Notes:    strings.TrimSpace(notes),
		}
		if err := tx.Create(&o).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("Masa %d için zaten açık bir komanda var", t.Number)
			}
			return err
		}

		if err := tables.SetStatus(tx, &t, models.TableOccupied); err != nil {
			return err
		}

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "order",
			EntityID:    o.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Masa %d için komanda #%d açıldı", t.Number, o.ID),
			After:       map[string]any{"table_id": t.ID, "status": o.Status},
		})
	})
	if err != nil {
		return models.Order{}, err
	}
	return loadOrder(db, o.ID)
}

// AddItem: ürün fiyatı ekleme anında kaleme kopyalanır, stok düşülür
func AddItem(db *gorm.DB, actor auth.Actor, orderID, productID uint, quantity int, notes string) (models.Order, error) {
	if quantity <= 0 {
		return models.Order{}, apperr.Validation("Adet pozitif olmalı")
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.First(&o, "id = ?", orderID).Error; err != nil {
			return apperr.NotFoundOr(err, "Komanda bulunamadı")
		}
		if err := ensureCanEdit(actor, o); err != nil {
			return err
		}
		if err := ensureEditable(o); err != nil {
			return err
		}

		var p models.Product
		if err := tx.First(&p, "id = ?", productID).Error; err != nil {
			return apperr.NotFoundOr(err, "Ürün bulunamadı")
		}
		if !p.Available {
			return apperr.Conflict("%s şu an satışta değil", p.Name)
		}

		// koşullu güncelleme: stok yetmiyorsa hiçbir satır etkilenmez
		res := tx.Model(&models.Product{}).
			Where("id = ? AND stock >= ?", p.ID, quantity).
			Update("stock", gorm.Expr("stock - ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("%s için yeterli stok yok (mevcut: %d)", p.Name, p.Stock)
		}

		item := models.OrderItem{
			OrderID:   o.ID,
			ProductID: p.ID,
			Quantity:  quantity,
			UnitPrice: p.Price,
			Notes:     strings.TrimSpace(notes),
		}
		item.CalculateSubtotal()
		if err := tx.Create(&item).Error; err != nil {
			return err
		}

		if err := recomputeTotal(tx, o.ID); err != nil {
			return err
		}

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "order",
			EntityID:    o.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Komanda #%d: %d x %s eklendi", o.ID, quantity, p.Name),
			After: map[string]any{
				"item_id":    item.ID,
				"product_id": p.ID,
				"quantity":   quantity,
				"unit_price": p.Price.StringFixed(2),
			},
		})
	})
	if err != nil {
		return models.Order{}, err
	}
	return loadOrder(db, orderID)
}

// RemoveItem: kalemi siler, adedini stoğa geri ekler ve toplamı yeniden hesaplar
func RemoveItem(db *gorm.DB, actor auth.Actor, itemID uint) (models.Order, error) {
	var orderID uint
	err := db.Transaction(func(tx *gorm.DB) error {
		var item models.OrderItem
		if err := tx.Preload("Product").First(&item, "id = ?", itemID).Error; err != nil {
			return apperr.NotFoundOr(err, "Komanda kalemi bulunamadı")
		}
		orderID = item.OrderID

		var o models.Order
		if err := tx.First(&o, "id = ?", item.OrderID).Error; err != nil {
			return apperr.NotFoundOr(err, "Komanda bulunamadı")
		}
		if err := ensureCanEdit(actor, o); err != nil {
			return err
		}
		if err := ensureEditable(o); err != nil {
			return err
		}

		if err := tx.Delete(&item).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Product{}).
			Where("id = ?", item.ProductID).
			Update("stock", gorm.Expr("stock + ?", item.Quantity)).Error; err != nil {
			return err
		}
		if err := recomputeTotal(tx, o.ID); err != nil {
			return err
		}

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "order",
			EntityID:    o.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Komanda #%d: %d x %s çıkarıldı", o.ID, item.Quantity, item.Product.Name),
			Before: map[string]any{
				"item_id":    item.ID,
				"product_id": item.ProductID,
				"quantity":   item.Quantity,
				"unit_price": item.UnitPrice.StringFixed(2),
			},
		})
	})
	if err != nil {
		return models.Order{}, err
	}
	return loadOrder(db, orderID)
}

// ChangeStatus: hedef durum geçerli mi, rolün yetkisi var mı, geçiş tabloda
// var mı sırasıyla kontrol edilir. delivered/cancelled masayı temizliğe alır.
func ChangeStatus(db *gorm.DB, actor auth.Actor, orderID uint, target models.OrderStatus) (models.Order, error) {
	if !target.Valid() {
		return models.Order{}, apperr.Validation("Geçersiz komanda durumu: %s", target)
	}
	if !RoleMayTarget(actor.Role, target) {
		return models.Order{}, apperr.Forbidden("%s rolü komandayı %s durumuna alamaz", actor.Role, target)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.First(&o, "id = ?", orderID).Error; err != nil {
			return apperr.NotFoundOr(err, "Komanda bulunamadı")
		}
		if actor.Role == models.RoleWaiter && o.WaiterID != actor.UserID {
			return apperr.Forbidden("Bu komanda size ait değil")
		}
		if !CanTransition(o.Status, target) {
			return apperr.Conflict("Komanda %s durumundan %s durumuna geçemez", o.Status, target)
		}

		// durum okunduktan sonra değiştiyse hiçbir satır etkilenmez
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", o.ID, o.Status).
			Updates(map[string]any{"status": target, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("Komanda başka bir işlemle güncellendi, tekrar deneyin")
		}

		if target.Terminal() {
			if err := tables.SetStatusByID(tx, o.TableID, models.TableCleaning); err != nil {
				return err
			}
		}

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "order",
			EntityID:    o.ID,
			Action:      models.AuditActionStatus,
			Description: fmt.Sprintf("Komanda #%d: %s -> %s", o.ID, o.Status, target),
			Before:      map[string]any{"status": o.Status},
			After:       map[string]any{"status": target},
		})
	})
	if err != nil {
		return models.Order{}, err
	}
	return loadOrder(db, orderID)
}

// Cancel: teslim edilmiş ya da zaten iptal edilmiş komanda iptal edilemez.
// Eklenen kalemlerin stoğu geri alınmaz.
func Cancel(db *gorm.DB, actor auth.Actor, orderID uint) (models.Order, error) {
	o, err := loadOrder(db, orderID)
	if err != nil {
		return o, err
	}
	if o.Status.Terminal() {
		return o, apperr.Conflict("Komanda zaten %s durumunda", o.Status)
	}
	return ChangeStatus(db, actor, orderID, models.OrderCancelled)
}
