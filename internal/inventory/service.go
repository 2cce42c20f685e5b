// Package inventory kategori ve ürün kaydını, stok düzeltmelerini yönetir.
package inventory

import (
	"errors"
	"fmt"
	"strings"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StockDirection string

const (
	StockIncrease StockDirection = "increase"
	StockDecrease StockDirection = "decrease"
)

type CategoryInput struct {
	Name        string
	Description string
	Active      bool
}

type UpdateCategoryInput struct {
	Name        *string
	Description *string
	Active      *bool
}

type CategoryWithCount struct {
	models.Category
	ProductCount int64
}

type ProductInput struct {
	Name             string
	Description      string
	CategoryID       uint
	Price            decimal.Decimal
	Stock            int
	ReorderThreshold *int
	Available        *bool
}

type UpdateProductInput struct {
	Name             *string
	Description      *string
	CategoryID       *uint
	Price            *decimal.Decimal
	ReorderThreshold *int
	Available        *bool
}

type ProductFilter struct {
	Search     string
	CategoryID uint
	Available  *bool
	LowStock   bool
}

// ---- Kategoriler ----

func ListCategories(db *gorm.DB, onlyActive bool) ([]CategoryWithCount, error) {
	q := db.Model(&models.Category{})
	if onlyActive {
		q = q.Where("active = ?", true)
	}

	var cats []models.Category
	if err := q.Order("name asc").Find(&cats).Error; err != nil {
		return nil, err
	}

	type countRow struct {
		CategoryID uint
		Count      int64
	}
	var rows []countRow
	if err := db.Model(&models.Product{}).
		Select("category_id, COUNT(*) AS count").
		Group("category_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.CategoryID] = r.Count
	}

	res := make([]CategoryWithCount, 0, len(cats))
	for _, c := range cats {
		res = append(res, CategoryWithCount{Category: c, ProductCount: counts[c.ID]})
	}
	return res, nil
}

func nameTaken(tx *gorm.DB, name string, exceptID uint) (bool, error) {
	var count int64
	q := tx.Model(&models.Category{}).Where("LOWER(name) = LOWER(?)", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func CreateCategory(db *gorm.DB, actor auth.Actor, in CategoryInput) (models.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return models.Category{}, apperr.Validation("Kategori adı zorunlu")
	}

	cat := models.Category{
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Active:      in.Active,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		taken, err := nameTaken(tx, in.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("%q kategorisi zaten var", in.Name)
		}
		if err := tx.Create(&cat).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("%q kategorisi zaten var", in.Name)
			}
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "category",
			EntityID:    cat.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Kategori oluşturuldu: %s", cat.Name),
			After:       cat,
		})
	})
	return cat, err
}

func UpdateCategory(db *gorm.DB, actor auth.Actor, id uint, in UpdateCategoryInput) (models.Category, error) {
	var cat models.Category
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&cat, "id = ?", id).Error; err != nil {
			return apperr.NotFoundOr(err, "Kategori bulunamadı")
		}
		before := cat

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperr.Validation("Kategori adı boş olamaz")
			}
			taken, err := nameTaken(tx, name, cat.ID)
			if err != nil {
				return err
			}
			if taken {
				return apperr.Conflict("%q kategorisi zaten var", name)
			}
			cat.Name = name
		}
		if in.Description != nil {
			cat.Description = strings.TrimSpace(*in.Description)
		}
		if in.Active != nil {
			cat.Active = *in.Active
		}

		if err := tx.Save(&cat).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "category",
			EntityID:    cat.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Kategori güncellendi: %s", cat.Name),
			Before:      before,
			After:       cat,
		})
	})
	return cat, err
}

// DeleteCategory: ürünü olan kategori silinemez
func DeleteCategory(db *gorm.DB, actor auth.Actor, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var cat models.Category
		if err := tx.First(&cat, "id = ?", id).Error; err != nil {
			return apperr.NotFoundOr(err, "Kategori bulunamadı")
		}

		var count int64
		if err := tx.Model(&models.Product{}).Where("category_id = ?", cat.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &apperr.Error{
				Kind:    apperr.KindConflict,
				Message: fmt.Sprintf("%s kategorisinde %d ürün var, silinemez", cat.Name, count),
				Count:   count,
			}
		}

		if err := tx.Delete(&cat).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "category",
			EntityID:    cat.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Kategori silindi: %s", cat.Name),
			Before:      cat,
		})
	})
}

// ---- Ürünler ----

func ListProducts(db *gorm.DB, f ProductFilter) ([]models.Product, error) {
	q := db.Model(&models.Product{}).Preload("Category")
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.Available != nil {
		q = q.Where("available = ?", *f.Available)
	}
	if f.LowStock {
		q = q.Where("stock <= reorder_threshold")
	}

	var products []models.Product
	if err := q.Order("name asc").Find(&products).Error; err != nil {
		return nil, err
	}
	return filterBySearch(products, f.Search), nil
}

func GetProduct(db *gorm.DB, id uint) (models.Product, error) {
	var p models.Product
	if err := db.Preload("Category").First(&p, "id = ?", id).Error; err != nil {
		return p, apperr.NotFoundOr(err, "Ürün bulunamadı")
	}
	return p, nil
}

// LowStock: stoğu eşik değerine inmiş ürünler, en az stoklu önce
func LowStock(db *gorm.DB) ([]models.Product, error) {
	var products []models.Product
	err := db.Preload("Category").
		Where("stock <= reorder_threshold").
		Order("stock asc, name asc").
		Find(&products).Error
	return products, err
}

// ProductsByCategory: garson ekranı için kategorideki satıştaki ürünler
func ProductsByCategory(db *gorm.DB, categoryID uint) ([]models.Product, error) {
	var cat models.Category
	if err := db.First(&cat, "id = ?", categoryID).Error; err != nil {
		return nil, apperr.NotFoundOr(err, "Kategori bulunamadı")
	}

	var products []models.Product
	err := db.Where("category_id = ? AND available = ?", categoryID, true).
		Order("name asc").
		Find(&products).Error
	return products, err
}

func validateProduct(p models.Product) error {
	if p.Name == "" {
		return apperr.Validation("Ürün adı zorunlu")
	}
	if p.CategoryID == 0 {
		return apperr.Validation("Kategori zorunlu")
	}
	if !p.Price.IsPositive() {
		return apperr.Validation("Fiyat sıfırdan büyük olmalı")
	}
	if p.Stock < 0 {
		return apperr.Validation("Stok negatif olamaz")
	}
	if p.ReorderThreshold < 0 {
		return apperr.Validation("Kritik stok eşiği negatif olamaz")
	}
	return nil
}

func ensureCategory(tx *gorm.DB, id uint) error {
	var cat models.Category
	if err := tx.First(&cat, "id = ?", id).Error; err != nil {
		return apperr.NotFoundOr(err, "Kategori bulunamadı")
	}
	return nil
}

func CreateProduct(db *gorm.DB, actor auth.Actor, in ProductInput) (models.Product, error) {
	p := models.Product{
		Name:             strings.TrimSpace(in.Name),
		Description:      strings.TrimSpace(in.Description),
		CategoryID:       in.CategoryID,
		Price:            in.Price.Round(2),
		Stock:            in.Stock,
		ReorderThreshold: models.DefaultReorderThreshold,
		Available:        true,
	}
	if in.ReorderThreshold != nil {
		p.ReorderThreshold = *in.ReorderThreshold
	}
	if in.Available != nil {
		p.Available = *in.Available
	}
	if err := validateProduct(p); err != nil {
		return models.Product{}, err
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := ensureCategory(tx, p.CategoryID); err != nil {
			return err
		}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Ürün oluşturuldu: %s (%s)", p.Name, p.Price.StringFixed(2)),
			After:       p,
		})
	})
	if err != nil {
		return models.Product{}, err
	}
	return GetProduct(db, p.ID)
}

// UpdateProduct stok değiştirmez, stok sadece AdjustStock ve komandalarla değişir
func UpdateProduct(db *gorm.DB, actor auth.Actor, id uint, in UpdateProductInput) (models.Product, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			return apperr.NotFoundOr(err, "Ürün bulunamadı")
		}
		before := p

		if in.Name != nil {
			p.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			p.Description = strings.TrimSpace(*in.Description)
		}
		if in.CategoryID != nil {
			if err := ensureCategory(tx, *in.CategoryID); err != nil {
				return err
			}
			p.CategoryID = *in.CategoryID
		}
		if in.Price != nil {
			p.Price = in.Price.Round(2)
		}
		if in.ReorderThreshold != nil {
			p.ReorderThreshold = *in.ReorderThreshold
		}
		if in.Available != nil {
			p.Available = *in.Available
		}
		if err := validateProduct(p); err != nil {
			return err
		}

		if err := tx.Omit("Category").Save(&p).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Ürün güncellendi: %s", p.Name),
			Before:      before,
			After:       p,
		})
	})
	if err != nil {
		return models.Product{}, err
	}
	return GetProduct(db, id)
}

// DeleteProduct: komanda kalemlerinde geçen ürün silinemez, pasife alınmalı
func DeleteProduct(db *gorm.DB, actor auth.Actor, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			return apperr.NotFoundOr(err, "Ürün bulunamadı")
		}

		var used int64
		if err := tx.Model(&models.OrderItem{}).Where("product_id = ?", p.ID).Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return &apperr.Error{
				Kind:    apperr.KindConflict,
				Message: fmt.Sprintf("%s komandalarda kullanılmış, silmek yerine satışa kapatın", p.Name),
				Count:   used,
			}
		}

		if err := tx.Delete(&p).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Ürün silindi: %s", p.Name),
			Before:      p,
		})
	})
}

// AdjustStock: manuel stok düzeltmesi. Azaltma stoğu negatife düşüremez.
func AdjustStock(db *gorm.DB, actor auth.Actor, id uint, direction StockDirection, quantity int, reason string) (models.Product, error) {
	if quantity <= 0 {
		return models.Product{}, apperr.Validation("Miktar pozitif olmalı")
	}

	var delta int
	switch direction {
	case StockIncrease:
		delta = quantity
	case StockDecrease:
		delta = -quantity
	default:
		return models.Product{}, apperr.Validation("Geçersiz yön: %s (increase|decrease)", direction)
	}

	var p models.Product
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			return apperr.NotFoundOr(err, "Ürün bulunamadı")
		}
		previous := p.Stock

		if previous+delta < 0 {
			return apperr.Conflict("%s için stok yetersiz (mevcut: %d, düşülmek istenen: %d)", p.Name, previous, quantity)
		}

		res := tx.Model(&models.Product{}).
			Where("id = ? AND stock + ? >= 0", p.ID, delta).
			Update("stock", gorm.Expr("stock + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("%s için stok yetersiz", p.Name)
		}

		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			return err
		}

		desc := fmt.Sprintf("%s stok %s: %d -> %d", p.Name, direction, previous, p.Stock)
		if reason = strings.TrimSpace(reason); reason != "" {
			desc += " (" + reason + ")"
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: desc,
			Before:      map[string]any{"stock": previous},
			After:       map[string]any{"stock": p.Stock},
		})
	})
	return p, err
}
