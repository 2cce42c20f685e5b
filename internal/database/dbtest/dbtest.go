// Package dbtest testler için bellek içi SQLite veritabanı kurar.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"restoran-pos/internal/database"
	"restoran-pos/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seq atomic.Int64

// New her test için ayrı bir bellek içi veritabanı açar, migrate eder ve
// database.DB'ye atar. Test bitince eski değer geri yüklenir.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:pos_test_%d?mode=memory&cache=shared", seq.Add(1))
	db, err := database.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("sqlite açılamadı: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB alınamadı: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		_ = sqlDB.Close()
	})
	return db
}

func User(t testing.TB, db *gorm.DB, username string, role models.UserRole) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := models.User{
		Username:     username,
		Name:         username,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("kullanıcı oluşturulamadı: %v", err)
	}
	return u
}

func Table(t testing.TB, db *gorm.DB, number int) models.Table {
	t.Helper()
	tbl := models.Table{Number: number, Capacity: 4, Location: "Salon", Status: models.TableAvailable}
	if err := db.Create(&tbl).Error; err != nil {
		t.Fatalf("masa oluşturulamadı: %v", err)
	}
	return tbl
}

func Category(t testing.TB, db *gorm.DB, name string) models.Category {
	t.Helper()
	cat := models.Category{Name: name, Active: true}
	if err := db.Create(&cat).Error; err != nil {
		t.Fatalf("kategori oluşturulamadı: %v", err)
	}
	return cat
}

func Product(t testing.TB, db *gorm.DB, categoryID uint, name, price string, stock int) models.Product {
	t.Helper()
	p := models.Product{
		Name:             name,
		CategoryID:       categoryID,
		Price:            decimal.RequireFromString(price),
		Stock:            stock,
		ReorderThreshold: models.DefaultReorderThreshold,
		Available:        true,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("ürün oluşturulamadı: %v", err)
	}
	return p
}
