package database

import (
	"fmt"
	"log"

	"restoran-pos/internal/config"
	"restoran-pos/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	db, err := Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Veritabanına bağlanılamadı: %v", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatalf("Migration hatası: %v", err)
	}

	DB = db
	log.Println("Veritabanı bağlantısı başarılı. Migration tamamlandı.")
}

// Open: TranslateError açık, unique ihlalleri gorm.ErrDuplicatedKey olarak döner
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("desteklenmeyen veritabanı sürücüsü: %s", driver)
	}

	return gorm.Open(dialector, &gorm.Config{TranslateError: true})
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Table{},
		&models.Category{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Shift{},
		&models.Payment{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("AutoMigrate hatası: %w", err)
	}

	// Kısmi unique index'ler: ön kontrol yarışa açık, asıl garanti commit anında index'ten gelir.
	// Hem Postgres hem SQLite "CREATE UNIQUE INDEX ... WHERE" destekliyor.
	partialIndexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_active_table
			ON orders (table_id)
			WHERE status IN ('pending', 'in_preparation', 'ready')`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_shifts_open_user
			ON shifts (user_id)
			WHERE status = 'open'`,
	}
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("index oluşturulamadı: %w", err)
		}
	}

	return nil
}
