package database

import (
	"fmt"
	"log"
	"time"

	"cantina/internal/config"
	"cantina/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitMySQL(cfg *config.MySQLConfig) *gorm.DB {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("connect MySQL: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("get underlying DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	DB = db
	log.Println("MySQL connected")
	return db
}

// Migrate creates or updates the schema. Shared with the test suite, which
// runs it against an in-memory SQLite database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Account{},
		&model.LedgerEntry{},
		&model.Payment{},
		&model.StockItem{},
		&model.InventoryMovement{},
		&model.Order{},
		&model.OrderItem{},
		&model.Menu{},
		&model.Reservation{},
		&model.WaitlistEntry{},
		&model.OutboxMessage{},
	)
}
