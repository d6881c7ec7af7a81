package service

import (
	"testing"
	"time"

	"cantina/internal/config"
	"cantina/internal/infrastructure/database"
	"cantina/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory SQLite database limited to one connection,
// so concurrent service calls serialize their transactions the way row
// locks serialize them on MySQL.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{Notifications: "test.notifications"},
		},
		Business: config.BusinessConfig{
			CreditBlockThreshold:     0.90,
			DefaultCreditLimitCents:  10000,
			MaxCreditLimitCents:      50000,
			ReservationDeadlineHours: 48,
			WaitlistNotifyTTLHours:   24,
			MaxRetryCount:            3,
		},
	}
}

func seedAccount(t *testing.T, db *gorm.DB, userID, limitCents, balanceCents int64) *model.Account {
	t.Helper()
	account := &model.Account{
		UserID:              userID,
		HasCreditAccount:    true,
		CreditLimitCents:    limitCents,
		CurrentBalanceCents: balanceCents,
		Status:              model.AccountStatusActive,
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func seedStockItem(t *testing.T, db *gorm.DB, name string, priceCents int64, quantity int) *model.StockItem {
	t.Helper()
	item := &model.StockItem{
		Name:           name,
		UnitPriceCents: priceCents,
		QuantityOnHand: quantity,
		MinThreshold:   2,
		Available:      true,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func seedMenu(t *testing.T, db *gorm.DB, maxReservations *int, current int) *model.Menu {
	t.Helper()
	menuDate := time.Now().AddDate(0, 0, 7).Truncate(24 * time.Hour)
	menu := &model.Menu{
		MenuDate:            menuDate,
		Description:         "menú del día",
		PriceCents:          1200,
		ReservationDeadline: menuDate.Add(-48 * time.Hour),
		MaxReservations:     maxReservations,
		CurrentReservations: current,
		Active:              true,
	}
	require.NoError(t, db.Create(menu).Error)
	return menu
}

func seedWaitlistEntry(t *testing.T, db *gorm.DB, menuID, userID int64, status string, createdAt time.Time) *model.WaitlistEntry {
	t.Helper()
	entry := &model.WaitlistEntry{
		MenuID:   menuID,
		UserID:   userID,
		Quantity: 1,
		Status:   status,
	}
	require.NoError(t, db.Create(entry).Error)
	// autoCreateTime stamps "now"; backdate explicitly so FIFO order is
	// unambiguous in assertions.
	require.NoError(t, db.Model(entry).Update("created_at", createdAt).Error)
	entry.CreatedAt = createdAt
	return entry
}

func loadAccount(t *testing.T, db *gorm.DB, userID int64) *model.Account {
	t.Helper()
	var account model.Account
	require.NoError(t, db.Where("user_id = ?", userID).First(&account).Error)
	return &account
}

func loadStockItem(t *testing.T, db *gorm.DB, id int64) *model.StockItem {
	t.Helper()
	var item model.StockItem
	require.NoError(t, db.Where("id = ?", id).First(&item).Error)
	return &item
}

func loadLedger(t *testing.T, db *gorm.DB, userID int64) []*model.LedgerEntry {
	t.Helper()
	var entries []*model.LedgerEntry
	require.NoError(t, db.Where("user_id = ?", userID).Order("id ASC").Find(&entries).Error)
	return entries
}

func countOutboxEvents(t *testing.T, db *gorm.DB, eventType string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&model.OutboxMessage{}).
		Where("event_type = ?", eventType).Count(&count).Error)
	return count
}
