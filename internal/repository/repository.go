package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound       = errors.New("credit account not found")
	ErrStockItemNotFound     = errors.New("stock item not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrMenuNotFound          = errors.New("menu not found")
	ErrReservationNotFound   = errors.New("reservation not found")
	ErrWaitlistEntryNotFound = errors.New("waitlist entry not found")
	ErrPaymentNotFound       = errors.New("payment not found")

	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrCapacityExceeded   = errors.New("menu capacity exceeded")
	ErrOrderStatusInvalid = errors.New("order status transition not allowed")
	ErrOptimisticLock     = errors.New("concurrent update conflict, retry")
	ErrDuplicateMenuDate  = errors.New("menu already exists for that date")
)

// forUpdate applies a row lock on dialects that support it. SQLite (used by
// the test suite) has no FOR UPDATE; there the single write connection
// serializes transactions instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
