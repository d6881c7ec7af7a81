package repository

import (
	"context"
	"errors"
	"time"

	"cantina/internal/model"

	"gorm.io/gorm"
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append writes one ledger row. The ledger is append-only: there is no
// update or delete path anywhere in this repository.
func (r *LedgerRepository) Append(ctx context.Context, tx *gorm.DB, entry *model.LedgerEntry) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *LedgerRepository) GetByEntryNo(ctx context.Context, entryNo string) (*model.LedgerEntry, error) {
	var entry model.LedgerEntry
	err := r.db.WithContext(ctx).Where("entry_no = ?", entryNo).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *LedgerRepository) ListByUserID(ctx context.Context, userID int64, limit int) ([]*model.LedgerEntry, error) {
	var entries []*model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// ListByUserIDAsc returns the full chain oldest-first, for continuity audits.
func (r *LedgerRepository) ListByUserIDAsc(ctx context.Context, userID int64) ([]*model.LedgerEntry, error) {
	var entries []*model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *LedgerRepository) ListByOrderNo(ctx context.Context, orderNo string) ([]*model.LedgerEntry, error) {
	var entries []*model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("related_order_no = ?", orderNo).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *LedgerRepository) CreatePayment(ctx context.Context, tx *gorm.DB, payment *model.Payment) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(payment).Error
}

func (r *LedgerRepository) GetPaymentByNo(ctx context.Context, paymentNo string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).Where("payment_no = ?", paymentNo).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (r *LedgerRepository) ListPaymentsByUserID(ctx context.Context, userID int64, limit int) ([]*model.Payment, error) {
	var payments []*model.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

// MonthlySummary aggregates ledger activity for a calendar month.
type MonthlySummary struct {
	ChargedCents  int64 `json:"charged_cents"`
	PaidCents     int64 `json:"paid_cents"`
	AdjustedCents int64 `json:"adjusted_cents"`
	EntryCount    int64 `json:"entry_count"`
}

func (r *LedgerRepository) SummarizeMonth(ctx context.Context, year int, month time.Month) (*MonthlySummary, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var summary MonthlySummary
	err := r.db.WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Select(
			"COALESCE(SUM(CASE WHEN type = ? THEN amount_cents ELSE 0 END), 0) AS charged_cents, "+
				"COALESCE(SUM(CASE WHEN type = ? THEN -amount_cents ELSE 0 END), 0) AS paid_cents, "+
				"COALESCE(SUM(CASE WHEN type = ? THEN amount_cents ELSE 0 END), 0) AS adjusted_cents, "+
				"COUNT(*) AS entry_count",
			model.LedgerTypeCharge, model.LedgerTypePayment, model.LedgerTypeAdjustment,
		).
		Where("created_at >= ? AND created_at < ?", start, end).
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
