package repository

import (
	"context"
	"errors"

	"cantina/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetByUserIDForUpdate locks the account row for the duration of tx. Every
// balance mutation goes through this lock so concurrent charges against the
// same credit limit cannot both pass the availability check.
func (r *AccountRepository) GetByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Account, error) {
	var account model.Account
	err := forUpdate(tx.WithContext(ctx)).
		Where("user_id = ?", userID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// SetBalance writes a new balance guarded by the optimistic version read
// under the row lock. RowsAffected == 0 means someone slipped in between;
// the whole transaction must be retried.
func (r *AccountRepository) SetBalance(ctx context.Context, tx *gorm.DB, userID int64, newBalanceCents int64, version int) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("user_id = ? AND version = ?", userID, version).
		Updates(map[string]interface{}{
			"current_balance_cents": newBalanceCents,
			"version":               gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOptimisticLock
	}
	return nil
}

// UpdateCreditTerms changes has_credit_account / credit_limit / status.
// Callers hold the row lock; balance is never touched here.
func (r *AccountRepository) UpdateCreditTerms(ctx context.Context, tx *gorm.DB, userID int64, fields map[string]interface{}) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("user_id = ?", userID).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) GetOrCreate(ctx context.Context, userID int64) (*model.Account, error) {
	account, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	newAccount := &model.Account{
		UserID: userID,
		Status: model.AccountStatusActive,
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(newAccount).Error
	if err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, userID)
}

// ListDebtors returns accounts with outstanding debt, largest first, with an
// optional floor on the debt amount.
func (r *AccountRepository) ListDebtors(ctx context.Context, minDebtCents int64) ([]*model.Account, error) {
	var accounts []*model.Account
	err := r.db.WithContext(ctx).
		Where("has_credit_account = ? AND current_balance_cents > ?", true, minDebtCents).
		Order("current_balance_cents DESC").
		Find(&accounts).Error
	return accounts, err
}
