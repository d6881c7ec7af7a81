package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"cantina/internal/config"
	"cantina/internal/infrastructure/lock"
	"cantina/internal/model"
	"cantina/internal/repository"
	"cantina/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// CreditService owns every mutation of the credit ledger outside order
// commit: payments, manual adjustments, and account administration.
type CreditService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	accountRepo *repository.AccountRepository
	ledgerRepo  *repository.LedgerRepository
	orderRepo   *repository.OrderRepository
	outboxRepo  *repository.OutboxRepository
}

func NewCreditService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *CreditService {
	return &CreditService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		accountRepo: repository.NewAccountRepository(db),
		ledgerRepo:  repository.NewLedgerRepository(db),
		orderRepo:   repository.NewOrderRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

// CreditAvailability is the advisory answer to "can this user place a
// credit order of this size right now".
type CreditAvailability struct {
	CanOrder             bool    `json:"can_order"`
	Reason               string  `json:"reason,omitempty"`
	CreditLimitCents     int64   `json:"credit_limit_cents"`
	CurrentBalanceCents  int64   `json:"current_balance_cents"`
	AvailableCreditCents int64   `json:"available_credit_cents"`
	UsageFraction        float64 `json:"usage_fraction"`
}

// CheckAvailability is a pure read. Beyond the raw limit check it applies
// the configured block threshold: once usage reaches the threshold fraction
// of the limit, new credit orders are refused even if nominally affordable.
// The threshold does not apply to CommitOrder's hard check; it is a softer
// front-door policy.
func (s *CreditService) CheckAvailability(ctx context.Context, userID int64, amountCents int64) (*CreditAvailability, error) {
	if amountCents <= 0 {
		return nil, validationErrorf("amount must be positive")
	}

	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &CreditAvailability{
		CreditLimitCents:     account.CreditLimitCents,
		CurrentBalanceCents:  account.CurrentBalanceCents,
		AvailableCreditCents: account.AvailableCreditCents(),
		UsageFraction:        account.UsageFraction(),
	}

	switch {
	case !account.HasCreditAccount:
		result.Reason = "credit account not enabled"
	case account.Status != model.AccountStatusActive:
		result.Reason = fmt.Sprintf("account is %s", account.Status)
	case amountCents > account.AvailableCreditCents():
		result.Reason = "amount exceeds available credit"
	case account.UsageFraction() >= s.cfg.Business.CreditBlockThreshold:
		result.Reason = "credit usage above block threshold"
	default:
		result.CanOrder = true
	}
	return result, nil
}

type PaymentRequest struct {
	UserID      int64
	AmountCents int64
	Method      string
	OrderNo     string
	Notes       string
	RecordedBy  int64
}

// RegisterPayment settles part or all of a user's debt, atomically:
// balance decrement, ledger entry, optional order paid-amount update and
// the payment row commit or roll back together. A per-user Redis lock keeps
// a double-submitted payment from racing itself ahead of the row lock.
func (s *CreditService) RegisterPayment(ctx context.Context, req *PaymentRequest) (*model.Payment, error) {
	if req.AmountCents <= 0 {
		return nil, validationErrorf("payment amount must be positive")
	}
	if !model.ValidPaymentMethod(req.Method) {
		return nil, validationErrorf("unknown payment method %q", req.Method)
	}

	paymentNo := idgen.GeneratePaymentNo()

	if s.redisClient != nil {
		creditLock := lock.NewCreditLock(s.redisClient, req.UserID, paymentNo)
		if err := creditLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return nil, fmt.Errorf("acquire credit lock: %w", err)
		}
		defer creditLock.Unlock(ctx)
	}

	var payment *model.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Payments are accepted even on disabled accounts: disabling stops
		// new charges, not the settling of existing debt.
		account, err := s.accountRepo.GetByUserIDForUpdate(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if req.AmountCents > account.CurrentBalanceCents {
			return fmt.Errorf("%w: debt is %d, payment is %d",
				ErrAmountExceedsDebt, account.CurrentBalanceCents, req.AmountCents)
		}

		if req.OrderNo != "" {
			order, err := s.orderRepo.GetByOrderNoForUpdate(ctx, tx, req.OrderNo)
			if err != nil {
				return err
			}
			if !order.IsCreditOrder || order.UserID != req.UserID {
				return validationErrorf("order %s is not a credit order of user %d", req.OrderNo, req.UserID)
			}
			remaining := order.RemainingCreditCents()
			if req.AmountCents > remaining {
				return validationErrorf("payment %d exceeds order remainder %d", req.AmountCents, remaining)
			}
			newStatus := model.PaymentStatusPartial
			if order.CreditPaidAmountCents+req.AmountCents >= order.TotalAmountCents {
				newStatus = model.PaymentStatusPaid
			}
			if err := s.orderRepo.ApplyCreditPayment(ctx, tx, req.OrderNo, req.AmountCents, newStatus); err != nil {
				return fmt.Errorf("apply payment to order: %w", err)
			}
		}

		newBalance := account.CurrentBalanceCents - req.AmountCents
		if err := s.accountRepo.SetBalance(ctx, tx, req.UserID, newBalance, account.Version); err != nil {
			return fmt.Errorf("lower balance: %w", err)
		}

		entry := &model.LedgerEntry{
			EntryNo:            idgen.GenerateEntryNo(),
			UserID:             req.UserID,
			Type:               model.LedgerTypePayment,
			AmountCents:        -req.AmountCents,
			BalanceBeforeCents: account.CurrentBalanceCents,
			BalanceAfterCents:  newBalance,
			RelatedOrderNo:     req.OrderNo,
			RelatedPaymentNo:   paymentNo,
			Description:        fmt.Sprintf("payment %s via %s", paymentNo, req.Method),
			PerformedBy:        req.RecordedBy,
		}
		if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}

		payment = &model.Payment{
			PaymentNo:          paymentNo,
			UserID:             req.UserID,
			OrderNo:            req.OrderNo,
			AmountCents:        req.AmountCents,
			Method:             req.Method,
			BalanceBeforeCents: account.CurrentBalanceCents,
			BalanceAfterCents:  newBalance,
			Notes:              req.Notes,
			RecordedBy:         req.RecordedBy,
		}
		if err := s.ledgerRepo.CreatePayment(ctx, tx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		return s.outboxRepo.AppendEvent(ctx, tx, s.cfg.Kafka.Topic.Notifications,
			model.EventPaymentRegistered, paymentNo,
			map[string]interface{}{
				"payment_no":   paymentNo,
				"user_id":      req.UserID,
				"amount_cents": req.AmountCents,
				"method":       req.Method,
				"order_no":     req.OrderNo,
			})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[CreditService] payment registered: paymentNo=%s, userID=%d, amount=%d",
		paymentNo, req.UserID, req.AmountCents)
	return payment, nil
}

// AdjustmentResult reports the balance movement of a manual adjustment.
type AdjustmentResult struct {
	EntryNo            string `json:"entry_no"`
	BalanceBeforeCents int64  `json:"balance_before_cents"`
	BalanceAfterCents  int64  `json:"balance_after_cents"`
}

// AdjustDebt applies a signed manual correction to the balance. The lower
// bound (balance >= 0) is enforced; the upper bound against the credit limit
// deliberately is not. An administrator may push a balance past the limit,
// which ordinary charges can never do.
func (s *CreditService) AdjustDebt(ctx context.Context, userID int64, amountCents int64, reason string, performedBy int64) (*AdjustmentResult, error) {
	if amountCents == 0 {
		return nil, validationErrorf("adjustment amount must be non-zero")
	}
	if reason == "" {
		return nil, validationErrorf("adjustment reason is required")
	}

	var result *AdjustmentResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.GetByUserIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !account.HasCreditAccount {
			return ErrNoCreditAccount
		}

		newBalance := account.CurrentBalanceCents + amountCents
		if newBalance < 0 {
			return fmt.Errorf("%w: balance %d, adjustment %d",
				ErrNegativeBalance, account.CurrentBalanceCents, amountCents)
		}
		if err := s.accountRepo.SetBalance(ctx, tx, userID, newBalance, account.Version); err != nil {
			return fmt.Errorf("adjust balance: %w", err)
		}

		entry := &model.LedgerEntry{
			EntryNo:            idgen.GenerateEntryNo(),
			UserID:             userID,
			Type:               model.LedgerTypeAdjustment,
			AmountCents:        amountCents,
			BalanceBeforeCents: account.CurrentBalanceCents,
			BalanceAfterCents:  newBalance,
			Description:        reason,
			PerformedBy:        performedBy,
		}
		if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}

		result = &AdjustmentResult{
			EntryNo:            entry.EntryNo,
			BalanceBeforeCents: account.CurrentBalanceCents,
			BalanceAfterCents:  newBalance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[CreditService] debt adjusted: userID=%d, amount=%d, by=%d", userID, amountCents, performedBy)
	return result, nil
}

// EnableCreditAccount activates fiado for a user, creating the account row
// if it does not exist. limitCents 0 means the configured default.
func (s *CreditService) EnableCreditAccount(ctx context.Context, userID int64, limitCents int64) (*model.Account, error) {
	if limitCents == 0 {
		limitCents = s.cfg.Business.DefaultCreditLimitCents
	}
	if limitCents < 0 || limitCents > s.cfg.Business.MaxCreditLimitCents {
		return nil, validationErrorf("credit limit must be within (0, %d]", s.cfg.Business.MaxCreditLimitCents)
	}

	if _, err := s.accountRepo.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.accountRepo.GetByUserIDForUpdate(ctx, tx, userID); err != nil {
			return err
		}
		return s.accountRepo.UpdateCreditTerms(ctx, tx, userID, map[string]interface{}{
			"has_credit_account": true,
			"credit_limit_cents": limitCents,
			"status":             model.AccountStatusActive,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.accountRepo.GetByUserID(ctx, userID)
}

// DisableCreditAccount turns fiado off. The debt, if any, stays on the books
// and can still be paid down.
func (s *CreditService) DisableCreditAccount(ctx context.Context, userID int64) (*model.Account, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.accountRepo.GetByUserIDForUpdate(ctx, tx, userID); err != nil {
			return err
		}
		return s.accountRepo.UpdateCreditTerms(ctx, tx, userID, map[string]interface{}{
			"has_credit_account": false,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.accountRepo.GetByUserID(ctx, userID)
}

// UpdateCreditLimit changes the limit within configured bounds. Lowering
// below the current balance is refused: it would instantly break the
// balance <= limit invariant.
func (s *CreditService) UpdateCreditLimit(ctx context.Context, userID int64, newLimitCents int64) (*model.Account, error) {
	if newLimitCents <= 0 || newLimitCents > s.cfg.Business.MaxCreditLimitCents {
		return nil, validationErrorf("credit limit must be within (0, %d]", s.cfg.Business.MaxCreditLimitCents)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.GetByUserIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !account.HasCreditAccount {
			return ErrNoCreditAccount
		}
		if newLimitCents < account.CurrentBalanceCents {
			return validationErrorf("new limit %d is below current balance %d", newLimitCents, account.CurrentBalanceCents)
		}
		return s.accountRepo.UpdateCreditTerms(ctx, tx, userID, map[string]interface{}{
			"credit_limit_cents": newLimitCents,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.accountRepo.GetByUserID(ctx, userID)
}

// SetAccountStatus suspends or reactivates an account.
func (s *CreditService) SetAccountStatus(ctx context.Context, userID int64, status string) (*model.Account, error) {
	if !model.ValidAccountStatus(status) {
		return nil, validationErrorf("unknown account status %q", status)
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.accountRepo.GetByUserIDForUpdate(ctx, tx, userID); err != nil {
			return err
		}
		return s.accountRepo.UpdateCreditTerms(ctx, tx, userID, map[string]interface{}{
			"status": status,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.accountRepo.GetByUserID(ctx, userID)
}

// AccountStatement bundles the account view for "my account" screens.
type AccountStatement struct {
	Account       *model.Account       `json:"account"`
	PendingOrders []*model.Order       `json:"pending_orders"`
	RecentEntries []*model.LedgerEntry `json:"recent_entries"`
}

func (s *CreditService) Statement(ctx context.Context, userID int64) (*AccountStatement, error) {
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !account.HasCreditAccount {
		return nil, ErrNoCreditAccount
	}
	pendingOrders, err := s.orderRepo.ListPendingCreditByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledgerRepo.ListByUserID(ctx, userID, 10)
	if err != nil {
		return nil, err
	}
	return &AccountStatement{
		Account:       account,
		PendingOrders: pendingOrders,
		RecentEntries: entries,
	}, nil
}

func (s *CreditService) ListPayments(ctx context.Context, userID int64, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.ledgerRepo.ListPaymentsByUserID(ctx, userID, limit)
}

func (s *CreditService) LedgerHistory(ctx context.Context, userID int64, limit int) ([]*model.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.ledgerRepo.ListByUserID(ctx, userID, limit)
}
