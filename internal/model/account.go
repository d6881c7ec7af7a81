package model

import (
	"time"
)

const (
	AccountStatusActive    = "active"
	AccountStatusSuspended = "suspended"
	AccountStatusInactive  = "inactive"
)

// ValidAccountStatus reports whether s is a known account status.
// Unknown values are rejected at the boundary instead of being stored.
func ValidAccountStatus(s string) bool {
	switch s {
	case AccountStatusActive, AccountStatusSuspended, AccountStatusInactive:
		return true
	}
	return false
}

// Account is a user's store-credit ("fiado") account. CurrentBalanceCents is
// the outstanding debt and can never go negative; a mutation that would break
// that is rejected, never clamped. Charges additionally respect
// CurrentBalanceCents <= CreditLimitCents, while manual adjustments may push
// the balance past the limit. Mutated only by the ledger write paths.
type Account struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID              int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	HasCreditAccount    bool      `gorm:"not null;default:false" json:"has_credit_account"`
	CreditLimitCents    int64     `gorm:"not null;default:0" json:"credit_limit_cents"`
	CurrentBalanceCents int64     `gorm:"not null;default:0" json:"current_balance_cents"`
	Status              string    `gorm:"type:varchar(20);not null;default:active" json:"status"`
	Version             int       `gorm:"not null;default:0" json:"version"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "credit_accounts"
}

// AvailableCreditCents is the headroom left before the limit.
func (a *Account) AvailableCreditCents() int64 {
	return a.CreditLimitCents - a.CurrentBalanceCents
}

// UsageFraction is balance/limit; 0 when no limit is configured.
func (a *Account) UsageFraction() float64 {
	if a.CreditLimitCents <= 0 {
		return 0
	}
	return float64(a.CurrentBalanceCents) / float64(a.CreditLimitCents)
}
