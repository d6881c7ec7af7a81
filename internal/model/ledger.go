package model

import (
	"time"
)

const (
	LedgerTypeCharge     = "charge"
	LedgerTypePayment    = "payment"
	LedgerTypeAdjustment = "adjustment"
)

// LedgerEntry is one row of the append-only credit ledger.
//
// Rules the ledger lives by:
//  1. Append only. Rows are never updated or deleted.
//  2. Every row carries balance_before and balance_after so the chain can be
//     audited: entry[i].balance_after == entry[i+1].balance_before per account.
//  3. Charges and payments always reference the order/payment that caused them.
//
// AmountCents is signed: positive raises the debt, negative lowers it.
type LedgerEntry struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EntryNo            string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"entry_no"`
	UserID             int64     `gorm:"index;not null" json:"user_id"`
	Type               string    `gorm:"type:varchar(20);not null" json:"type"`
	AmountCents        int64     `gorm:"not null" json:"amount_cents"`
	BalanceBeforeCents int64     `gorm:"not null" json:"balance_before_cents"`
	BalanceAfterCents  int64     `gorm:"not null" json:"balance_after_cents"`
	RelatedOrderNo     string    `gorm:"type:varchar(64);index" json:"related_order_no,omitempty"`
	RelatedPaymentNo   string    `gorm:"type:varchar(64);index" json:"related_payment_no,omitempty"`
	Description        string    `gorm:"type:varchar(256)" json:"description"`
	PerformedBy        int64     `gorm:"not null" json:"performed_by"`
	CreatedAt          time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "credit_ledger"
}

const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodTransfer = "transfer"
)

// ValidPaymentMethod reports whether m is a settlement method accepted at
// the register for paying down credit debt.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer:
		return true
	}
	return false
}

// Payment records a settlement against an account's debt. Always paired with
// exactly one LedgerEntry of type payment (linked by PaymentNo).
type Payment struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentNo          string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"payment_no"`
	UserID             int64     `gorm:"index;not null" json:"user_id"`
	OrderNo            string    `gorm:"type:varchar(64);index" json:"order_no,omitempty"`
	AmountCents        int64     `gorm:"not null" json:"amount_cents"`
	Method             string    `gorm:"type:varchar(20);not null" json:"method"`
	BalanceBeforeCents int64     `gorm:"not null" json:"balance_before_cents"`
	BalanceAfterCents  int64     `gorm:"not null" json:"balance_after_cents"`
	Notes              string    `gorm:"type:varchar(256)" json:"notes,omitempty"`
	RecordedBy         int64     `gorm:"not null" json:"recorded_by"`
	CreatedAt          time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Payment) TableName() string {
	return "credit_payments"
}
