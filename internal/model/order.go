package model

import (
	"time"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// ValidStatusTransitions defines the order lifecycle. Once preparation has
// started the order can no longer be cancelled.
var ValidStatusTransitions = map[string][]string{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusReady},
	OrderStatusReady:     {OrderStatusDelivered},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidStatusTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

const (
	PaymentStatusPaid    = "paid"
	PaymentStatusPending = "pending"
	PaymentStatusPartial = "partial"
)

const (
	OrderPaymentCash   = "cash"
	OrderPaymentCard   = "card"
	OrderPaymentCredit = "credit"
	OrderPaymentYape   = "yape"
	OrderPaymentPlin   = "plin"
)

// ValidOrderPaymentMethod reports whether m is accepted at order time.
// "credit" marks the order as fiado and charges the ledger.
func ValidOrderPaymentMethod(m string) bool {
	switch m {
	case OrderPaymentCash, OrderPaymentCard, OrderPaymentCredit, OrderPaymentYape, OrderPaymentPlin:
		return true
	}
	return false
}

type Order struct {
	ID                    int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNo               string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`
	UserID                int64      `gorm:"index;not null" json:"user_id"`
	TotalAmountCents      int64      `gorm:"not null" json:"total_amount_cents"`
	PaymentMethod         string     `gorm:"type:varchar(20);not null" json:"payment_method"`
	IsCreditOrder         bool       `gorm:"not null;default:false" json:"is_credit_order"`
	Status                string     `gorm:"type:varchar(20);index;not null" json:"status"`
	PaymentStatus         string     `gorm:"type:varchar(20);not null" json:"payment_status"`
	CreditPaidAmountCents int64      `gorm:"not null;default:0" json:"credit_paid_amount_cents"`
	Notes                 string     `gorm:"type:varchar(256)" json:"notes,omitempty"`
	CancellationReason    string     `gorm:"type:varchar(256)" json:"cancellation_reason,omitempty"`
	ConfirmedAt           *time.Time `json:"confirmed_at,omitempty"`
	ReadyAt               *time.Time `json:"ready_at,omitempty"`
	DeliveredAt           *time.Time `json:"delivered_at,omitempty"`
	CancelledAt           *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt             time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Loaded explicitly by the repository, not via gorm associations.
	Items []*OrderItem `gorm:"-" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// RemainingCreditCents is what is still owed on a credit order.
func (o *Order) RemainingCreditCents() int64 {
	return o.TotalAmountCents - o.CreditPaidAmountCents
}

// OrderItem snapshots name and unit price at commit time so later catalog
// edits do not rewrite history.
type OrderItem struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID        int64     `gorm:"index;not null" json:"order_id"`
	StockItemID    int64     `gorm:"index;not null" json:"stock_item_id"`
	Name           string    `gorm:"type:varchar(128);not null" json:"name"`
	UnitPriceCents int64     `gorm:"not null" json:"unit_price_cents"`
	Quantity       int       `gorm:"not null" json:"quantity"`
	SubtotalCents  int64     `gorm:"not null" json:"subtotal_cents"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
