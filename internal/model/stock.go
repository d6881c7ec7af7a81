package model

import (
	"time"
)

// StockItem is one sellable catalog item. QuantityOnHand must never go
// negative; a decrement that would do so is rejected inside the order
// transaction. Prices are server-trusted, client-submitted prices are ignored.
type StockItem struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string    `gorm:"type:varchar(128);not null" json:"name"`
	Category       string    `gorm:"type:varchar(64);index" json:"category,omitempty"`
	UnitPriceCents int64     `gorm:"not null" json:"unit_price_cents"`
	QuantityOnHand int       `gorm:"not null;default:0" json:"quantity_on_hand"`
	MinThreshold   int       `gorm:"not null;default:0" json:"min_threshold"`
	Available      bool      `gorm:"not null;default:true" json:"available"`
	Version        int       `gorm:"not null;default:0" json:"version"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StockItem) TableName() string {
	return "stock_items"
}

// BelowThreshold reports whether the item needs reordering.
func (s *StockItem) BelowThreshold() bool {
	return s.QuantityOnHand <= s.MinThreshold
}

const (
	MovementReasonOrderCommit      = "order_commit"
	MovementReasonOrderCancel      = "order_cancel"
	MovementReasonManualAdjustment = "manual_adjustment"
)

// InventoryMovement is the append-only audit record of a stock change,
// mirroring the credit ledger's before/after discipline.
type InventoryMovement struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StockItemID    int64     `gorm:"index;not null" json:"stock_item_id"`
	Delta          int       `gorm:"not null" json:"delta"`
	QuantityBefore int       `gorm:"not null" json:"quantity_before"`
	QuantityAfter  int       `gorm:"not null" json:"quantity_after"`
	Reason         string    `gorm:"type:varchar(32);not null" json:"reason"`
	RelatedOrderNo string    `gorm:"type:varchar(64);index" json:"related_order_no,omitempty"`
	Note           string    `gorm:"type:varchar(256)" json:"note,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (InventoryMovement) TableName() string {
	return "inventory_movements"
}
