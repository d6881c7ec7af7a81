package repository

import (
	"context"
	"errors"
	"time"

	"cantina/internal/model"

	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(order).Error
}

func (r *OrderRepository) CreateItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(items).Error
}

func (r *OrderRepository) GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Where("order_no = ?", orderNo).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) GetByOrderNoForUpdate(ctx context.Context, tx *gorm.DB, orderNo string) (*model.Order, error) {
	var order model.Order
	err := forUpdate(tx.WithContext(ctx)).
		Where("order_no = ?", orderNo).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) ItemsByOrderID(ctx context.Context, tx *gorm.DB, orderID int64) ([]*model.OrderItem, error) {
	if tx == nil {
		tx = r.db
	}
	var items []*model.OrderItem
	err := tx.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

// UpdateStatus moves an order along the lifecycle with a guarded UPDATE:
// the WHERE clause pins the expected current status, so a concurrent
// transition loses the race cleanly instead of clobbering.
func (r *OrderRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, orderNo string, fromStatus, toStatus string) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return ErrOrderStatusInvalid
	}
	if tx == nil {
		tx = r.db
	}

	updates := map[string]interface{}{
		"status": toStatus,
	}
	now := time.Now()
	switch toStatus {
	case model.OrderStatusConfirmed:
		updates["confirmed_at"] = &now
	case model.OrderStatusReady:
		updates["ready_at"] = &now
	case model.OrderStatusDelivered:
		updates["delivered_at"] = &now
	case model.OrderStatusCancelled:
		updates["cancelled_at"] = &now
	}

	result := tx.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_no = ? AND status = ?", orderNo, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderStatusInvalid
	}
	return nil
}

// Cancel is UpdateStatus plus the cancellation reason, one guarded write.
func (r *OrderRepository) Cancel(ctx context.Context, tx *gorm.DB, orderNo string, fromStatus, reason string) error {
	if !model.CanTransitionTo(fromStatus, model.OrderStatusCancelled) {
		return ErrOrderStatusInvalid
	}
	if tx == nil {
		tx = r.db
	}
	now := time.Now()
	result := tx.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_no = ? AND status = ?", orderNo, fromStatus).
		Updates(map[string]interface{}{
			"status":              model.OrderStatusCancelled,
			"cancellation_reason": reason,
			"cancelled_at":        &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderStatusInvalid
	}
	return nil
}

// ApplyCreditPayment bumps credit_paid_amount and the derived payment
// status, guarded so the paid amount can never exceed the order total.
func (r *OrderRepository) ApplyCreditPayment(ctx context.Context, tx *gorm.DB, orderNo string, amountCents int64, newPaymentStatus string) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_no = ? AND credit_paid_amount_cents + ? <= total_amount_cents", orderNo, amountCents).
		Updates(map[string]interface{}{
			"credit_paid_amount_cents": gorm.Expr("credit_paid_amount_cents + ?", amountCents),
			"payment_status":           newPaymentStatus,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOptimisticLock
	}
	return nil
}

func (r *OrderRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.Order, int64, error) {
	var orders []*model.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Order{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error
	return orders, total, err
}

// ListPendingCreditByUserID returns credit orders still owing money.
func (r *OrderRepository) ListPendingCreditByUserID(ctx context.Context, userID int64) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_credit_order = ? AND payment_status IN ?",
			userID, true, []string{model.PaymentStatusPending, model.PaymentStatusPartial}).
		Where("status <> ?", model.OrderStatusCancelled).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

// OrderStats is the read-only aggregate served to report consumers.
type OrderStats struct {
	TotalOrders      int64 `json:"total_orders"`
	TotalAmountCents int64 `json:"total_amount_cents"`
	CreditOrders     int64 `json:"credit_orders"`
	CancelledOrders  int64 `json:"cancelled_orders"`
}

func (r *OrderRepository) Stats(ctx context.Context, from, to time.Time) (*OrderStats, error) {
	var stats OrderStats
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select(
			"COUNT(*) AS total_orders, "+
				"COALESCE(SUM(CASE WHEN status <> ? THEN total_amount_cents ELSE 0 END), 0) AS total_amount_cents, "+
				"COALESCE(SUM(CASE WHEN is_credit_order THEN 1 ELSE 0 END), 0) AS credit_orders, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS cancelled_orders",
			model.OrderStatusCancelled, model.OrderStatusCancelled,
		).
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
