package service

import (
	"context"
	"fmt"
	"log"

	"cantina/internal/config"
	"cantina/internal/model"
	"cantina/internal/repository"
	"cantina/pkg/idgen"

	"gorm.io/gorm"
)

// OrderService converts a cart into a committed order. Stock verification,
// stock decrement, credit charge and the order insert all happen inside one
// database transaction; any failure rolls the whole unit back.
type OrderService struct {
	db          *gorm.DB
	cfg         *config.Config
	orderRepo   *repository.OrderRepository
	stockRepo   *repository.StockRepository
	accountRepo *repository.AccountRepository
	ledgerRepo  *repository.LedgerRepository
	outboxRepo  *repository.OutboxRepository
}

func NewOrderService(db *gorm.DB, cfg *config.Config) *OrderService {
	return &OrderService{
		db:          db,
		cfg:         cfg,
		orderRepo:   repository.NewOrderRepository(db),
		stockRepo:   repository.NewStockRepository(db),
		accountRepo: repository.NewAccountRepository(db),
		ledgerRepo:  repository.NewLedgerRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

// OrderLine is one cart line. Prices are looked up server-side at commit
// time; any client-submitted price is ignored.
type OrderLine struct {
	StockItemID int64 `json:"stock_item_id" binding:"required"`
	Quantity    int   `json:"quantity" binding:"required,gt=0"`
}

type CommitOrderRequest struct {
	UserID        int64
	PaymentMethod string
	Lines         []OrderLine
	Notes         string
}

// CommitOrder runs the full cart->order commit:
//
//  1. Lock all stock rows in ascending id order, verify availability.
//  2. Compute the total from server-trusted prices.
//  3. For credit orders, lock the account and verify the limit.
//  4. Decrement stock, one movement row per line.
//  5. For credit orders, raise the balance and append a charge entry.
//  6. Insert the order and its line items, write outbox events.
//
// Steps 1-6 share one transaction. Two concurrent commits against the same
// stock item or the same credit limit serialize on the row locks, so only
// one can win the last unit.
func (s *OrderService) CommitOrder(ctx context.Context, req *CommitOrderRequest) (*model.Order, error) {
	if len(req.Lines) == 0 {
		return nil, validationErrorf("order has no line items")
	}
	if !model.ValidOrderPaymentMethod(req.PaymentMethod) {
		return nil, validationErrorf("unknown payment method %q", req.PaymentMethod)
	}
	seen := make(map[int64]bool, len(req.Lines))
	ids := make([]int64, 0, len(req.Lines))
	for _, line := range req.Lines {
		if line.Quantity < 1 {
			return nil, validationErrorf("quantity must be at least 1 for item %d", line.StockItemID)
		}
		if seen[line.StockItemID] {
			return nil, validationErrorf("duplicate line for item %d", line.StockItemID)
		}
		seen[line.StockItemID] = true
		ids = append(ids, line.StockItemID)
	}

	isCredit := req.PaymentMethod == model.OrderPaymentCredit
	orderNo := idgen.GenerateOrderNo()

	var order *model.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		stockItems, err := s.stockRepo.GetByIDsForUpdate(ctx, tx, ids)
		if err != nil {
			return fmt.Errorf("lock stock rows: %w", err)
		}
		byID := make(map[int64]*model.StockItem, len(stockItems))
		for _, item := range stockItems {
			byID[item.ID] = item
		}

		var totalCents int64
		orderItems := make([]*model.OrderItem, 0, len(req.Lines))
		for _, line := range req.Lines {
			item, ok := byID[line.StockItemID]
			if !ok {
				return fmt.Errorf("%w: stock item %d", repository.ErrStockItemNotFound, line.StockItemID)
			}
			if !item.Available || item.QuantityOnHand < line.Quantity {
				remaining := item.QuantityOnHand
				if !item.Available {
					remaining = 0
				}
				return &OutOfStockError{
					StockItemID: item.ID,
					Name:        item.Name,
					Requested:   line.Quantity,
					Remaining:   remaining,
				}
			}
			subtotal := item.UnitPriceCents * int64(line.Quantity)
			totalCents += subtotal
			orderItems = append(orderItems, &model.OrderItem{
				StockItemID:    item.ID,
				Name:           item.Name,
				UnitPriceCents: item.UnitPriceCents,
				Quantity:       line.Quantity,
				SubtotalCents:  subtotal,
			})
		}

		var account *model.Account
		if isCredit {
			account, err = s.accountRepo.GetByUserIDForUpdate(ctx, tx, req.UserID)
			if err != nil {
				return err
			}
			if !account.HasCreditAccount {
				return ErrNoCreditAccount
			}
			if account.Status != model.AccountStatusActive {
				return ErrAccountNotActive
			}
			if totalCents > account.AvailableCreditCents() {
				return &CreditUnavailableError{
					RequestedCents:       totalCents,
					AvailableCreditCents: account.AvailableCreditCents(),
				}
			}
		}

		for _, line := range req.Lines {
			item := byID[line.StockItemID]
			if err := s.stockRepo.AdjustQuantity(ctx, tx, item.ID, -line.Quantity); err != nil {
				return fmt.Errorf("decrement stock for item %d: %w", item.ID, err)
			}
			movement := &model.InventoryMovement{
				StockItemID:    item.ID,
				Delta:          -line.Quantity,
				QuantityBefore: item.QuantityOnHand,
				QuantityAfter:  item.QuantityOnHand - line.Quantity,
				Reason:         model.MovementReasonOrderCommit,
				RelatedOrderNo: orderNo,
			}
			if err := s.stockRepo.RecordMovement(ctx, tx, movement); err != nil {
				return fmt.Errorf("record movement: %w", err)
			}
		}

		paymentStatus := model.PaymentStatusPaid
		if isCredit {
			paymentStatus = model.PaymentStatusPending

			newBalance := account.CurrentBalanceCents + totalCents
			if err := s.accountRepo.SetBalance(ctx, tx, req.UserID, newBalance, account.Version); err != nil {
				return fmt.Errorf("charge account: %w", err)
			}
			entry := &model.LedgerEntry{
				EntryNo:            idgen.GenerateEntryNo(),
				UserID:             req.UserID,
				Type:               model.LedgerTypeCharge,
				AmountCents:        totalCents,
				BalanceBeforeCents: account.CurrentBalanceCents,
				BalanceAfterCents:  newBalance,
				RelatedOrderNo:     orderNo,
				Description:        fmt.Sprintf("credit charge for order %s", orderNo),
				PerformedBy:        req.UserID,
			}
			if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
				return fmt.Errorf("append ledger entry: %w", err)
			}

			usage := float64(newBalance) / float64(account.CreditLimitCents)
			if account.CreditLimitCents > 0 && usage >= s.cfg.Business.CreditBlockThreshold {
				err := s.outboxRepo.AppendEvent(ctx, tx, s.cfg.Kafka.Topic.Notifications,
					model.EventCreditNearLimit, fmt.Sprintf("user-%d", req.UserID),
					map[string]interface{}{
						"user_id":               req.UserID,
						"current_balance_cents": newBalance,
						"credit_limit_cents":    account.CreditLimitCents,
						"usage":                 usage,
					})
				if err != nil {
					return err
				}
			}
		}

		order = &model.Order{
			OrderNo:          orderNo,
			UserID:           req.UserID,
			TotalAmountCents: totalCents,
			PaymentMethod:    req.PaymentMethod,
			IsCreditOrder:    isCredit,
			Status:           model.OrderStatusPending,
			PaymentStatus:    paymentStatus,
			Notes:            req.Notes,
		}
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		for _, item := range orderItems {
			item.OrderID = order.ID
		}
		if err := s.orderRepo.CreateItems(ctx, tx, orderItems); err != nil {
			return fmt.Errorf("create order items: %w", err)
		}
		order.Items = orderItems

		return s.outboxRepo.AppendEvent(ctx, tx, s.cfg.Kafka.Topic.Notifications,
			model.EventOrderCreated, orderNo,
			map[string]interface{}{
				"order_no":           orderNo,
				"user_id":            req.UserID,
				"total_amount_cents": totalCents,
				"payment_method":     req.PaymentMethod,
				"is_credit_order":    isCredit,
			})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[OrderService] order committed: orderNo=%s, userID=%d, total=%d, credit=%t",
		orderNo, req.UserID, order.TotalAmountCents, isCredit)
	return order, nil
}

// UpdateStatus moves an order along pending -> confirmed -> preparing ->
// ready -> delivered. Cancellation is not accepted here; it has side effects
// (stock restore, charge reversal) and must go through CancelOrder.
func (s *OrderService) UpdateStatus(ctx context.Context, orderNo, targetStatus string) error {
	if targetStatus == model.OrderStatusCancelled {
		return validationErrorf("use CancelOrder to cancel")
	}
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return err
	}
	if !model.CanTransitionTo(order.Status, targetStatus) {
		return &StateTransitionError{From: order.Status, To: targetStatus}
	}
	return s.orderRepo.UpdateStatus(ctx, nil, orderNo, order.Status, targetStatus)
}

// CancelOrder reverses a pending or confirmed order: restores every line's
// stock with compensating movements and, for a credit order still unpaid,
// reverses the charge with a compensating adjustment entry. Orders already
// in preparation or partially paid keep their charge.
func (s *OrderService) CancelOrder(ctx context.Context, orderNo, reason string, performedBy int64) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.GetByOrderNoForUpdate(ctx, tx, orderNo)
		if err != nil {
			return err
		}
		if !model.CanTransitionTo(order.Status, model.OrderStatusCancelled) {
			return &StateTransitionError{From: order.Status, To: model.OrderStatusCancelled}
		}

		items, err := s.orderRepo.ItemsByOrderID(ctx, tx, order.ID)
		if err != nil {
			return fmt.Errorf("load order items: %w", err)
		}
		ids := make([]int64, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.StockItemID)
		}
		stockItems, err := s.stockRepo.GetByIDsForUpdate(ctx, tx, ids)
		if err != nil {
			return fmt.Errorf("lock stock rows: %w", err)
		}
		byID := make(map[int64]*model.StockItem, len(stockItems))
		for _, item := range stockItems {
			byID[item.ID] = item
		}

		for _, item := range items {
			stock, ok := byID[item.StockItemID]
			if !ok {
				// Item removed from catalog since the order; skip the restore
				// but keep the audit trail consistent for the rest.
				continue
			}
			if err := s.stockRepo.AdjustQuantity(ctx, tx, stock.ID, item.Quantity); err != nil {
				return fmt.Errorf("restore stock for item %d: %w", stock.ID, err)
			}
			movement := &model.InventoryMovement{
				StockItemID:    stock.ID,
				Delta:          item.Quantity,
				QuantityBefore: stock.QuantityOnHand,
				QuantityAfter:  stock.QuantityOnHand + item.Quantity,
				Reason:         model.MovementReasonOrderCancel,
				RelatedOrderNo: orderNo,
			}
			if err := s.stockRepo.RecordMovement(ctx, tx, movement); err != nil {
				return fmt.Errorf("record movement: %w", err)
			}
		}

		// Reverse the charge only while nothing has been paid against it.
		// Once a partial payment exists the debt stays and is settled
		// through the ledger like any other.
		if order.IsCreditOrder && order.PaymentStatus == model.PaymentStatusPending {
			account, err := s.accountRepo.GetByUserIDForUpdate(ctx, tx, order.UserID)
			if err != nil {
				return err
			}
			newBalance := account.CurrentBalanceCents - order.TotalAmountCents
			if newBalance < 0 {
				return ErrNegativeBalance
			}
			if err := s.accountRepo.SetBalance(ctx, tx, order.UserID, newBalance, account.Version); err != nil {
				return fmt.Errorf("reverse charge: %w", err)
			}
			entry := &model.LedgerEntry{
				EntryNo:            idgen.GenerateEntryNo(),
				UserID:             order.UserID,
				Type:               model.LedgerTypeAdjustment,
				AmountCents:        -order.TotalAmountCents,
				BalanceBeforeCents: account.CurrentBalanceCents,
				BalanceAfterCents:  newBalance,
				RelatedOrderNo:     orderNo,
				Description:        fmt.Sprintf("reversal for cancelled order %s", orderNo),
				PerformedBy:        performedBy,
			}
			if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
				return fmt.Errorf("append reversal entry: %w", err)
			}
		}

		if err := s.orderRepo.Cancel(ctx, tx, orderNo, order.Status, reason); err != nil {
			return err
		}

		return s.outboxRepo.AppendEvent(ctx, tx, s.cfg.Kafka.Topic.Notifications,
			model.EventOrderCancelled, orderNo,
			map[string]interface{}{
				"order_no": orderNo,
				"user_id":  order.UserID,
				"reason":   reason,
			})
	})
	if err != nil {
		return err
	}

	log.Printf("[OrderService] order cancelled: orderNo=%s, reason=%q", orderNo, reason)
	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderNo string) (*model.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	items, err := s.orderRepo.ItemsByOrderID(ctx, nil, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID int64, page, pageSize int) ([]*model.Order, int64, error) {
	return s.orderRepo.ListByUserID(ctx, userID, page, pageSize)
}
