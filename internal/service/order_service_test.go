package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cantina/internal/model"
	"cantina/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitOrder_CashOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, testConfig())
	ctx := context.Background()

	rice := seedStockItem(t, db, "arroz con pollo", 1500, 10)
	soda := seedStockItem(t, db, "chicha morada", 300, 20)

	order, err := svc.CommitOrder(ctx, &CommitOrderRequest{
		UserID:        1,
		PaymentMethod: model.OrderPaymentCash,
		Lines: []OrderLine{
			{StockItemID: rice.ID, Quantity: 2},
			{StockItemID: soda.ID, Quantity: 3},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2*1500+3*300), order.TotalAmountCents)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, model.PaymentStatusPaid, order.PaymentStatus)
	assert.False(t, order.IsCreditOrder)
	assert.Len(t, order.Items, 2)

	assert.Equal(t, 8, loadStockItem(t, db, rice.ID).QuantityOnHand)
	assert.Equal(t, 17, loadStockItem(t, db, soda.ID).QuantityOnHand)

	var movements []*model.InventoryMovement
	require.NoError(t, db.Where("related_order_no = ?", order.OrderNo).Find(&movements).Error)
	assert.Len(t, movements, 2)
	for _, m := range movements {
		assert.Equal(t, model.MovementReasonOrderCommit, m.Reason)
		assert.Equal(t, m.QuantityBefore+m.Delta, m.QuantityAfter)
	}

	assert.Equal(t, int64(1), countOutboxEvents(t, db, model.EventOrderCreated))
}

func TestCommitOrder_CreditOrderCharges(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, testConfig())
	ctx := context.Background()

	// limit 250.00, balance 0, order 50.00 -> accepted, balance 50.00
	seedAccount(t, db, 7, 25000, 0)
	item := seedStockItem(t, db, "menú ejecutivo", 5000, 5)

	order, err := svc.CommitOrder(ctx, &CommitOrderRequest{
		UserID:        7,
		PaymentMethod: model.OrderPaymentCredit,
		Lines:         []OrderLine{{StockItemID: item.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.True(t, order.IsCreditOrder)
	assert.Equal(t, model.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, int64(5000), loadAccount(t, db, 7).CurrentBalanceCents)

	entries := loadLedger(t, db, 7)
	require.Len(t, entries, 1)
	assert.Equal(t, model.LedgerTypeCharge, entries[0].Type)
	assert.Equal(t, int64(5000), entries[0].AmountCents)
	assert.Equal(t, int64(0), entries[0].BalanceBeforeCents)
	assert.Equal(t, int64(5000), entries[0].BalanceAfterCents)
	assert.Equal(t, order.OrderNo, entries[0].RelatedOrderNo)
}

func TestCommitOrder_CreditUnavailable(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, testConfig())
	ctx := context.Background()

	// limit 100.00, balance 93.00 -> available 7.00, order of 10.00 refused
	seedAccount(t, db, 3, 10000, 9300)
	item := seedStockItem(t, db, "empanada", 1000, 10)

	_, err := svc.CommitOrder(ctx, &CommitOrderRequest{
		UserID:        3,
		PaymentMethod: model.OrderPaymentCredit,
		Lines:         []OrderLine{{StockItemID: item.ID, Quantity: 1}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCreditUnavailable)

	var credErr *CreditUnavailableError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, int64(700), credErr.AvailableCreditCents)

	// nothing committed
	assert.Equal(t, 10, loadStockItem(t, db, item.ID).QuantityOnHand)
	assert.Equal(t, int64(9300), loadAccount(t, db, 3).CurrentBalanceCents)
	assert.Empty(t, loadLedger(t, db, 3))
}

func TestCommitOrder_NoCreditAccount(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, testConfig())
	ctx := context.Background()

	account := seedAccount(t, db, 4, 10000, 0)
	require.NoError(t, db.Model(account).Update("has_credit_account", false).Error)
	item := seedStockItem(t, db, "café", 500, 10)

	_, err := svc.CommitOrder(ctx, &CommitOrderRequest{
		UserID:        4,
		PaymentMethod: model.OrderPaymentCredit,
		Lines:         []OrderLine{{StockItemID: item.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrNoCreditAccount)
	assert.Equal(t, 10, loadStockItem(t, db, item.ID).QuantityOnHand)
}

func TestCommitOrder_OutOfStockAbortsWholeUnit(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, testConfig())
	ctx := context.Background()

	plenty := seedStockItem(t, db, "pan", 200, 50)
	scarce := seedStockItem(t, db, "lomo saltado", 2500, 1)

	_, err := svc.CommitOrder(ctx, &CommitOrderRequest{
		UserID:        1,
		PaymentMethod: model.OrderPaymentCash,
		Lines: []OrderLine{
			{StockItemID: plenty.ID, Quantity: 2},
			{StockItemID: scarce.ID, Quantity: 3},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutOfStock)

	var stockErr *OutOfStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, scarce.ID, stockErr.StockItemID)
	assert.Equal(t, 1, stockErr.Remaining)

	// the passing line must not have been applied
	assert.Equal(t, 50, loadStockItem(t, db, plenty.ID).QuantityOnHand)

	var orderCount int64
	require.NoError(t, db.Model(&model.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestCommitOrder_UnavailableItem(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, testConfig())
	ctx := context.Background()

	item := seedStockItem(t, db, "tamal", 800, 10)
	require.NoError(t, db.Model(item).Update("available", false).Error)

	_, err := svc.CommitOrder(ctx, &CommitOrderRequest{
		UserID:        1,
		PaymentMethod: model.OrderPaymentCash,
		Lines:         []OrderLine{{StockItemID: item.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrOutOfStock)
}

func TestCommitOrder_Validation(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, testConfig())
	ctx := context.Background()

	item := seedStockItem(t, db, "jugo", 600, 10)

	tests := []struct {
		name string
		req  *CommitOrderRequest
	}{
		{"empty cart", &CommitOrderRequest{UserID: 1, PaymentMethod: "cash"}},
		{"unknown method", &CommitOrderRequest{
			UserID: 1, PaymentMethod: "barter",
			Lines: []OrderLine{{StockItemID: item.ID, Quantity: 1}},
		}},
		{"zero quantity", &CommitOrderRequest{
			UserID: 1, PaymentMethod: "cash",
			Lines: []OrderLine{{StockItemID: item.ID, Quantity: 0}},
		}},
		{"duplicate line", &CommitOrderRequest{
			UserID: 1, PaymentMethod: "cash",
			Lines: []OrderLine{
				{StockItemID: item.ID, Quantity: 1},
				{StockItemID: item.ID, Quantity: 2},
			},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CommitOrder(ctx, tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCommitOrder_ConcurrentLastUnit(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, testConfig())
	ctx := context.Background()

	item := seedStockItem(t, db, "último postre", 900, 1)

	const attempts = 4
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := svc.CommitOrder(ctx, &CommitOrderRequest{
				UserID:        userID,
				PaymentMethod: model.OrderPaymentCash,
				Lines:         []OrderLine{{StockItemID: item.ID, Quantity: 1}},
			})
			results <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrOutOfStock)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 0, loadStockItem(t, db, item.ID).QuantityOnHand)
}

func TestUpdateStatus_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, testConfig())
	ctx := context.Background()

	item := seedStockItem(t, db, "sopa", 700, 10)
	order, err := svc.CommitOrder(ctx, &CommitOrderRequest{
		UserID:        1,
		PaymentMethod: model.OrderPaymentCash,
		Lines:         []OrderLine{{StockItemID: item.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	for _, status := range []string{
		model.OrderStatusConfirmed,
		model.OrderStatusPreparing,
		model.OrderStatusReady,
		model.OrderStatusDelivered,
	} {
		require.NoError(t, svc.UpdateStatus(ctx, order.OrderNo, status))
	}

	// delivered is terminal
	err = svc.UpdateStatus(ctx, order.OrderNo, model.OrderStatusPreparing)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	// skipping a step is rejected
	item2 := seedStockItem(t, db, "segundo", 700, 10)
	order2, err := svc.CommitOrder(ctx, &CommitOrderRequest{
		UserID:        2,
		PaymentMethod: model.OrderPaymentCash,
		Lines:         []OrderLine{{StockItemID: item2.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	err = svc.UpdateStatus(ctx, order2.OrderNo, model.OrderStatusReady)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestCancelOrder_ReversesStockAndCharge(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, testConfig())
	ctx := context.Background()

	seedAccount(t, db, 9, 20000, 1000)
	item := seedStockItem(t, db, "ceviche", 3000, 6)

	order, err := svc.CommitOrder(ctx, &CommitOrderRequest{
		UserID:        9,
		PaymentMethod: model.OrderPaymentCredit,
		Lines:         []OrderLine{{StockItemID: item.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.UpdateStatus(ctx, order.OrderNo, model.OrderStatusConfirmed))
	require.Equal(t, int64(7000), loadAccount(t, db, 9).CurrentBalanceCents)
	require.Equal(t, 4, loadStockItem(t, db, item.ID).QuantityOnHand)

	require.NoError(t, svc.CancelOrder(ctx, order.OrderNo, "cliente se retractó", 100))

	// stock restored by exactly the committed quantity
	assert.Equal(t, 6, loadStockItem(t, db, item.ID).QuantityOnHand)
	// balance decreased by exactly the order total
	assert.Equal(t, int64(1000), loadAccount(t, db, 9).CurrentBalanceCents)

	entries := loadLedger(t, db, 9)
	require.Len(t, entries, 2)
	assert.Equal(t, model.LedgerTypeAdjustment, entries[1].Type)
	assert.Equal(t, -order.TotalAmountCents, entries[1].AmountCents)
	// continuity: charge's after == reversal's before
	assert.Equal(t, entries[0].BalanceAfterCents, entries[1].BalanceBeforeCents)

	got, err := svc.GetOrder(ctx, order.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, got.Status)
	assert.Equal(t, "cliente se retractó", got.CancellationReason)
}

func TestCancelOrder_PartiallyPaidKeepsCharge(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	orderSvc := NewOrderService(db, cfg)
	creditSvc := NewCreditService(db, nil, cfg)
	ctx := context.Background()

	seedAccount(t, db, 11, 20000, 0)
	item := seedStockItem(t, db, "parrilla", 4000, 5)

	order, err := orderSvc.CommitOrder(ctx, &CommitOrderRequest{
		UserID:        11,
		PaymentMethod: model.OrderPaymentCredit,
		Lines:         []OrderLine{{StockItemID: item.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = creditSvc.RegisterPayment(ctx, &PaymentRequest{
		UserID: 11, AmountCents: 1500, Method: model.PaymentMethodCash,
		OrderNo: order.OrderNo, RecordedBy: 100,
	})
	require.NoError(t, err)
	require.Equal(t, int64(2500), loadAccount(t, db, 11).CurrentBalanceCents)

	require.NoError(t, orderSvc.CancelOrder(ctx, order.OrderNo, "cambio de planes", 100))

	// stock comes back but the partially settled debt stays
	assert.Equal(t, 5, loadStockItem(t, db, item.ID).QuantityOnHand)
	assert.Equal(t, int64(2500), loadAccount(t, db, 11).CurrentBalanceCents)
}

func TestCancelOrder_RejectedOncePreparing(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, testConfig())
	ctx := context.Background()

	item := seedStockItem(t, db, "aji de gallina", 2000, 5)
	order, err := svc.CommitOrder(ctx, &CommitOrderRequest{
		UserID:        1,
		PaymentMethod: model.OrderPaymentCash,
		Lines:         []OrderLine{{StockItemID: item.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.UpdateStatus(ctx, order.OrderNo, model.OrderStatusConfirmed))
	require.NoError(t, svc.UpdateStatus(ctx, order.OrderNo, model.OrderStatusPreparing))

	err = svc.CancelOrder(ctx, order.OrderNo, "tarde", 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	var transErr *StateTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, model.OrderStatusPreparing, transErr.From)

	// no stock restore happened
	assert.Equal(t, 4, loadStockItem(t, db, item.ID).QuantityOnHand)
}

func TestGetOrder_NotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, testConfig())

	_, err := svc.GetOrder(context.Background(), "ORD00000000000000000000")
	assert.True(t, errors.Is(err, repository.ErrOrderNotFound))
}
