package service

import (
	"errors"
	"fmt"
)

// Business error taxonomy surfaced to callers. All rule violations are
// detected before any write inside the transaction and returned with enough
// detail to act on (available credit, remaining stock, free spots).
var (
	ErrValidation             = errors.New("validation failed")
	ErrOutOfStock             = errors.New("out of stock")
	ErrCreditUnavailable      = errors.New("credit unavailable")
	ErrNoCreditAccount        = errors.New("no credit account")
	ErrAccountNotActive       = errors.New("account is not active")
	ErrAmountExceedsDebt      = errors.New("amount exceeds current debt")
	ErrNegativeBalance        = errors.New("adjustment would make balance negative")
	ErrInvalidStateTransition = errors.New("state transition not allowed")
	ErrCapacityExceeded       = errors.New("menu capacity exceeded")
	ErrDuplicateReservation   = errors.New("user already has a reservation for this menu")
	ErrDeadlinePassed         = errors.New("reservation deadline has passed")
	ErrMenuInactive           = errors.New("menu is not active")
	ErrAlreadyOnWaitlist      = errors.New("user already on the waitlist")
)

// OutOfStockError reports which item ran short and how much is left.
type OutOfStockError struct {
	StockItemID int64
	Name        string
	Requested   int
	Remaining   int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("out of stock: item %d (%s), requested %d, remaining %d",
		e.StockItemID, e.Name, e.Requested, e.Remaining)
}

func (e *OutOfStockError) Unwrap() error { return ErrOutOfStock }

// CreditUnavailableError carries the headroom so the caller can show the
// user how much credit is actually left.
type CreditUnavailableError struct {
	RequestedCents       int64
	AvailableCreditCents int64
}

func (e *CreditUnavailableError) Error() string {
	return fmt.Sprintf("credit unavailable: requested %d, available %d",
		e.RequestedCents, e.AvailableCreditCents)
}

func (e *CreditUnavailableError) Unwrap() error { return ErrCreditUnavailable }

// CapacityExceededError carries the remaining spots on the menu.
type CapacityExceededError struct {
	MenuID         int64
	Requested      int
	SpotsAvailable int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("menu %d capacity exceeded: requested %d, spots available %d",
		e.MenuID, e.Requested, e.SpotsAvailable)
}

func (e *CapacityExceededError) Unwrap() error { return ErrCapacityExceeded }

// StateTransitionError names the rejected transition.
type StateTransitionError struct {
	From string
	To   string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %q to %q", e.From, e.To)
}

func (e *StateTransitionError) Unwrap() error { return ErrInvalidStateTransition }

func validationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}
