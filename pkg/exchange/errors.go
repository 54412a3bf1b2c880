package exchange

import "errors"

// Precondition failures. Every operation either succeeds fully (and emits
// its event) or returns one of these with zero side effects. Callers can
// retry with corrected input; nothing here is ever a partial state.
var (
	ErrNonPositiveAmount   = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientDeposit = errors.New("insufficient deposit for order collateral")
	ErrOrderNotFound       = errors.New("order not found")
	ErrNotOwner            = errors.New("order can only be cancelled by its maker")
	ErrOrderCancelled      = errors.New("order was cancelled")
	ErrOrderFilled         = errors.New("order was filled")
)
