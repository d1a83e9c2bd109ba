package txn

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"Cryptobot/internal/model"
)

// Account reads balances and places market orders for the configured product.
type Account interface {
	Balance(ctx context.Context, useCache bool) (model.BalanceSnapshot, error)
	// PlaceOrder submits a market order; exactly one of size (base) or funds (quote) is non-zero.
	// Failures are *OrderRejectedError or *ExecutionError.
	PlaceOrder(ctx context.Context, side model.Side, size, funds decimal.Decimal) (*model.OrderReceipt, error)
}

// OrderRejectedError means the venue or the account refused the order.
type OrderRejectedError struct {
	Reason string
}

func (e *OrderRejectedError) Error() string { return "order rejected: " + e.Reason }

// ExecutionError means the order could not be submitted or its outcome is unknown.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string { return fmt.Sprintf("order execution failed: %v", e.Err) }

func (e *ExecutionError) Unwrap() error { return e.Err }

func validateOrder(side model.Side, size, funds decimal.Decimal) error {
	switch {
	case !side.Valid():
		return &OrderRejectedError{Reason: fmt.Sprintf("invalid side %q", side)}
	case size.IsNegative() || funds.IsNegative():
		return &OrderRejectedError{Reason: "size and funds cannot be negative"}
	case size.IsZero() == funds.IsZero():
		return &OrderRejectedError{Reason: "exactly one of size or funds must be non-zero"}
	}
	return nil
}
