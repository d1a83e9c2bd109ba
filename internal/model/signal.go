package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is a known order side.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// TradeDecision is the output of the decision policy.
// Size is in base currency, Funds in quote currency; exactly one of them is non-zero.
type TradeDecision struct {
	Side          Side
	Size          decimal.Decimal
	Funds         decimal.Decimal
	ChangeScore   float64
	Multiplier    float64
	CurrentScore  float64
	PreviousScore float64
}

// OrderReceipt is what the account provider returns for an accepted order.
type OrderReceipt struct {
	ID        string
	Product   string
	Side      Side
	Size      decimal.Decimal
	Funds     decimal.Decimal
	Status    string
	CreatedAt time.Time
}

// EventKind classifies notifier events.
type EventKind string

const (
	EventOrder EventKind = "order"
	EventFlash EventKind = "flash"
	EventError EventKind = "error"
)
