package txn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"Cryptobot/internal/model"
	"Cryptobot/internal/recorder"
)

// DefaultSimFee is the fraction of every fill kept by the simulated venue.
const DefaultSimFee = 0.005

// PriceSource prices simulated fills.
type PriceSource interface {
	Now() time.Time
	CurrentPrice(ctx context.Context, useCache bool) (float64, error)
}

// SimAccount is a paper account that fills market orders at the current price.
// The fee is taken from what the order receives, so balances never go negative.
type SimAccount struct {
	Prices      PriceSource
	Orders      recorder.OrderLog
	Portfolio   recorder.PortfolioLog
	Base, Quote string
	Fee         decimal.Decimal

	mu    sync.Mutex
	coin  decimal.Decimal
	funds decimal.Decimal
}

// NewSimAccount creates a paper account holding the given starting balances.
func NewSimAccount(prices PriceSource, orders recorder.OrderLog, portfolio recorder.PortfolioLog, base, quote string, coin, funds, fee float64) *SimAccount {
	return &SimAccount{
		Prices:    prices,
		Orders:    orders,
		Portfolio: portfolio,
		Base:      base,
		Quote:     quote,
		Fee:       decimal.NewFromFloat(fee),
		coin:      decimal.NewFromFloat(coin),
		funds:     decimal.NewFromFloat(funds),
	}
}

func (a *SimAccount) product() string { return model.ProductID(a.Base, a.Quote) }

// Balance returns the paper balances. Nothing is held, so available equals total.
func (a *SimAccount) Balance(ctx context.Context, _ bool) (model.BalanceSnapshot, error) {
	bal := a.snapshot()
	if err := a.Portfolio.RecordPortfolio(ctx, a.product(), a.Prices.Now(), bal); err != nil {
		log.Warn().Err(err).Msg("record portfolio")
	}
	return bal, nil
}

func (a *SimAccount) snapshot() model.BalanceSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	coin, funds := a.coin.InexactFloat64(), a.funds.InexactFloat64()
	return model.BalanceSnapshot{
		Base:  model.CurrencyBalance{Currency: a.Base, Available: coin, Total: coin},
		Quote: model.CurrencyBalance{Currency: a.Quote, Available: funds, Total: funds},
	}
}

func (a *SimAccount) PlaceOrder(ctx context.Context, side model.Side, size, funds decimal.Decimal) (*model.OrderReceipt, error) {
	if err := validateOrder(side, size, funds); err != nil {
		return nil, err
	}
	price, err := a.Prices.CurrentPrice(ctx, true)
	if err != nil {
		return nil, &ExecutionError{Err: fmt.Errorf("price simulated fill: %w", err)}
	}
	if price <= 0 {
		return nil, &ExecutionError{Err: fmt.Errorf("price simulated fill: non-positive price %v", price)}
	}
	px := decimal.NewFromFloat(price)
	keep := decimal.NewFromInt(1).Sub(a.Fee)

	a.mu.Lock()
	switch side {
	case model.SideBuy:
		if funds.GreaterThan(a.funds) {
			a.mu.Unlock()
			return nil, &OrderRejectedError{Reason: fmt.Sprintf("funds %s exceed %s balance %s", funds, a.Quote, a.funds)}
		}
		a.funds = a.funds.Sub(funds)
		a.coin = a.coin.Add(funds.Mul(keep).Div(px))
	case model.SideSell:
		if size.GreaterThan(a.coin) {
			a.mu.Unlock()
			return nil, &OrderRejectedError{Reason: fmt.Sprintf("size %s exceeds %s balance %s", size, a.Base, a.coin)}
		}
		a.coin = a.coin.Sub(size)
		a.funds = a.funds.Add(size.Mul(px).Mul(keep))
	}
	a.mu.Unlock()

	receipt := &model.OrderReceipt{
		ID:        uuid.NewString(),
		Product:   a.product(),
		Side:      side,
		Size:      size,
		Funds:     funds,
		Status:    "done",
		CreatedAt: a.Prices.Now(),
	}
	if err := a.Orders.RecordOrder(ctx, *receipt); err != nil {
		log.Error().Err(err).Str("order_id", receipt.ID).Msg("record order")
	}
	log.Info().Str("order_id", receipt.ID).Str("side", string(side)).Float64("price", price).Msg("simulated fill")
	return receipt, nil
}
