package txn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"Cryptobot/internal/cache"
	"Cryptobot/internal/coinbase"
	"Cryptobot/internal/model"
	"Cryptobot/internal/recorder"
)

// StatusDisabled marks orders that were logged but not sent because trading is switched off.
const StatusDisabled = "disabled"

// Exchange is the part of the exchange client the account needs.
type Exchange interface {
	Accounts(ctx context.Context) ([]coinbase.Account, error)
	PlaceMarketOrder(ctx context.Context, product, side string, size, funds decimal.Decimal) (coinbase.Order, error)
}

// CoinbaseAccount trades on the exchange.
type CoinbaseAccount struct {
	Exchange      Exchange
	Orders        recorder.OrderLog
	Portfolio     recorder.PortfolioLog
	Base, Quote   string
	TradesEnabled bool

	balance *cache.TTL[string, model.BalanceSnapshot]
	clock   func() time.Time
}

// NewCoinbaseAccount creates an account whose balance is cached for ttl.
func NewCoinbaseAccount(ex Exchange, orders recorder.OrderLog, portfolio recorder.PortfolioLog, base, quote string, ttl time.Duration, tradesEnabled bool) *CoinbaseAccount {
	return &CoinbaseAccount{
		Exchange:      ex,
		Orders:        orders,
		Portfolio:     portfolio,
		Base:          base,
		Quote:         quote,
		TradesEnabled: tradesEnabled,
		balance:       cache.NewTTL[string, model.BalanceSnapshot](ttl, nil),
		clock:         time.Now,
	}
}

func (a *CoinbaseAccount) product() string { return model.ProductID(a.Base, a.Quote) }

func (a *CoinbaseAccount) Balance(ctx context.Context, useCache bool) (model.BalanceSnapshot, error) {
	if useCache {
		if bal, ok := a.balance.Get(a.product()); ok {
			return bal, nil
		}
	}
	accounts, err := a.Exchange.Accounts(ctx)
	if err != nil {
		return model.BalanceSnapshot{}, fmt.Errorf("fetch balance: %w", err)
	}

	var bal model.BalanceSnapshot
	var haveBase, haveQuote bool
	for _, acc := range accounts {
		cb := model.CurrencyBalance{
			Currency:  acc.Currency,
			Available: acc.Available.InexactFloat64(),
			Total:     acc.Balance.InexactFloat64(),
		}
		switch acc.Currency {
		case a.Base:
			bal.Base, haveBase = cb, true
		case a.Quote:
			bal.Quote, haveQuote = cb, true
		}
	}
	if !haveBase || !haveQuote {
		return model.BalanceSnapshot{}, fmt.Errorf("fetch balance: no %s or %s wallet on the account", a.Base, a.Quote)
	}
	a.balance.Set(a.product(), bal)

	if err := a.Portfolio.RecordPortfolio(ctx, a.product(), a.clock(), bal); err != nil {
		log.Warn().Err(err).Msg("record portfolio")
	}
	return bal, nil
}

func (a *CoinbaseAccount) PlaceOrder(ctx context.Context, side model.Side, size, funds decimal.Decimal) (*model.OrderReceipt, error) {
	if err := validateOrder(side, size, funds); err != nil {
		return nil, err
	}
	product := a.product()
	log.Info().Str("product", product).Str("side", string(side)).
		Str("size", size.String()).Str("funds", funds.String()).Msg("placing market order")

	if !a.TradesEnabled {
		log.Warn().Msg("trading is disabled, order not sent")
		receipt := &model.OrderReceipt{
			Product: product, Side: side, Size: size, Funds: funds,
			Status: StatusDisabled, CreatedAt: a.clock(),
		}
		a.record(ctx, *receipt)
		return receipt, nil
	}

	order, err := a.Exchange.PlaceMarketOrder(ctx, product, string(side), size, funds)
	if err != nil {
		var apiErr *coinbase.APIError
		if errors.As(err, &apiErr) {
			if apiErr.Message == "Forbidden" {
				return nil, &OrderRejectedError{Reason: "permission denied, check API key permissions"}
			}
			return nil, &OrderRejectedError{Reason: apiErr.Message}
		}
		return nil, &ExecutionError{Err: err}
	}
	a.balance.Invalidate(product)

	receipt := &model.OrderReceipt{
		ID: order.ID, Product: product, Side: side, Size: size, Funds: funds,
		Status: order.Status, CreatedAt: order.CreatedAt,
	}
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = a.clock()
	}
	a.record(ctx, *receipt)
	return receipt, nil
}

func (a *CoinbaseAccount) record(ctx context.Context, r model.OrderReceipt) {
	if err := a.Orders.RecordOrder(ctx, r); err != nil {
		log.Error().Err(err).Str("order_id", r.ID).Msg("record order")
	}
}
