package txn

import (
	"fmt"
	"time"

	"Cryptobot/internal/config"
	"Cryptobot/internal/recorder"
)

// Deps are the collaborators an account may need.
type Deps struct {
	Exchange Exchange
	Recorder interface {
		recorder.OrderLog
		recorder.PortfolioLog
	}
	// Prices fills simulated orders.
	Prices PriceSource
}

// New selects the account named by cfg.Bot.TxnHarness.
func New(cfg *config.Config, deps Deps) (Account, error) {
	if deps.Recorder == nil {
		return nil, fmt.Errorf("accounts need a recorder")
	}
	switch cfg.Bot.TxnHarness {
	case config.HarnessCoinbase:
		if deps.Exchange == nil {
			return nil, fmt.Errorf("coinbase account needs an exchange client")
		}
		ttl := time.Duration(cfg.Coinbase.CacheTTLSeconds) * time.Second
		return NewCoinbaseAccount(deps.Exchange, deps.Recorder, deps.Recorder, cfg.Bot.Coin, cfg.Bot.Quote, ttl, cfg.Coinbase.TradesEnabled()), nil
	case config.HarnessSim:
		if deps.Prices == nil {
			return nil, fmt.Errorf("sim account needs a price source")
		}
		return NewSimAccount(deps.Prices, deps.Recorder, deps.Recorder, cfg.Bot.Coin, cfg.Bot.Quote,
			cfg.Sim.CoinBalance, cfg.Sim.QuoteBalance, cfg.Sim.Fee), nil
	default:
		return nil, fmt.Errorf("%w: unknown txn harness %q", config.ErrInvalidConfig, cfg.Bot.TxnHarness)
	}
}
