package history

import (
	"fmt"
	"time"

	"Cryptobot/internal/config"
	"Cryptobot/internal/recorder"
)

// Deps are the collaborators a provider may need.
type Deps struct {
	Market MarketData
	// Prices records what the exchange provider observes.
	Prices recorder.PriceStore
	// SimPrices is the recorded history replayed by the sim provider.
	SimPrices recorder.PriceStore
}

// New selects the provider named by cfg.Bot.HistoryHarness.
func New(cfg *config.Config, deps Deps) (Provider, error) {
	product := cfg.Bot.Product()
	switch cfg.Bot.HistoryHarness {
	case config.HarnessCoinbase:
		if deps.Market == nil || deps.Prices == nil {
			return nil, fmt.Errorf("coinbase history needs an exchange client and a price store")
		}
		ttl := time.Duration(cfg.Coinbase.CacheTTLSeconds) * time.Second
		return NewCoinbaseProvider(deps.Market, deps.Prices, product, ttl), nil
	case config.HarnessSim:
		if deps.SimPrices == nil {
			return nil, fmt.Errorf("sim history needs a price store")
		}
		start := time.Unix(cfg.Sim.StartTime, 0)
		if cfg.Sim.StartTime == 0 {
			start = time.Now()
		}
		return NewSimProvider(deps.SimPrices, product, start), nil
	default:
		return nil, fmt.Errorf("%w: unknown history harness %q", config.ErrInvalidConfig, cfg.Bot.HistoryHarness)
	}
}
