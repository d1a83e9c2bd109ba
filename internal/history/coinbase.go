package history

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"Cryptobot/internal/cache"
	"Cryptobot/internal/coinbase"
	"Cryptobot/internal/model"
	"Cryptobot/internal/recorder"
)

// MarketData is the part of the exchange client the provider needs.
type MarketData interface {
	Ticker(ctx context.Context, product string) (coinbase.Ticker, error)
	Candles(ctx context.Context, product string, start, end time.Time, granularity time.Duration) ([]coinbase.Candle, error)
}

// CoinbaseProvider reads prices from the exchange, remembering every price it sees.
type CoinbaseProvider struct {
	Market  MarketData
	Prices  recorder.PriceStore
	Product string

	current *cache.TTL[string, float64]
	clock   func() time.Time
}

// NewCoinbaseProvider creates a provider whose current price is cached for ttl.
func NewCoinbaseProvider(market MarketData, prices recorder.PriceStore, product string, ttl time.Duration) *CoinbaseProvider {
	return &CoinbaseProvider{
		Market:  market,
		Prices:  prices,
		Product: product,
		current: cache.NewTTL[string, float64](ttl, nil),
		clock:   time.Now,
	}
}

func (p *CoinbaseProvider) Now() time.Time { return p.clock() }

func (p *CoinbaseProvider) CurrentPrice(ctx context.Context, useCache bool) (float64, error) {
	if useCache {
		if price, ok := p.current.Get(p.Product); ok {
			return price, nil
		}
	}
	tk, err := p.Market.Ticker(ctx, p.Product)
	if err != nil {
		return 0, fmt.Errorf("current %s price: %w", p.Product, err)
	}
	p.current.Set(p.Product, tk.Price)

	sample := model.PriceSample{
		Product: p.Product, Time: p.clock(),
		Spot: tk.Price, Bid: tk.Bid, Ask: tk.Ask, Volume: tk.Volume,
		Source: "current",
	}
	if err := p.Prices.RecordPrice(ctx, sample); err != nil {
		log.Warn().Err(err).Str("product", p.Product).Msg("record current price")
	}
	return tk.Price, nil
}

func (p *CoinbaseProvider) PriceAt(ctx context.Context, t time.Time) (float64, error) {
	stored, err := p.Prices.NearestPrice(ctx, p.Product, t, SampleTolerance)
	if err != nil {
		return 0, err
	}
	if stored != nil {
		log.Debug().Time("requested", t).Time("found", stored.Time).Float64("spot", stored.Spot).Msg("stored historic price")
		return stored.Spot, nil
	}

	candles, err := p.Market.Candles(ctx, p.Product, t, t.Add(time.Minute), time.Minute)
	if err != nil {
		return 0, fmt.Errorf("%s price at %s: %w", p.Product, t.UTC().Format(time.RFC3339), err)
	}
	if len(candles) == 0 {
		return 0, fmt.Errorf("%w: no %s candle at %s", ErrNoData, p.Product, t.UTC().Format(time.RFC3339))
	}
	// The exchange lists newest first; the last one opens at t.
	c := candles[len(candles)-1]
	if d := c.Time.Sub(t); d >= time.Minute || d <= -time.Minute {
		return 0, fmt.Errorf("%w: nearest %s candle is %s away from %s", ErrNoData, p.Product, d, t.UTC().Format(time.RFC3339))
	}

	sample := model.PriceSample{Product: p.Product, Time: t, Spot: c.Open, Volume: c.Volume, Source: "historic"}
	if err := p.Prices.RecordPrice(ctx, sample); err != nil {
		log.Warn().Err(err).Str("product", p.Product).Msg("record historic price")
	}
	return c.Open, nil
}

func (p *CoinbaseProvider) PercentChange(ctx context.Context, t time.Time, useCache bool) (float64, error) {
	return percentChange(ctx, p, t, useCache)
}
