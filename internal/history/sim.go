package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Cryptobot/internal/recorder"
)

// SimProvider replays prices from a recorded price history on a simulated clock.
type SimProvider struct {
	Prices  recorder.PriceStore
	Product string

	mu   sync.Mutex
	now  time.Time
	memo map[int64]float64
}

// NewSimProvider creates a provider whose clock starts at start.
func NewSimProvider(prices recorder.PriceStore, product string, start time.Time) *SimProvider {
	return &SimProvider{Prices: prices, Product: product, now: start, memo: make(map[int64]float64)}
}

func (p *SimProvider) Now() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now
}

// SetTime moves the simulated clock to t.
func (p *SimProvider) SetTime(t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = t
}

// Advance moves the simulated clock forward by d.
func (p *SimProvider) Advance(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = p.now.Add(d)
}

// CurrentPrice is the price at the simulated now. Caching does not apply.
func (p *SimProvider) CurrentPrice(ctx context.Context, _ bool) (float64, error) {
	return p.PriceAt(ctx, p.Now())
}

func (p *SimProvider) PriceAt(ctx context.Context, t time.Time) (float64, error) {
	key := t.Unix()
	p.mu.Lock()
	price, ok := p.memo[key]
	p.mu.Unlock()
	if ok {
		return price, nil
	}

	s, err := p.Prices.NearestPrice(ctx, p.Product, t, SampleTolerance)
	if err != nil {
		return 0, err
	}
	if s == nil {
		return 0, fmt.Errorf("%w: %s at %s", ErrNoData, p.Product, t.UTC().Format(time.RFC3339))
	}

	p.mu.Lock()
	p.memo[key] = s.Spot
	p.mu.Unlock()
	return s.Spot, nil
}

func (p *SimProvider) PercentChange(ctx context.Context, t time.Time, useCache bool) (float64, error) {
	return percentChange(ctx, p, t, useCache)
}
