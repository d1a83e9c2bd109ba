package history

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoData is returned when no price is known near the requested time.
var ErrNoData = errors.New("no price data")

// SampleTolerance is how far a stored sample may be from the requested time and still count.
const SampleTolerance = 5 * time.Minute

// Provider supplies current and historic prices for the configured product.
type Provider interface {
	// Now is the provider's clock; simulated providers return simulated time.
	Now() time.Time
	CurrentPrice(ctx context.Context, useCache bool) (float64, error)
	// PriceAt fails with ErrNoData when no sample exists within SampleTolerance of t.
	PriceAt(ctx context.Context, t time.Time) (float64, error)
	// PercentChange is (current - price at t) / price at t.
	PercentChange(ctx context.Context, t time.Time, useCache bool) (float64, error)
}

func percentChange(ctx context.Context, p Provider, t time.Time, useCache bool) (float64, error) {
	current, err := p.CurrentPrice(ctx, useCache)
	if err != nil {
		return 0, err
	}
	then, err := p.PriceAt(ctx, t)
	if err != nil {
		return 0, err
	}
	if then == 0 {
		return 0, fmt.Errorf("%w: zero price at %s", ErrNoData, t.UTC().Format(time.RFC3339))
	}
	return (current - then) / then, nil
}
