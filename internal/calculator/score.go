package calculator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"Cryptobot/internal/model"
)

// ErrInsufficientHistory is returned when a required lookback has no resolvable price.
var ErrInsufficientHistory = errors.New("insufficient price history")

// DefaultWeights weighs recent moves the most. Nothing beyond four weeks is used since yearly
// bubbles would dominate the direction of the longer horizons.
var DefaultWeights = model.WeightSet{
	{Hours: 1, Weight: 0.4},
	{Hours: 24, Weight: 0.3},
	{Hours: 24 * 7, Weight: 0.2},
	{Hours: 24 * 7 * 4, Weight: 0.1},
}

// PercentChanger supplies the percent change between now and a past instant.
type PercentChanger interface {
	PercentChange(ctx context.Context, at time.Time, useCache bool) (float64, error)
}

// Curve bounds a raw score into (-maxScore, maxScore), preserving its sign.
// Curve(0, m) is 0, which callers treat as unclassifiable.
func Curve(x, maxScore float64) float64 {
	if x == 0 {
		return 0
	}
	return math.Copysign(maxScore*(1-1/math.Sqrt(math.Abs(x)+1)), x)
}

// Calculator turns weighted percent changes into a bounded movement score.
type Calculator struct {
	History  PercentChanger
	Weights  model.WeightSet
	MaxScore float64
}

// NewCalculator creates a Calculator. A maxScore <= 0 defaults to the number of horizons.
func NewCalculator(history PercentChanger, weights model.WeightSet, maxScore float64) (*Calculator, error) {
	if len(weights) == 0 {
		return nil, errors.New("weight set is empty")
	}
	for _, h := range weights {
		if h.Hours <= 0 {
			return nil, fmt.Errorf("horizon %dh must be positive", h.Hours)
		}
		if h.Weight < 0 || math.IsNaN(h.Weight) || math.IsInf(h.Weight, 0) {
			return nil, fmt.Errorf("weight %v for %dh must be a non-negative number", h.Weight, h.Hours)
		}
	}
	if maxScore <= 0 {
		maxScore = float64(len(weights))
	}
	return &Calculator{History: history, Weights: weights, MaxScore: maxScore}, nil
}

// RawScore returns the weighted sum of percent changes over every horizon.
func (c *Calculator) RawScore(ctx context.Context, now time.Time) (float64, error) {
	raw := 0.0
	for _, h := range c.Weights {
		at := now.Add(-h.Lookback())
		change, err := c.History.PercentChange(ctx, at, true)
		if err != nil {
			return 0, fmt.Errorf("%w: %dh lookback at %s: %w", ErrInsufficientHistory, h.Hours, at.UTC().Format(time.RFC3339), err)
		}
		raw += h.Weight * change
	}
	return raw, nil
}

// ComputeScore returns the bounded movement score at now.
func (c *Calculator) ComputeScore(ctx context.Context, now time.Time) (float64, error) {
	raw, err := c.RawScore(ctx, now)
	if err != nil {
		return 0, err
	}
	return Curve(raw, c.MaxScore), nil
}
