package calculator

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"Cryptobot/internal/model"
)

type fakeHistory struct {
	now     time.Time
	changes map[int]float64 // hours ago -> percent change
}

func (f *fakeHistory) PercentChange(_ context.Context, at time.Time, _ bool) (float64, error) {
	hours := int(f.now.Sub(at) / time.Hour)
	change, ok := f.changes[hours]
	if !ok {
		return 0, errors.New("no data")
	}
	return change, nil
}

func TestCurve_SignAndBound(t *testing.T) {
	for _, m := range []float64{1, 4, 5} {
		for _, x := range []float64{1e-9, 0.001, 0.019, 0.5, 1, 10, 1e6, 1e12} {
			pos := Curve(x, m)
			neg := Curve(-x, m)
			if pos <= 0 {
				t.Errorf("Curve(%g, %g) = %g, want positive", x, m, pos)
			}
			if neg >= 0 {
				t.Errorf("Curve(%g, %g) = %g, want negative", -x, m, neg)
			}
			if math.Abs(pos) >= m {
				t.Errorf("Curve(%g, %g) = %g, want |score| < %g", x, m, pos, m)
			}
			if pos != -neg {
				t.Errorf("Curve not odd-symmetric at %g: %g vs %g", x, pos, neg)
			}
		}
	}
}

func TestCurve_StrictlyIncreasing(t *testing.T) {
	prev := Curve(1e-6, 4)
	for _, x := range []float64{1e-4, 0.01, 0.1, 0.5, 1, 2, 10, 100, 1000} {
		cur := Curve(x, 4)
		if cur <= prev {
			t.Fatalf("Curve(%g) = %g not greater than previous %g", x, cur, prev)
		}
		prev = cur
	}
}

func TestCurve_Zero(t *testing.T) {
	if got := Curve(0, 4); got != 0 {
		t.Errorf("Curve(0) = %g, want 0", got)
	}
}

func TestComputeScore_WeightedScenario(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	h := &fakeHistory{now: now, changes: map[int]float64{
		1:   0.02,
		24:  0.01,
		168: 0.03,
		672: 0.00,
	}}
	c, err := NewCalculator(h, DefaultWeights, 0)
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}
	if c.MaxScore != 4 {
		t.Fatalf("expected max score to default to horizon count, got %g", c.MaxScore)
	}

	raw, err := c.RawScore(context.Background(), now)
	if err != nil {
		t.Fatalf("raw score: %v", err)
	}
	if math.Abs(raw-0.017) > 1e-12 {
		t.Errorf("raw score = %g, want 0.017", raw)
	}

	score, err := c.ComputeScore(context.Background(), now)
	if err != nil {
		t.Fatalf("compute score: %v", err)
	}
	if score <= 0 {
		t.Errorf("expected bull score, got %g", score)
	}
	if score > 0.1 {
		t.Errorf("expected |score| far below 4, got %g", score)
	}
	if want := Curve(raw, 4); score != want {
		t.Errorf("score = %g, want %g", score, want)
	}
}

func TestComputeScore_InsufficientHistory(t *testing.T) {
	now := time.Now()
	h := &fakeHistory{now: now, changes: map[int]float64{1: 0.01, 24: 0.02, 168: 0.01}}
	c, err := NewCalculator(h, DefaultWeights, 0)
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}
	if _, err := c.ComputeScore(context.Background(), now); !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestNewCalculator_RejectsBadWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights model.WeightSet
	}{
		{"empty", nil},
		{"negative weight", model.WeightSet{{Hours: 1, Weight: -0.1}}},
		{"zero horizon", model.WeightSet{{Hours: 0, Weight: 0.5}}},
		{"nan weight", model.WeightSet{{Hours: 1, Weight: math.NaN()}}},
	}
	for _, tt := range tests {
		if _, err := NewCalculator(&fakeHistory{}, tt.weights, 0); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}
