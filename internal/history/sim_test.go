package history

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"Cryptobot/internal/model"
	"Cryptobot/internal/recorder"
)

func TestSimProvider(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	store := recorder.NewMemoryRecorder()
	ctx := context.Background()
	for i, spot := range []float64{100, 110, 121} {
		store.RecordPrice(ctx, model.PriceSample{Product: "ETH-USD", Time: start.Add(time.Duration(i) * time.Hour), Spot: spot, Source: "sim"})
	}

	p := NewSimProvider(store, "ETH-USD", start)
	if price, err := p.CurrentPrice(ctx, true); err != nil || price != 100 {
		t.Fatalf("expected 100 at start, got %v, %v", price, err)
	}

	p.Advance(2 * time.Hour)
	if !p.Now().Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("unexpected simulated time %s", p.Now())
	}
	change, err := p.PercentChange(ctx, start.Add(time.Hour), true)
	if err != nil || math.Abs(change-0.1) > 1e-12 {
		t.Fatalf("expected 0.1, got %v, %v", change, err)
	}

	p.SetTime(start.Add(10 * time.Hour))
	if _, err := p.CurrentPrice(ctx, false); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData past the recorded history, got %v", err)
	}
}

func TestSimProvider_Memoizes(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	store := recorder.NewMemoryRecorder()
	ctx := context.Background()
	store.RecordPrice(ctx, model.PriceSample{Product: "ETH-USD", Time: start, Spot: 100})

	p := NewSimProvider(store, "ETH-USD", start)
	if _, err := p.PriceAt(ctx, start); err != nil {
		t.Fatalf("price at: %v", err)
	}
	// a closer sample recorded later is not seen for a memoized instant
	store.RecordPrice(ctx, model.PriceSample{Product: "ETH-USD", Time: start, Spot: 999})
	if price, _ := p.PriceAt(ctx, start); price != 100 {
		t.Fatalf("expected memoized 100, got %v", price)
	}
}
