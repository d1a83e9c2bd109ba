package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"Cryptobot/internal/model"
)

func openTemp(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLite_LatestScore(t *testing.T) {
	r := openTemp(t)
	ctx := context.Background()

	latest, err := r.LatestScore(ctx, "ETH-USD")
	if err != nil || latest != nil {
		t.Fatalf("expected no record on an empty store, got %+v, %v", latest, err)
	}

	base := time.Unix(1_700_000_000, 0)
	for i, score := range []float64{0.1, -0.2, 0.3} {
		if err := r.AppendScore(ctx, model.ScoreRecord{Product: "ETH-USD", Timestamp: base.Add(time.Duration(i) * time.Hour), Score: score}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := r.AppendScore(ctx, model.ScoreRecord{Product: "BTC-USD", Timestamp: base.Add(5 * time.Hour), Score: 9}); err != nil {
		t.Fatalf("append: %v", err)
	}

	latest, err = r.LatestScore(ctx, "ETH-USD")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.Score != 0.3 || !latest.Timestamp.Equal(base.Add(2*time.Hour)) {
		t.Errorf("unexpected latest record %+v", latest)
	}
}

func TestSQLite_NearestPrice(t *testing.T) {
	r := openTemp(t)
	ctx := context.Background()
	at := time.Unix(1_700_000_000, 0)

	samples := []model.PriceSample{
		{Product: "ETH-USD", Time: at.Add(-4 * time.Minute), Spot: 100, Source: "historic"},
		{Product: "ETH-USD", Time: at.Add(90 * time.Second), Spot: 101, Bid: 100.9, Ask: 101.1, Volume: 3, Source: "current"},
		{Product: "BTC-USD", Time: at, Spot: 30000, Source: "current"},
	}
	for _, s := range samples {
		if err := r.RecordPrice(ctx, s); err != nil {
			t.Fatalf("record price: %v", err)
		}
	}

	got, err := r.NearestPrice(ctx, "ETH-USD", at, 5*time.Minute)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if got == nil || got.Spot != 101 || got.Bid != 100.9 || got.Source != "current" {
		t.Errorf("unexpected sample %+v", got)
	}

	got, err = r.NearestPrice(ctx, "ETH-USD", at.Add(time.Hour), 5*time.Minute)
	if err != nil || got != nil {
		t.Errorf("expected no sample outside the tolerance, got %+v, %v", got, err)
	}
}

func TestSQLite_OrdersAndPortfolio(t *testing.T) {
	r := openTemp(t)
	ctx := context.Background()
	at := time.Unix(1_700_000_000, 0)

	receipts := []model.OrderReceipt{
		{ID: "a", Product: "ETH-USD", Side: model.SideBuy, Funds: decimal.NewFromInt(500), Status: "pending", CreatedAt: at},
		{ID: "b", Product: "ETH-USD", Side: model.SideSell, Size: decimal.RequireFromString("0.25"), Status: "done", CreatedAt: at.Add(time.Hour)},
	}
	for _, o := range receipts {
		if err := r.RecordOrder(ctx, o); err != nil {
			t.Fatalf("record order: %v", err)
		}
	}
	orders, err := r.RecentOrders(ctx, "ETH-USD", 10)
	if err != nil {
		t.Fatalf("recent orders: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != "b" || !orders[0].Size.Equal(decimal.RequireFromString("0.25")) {
		t.Errorf("unexpected orders %+v", orders)
	}
	if orders[1].Side != model.SideBuy || !orders[1].Funds.Equal(decimal.NewFromInt(500)) {
		t.Errorf("unexpected buy order %+v", orders[1])
	}

	bal := model.BalanceSnapshot{
		Base:  model.CurrencyBalance{Currency: "ETH", Total: 1.5},
		Quote: model.CurrencyBalance{Currency: "USD", Total: 250},
	}
	if err := r.RecordPortfolio(ctx, "ETH-USD", at, bal); err != nil {
		t.Fatalf("record portfolio: %v", err)
	}
}
