package recorder

import (
	"context"
	"time"

	"Cryptobot/internal/model"
)

// ScoreStore keeps the append-only movement score history.
type ScoreStore interface {
	AppendScore(ctx context.Context, rec model.ScoreRecord) error
	// LatestScore returns the most recent record for product, or nil when there is none.
	LatestScore(ctx context.Context, product string) (*model.ScoreRecord, error)
}

// PriceStore keeps observed prices so historic lookups need not hit the exchange twice.
type PriceStore interface {
	RecordPrice(ctx context.Context, s model.PriceSample) error
	// NearestPrice returns the sample closest to at within tolerance, or nil when there is none.
	NearestPrice(ctx context.Context, product string, at time.Time, tolerance time.Duration) (*model.PriceSample, error)
}

// OrderLog records every order handed to the exchange.
type OrderLog interface {
	RecordOrder(ctx context.Context, r model.OrderReceipt) error
	// RecentOrders returns up to limit orders for product, newest first.
	RecentOrders(ctx context.Context, product string, limit int) ([]model.OrderReceipt, error)
}

// PortfolioLog records balance snapshots for stats.
type PortfolioLog interface {
	RecordPortfolio(ctx context.Context, product string, at time.Time, bal model.BalanceSnapshot) error
}

// Recorder persists historical data for analysis.
type Recorder interface {
	ScoreStore
	PriceStore
	OrderLog
	PortfolioLog
	Close() error
}
