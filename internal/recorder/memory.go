package recorder

import (
	"context"
	"sync"
	"time"

	"Cryptobot/internal/model"
)

// MemoryRecorder keeps everything in process memory. It is used when SQLite is not
// configured and in tests.
type MemoryRecorder struct {
	mu         sync.Mutex
	scores     []model.ScoreRecord
	prices     []model.PriceSample
	orders     []model.OrderReceipt
	portfolios []model.BalanceSnapshot
}

func NewMemoryRecorder() *MemoryRecorder { return &MemoryRecorder{} }

func (m *MemoryRecorder) AppendScore(_ context.Context, rec model.ScoreRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, rec)
	return nil
}

func (m *MemoryRecorder) LatestScore(_ context.Context, product string) (*model.ScoreRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *model.ScoreRecord
	for i := range m.scores {
		rec := m.scores[i]
		if rec.Product != product {
			continue
		}
		if latest == nil || !rec.Timestamp.Before(latest.Timestamp) {
			latest = &rec
		}
	}
	return latest, nil
}

// Scores returns a copy of every stored score record.
func (m *MemoryRecorder) Scores() []model.ScoreRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ScoreRecord(nil), m.scores...)
}

func (m *MemoryRecorder) RecordPrice(_ context.Context, s model.PriceSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices = append(m.prices, s)
	return nil
}

func (m *MemoryRecorder) NearestPrice(_ context.Context, product string, at time.Time, tolerance time.Duration) (*model.PriceSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *model.PriceSample
	var bestDist time.Duration
	for i := range m.prices {
		s := m.prices[i]
		if s.Product != product {
			continue
		}
		dist := s.Time.Sub(at)
		if dist < 0 {
			dist = -dist
		}
		if dist > tolerance {
			continue
		}
		if best == nil || dist <= bestDist {
			best, bestDist = &s, dist
		}
	}
	return best, nil
}

func (m *MemoryRecorder) RecordOrder(_ context.Context, o model.OrderReceipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, o)
	return nil
}

func (m *MemoryRecorder) RecentOrders(_ context.Context, product string, limit int) ([]model.OrderReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.OrderReceipt
	for i := len(m.orders) - 1; i >= 0 && len(out) < limit; i-- {
		if m.orders[i].Product == product {
			out = append(out, m.orders[i])
		}
	}
	return out, nil
}

// Orders returns a copy of every recorded order, oldest first.
func (m *MemoryRecorder) Orders() []model.OrderReceipt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.OrderReceipt(nil), m.orders...)
}

func (m *MemoryRecorder) RecordPortfolio(_ context.Context, _ string, _ time.Time, bal model.BalanceSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portfolios = append(m.portfolios, bal)
	return nil
}

// Portfolios returns a copy of every recorded balance snapshot.
func (m *MemoryRecorder) Portfolios() []model.BalanceSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.BalanceSnapshot(nil), m.portfolios...)
}

func (m *MemoryRecorder) Close() error { return nil }
