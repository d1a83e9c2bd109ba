package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"Cryptobot/internal/model"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	// WAL mode for better concurrent read performance (dashboards read while the bot writes).
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS movement_score_history (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			product_id TEXT NOT NULL,
			score      REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_score_product_ts ON movement_score_history(product_id, timestamp)`,

		`CREATE TABLE IF NOT EXISTS price_history (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			unixts     INTEGER NOT NULL,
			product_id TEXT NOT NULL,
			spot       REAL NOT NULL,
			bid        REAL,
			ask        REAL,
			volume     REAL,
			source     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_product_ts ON price_history(product_id, unixts)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			product_id TEXT NOT NULL,
			order_id   TEXT NOT NULL,
			side       TEXT,
			size       TEXT,
			funds      TEXT,
			status     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_ts ON orders(timestamp)`,

		`CREATE TABLE IF NOT EXISTS portfolio_history (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			product_id TEXT NOT NULL,
			coin       REAL NOT NULL,
			quote      REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_portfolio_ts ON portfolio_history(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) AppendScore(ctx context.Context, rec model.ScoreRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO movement_score_history
		(timestamp, product_id, score) VALUES (?,?,?)`,
		rec.Timestamp.Unix(), rec.Product, rec.Score,
	)
	return err
}

func (r *SQLiteRecorder) LatestScore(ctx context.Context, product string) (*model.ScoreRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ts int64
	rec := &model.ScoreRecord{Product: product}
	err := r.db.QueryRowContext(ctx, `SELECT timestamp, score FROM movement_score_history
		WHERE product_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1`, product,
	).Scan(&ts, &rec.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest score: %w", err)
	}
	rec.Timestamp = time.Unix(ts, 0)
	return rec, nil
}

func (r *SQLiteRecorder) RecordPrice(ctx context.Context, s model.PriceSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO price_history
		(unixts, product_id, spot, bid, ask, volume, source) VALUES (?,?,?,?,?,?,?)`,
		s.Time.Unix(), s.Product, s.Spot, s.Bid, s.Ask, s.Volume, s.Source,
	)
	return err
}

func (r *SQLiteRecorder) NearestPrice(ctx context.Context, product string, at time.Time, tolerance time.Duration) (*model.PriceSample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := at.Unix()
	tol := int64(tolerance / time.Second)
	var unixts int64
	var bid, ask, volume sql.NullFloat64
	s := &model.PriceSample{Product: product}
	err := r.db.QueryRowContext(ctx, `SELECT unixts, spot, bid, ask, volume, source FROM price_history
		WHERE product_id = ? AND unixts BETWEEN ? AND ?
		ORDER BY ABS(unixts - ?) ASC, id DESC LIMIT 1`,
		product, ts-tol, ts+tol, ts,
	).Scan(&unixts, &s.Spot, &bid, &ask, &volume, &s.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("nearest price: %w", err)
	}
	s.Time = time.Unix(unixts, 0)
	s.Bid, s.Ask, s.Volume = bid.Float64, ask.Float64, volume.Float64
	return s, nil
}

func (r *SQLiteRecorder) RecordOrder(ctx context.Context, o model.OrderReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO orders
		(timestamp, product_id, order_id, side, size, funds, status) VALUES (?,?,?,?,?,?,?)`,
		o.CreatedAt.Unix(), o.Product, o.ID, string(o.Side), o.Size.String(), o.Funds.String(), o.Status,
	)
	return err
}

func (r *SQLiteRecorder) RecentOrders(ctx context.Context, product string, limit int) ([]model.OrderReceipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `SELECT timestamp, order_id, side, size, funds, status FROM orders
		WHERE product_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, product, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []model.OrderReceipt
	for rows.Next() {
		var ts int64
		var side, size, funds string
		o := model.OrderReceipt{Product: product}
		if err := rows.Scan(&ts, &o.ID, &side, &size, &funds, &o.Status); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.CreatedAt = time.Unix(ts, 0)
		o.Side = model.Side(side)
		if o.Size, err = decimal.NewFromString(size); err != nil {
			return nil, fmt.Errorf("order %s size: %w", o.ID, err)
		}
		if o.Funds, err = decimal.NewFromString(funds); err != nil {
			return nil, fmt.Errorf("order %s funds: %w", o.ID, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) RecordPortfolio(ctx context.Context, product string, at time.Time, bal model.BalanceSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO portfolio_history
		(timestamp, product_id, coin, quote) VALUES (?,?,?,?)`,
		at.Unix(), product, bal.Base.Total, bal.Quote.Total,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
