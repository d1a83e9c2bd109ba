package analysis

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"Cryptobot/internal/calculator"
	"Cryptobot/internal/model"
	"Cryptobot/internal/recorder"
	"Cryptobot/internal/strategy"
	"Cryptobot/internal/txn"
)

// flatHistory reports the same percent change for every horizon.
type flatHistory struct {
	change float64
	err    error
}

func (f *flatHistory) PercentChange(context.Context, time.Time, bool) (float64, error) {
	return f.change, f.err
}

type fakeAccount struct {
	bal          model.BalanceSnapshot
	orderErr     error
	balanceCalls int
	orders       []*model.TradeDecision
}

func (f *fakeAccount) Balance(_ context.Context, useCache bool) (model.BalanceSnapshot, error) {
	if useCache {
		panic("balance must be fetched uncached before sizing")
	}
	f.balanceCalls++
	return f.bal, nil
}

func (f *fakeAccount) PlaceOrder(_ context.Context, side model.Side, size, funds decimal.Decimal) (*model.OrderReceipt, error) {
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.orders = append(f.orders, &model.TradeDecision{Side: side, Size: size, Funds: funds})
	return &model.OrderReceipt{ID: "o1", Product: "ETH-USD", Side: side, Size: size, Funds: funds, Status: "done"}, nil
}

type event struct {
	kind model.EventKind
	msg  string
}

type fakeNotifier struct{ events []event }

func (f *fakeNotifier) Emit(kind model.EventKind, msg string) {
	f.events = append(f.events, event{kind, msg})
}

type fixture struct {
	analyzer *Analyzer
	history  *flatHistory
	scores   *recorder.MemoryRecorder
	account  *fakeAccount
	notes    *fakeNotifier
}

func newFixture(t *testing.T, change float64) *fixture {
	t.Helper()
	h := &flatHistory{change: change}
	calc, err := calculator.NewCalculator(h, calculator.DefaultWeights, 0)
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}
	f := &fixture{
		history: h,
		scores:  recorder.NewMemoryRecorder(),
		account: &fakeAccount{bal: model.BalanceSnapshot{
			Base:  model.CurrencyBalance{Currency: "ETH", Available: 10, Total: 10},
			Quote: model.CurrencyBalance{Currency: "USD", Available: 1000, Total: 1000},
		}},
		notes: &fakeNotifier{},
	}
	f.analyzer = &Analyzer{
		Product: "ETH-USD",
		Coin:    "ETH",
		Quote:   "USD",
		Calc:    calc,
		Guard:   strategy.NewGuard(time.Hour, 5*time.Minute),
		Policy: strategy.Policy{
			Volatility:     2500,
			MaxScore:       4,
			MinBaseSize:    decimal.RequireFromString("0.1"),
			MinQuoteFunds:  decimal.RequireFromString("50"),
			BaseIncrement:  decimal.RequireFromString("0.00000001"),
			QuoteIncrement: decimal.RequireFromString("0.01"),
		},
		Scores:   f.scores,
		Account:  f.account,
		Notifier: f.notes,
	}
	return f
}

func (f *fixture) seed(at time.Time, score float64) {
	f.scores.AppendScore(context.Background(), model.ScoreRecord{Product: "ETH-USD", Timestamp: at, Score: score})
}

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRun_FirstRunStoresAndDoesNotTrade(t *testing.T) {
	f := newFixture(t, 0.05)
	res, err := f.analyzer.Run(context.Background(), now, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Outcome != OutcomeFirstRun {
		t.Errorf("expected first run, got %s", res.Outcome)
	}
	if got := len(f.scores.Scores()); got != 1 {
		t.Errorf("expected the score to be stored, got %d records", got)
	}
	if f.account.balanceCalls != 0 || len(f.account.orders) != 0 {
		t.Error("first run must not touch the account")
	}
}

func TestRun_TooSoonComputesNothing(t *testing.T) {
	f := newFixture(t, 0.05)
	f.seed(now.Add(-30*time.Minute), 0.1)
	f.history.err = errors.New("must not be called")

	res, err := f.analyzer.Run(context.Background(), now, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Outcome != OutcomeTooSoon {
		t.Errorf("expected too soon, got %s", res.Outcome)
	}
	if got := len(f.scores.Scores()); got != 1 {
		t.Errorf("nothing may be stored when too soon, got %d records", got)
	}
}

func TestRun_StaleStoresButDoesNotAct(t *testing.T) {
	f := newFixture(t, 0.5)
	f.seed(now.Add(-3*time.Hour), -3)

	res, err := f.analyzer.Run(context.Background(), now, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Outcome != OutcomeStale {
		t.Errorf("expected stale, got %s", res.Outcome)
	}
	if got := len(f.scores.Scores()); got != 2 {
		t.Errorf("expected the fresh score to be stored, got %d records", got)
	}
	if len(f.account.orders) != 0 {
		t.Error("a stale delta must never be acted on")
	}
}

func TestRun_SkipsLogAtInfo(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	f := newFixture(t, 0.5)
	f.seed(now.Add(-3*time.Hour), -3)
	if _, err := f.analyzer.Run(context.Background(), now, false); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, "stale") && !strings.Contains(line, `"level":"info"`) {
			t.Errorf("stale skip must log at info: %s", line)
		}
	}
	if !strings.Contains(buf.String(), "previous score is stale") {
		t.Error("expected the stale skip to be logged")
	}
}

func TestRun_PlacesOrderAndNotifies(t *testing.T) {
	f := newFixture(t, 0.5)
	f.seed(now.Add(-time.Hour), -1)

	res, err := f.analyzer.Run(context.Background(), now, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Outcome != OutcomeOrdered || res.Receipt == nil {
		t.Fatalf("expected an order, got %+v", res)
	}
	if len(f.account.orders) != 1 || f.account.orders[0].Side != model.SideBuy {
		t.Fatalf("expected one buy, got %+v", f.account.orders)
	}
	if f.account.orders[0].Funds.GreaterThan(decimal.NewFromInt(1000)) {
		t.Errorf("funds above available: %s", f.account.orders[0].Funds)
	}
	if len(f.notes.events) != 1 || f.notes.events[0].kind != model.EventOrder {
		t.Errorf("expected an order event, got %+v", f.notes.events)
	}
}

func TestRun_NoMovementNoAction(t *testing.T) {
	f := newFixture(t, 0.02)
	score, _ := f.analyzer.Calc.ComputeScore(context.Background(), now)
	f.seed(now.Add(-time.Hour), score)

	res, err := f.analyzer.Run(context.Background(), now, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Outcome != OutcomeNoAction {
		t.Errorf("expected no action, got %s", res.Outcome)
	}
	if f.account.balanceCalls != 0 {
		t.Error("balance should not be fetched when the change is below the threshold")
	}
}

func TestRun_TestRunNeverPersistsOrTrades(t *testing.T) {
	f := newFixture(t, 0.5)
	f.seed(now.Add(-10*time.Minute), -1)

	res, err := f.analyzer.Run(context.Background(), now, true)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Outcome != OutcomeTestRun || res.Decision == nil {
		t.Fatalf("expected a test run with a decision, got %+v", res)
	}
	if got := len(f.scores.Scores()); got != 1 {
		t.Errorf("test runs must not persist, got %d records", got)
	}
	if len(f.account.orders) != 0 || len(f.notes.events) != 0 {
		t.Error("test runs must not trade or notify")
	}
}

func TestRun_InsufficientHistory(t *testing.T) {
	f := newFixture(t, 0)
	f.history.err = errors.New("no candle")

	_, err := f.analyzer.Run(context.Background(), now, false)
	if !errors.Is(err, calculator.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
	if len(f.scores.Scores()) != 0 {
		t.Error("a failed computation must not be stored")
	}
	if len(f.notes.events) != 1 || f.notes.events[0].kind != model.EventError {
		t.Errorf("expected an error event, got %+v", f.notes.events)
	}
}

func TestRun_OrderFailureIsSurfaced(t *testing.T) {
	f := newFixture(t, 0.5)
	f.seed(now.Add(-time.Hour), -1)
	f.account.orderErr = &txn.OrderRejectedError{Reason: "permission denied"}

	_, err := f.analyzer.Run(context.Background(), now, false)
	var rejected *txn.OrderRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected OrderRejectedError, got %v", err)
	}
	if len(f.notes.events) != 1 || f.notes.events[0].kind != model.EventError {
		t.Errorf("expected an error event, got %+v", f.notes.events)
	}
}

func TestRun_UnclassifiableMarket(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(now.Add(-time.Hour), 2)

	_, err := f.analyzer.Run(context.Background(), now, false)
	if !errors.Is(err, strategy.ErrUnclassifiableMarket) {
		t.Fatalf("expected ErrUnclassifiableMarket, got %v", err)
	}
}
