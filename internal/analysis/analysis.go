package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"Cryptobot/internal/calculator"
	"Cryptobot/internal/model"
	"Cryptobot/internal/notifier"
	"Cryptobot/internal/recorder"
	"Cryptobot/internal/strategy"
	"Cryptobot/internal/txn"
)

// Outcome is how an analysis cycle ended.
type Outcome string

const (
	OutcomeTooSoon  Outcome = "skipped_too_soon"
	OutcomeStale    Outcome = "skipped_stale"
	OutcomeFirstRun Outcome = "first_run"
	OutcomeNoAction Outcome = "no_action"
	OutcomeOrdered  Outcome = "ordered"
	OutcomeTestRun  Outcome = "test_run"
	OutcomeFailed   Outcome = "failed"
)

// Result describes one cycle.
type Result struct {
	Outcome  Outcome
	Verdict  strategy.Verdict
	Score    float64
	Previous *float64
	Decision *model.TradeDecision
	Receipt  *model.OrderReceipt
}

func (r *Result) String() string {
	s := fmt.Sprintf("outcome %s", r.Outcome)
	if r.Outcome == OutcomeTooSoon {
		return s + ", " + r.Verdict.String()
	}
	s += fmt.Sprintf(", score %+.4f", r.Score)
	if r.Previous != nil {
		s += fmt.Sprintf(", previous %+.4f", *r.Previous)
	}
	if d := r.Decision; d != nil {
		s += fmt.Sprintf(", decision %s size=%s funds=%s (change %.4f, multiplier %.4f)",
			d.Side, d.Size, d.Funds, d.ChangeScore, d.Multiplier)
	}
	return s
}

// Analyzer runs the hourly decision cycle for one product.
type Analyzer struct {
	Product     string
	Coin, Quote string
	Calc        *calculator.Calculator
	Guard       strategy.Guard
	Policy      strategy.Policy
	Scores      recorder.ScoreStore
	Account     txn.Account
	Notifier    notifier.Notifier
}

// Run executes one cycle at now. A test run ignores the guard, stores nothing and never
// places an order; it reports what a real cycle would decide.
// Callers must not run two cycles for the same product concurrently.
func (a *Analyzer) Run(ctx context.Context, now time.Time, testRun bool) (*Result, error) {
	last, err := a.Scores.LatestScore(ctx, a.Product)
	if err != nil {
		return a.fail(fmt.Errorf("read last score: %w", err))
	}

	res := &Result{}
	if !testRun {
		res.Verdict = a.Guard.Check(now, last)
		if res.Verdict.Skip == strategy.SkipTooSoon {
			log.Info().Str("product", a.Product).Stringer("verdict", res.Verdict).Msg("analysis skipped")
			res.Outcome = OutcomeTooSoon
			return res, nil
		}
	}

	score, err := a.Calc.ComputeScore(ctx, now)
	if err != nil {
		return a.fail(fmt.Errorf("compute movement score: %w", err))
	}
	res.Score = score
	log.Info().Str("product", a.Product).Float64("score", score).Bool("test_run", testRun).Msg("movement score computed")

	switch {
	case testRun:
		res.Outcome = OutcomeTestRun
		if last != nil {
			prev := last.Score
			res.Previous = &prev
		}
	default:
		if err := a.Scores.AppendScore(ctx, model.ScoreRecord{Product: a.Product, Timestamp: now, Score: score}); err != nil {
			return a.fail(fmt.Errorf("store movement score: %w", err))
		}
		res.Previous = res.Verdict.Previous
		switch {
		case res.Verdict.Skip == strategy.SkipStale:
			log.Info().Str("product", a.Product).Stringer("verdict", res.Verdict).Msg("previous score is stale, not acting")
			res.Outcome = OutcomeStale
			return res, nil
		case res.Verdict.FirstRun():
			log.Info().Str("product", a.Product).Msg("first run, nothing to compare against")
			res.Outcome = OutcomeFirstRun
			return res, nil
		}
	}
	if res.Previous == nil {
		return res, nil
	}

	act, change, err := a.Policy.ShouldAct(score, *res.Previous)
	if err != nil {
		return a.fail(err)
	}
	if !act {
		log.Info().Float64("change", change).Msg("movement change too small to act")
		if !testRun {
			res.Outcome = OutcomeNoAction
		}
		return res, nil
	}

	bal, err := a.Account.Balance(ctx, false)
	if err != nil {
		return a.fail(fmt.Errorf("fetch balance: %w", err))
	}
	d, err := a.Policy.Decide(score, *res.Previous, bal)
	if err != nil {
		return a.fail(err)
	}
	res.Decision = d
	if d == nil {
		log.Info().Float64("change", change).Msg("order would be below the minimum trade size")
		if !testRun {
			res.Outcome = OutcomeNoAction
		}
		return res, nil
	}
	if testRun {
		return res, nil
	}

	receipt, err := a.Account.PlaceOrder(ctx, d.Side, d.Size, d.Funds)
	if err != nil {
		return a.fail(fmt.Errorf("place %s order: %w", d.Side, err))
	}
	res.Receipt = receipt
	res.Outcome = OutcomeOrdered
	a.Notifier.Emit(model.EventOrder, notifier.FormatOrder(receipt, d, a.Coin, a.Quote))
	return res, nil
}

func (a *Analyzer) fail(err error) (*Result, error) {
	var rejected *txn.OrderRejectedError
	if errors.As(err, &rejected) {
		log.Error().Err(err).Str("product", a.Product).Msg("order rejected")
	} else {
		log.Error().Err(err).Str("product", a.Product).Msg("analysis failed")
	}
	a.Notifier.Emit(model.EventError, fmt.Sprintf("Analysis of %s failed: %v", a.Product, err))
	return &Result{Outcome: OutcomeFailed}, err
}
