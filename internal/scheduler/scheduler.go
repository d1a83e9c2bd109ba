package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"Cryptobot/internal/analysis"
	"Cryptobot/internal/flash"
	"Cryptobot/internal/history"
	"Cryptobot/internal/metrics"
	"Cryptobot/internal/model"
	"Cryptobot/internal/notifier"
	"Cryptobot/internal/recorder"
	"Cryptobot/internal/txn"
)

// Scheduler manages all cron tasks and operator commands.
type Scheduler struct {
	Cron       *cron.Cron
	Analyzer   *analysis.Analyzer
	Detector   *flash.Detector
	FlashRules []model.FlashRule
	History    history.Provider
	Account    txn.Account
	Orders     recorder.OrderLog
	Notifier   notifier.Notifier
	Ctx        context.Context

	// clock is set when History runs on a simulated clock
	clock simClock

	// cycles for one product never overlap
	mu sync.Mutex
}

// simClock is a history whose time only moves when told to.
type simClock interface {
	Advance(d time.Duration)
}

// NewScheduler creates a new Scheduler. Jobs that panic are logged and recovered.
func NewScheduler(ctx context.Context, a *analysis.Analyzer, d *flash.Detector, rules []model.FlashRule,
	h history.Provider, acct txn.Account, orders recorder.OrderLog, n notifier.Notifier) *Scheduler {
	s := &Scheduler{
		Cron:       cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cronLogger{}))),
		Analyzer:   a,
		Detector:   d,
		FlashRules: rules,
		History:    h,
		Account:    acct,
		Orders:     orders,
		Notifier:   n,
		Ctx:        ctx,
	}
	if c, ok := h.(simClock); ok {
		s.clock = c
	}
	return s
}

// RegisterAll registers the analysis and flash tasks.
func (s *Scheduler) RegisterAll(analysisCron, flashCron string) error {
	if _, err := s.Cron.AddFunc(analysisCron, func() { s.AnalysisTick() }); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	if len(s.FlashRules) == 0 {
		log.Info().Msg("no flash rules configured, flash task not registered")
		return nil
	}
	if _, err := s.Cron.AddFunc(flashCron, func() { s.RunFlash(s.Ctx) }); err != nil {
		return fmt.Errorf("register flash task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// AnalysisTick is the scheduled analysis job. On a simulated clock each tick is one cadence:
// the cycle runs at the simulated now, then the clock moves forward for the next tick.
func (s *Scheduler) AnalysisTick() (*analysis.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.runAnalysis(s.Ctx, false)
	if s.clock != nil {
		s.clock.Advance(s.Analyzer.Guard.Cadence)
		log.Debug().Time("sim_now", s.History.Now()).Msg("simulated clock advanced")
	}
	return res, err
}

// RunAnalysis runs one analysis cycle, serialized with any other cycle.
func (s *Scheduler) RunAnalysis(ctx context.Context, testRun bool) (*analysis.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runAnalysis(ctx, testRun)
}

func (s *Scheduler) runAnalysis(ctx context.Context, testRun bool) (*analysis.Result, error) {
	log.Info().Bool("test_run", testRun).Msg("running analysis task")
	res, err := s.Analyzer.Run(ctx, s.History.Now(), testRun)
	if res != nil {
		metrics.CyclesTotal.WithLabelValues(string(res.Outcome)).Inc()
		if err == nil && res.Outcome != analysis.OutcomeTooSoon {
			metrics.MovementScore.WithLabelValues(s.Analyzer.Product).Set(res.Score)
		}
		if res.Receipt != nil {
			metrics.OrdersTotal.WithLabelValues(string(res.Receipt.Side)).Inc()
		}
	}
	return res, err
}

// RunFlash evaluates every flash rule once and emits an event for each breach.
func (s *Scheduler) RunFlash(ctx context.Context) int {
	fired := 0
	for evt, err := range s.Detector.Check(ctx, s.FlashRules, s.History.Now()) {
		if err != nil {
			log.Error().Err(err).Msg("flash check failed")
			s.Notifier.Emit(model.EventError, fmt.Sprintf("Flash check failed: %v", err))
			break
		}
		fired++
		metrics.FlashEventsTotal.WithLabelValues(string(evt.Direction)).Inc()
		s.Notifier.Emit(model.EventFlash, flash.Message(evt))
	}
	return fired
}

const helpText = `Available commands:
/analyze - run a test analysis (no order, nothing stored)
/flash - check the flash rules now
/score - show the latest movement score
/balance - show the account balance
/orders - show recent orders
/help - show this message`

// HandleCommand processes an operator command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("command", command).Msg("command panicked")
			reply = fmt.Sprintf("Command failed: %v", r)
		}
	}()
	fields := strings.Fields(strings.ToLower(command))
	if len(fields) == 0 {
		return helpText
	}
	// "/score@cryptobot" in group chats
	cmd, _, _ := strings.Cut(fields[0], "@")

	switch cmd {
	case "/analyze":
		res, err := s.RunAnalysis(ctx, true)
		if err != nil {
			return fmt.Sprintf("Analysis failed: %v", err)
		}
		return "Test analysis: " + res.String()
	case "/flash":
		if len(s.FlashRules) == 0 {
			return "No flash rules configured."
		}
		if n := s.RunFlash(ctx); n > 0 {
			return fmt.Sprintf("%d flash rule(s) triggered.", n)
		}
		return "No flash rule triggered."
	case "/score":
		rec, err := s.Analyzer.Scores.LatestScore(ctx, s.Analyzer.Product)
		if err != nil {
			return fmt.Sprintf("Reading score failed: %v", err)
		}
		return notifier.FormatScore(rec, s.History.Now())
	case "/balance":
		bal, err := s.Account.Balance(ctx, true)
		if err != nil {
			return fmt.Sprintf("Reading balance failed: %v", err)
		}
		price, err := s.History.CurrentPrice(ctx, true)
		if err != nil {
			log.Warn().Err(err).Msg("current price for balance reply")
			price = 0
		}
		return notifier.FormatBalance(bal, price)
	case "/orders":
		orders, err := s.Orders.RecentOrders(ctx, s.Analyzer.Product, 5)
		if err != nil {
			return fmt.Sprintf("Reading orders failed: %v", err)
		}
		return notifier.FormatOrders(orders, s.History.Now())
	default:
		return helpText
	}
}

// cronLogger adapts zerolog to cron.Logger so recovered panics are logged.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
