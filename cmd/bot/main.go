package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"Cryptobot/internal/analysis"
	"Cryptobot/internal/calculator"
	"Cryptobot/internal/coinbase"
	"Cryptobot/internal/config"
	"Cryptobot/internal/flash"
	"Cryptobot/internal/history"
	"Cryptobot/internal/metrics"
	"Cryptobot/internal/notifier"
	"Cryptobot/internal/recorder"
	"Cryptobot/internal/scheduler"
	"Cryptobot/internal/strategy"
	"Cryptobot/internal/txn"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
	log.Info().Msg("Cryptobot starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	level, err := zerolog.ParseLevel(cfg.Bot.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Str("level", cfg.Bot.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	rules, err := cfg.FlashRules()
	if err != nil {
		log.Fatal().Err(err).Msg("parse flash rules")
	}
	product := cfg.Bot.Product()

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using memory")
			rec = recorder.NewMemoryRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewMemoryRecorder()
	}
	defer rec.Close()

	// Init harnesses
	var (
		histDeps = history.Deps{Prices: rec}
		txnDeps  = txn.Deps{Recorder: rec}
	)
	if cfg.Bot.HistoryHarness == config.HarnessCoinbase || cfg.Bot.TxnHarness == config.HarnessCoinbase {
		client := coinbase.NewClient(cfg.Coinbase.BaseURL, cfg.Coinbase.APIKey, cfg.Coinbase.APISecret,
			cfg.Coinbase.APIPassphrase, time.Duration(cfg.Coinbase.APIDelayMs)*time.Millisecond, cfg.Proxy)
		histDeps.Market = client
		txnDeps.Exchange = client
	}
	if cfg.Bot.HistoryHarness == config.HarnessSim {
		priceDB, err := recorder.NewSQLiteRecorder(cfg.Sim.PriceDB)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Sim.PriceDB).Msg("open sim price db")
		}
		defer priceDB.Close()
		histDeps.SimPrices = priceDB
	}
	provider, err := history.New(cfg, histDeps)
	if err != nil {
		log.Fatal().Err(err).Msg("init history provider")
	}
	txnDeps.Prices = provider
	account, err := txn.New(cfg, txnDeps)
	if err != nil {
		log.Fatal().Err(err).Msg("init account")
	}
	log.Info().Str("product", product).Str("history", cfg.Bot.HistoryHarness).
		Str("txn", cfg.Bot.TxnHarness).Int("flash_rules", len(rules)).Msg("harnesses ready")

	// Init decision engine
	calc, err := calculator.NewCalculator(provider, calculator.DefaultWeights, cfg.Bot.MaxScore)
	if err != nil {
		log.Fatal().Err(err).Msg("init calculator")
	}
	policy, err := strategy.NewPolicy(cfg.Bot, calc.MaxScore)
	if err != nil {
		log.Fatal().Err(err).Msg("init policy")
	}

	// Init notifications
	dispatcher := notifier.NewDispatcher()
	var tg *notifier.TelegramChannel
	if tgCfg := cfg.Notifications.Telegram; tgCfg.BotToken != "" && tgCfg.ChatID != 0 {
		tg, err = notifier.NewTelegramChannel(tgCfg.BotToken, tgCfg.ChatID, cfg.Proxy)
		if err != nil {
			log.Error().Err(err).Msg("init telegram, channel disabled")
			tg = nil
		} else if len(tgCfg.Handle) > 0 {
			dispatcher.Add(tg, tgCfg.Handle)
		}
	}
	if email := cfg.Notifications.Email; len(email.Handle) > 0 {
		dispatcher.Add(notifier.NewWebhookChannel(email.WebhookURL, email.To, cfg.Proxy), email.Handle)
	}

	analyzer := &analysis.Analyzer{
		Product:  product,
		Coin:     cfg.Bot.Coin,
		Quote:    cfg.Bot.Quote,
		Calc:     calc,
		Guard:    strategy.NewGuard(cfg.Bot.Cadence(), cfg.Bot.Buffer()),
		Policy:   policy,
		Scores:   rec,
		Account:  account,
		Notifier: dispatcher,
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("metrics server shutdown")
			}
		}()
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, analyzer, flash.NewDetector(provider), rules, provider, account, rec, dispatcher)
	if err := sched.RegisterAll(cfg.Schedule.AnalysisCron, cfg.Schedule.FlashCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	if tg != nil {
		go tg.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, running analysis now")
		go sched.AnalysisTick()
	}

	log.Info().Msg("Cryptobot is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
}
