package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"Cryptobot/internal/flash"
	"Cryptobot/internal/model"
)

// ErrInvalidConfig is wrapped by every validation failure. It is fatal at startup.
var ErrInvalidConfig = errors.New("invalid config")

// Harness names accepted by bot.history_harness and bot.txn_harness.
const (
	HarnessCoinbase = "coinbase"
	HarnessSim      = "sim"
)

// Bot holds the decision engine settings.
type Bot struct {
	Coin       string  `yaml:"coin"`
	Quote      string  `yaml:"quote"`
	Volatility int     `yaml:"volatility"`
	MaxScore   float64 `yaml:"max_score"` // 0 means the number of horizons
	MinTrade   struct {
		Coin  float64 `yaml:"coin"`
		Quote float64 `yaml:"quote"`
	} `yaml:"min_trade"`
	Increment struct {
		Coin  float64 `yaml:"coin"`
		Quote float64 `yaml:"quote"`
	} `yaml:"increment"`
	Flash          []string `yaml:"flash"`
	HistoryHarness string   `yaml:"history_harness"`
	TxnHarness     string   `yaml:"txn_harness"`
	LogLevel       string   `yaml:"log_level"`
	CadenceSeconds int      `yaml:"cadence_seconds"`
	BufferSeconds  int      `yaml:"buffer_seconds"`
}

// Product returns the exchange product id, e.g. "ETH-USD".
func (b Bot) Product() string { return model.ProductID(b.Coin, b.Quote) }

// Cadence returns the expected time between analysis cycles.
func (b Bot) Cadence() time.Duration { return time.Duration(b.CadenceSeconds) * time.Second }

// Buffer returns the slack allowed around the cadence.
func (b Bot) Buffer() time.Duration { return time.Duration(b.BufferSeconds) * time.Second }

// Coinbase holds exchange credentials and client tuning.
type Coinbase struct {
	BaseURL         string `yaml:"base_url"`
	APIKey          string `yaml:"api_key"`
	APISecret       string `yaml:"api_secret"`
	APIPassphrase   string `yaml:"api_passphrase"`
	APIDelayMs      int    `yaml:"api_delay_ms"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	EnableTrades    *bool  `yaml:"enable_trades"`
}

// TradesEnabled reports whether real orders may be sent. Defaults to true.
func (c Coinbase) TradesEnabled() bool { return c.EnableTrades == nil || *c.EnableTrades }

// Sim holds the simulated harness settings.
type Sim struct {
	PriceDB      string  `yaml:"price_db"`
	StartTime    int64   `yaml:"start_time"` // unix seconds
	CoinBalance  float64 `yaml:"coin_balance"`
	QuoteBalance float64 `yaml:"quote_balance"`
	Fee          float64 `yaml:"fee"`
}

// Channel lists the event kinds a notification channel handles.
type Channel struct {
	Handle []string `yaml:"handle"`
}

// Config holds all application configuration.
type Config struct {
	Bot      Bot `yaml:"bot"`
	Schedule struct {
		AnalysisCron string `yaml:"analysis_cron"`
		FlashCron    string `yaml:"flash_cron"`
	} `yaml:"schedule"`
	Coinbase      Coinbase `yaml:"coinbase"`
	Sim           Sim      `yaml:"sim"`
	Notifications struct {
		Telegram struct {
			Channel  `yaml:",inline"`
			BotToken string `yaml:"bot_token"`
			ChatID   int64  `yaml:"chat_id"`
		} `yaml:"telegram"`
		Email struct {
			Channel    `yaml:",inline"`
			WebhookURL string `yaml:"webhook_url"`
			To         string `yaml:"to"`
		} `yaml:"email"`
	} `yaml:"notifications"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy"`
}

// Default returns the configuration used for every key the YAML file leaves out.
func Default() *Config {
	cfg := &Config{}
	cfg.Bot.Quote = "USD"
	cfg.Bot.Volatility = 2500
	cfg.Bot.MinTrade.Coin = 0.1
	cfg.Bot.MinTrade.Quote = 50
	cfg.Bot.Increment.Coin = 0.00000001
	cfg.Bot.Increment.Quote = 0.01
	cfg.Bot.HistoryHarness = HarnessCoinbase
	cfg.Bot.TxnHarness = HarnessCoinbase
	cfg.Bot.LogLevel = "info"
	cfg.Bot.CadenceSeconds = 3600
	cfg.Bot.BufferSeconds = 300
	cfg.Schedule.AnalysisCron = "0 0 * * * *"
	cfg.Schedule.FlashCron = "0 */5 * * * *"
	cfg.Coinbase.BaseURL = "https://api.pro.coinbase.com"
	cfg.Coinbase.APIDelayMs = 500
	cfg.Coinbase.CacheTTLSeconds = 10
	cfg.Sim.Fee = 0.005
	cfg.Database.SQLitePath = "data/cryptobot.db"
	return cfg
}

// Load reads config from a YAML file over Default(), then applies .env and environment
// variable overrides. Keys present in the file keep their value even when it is zero.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	if v := os.Getenv("COINBASE_API_KEY"); v != "" {
		cfg.Coinbase.APIKey = v
	}
	if v := os.Getenv("COINBASE_API_SECRET"); v != "" {
		cfg.Coinbase.APISecret = v
	}
	if v := os.Getenv("COINBASE_API_PASSPHRASE"); v != "" {
		cfg.Coinbase.APIPassphrase = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: TELEGRAM_CHAT_ID: %v", ErrInvalidConfig, err)
		}
		cfg.Notifications.Telegram.ChatID = id
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("BOT_COIN"); v != "" {
		cfg.Bot.Coin = v
	}
	if v := os.Getenv("BOT_VOLATILITY"); v != "" {
		vol, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: BOT_VOLATILITY: %v", ErrInvalidConfig, err)
		}
		cfg.Bot.Volatility = vol
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Bot.LogLevel = v
	}

	cfg.Bot.Coin = strings.ToUpper(strings.TrimSpace(cfg.Bot.Coin))
	cfg.Bot.Quote = strings.ToUpper(strings.TrimSpace(cfg.Bot.Quote))
	return cfg, nil
}

// Validate checks that all required fields are set. Every error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Bot.Coin == "" || c.Bot.Quote == "" {
		return fmt.Errorf("%w: bot.coin and bot.quote are required", ErrInvalidConfig)
	}
	if c.Bot.Volatility <= 0 {
		return fmt.Errorf("%w: bot.volatility must be positive", ErrInvalidConfig)
	}
	if c.Bot.MaxScore < 0 {
		return fmt.Errorf("%w: bot.max_score must not be negative", ErrInvalidConfig)
	}
	if c.Bot.MinTrade.Coin < 0 || c.Bot.MinTrade.Quote < 0 {
		return fmt.Errorf("%w: bot.min_trade values must not be negative", ErrInvalidConfig)
	}
	if c.Bot.Increment.Coin <= 0 || c.Bot.Increment.Quote <= 0 {
		return fmt.Errorf("%w: bot.increment values must be positive", ErrInvalidConfig)
	}
	if c.Bot.CadenceSeconds <= 0 || c.Bot.BufferSeconds < 0 || c.Bot.BufferSeconds >= c.Bot.CadenceSeconds {
		return fmt.Errorf("%w: bot.buffer_seconds must be within [0, cadence_seconds)", ErrInvalidConfig)
	}
	if c.Schedule.AnalysisCron == "" || (len(c.Bot.Flash) > 0 && c.Schedule.FlashCron == "") {
		return fmt.Errorf("%w: schedule crons must not be empty", ErrInvalidConfig)
	}
	if _, err := c.FlashRules(); err != nil {
		return fmt.Errorf("%w: bot.flash: %w", ErrInvalidConfig, err)
	}
	for name, harness := range map[string]string{
		"bot.history_harness": c.Bot.HistoryHarness,
		"bot.txn_harness":     c.Bot.TxnHarness,
	} {
		if harness != HarnessCoinbase && harness != HarnessSim {
			return fmt.Errorf("%w: %s must be %q or %q, got %q", ErrInvalidConfig, name, HarnessCoinbase, HarnessSim, harness)
		}
	}
	if c.Bot.HistoryHarness == HarnessCoinbase || c.Bot.TxnHarness == HarnessCoinbase {
		if c.Coinbase.APIKey == "" || c.Coinbase.APISecret == "" || c.Coinbase.APIPassphrase == "" {
			return fmt.Errorf("%w: coinbase api_key, api_secret and api_passphrase are required", ErrInvalidConfig)
		}
	}
	if c.Bot.HistoryHarness == HarnessSim && c.Sim.PriceDB == "" {
		return fmt.Errorf("%w: sim.price_db is required by the sim history harness", ErrInvalidConfig)
	}
	if c.Sim.Fee < 0 || c.Sim.Fee >= 1 {
		return fmt.Errorf("%w: sim.fee must be within [0, 1)", ErrInvalidConfig)
	}
	tg := c.Notifications.Telegram
	if len(tg.Handle) > 0 && (tg.BotToken == "" || tg.ChatID == 0) {
		return fmt.Errorf("%w: telegram bot_token and chat_id are required when it handles events", ErrInvalidConfig)
	}
	if email := c.Notifications.Email; len(email.Handle) > 0 && (email.WebhookURL == "" || email.To == "") {
		return fmt.Errorf("%w: email webhook_url and to are required when it handles events", ErrInvalidConfig)
	}
	return nil
}

// FlashRules parses bot.flash.
func (c *Config) FlashRules() ([]model.FlashRule, error) {
	return flash.ParseRules(c.Bot.Flash)
}
