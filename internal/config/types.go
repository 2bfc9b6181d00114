package config

import (
	"strings"
	"time"
)

// Config is the root of tradebot's configuration file.
type Config struct {
	App      AppConfig      `toml:"app" yaml:"app"`
	Exchange ExchangeConfig `toml:"exchange" yaml:"exchange"`
	Trading  TradingConfig  `toml:"trading" yaml:"trading"`
	Strategy StrategyConfig `toml:"strategy" yaml:"strategy"`
	Risk     RiskConfig     `toml:"risk" yaml:"risk"`
	Tracker  TrackerConfig  `toml:"tracker" yaml:"tracker"`
	State    StateConfig    `toml:"state" yaml:"state"`
	Journal  JournalConfig  `toml:"journal" yaml:"journal"`
	Notify   NotifyConfig   `toml:"notify" yaml:"notify"`
	HTTP     HTTPConfig     `toml:"http" yaml:"http"`

	path string
}

// Path is the root config file this Config was loaded from.
func (c *Config) Path() string { return c.path }

type AppConfig struct {
	Env      string `toml:"env" yaml:"env"`
	LogLevel string `toml:"log_level" yaml:"log_level"`
	LogPath  string `toml:"log_path" yaml:"log_path"`
}

type ExchangeConfig struct {
	Name              string `toml:"name" yaml:"name"`
	APIKey            string `toml:"api_key" yaml:"-"`
	SecretKey         string `toml:"secret_key" yaml:"-"`
	Testnet           bool   `toml:"testnet" yaml:"testnet"`
	Futures           bool   `toml:"futures" yaml:"futures"`
	SpotBaseURL       string `toml:"spot_base_url" yaml:"spot_base_url,omitempty"`
	FuturesBaseURL    string `toml:"futures_base_url" yaml:"futures_base_url,omitempty"`
	TimeoutSeconds    int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
	QuantityPrecision int32  `toml:"quantity_precision" yaml:"quantity_precision"`
	PricePrecision    int32  `toml:"price_precision" yaml:"price_precision"`
	ProxyEnabled      bool   `toml:"proxy_enabled" yaml:"proxy_enabled"`
	ProxyURL          string `toml:"proxy_url" yaml:"proxy_url,omitempty"`

	Breaker BreakerConfig `toml:"breaker" yaml:"breaker"`
}

// BreakerConfig tunes the circuit breaker wrapped around exchange calls.
type BreakerConfig struct {
	FailureThreshold   int `toml:"failure_threshold" yaml:"failure_threshold"`
	OpenTimeoutSeconds int `toml:"open_timeout_seconds" yaml:"open_timeout_seconds"`
}

// TradingConfig drives the trading loop. Enabled=false keeps every order
// simulated.
type TradingConfig struct {
	Enabled         bool     `toml:"enabled" yaml:"enabled"`
	Symbols         []string `toml:"symbols" yaml:"symbols"`
	Timeframe       string   `toml:"timeframe" yaml:"timeframe"`
	IntervalSeconds int      `toml:"interval_seconds" yaml:"interval_seconds"`
	CandleLimit     int      `toml:"candle_limit" yaml:"candle_limit"`
	MinCandles      int      `toml:"min_candles" yaml:"min_candles"`
}

func (t TradingConfig) Interval() time.Duration {
	return time.Duration(t.IntervalSeconds) * time.Second
}

type StrategyConfig struct {
	Type           string  `toml:"type" yaml:"type"`
	MAType         string  `toml:"ma_type" yaml:"ma_type"`
	FastPeriod     int     `toml:"fast_period" yaml:"fast_period"`
	SlowPeriod     int     `toml:"slow_period" yaml:"slow_period"`
	Leverage       float64 `toml:"leverage" yaml:"leverage,omitempty"`
	SellFastPeriod int     `toml:"sell_fast_period" yaml:"sell_fast_period,omitempty"`
	SellSlowPeriod int     `toml:"sell_slow_period" yaml:"sell_slow_period,omitempty"`
}

// RiskConfig has no defaults; both limits must be set explicitly.
type RiskConfig struct {
	MaxOpenTrades int     `toml:"max_open_trades" yaml:"max_open_trades"`
	MaxDrawdown   float64 `toml:"max_drawdown" yaml:"max_drawdown"`
}

type TrackerConfig struct {
	UpdateIntervalSeconds float64  `toml:"update_interval_seconds" yaml:"update_interval_seconds"`
	DustThreshold         float64  `toml:"dust_threshold" yaml:"dust_threshold"`
	ClosedLimit           int      `toml:"closed_limit" yaml:"closed_limit"`
	TradeLookback         int      `toml:"trade_lookback" yaml:"trade_lookback"`
	EntryCoverage         float64  `toml:"entry_coverage" yaml:"entry_coverage"`
	QuoteCurrencies       []string `toml:"quote_currencies" yaml:"quote_currencies"`
	SpotQuote             string   `toml:"spot_quote" yaml:"spot_quote"`
}

func (t TrackerConfig) UpdateInterval() time.Duration {
	return time.Duration(t.UpdateIntervalSeconds * float64(time.Second))
}

const (
	StateBackendJSON   = "json"
	StateBackendSQLite = "sqlite"
)

// StateConfig selects where the tracker persists its snapshot.
type StateConfig struct {
	Backend string `toml:"backend" yaml:"backend"`
	Path    string `toml:"path" yaml:"path"`
}

// JournalConfig controls the order/signal journal and closed-position archive.
type JournalConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram" yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled" yaml:"enabled"`
	BotToken string `toml:"bot_token" yaml:"-"`
	ChatID   string `toml:"chat_id" yaml:"chat_id,omitempty"`
}

type HTTPConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Addr    string `toml:"addr" yaml:"addr"`
}

// keySet tracks the dotted paths that were explicitly present in the config
// files, so defaults never override an explicit false or zero.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if k == nil {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
