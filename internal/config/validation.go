package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// validate reports every problem at once so a bad file is fixed in one pass.
func validate(c *Config) error {
	return errors.Join(
		c.Exchange.validate(),
		c.Trading.validate(),
		c.Strategy.validate(),
		c.Risk.validate(),
		c.Tracker.validate(),
		c.State.validate(),
		c.Journal.validate(),
		c.Notify.validate(),
		c.HTTP.validate(),
		c.validateCredentials(),
	)
}

// validateCredentials only demands keys when orders will actually be sent.
func (c *Config) validateCredentials() error {
	if !c.Trading.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Exchange.APIKey) == "" || strings.TrimSpace(c.Exchange.SecretKey) == "" {
		return fmt.Errorf("trading.enabled=true requires exchange api_key and secret_key (or %s / %s)", EnvBinanceAPIKey, EnvBinanceSecretKey)
	}
	return nil
}

func (e *ExchangeConfig) validate() error {
	if e.Name != defaultExchangeName {
		return fmt.Errorf("exchange.name %q is not supported (only %s)", e.Name, defaultExchangeName)
	}
	if e.TimeoutSeconds <= 0 {
		return fmt.Errorf("exchange.timeout_seconds must be > 0")
	}
	if e.ProxyEnabled && strings.TrimSpace(e.ProxyURL) == "" {
		return fmt.Errorf("exchange.proxy_url is required when proxy_enabled=true")
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if t.IntervalSeconds <= 0 {
		return fmt.Errorf("trading.interval_seconds must be > 0")
	}
	if t.MinCandles <= 0 || t.CandleLimit < t.MinCandles {
		return fmt.Errorf("trading.candle_limit (%d) must be >= trading.min_candles (%d) > 0", t.CandleLimit, t.MinCandles)
	}
	if _, ok := timeframes[t.Timeframe]; !ok {
		return fmt.Errorf("trading.timeframe %q is not a supported kline interval", t.Timeframe)
	}
	return nil
}

var timeframes = map[string]time.Duration{
	"1m": time.Minute, "3m": 3 * time.Minute, "5m": 5 * time.Minute,
	"15m": 15 * time.Minute, "30m": 30 * time.Minute,
	"1h": time.Hour, "2h": 2 * time.Hour, "4h": 4 * time.Hour,
	"6h": 6 * time.Hour, "8h": 8 * time.Hour, "12h": 12 * time.Hour,
	"1d": 24 * time.Hour,
}

func (s *StrategyConfig) validate() error {
	if s.FastPeriod >= s.SlowPeriod {
		return fmt.Errorf("strategy.fast_period (%d) must be below strategy.slow_period (%d)", s.FastPeriod, s.SlowPeriod)
	}
	if s.Leverage < 0 {
		return fmt.Errorf("strategy.leverage must be >= 0")
	}
	return nil
}

func (r *RiskConfig) validate() error {
	var errs []error
	if r.MaxOpenTrades < 1 {
		errs = append(errs, errors.New("risk.max_open_trades is required and must be >= 1"))
	}
	if math.IsNaN(r.MaxDrawdown) || r.MaxDrawdown <= 0 || r.MaxDrawdown > 1 {
		errs = append(errs, errors.New("risk.max_drawdown is required and must be in (0,1]"))
	}
	return errors.Join(errs...)
}

func (t *TrackerConfig) validate() error {
	if t.EntryCoverage > 1 {
		return fmt.Errorf("tracker.entry_coverage must be <= 1")
	}
	if t.DustThreshold < 0 {
		return fmt.Errorf("tracker.dust_threshold must be >= 0")
	}
	return nil
}

func (s *StateConfig) validate() error {
	switch s.Backend {
	case StateBackendJSON, StateBackendSQLite:
	default:
		return fmt.Errorf("state.backend must be %s or %s, got %q", StateBackendJSON, StateBackendSQLite, s.Backend)
	}
	if s.Path == "" || s.Path == "." {
		return fmt.Errorf("state.path is required")
	}
	return nil
}

func (j *JournalConfig) validate() error {
	if j.Enabled && strings.TrimSpace(j.Path) == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	tg := n.Telegram
	if !tg.Enabled {
		return nil
	}
	if strings.TrimSpace(tg.BotToken) == "" || strings.TrimSpace(tg.ChatID) == "" {
		return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
	}
	return nil
}

func (h *HTTPConfig) validate() error {
	if h.Enabled && strings.TrimSpace(h.Addr) == "" {
		return fmt.Errorf("http.addr is required when http is enabled")
	}
	return nil
}
