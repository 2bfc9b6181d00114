package config

import (
	"path/filepath"
	"strings"
)

const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultExchangeName     = "binance"
	defaultExchangeTimeout  = 15
	defaultQuantityDecimals = 6
	defaultPriceDecimals    = 2
	defaultBreakerFailures  = 5
	defaultBreakerOpenSecs  = 30
	defaultTradingSymbol    = "ETH/USDT"
	defaultTimeframe        = "1m"
	defaultTradingInterval  = 60
	defaultCandleLimit      = 100
	defaultMinCandles       = 50
	defaultStrategyType     = "ma_crossover"
	defaultMAType           = "sma"
	defaultFastPeriod       = 20
	defaultSlowPeriod       = 50
	defaultTrackerInterval  = 5
	defaultDustThreshold    = 1.0
	defaultClosedLimit      = 100
	defaultTradeLookback    = 20
	defaultEntryCoverage    = 0.9
	defaultSpotQuote        = "USDT"
	defaultStatePath        = "data/positions.json"
	defaultStateSQLitePath  = "data/positions.db"
	defaultJournalPath      = "data/journal.db"
	defaultHTTPAddr         = ":9991"
)

var defaultQuoteCurrencies = []string{"USDT", "USD", "BUSD", "USDC"}

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Exchange.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.Strategy.applyDefaults(keys)
	c.Tracker.applyDefaults(keys)
	c.State.applyDefaults(keys)
	c.Journal.applyDefaults(keys)
	c.HTTP.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
	)
}

func (e *ExchangeConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("exchange.name", &e.Name, defaultExchangeName),
		intFieldDefault("exchange.timeout_seconds", &e.TimeoutSeconds, defaultExchangeTimeout),
		intFieldDefault("exchange.breaker.failure_threshold", &e.Breaker.FailureThreshold, defaultBreakerFailures),
		intFieldDefault("exchange.breaker.open_timeout_seconds", &e.Breaker.OpenTimeoutSeconds, defaultBreakerOpenSecs),
		fieldDefault{
			key:   "exchange.quantity_precision",
			need:  func() bool { return e.QuantityPrecision <= 0 },
			apply: func() { e.QuantityPrecision = defaultQuantityDecimals },
		},
		fieldDefault{
			key:   "exchange.price_precision",
			need:  func() bool { return e.PricePrecision <= 0 },
			apply: func() { e.PricePrecision = defaultPriceDecimals },
		},
	)
	e.Name = strings.ToLower(strings.TrimSpace(e.Name))
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("trading.timeframe", &t.Timeframe, defaultTimeframe),
		intFieldDefault("trading.interval_seconds", &t.IntervalSeconds, defaultTradingInterval),
		intFieldDefault("trading.candle_limit", &t.CandleLimit, defaultCandleLimit),
		intFieldDefault("trading.min_candles", &t.MinCandles, defaultMinCandles),
	)
	t.Symbols = normalizeList(t.Symbols, strings.ToUpper)
	if len(t.Symbols) == 0 {
		t.Symbols = []string{defaultTradingSymbol}
	}
}

func (s *StrategyConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("strategy.type", &s.Type, defaultStrategyType),
		stringFieldDefault("strategy.ma_type", &s.MAType, defaultMAType),
		intFieldDefault("strategy.fast_period", &s.FastPeriod, defaultFastPeriod),
		intFieldDefault("strategy.slow_period", &s.SlowPeriod, defaultSlowPeriod),
	)
}

func (t *TrackerConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		floatFieldDefault("tracker.update_interval_seconds", &t.UpdateIntervalSeconds, defaultTrackerInterval),
		floatFieldDefault("tracker.dust_threshold", &t.DustThreshold, defaultDustThreshold),
		intFieldDefault("tracker.closed_limit", &t.ClosedLimit, defaultClosedLimit),
		intFieldDefault("tracker.trade_lookback", &t.TradeLookback, defaultTradeLookback),
		floatFieldDefault("tracker.entry_coverage", &t.EntryCoverage, defaultEntryCoverage),
		stringFieldDefault("tracker.spot_quote", &t.SpotQuote, defaultSpotQuote),
	)
	t.QuoteCurrencies = normalizeList(t.QuoteCurrencies, strings.ToUpper)
	if len(t.QuoteCurrencies) == 0 {
		t.QuoteCurrencies = append([]string(nil), defaultQuoteCurrencies...)
	}
	t.SpotQuote = strings.ToUpper(strings.TrimSpace(t.SpotQuote))
}

func (s *StateConfig) applyDefaults(keys keySet) {
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = StateBackendJSON
	}
	path := defaultStatePath
	if s.Backend == StateBackendSQLite {
		path = defaultStateSQLitePath
	}
	applyFieldDefaults(keys, stringFieldDefault("state.path", &s.Path, path))
	s.Path = filepath.Clean(s.Path)
}

func (j *JournalConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		boolFieldDefault("journal.enabled", &j.Enabled, true),
		stringFieldDefault("journal.path", &j.Path, defaultJournalPath),
	)
}

func (h *HTTPConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		boolFieldDefault("http.enabled", &h.Enabled, true),
		stringFieldDefault("http.addr", &h.Addr, defaultHTTPAddr),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

// boolFieldDefault only fires when the key is absent; an explicit false wins.
func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:   key,
		apply: func() { *target = def },
	}
}

func normalizeList(in []string, norm func(string) string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, item := range in {
		item = norm(strings.TrimSpace(item))
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
