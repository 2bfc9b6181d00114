package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
risk:
  max_open_trades: 3
  max_drawdown: 0.2
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearSecrets(t *testing.T) {
	for _, env := range envBindings {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearSecrets(t)
	dir := t.TempDir()
	cfg, err := Load(writeFile(t, dir, "config.yaml", minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "binance", cfg.Exchange.Name)
	assert.False(t, cfg.Trading.Enabled)
	assert.Equal(t, []string{"ETH/USDT"}, cfg.Trading.Symbols)
	assert.Equal(t, time.Minute, cfg.Trading.Interval())
	assert.Equal(t, 100, cfg.Trading.CandleLimit)
	assert.Equal(t, 50, cfg.Trading.MinCandles)
	assert.Equal(t, "ma_crossover", cfg.Strategy.Type)
	assert.Equal(t, 20, cfg.Strategy.FastPeriod)
	assert.Equal(t, 50, cfg.Strategy.SlowPeriod)
	assert.Equal(t, 5*time.Second, cfg.Tracker.UpdateInterval())
	assert.Equal(t, 1.0, cfg.Tracker.DustThreshold)
	assert.Equal(t, []string{"USDT", "USD", "BUSD", "USDC"}, cfg.Tracker.QuoteCurrencies)
	assert.Equal(t, StateBackendJSON, cfg.State.Backend)
	assert.Equal(t, filepath.Clean(defaultStatePath), cfg.State.Path)
	assert.True(t, cfg.Journal.Enabled)
	assert.True(t, cfg.HTTP.Enabled)
	assert.Equal(t, ":9991", cfg.HTTP.Addr)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), cfg.Path())
}

func TestLoadKeepsExplicitFalse(t *testing.T) {
	clearSecrets(t)
	path := writeFile(t, t.TempDir(), "config.yaml", minimalConfig+`
journal:
  enabled: false
http:
  enabled: false
state:
  backend: SQLite
trading:
  symbols: ["btc/usdt", "BTC/USDT", " sol/usdt "]
  interval_seconds: "30"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Journal.Enabled)
	assert.False(t, cfg.HTTP.Enabled)
	assert.Equal(t, StateBackendSQLite, cfg.State.Backend)
	assert.Equal(t, filepath.Clean(defaultStateSQLitePath), cfg.State.Path)
	assert.Equal(t, []string{"BTC/USDT", "SOL/USDT"}, cfg.Trading.Symbols)
	assert.Equal(t, 30*time.Second, cfg.Trading.Interval())
}

func TestLoadIncludesMergeInOrder(t *testing.T) {
	clearSecrets(t)
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", minimalConfig+`
app:
  log_level: debug
strategy:
  fast_period: 5
  slow_period: 10
`)
	path := writeFile(t, dir, "config.yaml", `
include: ["base.yaml"]
strategy:
  slow_period: 30
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 5, cfg.Strategy.FastPeriod)
	assert.Equal(t, 30, cfg.Strategy.SlowPeriod)
	assert.Equal(t, 3, cfg.Risk.MaxOpenTrades)
}

func TestLoadRejectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", `include: ["b.yaml"]`)
	writeFile(t, dir, "b.yaml", `include: ["a.yaml"]`)
	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestLoadSecretsFromEnv(t *testing.T) {
	clearSecrets(t)
	t.Setenv(EnvBinanceAPIKey, "key-from-env")
	t.Setenv(EnvBinanceSecretKey, "secret-from-env")
	t.Setenv(EnvTradingEnabled, "true")
	path := writeFile(t, t.TempDir(), "config.yaml", minimalConfig+`
exchange:
  api_key: from-file
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Trading.Enabled)
	assert.Equal(t, "key-from-env", cfg.Exchange.APIKey)
	assert.Equal(t, "secret-from-env", cfg.Exchange.SecretKey)
}

func TestLoadSecretsFromDotEnv(t *testing.T) {
	clearSecrets(t)
	dir := t.TempDir()
	writeFile(t, dir, ".env", EnvTelegramBotToken+"=bot-123\n"+EnvTelegramChatID+"=42\n")
	path := writeFile(t, dir, "config.yaml", minimalConfig+`
notify:
  telegram:
    enabled: true
`)
	t.Cleanup(func() {
		os.Unsetenv(EnvTelegramBotToken)
		os.Unsetenv(EnvTelegramChatID)
	})
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bot-123", cfg.Notify.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Notify.Telegram.ChatID)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "risk is required",
			body: `app: {env: dev}`,
			want: []string{"risk.max_open_trades", "risk.max_drawdown"},
		},
		{
			name: "drawdown above one",
			body: "risk:\n  max_open_trades: 1\n  max_drawdown: 1.5\n",
			want: []string{"risk.max_drawdown"},
		},
		{
			name: "periods inverted",
			body: minimalConfig + "strategy:\n  fast_period: 50\n  slow_period: 20\n",
			want: []string{"strategy.fast_period"},
		},
		{
			name: "unknown backend",
			body: minimalConfig + "state:\n  backend: redis\n",
			want: []string{"state.backend"},
		},
		{
			name: "bad timeframe",
			body: minimalConfig + "trading:\n  timeframe: 7m\n",
			want: []string{"trading.timeframe"},
		},
		{
			name: "live without keys",
			body: minimalConfig + "trading:\n  enabled: true\n",
			want: []string{"api_key"},
		},
		{
			name: "telegram without token",
			body: minimalConfig + "notify:\n  telegram:\n    enabled: true\n    chat_id: '1'\n",
			want: []string{"notify.telegram"},
		},
		{
			name: "explicit zero interval",
			body: minimalConfig + "trading:\n  interval_seconds: 0\n",
			want: []string{"trading.interval_seconds"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearSecrets(t)
			_, err := Load(writeFile(t, t.TempDir(), "config.yaml", tc.body))
			require.Error(t, err)
			for _, want := range tc.want {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
}

func TestYAMLOmitsSecrets(t *testing.T) {
	cfg := &Config{
		Exchange: ExchangeConfig{Name: "binance", APIKey: "k", SecretKey: "s"},
		Notify:   NotifyConfig{Telegram: TelegramConfig{Enabled: true, BotToken: "tok", ChatID: "9"}},
		Risk:     RiskConfig{MaxOpenTrades: 2, MaxDrawdown: 0.1},
	}
	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, out, "max_open_trades: 2")
	assert.Contains(t, out, `chat_id: "9"`)
	assert.NotContains(t, out, "tok")
	assert.False(t, strings.Contains(out, "api_key") || strings.Contains(out, "secret_key"))
}

func TestWatchReloads(t *testing.T) {
	clearSecrets(t)
	path := writeFile(t, t.TempDir(), "config.yaml", minimalConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	got := make(chan string, 4)
	Watch(cfg, nil, func(next *Config) {
		select {
		case got <- next.App.LogLevel:
		default:
		}
	})
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(minimalConfig+"app:\n  log_level: debug\n"), 0o644))

	select {
	case level := <-got:
		assert.Equal(t, "debug", level)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
}
