package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Secrets are read from the environment (or a .env file) and override the
// config files.
const (
	EnvBinanceAPIKey    = "TRADEBOT_BINANCE_API_KEY"
	EnvBinanceSecretKey = "TRADEBOT_BINANCE_SECRET_KEY"
	EnvTelegramBotToken = "TRADEBOT_TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID   = "TRADEBOT_TELEGRAM_CHAT_ID"
	EnvTradingEnabled   = "TRADEBOT_TRADING_ENABLED"
)

var envBindings = map[string]string{
	"exchange.api_key":          EnvBinanceAPIKey,
	"exchange.secret_key":       EnvBinanceSecretKey,
	"notify.telegram.bot_token": EnvTelegramBotToken,
	"notify.telegram.chat_id":   EnvTelegramChatID,
	"trading.enabled":           EnvTradingEnabled,
}

func Load(path string) (*Config, error) {
	files, err := resolveConfigIncludes(path)
	if err != nil {
		return nil, err
	}
	if err := loadDotEnv(filepath.Dir(files[len(files)-1])); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range files {
		if err := mergeConfigFile(v, file); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", file, err)
		}
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	setKeys := make(keySet)
	collectSettingsKeys(v.AllSettings(), setKeys)
	cfg.applyDefaults(setKeys)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	cfg.path = files[len(files)-1]
	return &cfg, nil
}

// loadDotEnv reads .env from the config directory and the working directory.
// Variables already present in the environment are left alone.
func loadDotEnv(dir string) error {
	candidates := []string{filepath.Join(dir, ".env"), ".env"}
	seen := make(map[string]bool, len(candidates))
	for _, file := range candidates {
		abs, err := filepath.Abs(file)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("loading %s: %w", abs, err)
		}
	}
	return nil
}

// Watch reloads the config whenever the root file changes and hands the new
// value to onChange. Invalid edits are logged and ignored.
func Watch(cfg *Config, log *slog.Logger, onChange func(*Config)) {
	if cfg == nil || cfg.path == "" || onChange == nil {
		return
	}
	v := viper.New()
	v.SetConfigFile(cfg.path)
	if err := v.ReadInConfig(); err != nil {
		if log != nil {
			log.Warn("config watch disabled", "path", cfg.path, "error", err)
		}
		return
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
			return
		}
		next, err := Load(cfg.path)
		if err != nil {
			if log != nil {
				log.Error("config reload failed", "file", evt.Name, "error", err)
			}
			return
		}
		onChange(next)
	})
	v.WatchConfig()
}

// YAML renders the effective configuration with secrets left out.
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("render config: %w", err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	tmp := viper.New()
	tmp.SetConfigFile(path)
	if err := tmp.ReadInConfig(); err != nil {
		return err
	}
	return v.MergeConfigMap(tmp.AllSettings())
}

// resolveConfigIncludes returns the files to merge, included files first and
// the root file last, so the root always has the final say.
func resolveConfigIncludes(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	var ordered []string
	done := make(map[string]bool)
	active := make(map[string]bool)
	var visit func(string) error
	visit = func(file string) error {
		file = filepath.Clean(file)
		switch {
		case active[file]:
			return fmt.Errorf("include cycle detected: %s", file)
		case done[file]:
			return nil
		}
		active[file] = true
		includes, err := parseIncludeList(file)
		if err != nil {
			return fmt.Errorf("parsing include failed (%s): %w", file, err)
		}
		for _, inc := range includes {
			if !filepath.IsAbs(inc) {
				inc = filepath.Join(filepath.Dir(file), inc)
			}
			if err := visit(inc); err != nil {
				return err
			}
		}
		delete(active, file)
		done[file] = true
		ordered = append(ordered, file)
		return nil
	}
	if err := visit(abs); err != nil {
		return nil, err
	}
	return ordered, nil
}

// parseIncludeList reads the top-level include key, a string or a list of
// strings relative to the including file.
func parseIncludeList(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var raw []any
	switch val := v.Get("include").(type) {
	case nil:
		return nil, nil
	case string:
		raw = []any{val}
	case []any:
		raw = val
	default:
		return nil, fmt.Errorf("include must be a string or a list of strings")
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("include only supports strings")
		}
		if str = strings.TrimSpace(str); str != "" {
			out = append(out, str)
		}
	}
	return out, nil
}

// collectSettingsKeys marks every leaf path present in settings, so that
// defaults can tell "absent" from "explicitly zero".
func collectSettingsKeys(settings map[string]any, dest keySet) {
	for k, v := range settings {
		markKeys(strings.ToLower(strings.TrimSpace(k)), v, dest)
	}
}

func markKeys(prefix string, node any, dest keySet) {
	if prefix == "" {
		return
	}
	child, ok := node.(map[string]any)
	if !ok {
		dest.mark(prefix)
		return
	}
	for k, v := range child {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			markKeys(prefix+"."+k, v, dest)
		}
	}
}
