package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tradebot/internal/config"
	"tradebot/internal/executor"
	"tradebot/internal/gateway/binance"
	"tradebot/internal/gateway/exchange"
	"tradebot/internal/gateway/notifier"
	"tradebot/internal/logger"
	"tradebot/internal/position"
	"tradebot/internal/risk"
	"tradebot/internal/store"
	"tradebot/internal/store/sqlite"
	"tradebot/internal/strategy"
	"tradebot/internal/trading"
	apihttp "tradebot/internal/transport/http/api"
)

// AppBuilder assembles the runtime from a loaded config. The *Fn hooks exist
// so tests can swap the exchange and the stores.
type AppBuilder struct {
	cfg *config.Config
	log *logger.Logger
	now func() time.Time

	exchangeFn   func(config.ExchangeConfig, *slog.Logger) (exchange.Exchange, error)
	stateStoreFn func(config.StateConfig) (position.Store, error)
	journalFn    func(config.JournalConfig, *slog.Logger) (*store.Journal, error)
	notifierFn   func(config.NotifyConfig) notifier.TextNotifier
}

type AppBuilderOption func(*AppBuilder)

func WithExchange(ex exchange.Exchange) AppBuilderOption {
	return func(b *AppBuilder) {
		b.exchangeFn = func(config.ExchangeConfig, *slog.Logger) (exchange.Exchange, error) { return ex, nil }
	}
}

func WithStateStore(s position.Store) AppBuilderOption {
	return func(b *AppBuilder) {
		b.stateStoreFn = func(config.StateConfig) (position.Store, error) { return s, nil }
	}
}

func WithNotifier(n notifier.TextNotifier) AppBuilderOption {
	return func(b *AppBuilder) {
		b.notifierFn = func(config.NotifyConfig) notifier.TextNotifier { return n }
	}
}

func WithClock(now func() time.Time) AppBuilderOption {
	return func(b *AppBuilder) { b.now = now }
}

func NewAppBuilder(cfg *config.Config, log *logger.Logger, opts ...AppBuilderOption) *AppBuilder {
	if log == nil {
		log = logger.New(os.Stdout, cfg.App.LogLevel)
	}
	b := &AppBuilder{
		cfg:          cfg,
		log:          log,
		now:          time.Now,
		exchangeFn:   buildExchange,
		stateStoreFn: OpenStateStore,
		journalFn:    openJournal,
		notifierFn:   buildNotifier,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	app := &App{cfg: cfg, log: b.log}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	raw, err := b.exchangeFn(cfg.Exchange, b.log.Component("exchange"))
	if err != nil {
		return nil, fmt.Errorf("exchange: %w", err)
	}
	ex := exchange.NewGuarded(raw, exchange.GuardOptions{
		Timeout:          time.Duration(cfg.Exchange.TimeoutSeconds) * time.Second,
		FailureThreshold: cfg.Exchange.Breaker.FailureThreshold,
		OpenTimeout:      time.Duration(cfg.Exchange.Breaker.OpenTimeoutSeconds) * time.Second,
		Logger:           b.log.Component("breaker"),
	})

	state, err := b.stateStoreFn(cfg.State)
	if err != nil {
		return nil, fmt.Errorf("state store: %w", err)
	}
	app.track(state)

	tracker, err := position.NewTracker(ctx, ex, state, TrackerConfig(cfg.Tracker),
		position.WithLogger(b.log.Component("tracker")),
		position.WithClock(b.now),
	)
	if err != nil {
		return nil, err
	}
	riskMgr, err := risk.NewManager(risk.Config{
		MaxOpenTrades: cfg.Risk.MaxOpenTrades,
		MaxDrawdown:   cfg.Risk.MaxDrawdown,
	}, tracker, ex, b.log.Component("risk"))
	if err != nil {
		return nil, err
	}

	var journal *store.Journal
	if cfg.Journal.Enabled {
		if journal, err = b.journalFn(cfg.Journal, b.log.Component("journal")); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		app.track(journal)
	}
	notify := b.notifierFn(cfg.Notify)

	dryRun := !cfg.Trading.Enabled
	exec, err := executor.New(ex, dryRun,
		executor.WithJournal(journal),
		executor.WithNotifier(notify),
		executor.WithLogger(b.log.Component("executor")),
		executor.WithClock(b.now),
	)
	if err != nil {
		return nil, err
	}

	deps := trading.HandlerDeps{
		Risk:     riskMgr,
		Book:     tracker,
		Executor: exec,
		Journal:  journal,
		Notifier: notify,
		Logger:   b.log.Component("trading"),
		Now:      b.now,
	}
	handler, err := trading.NewSignalHandler(deps)
	if err != nil {
		return nil, err
	}
	monitor, err := trading.NewMonitor(deps, handler)
	if err != nil {
		return nil, err
	}
	strat, err := strategy.New(strategy.Config{
		Type:           cfg.Strategy.Type,
		MAType:         cfg.Strategy.MAType,
		FastPeriod:     cfg.Strategy.FastPeriod,
		SlowPeriod:     cfg.Strategy.SlowPeriod,
		Leverage:       cfg.Strategy.Leverage,
		SellFastPeriod: cfg.Strategy.SellFastPeriod,
		SellSlowPeriod: cfg.Strategy.SellSlowPeriod,
	})
	if err != nil {
		return nil, fmt.Errorf("strategy: %w", err)
	}
	engine, err := trading.NewEngine(trading.EngineConfig{
		Symbols:     cfg.Trading.Symbols,
		Timeframe:   cfg.Trading.Timeframe,
		CandleLimit: cfg.Trading.CandleLimit,
		MinCandles:  cfg.Trading.MinCandles,
		Interval:    cfg.Trading.Interval(),
	}, ex, strat, handler, monitor, b.log.Component("engine"))
	if err != nil {
		return nil, err
	}

	if cfg.HTTP.Enabled {
		apiDeps := apihttp.Deps{
			Positions:   tracker,
			Risk:        riskMgr,
			MaxDrawdown: cfg.Risk.MaxDrawdown,
			Exiter:      handler,
			Cycles:      engine,
			Breaker:     ex.Breaker(),
			DryRun:      dryRun,
			Now:         b.now,
		}
		if journal != nil {
			apiDeps.Journal = journal
		}
		app.api, err = apihttp.NewServer(apihttp.ServerConfig{
			Addr: cfg.HTTP.Addr,
			Deps: apiDeps,
			Log:  b.log.Component("http"),
		})
		if err != nil {
			return nil, err
		}
	}

	app.exchange = ex
	app.tracker = tracker
	app.engine = engine
	app.Summary = newStartupSummary(cfg, strat.Name())
	ok = true
	return app, nil
}

func buildExchange(cfg config.ExchangeConfig, log *slog.Logger) (exchange.Exchange, error) {
	return binance.New(binance.Config{
		APIKey:            cfg.APIKey,
		SecretKey:         cfg.SecretKey,
		SpotBaseURL:       cfg.SpotBaseURL,
		FuturesBaseURL:    cfg.FuturesBaseURL,
		HTTPTimeout:       time.Duration(cfg.TimeoutSeconds) * time.Second,
		Futures:           cfg.Futures,
		Testnet:           cfg.Testnet,
		QuantityPrecision: cfg.QuantityPrecision,
		PricePrecision:    cfg.PricePrecision,
		ProxyEnabled:      cfg.ProxyEnabled,
		RESTProxyURL:      cfg.ProxyURL,
	}, log)
}

// OpenStateStore opens the tracker snapshot store named by cfg.
func OpenStateStore(cfg config.StateConfig) (position.Store, error) {
	switch cfg.Backend {
	case config.StateBackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, err
		}
		return position.OpenSQLStore(cfg.Path)
	case config.StateBackendJSON, "":
		return position.NewFileStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}

func openJournal(cfg config.JournalConfig, log *slog.Logger) (*store.Journal, error) {
	db, err := sqlite.NewSqliteStore(cfg.Path, sqlite.WithLogger(log))
	if err != nil {
		return nil, err
	}
	j, err := store.NewJournal(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func buildNotifier(cfg config.NotifyConfig) notifier.TextNotifier {
	if !cfg.Telegram.Enabled {
		return notifier.Noop{}
	}
	return notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
}

func TrackerConfig(cfg config.TrackerConfig) position.Config {
	return position.Config{
		UpdateInterval:  cfg.UpdateInterval(),
		DustThreshold:   cfg.DustThreshold,
		ClosedLimit:     cfg.ClosedLimit,
		TradeLookback:   cfg.TradeLookback,
		EntryCoverage:   cfg.EntryCoverage,
		QuoteCurrencies: cfg.QuoteCurrencies,
		SpotQuote:       cfg.SpotQuote,
	}
}
