package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"tradebot/internal/config"
	"tradebot/internal/gateway/exchange"
	"tradebot/internal/logger"
	"tradebot/internal/position"
	"tradebot/internal/trading"
	apihttp "tradebot/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App owns the trading engine, the status API and every resource they hold.
type App struct {
	cfg      *config.Config
	log      *logger.Logger
	exchange *exchange.Guarded
	tracker  *position.Tracker
	engine   *trading.Engine
	api      *apihttp.Server
	closers  []io.Closer

	Summary *StartupSummary
}

// NewApp builds the application without starting it.
func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...AppBuilderOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return NewAppBuilder(cfg, log, opts...).Build(ctx)
}

// Run blocks until ctx is cancelled or the engine or HTTP server fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.engine == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		logger.InfoBlock(a.log.Component("startup"), a.Summary.String())
	}
	config.Watch(a.cfg, a.log.Component("config"), a.reload)

	group, ctx := errgroup.WithContext(ctx)
	if a.api != nil {
		group.Go(func() error {
			if err := a.api.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		return a.engine.Run(ctx)
	})
	return group.Wait()
}

// reload applies the settings that are safe to change while running.
func (a *App) reload(next *config.Config) {
	if next.App.LogLevel == a.cfg.App.LogLevel {
		return
	}
	a.log.Info("log level changed", "from", a.cfg.App.LogLevel, "to", next.App.LogLevel)
	a.log.SetLevel(next.App.LogLevel)
	a.cfg.App.LogLevel = next.App.LogLevel
}

func (a *App) Engine() *trading.Engine { return a.engine }

func (a *App) Tracker() *position.Tracker { return a.tracker }

func (a *App) Exchange() *exchange.Guarded { return a.exchange }

func (a *App) track(v any) {
	if c, ok := v.(io.Closer); ok && c != nil {
		a.closers = append(a.closers, c)
	}
}

// Close releases stores in reverse open order.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
