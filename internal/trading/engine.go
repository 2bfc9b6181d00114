package trading

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tradebot/internal/gateway/exchange"
	"tradebot/internal/logger"
	"tradebot/internal/pkg/symbol"
	"tradebot/internal/scheduler"
	"tradebot/internal/strategy"
	"tradebot/internal/types"
)

type CandleSource interface {
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]exchange.Candle, error)
}

type EngineConfig struct {
	Symbols     []string
	Timeframe   string
	CandleLimit int
	MinCandles  int
	Interval    time.Duration
}

func (c EngineConfig) withDefaults() EngineConfig {
	if len(c.Symbols) == 0 {
		c.Symbols = []string{"ETH/USDT"}
	}
	if strings.TrimSpace(c.Timeframe) == "" {
		c.Timeframe = "1m"
	}
	if c.CandleLimit <= 0 {
		c.CandleLimit = 100
	}
	if c.MinCandles <= 0 {
		c.MinCandles = 50
	}
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	return c
}

// CycleReport summarizes one pass over the configured symbols.
type CycleReport struct {
	StartedAt time.Time
	Duration  time.Duration
	Evaluated []string
	Skipped   map[string]string
	Signals   []types.Signal
	Outcomes  []Outcome
	Exited    []string
}

func (r *CycleReport) skip(sym, reason string) {
	if r.Skipped == nil {
		r.Skipped = make(map[string]string)
	}
	r.Skipped[sym] = reason
}

type Engine struct {
	cfg      EngineConfig
	candles  CandleSource
	strategy strategy.Strategy
	handler  *SignalHandler
	monitor  *Monitor
	log      *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	last   CycleReport
	cycles int
}

func NewEngine(cfg EngineConfig, candles CandleSource, strat strategy.Strategy, handler *SignalHandler, monitor *Monitor, log *slog.Logger) (*Engine, error) {
	switch {
	case candles == nil:
		return nil, fmt.Errorf("%w: candle source", ErrMissingDependency)
	case strat == nil:
		return nil, fmt.Errorf("%w: strategy", ErrMissingDependency)
	case handler == nil:
		return nil, fmt.Errorf("%w: signal handler", ErrMissingDependency)
	case monitor == nil:
		return nil, fmt.Errorf("%w: monitor", ErrMissingDependency)
	}
	cfg = cfg.withDefaults()
	symbols := make([]string, 0, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		if c := symbol.Canonical(strings.TrimSpace(s)); c != "" {
			symbols = append(symbols, c)
		}
	}
	cfg.Symbols = symbols
	if handler.OnFill == nil {
		handler.OnFill = monitor.OnFill
	}
	return &Engine{
		cfg:      cfg,
		candles:  candles,
		strategy: strat,
		handler:  handler,
		monitor:  monitor,
		log:      logger.OrDiscard(log),
		now:      handler.deps.Now,
	}, nil
}

func (e *Engine) Config() EngineConfig { return e.cfg }

// Run lists existing positions and then runs a cycle every Interval until
// ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("starting trading engine", "symbols", e.cfg.Symbols, "timeframe", e.cfg.Timeframe,
		"strategy", e.strategy.Name(), "interval", e.cfg.Interval)
	e.monitor.Startup(ctx)

	loop := scheduler.NewLoop("trading", e.cfg.Interval, e.log)
	loop.Run(ctx, func(ctx context.Context) { e.RunCycle(ctx) })
	e.log.Info("trading engine stopped")
	return nil
}

// RunCycle evaluates every symbol once, executes the resulting signals and
// then runs the position monitor.
func (e *Engine) RunCycle(ctx context.Context) CycleReport {
	rep := CycleReport{StartedAt: e.now()}
	need := max(e.cfg.MinCandles, e.strategy.RequiredCandles())
	for _, sym := range e.cfg.Symbols {
		if ctx.Err() != nil {
			break
		}
		e.evaluate(ctx, sym, need, &rep)
	}
	if ctx.Err() == nil {
		rep.Exited = e.monitor.Check(ctx)
	}
	rep.Duration = e.now().Sub(rep.StartedAt)

	e.mu.Lock()
	e.last = rep
	e.cycles++
	e.mu.Unlock()
	e.log.Debug("cycle done", "evaluated", len(rep.Evaluated), "signals", len(rep.Signals),
		"exited", rep.Exited, "took", rep.Duration)
	return rep
}

func (e *Engine) evaluate(ctx context.Context, sym string, need int, rep *CycleReport) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("symbol processing panicked", "symbol", sym, "panic", r)
			rep.skip(sym, fmt.Sprintf("panic: %v", r))
		}
	}()
	candles, err := e.candles.FetchCandles(ctx, sym, e.cfg.Timeframe, e.cfg.CandleLimit)
	if err != nil {
		e.log.Error("fetch candles failed", "symbol", sym, "error", err)
		rep.skip(sym, err.Error())
		return
	}
	if len(candles) < need {
		e.log.Warn("not enough data, skipping", "symbol", sym, "have", len(candles), "need", need)
		rep.skip(sym, "not enough data")
		return
	}
	rep.Evaluated = append(rep.Evaluated, sym)
	for _, sig := range e.strategy.Evaluate(sym, candles) {
		rep.Signals = append(rep.Signals, sig)
		rep.Outcomes = append(rep.Outcomes, e.handler.Handle(ctx, sig))
	}
}

// LastCycle returns the most recent cycle report and how many cycles ran.
func (e *Engine) LastCycle() (CycleReport, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, e.cycles
}
