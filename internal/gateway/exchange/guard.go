package exchange

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tradebot/internal/pkg/circuit"
)

const DefaultCallTimeout = 10 * time.Second

// Guarded bounds every call to the wrapped exchange with a per-call timeout
// and trips a circuit breaker after repeated failures. Failures come back as
// *FetchError.
type Guarded struct {
	inner   Exchange
	timeout time.Duration
	breaker *circuit.CircuitBreaker
}

type GuardOptions struct {
	Timeout          time.Duration
	FailureThreshold int
	OpenTimeout      time.Duration
	Logger           *slog.Logger
}

func NewGuarded(inner Exchange, opts GuardOptions) *Guarded {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultCallTimeout
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	return &Guarded{
		inner:   inner,
		timeout: opts.Timeout,
		breaker: circuit.NewCircuitBreaker(inner.Name(), opts.FailureThreshold, opts.OpenTimeout, opts.Logger),
	}
}

func (g *Guarded) Name() string { return g.inner.Name() }

func (g *Guarded) Breaker() *circuit.CircuitBreaker { return g.breaker }

func (g *Guarded) call(ctx context.Context, op, symbol string, fn func(ctx context.Context) error) error {
	if !g.breaker.Allow() {
		return NewFetchError(op, symbol, circuit.ErrOpen)
	}
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	err := fn(cctx)
	switch {
	case err == nil:
		g.breaker.RecordSuccess()
		return nil
	case IsNotSupported(err):
		// the venue answered; nothing to count against it
		g.breaker.RecordSuccess()
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// caller gave up, not the venue's fault
	default:
		g.breaker.RecordFailure()
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return NewFetchError(op, symbol, err)
}

func (g *Guarded) FetchBalance(ctx context.Context) (Balances, error) {
	var out Balances
	err := g.call(ctx, "fetch_balance", "", func(ctx context.Context) error {
		var err error
		out, err = g.inner.FetchBalance(ctx)
		return err
	})
	return out, err
}

func (g *Guarded) FetchPositions(ctx context.Context, symbols ...string) ([]FuturesPosition, error) {
	var out []FuturesPosition
	err := g.call(ctx, "fetch_positions", "", func(ctx context.Context) error {
		var err error
		out, err = g.inner.FetchPositions(ctx, symbols...)
		return err
	})
	return out, err
}

func (g *Guarded) FetchTicker(ctx context.Context, symbol string) (Ticker, error) {
	var out Ticker
	err := g.call(ctx, "fetch_ticker", symbol, func(ctx context.Context) error {
		var err error
		out, err = g.inner.FetchTicker(ctx, symbol)
		return err
	})
	return out, err
}

func (g *Guarded) FetchMyTrades(ctx context.Context, symbol string, limit int) ([]TradeFill, error) {
	var out []TradeFill
	err := g.call(ctx, "fetch_my_trades", symbol, func(ctx context.Context) error {
		var err error
		out, err = g.inner.FetchMyTrades(ctx, symbol, limit)
		return err
	})
	return out, err
}

func (g *Guarded) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	var out []Candle
	err := g.call(ctx, "fetch_candles", symbol, func(ctx context.Context) error {
		var err error
		out, err = g.inner.FetchCandles(ctx, symbol, interval, limit)
		return err
	})
	return out, err
}

func (g *Guarded) CreateOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	var out OrderResult
	err := g.call(ctx, "create_order", req.Symbol, func(ctx context.Context) error {
		var err error
		out, err = g.inner.CreateOrder(ctx, req)
		return err
	})
	return out, err
}

func (g *Guarded) CancelOrder(ctx context.Context, symbol, orderID string) error {
	return g.call(ctx, "cancel_order", symbol, func(ctx context.Context) error {
		return g.inner.CancelOrder(ctx, symbol, orderID)
	})
}

var _ Exchange = (*Guarded)(nil)
