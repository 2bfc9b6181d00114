// Package executor turns validated orders into exchange calls, or simulates
// them in dry-run mode, and journals the outcome.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tradebot/internal/gateway/exchange"
	"tradebot/internal/gateway/notifier"
	"tradebot/internal/logger"
	"tradebot/internal/types"

	"github.com/google/uuid"
)

var ErrNilExchange = errors.New("executor requires an exchange")

// OrderPlacer is the part of exchange.Exchange the executor submits through.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
}

// Journal records placed and cancelled orders. *store.Journal satisfies it.
type Journal interface {
	RecordOrder(ctx context.Context, order types.Order, res exchange.OrderResult, reason string) error
	MarkCanceled(ctx context.Context, orderID string) error
}

type noopJournal struct{}

func (noopJournal) RecordOrder(context.Context, types.Order, exchange.OrderResult, string) error {
	return nil
}
func (noopJournal) MarkCanceled(context.Context, string) error { return nil }

type Option func(*Executor)

func WithJournal(j Journal) Option { return func(e *Executor) { e.journal = j } }

func WithNotifier(n notifier.TextNotifier) Option { return func(e *Executor) { e.notifier = n } }

func WithLogger(log *slog.Logger) Option { return func(e *Executor) { e.log = log } }

func WithClock(now func() time.Time) Option { return func(e *Executor) { e.now = now } }

type Executor struct {
	ex       OrderPlacer
	dryRun   bool
	journal  Journal
	notifier notifier.TextNotifier
	log      *slog.Logger
	now      func() time.Time
	newID    func() string
}

// New builds an executor. With dryRun set no order ever reaches ex.
func New(ex OrderPlacer, dryRun bool, opts ...Option) (*Executor, error) {
	if ex == nil {
		return nil, ErrNilExchange
	}
	e := &Executor{ex: ex, dryRun: dryRun, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logger.OrDiscard(e.log)
	if e.notifier == nil {
		e.notifier = notifier.Noop{}
	}
	if e.journal == nil {
		e.journal = noopJournal{}
	}
	if dryRun {
		e.log.Warn("dry run mode: orders are simulated")
	}
	return e, nil
}

func (e *Executor) DryRun() bool { return e.dryRun }

// PlaceOrder validates order and submits it. reason is carried into the
// journal and notifications.
func (e *Executor) PlaceOrder(ctx context.Context, order types.Order, reason string) (exchange.OrderResult, error) {
	if err := order.Validate(); err != nil {
		return exchange.OrderResult{}, err
	}
	req := exchange.OrderRequest{
		Symbol:     order.Symbol,
		Side:       string(order.Side),
		Type:       string(order.Type),
		Amount:     order.Amount,
		Price:      order.LimitPrice(),
		ReduceOnly: order.ReduceOnly,
		Futures:    order.Market == types.MarketFutures,
	}

	var res exchange.OrderResult
	if e.dryRun {
		res = e.simulate(req)
		e.log.Info("dry run order",
			"id", res.ID, "symbol", req.Symbol, "side", req.Side, "type", req.Type,
			"amount", req.Amount, "price", req.Price, "reduce_only", req.ReduceOnly)
	} else {
		var err error
		res, err = e.ex.CreateOrder(ctx, req)
		if err != nil {
			e.log.Error("place order failed", "symbol", req.Symbol, "side", req.Side, "amount", req.Amount, "error", err)
			return exchange.OrderResult{}, fmt.Errorf("place %s %s order: %w", req.Side, req.Symbol, err)
		}
		e.log.Info("order placed",
			"id", res.ID, "symbol", res.Symbol, "side", res.Side, "type", res.Type,
			"amount", res.Amount, "price", res.Price, "status", res.Status)
	}
	order.ID = res.ID

	if err := e.journal.RecordOrder(ctx, order, res, reason); err != nil {
		e.log.Error("journal order failed", "id", res.ID, "error", err)
	}
	e.notify(ctx, notifier.OrderPlaced(order, res, reason).RenderMarkdown())
	return res, nil
}

func (e *Executor) simulate(req exchange.OrderRequest) exchange.OrderResult {
	return exchange.OrderResult{
		ID:        e.newID(),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Amount:    req.Amount,
		Price:     req.Price,
		Status:    "open",
		Timestamp: e.now(),
		DryRun:    true,
	}
}

// CancelOrder cancels orderID. Dry-run cancels always succeed.
func (e *Executor) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if !e.dryRun {
		if err := e.ex.CancelOrder(ctx, symbol, orderID); err != nil {
			e.log.Error("cancel order failed", "symbol", symbol, "id", orderID, "error", err)
			return fmt.Errorf("cancel %s: %w", orderID, err)
		}
	}
	e.log.Info("order cancelled", "symbol", symbol, "id", orderID, "dry_run", e.dryRun)
	if err := e.journal.MarkCanceled(ctx, orderID); err != nil {
		e.log.Warn("journal cancel failed", "id", orderID, "error", err)
	}
	return nil
}

func (e *Executor) notify(ctx context.Context, text string) {
	if err := e.notifier.SendText(ctx, text); err != nil {
		e.log.Warn("notify failed", "error", err)
	}
}
