// Package trading drives the bot: it feeds candles to the strategy, turns
// signals into orders through the risk manager and watches open positions.
package trading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tradebot/internal/gateway/exchange"
	"tradebot/internal/gateway/notifier"
	"tradebot/internal/logger"
	"tradebot/internal/position"
	"tradebot/internal/types"
)

// RiskManager is the part of *risk.Manager the handler consults.
type RiskManager interface {
	ValidateSignal(ctx context.Context, sig types.Signal) (bool, string)
	CalculatePositionSize(ctx context.Context, sig types.Signal) float64
	CheckDrawdownLimits(ctx context.Context) []string
	GetPosition(ctx context.Context, symbol string) (position.Position, bool)
	SetStopLoss(sig types.Signal) *types.Order
}

// PositionBook is the part of *position.Tracker trading mutates and lists.
type PositionBook interface {
	UpdatePositions(ctx context.Context) position.RefreshReport
	GetAllPositions() []position.Position
	GetClosedPositions() []position.Position
	ClosePosition(ctx context.Context, symbol string) (position.Position, bool, error)
	IsDust(p position.Position) bool
}

// OrderPlacer is satisfied by *executor.Executor.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order types.Order, reason string) (exchange.OrderResult, error)
	DryRun() bool
}

// Journal is satisfied by *store.Journal.
type Journal interface {
	RecordSignal(ctx context.Context, sig types.Signal, accepted bool, reason, orderID string) error
	ArchiveClose(ctx context.Context, p position.Position, reason string) error
}

type noopJournal struct{}

func (noopJournal) RecordSignal(context.Context, types.Signal, bool, string, string) error {
	return nil
}
func (noopJournal) ArchiveClose(context.Context, position.Position, string) error { return nil }

// Outcome is what happened to one signal.
type Outcome struct {
	Accepted bool
	Reason   string
	Order    *exchange.OrderResult
}

var ErrMissingDependency = errors.New("trading: missing dependency")

type HandlerDeps struct {
	Risk     RiskManager
	Book     PositionBook
	Executor OrderPlacer
	Journal  Journal
	Notifier notifier.TextNotifier
	Logger   *slog.Logger
	Now      func() time.Time
}

func (d *HandlerDeps) check() error {
	switch {
	case d.Risk == nil:
		return fmt.Errorf("%w: risk manager", ErrMissingDependency)
	case d.Book == nil:
		return fmt.Errorf("%w: position book", ErrMissingDependency)
	case d.Executor == nil:
		return fmt.Errorf("%w: executor", ErrMissingDependency)
	}
	if d.Journal == nil {
		d.Journal = noopJournal{}
	}
	if d.Notifier == nil {
		d.Notifier = notifier.Noop{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	d.Logger = logger.OrDiscard(d.Logger)
	return nil
}

// SignalHandler executes strategy signals. Close signals flatten the whole
// position with a reduce-only market order; buy and sell signals pass
// validation and sizing before a market order is sent.
type SignalHandler struct {
	deps HandlerDeps
	log  *slog.Logger

	// OnFill runs after every order the exchange accepted.
	OnFill func(ctx context.Context, res exchange.OrderResult)
}

func NewSignalHandler(deps HandlerDeps) (*SignalHandler, error) {
	if err := deps.check(); err != nil {
		return nil, err
	}
	return &SignalHandler{deps: deps, log: deps.Logger}, nil
}

func (h *SignalHandler) Handle(ctx context.Context, sig types.Signal) Outcome {
	h.log.Info("processing signal", "type", sig.Type, "symbol", sig.Symbol, "strategy", sig.Strategy, "price", sig.Price)
	var out Outcome
	switch sig.Type {
	case types.SignalClose:
		out = h.handleClose(ctx, sig)
	case types.SignalBuy, types.SignalSell:
		out = h.handleTrade(ctx, sig)
	default:
		out = Outcome{Reason: fmt.Sprintf("unknown signal type %q", sig.Type)}
		h.log.Warn("signal ignored", "type", sig.Type, "symbol", sig.Symbol)
	}
	orderID := ""
	if out.Order != nil {
		orderID = out.Order.ID
	}
	if err := h.deps.Journal.RecordSignal(ctx, sig, out.Accepted, out.Reason, orderID); err != nil {
		h.log.Warn("journal signal failed", "symbol", sig.Symbol, "error", err)
	}
	return out
}

func (h *SignalHandler) handleClose(ctx context.Context, sig types.Signal) Outcome {
	reason := sig.Params.Reason
	if reason == "" {
		reason = "signal"
	}
	res, closed, err := h.Exit(ctx, sig.Symbol, reason)
	switch {
	case err != nil:
		return Outcome{Reason: err.Error(), Order: res}
	case !closed:
		return Outcome{Reason: "nothing to close"}
	}
	return Outcome{Accepted: true, Reason: "position closed", Order: res}
}

func (h *SignalHandler) handleTrade(ctx context.Context, sig types.Signal) Outcome {
	ok, reason := h.deps.Risk.ValidateSignal(ctx, sig)
	if !ok {
		h.log.Info("signal rejected", "symbol", sig.Symbol, "reason", reason)
		return Outcome{Reason: reason}
	}
	size := h.deps.Risk.CalculatePositionSize(ctx, sig)
	if !(size > 0) {
		h.log.Warn("invalid position size", "symbol", sig.Symbol, "size", size)
		return Outcome{Reason: fmt.Sprintf("invalid position size %v", size)}
	}
	order := types.Order{
		Symbol:      sig.Symbol,
		Side:        types.OrderSide(sig.Type),
		Amount:      size,
		Type:        types.OrderMarket,
		Market:      sig.Params.MarketType,
		Strategy:    sig.Strategy,
		SignalPrice: sig.Price,
	}
	res, err := h.deps.Executor.PlaceOrder(ctx, order, sig.Params.Reason)
	if err != nil {
		h.log.Error("order failed", "symbol", sig.Symbol, "side", order.Side, "error", err)
		return Outcome{Reason: err.Error()}
	}
	h.log.Info("order executed", "symbol", sig.Symbol, "side", order.Side, "amount", size, "signal_price", sig.Price, "id", res.ID)
	h.filled(ctx, res)

	if sig.Type == types.SignalBuy && !h.deps.Executor.DryRun() {
		if sl := h.deps.Risk.SetStopLoss(sig); sl != nil {
			sl.Amount = size
			if _, err := h.deps.Executor.PlaceOrder(ctx, *sl, "stop loss"); err != nil {
				h.log.Error("stop loss order failed", "symbol", sig.Symbol, "error", err)
			}
		}
	}
	return Outcome{Accepted: true, Reason: reason, Order: &res}
}

// Exit flattens the position in symbol. It reports false without error when
// nothing (or only dust) is held, so repeated exits are harmless.
func (h *SignalHandler) Exit(ctx context.Context, symbol, reason string) (*exchange.OrderResult, bool, error) {
	pos, ok := h.deps.Risk.GetPosition(ctx, symbol)
	if !ok {
		h.log.Info("no position to close", "symbol", symbol)
		return nil, false, nil
	}
	if h.deps.Book.IsDust(pos) {
		h.log.Warn("skipping close of dust position", "symbol", pos.Symbol, "value", pos.Value())
		return nil, false, nil
	}
	order := types.Order{
		Symbol:     pos.Symbol,
		Side:       types.ExitSide(string(pos.Side)),
		Amount:     pos.Amount,
		Type:       types.OrderMarket,
		ReduceOnly: true,
		Market:     types.MarketSpot,
	}
	if pos.Futures {
		order.Market = types.MarketFutures
	}
	res, err := h.deps.Executor.PlaceOrder(ctx, order, reason)
	if err != nil {
		h.log.Error("close order failed", "symbol", pos.Symbol, "error", err)
		return nil, false, fmt.Errorf("close %s: %w", pos.Symbol, err)
	}
	h.log.Info("position close sent", "symbol", pos.Symbol, "side", order.Side, "amount", pos.Amount,
		"price", pos.CurrentPrice, "value", pos.Value(), "reason", reason)

	closed, found, err := h.deps.Book.ClosePosition(ctx, pos.Symbol)
	if err != nil {
		h.log.Error("persist close failed", "symbol", pos.Symbol, "error", err)
	}
	if found {
		h.deps.archive(ctx, h.log, closed, reason)
	}
	h.filled(ctx, res)
	return &res, true, nil
}

// archive keeps a closed position in the journal and announces it.
func (d *HandlerDeps) archive(ctx context.Context, log *slog.Logger, p position.Position, reason string) {
	if err := d.Journal.ArchiveClose(ctx, p, reason); err != nil {
		log.Warn("archive close failed", "symbol", p.Symbol, "error", err)
	}
	text := notifier.PositionClosed(p, reason, d.Now()).RenderMarkdown()
	if err := d.Notifier.SendText(ctx, text); err != nil {
		log.Warn("notify failed", "error", err)
	}
}

func (h *SignalHandler) filled(ctx context.Context, res exchange.OrderResult) {
	if h.OnFill != nil && !res.DryRun {
		h.OnFill(ctx, res)
	}
}
