// Package risk gates strategy signals and sizes orders against the tracked
// position set.
package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"tradebot/internal/gateway/exchange"
	"tradebot/internal/logger"
	"tradebot/internal/pkg/symbol"
	"tradebot/internal/position"
	"tradebot/internal/types"
)

var (
	ErrNilTracker  = errors.New("risk manager requires a position tracker")
	ErrNilBalances = errors.New("risk manager requires a balance source")
)

type Config struct {
	MaxOpenTrades int
	MaxDrawdown   float64 // fraction, 0.2 = 20% retracement from the watermark
}

func (c Config) Validate() error {
	if c.MaxOpenTrades < 1 {
		return fmt.Errorf("max_open_trades must be >= 1, got %d", c.MaxOpenTrades)
	}
	if math.IsNaN(c.MaxDrawdown) || c.MaxDrawdown <= 0 || c.MaxDrawdown > 1 {
		return fmt.Errorf("max_drawdown must be in (0,1], got %v", c.MaxDrawdown)
	}
	return nil
}

// Tracker is the slice of *position.Tracker the manager reads through.
type Tracker interface {
	UpdatePositions(ctx context.Context) position.RefreshReport
	GetAllPositions() []position.Position
	GetPosition(ctx context.Context, symbol string) (position.Position, bool)
}

type Manager struct {
	cfg      Config
	tracker  Tracker
	balances exchange.BalanceReader
	log      *slog.Logger
}

func NewManager(cfg Config, tracker Tracker, balances exchange.BalanceReader, log *slog.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("risk config: %w", err)
	}
	if tracker == nil {
		return nil, ErrNilTracker
	}
	if balances == nil {
		return nil, ErrNilBalances
	}
	m := &Manager{cfg: cfg, tracker: tracker, balances: balances, log: logger.OrDiscard(log)}
	m.log.Info("risk manager ready", "max_open_trades", cfg.MaxOpenTrades, "max_drawdown", cfg.MaxDrawdown)
	return m, nil
}

func (m *Manager) Config() Config { return m.cfg }

// ValidateSignal decides whether sig may be executed. Close signals always
// pass; buys are refused when the symbol is already held; anything that
// opens exposure is refused once every slot is taken.
func (m *Manager) ValidateSignal(_ context.Context, sig types.Signal) (bool, string) {
	switch sig.Type {
	case types.SignalClose:
		return true, "Close signals are always valid"
	case types.SignalBuy, types.SignalSell:
	default:
		return false, fmt.Sprintf("unknown signal type %q", sig.Type)
	}

	open := m.tracker.GetAllPositions()
	if sig.Type == types.SignalBuy {
		want := symbol.Canonical(sig.Symbol)
		for _, p := range open {
			if p.Symbol == want {
				reason := fmt.Sprintf("Position already open for %s", want)
				m.log.Warn("signal rejected", "symbol", want, "reason", reason)
				return false, reason
			}
		}
	}
	if len(open) >= m.cfg.MaxOpenTrades {
		reason := fmt.Sprintf("Maximum number of open trades reached (%d)", m.cfg.MaxOpenTrades)
		m.log.Warn("signal rejected", "symbol", sig.Symbol, "reason", reason)
		return false, reason
	}
	return true, "Signal validated"
}

// CalculatePositionSize splits the free quote balance evenly across the
// slots not yet taken and converts it to base units. Any failure yields 0,
// which callers must treat as "do not trade".
func (m *Manager) CalculatePositionSize(ctx context.Context, sig types.Signal) (size float64) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("position sizing panicked", "symbol", sig.Symbol, "panic", r)
			size = 0
		}
	}()

	m.tracker.UpdatePositions(ctx)

	quote := symbol.QuoteCurrency(sig.Symbol)
	balances, err := m.balances.FetchBalance(ctx)
	if err != nil {
		m.log.Warn("position sizing: balance unavailable", "symbol", sig.Symbol, "error", err)
		return 0
	}
	available := balances.Free(quote)
	if !(available > 0) || math.IsInf(available, 0) {
		m.log.Warn("no available balance", "currency", quote)
		return 0
	}
	if !(sig.Price > 0) || math.IsInf(sig.Price, 0) {
		m.log.Warn("position sizing: invalid signal price", "symbol", sig.Symbol, "price", sig.Price)
		return 0
	}

	active := len(m.tracker.GetAllPositions())
	remaining := m.cfg.MaxOpenTrades - active
	if remaining < 1 {
		remaining = 1
	}
	allocation := available / float64(remaining)
	size = allocation / sig.Price

	if sig.IsFutures() && sig.Params.Leverage != nil {
		lev := *sig.Params.Leverage
		if !(lev > 0) || math.IsInf(lev, 0) {
			m.log.Warn("position sizing: invalid leverage", "symbol", sig.Symbol, "leverage", lev)
			return 0
		}
		size *= lev
		m.log.Info("applied leverage to position size", "symbol", sig.Symbol, "leverage", lev)
	}
	if !(size > 0) || math.IsInf(size, 0) {
		return 0
	}
	m.log.Info("calculated position size", "symbol", sig.Symbol, "size", size,
		"allocation", allocation, "quote", quote, "available", available,
		"active", active, "remaining_slots", remaining)
	return size
}

// CheckDrawdownLimits lists non-dust positions whose retracement from the
// favourable watermark exceeds MaxDrawdown. It does not close anything.
func (m *Manager) CheckDrawdownLimits(ctx context.Context) []string {
	m.tracker.UpdatePositions(ctx)
	var breached []string
	for _, p := range m.tracker.GetAllPositions() {
		dd := p.DrawdownPct()
		if dd > m.cfg.MaxDrawdown {
			m.log.Warn("drawdown limit exceeded", "symbol", p.Symbol,
				"drawdown", dd, "limit", m.cfg.MaxDrawdown, "max_price", p.MaxPrice, "current", p.CurrentPrice)
			breached = append(breached, p.Symbol)
		}
	}
	return breached
}

func (m *Manager) GetPosition(ctx context.Context, sym string) (position.Position, bool) {
	canon := symbol.Canonical(sym)
	m.tracker.UpdatePositions(ctx)
	return m.tracker.GetPosition(ctx, canon)
}

// SetStopLoss places no static stop; exits are driven by CheckDrawdownLimits.
func (m *Manager) SetStopLoss(types.Signal) *types.Order {
	return nil
}
