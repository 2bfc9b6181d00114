package trading

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tradebot/internal/gateway/exchange"
	"tradebot/internal/position"
)

// Exiter closes a whole position; *SignalHandler implements it.
type Exiter interface {
	Exit(ctx context.Context, symbol, reason string) (*exchange.OrderResult, bool, error)
}

// Monitor keeps the position view fresh, logs its state every cycle, and
// exits positions whose drawdown broke the risk limit.
type Monitor struct {
	deps   HandlerDeps
	exiter Exiter
	log    *slog.Logger
}

func NewMonitor(deps HandlerDeps, exiter Exiter) (*Monitor, error) {
	if err := deps.check(); err != nil {
		return nil, err
	}
	if exiter == nil {
		return nil, fmt.Errorf("%w: exiter", ErrMissingDependency)
	}
	return &Monitor{deps: deps, exiter: exiter, log: deps.Logger}, nil
}

// Startup refreshes the book and lists whatever is already open.
func (m *Monitor) Startup(ctx context.Context) []position.Position {
	m.refresh(ctx)
	positions := m.deps.Book.GetAllPositions()
	if len(positions) == 0 {
		m.log.Info("no existing positions at startup")
		return positions
	}
	m.log.Info("existing positions at startup", "count", len(positions))
	now := m.deps.Now()
	for i := range positions {
		p := &positions[i]
		m.log.Info("position",
			"symbol", p.Symbol, "side", p.Side, "amount", p.Amount,
			"entry", p.EntryPrice, "current", p.CurrentPrice, "pnl", p.UnrealizedPnL,
			"profit_pct", pct(p.ProfitPct()), "drawdown_pct", pct(p.DrawdownPct()),
			"duration", p.Duration(now).Truncate(time.Second))
	}
	return positions
}

// Check runs one monitoring pass and returns the symbols it exited.
func (m *Monitor) Check(ctx context.Context) []string {
	m.refresh(ctx)
	now := m.deps.Now()
	for _, p := range m.deps.Book.GetAllPositions() {
		m.logStatus(p, now)
	}

	var exited []string
	for _, sym := range m.deps.Risk.CheckDrawdownLimits(ctx) {
		m.log.Warn("drawdown limit breached", "symbol", sym)
		_, closed, err := m.exiter.Exit(ctx, sym, "drawdown")
		if err != nil {
			m.log.Error("drawdown exit failed", "symbol", sym, "error", err)
			continue
		}
		if closed {
			exited = append(exited, sym)
		}
	}
	return exited
}

// OnFill refreshes after an order the exchange accepted and logs the
// position it produced.
func (m *Monitor) OnFill(ctx context.Context, res exchange.OrderResult) {
	m.log.Info("order filled", "id", res.ID, "symbol", res.Symbol, "side", res.Side)
	m.refresh(ctx)
	if p, ok := m.deps.Risk.GetPosition(ctx, res.Symbol); ok {
		m.log.Info("updated position", "symbol", p.Symbol, "side", p.Side, "amount", p.Amount,
			"entry", p.EntryPrice, "current", p.CurrentPrice)
	}
}

// refresh updates the book and archives positions the exchange no longer
// reports.
func (m *Monitor) refresh(ctx context.Context) position.RefreshReport {
	rep := m.deps.Book.UpdatePositions(ctx)
	if rep.Skipped {
		return rep
	}
	if err := rep.Err(); err != nil {
		m.log.Warn("position refresh incomplete", "error", err, "carried", rep.Carried)
	}
	if len(rep.Closed) == 0 {
		return rep
	}
	closed := m.deps.Book.GetClosedPositions()
	for _, sym := range rep.Closed {
		if p, ok := lastClosed(closed, sym); ok {
			m.deps.archive(ctx, m.log, p, "exchange")
		}
	}
	return rep
}

func (m *Monitor) logStatus(p position.Position, now time.Time) {
	age := p.Duration(now)
	m.log.Info("position status",
		"symbol", p.Symbol, "side", p.Side,
		"age", fmt.Sprintf("%dh %dm", int(age.Hours()), int(age.Minutes())%60),
		"amount", p.Amount, "entry", p.EntryPrice, "current", p.CurrentPrice,
		"drawdown_pct", pct(p.DrawdownPct()), "profit_pct", pct(p.ProfitPct()))
}

func lastClosed(closed []position.Position, sym string) (position.Position, bool) {
	for i := len(closed) - 1; i >= 0; i-- {
		if closed[i].Symbol == sym {
			return closed[i], true
		}
	}
	return position.Position{}, false
}

func pct(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}
