package notifier

import (
	"fmt"
	"time"

	"tradebot/internal/gateway/exchange"
	"tradebot/internal/position"
	"tradebot/internal/types"
)

// OrderPlaced describes a submitted order.
func OrderPlaced(order types.Order, res exchange.OrderResult, reason string) StructuredMessage {
	title := fmt.Sprintf("%s %s", order.Side, order.Symbol)
	if res.DryRun {
		title += " (dry run)"
	}
	price := "market"
	if res.Price > 0 {
		price = fmt.Sprintf("%.6f", res.Price)
	} else if order.Type == types.OrderLimit {
		price = fmt.Sprintf("%.6f", order.LimitPrice())
	}
	lines := []string{
		"ID: " + res.ID,
		fmt.Sprintf("Amount: %.8f", order.Amount),
		"Price: " + price,
		"Type: " + string(order.Type),
	}
	if order.ReduceOnly {
		lines = append(lines, "Reduce only")
	}
	var ctx []string
	if order.Strategy != "" {
		ctx = append(ctx, "Strategy: "+order.Strategy)
	}
	if reason != "" {
		ctx = append(ctx, "Reason: "+reason)
	}
	return StructuredMessage{
		Icon:      sideIcon(order.Side),
		Title:     title,
		Sections:  []MessageSection{{Title: "Order", Lines: lines}, {Title: "Context", Lines: ctx}},
		Timestamp: stamp(res.Timestamp),
	}
}

// PositionClosed describes a position leaving the active set.
func PositionClosed(p position.Position, reason string, at time.Time) StructuredMessage {
	return StructuredMessage{
		Icon:  "📕",
		Title: fmt.Sprintf("closed %s %s", p.Side, p.Symbol),
		Sections: []MessageSection{{
			Title: "Position",
			Lines: []string{
				fmt.Sprintf("Amount: %.8f", p.Amount),
				fmt.Sprintf("Entry: %.6f", p.EntryPrice),
				fmt.Sprintf("Exit: %.6f", p.CurrentPrice),
				fmt.Sprintf("Profit: %.2f%%", p.ProfitPct()*100),
				fmt.Sprintf("Drawdown: %.2f%%", p.DrawdownPct()*100),
				"Held: " + p.Duration(at).Round(time.Minute).String(),
			},
		}},
		Footer:    reason,
		Timestamp: stamp(at),
	}
}

func sideIcon(side types.OrderSide) string {
	if side == types.SideBuy {
		return "🟢"
	}
	return "🔴"
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
