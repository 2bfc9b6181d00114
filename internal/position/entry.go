package position

import (
	"context"
	"sort"

	"tradebot/internal/gateway/exchange"
)

// reconstructEntry estimates the average entry price of a spot holding from
// recent fills: newest buys are accumulated until they cover coverage×amount
// and their VWAP is returned. Approximate by nature; fills that straddle the
// coverage boundary are counted whole. Returns 0 when no buys are found.
func reconstructEntry(ctx context.Context, ex exchange.AccountReader, symbol string, amount float64, lookback int, coverage float64) (float64, error) {
	trades, err := ex.FetchMyTrades(ctx, symbol, lookback)
	if err != nil {
		return 0, err
	}
	return entryFromFills(trades, amount, coverage), nil
}

func entryFromFills(trades []exchange.TradeFill, amount, coverage float64) float64 {
	if len(trades) == 0 {
		return 0
	}
	sorted := append([]exchange.TradeFill(nil), trades...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var cost, filled float64
	for i := len(sorted) - 1; i >= 0; i-- {
		t := sorted[i]
		if !t.IsBuy() {
			continue
		}
		cost += t.Amount * t.Price
		filled += t.Amount
		if filled >= amount*coverage {
			break
		}
	}
	if filled <= 0 {
		return 0
	}
	return cost / filled
}
