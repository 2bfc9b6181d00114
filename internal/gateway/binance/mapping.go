package binance

import (
	"strconv"
	"strings"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"tradebot/internal/gateway/exchange"
	"tradebot/internal/pkg/convert"
	symbolpkg "tradebot/internal/pkg/symbol"
)

// The functions below turn SDK records (all numbers as strings) into the
// typed exchange records. Records with unparseable required numbers are
// dropped rather than coerced to zero.

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}

func parseRequired(v string) (float64, bool) {
	return convert.ParseFloat(v)
}

func mapBalances(acc *gobinance.Account) exchange.Balances {
	out := exchange.Balances{}
	if acc == nil {
		return out
	}
	for _, b := range acc.Balances {
		asset := strings.ToUpper(strings.TrimSpace(b.Asset))
		if asset == "" {
			continue
		}
		free, ok := parseRequired(b.Free)
		if !ok {
			continue
		}
		locked := parseFloat(b.Locked)
		out[asset] = exchange.BalanceEntry{Free: free, Used: locked, Total: free + locked}
	}
	return out
}

// mapPositionRisk keeps non-flat positions. Binance reports direction in the
// sign of positionAmt for one-way mode; hedge mode sets positionSide.
func mapPositionRisk(rows []*futures.PositionRisk) []exchange.FuturesPosition {
	out := make([]exchange.FuturesPosition, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		amt, ok := parseRequired(r.PositionAmt)
		if !ok || amt == 0 {
			continue
		}
		side := "long"
		switch strings.ToUpper(r.PositionSide) {
		case "SHORT":
			side = "short"
		case "LONG":
		default:
			if amt < 0 {
				side = "short"
			}
		}
		contracts := amt
		if contracts < 0 {
			contracts = -contracts
		}
		mark := parseFloat(r.MarkPrice)
		notional := parseFloat(r.Notional)
		if notional == 0 {
			notional = contracts * mark
		}
		out = append(out, exchange.FuturesPosition{
			Symbol:        symbolpkg.Binance.FromExchange(r.Symbol),
			Contracts:     contracts,
			EntryPrice:    parseFloat(r.EntryPrice),
			MarkPrice:     mark,
			Side:          side,
			UnrealizedPnL: parseFloat(r.UnRealizedProfit),
			Notional:      notional,
		})
	}
	return out
}

func mapTrades(sym string, rows []*gobinance.TradeV3) []exchange.TradeFill {
	out := make([]exchange.TradeFill, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		qty, ok1 := parseRequired(r.Quantity)
		px, ok2 := parseRequired(r.Price)
		if !ok1 || !ok2 {
			continue
		}
		side := "sell"
		if r.IsBuyer {
			side = "buy"
		}
		out = append(out, exchange.TradeFill{
			ID:        strconv.FormatInt(r.ID, 10),
			Symbol:    sym,
			Side:      side,
			Amount:    qty,
			Price:     px,
			Timestamp: time.UnixMilli(r.Time),
		})
	}
	return out
}

func mapKlines(rows []*gobinance.Kline) []exchange.Candle {
	out := make([]exchange.Candle, 0, len(rows))
	for _, kl := range rows {
		if kl == nil {
			continue
		}
		closePx, ok := parseRequired(kl.Close)
		if !ok {
			continue
		}
		out = append(out, exchange.Candle{
			OpenTime:  time.UnixMilli(kl.OpenTime),
			CloseTime: time.UnixMilli(kl.CloseTime),
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     closePx,
			Volume:    parseFloat(kl.Volume),
		})
	}
	return out
}

func mapTicker(sym string, last string, book *gobinance.BookTicker) (exchange.Ticker, bool) {
	px, ok := parseRequired(last)
	if !ok {
		return exchange.Ticker{}, false
	}
	t := exchange.Ticker{Symbol: sym, Last: px, UpdatedAt: time.Now()}
	if book != nil {
		t.Bid = parseFloat(book.BidPrice)
		t.Ask = parseFloat(book.AskPrice)
	}
	return t, true
}

func mapSpotOrder(sym string, r *gobinance.CreateOrderResponse) exchange.OrderResult {
	res := exchange.OrderResult{
		ID:        strconv.FormatInt(r.OrderID, 10),
		Symbol:    sym,
		Side:      strings.ToLower(string(r.Side)),
		Type:      strings.ToLower(string(r.Type)),
		Amount:    parseFloat(r.ExecutedQuantity),
		Price:     parseFloat(r.Price),
		Status:    strings.ToLower(string(r.Status)),
		Timestamp: time.UnixMilli(r.TransactTime),
	}
	if res.Amount == 0 {
		res.Amount = parseFloat(r.OrigQuantity)
	}
	// market fills report price 0; derive the average from the quote spent
	if res.Price == 0 {
		if quote := parseFloat(r.CummulativeQuoteQuantity); quote > 0 && res.Amount > 0 {
			res.Price = quote / res.Amount
		}
	}
	return res
}

func mapFuturesOrder(sym string, r *futures.CreateOrderResponse) exchange.OrderResult {
	res := exchange.OrderResult{
		ID:        strconv.FormatInt(r.OrderID, 10),
		Symbol:    sym,
		Side:      strings.ToLower(string(r.Side)),
		Type:      strings.ToLower(string(r.Type)),
		Amount:    parseFloat(r.ExecutedQuantity),
		Price:     parseFloat(r.AvgPrice),
		Status:    strings.ToLower(string(r.Status)),
		Timestamp: time.UnixMilli(r.UpdateTime),
	}
	if res.Amount == 0 {
		res.Amount = parseFloat(r.OrigQuantity)
	}
	if res.Price == 0 {
		res.Price = parseFloat(r.Price)
	}
	return res
}

// formatDecimal truncates v to places decimals so an order never asks for
// more than is held.
func formatDecimal(v float64, places int32) string {
	return decimal.NewFromFloat(v).Truncate(places).String()
}
