// Package exchange defines a common abstraction for trading venues so the
// position and risk core never depends on a specific SDK.
package exchange

import (
	"strings"
	"time"
)

// BalanceEntry is one currency line of the wallet.
type BalanceEntry struct {
	Free  float64
	Used  float64
	Total float64
}

// Balances is keyed by currency code (e.g. "USDT", "BTC").
type Balances map[string]BalanceEntry

func (b Balances) Free(currency string) float64 {
	if b == nil {
		return 0
	}
	return b[currency].Free
}

// FuturesPosition is one derivatives position as reported by the venue.
// Contracts is always non-negative; direction lives in Side.
type FuturesPosition struct {
	Symbol        string
	Contracts     float64
	EntryPrice    float64
	MarkPrice     float64
	Side          string // "long" or "short"
	UnrealizedPnL float64
	Notional      float64
}

// Ticker carries the latest quote for a symbol.
type Ticker struct {
	Symbol    string
	Last      float64
	Bid       float64
	Ask       float64
	UpdatedAt time.Time
}

// TradeFill is one of our own executions.
type TradeFill struct {
	ID        string
	Symbol    string
	Side      string // "buy" or "sell"
	Amount    float64
	Price     float64
	Timestamp time.Time
}

func (f TradeFill) IsBuy() bool { return strings.EqualFold(f.Side, "buy") }

type Candle struct {
	OpenTime  time.Time
	CloseTime time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// OrderRequest contains parameters for a new order.
type OrderRequest struct {
	Symbol     string  // canonical, e.g. "BTC/USDT"
	Side       string  // "buy" or "sell"
	Type       string  // "market" or "limit"
	Amount     float64 // base currency quantity
	Price      float64 // limit price, 0 for market
	ReduceOnly bool
	Futures    bool // route to the derivatives venue
}

// OrderResult is the venue's acknowledgement of an order.
type OrderResult struct {
	ID        string
	Symbol    string
	Side      string
	Type      string
	Amount    float64
	Price     float64
	Status    string
	Timestamp time.Time
	DryRun    bool
}
