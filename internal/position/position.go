// Package position tracks open exposures reconciled from an exchange and
// keeps their price watermarks across restarts.
package position

import (
	"fmt"
	"strings"
	"time"
)

type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case Long:
		return Long, nil
	case Short:
		return Short, nil
	}
	return "", fmt.Errorf("invalid position side %q", s)
}

// Position is one open exposure in one symbol. Amount is never negative;
// direction lives in Side.
type Position struct {
	Symbol        string    `json:"symbol"`
	Side          Side      `json:"side"`
	Amount        float64   `json:"amount"`
	EntryPrice    float64   `json:"entry_price"`
	CurrentPrice  float64   `json:"current_price"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	RealizedPnL   float64   `json:"realized_pnl"`
	EntryTime     time.Time `json:"entry_time"`
	MaxPrice      float64   `json:"max_price"`
	MinPrice      float64   `json:"min_price"`
	Futures       bool      `json:"futures,omitempty"`
}

// New builds a position and seeds both watermarks with the current price.
func New(symbol string, side Side, amount, entryPrice, currentPrice float64, entryTime time.Time) *Position {
	p := &Position{
		Symbol:       symbol,
		Side:         side,
		Amount:       amount,
		EntryPrice:   entryPrice,
		CurrentPrice: currentPrice,
		EntryTime:    entryTime,
	}
	p.seedWatermarks()
	return p
}

func (p *Position) seedWatermarks() {
	if p.MaxPrice == 0 {
		p.MaxPrice = p.CurrentPrice
	}
	if p.MinPrice == 0 {
		p.MinPrice = p.CurrentPrice
	}
}

func (p *Position) IsLong() bool { return p.Side != Short }

// UpdatePrice records a new mark, widens the watermarks and recomputes
// unrealized PnL.
func (p *Position) UpdatePrice(price float64) {
	p.CurrentPrice = price
	if price > p.MaxPrice {
		p.MaxPrice = price
	}
	if price < p.MinPrice || p.MinPrice == 0 {
		p.MinPrice = price
	}
	if p.IsLong() {
		p.UnrealizedPnL = (p.CurrentPrice - p.EntryPrice) * p.Amount
	} else {
		p.UnrealizedPnL = (p.EntryPrice - p.CurrentPrice) * p.Amount
	}
}

// DrawdownPct is the retracement from the favourable watermark as a fraction
// (0.1 = 10%).
func (p *Position) DrawdownPct() float64 {
	if p.IsLong() {
		if p.MaxPrice <= 0 {
			return 0
		}
		return (p.MaxPrice - p.CurrentPrice) / p.MaxPrice
	}
	if p.MinPrice <= 0 {
		return 0
	}
	return (p.CurrentPrice - p.MinPrice) / p.MinPrice
}

func (p *Position) ProfitPct() float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	pct := (p.CurrentPrice - p.EntryPrice) / p.EntryPrice
	if !p.IsLong() {
		return -pct
	}
	return pct
}

func (p *Position) Duration(now time.Time) time.Duration {
	return now.Sub(p.EntryTime)
}

// Value is the notional at the current price.
func (p *Position) Value() float64 {
	return p.Amount * p.CurrentPrice
}

func (p *Position) String() string {
	return fmt.Sprintf("%s %s amount=%.8g entry=%.8g current=%.8g dd=%.2f%% pnl=%.2f%%",
		p.Symbol, p.Side, p.Amount, p.EntryPrice, p.CurrentPrice, p.DrawdownPct()*100, p.ProfitPct()*100)
}
