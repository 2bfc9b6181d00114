package types

import (
	"fmt"
	"strings"
	"time"
)

type SignalType string

const (
	SignalBuy   SignalType = "buy"
	SignalSell  SignalType = "sell"
	SignalClose SignalType = "close"
)

type MarketType string

const (
	MarketSpot    MarketType = "spot"
	MarketFutures MarketType = "futures"
)

// SignalParams carries the optional fields a strategy may attach.
type SignalParams struct {
	MarketType MarketType `json:"market_type,omitempty"`
	Leverage   *float64   `json:"leverage,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// Signal is a strategy's request to open, flip or close exposure in one symbol.
type Signal struct {
	Type      SignalType   `json:"type"`
	Symbol    string       `json:"symbol"`
	Price     float64      `json:"price"`
	Strength  float64      `json:"strength"`
	Strategy  string       `json:"strategy"`
	Params    SignalParams `json:"params"`
	CreatedAt time.Time    `json:"created_at"`
}

func ParseSignalType(s string) (SignalType, error) {
	switch SignalType(strings.ToLower(strings.TrimSpace(s))) {
	case SignalBuy:
		return SignalBuy, nil
	case SignalSell:
		return SignalSell, nil
	case SignalClose:
		return SignalClose, nil
	}
	return "", fmt.Errorf("unknown signal type %q", s)
}

func (s Signal) IsFutures() bool {
	return s.Params.MarketType == MarketFutures
}

// LeverageOr returns the attached leverage or fallback when none is set.
func (s Signal) LeverageOr(fallback float64) float64 {
	if s.Params.Leverage == nil || *s.Params.Leverage <= 0 {
		return fallback
	}
	return *s.Params.Leverage
}

func (s Signal) String() string {
	return fmt.Sprintf("%s %s @ %.8g (%s)", s.Type, s.Symbol, s.Price, s.Strategy)
}
