// Package strategy turns candle series into trading signals.
package strategy

import (
	"fmt"
	"strings"

	"tradebot/internal/gateway/exchange"
	"tradebot/internal/types"
)

// Strategy evaluates the latest bar of a candle series.
type Strategy interface {
	Name() string
	// RequiredCandles is the minimum series length Evaluate needs.
	RequiredCandles() int
	Evaluate(symbol string, candles []exchange.Candle) []types.Signal
}

const (
	TypeMACrossover        = "ma_crossover"
	TypeMACrossoverFutures = "ma_crossover_futures"
	TypeBiasedSpot         = "biased_ma_spot"
)

// Config selects and parameterizes a strategy. Zero periods take defaults.
type Config struct {
	Type       string
	MAType     string // "sma" or "ema"
	FastPeriod int
	SlowPeriod int
	Leverage   float64

	SellFastPeriod int
	SellSlowPeriod int
}

func New(cfg Config) (Strategy, error) {
	if cfg.FastPeriod <= 0 {
		cfg.FastPeriod = 20
	}
	if cfg.SlowPeriod <= 0 {
		cfg.SlowPeriod = 50
	}
	if cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, fmt.Errorf("fast period %d must be below slow period %d", cfg.FastPeriod, cfg.SlowPeriod)
	}
	ma, err := ParseMAType(cfg.MAType)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", TypeMACrossover:
		return NewMACrossover(ma, cfg.FastPeriod, cfg.SlowPeriod), nil
	case TypeMACrossoverFutures:
		lev := cfg.Leverage
		if lev <= 0 {
			lev = 1
		}
		s := NewMACrossover(ma, cfg.FastPeriod, cfg.SlowPeriod)
		s.market = types.MarketFutures
		s.leverage = &lev
		s.name = fmt.Sprintf("MA_Crossover_Futures_%d_%d_%gx", cfg.FastPeriod, cfg.SlowPeriod, lev)
		return s, nil
	case TypeBiasedSpot:
		sf, ss := cfg.SellFastPeriod, cfg.SellSlowPeriod
		if sf <= 0 {
			sf = cfg.FastPeriod
		}
		if ss <= 0 {
			ss = cfg.SlowPeriod
		}
		if sf >= ss {
			return nil, fmt.Errorf("sell fast period %d must be below sell slow period %d", sf, ss)
		}
		return NewBiasedSpot(ma, cfg.FastPeriod, cfg.SlowPeriod, sf, ss), nil
	default:
		return nil, fmt.Errorf("unknown strategy type: %s", cfg.Type)
	}
}

func closes(candles []exchange.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
