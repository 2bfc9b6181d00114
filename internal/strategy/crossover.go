package strategy

import (
	"fmt"
	"strings"

	talib "github.com/markcheno/go-talib"

	"tradebot/internal/gateway/exchange"
	"tradebot/internal/types"
)

type MAType int

const (
	SMA MAType = iota
	EMA
)

func ParseMAType(s string) (MAType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sma":
		return SMA, nil
	case "ema":
		return EMA, nil
	}
	return 0, fmt.Errorf("unknown moving average type %q", s)
}

func (m MAType) series(in []float64, period int) []float64 {
	if m == EMA {
		return talib.Ema(in, period)
	}
	return talib.Sma(in, period)
}

// crossing reports the direction of a fast/slow cross on the last bar:
// 1 for fast crossing above slow, -1 for below, 0 otherwise.
func crossing(fast, slow []float64) int {
	n := len(fast)
	if n < 2 || len(slow) != n {
		return 0
	}
	pf, ps, cf, cs := fast[n-2], slow[n-2], fast[n-1], slow[n-1]
	switch {
	case pf <= ps && cf > cs:
		return 1
	case pf >= ps && cf < cs:
		return -1
	}
	return 0
}

// MACrossover buys when the fast average crosses above the slow one and
// sells on the opposite cross. Only the latest bar is considered.
type MACrossover struct {
	name     string
	ma       MAType
	fast     int
	slow     int
	market   types.MarketType
	leverage *float64
}

func NewMACrossover(ma MAType, fast, slow int) *MACrossover {
	prefix := "MA_Crossover"
	if ma == EMA {
		prefix = "EMA_Crossover"
	}
	return &MACrossover{
		name:   fmt.Sprintf("%s_%d_%d", prefix, fast, slow),
		ma:     ma,
		fast:   fast,
		slow:   slow,
		market: types.MarketSpot,
	}
}

func (s *MACrossover) Name() string { return s.name }

func (s *MACrossover) RequiredCandles() int { return s.slow + 1 }

func (s *MACrossover) Evaluate(symbol string, candles []exchange.Candle) []types.Signal {
	if len(candles) < s.RequiredCandles() {
		return nil
	}
	px := closes(candles)
	dir := crossing(s.ma.series(px, s.fast), s.ma.series(px, s.slow))
	if dir == 0 {
		return nil
	}
	last := candles[len(candles)-1]
	sig := types.Signal{
		Type:      types.SignalBuy,
		Symbol:    symbol,
		Price:     last.Close,
		Strength:  1.0,
		Strategy:  s.name,
		CreatedAt: last.CloseTime,
		Params: types.SignalParams{
			MarketType: s.market,
			Leverage:   s.leverage,
			Reason:     fmt.Sprintf("fast MA(%d) crossed above slow MA(%d)", s.fast, s.slow),
		},
	}
	if dir < 0 {
		sig.Type = types.SignalSell
		sig.Params.Reason = fmt.Sprintf("fast MA(%d) crossed below slow MA(%d)", s.fast, s.slow)
	}
	return []types.Signal{sig}
}

// BiasedSpot uses one pair of periods for entries and another for exits,
// emitting buy and close signals only.
type BiasedSpot struct {
	name                                 string
	ma                                   MAType
	buyFast, buySlow, sellFast, sellSlow int
}

func NewBiasedSpot(ma MAType, buyFast, buySlow, sellFast, sellSlow int) *BiasedSpot {
	return &BiasedSpot{
		name:     fmt.Sprintf("Biased_MA_Spot_%d_%d_%d_%d", buyFast, buySlow, sellFast, sellSlow),
		ma:       ma,
		buyFast:  buyFast,
		buySlow:  buySlow,
		sellFast: sellFast,
		sellSlow: sellSlow,
	}
}

func (s *BiasedSpot) Name() string { return s.name }

func (s *BiasedSpot) RequiredCandles() int {
	return max(s.buySlow, s.sellSlow) + 1
}

func (s *BiasedSpot) Evaluate(symbol string, candles []exchange.Candle) []types.Signal {
	if len(candles) < s.RequiredCandles() {
		return nil
	}
	px := closes(candles)
	last := candles[len(candles)-1]
	base := types.Signal{
		Symbol:    symbol,
		Price:     last.Close,
		Strength:  1.0,
		Strategy:  s.name,
		CreatedAt: last.CloseTime,
		Params:    types.SignalParams{MarketType: types.MarketSpot},
	}
	if crossing(s.ma.series(px, s.buyFast), s.ma.series(px, s.buySlow)) > 0 {
		base.Type = types.SignalBuy
		base.Params.Reason = "entry averages crossed up"
		return []types.Signal{base}
	}
	if crossing(s.ma.series(px, s.sellFast), s.ma.series(px, s.sellSlow)) < 0 {
		base.Type = types.SignalClose
		base.Params.Reason = "exit averages crossed down"
		return []types.Signal{base}
	}
	return nil
}
