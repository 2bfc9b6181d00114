package trading

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradebot/internal/gateway/exchange"
	"tradebot/internal/gateway/exchange/exchangetest"
	"tradebot/internal/strategy"
	"tradebot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStrategy struct {
	need    int
	signals map[string][]types.Signal
	panicOn string
}

func (s *stubStrategy) Name() string         { return "stub" }
func (s *stubStrategy) RequiredCandles() int { return s.need }

func (s *stubStrategy) Evaluate(symbol string, _ []exchange.Candle) []types.Signal {
	if symbol == s.panicOn {
		panic("boom")
	}
	return s.signals[symbol]
}

type flakyCandles struct {
	*exchangetest.Fake
	fail string
}

func (f flakyCandles) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]exchange.Candle, error) {
	if symbol == f.fail {
		return nil, errors.New("timeout")
	}
	return f.Fake.FetchCandles(ctx, symbol, interval, limit)
}

func newEngine(t *testing.T, r *rig, src CandleSource, strat strategy.Strategy, symbols ...string) *Engine {
	t.Helper()
	if src == nil {
		src = r.fake
	}
	e, err := NewEngine(EngineConfig{Symbols: symbols, Interval: 10 * time.Millisecond}, src, strat, r.handler, r.monitor, nil)
	require.NoError(t, err)
	return e
}

func TestNewEngine_Validates(t *testing.T) {
	r := newRig(t)
	_, err := NewEngine(EngineConfig{}, nil, &stubStrategy{}, r.handler, r.monitor, nil)
	assert.ErrorIs(t, err, ErrMissingDependency)
	_, err = NewEngine(EngineConfig{}, r.fake, nil, r.handler, r.monitor, nil)
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestNewEngine_DefaultsAndSymbols(t *testing.T) {
	r := newRig(t)
	e := newEngine(t, r, nil, &stubStrategy{}, "BTCUSDT", "ETH-USDT", " ")
	cfg := e.Config()
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, cfg.Symbols)
	assert.Equal(t, "1m", cfg.Timeframe)
	assert.Equal(t, 100, cfg.CandleLimit)
	assert.Equal(t, 50, cfg.MinCandles)
	assert.NotNil(t, r.handler.OnFill)
}

func TestRunCycle_DispatchesSignals(t *testing.T) {
	r := newRig(t)
	r.fake.SetBalance("USDT", 900)
	r.fake.Candles["BTC/USDT"] = flat(120, 100)
	r.fake.Candles["ETH/USDT"] = flat(120, 10)
	strat := &stubStrategy{signals: map[string][]types.Signal{"BTC/USDT": {buy("BTC/USDT", 100)}}}
	e := newEngine(t, r, nil, strat, "BTC/USDT", "ETH/USDT")

	rep := e.RunCycle(context.Background())

	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, rep.Evaluated)
	assert.Empty(t, rep.Skipped)
	require.Len(t, rep.Outcomes, 1)
	assert.True(t, rep.Outcomes[0].Accepted)
	assert.Len(t, r.fake.PlacedOrders(), 1)

	last, n := e.LastCycle()
	assert.Equal(t, 1, n)
	assert.Equal(t, rep.Evaluated, last.Evaluated)
}

func TestRunCycle_SkipsShortSeries(t *testing.T) {
	r := newRig(t)
	r.fake.Candles["BTC/USDT"] = flat(49, 100)
	r.fake.Candles["ETH/USDT"] = flat(60, 100)
	e := newEngine(t, r, nil, &stubStrategy{need: 61}, "BTC/USDT", "ETH/USDT")

	rep := e.RunCycle(context.Background())

	assert.Empty(t, rep.Evaluated)
	assert.Equal(t, "not enough data", rep.Skipped["BTC/USDT"])
	assert.Equal(t, "not enough data", rep.Skipped["ETH/USDT"])
}

func TestRunCycle_IsolatesSymbolFailures(t *testing.T) {
	r := newRig(t)
	for _, s := range []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"} {
		r.fake.Candles[s] = flat(60, 100)
	}
	e := newEngine(t, r, flakyCandles{Fake: r.fake, fail: "BTC/USDT"}, &stubStrategy{panicOn: "ETH/USDT"},
		"BTC/USDT", "ETH/USDT", "SOL/USDT")

	rep := e.RunCycle(context.Background())

	assert.Equal(t, "timeout", rep.Skipped["BTC/USDT"])
	assert.Contains(t, rep.Skipped["ETH/USDT"], "panic")
	assert.Contains(t, rep.Evaluated, "SOL/USDT")
}

func TestRunCycle_MACrossoverBuys(t *testing.T) {
	r := newRig(t)
	r.fake.SetBalance("USDT", 600)
	candles := flat(100, 100)
	candles[99].Close = 200
	r.fake.Candles["BTC/USDT"] = candles
	e := newEngine(t, r, nil, strategy.NewMACrossover(strategy.SMA, 20, 50), "BTC/USDT")

	rep := e.RunCycle(context.Background())

	require.Len(t, rep.Signals, 1)
	assert.Equal(t, types.SignalBuy, rep.Signals[0].Type)
	placed := r.fake.PlacedOrders()
	require.Len(t, placed, 1)
	assert.InDelta(t, 1.0, placed[0].Amount, 1e-9)
}

func TestRun_StopsOnCancel(t *testing.T) {
	r := newRig(t)
	e := newEngine(t, r, nil, &stubStrategy{}, "BTC/USDT")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	assert.Eventually(t, func() bool {
		_, n := e.LastCycle()
		return n >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
}
