package position

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewSeedsWatermarks(t *testing.T) {
	p := New("BTC/USDT", Long, 1, 100, 110, t0)
	assert.Equal(t, 110.0, p.MaxPrice)
	assert.Equal(t, 110.0, p.MinPrice)
	assert.Equal(t, t0, p.EntryTime)
}

func TestUpdatePriceWidensWatermarks(t *testing.T) {
	p := New("BTC/USDT", Long, 2, 100, 100, t0)
	prices := []float64{105, 98, 120, 90, 101}
	prevMax, prevMin := p.MaxPrice, p.MinPrice
	for _, px := range prices {
		p.UpdatePrice(px)
		assert.GreaterOrEqual(t, p.MaxPrice, p.CurrentPrice)
		assert.LessOrEqual(t, p.MinPrice, p.CurrentPrice)
		assert.GreaterOrEqual(t, p.MaxPrice, prevMax)
		assert.LessOrEqual(t, p.MinPrice, prevMin)
		prevMax, prevMin = p.MaxPrice, p.MinPrice
	}
	assert.Equal(t, 120.0, p.MaxPrice)
	assert.Equal(t, 90.0, p.MinPrice)
	assert.InDelta(t, 2.0, p.UnrealizedPnL, 1e-9)
}

func TestUpdatePriceResetsZeroMin(t *testing.T) {
	p := &Position{Symbol: "ETH/USDT", Side: Long, Amount: 1, EntryPrice: 10, MaxPrice: 12}
	p.UpdatePrice(11)
	assert.Equal(t, 11.0, p.MinPrice)
	assert.Equal(t, 12.0, p.MaxPrice)
}

func TestShortPnLAndDrawdown(t *testing.T) {
	p := New("ETH/USDT", Short, 3, 200, 200, t0)
	p.UpdatePrice(180)
	p.UpdatePrice(189)
	assert.InDelta(t, 33.0, p.UnrealizedPnL, 1e-9)
	assert.InDelta(t, 0.05, p.DrawdownPct(), 1e-9)
	assert.InDelta(t, 0.055, p.ProfitPct(), 1e-9)
}

func TestDrawdownBoundsForLong(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	p := New("BTC/USDT", Long, 1, 100, 100, t0)
	for i := 0; i < 500; i++ {
		p.UpdatePrice(1 + r.Float64()*1000)
		dd := p.DrawdownPct()
		assert.GreaterOrEqual(t, dd, 0.0)
		assert.Less(t, dd, 1.0)
	}
}

func TestDerivedMetricsGuardZero(t *testing.T) {
	p := &Position{Side: Long}
	assert.Zero(t, p.DrawdownPct())
	assert.Zero(t, p.ProfitPct())
	s := &Position{Side: Short, CurrentPrice: 5}
	assert.Zero(t, s.DrawdownPct())
}

func TestValueAndDuration(t *testing.T) {
	p := New("SOL/USDT", Long, 4, 20, 25, t0)
	assert.Equal(t, 100.0, p.Value())
	assert.Equal(t, 90*time.Minute, p.Duration(t0.Add(90*time.Minute)))
}

func TestMergeIsPure(t *testing.T) {
	prev := New("BTC/USDT", Long, 1, 100, 100, t0)
	prev.UpdatePrice(130)
	before := *prev
	pnl := 42.0

	got := Merge(prev, Observation{Symbol: "BTC/USDT", Side: Long, Amount: 2, EntryPrice: 101, Price: 120, UnrealizedPnL: &pnl}, t0.Add(time.Hour))

	assert.Equal(t, before, *prev)
	assert.Equal(t, t0, got.EntryTime)
	assert.Equal(t, 130.0, got.MaxPrice)
	assert.Equal(t, 100.0, got.MinPrice)
	assert.Equal(t, 120.0, got.CurrentPrice)
	assert.Equal(t, 2.0, got.Amount)
	assert.Equal(t, 42.0, got.UnrealizedPnL)
	assert.Equal(t, 100.0, got.EntryPrice)
}

func TestMergeWithoutPrevious(t *testing.T) {
	now := t0.Add(time.Minute)
	got := Merge(nil, Observation{Symbol: "ETH/USDT", Side: Long, Amount: 1.5, EntryPrice: 100, Price: 110}, now)
	assert.Equal(t, now, got.EntryTime)
	assert.Equal(t, 110.0, got.MaxPrice)
	assert.Equal(t, 110.0, got.MinPrice)
	assert.InDelta(t, 15.0, got.UnrealizedPnL, 1e-9)
}

func TestParseSide(t *testing.T) {
	s, err := ParseSide(" LONG ")
	assert.NoError(t, err)
	assert.Equal(t, Long, s)
	_, err = ParseSide("flat")
	assert.Error(t, err)
}
