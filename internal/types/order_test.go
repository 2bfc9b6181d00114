package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderValidate(t *testing.T) {
	_, err := NewMarketOrder("BTC/USDT", SideBuy, 0.1)
	require.NoError(t, err)

	_, err = NewLimitOrder("BTC/USDT", SideSell, 0.1, 50000)
	require.NoError(t, err)

	o := Order{Symbol: "BTC/USDT", Side: SideBuy, Amount: 1, Type: OrderLimit}
	assert.ErrorIs(t, o.Validate(), ErrLimitNeedsPrice)
	assert.ErrorIs(t, o.Validate(), ErrInvalidOrder)

	_, err = NewMarketOrder("BTC/USDT", SideBuy, 0)
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = NewMarketOrder("", SideBuy, 1)
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = NewMarketOrder("BTC/USDT", "hold", 1)
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestExitSide(t *testing.T) {
	assert.Equal(t, SideSell, ExitSide("long"))
	assert.Equal(t, SideBuy, ExitSide("short"))
}

func TestSignalHelpers(t *testing.T) {
	lev := 3.0
	s := Signal{Type: SignalBuy, Symbol: "ETH/USDT", Params: SignalParams{MarketType: MarketFutures, Leverage: &lev}}
	assert.True(t, s.IsFutures())
	assert.Equal(t, 3.0, s.LeverageOr(1))
	assert.Equal(t, 1.0, Signal{}.LeverageOr(1))

	st, err := ParseSignalType(" CLOSE ")
	require.NoError(t, err)
	assert.Equal(t, SignalClose, st)
	_, err = ParseSignalType("hold")
	assert.Error(t, err)
}
