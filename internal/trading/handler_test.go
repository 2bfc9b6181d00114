package trading

import (
	"context"
	"errors"
	"testing"

	"tradebot/internal/gateway/exchange"
	"tradebot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buy(sym string, price float64) types.Signal {
	return types.Signal{Type: types.SignalBuy, Symbol: sym, Price: price, Strength: 1, Strategy: "test"}
}

func TestNewSignalHandler_RequiresDeps(t *testing.T) {
	_, err := NewSignalHandler(HandlerDeps{})
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestHandle_BuyPlacesSizedOrder(t *testing.T) {
	r := newRig(t)
	r.fake.SetBalance("USDT", 900)

	out := r.handler.Handle(context.Background(), buy("BTC/USDT", 100))

	require.True(t, out.Accepted, out.Reason)
	require.NotNil(t, out.Order)
	assert.Equal(t, "fake-1", out.Order.ID)
	assert.Equal(t, []exchange.OrderRequest{{Symbol: "BTC/USDT", Side: "buy", Type: "market", Amount: 3}}, r.fake.PlacedOrders())

	sigs := r.journal.Signals()
	require.Len(t, sigs, 1)
	assert.True(t, sigs[0].accepted)
	assert.Equal(t, "fake-1", sigs[0].orderID)
}

func TestHandle_FuturesSellAppliesLeverage(t *testing.T) {
	r := newRig(t)
	r.fake.SetBalance("USDT", 300)
	lev := 2.0
	sig := types.Signal{
		Type: types.SignalSell, Symbol: "ETH/USDT", Price: 50, Strategy: "futures",
		Params: types.SignalParams{MarketType: types.MarketFutures, Leverage: &lev},
	}

	out := r.handler.Handle(context.Background(), sig)

	require.True(t, out.Accepted, out.Reason)
	placed := r.fake.PlacedOrders()
	require.Len(t, placed, 1)
	assert.Equal(t, "sell", placed[0].Side)
	assert.True(t, placed[0].Futures)
	assert.InDelta(t, 4.0, placed[0].Amount, 1e-9)
}

func TestHandle_ZeroSizeNeverReachesExecutor(t *testing.T) {
	r := newRig(t)

	out := r.handler.Handle(context.Background(), buy("BTC/USDT", 100))

	assert.False(t, out.Accepted)
	assert.Contains(t, out.Reason, "invalid position size")
	assert.Zero(t, r.fake.CallCount("create_order"))
	sigs := r.journal.Signals()
	require.Len(t, sigs, 1)
	assert.False(t, sigs[0].accepted)
}

func TestHandle_BuyRejectedWhenAlreadyHeld(t *testing.T) {
	r := newRig(t)
	r.fake.SetBalance("USDT", 1000)
	r.fake.SetBalance("ETH", 1)
	r.fake.SetPrice("ETH/USDT", 2000)
	r.refresh(t)

	out := r.handler.Handle(context.Background(), buy("ETH/USDT", 2000))

	assert.False(t, out.Accepted)
	assert.Equal(t, "Position already open for ETH/USDT", out.Reason)
	assert.Zero(t, r.fake.CallCount("create_order"))
}

func TestHandle_ExchangeFailure(t *testing.T) {
	r := newRig(t)
	r.fake.SetBalance("USDT", 900)
	r.fake.OrderErr = errors.New("min notional")

	out := r.handler.Handle(context.Background(), buy("BTC/USDT", 100))

	assert.False(t, out.Accepted)
	assert.Contains(t, out.Reason, "min notional")
	assert.Nil(t, out.Order)
}

func TestHandle_UnknownType(t *testing.T) {
	r := newRig(t)
	out := r.handler.Handle(context.Background(), types.Signal{Type: "hold", Symbol: "BTC/USDT"})
	assert.False(t, out.Accepted)
	assert.Contains(t, out.Reason, "unknown signal type")
}

func TestHandle_CloseFlattensSpotPosition(t *testing.T) {
	r := newRig(t)
	r.fake.SetBalance("ETH", 2)
	r.fake.SetPrice("ETH/USDT", 100)
	r.refresh(t)

	out := r.handler.Handle(context.Background(), types.Signal{Type: types.SignalClose, Symbol: "ETH/USDT", Strategy: "test"})

	require.True(t, out.Accepted, out.Reason)
	assert.Equal(t, []exchange.OrderRequest{
		{Symbol: "ETH/USDT", Side: "sell", Type: "market", Amount: 2, ReduceOnly: true},
	}, r.fake.PlacedOrders())
	assert.Empty(t, r.tracker.GetAllPositions())

	closed := r.tracker.GetClosedPositions()
	require.Len(t, closed, 1)
	assert.Equal(t, "ETH/USDT", closed[0].Symbol)

	archived := r.journal.Archived()
	require.Len(t, archived, 1)
	assert.Equal(t, "signal", archived[0].reason)
}

func TestHandle_CloseShortFuturesBuysBack(t *testing.T) {
	r := newRig(t)
	r.fake.SetPositions(exchange.FuturesPosition{Symbol: "BTCUSDT", Contracts: 0.5, EntryPrice: 60000, MarkPrice: 59000, Side: "short"})
	r.refresh(t)

	sig := types.Signal{Type: types.SignalClose, Symbol: "BTCUSDT", Params: types.SignalParams{Reason: "exit cross"}}
	out := r.handler.Handle(context.Background(), sig)

	require.True(t, out.Accepted, out.Reason)
	placed := r.fake.PlacedOrders()
	require.Len(t, placed, 1)
	assert.Equal(t, "buy", placed[0].Side)
	assert.Equal(t, 0.5, placed[0].Amount)
	assert.True(t, placed[0].Futures)
	assert.True(t, placed[0].ReduceOnly)
	assert.Equal(t, "exit cross", r.journal.Archived()[0].reason)
}

func TestHandle_CloseSkipsDust(t *testing.T) {
	r := newRig(t)
	r.fake.SetBalance("ETH", 0.001)
	r.fake.SetPrice("ETH/USDT", 100)
	r.refresh(t)

	out := r.handler.Handle(context.Background(), types.Signal{Type: types.SignalClose, Symbol: "ETH/USDT"})

	assert.False(t, out.Accepted)
	assert.Equal(t, "nothing to close", out.Reason)
	assert.Zero(t, r.fake.CallCount("create_order"))
}

func TestExit_IsIdempotent(t *testing.T) {
	r := newRig(t)
	r.fake.SetBalance("SOL", 10)
	r.fake.SetPrice("SOL/USDT", 150)
	r.refresh(t)
	ctx := context.Background()

	res, closed, err := r.handler.Exit(ctx, "SOL/USDT", "manual")
	require.NoError(t, err)
	require.True(t, closed)
	require.NotNil(t, res)

	res, closed, err = r.handler.Exit(ctx, "SOL/USDT", "manual")
	require.NoError(t, err)
	assert.False(t, closed)
	assert.Nil(t, res)
	assert.Equal(t, 1, r.fake.CallCount("create_order"))
}

func TestHandle_OnFillSkipsDryRun(t *testing.T) {
	r := newRig(t)
	r.fake.SetBalance("USDT", 900)
	var fills []exchange.OrderResult
	r.handler.OnFill = func(_ context.Context, res exchange.OrderResult) { fills = append(fills, res) }

	r.handler.Handle(context.Background(), buy("BTC/USDT", 100))
	require.Len(t, fills, 1)
	assert.Equal(t, "fake-1", fills[0].ID)
}
