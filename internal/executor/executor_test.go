package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradebot/internal/gateway/exchange"
	"tradebot/internal/gateway/exchange/exchangetest"
	"tradebot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) RecordOrder(ctx context.Context, order types.Order, res exchange.OrderResult, reason string) error {
	args := m.Called(ctx, order, res, reason)
	return args.Error(0)
}

func (m *MockJournal) MarkCanceled(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

type recordingNotifier struct {
	texts []string
}

func (r *recordingNotifier) SendText(_ context.Context, text string) error {
	r.texts = append(r.texts, text)
	return nil
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNew_RequiresExchange(t *testing.T) {
	_, err := New(nil, true)
	assert.ErrorIs(t, err, ErrNilExchange)
}

func TestPlaceOrder_DryRunNeverTouchesExchange(t *testing.T) {
	fake := exchangetest.New()
	j := new(MockJournal)
	j.On("RecordOrder", mock.Anything, mock.Anything, mock.Anything, "signal").Return(nil)
	n := &recordingNotifier{}

	e, err := New(fake, true, WithJournal(j), WithNotifier(n), WithClock(func() time.Time { return t0 }))
	require.NoError(t, err)
	e.newID = func() string { return "11111111-2222-3333-4444-555555555555" }

	order, err := types.NewMarketOrder("BTC/USDT", types.SideBuy, 0.25)
	require.NoError(t, err)
	res, err := e.PlaceOrder(context.Background(), order, "signal")
	require.NoError(t, err)

	assert.True(t, e.DryRun())
	assert.True(t, res.DryRun)
	assert.Equal(t, "open", res.Status)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", res.ID)
	assert.Equal(t, t0, res.Timestamp)
	assert.Equal(t, 0.25, res.Amount)
	assert.Zero(t, fake.CallCount("create_order"))
	require.Len(t, n.texts, 1)
	assert.Contains(t, n.texts[0], "(dry run)")

	j.AssertCalled(t, "RecordOrder", mock.Anything, mock.MatchedBy(func(o types.Order) bool {
		return o.ID == res.ID && o.Symbol == "BTC/USDT"
	}), res, "signal")
}

func TestPlaceOrder_DryRunUsesUUID(t *testing.T) {
	e, err := New(exchangetest.New(), true)
	require.NoError(t, err)
	order, _ := types.NewMarketOrder("ETH/USDT", types.SideSell, 1)

	a, err := e.PlaceOrder(context.Background(), order, "")
	require.NoError(t, err)
	b, err := e.PlaceOrder(context.Background(), order, "")
	require.NoError(t, err)
	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestPlaceOrder_Live(t *testing.T) {
	fake := exchangetest.New()
	fake.SetPrice("ETH/USDT", 3000)
	e, err := New(fake, false)
	require.NoError(t, err)

	order, _ := types.NewMarketOrder("ETH/USDT", types.SideSell, 2)
	order.ReduceOnly = true
	order.Market = types.MarketFutures
	res, err := e.PlaceOrder(context.Background(), order, "close")
	require.NoError(t, err)

	assert.Equal(t, "fake-1", res.ID)
	assert.Equal(t, 3000.0, res.Price)
	placed := fake.PlacedOrders()
	require.Len(t, placed, 1)
	assert.Equal(t, exchange.OrderRequest{
		Symbol: "ETH/USDT", Side: "sell", Type: "market", Amount: 2, ReduceOnly: true, Futures: true,
	}, placed[0])
}

func TestPlaceOrder_LimitCarriesPrice(t *testing.T) {
	fake := exchangetest.New()
	e, _ := New(fake, false)
	order, err := types.NewLimitOrder("SOL/USDT", types.SideBuy, 3, 120.5)
	require.NoError(t, err)

	res, err := e.PlaceOrder(context.Background(), order, "")
	require.NoError(t, err)
	assert.Equal(t, 120.5, res.Price)
	assert.Equal(t, 120.5, fake.PlacedOrders()[0].Price)
}

func TestPlaceOrder_Rejections(t *testing.T) {
	fake := exchangetest.New()
	e, _ := New(fake, false)

	tests := []struct {
		name  string
		order types.Order
		want  error
	}{
		{"limit without price", types.Order{Symbol: "BTC/USDT", Side: types.SideBuy, Amount: 1, Type: types.OrderLimit}, types.ErrLimitNeedsPrice},
		{"zero amount", types.Order{Symbol: "BTC/USDT", Side: types.SideBuy, Type: types.OrderMarket}, types.ErrInvalidOrder},
		{"stop order", types.Order{Symbol: "BTC/USDT", Side: types.SideBuy, Amount: 1, Type: "stop"}, types.ErrInvalidOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.PlaceOrder(context.Background(), tt.order, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, fake.CallCount("create_order"))
}

func TestPlaceOrder_ExchangeError(t *testing.T) {
	fake := exchangetest.New()
	fake.OrderErr = errors.New("insufficient balance")
	j := new(MockJournal)
	e, _ := New(fake, false, WithJournal(j))

	order, _ := types.NewMarketOrder("BTC/USDT", types.SideBuy, 1)
	_, err := e.PlaceOrder(context.Background(), order, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient balance")
	j.AssertNotCalled(t, "RecordOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceOrder_JournalFailureIsNotFatal(t *testing.T) {
	j := new(MockJournal)
	j.On("RecordOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))
	e, _ := New(exchangetest.New(), true, WithJournal(j))

	order, _ := types.NewMarketOrder("BTC/USDT", types.SideBuy, 1)
	_, err := e.PlaceOrder(context.Background(), order, "")
	assert.NoError(t, err)
	j.AssertExpectations(t)
}

func TestCancelOrder(t *testing.T) {
	t.Run("dry run", func(t *testing.T) {
		fake := exchangetest.New()
		j := new(MockJournal)
		j.On("MarkCanceled", mock.Anything, "abc").Return(nil)
		e, _ := New(fake, true, WithJournal(j))

		require.NoError(t, e.CancelOrder(context.Background(), "BTC/USDT", "abc"))
		assert.Zero(t, fake.CallCount("cancel_order"))
		j.AssertExpectations(t)
	})
	t.Run("live", func(t *testing.T) {
		fake := exchangetest.New()
		e, _ := New(fake, false)

		require.NoError(t, e.CancelOrder(context.Background(), "BTC/USDT", "7"))
		assert.Equal(t, []string{"7"}, fake.Cancelled)
	})
}
