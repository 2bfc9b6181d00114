package binance

import (
	"testing"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapBalancesSkipsMalformed(t *testing.T) {
	acc := &gobinance.Account{Balances: []gobinance.Balance{
		{Asset: "usdt", Free: "100.5", Locked: "4.5"},
		{Asset: "BTC", Free: "abc", Locked: "0"},
		{Asset: "", Free: "1"},
	}}
	got := mapBalances(acc)
	require.Len(t, got, 1)
	assert.Equal(t, 100.5, got["USDT"].Free)
	assert.Equal(t, 105.0, got["USDT"].Total)
	assert.Empty(t, mapBalances(nil))
}

func TestMapPositionRisk(t *testing.T) {
	rows := []*futures.PositionRisk{
		{Symbol: "BTCUSDT", PositionAmt: "-0.25", EntryPrice: "60000", MarkPrice: "59000", UnRealizedProfit: "250"},
		{Symbol: "ETHUSDT", PositionAmt: "0", MarkPrice: "3000"},
		{Symbol: "SOLUSDT", PositionAmt: "x"},
		{Symbol: "BNBUSDT", PositionAmt: "2", PositionSide: "LONG", MarkPrice: "500", Notional: "1000"},
		nil,
	}
	got := mapPositionRisk(rows)
	require.Len(t, got, 2)

	assert.Equal(t, "BTC/USDT", got[0].Symbol)
	assert.Equal(t, "short", got[0].Side)
	assert.Equal(t, 0.25, got[0].Contracts)
	assert.Equal(t, 250.0, got[0].UnrealizedPnL)
	assert.Equal(t, 0.25*59000, got[0].Notional)

	assert.Equal(t, "BNB/USDT", got[1].Symbol)
	assert.Equal(t, "long", got[1].Side)
	assert.Equal(t, 1000.0, got[1].Notional)
}

func TestMapTrades(t *testing.T) {
	rows := []*gobinance.TradeV3{
		{ID: 7, Price: "100", Quantity: "2", IsBuyer: true, Time: 1700000000000},
		{ID: 8, Price: "110", Quantity: "1", IsBuyer: false, Time: 1700000001000},
		{ID: 9, Price: "", Quantity: "1"},
	}
	got := mapTrades("ETH/USDT", rows)
	require.Len(t, got, 2)
	assert.Equal(t, "buy", got[0].Side)
	assert.Equal(t, "7", got[0].ID)
	assert.Equal(t, "sell", got[1].Side)
	assert.Equal(t, int64(1700000001000), got[1].Timestamp.UnixMilli())
}

func TestMapTicker(t *testing.T) {
	tk, ok := mapTicker("BTC/USDT", "65000.1", &gobinance.BookTicker{BidPrice: "65000", AskPrice: "65000.2"})
	require.True(t, ok)
	assert.Equal(t, 65000.1, tk.Last)
	assert.Equal(t, 65000.2, tk.Ask)

	_, ok = mapTicker("BTC/USDT", "", nil)
	assert.False(t, ok)
}

func TestMapSpotOrderDerivesAveragePrice(t *testing.T) {
	res := mapSpotOrder("BTC/USDT", &gobinance.CreateOrderResponse{
		OrderID: 42, Side: gobinance.SideTypeBuy, Type: gobinance.OrderTypeMarket,
		Status: gobinance.OrderStatusTypeFilled, ExecutedQuantity: "0.5", CummulativeQuoteQuantity: "30000",
	})
	assert.Equal(t, "42", res.ID)
	assert.Equal(t, "buy", res.Side)
	assert.Equal(t, "market", res.Type)
	assert.Equal(t, "filled", res.Status)
	assert.Equal(t, 60000.0, res.Price)
}

func TestFormatDecimalTruncates(t *testing.T) {
	assert.Equal(t, "0.123456", formatDecimal(0.1234569, 6))
	assert.Equal(t, "12.3", formatDecimal(12.3, 4))
	assert.Equal(t, "333.33", formatDecimal(1000.0/3, 2))
}

func TestConfigDefaults(t *testing.T) {
	cfg := (&Config{Testnet: true}).withDefaults()
	assert.Equal(t, "https://testnet.binance.vision", cfg.SpotBaseURL)
	assert.Equal(t, "https://testnet.binancefuture.com", cfg.FuturesBaseURL)
	assert.Equal(t, int32(6), cfg.QuantityPrecision)
}
