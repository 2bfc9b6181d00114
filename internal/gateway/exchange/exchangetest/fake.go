// Package exchangetest provides an in-memory exchange for tests.
package exchangetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tradebot/internal/gateway/exchange"
)

// Fake is a scriptable exchange.Exchange. Set the exported fields before use;
// the *Err fields make the matching call fail.
type Fake struct {
	mu sync.Mutex

	Balances  exchange.Balances
	Positions []exchange.FuturesPosition
	Tickers   map[string]exchange.Ticker
	Trades    map[string][]exchange.TradeFill
	Candles   map[string][]exchange.Candle

	BalanceErr   error
	PositionsErr error
	TickerErr    map[string]error
	TradesErr    map[string]error
	OrderErr     error
	Delay        time.Duration

	Orders    []exchange.OrderRequest
	Cancelled []string
	Calls     map[string]int

	nextID int
}

func New() *Fake {
	return &Fake{
		Balances:  exchange.Balances{},
		Tickers:   map[string]exchange.Ticker{},
		Trades:    map[string][]exchange.TradeFill{},
		Candles:   map[string][]exchange.Candle{},
		TickerErr: map[string]error{},
		TradesErr: map[string]error{},
		Calls:     map[string]int{},
	}
}

func (f *Fake) Name() string { return "fake" }

// SetPrice installs a ticker with last=bid=ask=price.
func (f *Fake) SetPrice(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Tickers[symbol] = exchange.Ticker{Symbol: symbol, Last: price, Bid: price, Ask: price}
}

func (f *Fake) SetBalance(currency string, free float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Balances[currency] = exchange.BalanceEntry{Free: free, Total: free}
}

func (f *Fake) SetPositions(positions ...exchange.FuturesPosition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Positions = positions
}

func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

func (f *Fake) PlacedOrders() []exchange.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]exchange.OrderRequest(nil), f.Orders...)
}

func (f *Fake) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.Calls[op]++
	delay := f.Delay
	f.mu.Unlock()
	if delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (f *Fake) FetchBalance(ctx context.Context) (exchange.Balances, error) {
	if err := f.enter(ctx, "fetch_balance"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BalanceErr != nil {
		return nil, f.BalanceErr
	}
	out := make(exchange.Balances, len(f.Balances))
	for k, v := range f.Balances {
		out[k] = v
	}
	return out, nil
}

func (f *Fake) FetchPositions(ctx context.Context, symbols ...string) ([]exchange.FuturesPosition, error) {
	if err := f.enter(ctx, "fetch_positions"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PositionsErr != nil {
		return nil, f.PositionsErr
	}
	if len(symbols) == 0 {
		return append([]exchange.FuturesPosition(nil), f.Positions...), nil
	}
	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}
	var out []exchange.FuturesPosition
	for _, p := range f.Positions {
		if want[p.Symbol] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *Fake) FetchTicker(ctx context.Context, symbol string) (exchange.Ticker, error) {
	if err := f.enter(ctx, "fetch_ticker"); err != nil {
		return exchange.Ticker{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.TickerErr[symbol]; err != nil {
		return exchange.Ticker{}, err
	}
	t, ok := f.Tickers[symbol]
	if !ok {
		return exchange.Ticker{}, fmt.Errorf("no ticker for %s", symbol)
	}
	return t, nil
}

func (f *Fake) FetchMyTrades(ctx context.Context, symbol string, limit int) ([]exchange.TradeFill, error) {
	if err := f.enter(ctx, "fetch_my_trades"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.TradesErr[symbol]; err != nil {
		return nil, err
	}
	trades := f.Trades[symbol]
	if limit > 0 && len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}
	return append([]exchange.TradeFill(nil), trades...), nil
}

func (f *Fake) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]exchange.Candle, error) {
	if err := f.enter(ctx, "fetch_candles"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	candles := f.Candles[symbol]
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return append([]exchange.Candle(nil), candles...), nil
}

func (f *Fake) CreateOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	if err := f.enter(ctx, "create_order"); err != nil {
		return exchange.OrderResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OrderErr != nil {
		return exchange.OrderResult{}, f.OrderErr
	}
	f.Orders = append(f.Orders, req)
	f.nextID++
	price := req.Price
	if price == 0 {
		price = f.Tickers[req.Symbol].Last
	}
	return exchange.OrderResult{
		ID:        fmt.Sprintf("fake-%d", f.nextID),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Amount:    req.Amount,
		Price:     price,
		Status:    "closed",
		Timestamp: time.Now(),
	}, nil
}

func (f *Fake) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if err := f.enter(ctx, "cancel_order"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Cancelled = append(f.Cancelled, orderID)
	return nil
}

var _ exchange.Exchange = (*Fake)(nil)
