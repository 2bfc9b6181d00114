package exchange

import "context"

// Exchange is everything the bot needs from a venue. Implementations map
// their wire formats into the typed records in types.go; nothing past this
// boundary sees untyped maps.
type Exchange interface {
	Name() string

	FetchBalance(ctx context.Context) (Balances, error)

	// FetchPositions returns derivatives positions, optionally limited to
	// the given canonical symbols. Venues without derivatives return
	// ErrNotSupported.
	FetchPositions(ctx context.Context, symbols ...string) ([]FuturesPosition, error)

	FetchTicker(ctx context.Context, symbol string) (Ticker, error)

	FetchMyTrades(ctx context.Context, symbol string, limit int) ([]TradeFill, error)

	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)

	CreateOrder(ctx context.Context, req OrderRequest) (OrderResult, error)

	CancelOrder(ctx context.Context, symbol, orderID string) error
}

// AccountReader is the read-only subset the position tracker depends on.
type AccountReader interface {
	FetchBalance(ctx context.Context) (Balances, error)
	FetchPositions(ctx context.Context, symbols ...string) ([]FuturesPosition, error)
	FetchTicker(ctx context.Context, symbol string) (Ticker, error)
	FetchMyTrades(ctx context.Context, symbol string, limit int) ([]TradeFill, error)
}

// BalanceReader is what position sizing needs.
type BalanceReader interface {
	FetchBalance(ctx context.Context) (Balances, error)
}
