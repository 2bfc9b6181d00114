package binance

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"

	"tradebot/internal/gateway/exchange"
	"tradebot/internal/logger"
	symbolpkg "tradebot/internal/pkg/symbol"
	"tradebot/internal/scheduler"
)

const maxKlineLimit = 1000

// Client implements exchange.Exchange on top of the go-binance SDK. Spot
// endpoints serve balances, tickers, fills and candles; the USDⓈ-M client
// serves positions and reduce-only orders when Futures is enabled.
type Client struct {
	cfg  Config
	spot *gobinance.Client
	fut  *futures.Client
	log  *slog.Logger
}

func New(cfg Config, log *slog.Logger) (*Client, error) {
	final := cfg.withDefaults()
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.RESTProxyURL != "" {
		proxyURL, err := url.Parse(final.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}

	spot := gobinance.NewClient(final.APIKey, final.SecretKey)
	spot.BaseURL = final.SpotBaseURL
	spot.HTTPClient = httpClient

	c := &Client{cfg: final, spot: spot, log: logger.OrDiscard(log)}
	if final.Futures {
		fut := futures.NewClient(final.APIKey, final.SecretKey)
		fut.BaseURL = final.FuturesBaseURL
		fut.HTTPClient = httpClient
		c.fut = fut
	}
	return c, nil
}

func (c *Client) Name() string { return "binance" }

func (c *Client) FetchBalance(ctx context.Context) (exchange.Balances, error) {
	acc, err := c.spot.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, err
	}
	return mapBalances(acc), nil
}

func (c *Client) FetchPositions(ctx context.Context, symbols ...string) ([]exchange.FuturesPosition, error) {
	if c.fut == nil {
		return nil, exchange.ErrNotSupported
	}
	svc := c.fut.NewGetPositionRiskService()
	if len(symbols) == 1 {
		svc = svc.Symbol(symbolpkg.Binance.ToExchange(symbols[0]))
	}
	rows, err := svc.Do(ctx)
	if err != nil {
		return nil, err
	}
	out := mapPositionRisk(rows)
	if len(symbols) <= 1 {
		return out, nil
	}
	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[symbolpkg.Canonical(s)] = true
	}
	filtered := out[:0]
	for _, p := range out {
		if want[p.Symbol] {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

func (c *Client) FetchTicker(ctx context.Context, sym string) (exchange.Ticker, error) {
	clean := symbolpkg.Binance.ToExchange(sym)
	if clean == "" {
		return exchange.Ticker{}, fmt.Errorf("symbol is required")
	}
	prices, err := c.spot.NewListPricesService().Symbol(clean).Do(ctx)
	if err != nil {
		return exchange.Ticker{}, err
	}
	var last string
	for _, p := range prices {
		if p != nil && strings.EqualFold(p.Symbol, clean) {
			last = p.Price
			break
		}
	}
	var book *gobinance.BookTicker
	if books, err := c.spot.NewListBookTickersService().Symbol(clean).Do(ctx); err == nil && len(books) > 0 {
		book = books[0]
	} else if err != nil {
		c.log.Debug("book ticker unavailable", "symbol", sym, "error", err)
	}
	t, ok := mapTicker(symbolpkg.Canonical(sym), last, book)
	if !ok {
		return exchange.Ticker{}, fmt.Errorf("no price for %s", sym)
	}
	return t, nil
}

func (c *Client) FetchMyTrades(ctx context.Context, sym string, limit int) ([]exchange.TradeFill, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.spot.NewListTradesService().Symbol(symbolpkg.Binance.ToExchange(sym)).Limit(limit).Do(ctx)
	if err != nil {
		return nil, err
	}
	return mapTrades(symbolpkg.Canonical(sym), rows), nil
}

func (c *Client) FetchCandles(ctx context.Context, sym, interval string, limit int) ([]exchange.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}
	clean := symbolpkg.Binance.ToExchange(sym)
	if clean == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	kls, err := c.spot.NewKlinesService().Symbol(clean).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := mapKlines(kls)
	if dur, ok := scheduler.ParseIntervalDuration(interval); ok {
		out = scheduler.DropUnclosedKline(out, dur)
	}
	return out, nil
}

func (c *Client) CreateOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	clean := symbolpkg.Binance.ToExchange(req.Symbol)
	if clean == "" {
		return exchange.OrderResult{}, fmt.Errorf("symbol is required")
	}
	qty := formatDecimal(req.Amount, c.cfg.QuantityPrecision)
	limit := strings.EqualFold(req.Type, "limit")
	if limit && req.Price <= 0 {
		return exchange.OrderResult{}, fmt.Errorf("limit order requires a price")
	}
	sym := symbolpkg.Canonical(req.Symbol)

	// spot has no reduce-only flag; a spot exit is a plain opposite order
	if req.Futures {
		if c.fut == nil {
			return exchange.OrderResult{}, fmt.Errorf("futures order on %s: %w", sym, exchange.ErrNotSupported)
		}
		svc := c.fut.NewCreateOrderService().Symbol(clean).Side(futuresSide(req.Side)).Quantity(qty)
		if limit {
			svc = svc.Type(futures.OrderTypeLimit).TimeInForce(futures.TimeInForceTypeGTC).
				Price(formatDecimal(req.Price, c.cfg.PricePrecision))
		} else {
			svc = svc.Type(futures.OrderTypeMarket)
		}
		if req.ReduceOnly {
			svc = svc.ReduceOnly(true)
		}
		resp, err := svc.Do(ctx)
		if err != nil {
			return exchange.OrderResult{}, err
		}
		c.log.Info("futures order placed", "symbol", sym, "side", req.Side, "qty", qty, "order_id", resp.OrderID)
		return mapFuturesOrder(sym, resp), nil
	}

	svc := c.spot.NewCreateOrderService().Symbol(clean).Side(spotSide(req.Side)).Quantity(qty)
	if limit {
		svc = svc.Type(gobinance.OrderTypeLimit).TimeInForce(gobinance.TimeInForceTypeGTC).
			Price(formatDecimal(req.Price, c.cfg.PricePrecision))
	} else {
		svc = svc.Type(gobinance.OrderTypeMarket)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return exchange.OrderResult{}, err
	}
	c.log.Info("spot order placed", "symbol", sym, "side", req.Side, "qty", qty, "order_id", resp.OrderID)
	return mapSpotOrder(sym, resp), nil
}

// CancelOrder cancels on the futures venue when it is enabled, otherwise on spot.
func (c *Client) CancelOrder(ctx context.Context, sym, orderID string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(orderID), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid order id %q: %w", orderID, err)
	}
	clean := symbolpkg.Binance.ToExchange(sym)
	if c.fut != nil {
		_, err = c.fut.NewCancelOrderService().Symbol(clean).OrderID(id).Do(ctx)
		return err
	}
	_, err = c.spot.NewCancelOrderService().Symbol(clean).OrderID(id).Do(ctx)
	return err
}

func spotSide(side string) gobinance.SideType {
	if strings.EqualFold(side, "sell") {
		return gobinance.SideTypeSell
	}
	return gobinance.SideTypeBuy
}

func futuresSide(side string) futures.SideType {
	if strings.EqualFold(side, "sell") {
		return futures.SideTypeSell
	}
	return futures.SideTypeBuy
}

var _ exchange.Exchange = (*Client)(nil)
