package types

import (
	"errors"
	"fmt"
)

type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

var (
	ErrInvalidOrder    = errors.New("invalid order")
	ErrLimitNeedsPrice = fmt.Errorf("%w: limit order requires a price", ErrInvalidOrder)
)

// Order is what the executor submits. Price is nil for market orders.
type Order struct {
	ID          string     `json:"id,omitempty"`
	Symbol      string     `json:"symbol"`
	Side        OrderSide  `json:"side"`
	Amount      float64    `json:"amount"`
	Type        OrderType  `json:"type"`
	Price       *float64   `json:"price,omitempty"`
	ReduceOnly  bool       `json:"reduce_only,omitempty"`
	Market      MarketType `json:"market,omitempty"`
	Strategy    string     `json:"strategy,omitempty"`
	SignalPrice float64    `json:"signal_price,omitempty"`
}

func NewMarketOrder(symbol string, side OrderSide, amount float64) (Order, error) {
	o := Order{Symbol: symbol, Side: side, Amount: amount, Type: OrderMarket}
	return o, o.Validate()
}

func NewLimitOrder(symbol string, side OrderSide, amount, price float64) (Order, error) {
	o := Order{Symbol: symbol, Side: side, Amount: amount, Type: OrderLimit, Price: &price}
	return o, o.Validate()
}

func (o Order) Validate() error {
	if o.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidOrder)
	}
	if o.Side != SideBuy && o.Side != SideSell {
		return fmt.Errorf("%w: side %q", ErrInvalidOrder, o.Side)
	}
	if !(o.Amount > 0) {
		return fmt.Errorf("%w: amount %v", ErrInvalidOrder, o.Amount)
	}
	switch o.Type {
	case OrderMarket:
	case OrderLimit:
		if o.Price == nil || *o.Price <= 0 {
			return ErrLimitNeedsPrice
		}
	default:
		return fmt.Errorf("%w: type %q", ErrInvalidOrder, o.Type)
	}
	return nil
}

// LimitPrice returns the limit price or 0.
func (o Order) LimitPrice() float64 {
	if o.Price == nil {
		return 0
	}
	return *o.Price
}

// ExitSide is the order side that flattens a position on the given side.
func ExitSide(positionSide string) OrderSide {
	if positionSide == "short" {
		return SideBuy
	}
	return SideSell
}
