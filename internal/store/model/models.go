package model

import (
	"strings"

	"gorm.io/datatypes"
)

type OrderStatus int

const (
	OrderStatusUnknown  OrderStatus = 0
	OrderStatusOpen     OrderStatus = 1
	OrderStatusClosed   OrderStatus = 2
	OrderStatusCanceled OrderStatus = 3
	OrderStatusFailed   OrderStatus = 4
)

// ParseOrderStatus maps exchange status strings onto the journal enum.
func ParseOrderStatus(s string) OrderStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open", "new", "partially_filled":
		return OrderStatusOpen
	case "closed", "filled":
		return OrderStatusClosed
	case "canceled", "cancelled", "expired":
		return OrderStatusCanceled
	case "rejected", "failed":
		return OrderStatusFailed
	default:
		return OrderStatusUnknown
	}
}

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusOpen:
		return "open"
	case OrderStatusClosed:
		return "closed"
	case OrderStatusCanceled:
		return "canceled"
	case OrderStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type OrderModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	OrderID       string         `gorm:"column:order_id;uniqueIndex"`
	Symbol        string         `gorm:"column:symbol;index"`
	Side          string         `gorm:"column:side"`
	Type          string         `gorm:"column:type"`
	Market        string         `gorm:"column:market"`
	Amount        float64        `gorm:"column:amount"`
	Price         float64        `gorm:"column:price"`
	SignalPrice   float64        `gorm:"column:signal_price"`
	ReduceOnly    bool           `gorm:"column:reduce_only"`
	IsSimulated   int            `gorm:"column:is_simulated"`
	Status        OrderStatus    `gorm:"column:status"`
	Strategy      string         `gorm:"column:strategy"`
	Reason        string         `gorm:"column:reason"`
	RawData       datatypes.JSON `gorm:"column:raw_data;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (OrderModel) TableName() string { return "orders" }

// ClosedPositionModel archives every position the bot saw close. Unlike the
// tracker's history it is never truncated.
type ClosedPositionModel struct {
	ID            int64   `gorm:"column:id;primaryKey"`
	Symbol        string  `gorm:"column:symbol;index"`
	Side          string  `gorm:"column:side"`
	Amount        float64 `gorm:"column:amount"`
	EntryPrice    float64 `gorm:"column:entry_price"`
	ExitPrice     float64 `gorm:"column:exit_price"`
	PnL           float64 `gorm:"column:pnl"`
	ProfitPct     float64 `gorm:"column:profit_pct"`
	DrawdownPct   float64 `gorm:"column:drawdown_pct"`
	MaxPrice      float64 `gorm:"column:max_price"`
	MinPrice      float64 `gorm:"column:min_price"`
	Reason        string  `gorm:"column:reason"`
	EntryTimeUnix int64   `gorm:"column:entry_time"`
	ClosedAtUnix  int64   `gorm:"column:closed_at;index"`
}

func (ClosedPositionModel) TableName() string { return "closed_positions" }
