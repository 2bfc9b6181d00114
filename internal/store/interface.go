package store

import (
	"context"

	"tradebot/internal/store/model"
)

// UnitOfWork defines a transaction scope.
type UnitOfWork interface {
	// Commit commits the transaction.
	Commit() error
	// Rollback rolls back the transaction.
	Rollback() error

	// Orders returns the order repository within this transaction.
	Orders() OrderRepository
	// Positions returns the closed position archive within this transaction.
	Positions() PositionArchive
	// Signals returns the signal log within this transaction.
	Signals() SignalRepository
}

// Store is the entry point for database access.
type Store interface {
	// Begin starts a new UnitOfWork (transaction).
	Begin(ctx context.Context) (UnitOfWork, error)
	// Close closes the store connection.
	Close() error
}

// OrderRepository handles order persistence.
type OrderRepository interface {
	Save(ctx context.Context, order *model.OrderModel) error
	FindByOrderID(ctx context.Context, orderID string) (*model.OrderModel, error)
	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error
	ListRecent(ctx context.Context, symbol string, limit int) ([]model.OrderModel, error)
}

// PositionArchive keeps every closed position.
type PositionArchive interface {
	Insert(ctx context.Context, rec *model.ClosedPositionModel) error
	ListRecent(ctx context.Context, symbol string, limit int) ([]model.ClosedPositionModel, error)
	RealizedPnL(ctx context.Context, symbol string) (float64, error)
}

// SignalRepository handles the signal log.
type SignalRepository interface {
	Insert(ctx context.Context, rec *model.SignalLogModel) error
	ListRecent(ctx context.Context, symbol string, limit int) ([]model.SignalLogModel, error)
}
