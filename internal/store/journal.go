package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tradebot/internal/gateway/exchange"
	"tradebot/internal/position"
	"tradebot/internal/store/model"
	"tradebot/internal/types"
)

// Journal records orders, signals and closed positions. A nil *Journal
// accepts every call and records nothing.
type Journal struct {
	store Store
	now   func() time.Time
}

func NewJournal(s Store) (*Journal, error) {
	if s == nil {
		return nil, errors.New("journal requires a store")
	}
	return &Journal{store: s, now: time.Now}, nil
}

func (j *Journal) withTx(ctx context.Context, fn func(UnitOfWork) error) error {
	uow, err := j.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(uow); err != nil {
		_ = uow.Rollback()
		return err
	}
	return uow.Commit()
}

// RecordOrder stores a submitted order together with the exchange result.
func (j *Journal) RecordOrder(ctx context.Context, order types.Order, res exchange.OrderResult, reason string) error {
	if j == nil {
		return nil
	}
	raw, err := json.Marshal(struct {
		Order  types.Order          `json:"order"`
		Result exchange.OrderResult `json:"result"`
	}{order, res})
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	rec := &model.OrderModel{
		OrderID:     res.ID,
		Symbol:      order.Symbol,
		Side:        string(order.Side),
		Type:        string(order.Type),
		Market:      string(order.Market),
		Amount:      order.Amount,
		Price:       res.Price,
		SignalPrice: order.SignalPrice,
		ReduceOnly:  order.ReduceOnly,
		Status:      model.ParseOrderStatus(res.Status),
		Strategy:    order.Strategy,
		Reason:      reason,
		RawData:     raw,
	}
	if res.DryRun {
		rec.IsSimulated = 1
	}
	if !res.Timestamp.IsZero() {
		rec.CreatedAtUnix = res.Timestamp.Unix()
	}
	return j.withTx(ctx, func(uow UnitOfWork) error {
		return uow.Orders().Save(ctx, rec)
	})
}

func (j *Journal) MarkCanceled(ctx context.Context, orderID string) error {
	if j == nil {
		return nil
	}
	return j.withTx(ctx, func(uow UnitOfWork) error {
		return uow.Orders().UpdateStatus(ctx, orderID, model.OrderStatusCanceled)
	})
}

// RecordSignal logs a signal and whether it led to an order.
func (j *Journal) RecordSignal(ctx context.Context, sig types.Signal, accepted bool, reason, orderID string) error {
	if j == nil {
		return nil
	}
	params, err := json.Marshal(sig.Params)
	if err != nil {
		return fmt.Errorf("encode signal params: %w", err)
	}
	ts := sig.CreatedAt
	if ts.IsZero() {
		ts = j.now()
	}
	rec := &model.SignalLogModel{
		Symbol:    sig.Symbol,
		Type:      string(sig.Type),
		Strategy:  sig.Strategy,
		Price:     sig.Price,
		Strength:  sig.Strength,
		Accepted:  accepted,
		Reason:    reason,
		OrderID:   orderID,
		Params:    params,
		Timestamp: ts.Unix(),
	}
	return j.withTx(ctx, func(uow UnitOfWork) error {
		return uow.Signals().Insert(ctx, rec)
	})
}

// ArchiveClose keeps p in the unbounded closed position archive.
func (j *Journal) ArchiveClose(ctx context.Context, p position.Position, reason string) error {
	if j == nil {
		return nil
	}
	rec := &model.ClosedPositionModel{
		Symbol:        p.Symbol,
		Side:          string(p.Side),
		Amount:        p.Amount,
		EntryPrice:    p.EntryPrice,
		ExitPrice:     p.CurrentPrice,
		PnL:           p.UnrealizedPnL + p.RealizedPnL,
		ProfitPct:     p.ProfitPct(),
		DrawdownPct:   p.DrawdownPct(),
		MaxPrice:      p.MaxPrice,
		MinPrice:      p.MinPrice,
		Reason:        reason,
		EntryTimeUnix: p.EntryTime.Unix(),
		ClosedAtUnix:  j.now().Unix(),
	}
	return j.withTx(ctx, func(uow UnitOfWork) error {
		return uow.Positions().Insert(ctx, rec)
	})
}

func (j *Journal) RecentOrders(ctx context.Context, symbol string, limit int) ([]model.OrderModel, error) {
	if j == nil {
		return nil, nil
	}
	var out []model.OrderModel
	err := j.withTx(ctx, func(uow UnitOfWork) (err error) {
		out, err = uow.Orders().ListRecent(ctx, symbol, limit)
		return err
	})
	return out, err
}

func (j *Journal) RecentSignals(ctx context.Context, symbol string, limit int) ([]model.SignalLogModel, error) {
	if j == nil {
		return nil, nil
	}
	var out []model.SignalLogModel
	err := j.withTx(ctx, func(uow UnitOfWork) (err error) {
		out, err = uow.Signals().ListRecent(ctx, symbol, limit)
		return err
	})
	return out, err
}

func (j *Journal) RecentClosed(ctx context.Context, symbol string, limit int) ([]model.ClosedPositionModel, error) {
	if j == nil {
		return nil, nil
	}
	var out []model.ClosedPositionModel
	err := j.withTx(ctx, func(uow UnitOfWork) (err error) {
		out, err = uow.Positions().ListRecent(ctx, symbol, limit)
		return err
	})
	return out, err
}

func (j *Journal) RealizedPnL(ctx context.Context, symbol string) (float64, error) {
	if j == nil {
		return 0, nil
	}
	var total float64
	err := j.withTx(ctx, func(uow UnitOfWork) (err error) {
		total, err = uow.Positions().RealizedPnL(ctx, symbol)
		return err
	})
	return total, err
}

func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.store.Close()
}
