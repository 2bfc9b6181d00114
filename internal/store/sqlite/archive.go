package sqlite

import (
	"context"
	"errors"

	"tradebot/internal/store/model"

	"gorm.io/gorm"
)

type archiveRepo struct {
	db *gorm.DB
}

func NewArchiveRepo(db *gorm.DB) *archiveRepo {
	return &archiveRepo{db: db}
}

func (r *archiveRepo) Insert(ctx context.Context, rec *model.ClosedPositionModel) error {
	if rec == nil {
		return errors.New("closed position cannot be nil")
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *archiveRepo) ListRecent(ctx context.Context, symbol string, limit int) ([]model.ClosedPositionModel, error) {
	var recs []model.ClosedPositionModel
	q := r.db.WithContext(ctx)
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("closed_at DESC, id DESC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// RealizedPnL sums the archived pnl, optionally for one symbol.
func (r *archiveRepo) RealizedPnL(ctx context.Context, symbol string) (float64, error) {
	var total float64
	q := r.db.WithContext(ctx).Model(&model.ClosedPositionModel{})
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	if err := q.Select("COALESCE(SUM(pnl), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
