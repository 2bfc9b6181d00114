package sqlite

import (
	"context"

	"tradebot/internal/store/model"

	"gorm.io/gorm"
)

type signalRepo struct {
	db *gorm.DB
}

func NewSignalRepo(db *gorm.DB) *signalRepo {
	return &signalRepo{db: db}
}

func (r *signalRepo) Insert(ctx context.Context, rec *model.SignalLogModel) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *signalRepo) ListRecent(ctx context.Context, symbol string, limit int) ([]model.SignalLogModel, error) {
	var logs []model.SignalLogModel
	q := r.db.WithContext(ctx).Order("timestamp DESC, id DESC")
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
