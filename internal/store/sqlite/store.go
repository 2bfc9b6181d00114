package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tradebot/internal/store"
	"tradebot/internal/store/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var journalModels = []any{
	&model.OrderModel{},
	&model.ClosedPositionModel{},
	&model.SignalLogModel{},
}

// SqliteStore is the journal database. A single connection serializes
// writers so concurrent journal calls never see SQLITE_BUSY.
type SqliteStore struct {
	db *gorm.DB
}

type Option func(*gorm.Config)

// WithLogger reports slow statements and driver errors through log.
func WithLogger(log *slog.Logger) Option {
	return func(c *gorm.Config) {
		if log == nil {
			return
		}
		c.Logger = gormlogger.New(slogPrintf{log}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}
}

func NewSqliteStore(path string, opts ...Option) (*SqliteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	cfg := &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return NewSqliteStoreFromDB(db)
}

func NewSqliteStoreFromDB(db *gorm.DB) (*SqliteStore, error) {
	if db == nil {
		return nil, errors.New("gorm db cannot be nil")
	}
	if err := db.AutoMigrate(journalModels...); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Begin(ctx context.Context) (store.UnitOfWork, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return txUnit{tx}, nil
}

func (s *SqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// txUnit scopes every repository to one transaction.
type txUnit struct{ tx *gorm.DB }

func (u txUnit) Orders() store.OrderRepository { return NewOrderRepo(u.tx) }
func (u txUnit) Positions() store.PositionArchive { return NewArchiveRepo(u.tx) }
func (u txUnit) Signals() store.SignalRepository { return NewSignalRepo(u.tx) }
func (u txUnit) Commit() error { return u.tx.Commit().Error }
func (u txUnit) Rollback() error { return u.tx.Rollback().Error }

type slogPrintf struct{ log *slog.Logger }

func (w slogPrintf) Printf(format string, args ...any) {
	w.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
