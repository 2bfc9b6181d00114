package position

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLStore keeps tracker state in a sqlite file. Active and closed positions
// share one table; closed rows keep their insertion order through seq.
type SQLStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func OpenSQLStore(path string) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite state path must not be empty")
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensurePositionSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLStore{db: db, path: path}, nil
}

func ensurePositionSchema(db *sql.DB) error {
	stmt := `
	CREATE TABLE IF NOT EXISTS tracked_positions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		state TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		amount REAL NOT NULL,
		entry_price REAL,
		current_price REAL,
		unrealized_pnl REAL,
		realized_pnl REAL,
		entry_time INTEGER NOT NULL,
		max_price REAL,
		min_price REAL,
		futures INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_tracked_positions_state ON tracked_positions(state);
	`
	_, err := db.Exec(stmt)
	return err
}

func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLStore) handle() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("sqlite state store is closed")
	}
	return s.db, nil
}

// Save replaces the stored snapshot in one transaction.
func (s *SQLStore) Save(ctx context.Context, snap Snapshot) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tracked_positions`); err != nil {
		return err
	}
	ins, err := tx.PrepareContext(ctx, `
		INSERT INTO tracked_positions(state, symbol, side, amount, entry_price, current_price,
			unrealized_pnl, realized_pnl, entry_time, max_price, min_price, futures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer ins.Close()

	write := func(state string, list []Position) error {
		for _, p := range list {
			if _, err := ins.ExecContext(ctx, state, p.Symbol, string(p.Side), p.Amount, p.EntryPrice,
				p.CurrentPrice, p.UnrealizedPnL, p.RealizedPnL, p.EntryTime.UnixMilli(), p.MaxPrice, p.MinPrice, p.Futures); err != nil {
				return fmt.Errorf("insert %s %s: %w", state, p.Symbol, err)
			}
		}
		return nil
	}
	if err := write("active", snap.Positions); err != nil {
		return err
	}
	if err := write("closed", snap.Closed); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) Load(ctx context.Context) (Snapshot, error) {
	db, err := s.handle()
	if err != nil {
		return Snapshot{}, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT state, symbol, side, amount, entry_price, current_price, unrealized_pnl,
		       realized_pnl, entry_time, max_price, min_price, futures
		FROM tracked_positions ORDER BY seq`)
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()

	var snap Snapshot
	for rows.Next() {
		var (
			state, sym, side               string
			amount                         float64
			entry, cur, upnl, rpnl, mx, mn sql.NullFloat64
			entryMs                        int64
			futures                        bool
		)
		if err := rows.Scan(&state, &sym, &side, &amount, &entry, &cur, &upnl, &rpnl, &entryMs, &mx, &mn, &futures); err != nil {
			return Snapshot{}, err
		}
		ps, err := ParseSide(side)
		if err != nil {
			continue
		}
		p := Position{
			Symbol:        sym,
			Side:          ps,
			Amount:        amount,
			EntryPrice:    entry.Float64,
			CurrentPrice:  cur.Float64,
			UnrealizedPnL: upnl.Float64,
			RealizedPnL:   rpnl.Float64,
			EntryTime:     time.UnixMilli(entryMs),
			MaxPrice:      mx.Float64,
			MinPrice:      mn.Float64,
			Futures:       futures,
		}
		if state == "closed" {
			snap.Closed = append(snap.Closed, p)
		} else {
			snap.Positions = append(snap.Positions, p)
		}
	}
	return snap, rows.Err()
}
