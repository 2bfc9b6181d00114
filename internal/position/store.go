package position

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"tradebot/internal/pkg/convert"
)

// Snapshot is the persisted tracker state.
type Snapshot struct {
	Positions []Position `json:"positions"`
	Closed    []Position `json:"closed_positions"`
}

type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// FileStore keeps the snapshot as one JSON document. Writes go through a
// temp file that is synced and renamed over the target.
type FileStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
	// Skipped counts records dropped by the last Load.
	Skipped int
}

func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("state path must not be empty")
	}
	return &FileStore{path: path, now: time.Now}, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(_ context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Skipped = 0

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Snapshot{}, nil
	}
	if !gjson.ValidBytes(raw) {
		return Snapshot{}, fmt.Errorf("read %s: invalid json", s.path)
	}
	doc := gjson.ParseBytes(raw)
	var snap Snapshot
	snap.Positions = s.decodeList(doc.Get("positions"))
	snap.Closed = s.decodeList(doc.Get("closed_positions"))
	return snap, nil
}

func (s *FileStore) decodeList(list gjson.Result) []Position {
	if !list.IsArray() {
		return nil
	}
	var out []Position
	list.ForEach(func(_, rec gjson.Result) bool {
		p, ok := decodePosition(rec, s.now)
		if !ok {
			s.Skipped++
			return true
		}
		out = append(out, p)
		return true
	})
	return out
}

var requiredFields = []string{"symbol", "side", "amount", "entry_price", "current_price"}

// decodePosition reads one record leniently: numeric strings are accepted,
// a malformed entry_time becomes now, and anything missing a required field
// or carrying an unknown side is rejected.
func decodePosition(rec gjson.Result, now func() time.Time) (Position, bool) {
	if !rec.IsObject() {
		return Position{}, false
	}
	for _, f := range requiredFields {
		if !rec.Get(f).Exists() {
			return Position{}, false
		}
	}
	side, err := ParseSide(rec.Get("side").String())
	if err != nil {
		return Position{}, false
	}
	amount, ok := convert.ParseFloat(rec.Get("amount").Value())
	if !ok || amount < 0 {
		return Position{}, false
	}
	p := Position{
		Symbol:        strings.TrimSpace(rec.Get("symbol").String()),
		Side:          side,
		Amount:        amount,
		EntryPrice:    convert.FloatOr(rec.Get("entry_price").Value(), 0),
		CurrentPrice:  convert.FloatOr(rec.Get("current_price").Value(), 0),
		UnrealizedPnL: convert.FloatOr(rec.Get("unrealized_pnl").Value(), 0),
		RealizedPnL:   convert.FloatOr(rec.Get("realized_pnl").Value(), 0),
		MaxPrice:      convert.FloatOr(rec.Get("max_price").Value(), 0),
		MinPrice:      convert.FloatOr(rec.Get("min_price").Value(), 0),
		Futures:       rec.Get("futures").Bool(),
	}
	if p.Symbol == "" {
		return Position{}, false
	}
	ts, ok := parseTime(rec.Get("entry_time").String())
	if !ok {
		ts = now()
	}
	p.EntryTime = ts
	p.seedWatermarks()
	return p, true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime accepts RFC 3339 and the zone-less ISO forms older state files
// carry; zone-less values are read as local time.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (s *FileStore) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Positions == nil {
		snap.Positions = []Position{}
	}
	if snap.Closed == nil {
		snap.Closed = []Position{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}
	return writeAtomic(s.path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}

// MemoryStore keeps the snapshot in memory.
type MemoryStore struct {
	mu    sync.Mutex
	snap  Snapshot
	Saves int
	Err   error
}

func (m *MemoryStore) Load(context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSnapshot(m.snap), nil
}

func (m *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Saves++
	m.snap = cloneSnapshot(snap)
	return nil
}

func cloneSnapshot(s Snapshot) Snapshot {
	return Snapshot{
		Positions: append([]Position(nil), s.Positions...),
		Closed:    append([]Position(nil), s.Closed...),
	}
}
