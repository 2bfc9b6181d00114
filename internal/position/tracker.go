package position

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"tradebot/internal/gateway/exchange"
	"tradebot/internal/logger"
	"tradebot/internal/pkg/symbol"
)

// Config holds the tracker's policy knobs. Zero fields take the defaults.
type Config struct {
	UpdateInterval  time.Duration
	DustThreshold   float64 // positions worth this much or less are ignored
	ClosedLimit     int
	TradeLookback   int
	EntryCoverage   float64
	QuoteCurrencies []string // balances in these currencies are cash, not positions
	SpotQuote       string
}

func DefaultConfig() Config {
	return Config{
		UpdateInterval:  5 * time.Second,
		DustThreshold:   1.0,
		ClosedLimit:     100,
		TradeLookback:   20,
		EntryCoverage:   0.9,
		QuoteCurrencies: []string{"USDT", "USD", "BUSD", "USDC"},
		SpotQuote:       symbol.DefaultQuote,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = d.UpdateInterval
	}
	if c.DustThreshold <= 0 {
		c.DustThreshold = d.DustThreshold
	}
	if c.ClosedLimit <= 0 {
		c.ClosedLimit = d.ClosedLimit
	}
	if c.TradeLookback <= 0 {
		c.TradeLookback = d.TradeLookback
	}
	if c.EntryCoverage <= 0 || c.EntryCoverage > 1 {
		c.EntryCoverage = d.EntryCoverage
	}
	if len(c.QuoteCurrencies) == 0 {
		c.QuoteCurrencies = d.QuoteCurrencies
	}
	if strings.TrimSpace(c.SpotQuote) == "" {
		c.SpotQuote = d.SpotQuote
	}
	return c
}

// RefreshReport describes what one UpdatePositions call did. A nil error
// field means that sub-step succeeded (possibly with no data).
type RefreshReport struct {
	Skipped     bool
	RefreshedAt time.Time
	Active      int
	Opened      []string
	Closed      []string
	Carried     []string // kept from the previous cycle because their source failed
	FuturesErr  error
	BalanceErr  error
	SymbolErrs  map[string]error
	SaveErr     error
}

// Err joins every failure in the report.
func (r RefreshReport) Err() error {
	errs := []error{r.FuturesErr, r.BalanceErr, r.SaveErr}
	keys := make([]string, 0, len(r.SymbolErrs))
	for k := range r.SymbolErrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		errs = append(errs, r.SymbolErrs[k])
	}
	return errors.Join(errs...)
}

func (r *RefreshReport) symbolErr(sym string, err error) {
	if r.SymbolErrs == nil {
		r.SymbolErrs = make(map[string]error)
	}
	r.SymbolErrs[sym] = err
}

// Tracker reconciles derivatives positions and spot balances into a single
// persisted set of open positions. All methods are safe for concurrent use;
// a refresh holds the lock across its exchange calls so refreshes never
// interleave.
type Tracker struct {
	mu          sync.Mutex
	cfg         Config
	ex          exchange.AccountReader
	store       Store
	log         *slog.Logger
	now         func() time.Time
	quotes      map[string]bool
	active      map[string]*Position
	closed      []Position
	lastRefresh time.Time
}

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(t *Tracker) { t.log = logger.OrDiscard(log) }
}

// NewTracker builds a tracker and loads any persisted state. A store that
// fails to load is logged and the tracker starts empty.
func NewTracker(ctx context.Context, ex exchange.AccountReader, store Store, cfg Config, opts ...Option) (*Tracker, error) {
	if ex == nil {
		return nil, ErrNilExchange
	}
	if store == nil {
		return nil, ErrNilStore
	}
	t := &Tracker{
		cfg:    cfg.withDefaults(),
		ex:     ex,
		store:  store,
		log:    logger.Discard(),
		now:    time.Now,
		active: make(map[string]*Position),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.quotes = make(map[string]bool, len(t.cfg.QuoteCurrencies))
	for _, q := range t.cfg.QuoteCurrencies {
		t.quotes[strings.ToUpper(q)] = true
	}
	t.load(ctx)
	return t, nil
}

func (t *Tracker) Config() Config { return t.cfg }

func (t *Tracker) load(ctx context.Context) {
	snap, err := t.store.Load(ctx)
	if err != nil {
		t.log.Error("load positions failed, starting empty", "error", err)
		return
	}
	t.closed = append(t.closed, snap.Closed...)
	for i := range snap.Positions {
		p := snap.Positions[i]
		p.Symbol = symbol.Canonical(p.Symbol)
		if p.Symbol == "" {
			continue
		}
		if !(p.Amount > 0) {
			// zero amount means closed
			t.closed = append(t.closed, p)
			t.log.Warn("stored position has no amount, moved to closed", "symbol", p.Symbol)
			continue
		}
		p.seedWatermarks()
		t.active[p.Symbol] = &p
		t.log.Info("loaded position", "symbol", p.Symbol, "entry_price", p.EntryPrice,
			"max_price", p.MaxPrice, "min_price", p.MinPrice)
	}
	t.trimClosed()
	t.log.Info("position state loaded", "active", len(t.active), "closed", len(t.closed))
}

func (t *Tracker) dueLocked() bool {
	if t.lastRefresh.IsZero() {
		return true
	}
	return t.now().Sub(t.lastRefresh) > t.cfg.UpdateInterval
}

// UpdatePositions refreshes the active set from the exchange unless the last
// refresh is younger than UpdateInterval. Sub-fetch failures are logged and
// reported, never returned as a hard failure; tracked data whose source
// failed this cycle is carried forward untouched.
func (t *Tracker) UpdatePositions(ctx context.Context) RefreshReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.dueLocked() {
		return RefreshReport{Skipped: true, Active: len(t.active)}
	}
	return t.refreshLocked(ctx)
}

func (t *Tracker) refreshLocked(ctx context.Context) RefreshReport {
	var rep RefreshReport
	previous := t.active
	next := make(map[string]*Position, len(previous))
	keep := make(map[string]bool)
	now := t.now()

	if err := t.collectFutures(ctx, previous, next, now, &rep); err != nil {
		rep.FuturesErr = err
		t.log.Error("fetch futures positions failed", "error", err)
	}
	if err := t.collectSpot(ctx, previous, next, keep, now, rep.FuturesErr != nil, &rep); err != nil {
		rep.BalanceErr = err
		t.log.Error("fetch balance failed", "error", err)
	}

	sourceFailed := rep.FuturesErr != nil || rep.BalanceErr != nil
	for sym, old := range previous {
		if _, ok := next[sym]; ok {
			continue
		}
		if sourceFailed || keep[sym] {
			next[sym] = old
			rep.Carried = append(rep.Carried, sym)
			continue
		}
		t.closed = append(t.closed, *old)
		rep.Closed = append(rep.Closed, sym)
		t.log.Info("position closed (no longer on exchange)", "symbol", sym)
	}
	for sym := range next {
		if _, ok := previous[sym]; !ok {
			rep.Opened = append(rep.Opened, sym)
		}
	}
	sort.Strings(rep.Opened)
	sort.Strings(rep.Closed)
	sort.Strings(rep.Carried)

	t.active = next
	t.trimClosed()
	if err := t.saveLocked(ctx); err != nil {
		rep.SaveErr = err
	}
	t.lastRefresh = t.now()
	rep.RefreshedAt = t.lastRefresh
	rep.Active = len(t.active)
	return rep
}

func (t *Tracker) collectFutures(ctx context.Context, previous, next map[string]*Position, now time.Time, rep *RefreshReport) error {
	fps, err := t.ex.FetchPositions(ctx)
	if err != nil {
		if exchange.IsNotSupported(err) {
			return nil
		}
		return err
	}
	for _, fp := range fps {
		if !(fp.Contracts > 0) {
			continue
		}
		sym := symbol.Canonical(fp.Symbol)
		if sym == "" {
			continue
		}
		side := Long
		if strings.EqualFold(fp.Side, string(Short)) {
			side = Short
		}
		pnl := fp.UnrealizedPnL
		prev := previous[sym]
		if prev != nil && prev.Side != side {
			// flipped: the old leg is finished
			t.closeFlipped(prev, rep)
			prev = nil
		}
		next[sym] = Merge(prev, Observation{
			Symbol:        sym,
			Side:          side,
			Amount:        fp.Contracts,
			EntryPrice:    fp.EntryPrice,
			Price:         fp.MarkPrice,
			UnrealizedPnL: &pnl,
			Futures:       true,
		}, now)
	}
	return nil
}

// collectSpot turns non-quote balances into long positions. When the futures
// fetch failed, symbols tracked as derivatives are left for carry-forward.
func (t *Tracker) collectSpot(ctx context.Context, previous, next map[string]*Position, keep map[string]bool, now time.Time, futuresFailed bool, rep *RefreshReport) error {
	balances, err := t.ex.FetchBalance(ctx)
	if err != nil {
		return err
	}
	currencies := make([]string, 0, len(balances))
	for cur := range balances {
		currencies = append(currencies, cur)
	}
	sort.Strings(currencies)

	for _, cur := range currencies {
		if t.quotes[strings.ToUpper(cur)] {
			continue
		}
		free := balances[cur].Free
		if !(free > 0) {
			continue
		}
		sym := symbol.Canonical(strings.ToUpper(cur) + "/" + t.cfg.SpotQuote)
		if _, taken := next[sym]; taken {
			// derivatives position on the same pair wins
			continue
		}
		prev := previous[sym]
		if prev != nil && prev.Futures && futuresFailed {
			continue
		}
		tk, err := t.ex.FetchTicker(ctx, sym)
		if err != nil {
			rep.symbolErr(sym, err)
			keep[sym] = true
			t.log.Debug("fetch ticker failed", "symbol", sym, "error", err)
			continue
		}
		if !(tk.Last > 0) {
			keep[sym] = true
			continue
		}
		if prev != nil && prev.Side == Long {
			next[sym] = Merge(prev, Observation{Symbol: sym, Side: Long, Amount: free, Price: tk.Last}, now)
			continue
		}
		if prev != nil {
			t.closeFlipped(prev, rep)
		}
		entry, err := reconstructEntry(ctx, t.ex, sym, free, t.cfg.TradeLookback, t.cfg.EntryCoverage)
		if err != nil {
			rep.symbolErr(sym, err)
			t.log.Debug("fetch trade history failed", "symbol", sym, "error", err)
		}
		if entry <= 0 {
			entry = tk.Last
		}
		next[sym] = Merge(nil, Observation{Symbol: sym, Side: Long, Amount: free, EntryPrice: entry, Price: tk.Last}, now)
	}
	return nil
}

// closeFlipped moves a position whose side changed into closed history.
func (t *Tracker) closeFlipped(prev *Position, rep *RefreshReport) {
	t.closed = append(t.closed, *prev)
	rep.Closed = append(rep.Closed, prev.Symbol)
	t.log.Info("position closed (side changed)", "symbol", prev.Symbol, "side", prev.Side)
}

// GetPosition returns the tracked position for symbol. When nothing is
// tracked and a refresh is due it checks the spot balance of the base
// currency directly and caches a synthesized position with entry=current.
func (t *Tracker) GetPosition(ctx context.Context, sym string) (Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sym = symbol.Canonical(sym)
	if p, ok := t.active[sym]; ok {
		return *p, true
	}
	if sym == "" || !t.dueLocked() {
		return Position{}, false
	}
	base := symbol.BaseCurrency(sym)
	if base == "" {
		return Position{}, false
	}
	balances, err := t.ex.FetchBalance(ctx)
	if err != nil {
		t.log.Error("direct position check failed", "symbol", sym, "error", err)
		return Position{}, false
	}
	free := balances.Free(base)
	if !(free > 0) {
		return Position{}, false
	}
	tk, err := t.ex.FetchTicker(ctx, sym)
	if err != nil {
		t.log.Error("direct position check failed", "symbol", sym, "error", err)
		return Position{}, false
	}
	if !(tk.Last > 0) {
		return Position{}, false
	}
	p := New(sym, Long, free, tk.Last, tk.Last, t.now())
	t.active[sym] = p
	return *p, true
}

// GetAllPositions returns copies of the active positions worth more than the
// dust threshold, ordered by symbol.
func (t *Tracker) GetAllPositions() []Position {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Position, 0, len(t.active))
	for _, p := range t.active {
		if v := p.Value(); v > t.cfg.DustThreshold {
			out = append(out, *p)
		} else {
			t.log.Debug("ignoring dust position", "symbol", p.Symbol,
				"amount", p.Amount, "price", p.CurrentPrice, "value", v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// IsDust reports whether p is below the tracker's dust threshold.
func (t *Tracker) IsDust(p Position) bool {
	return p.Value() <= t.cfg.DustThreshold
}

// GetClosedPositions returns the closed history, oldest first.
func (t *Tracker) GetClosedPositions() []Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Position(nil), t.closed...)
}

// LastRefresh is the time of the last completed refresh.
func (t *Tracker) LastRefresh() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRefresh
}

// RecordPosition inserts or replaces a position by hand and persists.
func (t *Tracker) RecordPosition(ctx context.Context, sym string, side Side, amount, entryPrice, currentPrice float64) error {
	canon := symbol.Canonical(sym)
	if canon == "" {
		return invalid("record", sym, "empty symbol")
	}
	if side != Long && side != Short {
		return invalid("record", canon, "side %q", side)
	}
	if !(amount > 0) {
		return invalid("record", canon, "amount %v", amount)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[canon] = New(canon, side, amount, entryPrice, currentPrice, t.now())
	t.log.Info("position recorded", "symbol", canon, "side", side, "amount", amount, "entry_price", entryPrice)
	return t.saveLocked(ctx)
}

// ClosePosition moves the symbol to closed history. Closing something that
// is not active is a no-op reported as false.
func (t *Tracker) ClosePosition(ctx context.Context, sym string) (Position, bool, error) {
	canon := symbol.Canonical(sym)

	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.active[canon]
	if !ok {
		return Position{}, false, nil
	}
	delete(t.active, canon)
	t.closed = append(t.closed, *p)
	t.trimClosed()
	t.log.Info("position closed", "symbol", canon, "pnl_pct", p.ProfitPct())
	return *p, true, t.saveLocked(ctx)
}

func (t *Tracker) trimClosed() {
	if over := len(t.closed) - t.cfg.ClosedLimit; over > 0 {
		t.closed = append([]Position(nil), t.closed[over:]...)
	}
}

func (t *Tracker) saveLocked(ctx context.Context) error {
	snap := Snapshot{
		Positions: make([]Position, 0, len(t.active)),
		Closed:    append([]Position(nil), t.closed...),
	}
	for _, p := range t.active {
		snap.Positions = append(snap.Positions, *p)
	}
	sort.Slice(snap.Positions, func(i, j int) bool { return snap.Positions[i].Symbol < snap.Positions[j].Symbol })
	if err := t.store.Save(ctx, snap); err != nil {
		t.log.Error("save positions failed", "error", err)
		return fmt.Errorf("save positions: %w", err)
	}
	t.log.Debug("saved positions", "active", len(snap.Positions), "closed", len(snap.Closed))
	return nil
}
