package trading

import (
	"context"
	"sync"
	"testing"
	"time"

	"tradebot/internal/executor"
	"tradebot/internal/gateway/exchange"
	"tradebot/internal/gateway/exchange/exchangetest"
	"tradebot/internal/position"
	"tradebot/internal/risk"
	"tradebot/internal/types"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type signalEntry struct {
	sig      types.Signal
	accepted bool
	reason   string
	orderID  string
}

type archiveEntry struct {
	pos    position.Position
	reason string
}

type recordingJournal struct {
	mu       sync.Mutex
	signals  []signalEntry
	archived []archiveEntry
}

func (j *recordingJournal) RecordSignal(_ context.Context, sig types.Signal, accepted bool, reason, orderID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.signals = append(j.signals, signalEntry{sig, accepted, reason, orderID})
	return nil
}

func (j *recordingJournal) ArchiveClose(_ context.Context, p position.Position, reason string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.archived = append(j.archived, archiveEntry{p, reason})
	return nil
}

func (j *recordingJournal) Signals() []signalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]signalEntry(nil), j.signals...)
}

func (j *recordingJournal) Archived() []archiveEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]archiveEntry(nil), j.archived...)
}

type rig struct {
	fake    *exchangetest.Fake
	clock   *clock
	tracker *position.Tracker
	risk    *risk.Manager
	exec    *executor.Executor
	journal *recordingJournal
	handler *SignalHandler
	monitor *Monitor
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{fake: exchangetest.New(), clock: &clock{now: t0}, journal: &recordingJournal{}}
	ctx := context.Background()

	var err error
	r.tracker, err = position.NewTracker(ctx, r.fake, &position.MemoryStore{}, position.DefaultConfig(), position.WithClock(r.clock.Now))
	require.NoError(t, err)
	r.risk, err = risk.NewManager(risk.Config{MaxOpenTrades: 3, MaxDrawdown: 0.2}, r.tracker, r.fake, nil)
	require.NoError(t, err)
	r.exec, err = executor.New(r.fake, false)
	require.NoError(t, err)

	deps := HandlerDeps{Risk: r.risk, Book: r.tracker, Executor: r.exec, Journal: r.journal, Now: r.clock.Now}
	r.handler, err = NewSignalHandler(deps)
	require.NoError(t, err)
	r.monitor, err = NewMonitor(deps, r.handler)
	require.NoError(t, err)
	return r
}

// refresh forces the tracker past its rate limit and reconciles.
func (r *rig) refresh(t *testing.T) position.RefreshReport {
	t.Helper()
	r.clock.Advance(10 * time.Second)
	rep := r.tracker.UpdatePositions(context.Background())
	require.False(t, rep.Skipped)
	return rep
}

func flat(n int, price float64) []exchange.Candle {
	out := make([]exchange.Candle, n)
	start := t0.Add(-time.Duration(n) * time.Minute)
	for i := range out {
		open := start.Add(time.Duration(i) * time.Minute)
		out[i] = exchange.Candle{OpenTime: open, CloseTime: open.Add(time.Minute - time.Millisecond),
			Open: price, High: price, Low: price, Close: price, Volume: 1}
	}
	return out
}
