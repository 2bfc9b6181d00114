package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tradebot/internal/gateway/exchange"
)

func TestParseIntervalDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"30s": 30 * time.Second,
		"15m": 15 * time.Minute,
		"1H":  time.Hour,
		"1d":  24 * time.Hour,
		"1w":  7 * 24 * time.Hour,
	}
	for in, want := range cases {
		got, ok := ParseIntervalDuration(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "m", "0m", "-1h", "5x", "abc"} {
		_, ok := ParseIntervalDuration(bad)
		assert.False(t, ok, bad)
	}
}

func TestDropUnclosedKline(t *testing.T) {
	open := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	candles := []exchange.Candle{{OpenTime: open.Add(-time.Hour)}, {OpenTime: open}}

	got := dropUnclosedKlineAt(candles, time.Hour, open.Add(30*time.Minute), DefaultKlineGrace)
	assert.Len(t, got, 1)

	got = dropUnclosedKlineAt(candles, time.Hour, open.Add(time.Hour+time.Minute), DefaultKlineGrace)
	assert.Len(t, got, 2)

	assert.Empty(t, dropUnclosedKlineAt(nil, time.Hour, open, 0))
}

func TestLoopNextWaitAligned(t *testing.T) {
	l := &Loop{Interval: 15 * time.Minute, Offset: 5 * time.Second, Align: true}
	now := time.Date(2024, 1, 1, 10, 7, 0, 0, time.UTC)
	assert.Equal(t, 8*time.Minute+5*time.Second, l.nextWait(now))

	l.Align = false
	assert.Equal(t, 15*time.Minute, l.nextWait(now))
}

func TestLoopRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs int32
	l := NewLoop("test", 5*time.Millisecond, nil)

	done := make(chan struct{})
	go func() {
		l.Run(ctx, func(context.Context) {
			if atomic.AddInt32(&runs, 1) == 3 {
				cancel()
			}
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(3))
}
