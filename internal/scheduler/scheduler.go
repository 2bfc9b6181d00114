package scheduler

import (
	"context"
	"log/slog"
	"time"

	"tradebot/internal/logger"
)

// Loop runs a task every Interval until its context ends. With Align set,
// runs land Offset after each Interval boundary (candle close) instead of
// Interval after the previous run.
type Loop struct {
	Name           string
	Interval       time.Duration
	Offset         time.Duration
	Align          bool
	RunImmediately bool

	log   *slog.Logger
	nowFn func() time.Time
}

func NewLoop(name string, interval time.Duration, log *slog.Logger) *Loop {
	return &Loop{
		Name:           name,
		Interval:       interval,
		RunImmediately: true,
		log:            logger.OrDiscard(log),
		nowFn:          time.Now,
	}
}

// Run blocks until ctx is done. A task that outlives the interval delays
// the next run rather than overlapping it.
func (s *Loop) Run(ctx context.Context, task func(ctx context.Context)) {
	if s == nil || task == nil {
		return
	}
	if s.Interval <= 0 {
		s.log.Warn("scheduler: invalid interval, exit", "name", s.Name, "interval", s.Interval)
		return
	}
	if s.Offset < 0 {
		s.log.Warn("scheduler: negative offset, clamp to 0", "name", s.Name, "offset", s.Offset)
		s.Offset = 0
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	startAt := s.nowFn().UTC()
	s.log.Info("scheduler started", "name", s.Name, "interval", s.Interval,
		"align", s.Align, "offset", s.Offset, "run_immediately", s.RunImmediately)

	if s.RunImmediately {
		task(ctx)
	}
	for {
		now := s.nowFn().UTC()
		wait := s.nextWait(now)
		s.log.Debug("scheduler sleeping", "name", s.Name, "next", now.Add(wait).Format(time.RFC3339),
			"uptime", now.Sub(startAt).Truncate(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("scheduler stopped", "name", s.Name)
			return
		case <-timer.C:
		}
		task(ctx)
	}
}

func (s *Loop) nextWait(now time.Time) time.Duration {
	if !s.Align {
		return s.Interval
	}
	nextClose := now.Truncate(s.Interval).Add(s.Interval)
	wait := nextClose.Add(s.Offset).Sub(now)
	if wait <= 0 {
		wait = s.Interval
	}
	return wait
}
