package circuit

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by Do while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Snapshot is a point-in-time view of a breaker for status reporting.
type Snapshot struct {
	Name        string    `json:"name"`
	State       State     `json:"state"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure,omitzero"`
	OpenUntil   time.Time `json:"open_until,omitzero"`
}

// CircuitBreaker opens after threshold consecutive failures and lets a single
// probe through once cooldown has passed. A failed probe reopens it.
type CircuitBreaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	log       *slog.Logger
	nowFn     func() time.Time

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
}

func NewCircuitBreaker(name string, threshold int, cooldown time.Duration, log *slog.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		name:      name,
		threshold: max(threshold, 1),
		cooldown:  cooldown,
		log:       log,
		nowFn:     time.Now,
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	snap := Snapshot{Name: cb.name, State: cb.state, Failures: cb.failures, LastFailure: cb.lastFailure}
	if cb.state == StateOpen {
		snap.OpenUntil = cb.lastFailure.Add(cb.cooldown)
	}
	return snap
}

// Allow reports whether a call may proceed. An open breaker whose cooldown
// has elapsed moves to half-open and admits the caller as its probe.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != StateOpen {
		return true
	}
	if cb.nowFn().Sub(cb.lastFailure) <= cb.cooldown {
		return false
	}
	cb.setState(StateHalfOpen)
	return true
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.setState(StateClosed)
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	cb.lastFailure = cb.nowFn()
	switch {
	case cb.state == StateHalfOpen:
		cb.setState(StateOpen)
	case cb.state == StateClosed && cb.failures >= cb.threshold:
		cb.setState(StateOpen)
	}
}

// Do runs fn when the breaker allows it and records the outcome.
func (cb *CircuitBreaker) Do(fn func() error) error {
	if !cb.Allow() {
		return ErrOpen
	}
	if err := fn(); err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

func (cb *CircuitBreaker) setState(to State) {
	from := cb.state
	cb.state = to
	if cb.log == nil {
		return
	}
	cb.log.Warn("circuit breaker state change",
		"name", cb.name, "from", from, "to", to,
		"failures", cb.failures, "threshold", cb.threshold, "cooldown", cb.cooldown)
}
