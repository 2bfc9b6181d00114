package exchange

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotSupported marks an endpoint the venue does not offer. Callers treat
// it as "no data", not as a failure.
var ErrNotSupported = errors.New("operation not supported by exchange")

// FetchError wraps a failed exchange call with the operation and symbol.
type FetchError struct {
	Op     string
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("exchange %s [%s]: %v", e.Op, e.Symbol, e.Err)
	}
	return fmt.Sprintf("exchange %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call ran out of time.
func (e *FetchError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

func NewFetchError(op, symbol string, err error) *FetchError {
	return &FetchError{Op: op, Symbol: symbol, Err: err}
}

// IsNotSupported reports whether err (or anything it wraps) is ErrNotSupported.
func IsNotSupported(err error) bool {
	return errors.Is(err, ErrNotSupported)
}
