package position

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPosition = errors.New("invalid position")
	ErrNilExchange     = errors.New("position tracker requires an exchange")
	ErrNilStore        = errors.New("position tracker requires a store")
)

// PositionError ties a failure to the symbol it happened on.
type PositionError struct {
	Symbol string
	Op     string
	Err    error
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("position %s %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *PositionError) Unwrap() error { return e.Err }

func invalid(op, symbol, format string, args ...any) error {
	return &PositionError{Symbol: symbol, Op: op, Err: fmt.Errorf("%w: "+format, append([]any{ErrInvalidPosition}, args...)...)}
}
