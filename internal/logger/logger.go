package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger owns a slog handler and the level it filters on, so the level can be
// changed after construction without rebuilding the handler chain.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

func New(w io.Writer, level string) *Logger {
	if w == nil {
		w = os.Stdout
	}
	lv := new(slog.LevelVar)
	lv.Set(ParseLevel(level))
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})
	return &Logger{Logger: slog.New(handler), level: lv}
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (l *Logger) SetLevel(level string) {
	if l == nil || l.level == nil {
		return
	}
	l.level.Set(ParseLevel(level))
}

func (l *Logger) Level() slog.Level {
	if l == nil || l.level == nil {
		return slog.LevelInfo
	}
	return l.level.Level()
}

// Component tags the logger for a subsystem.
func (l *Logger) Component(name string) *slog.Logger {
	return l.With("component", name)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// OrDiscard substitutes a discarding logger for nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

func InfoBlock(l *slog.Logger, block string) {
	block = strings.TrimSpace(block)
	if block == "" || l == nil {
		return
	}
	for _, line := range strings.Split(block, "\n") {
		l.Info(line)
	}
}
