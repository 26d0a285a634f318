// Package armlog is the structured logger shared by the arm/* packages. It
// wraps log/slog the way the wider example pack's log package does, minus
// the network sink: a *Logger per subsystem, a legacy-verbosity shim, and
// a cheap Enabled() check so hot paths (decode, per-opcode emission) can
// skip formatting entirely when a level is off.
package armlog

import (
	"context"
	"log/slog"
	"math"
	"os"
)

const (
	LevelTrace slog.Level = -8
	LevelDebug            = slog.LevelDebug
	LevelInfo             = slog.LevelInfo
	LevelWarn             = slog.LevelWarn
	LevelError            = slog.LevelError

	levelMaxVerbosity slog.Level = math.MinInt
)

// FromLegacyLevel maps the old crit..trace integer verbosity scale (0..5,
// as used by geth-lineage tooling in the wider pack) onto slog.Level.
func FromLegacyLevel(lvl int) slog.Level {
	switch {
	case lvl <= 1: // crit, error
		return LevelError
	case lvl == 2:
		return LevelWarn
	case lvl == 3:
		return LevelInfo
	case lvl == 4:
		return LevelDebug
	default:
		return LevelTrace
	}
}

// Logger is a named sub-logger for one subsystem ("cpu", "translate",
// "interp"). It is safe for concurrent use.
type Logger struct {
	subsystem string
	inner     *slog.Logger
}

// rootLevel backs root's handler, so SetLevel also reaches loggers that New
// has already built.
var rootLevel = func() *slog.LevelVar {
	v := new(slog.LevelVar)
	v.Set(levelMaxVerbosity)
	return v
}()

var root = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: rootLevel}))

// New returns the named sub-logger. Subsystem name is attached as a
// "subsystem" attribute on every record.
func New(subsystem string) *Logger {
	return &Logger{subsystem: subsystem, inner: root.With("subsystem", subsystem)}
}

// SetLevel changes the minimum level emitted process-wide. Intended for use
// by cmd/armdis and tests, never by the translation hot path itself.
func SetLevel(level slog.Level) {
	rootLevel.Set(level)
}

// Enabled reports whether l would emit at level, without formatting any
// arguments. Call sites on the decode/translate hot path must guard
// Trace/Debug calls with this when the message involves formatting work.
func (l *Logger) Enabled(level slog.Level) bool {
	return l.inner.Enabled(context.Background(), level)
}

func (l *Logger) Trace(msg string, args ...any) {
	if l.Enabled(LevelTrace) {
		l.inner.Log(context.Background(), LevelTrace, msg, args...)
	}
}

func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }

// With returns a derived logger carrying additional attributes on every
// subsequent record (e.g. a block's guest address for the duration of one
// translation).
func (l *Logger) With(args ...any) *Logger {
	return &Logger{subsystem: l.subsystem, inner: l.inner.With(args...)}
}
