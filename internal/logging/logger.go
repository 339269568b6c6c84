// Package logging builds the leveled slog loggers used across fdtdsim.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/san-kum/fdtdsim/internal/fdtd"
)

// LevelTrace sits below Debug and enables per-step output.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps "info", "debug", "trace", "warn" or "error" to a level.
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled text logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, options(level)))
}

// NewJSONLogger is NewLogger with one JSON object per line.
func NewJSONLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, options(level)))
}

func options(level string) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// StepTracer logs every completed step at trace level. It satisfies
// sim.Observer.
type StepTracer struct {
	Log *slog.Logger
}

func (s StepTracer) OnStep(g *fdtd.Grid) {
	if !s.Log.Enabled(context.Background(), LevelTrace) {
		return
	}
	s.Log.Log(context.Background(), LevelTrace, "step",
		"n", g.TimeStepsPassed(), "time", g.Time(), "state", g.State().String())
}
