// Package obs centralizes this module's structured logging setup, mapping
// the legacy "verbose_mode" knob onto an slog level (spec.md §6, §7).
package obs

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide default logger. verbose maps to
// slog.LevelDebug; otherwise slog.LevelInfo, matching the teacher's
// verbose_mode-gated myprintf convention.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
