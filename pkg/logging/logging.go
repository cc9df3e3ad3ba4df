// Package logging configures colored structured logging with tint.
//
// Usage:
//
//	logging.Setup(os.Stderr)                          // level from LOG_LEVEL env
//	logging.SetupWithLevel(os.Stderr, slog.LevelDebug) // explicit level override
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: warn)
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup configures colored logging on w at the level specified by the
// LOG_LEVEL env var. A command line tool is quiet by default: warn.
func Setup(w io.Writer) {
	SetupWithLevel(w, LevelFromEnv())
}

// SetupWithLevel configures colored logging on w at the given level.
func SetupWithLevel(w io.Writer, level slog.Level) {
	slog.SetDefault(New(w, level))
}

// New returns a tint logger writing to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(w),
	}))
}

// LevelFromEnv returns the level named by LOG_LEVEL, warn by default.
func LevelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
