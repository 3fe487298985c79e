// Package rlog provides the structured logger threaded through every layer
// of the core. It wraps zerolog rather than exposing a package-level
// logger: callers construct one logger at database-build time and pass it
// down explicitly, matching the "no statics" rule for shared core state.
package rlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level mirrors zerolog's level names without leaking the zerolog type
// into every call site that only wants to configure a level.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls how New builds the root logger.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// New builds a root logger from cfg. Output defaults to os.Stdout.
func New(cfg Config) zerolog.Logger {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	if cfg.JSONOutput {
		return zerolog.New(out).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}).Level(level).With().Timestamp().Logger()
}

// WithLayer returns a child logger tagging every record with the
// originating core layer ("store", "txn", "catalog", "vm", "flow", ...).
func WithLayer(l zerolog.Logger, layer string) zerolog.Logger {
	return l.With().Str("layer", layer).Logger()
}

// Nop returns a disabled logger, useful for tests that don't want noise.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
