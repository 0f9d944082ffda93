// Package log builds the zerolog loggers used for structured diagnostics.
// Human-facing status lines go through the runner's output; this logger
// carries the machine-level detail (commands, exit codes, paths).
package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for building a logger.
type Config struct {
	Level   string    // "debug", "info", "warn", ...; falls back to LOG_LEVEL, then warn
	Output  io.Writer // defaults to os.Stderr
	Console bool      // human-readable console encoding instead of JSON
	NoColor bool      // disables colour in console encoding
}

// New returns a logger configured by cfg.
func New(cfg Config) zerolog.Logger {
	level := zerolog.WarnLevel
	raw := cfg.Level
	if raw == "" {
		raw = os.Getenv("LOG_LEVEL")
	}
	if raw != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			level = parsed
		}
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, NoColor: cfg.NoColor, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}
