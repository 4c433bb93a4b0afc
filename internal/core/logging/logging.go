// Package logging centralizes zerolog setup so every component logs with
// the same format and level.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a component-scoped logger. Level is read from SKHOOT_LOG_LEVEL
// (debug|info|warn|error), defaulting to info. Output is pretty-printed when
// stderr is a terminal, otherwise plain JSON lines.
func New(component string) zerolog.Logger {
	level := zerolog.InfoLevel
	if v := strings.ToLower(os.Getenv("SKHOOT_LOG_LEVEL")); v != "" {
		if parsed, err := zerolog.ParseLevel(v); err == nil {
			level = parsed
		}
	}

	var writer io.Writer = os.Stderr
	if info, err := os.Stderr.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
		writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}

	return zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
