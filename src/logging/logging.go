// Package logging configures the zerolog logger the lifecycle engine emits
// its event stream through.
package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// New builds a logger writing to w. Level must be a zerolog level name
// (debug, info, warn, error); unknown values fall back to info. When json is
// false the human-oriented console writer is used.
func New(w io.Writer, level string, json bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if !json {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
