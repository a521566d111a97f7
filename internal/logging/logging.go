// Package logging provides the root zerolog logger every module derives
// its own component logger from.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console-friendly root logger when pretty is true (local
// dev), otherwise structured JSON (suitable for a self-hosted box whose
// logs get scraped by something else).
func New(pretty bool, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	var out zerolog.Logger
	if pretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		out = zerolog.New(os.Stderr)
	}
	return out.Level(level).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the owning module's name,
// mirroring how the teacher prefixes log.Printf calls with "[module] ".
func Component(root zerolog.Logger, name string) zerolog.Logger {
	return root.With().Str("component", name).Logger()
}
