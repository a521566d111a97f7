package command

import (
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger { return zerolog.Nop() }

// fixedTime avoids time.Now() so results stay deterministic across runs.
func fixedTime() time.Time {
	return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
}
