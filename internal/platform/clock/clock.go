package clock

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Clock abstracts time to keep usecases deterministic in tests.
type Clock interface {
	Now() time.Time
}

// Ticking is the part of benbjohnson/clock the background flush loop needs.
type Ticking interface {
	Clock
	Ticker(d time.Duration) *clock.Ticker
}

// System returns the wall clock. It satisfies both Clock and Ticking.
func System() clock.Clock {
	return clock.New()
}
