// Package clock provides the time source used wherever "now" or "today"
// matters, so that business logic never reads the wall clock directly.
// Tickers come from the same source, which lets tests drive periodic work
// with a fake clock.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock returns the current time and creates timers and tickers.
type Clock = clockwork.Clock

// Fake is a manually driven Clock for tests. It is safe for concurrent use.
type Fake = clockwork.FakeClock

// system reports the wall clock in a fixed location.
type system struct {
	clockwork.Clock
	loc *time.Location
}

func (s system) Now() time.Time { return s.Clock.Now().In(s.loc) }

// System returns a Clock reading the wall clock in loc. A nil loc means time.Local.
func System(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}

	return system{Clock: clockwork.NewRealClock(), loc: loc}
}

// NewFake returns a Fake clock set to now.
func NewFake(now time.Time) *Fake {
	return clockwork.NewFakeClockAt(now)
}
