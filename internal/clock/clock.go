// Package clock supplies the injected time source for the tracking core.
package clock

import "time"

// Clock returns the current time. It is injected everywhere the core
// stamps timestamps so tests can pin time.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }
