package autorecord

import "time"

// Clock abstracts timer creation so the delayed-stop countdown can be
// driven deterministically in tests.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// SystemClock is the real wall clock.
var SystemClock Clock = systemClock{}
