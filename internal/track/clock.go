package track

import "time"

// Timer is a cancellable scheduled callback handle.
type Timer interface {
	// Stop cancels the callback if it has not fired yet and reports whether
	// the cancellation won the race.
	Stop() bool
}

// Clock abstracts wall-clock reads and timer scheduling so trackers can be
// driven by a manual clock in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

type systemClock struct{}

type systemTimer struct {
	t *time.Timer
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return systemTimer{t: time.AfterFunc(d, fn)}
}

func (t systemTimer) Stop() bool {
	return t.t.Stop()
}

// SystemClock returns the real wall clock.
func SystemClock() Clock {
	return systemClock{}
}
