// Package clock provides an injectable time source so that idle timers,
// message expiry and draft staleness can be driven deterministically in tests.
package clock

import "time"

// Timer is a handle to a pending AfterFunc call.
type Timer interface {
	// Stop prevents the function from firing. Returns false if it already fired or was stopped.
	Stop() bool
}

// Clock abstracts time.Now and time.AfterFunc
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is the wall clock
type Real struct{}

// New returns the wall clock
func New() Clock {
	return Real{}
}

// Now returns the current local time
func (Real) Now() time.Time {
	return time.Now()
}

// AfterFunc waits for the duration to elapse and then calls f in its own goroutine
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
