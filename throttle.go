package throttle

import (
	"errors"
	"sync"
)

// Common errors.
var (
	// ErrThrottled is returned by the wrapping helpers when the admitter
	// denies a call.
	ErrThrottled = errors.New("request throttled due to exceeding limit")

	// Configuration errors returned by NewTracker and Interval.Validate.
	// They are construction-time only; Allow never fails.
	ErrInvalidDuration = errors.New("interval duration must be positive")
	ErrInvalidLimit    = errors.New("interval limit must not be negative")
	ErrInvalidSlack    = errors.New("execution slack must not be negative")
)

// Compile-time interface compliance checks.
var (
	_ Admitter = (*Tracker)(nil)
	_ Admitter = (*Multi)(nil)
)

// Admitter decides whether one more call may proceed right now. Allow
// consumes a slot when it returns true and must be safe for concurrent
// use. Tracker is the canonical implementation; anything with the same
// shape plugs into the wrapping helpers and middleware.
type Admitter interface {
	Allow() bool
}

// AdmitterFunc adapts a plain function to the Admitter interface.
type AdmitterFunc func() bool

// Allow calls f.
func (f AdmitterFunc) Allow() bool { return f() }

// Multi combines multiple admitters with AND logic. All admitters must
// admit the call for it to proceed. A mutex serializes Allow to prevent
// TOCTOU races between the individual checks.
//
// Checks run in order and stop at the first denial, so a denied call may
// still have consumed a slot from admitters earlier in the chain. List
// the strictest budget first when that matters.
type Multi struct {
	admitters []Admitter
	mu        sync.Mutex
}

// NewMulti creates a combined admitter.
func NewMulti(admitters ...Admitter) *Multi {
	return &Multi{admitters: admitters}
}

// Allow reports whether every admitter in the chain admits the call.
func (m *Multi) Allow() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.admitters {
		if !a.Allow() {
			return false
		}
	}
	return true
}
