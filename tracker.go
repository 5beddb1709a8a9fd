package throttle

import (
	"fmt"
	"sync"
	"time"
)

// DefaultSlack is the execution slack applied when WithSlack is not given.
// The slack is added to the clock reading before every window test, so a
// call that will reach its target a few milliseconds after admission is
// charged to the window it will actually execute in.
const DefaultSlack = 10 * time.Millisecond

// Tracker enforces a fixed window budget: at most Limit admissions per
// window of Duration. Windows are anchored at the submit time of the call
// that opens them, not at multiples of the duration, and expire with a hard
// reset. Denied demand is dropped, never carried into the next window.
type Tracker struct {
	interval Interval
	slack    time.Duration
	now      func() time.Time

	mu          sync.Mutex
	windowStart time.Time
	windowEnd   time.Time
	count       int
}

// TrackerOption configures a Tracker at construction time.
type TrackerOption func(*Tracker)

// WithSlack sets the execution slack added to the clock before window
// tests. Negative values are rejected by NewTracker.
func WithSlack(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		t.slack = d
	}
}

// WithClock sets the time source. Nil restores time.Now. Intended for
// tests; production trackers use the real clock.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates a tracker admitting at most limit calls per window
// duration. Misconfiguration is reported, never clamped: the error wraps
// ErrInvalidDuration, ErrInvalidLimit or ErrInvalidSlack.
func NewTracker(duration time.Duration, limit int, opts ...TrackerOption) (*Tracker, error) {
	t := &Tracker{
		interval: Interval{Duration: duration, Limit: limit},
		slack:    DefaultSlack,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	if err := t.interval.Validate(); err != nil {
		return nil, err
	}
	if t.slack < 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidSlack, t.slack)
	}
	if t.now == nil {
		t.now = time.Now
	}

	return t, nil
}

// MustTracker is like NewTracker but panics on invalid configuration.
// Useful for package-level trackers with constant configuration.
func MustTracker(duration time.Duration, limit int, opts ...TrackerOption) *Tracker {
	t, err := NewTracker(duration, limit, opts...)
	if err != nil {
		panic("throttle: " + err.Error())
	}
	return t
}

// Allow reports whether one more call may proceed and consumes a slot if
// so. The decision uses the submit time, the clock reading plus the
// execution slack. When the submit time falls past the current window the
// tracker hard-resets: a fresh window opens at the submit time itself and
// only then is the call counted, so the first call into a new window is
// admitted whenever the limit is at least one.
//
// Allow never blocks. A denial is final; the caller decides whether to
// retry later.
func (t *Tracker) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	submit := t.now().Add(t.slack)

	switch {
	case t.windowEnd.IsZero() || submit.After(t.windowEnd):
		// First call, or the previous window has expired. The new
		// window starts at the submit time, not at a truncated
		// boundary, so idle gaps do not shift future windows.
		t.windowStart = submit
		t.windowEnd = submit.Add(t.interval.Duration)
		t.count = 0
	case submit.Before(t.windowStart):
		// Clock went backwards past the window start. Deny instead of
		// reanchoring the window into the past.
		return false
	}

	if t.count < t.interval.Limit {
		t.count++
		return true
	}
	return false
}

// Count returns the admissions recorded in the current window. The value
// is a snapshot; reading it does not open or roll a window.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Remaining returns how many admissions the current window still has.
func (t *Tracker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval.Limit - t.count
}

// Window returns the bounds of the current window. Both are zero when no
// window has been opened yet, or after Reset.
func (t *Tracker) Window() (start, end time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.windowStart, t.windowEnd
}

// Interval returns the configured budget.
func (t *Tracker) Interval() Interval {
	return t.interval
}

// Slack returns the configured execution slack.
func (t *Tracker) Slack() time.Duration {
	return t.slack
}

// Reset drops the current window. The next Allow opens a fresh window at
// its own submit time.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.windowStart = time.Time{}
	t.windowEnd = time.Time{}
	t.count = 0
}

// String describes the tracker by its budget, e.g. "10 / 2s".
func (t *Tracker) String() string {
	return t.interval.String()
}
