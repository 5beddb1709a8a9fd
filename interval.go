package throttle

import (
	"fmt"
	"time"
)

// Interval is the budget a tracker enforces: at most Limit admissions per
// window of Duration. A Limit of zero is valid and admits nothing.
type Interval struct {
	Duration time.Duration
	Limit    int
}

// Validate checks the interval configuration. It returns an error wrapping
// ErrInvalidDuration or ErrInvalidLimit; it never adjusts the values.
func (iv Interval) Validate() error {
	if iv.Duration <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidDuration, iv.Duration)
	}
	if iv.Limit < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidLimit, iv.Limit)
	}
	return nil
}

// String formats the interval as "limit / duration", e.g. "10 / 2s".
func (iv Interval) String() string {
	return fmt.Sprintf("%d / %s", iv.Limit, iv.Duration)
}
