package throttle

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo_Admitted(t *testing.T) {
	tracker := MustTracker(time.Minute, 1)
	ran := false

	err := Do(tracker, func() error {
		ran = true
		return nil
	})

	if err != nil {
		t.Errorf("Admitted call should return nil, got %v", err)
	}
	if !ran {
		t.Error("Admitted call should run the function")
	}
}

func TestDo_Denied(t *testing.T) {
	tracker := MustTracker(time.Minute, 1)
	tracker.Allow()

	ran := false
	err := Do(tracker, func() error {
		ran = true
		return nil
	})

	if !errors.Is(err, ErrThrottled) {
		t.Errorf("Denied call should return ErrThrottled, got %v", err)
	}
	if ran {
		t.Error("Denied call should not run the function")
	}
}

func TestDo_ErrorPassthrough(t *testing.T) {
	tracker := MustTracker(time.Minute, 1)
	boom := errors.New("boom")

	err := Do(tracker, func() error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("Function error should pass through unchanged, got %v", err)
	}
}

func TestWrap_SharedBudget(t *testing.T) {
	tracker := MustTracker(time.Minute, 2)

	first := Wrap(tracker, func() error { return nil })
	second := Wrap(tracker, func() error { return nil })

	if err := first(); err != nil {
		t.Errorf("First call should be admitted, got %v", err)
	}
	if err := second(); err != nil {
		t.Errorf("Second call should be admitted, got %v", err)
	}

	// Both wrappers draw from the same budget
	if err := first(); !errors.Is(err, ErrThrottled) {
		t.Errorf("Third call should be throttled, got %v", err)
	}
	if err := second(); !errors.Is(err, ErrThrottled) {
		t.Errorf("Third call should be throttled through either wrapper, got %v", err)
	}
}

func TestDoContext_Admitted(t *testing.T) {
	tracker := MustTracker(time.Minute, 1)

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "value")

	err := DoContext(ctx, tracker, func(ctx context.Context) error {
		if ctx.Value(ctxKey{}) != "value" {
			t.Error("Context should pass through to the function")
		}
		return nil
	})
	if err != nil {
		t.Errorf("Admitted call should return nil, got %v", err)
	}
}

func TestDoContext_CancelledBeforeAdmission(t *testing.T) {
	tracker := MustTracker(time.Minute, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := DoContext(ctx, tracker, func(context.Context) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Cancelled context should surface ctx.Err(), got %v", err)
	}

	// The cancelled call must not consume a slot
	if got := tracker.Count(); got != 0 {
		t.Errorf("Cancelled call should not consume, got count %d", got)
	}
	if !tracker.Allow() {
		t.Error("Budget should be untouched after a cancelled call")
	}
}

func TestDoContext_Denied(t *testing.T) {
	tracker := MustTracker(time.Minute, 0)

	err := DoContext(context.Background(), tracker, func(context.Context) error { return nil })
	if !errors.Is(err, ErrThrottled) {
		t.Errorf("Denied call should return ErrThrottled, got %v", err)
	}
}

func TestWrapContext(t *testing.T) {
	tracker := MustTracker(time.Minute, 1)

	calls := 0
	fn := WrapContext(tracker, func(context.Context) error {
		calls++
		return nil
	})

	if err := fn(context.Background()); err != nil {
		t.Errorf("First call should be admitted, got %v", err)
	}
	if err := fn(context.Background()); !errors.Is(err, ErrThrottled) {
		t.Errorf("Second call should be throttled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected exactly 1 invocation, got %d", calls)
	}
}

func TestAdmitterFunc(t *testing.T) {
	closed := AdmitterFunc(func() bool { return false })

	if closed.Allow() {
		t.Error("AdmitterFunc should delegate to the function")
	}
	if err := Do(closed, func() error { return nil }); !errors.Is(err, ErrThrottled) {
		t.Errorf("Expected ErrThrottled from a closed admitter, got %v", err)
	}
}
