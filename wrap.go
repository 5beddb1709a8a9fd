package throttle

import "context"

// Do runs fn if a admits the call. On denial it returns ErrThrottled and
// fn is not invoked; on admission fn's error is returned unchanged. Do
// never waits for capacity.
func Do(a Admitter, fn func() error) error {
	if !a.Allow() {
		return ErrThrottled
	}
	return fn()
}

// Wrap returns fn guarded by a. Every invocation of the returned function
// goes through one admission check; wrapping several functions with the
// same admitter makes them share its budget.
func Wrap(a Admitter, fn func() error) func() error {
	return func() error {
		return Do(a, fn)
	}
}

// DoContext is Do for context-threaded call sites. A context already
// cancelled before the admission check is surfaced as ctx.Err() without
// consuming a slot. Admission itself never blocks on the context.
func DoContext(ctx context.Context, a Admitter, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !a.Allow() {
		return ErrThrottled
	}
	return fn(ctx)
}

// WrapContext returns fn guarded by a, context form.
func WrapContext(a Admitter, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return DoContext(ctx, a, fn)
	}
}
