package metrics

import (
	throttle "github.com/KARTIKrocks/go-throttle"
)

// Compile-time interface compliance check.
var _ throttle.Admitter = (*Instrumented)(nil)

// Instrumented wraps an admitter and records every decision. It is itself
// an Admitter, so it drops into the wrapping helpers and middleware
// unchanged.
type Instrumented struct {
	admitter  throttle.Admitter
	name      string
	collector *Collector
}

// NewInstrumented creates an instrumented admitter using the global collector.
func NewInstrumented(a throttle.Admitter, name string) *Instrumented {
	return NewInstrumentedWithCollector(a, name, globalCollector)
}

// NewInstrumentedWithCollector creates an instrumented admitter with a custom collector.
func NewInstrumentedWithCollector(a throttle.Admitter, name string, collector *Collector) *Instrumented {
	return &Instrumented{
		admitter:  a,
		name:      name,
		collector: collector,
	}
}

// Allow delegates the admission decision and records the outcome.
func (i *Instrumented) Allow() bool {
	allowed := i.admitter.Allow()
	if allowed {
		i.collector.RecordAdmitted(i.name)
	} else {
		i.collector.RecordDenied(i.name)
	}
	return allowed
}

// Unwrap returns the wrapped admitter. The HTTP middleware uses it to
// reach the underlying tracker for advisory headers.
func (i *Instrumented) Unwrap() throttle.Admitter {
	return i.admitter
}

// GetStats returns statistics for this admitter.
func (i *Instrumented) GetStats() Stats {
	return i.collector.GetStats(i.name)
}
