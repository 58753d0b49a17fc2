package funchain

import (
	"context"

	"github.com/zoobzio/clockz"
)

// Step is the leaf node: one named transformation with contained failure.
// Steps are immutable values created by the adapter functions (Transform,
// Apply, Effect, Static) or by New when it wraps raw function arguments.
// The configuration methods (Named, Fallback, Optional, Required,
// WithClock) return modified copies, so a step can be declared once and
// reused across chains with different settings.
//
// The fn field is intentionally private so steps are only created through
// the adapters, keeping error handling and path reporting consistent.
type Step[T any] struct {
	fn       func(context.Context, T) (T, error)
	name     Name
	fallback T
	severity Severity
	clock    clockz.Clock
}

// Invoke implements Node. It calls the wrapped function with input; panics
// are contained. On success the result flows through untouched. On failure
// the step records exactly one Failure at the reporter's current scope and
// returns its fallback value together with the Failure.
func (s Step[T]) Invoke(ctx context.Context, input T, rep *Reporter) (result T, failed *Failure) {
	start := rep.Now()
	defer containPanic(ctx, rep, input, s.fallback, s.severity, start, &result, &failed)

	out, err := s.fn(ctx, input)
	if err != nil {
		return s.fallback, rep.Fail(ctx, err, input, s.severity, start)
	}
	return out, nil
}

// Run invokes the step on its own, outside any chain. Failures are
// recorded to collector under the step's bare name and replaced by the
// step's fallback value. A nil collector discards failures.
func (s Step[T]) Run(ctx context.Context, input T, collector Collector) T {
	rep := NewReporter(collector, s.clock).Scope(s.name)
	out, _ := s.Invoke(ctx, input, rep)
	return out
}

// Name returns the step's label.
func (s Step[T]) Name() Name {
	return s.name
}

// Severity returns how an enclosing chain treats this step's failures.
func (s Step[T]) Severity() Severity {
	return s.severity
}

// Named returns a copy of the step with a different label.
func (s Step[T]) Named(name Name) Step[T] {
	s.name = name
	return s
}

// Fallback returns a copy of the step that substitutes value when it
// fails, instead of the zero value.
func (s Step[T]) Fallback(value T) Step[T] {
	s.fallback = value
	return s
}

// Optional returns a copy of the step whose failures are recorded and
// skipped: the enclosing chain continues with the value this step
// received. Pairs well with Effect for side effects that must not halt.
func (s Step[T]) Optional() Step[T] {
	s.severity = Optional
	return s
}

// Required returns a copy of the step whose failures abort tolerant
// contexts such as ForEach in addition to halting the chain.
func (s Step[T]) Required() Step[T] {
	s.severity = Required
	return s
}

// WithClock returns a copy of the step using a custom clock for failure
// timestamps when run standalone. Inside a chain the chain's clock wins.
func (s Step[T]) WithClock(clock clockz.Clock) Step[T] {
	s.clock = clock
	return s
}
