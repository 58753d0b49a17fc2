// Package funchain composes unary transformation steps into callable
// pipelines that contain their own failures.
//
// # Overview
//
// funchain is built for data flows where one bad value must never take the
// whole process down. A chain applies its steps to a value left to right,
// feeding each output into the next input. When a step returns an error or
// panics, the chain catches it at the step boundary, labels it with the
// dot-joined path from the root chain down to the failing step, hands it to
// a caller-supplied collector, and substitutes a configured default so the
// caller always gets a usable value back.
//
// # Core Concepts
//
// The library is built around a single, uniform interface:
//
//	type Node[T any] interface {
//	    Invoke(ctx context.Context, input T, rep *Reporter) (T, *Failure)
//	    Name() Name
//	}
//
// Key components:
//   - Steps: individual transformations created with adapter functions
//     (Transform, Apply, Effect, Static) or wrapped automatically by New
//   - Chains: ordered sequences of nodes built with New or MustNew
//   - ForEach: lifts a node over a slice, dropping elements that fail
//   - Collectors: opaque sinks that receive every contained Failure
//
// Design philosophy:
//   - Nodes are immutable; configuration methods return modified copies
//   - Execution is strictly sequential, in construction order
//   - Failures never propagate out of Run; they are recorded and replaced
//   - The only error a caller must handle is *InvalidStepError at build time
//
// # Quick Start
//
//	increment := func(n int) int { return n + 1 }
//	double := func(n int) int { return n * 2 }
//
//	calculate := funchain.MustNew[int]("calculate", increment, double, increment)
//
//	collector := funchain.NewMemoryCollector()
//	result := calculate.Run(context.Background(), 5, collector)
//	// result: 13, collector empty
//
// When a step fails, the chain halts and the collector receives exactly one
// Failure whose Source reads like a file path through the composition:
//
//	reciprocal := funchain.Apply("reciprocal", func(_ context.Context, n float64) (float64, error) {
//	    if n == 0 {
//	        return 0, errors.New("division by zero")
//	    }
//	    return 1 / n, nil
//	})
//	pipeline := funchain.MustNew[float64]("pipeline", reciprocal)
//
//	// On failure: failure.Source() == "pipeline.reciprocal"
//	// failure.Details["input"] holds the value the step received.
//
// # Failure Model
//
// Failures carry enough context to debug without a stack trace:
//
//	type Failure struct {
//	    ID        uuid.UUID      // record identity
//	    Path      []Name         // ["calculate", "increment"]
//	    Err       error          // the contained error
//	    Details   map[string]any // at least {"input": <failing input>}
//	    Severity  Severity       // Normal, Optional or Required
//	    Timestamp time.Time
//	    Duration  time.Duration
//	    Timeout   bool
//	    Canceled  bool
//	}
//
// Severity shapes what happens after the record is written. Normal steps
// halt their chain. Optional steps are skipped and the previous value flows
// on. Required steps additionally abort tolerant contexts such as ForEach.
//
// # Observability
//
// Chains and ForEach nodes expose metrics registries, tracers, and typed
// hook events. Collectors can fan out through hooks as well:
//
//	chain.OnHalted(func(ctx context.Context, e funchain.ChainEvent) error {
//	    log.Printf("halted at %s: %v", e.Source, e.Err)
//	    return nil
//	})
//
// All hook delivery is asynchronous and never blocks execution.
//
// # Best Practices
//
//  1. Name chains and steps the way you want failure sources to read
//  2. Pass a collector in production; nil silently discards failures
//  3. Configure defaults on chains whose zero value is not a safe output
//  4. Use Effect(...).Optional() for side effects that must not halt
//  5. Keep step functions pure; reach for ForEach instead of in-step loops
//  6. Test steps in isolation with Run before composing them
package funchain
