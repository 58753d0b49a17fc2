package funchain

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for chains.
const (
	// Metrics.
	ChainProcessedTotal = metricz.Key("chain.processed.total")
	ChainSuccessesTotal = metricz.Key("chain.successes.total")
	ChainFailuresTotal  = metricz.Key("chain.failures.total")
	ChainStepsCompleted = metricz.Key("chain.steps.completed")
	ChainStepsTotal     = metricz.Key("chain.steps.total")
	ChainDurationMs     = metricz.Key("chain.duration.ms")

	// Spans.
	ChainInvokeSpan = tracez.Key("chain.invoke")
	ChainStepSpan   = tracez.Key("chain.step")

	// Tags.
	ChainTagStepCount  = tracez.Tag("chain.step_count")
	ChainTagStepNumber = tracez.Tag("chain.step_number")
	ChainTagNodeName   = tracez.Tag("chain.node_name")
	ChainTagSuccess    = tracez.Tag("chain.success")
	ChainTagSource     = tracez.Tag("chain.source")

	// Hook event keys.
	ChainEventStepComplete = hookz.Key("chain.step_complete")
	ChainEventHalted       = hookz.Key("chain.halted")
	ChainEventComplete     = hookz.Key("chain.complete")
)

// ChainEvent represents a chain execution event.
// This is emitted via hookz as individual steps complete, when a failure
// halts the chain, and when all steps finish, providing visibility into
// pipeline progress without touching the data path.
type ChainEvent struct {
	Name           Name          // Chain name
	StepName       Name          // Name of the step node
	StepNumber     int           // Current step number (1-based)
	TotalSteps     int           // Total number of steps
	Success        bool          // Whether the step (or chain) succeeded
	Skipped        bool          // Whether an Optional step's failure was skipped
	Source         string        // Dot-joined source of the recorded failure
	Err            error         // The contained error, if any
	Duration       time.Duration // How long this step took
	CompletedSteps int           // Steps completed (halted/complete events)
	TotalDuration  time.Duration // Total chain time (halted/complete events)
	Timestamp      time.Time     // When the event occurred
}

// Chain is the composite node: an immutable, ordered sequence of nodes
// executed left to right, each output feeding the next input. When a child
// fails, the failure has already been recorded under the chain's label
// namespace; the chain then halts and substitutes its configured default,
// or skips the child if it was marked Optional.
//
// Chains are built with New or MustNew and never change afterward. The
// configuration methods (Named, WithDefault, Optional, Required, WithClock)
// return modified copies sharing the original's observability components.
// Because a chain holds no per-call state, a single chain may be invoked
// concurrently from any number of goroutines.
//
// Chains implement Node, so they nest: composing chains of chains yields
// the same results as one flat chain, with failure sources differing only
// by the nested chain's own label segment.
//
// # Observability
//
// Chain provides comprehensive observability through metrics, tracing, and
// events:
//
// Metrics:
//   - chain.processed.total: Counter of chain invocations
//   - chain.successes.total: Counter of invocations with no halt
//   - chain.failures.total: Counter of halted invocations
//   - chain.steps.completed: Gauge of steps completed in the last run
//   - chain.steps.total: Gauge of total steps
//   - chain.duration.ms: Gauge of total invocation duration
//
// Traces:
//   - chain.invoke: Parent span for the entire invocation
//   - chain.step: Child span for each individual step
//
// Events (via hooks):
//   - chain.step_complete: Fired as each step completes, success or not
//   - chain.halted: Fired when a failure halts the chain
//   - chain.complete: Fired when every step has run
//
// Example with hooks:
//
//	calculate := funchain.MustNew[int]("calculate", increment, double, increment)
//
//	calculate.OnHalted(func(ctx context.Context, event funchain.ChainEvent) error {
//	    log.Printf("halted at %s after %d steps: %v",
//	        event.Source, event.CompletedSteps, event.Err)
//	    return nil
//	})
type Chain[T any] struct {
	name     Name
	nodes    []Node[T]
	fallback T
	severity Severity
	clock    clockz.Clock
	metrics  *metricz.Registry
	tracer   *tracez.Tracer
	hooks    *hookz.Hooks[ChainEvent]
}

// New builds a chain from steps. Each argument may be:
//
//   - any Node[T], including Step[T], *Chain[T], and *ForEach[E] when
//     T is []E
//   - func(context.Context, T) (T, error)
//   - func(context.Context, T) T
//   - func(T) (T, error)
//   - func(T) T
//
// Raw functions are wrapped into Steps named after the function itself, so
// a failing step built from func increment reports under ".increment".
// Anonymous functions get runtime-assigned names like "func1"; prefer the
// adapter functions with explicit names for anything a collector will see.
//
// New returns *InvalidStepError when an argument fits none of the shapes
// above, and ErrEmptyChain when called with no steps. These are the only
// errors funchain ever propagates; everything at run time is contained.
//
// The name becomes the root segment of every failure source this chain
// records. Names may be hierarchical ("app.orders.normalize"); Register
// validates each dot-separated segment for chains published to the
// registry.
//
// Example:
//
//	calculate, err := funchain.New[int]("calculate",
//	    increment,
//	    funchain.Transform("double", func(_ context.Context, n int) int { return n * 2 }),
//	    increment,
//	)
func New[T any](name Name, steps ...any) (*Chain[T], error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("chain %q: %w", name, ErrEmptyChain)
	}
	nodes := make([]Node[T], len(steps))
	for i, step := range steps {
		node, err := wrapStep[T](name, i, step)
		if err != nil {
			return nil, err
		}
		nodes[i] = node
	}

	// Initialize observability
	metrics := metricz.New()
	metrics.Counter(ChainProcessedTotal)
	metrics.Counter(ChainSuccessesTotal)
	metrics.Counter(ChainFailuresTotal)
	metrics.Gauge(ChainStepsCompleted)
	metrics.Gauge(ChainStepsTotal)
	metrics.Gauge(ChainDurationMs)

	return &Chain[T]{
		name:    name,
		nodes:   nodes,
		metrics: metrics,
		tracer:  tracez.New(),
		hooks:   hookz.New[ChainEvent](),
	}, nil
}

// MustNew is New panicking on error. Use it for compositions fixed at
// compile time, where an invalid step is a bug rather than an input.
func MustNew[T any](name Name, steps ...any) *Chain[T] {
	chain, err := New[T](name, steps...)
	if err != nil {
		panic(err)
	}
	return chain
}

// wrapStep converts one builder argument into a node.
func wrapStep[T any](chain Name, position int, value any) (Node[T], error) {
	switch v := value.(type) {
	case nil:
		return nil, &InvalidStepError{Chain: chain, Position: position, Value: value}
	case Node[T]:
		return v, nil
	case func(context.Context, T) (T, error):
		return Step[T]{name: funcName(v), fn: v}, nil
	case func(context.Context, T) T:
		return Step[T]{name: funcName(v), fn: func(ctx context.Context, in T) (T, error) {
			return v(ctx, in), nil
		}}, nil
	case func(T) (T, error):
		return Step[T]{name: funcName(v), fn: func(_ context.Context, in T) (T, error) {
			return v(in)
		}}, nil
	case func(T) T:
		return Step[T]{name: funcName(v), fn: func(_ context.Context, in T) (T, error) {
			return v(in), nil
		}}, nil
	default:
		return nil, &InvalidStepError{Chain: chain, Position: position, Value: value}
	}
}

// funcName infers a step label from a wrapped function's symbol name.
// "github.com/acme/pkg.increment" becomes "increment"; method values lose
// their "-fm" suffix; closures keep their runtime names like "func1".
func funcName(fn any) Name {
	rf := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if rf == nil {
		return "func"
	}
	name := rf.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}

// Invoke implements Node. It runs every child in construction order,
// feeding each output into the next input. The reporter arrives scoped to
// this chain's label; each child is invoked under a further scope carrying
// its own name, which is how failure sources grow one dot per nesting
// level. A panic escaping a foreign child is contained here under the
// chain's own label.
func (c *Chain[T]) Invoke(ctx context.Context, input T, rep *Reporter) (result T, failed *Failure) {
	start := rep.Now()

	// Handle nil context
	if ctx == nil {
		ctx = context.Background()
	}

	c.metrics.Counter(ChainProcessedTotal).Inc()
	c.metrics.Gauge(ChainStepsTotal).Set(float64(len(c.nodes)))

	ctx, span := c.tracer.StartSpan(ctx, ChainInvokeSpan)
	span.SetTag(ChainTagStepCount, strconv.Itoa(len(c.nodes)))
	defer func() {
		c.metrics.Gauge(ChainDurationMs).Set(float64(rep.Since(start).Milliseconds()))
		if failed == nil {
			span.SetTag(ChainTagSuccess, "true")
			c.metrics.Counter(ChainSuccessesTotal).Inc()
		} else {
			span.SetTag(ChainTagSuccess, "false")
			span.SetTag(ChainTagSource, failed.Source())
			c.metrics.Counter(ChainFailuresTotal).Inc()
		}
		span.Finish()
	}()
	defer containPanic(ctx, rep, input, c.fallback, c.severity, start, &result, &failed)

	result = input
	completed := 0

	for i, node := range c.nodes {
		stepCtx, stepSpan := c.tracer.StartSpan(ctx, ChainStepSpan)
		stepSpan.SetTag(ChainTagStepNumber, strconv.Itoa(i+1))
		stepSpan.SetTag(ChainTagNodeName, node.Name())

		stepStart := rep.Now()
		out, stepFailed := node.Invoke(stepCtx, result, rep.Scope(node.Name()))
		stepDuration := rep.Since(stepStart)
		stepSpan.Finish()

		if stepFailed == nil {
			result = out
			completed++
			c.metrics.Gauge(ChainStepsCompleted).Set(float64(completed))

			_ = c.hooks.Emit(ctx, ChainEventStepComplete, ChainEvent{ //nolint:errcheck
				Name:       c.name,
				StepName:   node.Name(),
				StepNumber: i + 1,
				TotalSteps: len(c.nodes),
				Success:    true,
				Duration:   stepDuration,
				Timestamp:  rep.Now(),
			})
			continue
		}

		skipped := nodeSeverity(node) == Optional
		_ = c.hooks.Emit(ctx, ChainEventStepComplete, ChainEvent{ //nolint:errcheck
			Name:       c.name,
			StepName:   node.Name(),
			StepNumber: i + 1,
			TotalSteps: len(c.nodes),
			Success:    false,
			Skipped:    skipped,
			Source:     stepFailed.Source(),
			Err:        stepFailed.Err,
			Duration:   stepDuration,
			Timestamp:  rep.Now(),
		})

		if skipped {
			// Recorded and skipped: the cursor keeps the value the
			// failing child received.
			continue
		}

		_ = c.hooks.Emit(ctx, ChainEventHalted, ChainEvent{ //nolint:errcheck
			Name:           c.name,
			StepName:       node.Name(),
			StepNumber:     i + 1,
			TotalSteps:     len(c.nodes),
			Source:         stepFailed.Source(),
			Err:            stepFailed.Err,
			CompletedSteps: completed,
			TotalDuration:  rep.Since(start),
			Timestamp:      rep.Now(),
		})
		return c.fallback, stepFailed
	}

	_ = c.hooks.Emit(ctx, ChainEventComplete, ChainEvent{ //nolint:errcheck
		Name:           c.name,
		TotalSteps:     len(c.nodes),
		CompletedSteps: completed,
		Success:        true,
		TotalDuration:  rep.Since(start),
		Timestamp:      rep.Now(),
	})
	return result, nil
}

// Run invokes the chain and collapses the outcome to a plain value. On
// failure the collector holds the record and Run returns the chain's
// configured default (the zero value unless WithDefault was used). A nil
// collector discards failures, making a failed run indistinguishable from
// a run that legitimately produced the default.
func (c *Chain[T]) Run(ctx context.Context, input T, collector Collector) T {
	rep := NewReporter(collector, c.clock).Scope(c.name)
	out, _ := c.Invoke(ctx, input, rep)
	return out
}

// Name returns the chain's label, the root segment of its failure sources.
func (c *Chain[T]) Name() Name {
	return c.name
}

// Severity returns how an enclosing chain treats this chain's failures.
func (c *Chain[T]) Severity() Severity {
	return c.severity
}

// Len returns the number of direct child nodes.
func (c *Chain[T]) Len() int {
	return len(c.nodes)
}

// Names returns the labels of the direct child nodes in execution order.
func (c *Chain[T]) Names() []Name {
	names := make([]Name, len(c.nodes))
	for i, node := range c.nodes {
		names[i] = node.Name()
	}
	return names
}

// Named returns a copy of the chain with a different label. The copy
// shares the original's child nodes and observability components.
func (c *Chain[T]) Named(name Name) *Chain[T] {
	d := *c
	d.name = name
	return &d
}

// WithDefault returns a copy of the chain that substitutes value when it
// halts, instead of the zero value.
func (c *Chain[T]) WithDefault(value T) *Chain[T] {
	d := *c
	d.fallback = value
	return &d
}

// Optional returns a copy of the chain whose failures are recorded and
// skipped by an enclosing chain.
func (c *Chain[T]) Optional() *Chain[T] {
	d := *c
	d.severity = Optional
	return &d
}

// Required returns a copy of the chain whose failures abort tolerant
// contexts such as ForEach in addition to halting.
func (c *Chain[T]) Required() *Chain[T] {
	d := *c
	d.severity = Required
	return &d
}

// WithClock returns a copy of the chain using a custom clock for failure
// timestamps, durations, and event stamps. Defaults to the real clock.
func (c *Chain[T]) WithClock(clock clockz.Clock) *Chain[T] {
	d := *c
	d.clock = clock
	return &d
}

// Metrics returns the metrics registry for this chain.
func (c *Chain[T]) Metrics() *metricz.Registry {
	return c.metrics
}

// Tracer returns the tracer for this chain.
func (c *Chain[T]) Tracer() *tracez.Tracer {
	return c.tracer
}

// Close gracefully shuts down observability components. Copies made with
// the configuration methods share them, so closing one closes all.
func (c *Chain[T]) Close() error {
	if c.tracer != nil {
		c.tracer.Close()
	}
	c.hooks.Close()
	return nil
}

// OnStepComplete registers a handler called asynchronously each time a
// step finishes, whether it succeeds, fails, or is skipped.
func (c *Chain[T]) OnStepComplete(handler func(context.Context, ChainEvent) error) error {
	_, err := c.hooks.Hook(ChainEventStepComplete, handler)
	return err
}

// OnHalted registers a handler called asynchronously when a failure halts
// the chain. The event carries the failure source and the step count
// reached before the halt.
func (c *Chain[T]) OnHalted(handler func(context.Context, ChainEvent) error) error {
	_, err := c.hooks.Hook(ChainEventHalted, handler)
	return err
}

// OnComplete registers a handler called asynchronously after every step
// has run without a halt.
func (c *Chain[T]) OnComplete(handler func(context.Context, ChainEvent) error) error {
	_, err := c.hooks.Hook(ChainEventComplete, handler)
	return err
}
