package funchain

import (
	"context"
	"strconv"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for ForEach.
const (
	// Metrics.
	ForEachProcessedTotal = metricz.Key("foreach.processed.total")
	ForEachDroppedTotal   = metricz.Key("foreach.dropped.total")
	ForEachAbortedTotal   = metricz.Key("foreach.aborted.total")
	ForEachItemsTotal     = metricz.Key("foreach.items.total")

	// Spans.
	ForEachInvokeSpan = tracez.Key("foreach.invoke")
	ForEachItemSpan   = tracez.Key("foreach.item")

	// Tags.
	ForEachTagItemCount = tracez.Tag("foreach.item_count")
	ForEachTagItemIndex = tracez.Tag("foreach.item_index")
	ForEachTagKept      = tracez.Tag("foreach.kept")
	ForEachTagSuccess   = tracez.Tag("foreach.success")
	ForEachTagSource    = tracez.Tag("foreach.source")

	// Hook event keys.
	ForEachEventItemDropped = hookz.Key("foreach.item_dropped")
	ForEachEventComplete    = hookz.Key("foreach.complete")
)

// ForEachEvent represents a ForEach execution event.
// This is emitted via hookz when an element is dropped and when the loop
// finishes, so hosts can watch attrition rates without owning the data.
type ForEachEvent struct {
	Name      Name          // ForEach name
	Index     int           // Element index (item_dropped)
	Source    string        // Failure source for the dropped element
	Err       error         // The contained error for the dropped element
	Total     int           // Total elements (complete)
	Kept      int           // Elements that survived (complete)
	Dropped   int           // Elements dropped (complete)
	Aborted   bool          // Whether a Required failure stopped the loop
	Duration  time.Duration // Element time (item_dropped) or loop time (complete)
	Timestamp time.Time     // When the event occurred
}

// ForEach lifts a Node[T] over []T: it invokes the inner node once per
// element, in order, and collects the outputs. An element whose invocation
// fails has already been recorded by the inner node's machinery; ForEach
// drops it from the output, stamps the element index onto the record under
// Details["index"], and moves on. The loop itself never fails for a
// dropped element.
//
// Two things change that tolerance:
//
//   - If the inner node is Required, the first failing element aborts the
//     loop. ForEach then signals the failure upward, halting any enclosing
//     chain, and substitutes its configured default.
//   - A panic escaping the inner node (foreign implementations only) is
//     contained at the ForEach boundary like any node failure.
//
// ForEach adopts the inner node's label by default, so failure sources read
// straight through the loop: a chain "ingest" wrapping a ForEach over a
// chain "parse" reports element failures under "ingest.parse...". Use Named
// to give the loop its own segment instead.
//
// Empty input yields an empty, non-nil slice, as does input whose every
// element is dropped.
//
// # Observability
//
// Metrics:
//   - foreach.processed.total: Counter of loop invocations
//   - foreach.dropped.total: Counter of dropped elements
//   - foreach.aborted.total: Counter of Required aborts
//   - foreach.items.total: Gauge of elements in the last invocation
//
// Traces:
//   - foreach.invoke: Parent span for the loop
//   - foreach.item: Child span per element
//
// Events (via hooks):
//   - foreach.item_dropped: Fired for each dropped element
//   - foreach.complete: Fired when the loop finishes or aborts
type ForEach[T any] struct {
	node     Node[T]
	name     Name
	fallback []T
	severity Severity
	clock    clockz.Clock
	metrics  *metricz.Registry
	tracer   *tracez.Tracer
	hooks    *hookz.Hooks[ForEachEvent]
}

// NewForEach creates a ForEach around node, adopting the node's label.
func NewForEach[T any](node Node[T]) *ForEach[T] {
	metrics := metricz.New()
	metrics.Counter(ForEachProcessedTotal)
	metrics.Counter(ForEachDroppedTotal)
	metrics.Counter(ForEachAbortedTotal)
	metrics.Gauge(ForEachItemsTotal)

	return &ForEach[T]{
		node:    node,
		name:    node.Name(),
		metrics: metrics,
		tracer:  tracez.New(),
		hooks:   hookz.New[ForEachEvent](),
	}
}

// Invoke implements Node[[]T]. The reporter passes through to the inner
// node unscoped, with the element index attached as a failure detail, so
// the loop stays transparent in failure sources.
func (f *ForEach[T]) Invoke(ctx context.Context, input []T, rep *Reporter) (result []T, failed *Failure) {
	start := rep.Now()

	// Handle nil context
	if ctx == nil {
		ctx = context.Background()
	}

	f.metrics.Counter(ForEachProcessedTotal).Inc()
	f.metrics.Gauge(ForEachItemsTotal).Set(float64(len(input)))

	ctx, span := f.tracer.StartSpan(ctx, ForEachInvokeSpan)
	span.SetTag(ForEachTagItemCount, strconv.Itoa(len(input)))
	defer func() {
		if failed == nil {
			span.SetTag(ForEachTagSuccess, "true")
			span.SetTag(ForEachTagKept, strconv.Itoa(len(result)))
		} else {
			span.SetTag(ForEachTagSuccess, "false")
			span.SetTag(ForEachTagSource, failed.Source())
		}
		span.Finish()
	}()
	defer containPanic(ctx, rep, input, f.fallback, f.severity, start, &result, &failed)

	out := make([]T, 0, len(input))
	dropped := 0
	required := nodeSeverity(f.node) == Required

	for i, item := range input {
		itemCtx, itemSpan := f.tracer.StartSpan(ctx, ForEachItemSpan)
		itemSpan.SetTag(ForEachTagItemIndex, strconv.Itoa(i))

		itemStart := rep.Now()
		v, itemFailed := f.node.Invoke(itemCtx, item, rep.WithDetail(DetailIndex, i))
		itemDuration := rep.Since(itemStart)
		itemSpan.Finish()

		if itemFailed == nil {
			out = append(out, v)
			continue
		}

		dropped++
		f.metrics.Counter(ForEachDroppedTotal).Inc()
		_ = f.hooks.Emit(ctx, ForEachEventItemDropped, ForEachEvent{ //nolint:errcheck
			Name:      f.name,
			Index:     i,
			Source:    itemFailed.Source(),
			Err:       itemFailed.Err,
			Duration:  itemDuration,
			Timestamp: rep.Now(),
		})

		if required {
			f.metrics.Counter(ForEachAbortedTotal).Inc()
			_ = f.hooks.Emit(ctx, ForEachEventComplete, ForEachEvent{ //nolint:errcheck
				Name:      f.name,
				Total:     len(input),
				Kept:      len(out),
				Dropped:   dropped,
				Aborted:   true,
				Duration:  rep.Since(start),
				Timestamp: rep.Now(),
			})
			return f.fallback, itemFailed
		}
	}

	_ = f.hooks.Emit(ctx, ForEachEventComplete, ForEachEvent{ //nolint:errcheck
		Name:      f.name,
		Total:     len(input),
		Kept:      len(out),
		Dropped:   dropped,
		Duration:  rep.Since(start),
		Timestamp: rep.Now(),
	})
	return out, nil
}

// Run invokes the loop on its own, outside any chain. Element failures are
// recorded to collector under the loop's label; a Required abort returns
// the configured default. A nil collector discards failures.
func (f *ForEach[T]) Run(ctx context.Context, input []T, collector Collector) []T {
	rep := NewReporter(collector, f.clock).Scope(f.name)
	out, _ := f.Invoke(ctx, input, rep)
	return out
}

// Name returns the loop's label.
func (f *ForEach[T]) Name() Name {
	return f.name
}

// Severity returns how an enclosing chain treats this loop's failures.
func (f *ForEach[T]) Severity() Severity {
	return f.severity
}

// Named returns a copy of the loop with its own label instead of the inner
// node's. The copy shares the original's observability components.
func (f *ForEach[T]) Named(name Name) *ForEach[T] {
	d := *f
	d.name = name
	return &d
}

// WithDefault returns a copy of the loop that substitutes value when a
// Required failure aborts it, instead of a nil slice.
func (f *ForEach[T]) WithDefault(value []T) *ForEach[T] {
	d := *f
	d.fallback = value
	return &d
}

// Optional returns a copy of the loop whose own failures are recorded and
// skipped by an enclosing chain.
func (f *ForEach[T]) Optional() *ForEach[T] {
	d := *f
	d.severity = Optional
	return &d
}

// Required returns a copy of the loop whose own failures abort enclosing
// tolerant contexts in addition to halting.
func (f *ForEach[T]) Required() *ForEach[T] {
	d := *f
	d.severity = Required
	return &d
}

// WithClock returns a copy of the loop using a custom clock for failure
// timestamps, durations, and event stamps. Defaults to the real clock.
func (f *ForEach[T]) WithClock(clock clockz.Clock) *ForEach[T] {
	d := *f
	d.clock = clock
	return &d
}

// Metrics returns the metrics registry for this loop.
func (f *ForEach[T]) Metrics() *metricz.Registry {
	return f.metrics
}

// Tracer returns the tracer for this loop.
func (f *ForEach[T]) Tracer() *tracez.Tracer {
	return f.tracer
}

// Close gracefully shuts down observability components.
func (f *ForEach[T]) Close() error {
	if f.tracer != nil {
		f.tracer.Close()
	}
	f.hooks.Close()
	return nil
}

// OnItemDropped registers a handler called asynchronously each time an
// element is dropped from the output.
func (f *ForEach[T]) OnItemDropped(handler func(context.Context, ForEachEvent) error) error {
	_, err := f.hooks.Hook(ForEachEventItemDropped, handler)
	return err
}

// OnComplete registers a handler called asynchronously when the loop
// finishes, including Required aborts.
func (f *ForEach[T]) OnComplete(handler func(context.Context, ForEachEvent) error) error {
	_, err := f.hooks.Hook(ForEachEventComplete, handler)
	return err
}
