package funchain

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/hookz"
)

// Collector is the sink failures are recorded into. The core treats it as
// opaque: it constructs a Failure, calls Record exactly once per contained
// failure, and moves on. Persistence, inspection, and presentation belong
// to the collector.
//
// Run accepts a nil Collector, which discards failures. That makes failure
// visibility an explicit, per-call choice rather than hidden global state;
// production callers should pass a collector and watch it.
//
// A collector shared across concurrent invocations of one chain must make
// its own Record safe for concurrent use. MemoryCollector and HookCollector
// both are.
type Collector interface {
	Record(ctx context.Context, failure *Failure)
}

// CollectorFunc adapts a plain function into a Collector.
//
//	calculate.Run(ctx, 5, funchain.CollectorFunc(func(_ context.Context, f *funchain.Failure) {
//	    log.Printf("%s: %v", f.Source(), f.Err)
//	}))
type CollectorFunc func(ctx context.Context, failure *Failure)

// Record implements Collector.
func (fn CollectorFunc) Record(ctx context.Context, failure *Failure) {
	fn(ctx, failure)
}

// MemoryCollector accumulates failures in memory. It is safe for concurrent
// use, so one instance may be shared across goroutines invoking the same
// chain. Tests lean on it heavily; long-running production callers should
// Reset it periodically or prefer HookCollector, since it grows without
// bound.
type MemoryCollector struct {
	mu       sync.RWMutex
	failures []*Failure
}

// NewMemoryCollector creates an empty MemoryCollector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

// Record implements Collector.
func (m *MemoryCollector) Record(_ context.Context, failure *Failure) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, failure)
}

// Failures returns a snapshot of the recorded failures in arrival order.
func (m *MemoryCollector) Failures() []*Failure {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot := make([]*Failure, len(m.failures))
	copy(snapshot, m.failures)
	return snapshot
}

// Len returns the number of recorded failures.
func (m *MemoryCollector) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.failures)
}

// First returns the earliest recorded failure, or nil when empty. Most
// tests assert on exactly one record; First keeps them terse.
func (m *MemoryCollector) First() *Failure {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.failures) == 0 {
		return nil
	}
	return m.failures[0]
}

// Reset discards all recorded failures.
func (m *MemoryCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = nil
}

// Hook event keys for HookCollector.
const (
	CollectorEventFailure = hookz.Key("collector.failure")
)

// CollectorEvent represents a recorded failure.
// This is emitted via hookz each time a failure reaches the collector,
// letting hosts fan records out to logging, alerting, or storage without
// the core owning any of those surfaces.
type CollectorEvent struct {
	Source    string        // Dot-joined failure source
	Path      []Name        // Root-down label path
	Err       error         // The contained error
	Input     any           // Value the failing node received
	Severity  Severity      // Severity of the failing node
	Duration  time.Duration // Time spent inside the failing node
	Timestamp time.Time     // When the failure was recorded
}

// HookCollector broadcasts every recorded failure as a hookz event. Where
// MemoryCollector stores records for later inspection, HookCollector pushes
// them out as they happen:
//
//	collector := funchain.NewHookCollector()
//	collector.OnFailure(func(_ context.Context, e funchain.CollectorEvent) error {
//	    log.Printf("%s: %v (input %v)", e.Source, e.Err, e.Input)
//	    return nil
//	})
//	defer collector.Close()
//
//	result := calculate.Run(ctx, input, collector)
//
// Delivery is asynchronous and never blocks the chain; a slow or failing
// handler costs the pipeline nothing.
type HookCollector struct {
	hooks *hookz.Hooks[CollectorEvent]
}

// NewHookCollector creates a HookCollector with no handlers registered.
func NewHookCollector() *HookCollector {
	return &HookCollector{
		hooks: hookz.New[CollectorEvent](),
	}
}

// Record implements Collector.
func (h *HookCollector) Record(ctx context.Context, failure *Failure) {
	_ = h.hooks.Emit(ctx, CollectorEventFailure, CollectorEvent{ //nolint:errcheck
		Source:    failure.Source(),
		Path:      failure.Path,
		Err:       failure.Err,
		Input:     failure.Input(),
		Severity:  failure.Severity,
		Duration:  failure.Duration,
		Timestamp: failure.Timestamp,
	})
}

// OnFailure registers a handler called asynchronously for every recorded
// failure.
func (h *HookCollector) OnFailure(handler func(context.Context, CollectorEvent) error) error {
	_, err := h.hooks.Hook(CollectorEventFailure, handler)
	return err
}

// Close shuts down event delivery.
func (h *HookCollector) Close() error {
	h.hooks.Close()
	return nil
}
