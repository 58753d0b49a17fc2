// Package testing provides test utilities and helpers for funchain-based
// applications.
//
// This package includes mock nodes, assertion helpers, and chaos testing
// tools to make testing funchain pipelines easier and more comprehensive.
//
// Example usage:
//
//	func TestMyPipeline(t *testing.T) {
//		mock := testing.NewMockNode[string](t, "mock-node")
//		mock.WithReturn("processed", nil)
//
//		pipeline := funchain.MustNew[string]("test-pipeline", mock)
//		result := pipeline.Run(context.Background(), "input", nil)
//
//		if result != "processed" {
//			t.Errorf("expected 'processed', got %q", result)
//		}
//		testing.AssertInvoked(t, mock, 1)
//	}
package testing

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	mathrand "math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mediadnan/funchain"
)

// MockNode provides a configurable mock implementation of funchain.Node[T].
// It tracks calls, allows configuring return values and delays, and provides
// assertion methods for testing pipeline behavior.
//
// A failing MockNode behaves like any well-built node: it records exactly
// one Failure through the reporter and returns its configured fallback, so
// chains and collectors see the same contract live steps produce.
type MockNode[T any] struct { //nolint:govet // fieldalignment: Test helper struct optimized for functionality over memory efficiency
	t           *testing.T
	name        string
	callCount   int64
	lastInput   T
	returnVal   T
	returnErr   error
	fallback    T
	severity    funchain.Severity
	delay       time.Duration
	panicMsg    string
	mu          sync.RWMutex
	callHistory []MockCall[T]
	maxHistory  int
}

// MockCall represents a single call to the mock node.
type MockCall[T any] struct {
	Input     T
	Source    string
	Timestamp time.Time
	Context   context.Context
}

// NewMockNode creates a new mock node for testing.
// The node tracks all calls and provides configurable behavior.
func NewMockNode[T any](t *testing.T, name string) *MockNode[T] {
	return &MockNode[T]{
		t:          t,
		name:       name,
		maxHistory: 100, // Keep last 100 calls by default
	}
}

// WithReturn configures the mock to return specific values.
// A non-nil err makes every invocation fail: the mock records a Failure
// and returns its fallback value instead of val.
func (m *MockNode[T]) WithReturn(val T, err error) *MockNode[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.returnVal = val
	m.returnErr = err
	return m
}

// WithFallback configures the value a failing invocation substitutes,
// instead of the zero value.
func (m *MockNode[T]) WithFallback(val T) *MockNode[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = val
	return m
}

// WithSeverity configures how enclosing chains treat this mock's failures,
// for testing Optional skip and Required abort paths.
func (m *MockNode[T]) WithSeverity(s funchain.Severity) *MockNode[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.severity = s
	return m
}

// WithDelay configures the mock to delay execution.
// This is useful for testing concurrent invocation and cancellation.
func (m *MockNode[T]) WithDelay(d time.Duration) *MockNode[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithPanic configures the mock to panic with a specific message.
// This is useful for testing boundary containment in enclosing chains.
func (m *MockNode[T]) WithPanic(msg string) *MockNode[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicMsg = msg
	return m
}

// WithHistorySize configures how many calls to keep in history.
// Set to 0 to disable history tracking.
func (m *MockNode[T]) WithHistorySize(size int) *MockNode[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxHistory = size
	if size == 0 {
		m.callHistory = nil
	} else if len(m.callHistory) > size {
		// Trim history to new size
		m.callHistory = m.callHistory[len(m.callHistory)-size:]
	}
	return m
}

// Name returns the name of the mock node.
func (m *MockNode[T]) Name() funchain.Name {
	return funchain.Name(m.name)
}

// Severity returns the configured severity.
func (m *MockNode[T]) Severity() funchain.Severity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.severity
}

// Invoke implements funchain.Node[T]. It records the call and returns the
// configured values, potentially after a delay or panic. Configured errors
// are recorded through rep so collector assertions behave as in production.
func (m *MockNode[T]) Invoke(ctx context.Context, data T, rep *funchain.Reporter) (T, *funchain.Failure) {
	start := rep.Now()

	// Record the call
	atomic.AddInt64(&m.callCount, 1)

	m.mu.Lock()
	m.lastInput = data
	if m.maxHistory > 0 {
		call := MockCall[T]{
			Input:     data,
			Source:    rep.Source(),
			Timestamp: time.Now(),
			Context:   ctx,
		}
		m.callHistory = append(m.callHistory, call)
		if len(m.callHistory) > m.maxHistory {
			m.callHistory = m.callHistory[1:] // Remove oldest
		}
	}

	// Get configured behavior
	delay := m.delay
	returnVal := m.returnVal
	returnErr := m.returnErr
	fallback := m.fallback
	severity := m.severity
	panicMsg := m.panicMsg
	m.mu.Unlock()

	// Handle panic
	if panicMsg != "" {
		panic(panicMsg)
	}

	// Handle delay with context cancellation
	if delay > 0 {
		select {
		case <-time.After(delay):
			// Continue
		case <-ctx.Done():
			return fallback, rep.Fail(ctx, ctx.Err(), data, severity, start)
		}
	}

	if returnErr != nil {
		return fallback, rep.Fail(ctx, returnErr, data, severity, start)
	}

	return returnVal, nil
}

// CallCount returns the number of times Invoke has been called.
func (m *MockNode[T]) CallCount() int {
	return int(atomic.LoadInt64(&m.callCount))
}

// LastInput returns the input from the most recent call.
func (m *MockNode[T]) LastInput() T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastInput
}

// CallHistory returns a copy of all recorded calls.
// Returns empty slice if history tracking is disabled.
func (m *MockNode[T]) CallHistory() []MockCall[T] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.maxHistory == 0 {
		return nil
	}
	history := make([]MockCall[T], len(m.callHistory))
	copy(history, m.callHistory)
	return history
}

// Reset clears all call tracking and resets the mock to initial state.
func (m *MockNode[T]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	atomic.StoreInt64(&m.callCount, 0)
	m.lastInput = *new(T)
	m.callHistory = nil
}

// Assertion Helpers

// AssertInvoked verifies that a mock node was called exactly n times.
func AssertInvoked[T any](t *testing.T, mock *MockNode[T], expectedCalls int) {
	t.Helper()
	actualCalls := mock.CallCount()
	if actualCalls != expectedCalls {
		t.Errorf("expected mock node %s to be invoked %d times, but was invoked %d times",
			mock.name, expectedCalls, actualCalls)
	}
}

// AssertNotInvoked verifies that a mock node was never called.
func AssertNotInvoked[T any](t *testing.T, mock *MockNode[T]) {
	t.Helper()
	AssertInvoked(t, mock, 0)
}

// AssertInvokedWith verifies that a mock node was last called with specific input.
func AssertInvokedWith[T comparable](t *testing.T, mock *MockNode[T], expectedInput T) {
	t.Helper()
	if mock.CallCount() == 0 {
		t.Errorf("expected mock node %s to be invoked with input %v, but it was never invoked",
			mock.name, expectedInput)
		return
	}

	actualInput := mock.LastInput()
	if actualInput != expectedInput {
		t.Errorf("expected mock node %s to be invoked with input %v, but was invoked with %v",
			mock.name, expectedInput, actualInput)
	}
}

// AssertInvokedBetween verifies that a mock node was called between min and max times.
func AssertInvokedBetween[T any](t *testing.T, mock *MockNode[T], minCalls, maxCalls int) {
	t.Helper()
	actualCalls := mock.CallCount()
	if actualCalls < minCalls || actualCalls > maxCalls {
		t.Errorf("expected mock node %s to be invoked between %d and %d times, but was invoked %d times",
			mock.name, minCalls, maxCalls, actualCalls)
	}
}

// AssertRecorded verifies that a collector holds exactly n failures.
func AssertRecorded(t *testing.T, collector *funchain.MemoryCollector, expected int) {
	t.Helper()
	actual := collector.Len()
	if actual != expected {
		t.Errorf("expected %d recorded failures, got %d", expected, actual)
	}
}

// AssertSource verifies that a collector holds at least one failure with
// the given dot-joined source.
func AssertSource(t *testing.T, collector *funchain.MemoryCollector, source string) {
	t.Helper()
	failures := collector.Failures()
	for _, failure := range failures {
		if failure.Source() == source {
			return
		}
	}
	sources := make([]string, len(failures))
	for i, failure := range failures {
		sources[i] = failure.Source()
	}
	t.Errorf("expected a failure with source %q, got sources %v", source, sources)
}

// ChaosNode introduces controlled failures and delays for chaos testing.
// It wraps another node and randomly introduces failures based on configured
// rates. Injected failures are recorded through the reporter like any step
// failure, so hosts can verify their collector discipline holds under load.
type ChaosNode[T any] struct { //nolint:govet // fieldalignment: Test helper struct optimized for functionality over memory efficiency
	name         string
	wrapped      funchain.Node[T]
	failureRate  float64
	latencyMin   time.Duration
	latencyMax   time.Duration
	timeoutRate  float64
	panicRate    float64
	rng          *mathrand.Rand
	mu           sync.Mutex
	totalCalls   int64
	failedCalls  int64
	timeoutCalls int64
	panicCalls   int64
}

// ChaosConfig holds configuration for chaos testing.
type ChaosConfig struct {
	FailureRate float64       // Probability of injecting a failure (0.0 to 1.0)
	LatencyMin  time.Duration // Minimum additional latency to inject
	LatencyMax  time.Duration // Maximum additional latency to inject
	TimeoutRate float64       // Probability of injecting a deadline expiry (0.0 to 1.0)
	PanicRate   float64       // Probability of panicking (0.0 to 1.0)
	Seed        int64         // Random seed for reproducible chaos (0 for random seed)
}

// NewChaosNode creates a chaos node that wraps another node.
func NewChaosNode[T any](name string, wrapped funchain.Node[T], config ChaosConfig) *ChaosNode[T] {
	seed := config.Seed
	if seed == 0 {
		// Use crypto/rand for better randomness
		var seedBytes [8]byte
		if _, err := rand.Read(seedBytes[:]); err != nil {
			// Fallback to time-based seed if crypto/rand fails
			seed = time.Now().UnixNano()
		} else {
			seed = int64(seedBytes[0])<<56 | int64(seedBytes[1])<<48 | int64(seedBytes[2])<<40 | int64(seedBytes[3])<<32 |
				int64(seedBytes[4])<<24 | int64(seedBytes[5])<<16 | int64(seedBytes[6])<<8 | int64(seedBytes[7])
		}
	}

	return &ChaosNode[T]{
		name:        name,
		wrapped:     wrapped,
		failureRate: config.FailureRate,
		latencyMin:  config.LatencyMin,
		latencyMax:  config.LatencyMax,
		timeoutRate: config.TimeoutRate,
		panicRate:   config.PanicRate,
		rng:         mathrand.New(mathrand.NewSource(seed)), //nolint:gosec // G404: Test utility uses weak RNG for deterministic chaos scenarios
	}
}

// Name returns the name of the chaos node.
func (c *ChaosNode[T]) Name() funchain.Name {
	return funchain.Name(c.name)
}

// Invoke implements funchain.Node[T] with chaos injection.
func (c *ChaosNode[T]) Invoke(ctx context.Context, data T, rep *funchain.Reporter) (T, *funchain.Failure) {
	start := rep.Now()
	atomic.AddInt64(&c.totalCalls, 1)

	c.mu.Lock()
	// Check for panic injection
	if c.rng.Float64() < c.panicRate {
		c.mu.Unlock()
		atomic.AddInt64(&c.panicCalls, 1)
		panic("chaos node induced panic")
	}

	// Add latency if configured
	var latency time.Duration
	if c.latencyMax > c.latencyMin {
		latencyRange := c.latencyMax - c.latencyMin
		latency = c.latencyMin + time.Duration(c.rng.Int63n(int64(latencyRange)))
	} else if c.latencyMin > 0 {
		latency = c.latencyMin
	}

	// Check for timeout simulation
	simulateTimeout := c.rng.Float64() < c.timeoutRate

	// Check for failure injection
	injectFailure := c.rng.Float64() < c.failureRate

	c.mu.Unlock()

	// Apply latency with context cancellation
	if latency > 0 {
		select {
		case <-time.After(latency):
			// Continue
		case <-ctx.Done():
			var zero T
			return zero, rep.Fail(ctx, ctx.Err(), data, funchain.Normal, start)
		}
	}

	// Simulate timeout; the recorded Failure carries the Timeout flag.
	if simulateTimeout {
		atomic.AddInt64(&c.timeoutCalls, 1)
		var zero T
		return zero, rep.Fail(ctx, context.DeadlineExceeded, data, funchain.Normal, start)
	}

	// Call wrapped node
	result, failed := c.wrapped.Invoke(ctx, data, rep)

	// Inject failure
	if injectFailure && failed == nil {
		atomic.AddInt64(&c.failedCalls, 1)
		var zero T
		return zero, rep.Fail(ctx, errors.New("chaos node induced failure"), data, funchain.Normal, start)
	}

	return result, failed
}

// Stats returns statistics about chaos injection.
func (c *ChaosNode[T]) Stats() ChaosStats {
	return ChaosStats{
		TotalCalls:   atomic.LoadInt64(&c.totalCalls),
		FailedCalls:  atomic.LoadInt64(&c.failedCalls),
		TimeoutCalls: atomic.LoadInt64(&c.timeoutCalls),
		PanicCalls:   atomic.LoadInt64(&c.panicCalls),
	}
}

// ChaosStats holds statistics about chaos injection.
type ChaosStats struct {
	TotalCalls   int64
	FailedCalls  int64
	TimeoutCalls int64
	PanicCalls   int64
}

// FailureRate returns the actual failure rate observed.
func (s ChaosStats) FailureRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.FailedCalls) / float64(s.TotalCalls)
}

// TimeoutRate returns the actual timeout rate observed.
func (s ChaosStats) TimeoutRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.TimeoutCalls) / float64(s.TotalCalls)
}

// PanicRate returns the actual panic rate observed.
func (s ChaosStats) PanicRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.PanicCalls) / float64(s.TotalCalls)
}

// String returns a human-readable representation of the stats.
func (s ChaosStats) String() string {
	return fmt.Sprintf("ChaosStats{Total: %d, Failed: %d (%.1f%%), Timeouts: %d (%.1f%%), Panics: %d (%.1f%%)}",
		s.TotalCalls, s.FailedCalls, s.FailureRate()*100,
		s.TimeoutCalls, s.TimeoutRate()*100,
		s.PanicCalls, s.PanicRate()*100)
}

// Helper Functions

// WaitForCalls waits for a mock node to be called at least n times,
// with a timeout. Returns true if the expected calls were reached.
func WaitForCalls[T any](mock *MockNode[T], expectedCalls int, timeout time.Duration) bool {
	start := time.Now()
	for time.Since(start) < timeout {
		if mock.CallCount() >= expectedCalls {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// ParallelTest runs a test function in parallel with multiple goroutines.
// Useful for testing concurrent invocation of shared nodes.
func ParallelTest(t *testing.T, goroutines int, testFunc func(int)) {
	t.Helper()

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			testFunc(id)
		}(i)
	}

	wg.Wait()
}

// MeasureLatency measures the latency of a function call.
func MeasureLatency(fn func()) time.Duration {
	start := time.Now()
	fn()
	return time.Since(start)
}

// MeasureLatencyWithResult measures the latency of a function call and returns both the result and duration.
func MeasureLatencyWithResult[T any](fn func() T) (T, time.Duration) {
	start := time.Now()
	result := fn()
	return result, time.Since(start)
}
