package funchain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCollectorFunc(t *testing.T) {
	ctx := context.Background()

	var recorded []*Failure
	collector := CollectorFunc(func(_ context.Context, failure *Failure) {
		recorded = append(recorded, failure)
	})

	failure := &Failure{Err: errors.New("bad"), Path: []Name{"chain", "step"}}
	collector.Record(ctx, failure)

	if len(recorded) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recorded))
	}
	if recorded[0] != failure {
		t.Error("expected the same failure value")
	}
}

func TestMemoryCollector(t *testing.T) {
	ctx := context.Background()

	t.Run("Records In Arrival Order", func(t *testing.T) {
		collector := NewMemoryCollector()

		first := &Failure{Err: errors.New("first"), Path: []Name{"a"}}
		second := &Failure{Err: errors.New("second"), Path: []Name{"b"}}
		collector.Record(ctx, first)
		collector.Record(ctx, second)

		failures := collector.Failures()
		if len(failures) != 2 {
			t.Fatalf("expected 2 failures, got %d", len(failures))
		}
		if failures[0] != first || failures[1] != second {
			t.Error("failures should come back in arrival order")
		}
	})

	t.Run("Failures Returns A Snapshot", func(t *testing.T) {
		collector := NewMemoryCollector()
		collector.Record(ctx, &Failure{Err: errors.New("bad"), Path: []Name{"a"}})

		snapshot := collector.Failures()
		snapshot[0] = nil

		if collector.First() == nil {
			t.Error("mutating the snapshot should not affect the collector")
		}
	})

	t.Run("Len Counts Records", func(t *testing.T) {
		collector := NewMemoryCollector()
		if collector.Len() != 0 {
			t.Errorf("expected 0, got %d", collector.Len())
		}

		collector.Record(ctx, &Failure{Err: errors.New("bad")})
		collector.Record(ctx, &Failure{Err: errors.New("worse")})

		if collector.Len() != 2 {
			t.Errorf("expected 2, got %d", collector.Len())
		}
	})

	t.Run("First Returns Earliest Or Nil", func(t *testing.T) {
		collector := NewMemoryCollector()
		if collector.First() != nil {
			t.Error("expected nil from an empty collector")
		}

		first := &Failure{Err: errors.New("first")}
		collector.Record(ctx, first)
		collector.Record(ctx, &Failure{Err: errors.New("second")})

		if collector.First() != first {
			t.Error("expected the earliest record")
		}
	})

	t.Run("Reset Discards Records", func(t *testing.T) {
		collector := NewMemoryCollector()
		collector.Record(ctx, &Failure{Err: errors.New("bad")})

		collector.Reset()

		if collector.Len() != 0 {
			t.Errorf("expected 0 after reset, got %d", collector.Len())
		}
		if collector.First() != nil {
			t.Error("expected nil First after reset")
		}
	})

	t.Run("Concurrent Records", func(t *testing.T) {
		collector := NewMemoryCollector()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				collector.Record(ctx, &Failure{
					Err:     errors.New("bad"),
					Path:    []Name{"chain", "step"},
					Details: map[string]any{DetailInput: n},
				})
			}(i)
		}
		wg.Wait()

		if collector.Len() != 20 {
			t.Errorf("expected 20 records, got %d", collector.Len())
		}
	})

	t.Run("Collects From A Running Chain", func(t *testing.T) {
		chain := MustNew[int]("calculate",
			Apply("reject", func(_ context.Context, n int) (int, error) {
				return 0, errors.New("rejected")
			}),
		)
		defer chain.Close()
		collector := NewMemoryCollector()

		chain.Run(ctx, 5, collector)

		if collector.Len() != 1 {
			t.Fatalf("expected 1 record, got %d", collector.Len())
		}
		failure := collector.First()
		if failure.Source() != "calculate.reject" {
			t.Errorf("expected source 'calculate.reject', got %q", failure.Source())
		}
		if failure.Input() != 5 {
			t.Errorf("expected input 5, got %v", failure.Input())
		}
	})
}

func TestHookCollector(t *testing.T) {
	ctx := context.Background()

	t.Run("Broadcasts Recorded Failures", func(t *testing.T) {
		collector := NewHookCollector()
		defer collector.Close()

		var events []CollectorEvent
		var mu sync.Mutex
		if err := collector.OnFailure(func(_ context.Context, event CollectorEvent) error {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("unexpected error registering hook: %v", err)
		}

		baseErr := errors.New("bad input")
		collector.Record(ctx, &Failure{
			Err:      baseErr,
			Path:     []Name{"calculate", "increment"},
			Details:  map[string]any{DetailInput: -3},
			Severity: Optional,
			Duration: 20 * time.Millisecond,
		})

		// Wait for async hooks to fire.
		time.Sleep(50 * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		event := events[0]
		if event.Source != "calculate.increment" {
			t.Errorf("expected source 'calculate.increment', got %q", event.Source)
		}
		if !errors.Is(event.Err, baseErr) {
			t.Errorf("expected base error, got %v", event.Err)
		}
		if event.Input != -3 {
			t.Errorf("expected input -3, got %v", event.Input)
		}
		if event.Severity != Optional {
			t.Errorf("expected Optional severity, got %v", event.Severity)
		}
		if event.Duration != 20*time.Millisecond {
			t.Errorf("expected 20ms duration, got %v", event.Duration)
		}
	})

	t.Run("Drives Chain Failures To Handlers", func(t *testing.T) {
		chain := MustNew[string]("ingest",
			Apply("decode", func(_ context.Context, s string) (string, error) {
				return "", errors.New("malformed")
			}),
		)
		defer chain.Close()

		collector := NewHookCollector()
		defer collector.Close()

		var sources []string
		var mu sync.Mutex
		if err := collector.OnFailure(func(_ context.Context, event CollectorEvent) error {
			mu.Lock()
			sources = append(sources, event.Source)
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("unexpected error registering hook: %v", err)
		}

		chain.Run(ctx, "{", collector)

		// Wait for async hooks to fire.
		time.Sleep(50 * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		if len(sources) != 1 {
			t.Fatalf("expected 1 event, got %d", len(sources))
		}
		if sources[0] != "ingest.decode" {
			t.Errorf("expected source 'ingest.decode', got %q", sources[0])
		}
	})

	t.Run("Close Stops Delivery", func(t *testing.T) {
		collector := NewHookCollector()

		if err := collector.OnFailure(func(_ context.Context, _ CollectorEvent) error {
			return nil
		}); err != nil {
			t.Fatalf("unexpected error registering hook: %v", err)
		}

		if err := collector.Close(); err != nil {
			t.Errorf("unexpected error on close: %v", err)
		}

		// Records after close are dropped, not panics.
		collector.Record(ctx, &Failure{Err: errors.New("late")})
	})
}
