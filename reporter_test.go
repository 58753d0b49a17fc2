package funchain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"
)

func TestReporter(t *testing.T) {
	ctx := context.Background()

	t.Run("Scope Builds Path", func(t *testing.T) {
		rep := NewReporter(nil, nil).Scope("calculate").Scope("increment")

		if rep.Source() != "calculate.increment" {
			t.Errorf("expected 'calculate.increment', got %q", rep.Source())
		}

		path := rep.Path()
		if len(path) != 2 || path[0] != "calculate" || path[1] != "increment" {
			t.Errorf("expected [calculate increment], got %v", path)
		}
	})

	t.Run("Scope Does Not Mutate Receiver", func(t *testing.T) {
		parent := NewReporter(nil, nil).Scope("chain")

		a := parent.Scope("left")
		b := parent.Scope("right")

		if parent.Source() != "chain" {
			t.Errorf("parent scope changed to %q", parent.Source())
		}
		if a.Source() != "chain.left" {
			t.Errorf("expected 'chain.left', got %q", a.Source())
		}
		if b.Source() != "chain.right" {
			t.Errorf("expected 'chain.right', got %q", b.Source())
		}
	})

	t.Run("Path Returns A Copy", func(t *testing.T) {
		rep := NewReporter(nil, nil).Scope("chain").Scope("step")

		path := rep.Path()
		path[0] = "mutated"

		if rep.Source() != "chain.step" {
			t.Errorf("mutating the returned path changed the reporter: %q", rep.Source())
		}
	})

	t.Run("Unscoped Source Is Empty", func(t *testing.T) {
		rep := NewReporter(nil, nil)
		if rep.Source() != "" {
			t.Errorf("expected empty source, got %q", rep.Source())
		}
	})

	t.Run("Fail Populates Failure", func(t *testing.T) {
		clock := clockz.NewFakeClock()
		collector := NewMemoryCollector()
		rep := NewReporter(collector, clock).Scope("calculate").Scope("increment")
		baseErr := errors.New("negative input")

		start := rep.Now()
		clock.Advance(150 * time.Millisecond)
		failure := rep.Fail(ctx, baseErr, 42, Normal, start)

		if failure == nil {
			t.Fatal("expected a failure")
		}
		if failure.Source() != "calculate.increment" {
			t.Errorf("expected source 'calculate.increment', got %q", failure.Source())
		}
		if !errors.Is(failure.Err, baseErr) {
			t.Errorf("expected wrapped base error, got %v", failure.Err)
		}
		if failure.Input() != 42 {
			t.Errorf("expected input 42, got %v", failure.Input())
		}
		if failure.Severity != Normal {
			t.Errorf("expected Normal severity, got %v", failure.Severity)
		}
		if failure.Duration != 150*time.Millisecond {
			t.Errorf("expected 150ms duration, got %v", failure.Duration)
		}
		if !failure.Timestamp.Equal(clock.Now()) {
			t.Errorf("expected timestamp %v, got %v", clock.Now(), failure.Timestamp)
		}
		if failure.ID == uuid.Nil {
			t.Error("expected a non-nil record ID")
		}
		if failure.Timeout || failure.Canceled {
			t.Error("plain errors should not set timeout or canceled flags")
		}
	})

	t.Run("Fail Records Exactly Once", func(t *testing.T) {
		collector := NewMemoryCollector()
		rep := NewReporter(collector, nil).Scope("chain").Scope("step")

		failure := rep.Fail(ctx, errors.New("bad"), "in", Normal, rep.Now())

		if collector.Len() != 1 {
			t.Fatalf("expected 1 record, got %d", collector.Len())
		}
		if collector.First() != failure {
			t.Error("recorded failure should be the same value Fail returns")
		}
	})

	t.Run("Fail Carries Severity", func(t *testing.T) {
		collector := NewMemoryCollector()
		rep := NewReporter(collector, nil).Scope("tolerant").Scope("enrich")

		failure := rep.Fail(ctx, errors.New("bad"), "in", Optional, rep.Now())

		if failure.Severity != Optional {
			t.Errorf("expected Optional severity, got %v", failure.Severity)
		}
	})

	t.Run("Fail Flags Timeouts", func(t *testing.T) {
		rep := NewReporter(nil, nil).Scope("api")

		failure := rep.Fail(ctx, context.DeadlineExceeded, "in", Normal, rep.Now())
		if !failure.Timeout {
			t.Error("expected timeout flag for deadline exceeded")
		}
		if failure.Canceled {
			t.Error("deadline exceeded should not set canceled flag")
		}

		wrapped := rep.Fail(ctx, fmt.Errorf("fetch: %w", context.DeadlineExceeded), "in", Normal, rep.Now())
		if !wrapped.Timeout {
			t.Error("expected timeout flag for wrapped deadline exceeded")
		}
	})

	t.Run("Fail Flags Cancellation", func(t *testing.T) {
		rep := NewReporter(nil, nil).Scope("worker")

		failure := rep.Fail(ctx, context.Canceled, "in", Normal, rep.Now())
		if !failure.Canceled {
			t.Error("expected canceled flag for context canceled")
		}
		if failure.Timeout {
			t.Error("cancellation should not set timeout flag")
		}
	})

	t.Run("Fail Generates Unique IDs", func(t *testing.T) {
		rep := NewReporter(nil, nil).Scope("chain")

		a := rep.Fail(ctx, errors.New("first"), 1, Normal, rep.Now())
		b := rep.Fail(ctx, errors.New("second"), 2, Normal, rep.Now())

		if a.ID == b.ID {
			t.Error("consecutive failures should have distinct IDs")
		}
	})

	t.Run("WithDetail Stamps Recorded Failures", func(t *testing.T) {
		rep := NewReporter(nil, nil).Scope("each").WithDetail(DetailIndex, 3)

		failure := rep.Fail(ctx, errors.New("bad element"), "elem", Normal, rep.Now())

		if failure.Details[DetailIndex] != 3 {
			t.Errorf("expected index detail 3, got %v", failure.Details[DetailIndex])
		}
		if failure.Input() != "elem" {
			t.Errorf("input detail should coexist with extras, got %v", failure.Input())
		}
	})

	t.Run("WithDetail Does Not Affect Siblings", func(t *testing.T) {
		base := NewReporter(nil, nil).Scope("each").WithDetail("shard", "a")
		derived := base.WithDetail(DetailIndex, 7)

		fromBase := base.Fail(ctx, errors.New("bad"), "x", Normal, base.Now())
		fromDerived := derived.Fail(ctx, errors.New("bad"), "y", Normal, derived.Now())

		if _, ok := fromBase.Details[DetailIndex]; ok {
			t.Error("base reporter should not carry the derived detail")
		}
		if fromDerived.Details["shard"] != "a" {
			t.Error("derived reporter should inherit base details")
		}
		if fromDerived.Details[DetailIndex] != 7 {
			t.Errorf("expected index detail 7, got %v", fromDerived.Details[DetailIndex])
		}
	})

	t.Run("Nil Collector Discards Records", func(t *testing.T) {
		rep := NewReporter(nil, nil).Scope("chain")

		failure := rep.Fail(ctx, errors.New("bad"), "in", Normal, rep.Now())
		if failure == nil {
			t.Fatal("Fail should still return the failure with a nil collector")
		}

		// Record directly is a no-op rather than a panic.
		rep.Record(ctx, failure)
	})

	t.Run("Now And Since Use The Clock", func(t *testing.T) {
		clock := clockz.NewFakeClock()
		rep := NewReporter(nil, clock)

		mark := rep.Now()
		clock.Advance(time.Second)

		if rep.Since(mark) != time.Second {
			t.Errorf("expected 1s elapsed, got %v", rep.Since(mark))
		}
	})

	t.Run("Nil Clock Defaults To Real Clock", func(t *testing.T) {
		rep := NewReporter(nil, nil)

		before := time.Now()
		now := rep.Now()
		if now.Before(before.Add(-time.Minute)) || now.After(before.Add(time.Minute)) {
			t.Errorf("expected wall-clock time, got %v", now)
		}
	})
}
