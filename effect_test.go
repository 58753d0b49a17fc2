package funchain

import (
	"context"
	"errors"
	"testing"
)

func TestEffect(t *testing.T) {
	t.Run("Effect Passes Value Through", func(t *testing.T) {
		var seen []int
		audit := Effect(auditStep, func(_ context.Context, n int) error {
			seen = append(seen, n)
			return nil
		})

		result := audit.Run(context.Background(), 42, nil)
		if result != 42 {
			t.Errorf("expected value to pass through unchanged, got %d", result)
		}
		if len(seen) != 1 || seen[0] != 42 {
			t.Errorf("expected side effect to observe 42, got %v", seen)
		}
	})

	t.Run("Effect Error Contained", func(t *testing.T) {
		audit := Effect(auditStep, func(_ context.Context, _ int) error {
			return errors.New("audit store down")
		})
		collector := NewMemoryCollector()

		result := audit.Run(context.Background(), 42, collector)
		if result != 0 {
			t.Errorf("expected zero value after failure, got %d", result)
		}

		failure := collector.First()
		if failure == nil {
			t.Fatal("expected a recorded failure")
		}
		if input, _ := failure.Input().(int); input != 42 {
			t.Errorf("expected input detail 42, got %v", failure.Input())
		}
	})

	t.Run("Optional Effect Keeps Chain Flowing", func(t *testing.T) {
		chain := MustNew[int](testChain,
			double,
			Effect(auditStep, func(_ context.Context, _ int) error {
				return errors.New("down")
			}).Optional(),
			double,
		)
		collector := NewMemoryCollector()

		// 3*2 = 6, audit failure skipped, 6*2 = 12.
		result := chain.Run(context.Background(), 3, collector)
		if result != 12 {
			t.Errorf("expected 12, got %d", result)
		}
		if collector.Len() != 1 {
			t.Errorf("expected the skipped failure recorded once, got %d", collector.Len())
		}
	})
}
