package funchain

import (
	"context"
	"fmt"
	"time"
)

// containPanic converts a panic escaping a node boundary into a recorded
// Failure plus the node's fallback value. It must be deferred directly by
// Invoke implementations, after any observability defers so those see the
// converted outcome.
func containPanic[T any](ctx context.Context, rep *Reporter, input T, fallback T, severity Severity, start time.Time, result *T, failed **Failure) {
	r := recover()
	if r == nil {
		return
	}
	*result = fallback
	*failed = rep.Fail(ctx, panicError(r), input, severity, start)
}

// panicError normalizes a recovered panic value into an error. Panic
// values that are already errors stay unwrappable.
func panicError(v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", v)
}
