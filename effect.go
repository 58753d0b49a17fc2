package funchain

import "context"

// Effect creates a Step that performs a side effect without modifying the
// data. Effect is for operations that happen alongside the main flow, such
// as persisting, notifying, or auditing.
//
// The function receives the value for inspection but must not modify it.
// On success the original value passes through unchanged. A returned error
// is contained like any step failure: recorded, and the chain halts with
// the chain default unless the step is marked Optional.
//
// Effect is perfect for:
//   - Writing audit records for compliance
//   - Sending notifications or alerts
//   - Triggering external systems
//   - Validating without transformation
//
// Side effects that should never halt the chain combine Effect with
// Optional, which keeps the value flowing after the failure is recorded:
//
//	audit := funchain.Effect("audit", func(ctx context.Context, o Order) error {
//	    return auditLog.Write(ctx, o)
//	}).Optional()
func Effect[T any](name Name, fn func(context.Context, T) error) Step[T] {
	return Step[T]{
		name: name,
		fn: func(ctx context.Context, value T) (T, error) {
			if err := fn(ctx, value); err != nil {
				var zero T
				return zero, err
			}
			return value, nil
		},
	}
}
