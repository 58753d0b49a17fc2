package funchain

import "context"

// Apply creates a Step from a function that transforms data and may return
// an error. Apply is the workhorse adapter: use it when your transformation
// might fail due to validation, parsing, external lookups, or business rule
// violations.
//
// The function receives a context for timeout and cancellation support.
// Long-running operations should check ctx.Err() periodically; errors that
// are context.DeadlineExceeded or context.Canceled mark the recorded
// Failure's Timeout or Canceled flag.
//
// Apply is ideal for:
//   - Data validation with transformation
//   - Lookups that enhance data and might miss
//   - Parsing and normalization that can reject input
//   - Business rule enforcement
//
// For pure transformations that cannot fail, use Transform. For side
// effects that leave the value untouched, use Effect.
//
// Example:
//
//	sqrt := funchain.Apply("sqrt", func(_ context.Context, n float64) (float64, error) {
//	    if n < 0 {
//	        return 0, fmt.Errorf("sqrt of negative %v", n)
//	    }
//	    return math.Sqrt(n), nil
//	})
func Apply[T any](name Name, fn func(context.Context, T) (T, error)) Step[T] {
	return Step[T]{name: name, fn: fn}
}
