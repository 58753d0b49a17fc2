package funchain

import "context"

// Transform creates a Step from a pure function that cannot fail. The only
// way a Transform records a Failure is by panicking, which is contained
// like any other step failure.
//
// Use Transform for calculations, formatting, and reshaping where an error
// return would only ever be nil:
//
//	double := funchain.Transform("double", func(_ context.Context, n int) int {
//	    return n * 2
//	})
//
// If the operation might fail, use Apply instead.
func Transform[T any](name Name, fn func(context.Context, T) T) Step[T] {
	return Step[T]{
		name: name,
		fn: func(ctx context.Context, value T) (T, error) {
			return fn(ctx, value), nil
		},
	}
}
