package funchain

import "context"

// Static creates a Step that ignores its input and always produces value.
// It cannot fail. Static is useful for resetting a pipeline's cursor to a
// known constant between stages, or for stubbing a step during development.
//
//	reset := funchain.Static("reset", 0)
func Static[T any](name Name, value T) Step[T] {
	return Step[T]{
		name: name,
		fn: func(context.Context, T) (T, error) {
			return value, nil
		},
	}
}
