package funchain

import "context"

// Node defines the interface for any component that can transform values
// of type T while containing its own failures. Steps, chains, and ForEach
// all implement Node, enabling seamless composition while maintaining type
// safety through Go generics.
//
// Key design principles:
//   - A node never panics or returns an ordinary error from Invoke
//   - A failing node records exactly one Failure through rep, returns its
//     fallback value, and returns the Failure as the halt signal
//   - The reporter passed to Invoke is already scoped to this node's label;
//     implementations scope it further only for their own children
//   - Nodes are immutable values; Invoke must not mutate receiver state
//
// Most users never implement Node directly. The adapter functions
// (Transform, Apply, Effect, Static) wrap plain functions, and New wraps
// raw function arguments automatically. Implement Node when a step needs
// resources or configuration that a closure cannot express cleanly; use
// Reporter.Fail to build and record failures the same way built-in nodes do.
type Node[T any] interface {
	Invoke(ctx context.Context, input T, rep *Reporter) (T, *Failure)
	Name() Name
}

// Name is a type alias for step and chain names. Using this type encourages
// storing names as constants rather than using inline strings throughout
// your code. Names joined with dots form failure sources, so keep them free
// of dots.
//
// Example:
//
//	const (
//	    CalculateName Name = "calculate"
//	    IncrementName Name = "increment"
//	    DoubleName    Name = "double"
//	)
//
//	calculate := funchain.MustNew[int](CalculateName,
//	    funchain.Transform(IncrementName, incrementFunc),
//	    funchain.Transform(DoubleName, doubleFunc),
//	)
type Name = string
