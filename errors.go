package funchain

import (
	"errors"
	"fmt"
)

// ErrEmptyChain is returned by New when no steps are supplied.
var ErrEmptyChain = errors.New("chain requires at least one step")

// InvalidStepError is returned by New when a step argument is neither a
// Node nor a function with a supported signature. It is the only error
// funchain propagates to callers: construction mistakes are programming
// errors and must surface at composition time, not at run time.
type InvalidStepError struct {
	Value    any  // the rejected argument
	Chain    Name // name of the chain being built
	Position int  // zero-based argument position
}

// Error implements the error interface.
func (e *InvalidStepError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("chain %q: step %d: nil is not a valid step", e.Chain, e.Position)
	}
	return fmt.Sprintf("chain %q: step %d: %T is not a valid step", e.Chain, e.Position, e.Value)
}
