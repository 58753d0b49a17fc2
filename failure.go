package funchain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Detail keys present in Failure.Details.
const (
	// DetailInput holds the value the failing node received. Always set.
	DetailInput = "input"

	// DetailIndex holds the element index when the failure occurred inside
	// a ForEach.
	DetailIndex = "index"
)

// Failure is the record written to a collector when a node contains an
// error or a panic. It wraps the underlying error with information about
// where in the composition the failure occurred, what input triggered it,
// and whether it was due to timeout or cancellation.
//
// Failures double as halt signals inside the library: a node that fails
// returns the recorded *Failure to its caller so enclosing chains can stop.
// They never escape Run. A nil *Failure means success, so every method
// tolerates a nil receiver.
type Failure struct {
	Err       error          // the contained error, or the wrapped panic value
	Details   map[string]any // at least {"input": <value the node received>}
	Path      []Name         // root-down labels, e.g. ["calculate", "increment"]
	ID        uuid.UUID      // record identity
	Timestamp time.Time      // when the failure was recorded
	Duration  time.Duration  // time spent inside the failing node
	Severity  Severity       // severity of the node that recorded it
	Timeout   bool           // the error was a deadline expiry
	Canceled  bool           // the error was a context cancellation
}

// Source returns the dot-joined label path identifying where the failure
// occurred, such as "calculate.increment". This is the stable string
// collectors should key on.
func (f *Failure) Source() string {
	if f == nil {
		return ""
	}
	return strings.Join(f.Path, ".")
}

// Input returns the value the failing node received, the same value stored
// under Details["input"].
func (f *Failure) Input() any {
	if f == nil || f.Details == nil {
		return nil
	}
	return f.Details[DetailInput]
}

// Error implements the error interface, providing a detailed message.
func (f *Failure) Error() string {
	if f == nil {
		return "<nil>"
	}
	source := f.Source()
	if source == "" {
		source = "unknown"
	}
	if f.Timeout {
		return fmt.Sprintf("%s timed out after %v: %v", source, f.Duration, f.Err)
	}
	if f.Canceled {
		return fmt.Sprintf("%s canceled after %v: %v", source, f.Duration, f.Err)
	}
	return fmt.Sprintf("%s failed after %v: %v", source, f.Duration, f.Err)
}

// Unwrap returns the underlying error, supporting errors.Is and errors.As.
func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// IsTimeout returns true if the failure was caused by a timeout.
func (f *Failure) IsTimeout() bool {
	if f == nil {
		return false
	}
	return f.Timeout || errors.Is(f.Err, context.DeadlineExceeded)
}

// IsCanceled returns true if the failure was caused by cancellation.
func (f *Failure) IsCanceled() bool {
	if f == nil {
		return false
	}
	return f.Canceled || errors.Is(f.Err, context.Canceled)
}
