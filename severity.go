package funchain

// Severity controls what a composite node does after one of its children
// records a Failure. The record itself is always written; severity only
// shapes the control flow that follows.
type Severity int

const (
	// Normal failures halt the enclosing chain. The chain returns its
	// configured default and no further steps run.
	Normal Severity = iota

	// Optional failures are recorded and skipped. The enclosing chain
	// continues with the value the failing step received.
	Optional

	// Required failures halt like Normal and additionally abort tolerant
	// contexts. A ForEach whose inner node is Required stops at the first
	// failing element instead of dropping it.
	Required
)

// String returns the lowercase severity label used in failure output.
func (s Severity) String() string {
	switch s {
	case Optional:
		return "optional"
	case Required:
		return "required"
	default:
		return "normal"
	}
}

// nodeSeverity reports how a composite treats failures signaled by node.
// Foreign Node implementations that want Optional or Required handling
// expose a Severity() method; everything else is treated as Normal.
func nodeSeverity(node any) Severity {
	if s, ok := node.(interface{ Severity() Severity }); ok {
		return s.Severity()
	}
	return Normal
}
