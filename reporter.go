package funchain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"
)

// Reporter carries the failure-reporting context down through a
// composition: the root-down label path, the collector failures are
// written to, and the clock used to stamp them. Composite nodes derive
// child reporters with Scope; leaf nodes build and record failures with
// Fail. Reporters are immutable, so deriving one never affects siblings.
//
// Callers never construct reporters for normal use; Run does. NewReporter
// exists for driving Node implementations directly in tests.
type Reporter struct {
	collector Collector
	clock     clockz.Clock
	details   map[string]any
	path      []Name
}

// NewReporter creates an unscoped reporter writing to collector. A nil
// collector discards failures; a nil clock selects the real clock.
func NewReporter(collector Collector, clock clockz.Clock) *Reporter {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &Reporter{collector: collector, clock: clock}
}

// Scope derives a reporter for a child node by appending label to the
// path. The receiver is unchanged.
func (r *Reporter) Scope(label Name) *Reporter {
	path := make([]Name, len(r.path)+1)
	copy(path, r.path)
	path[len(r.path)] = label
	return &Reporter{
		collector: r.collector,
		clock:     r.clock,
		details:   r.details,
		path:      path,
	}
}

// WithDetail derives a reporter whose recorded failures carry an extra
// detail entry. ForEach uses this to stamp element indices onto failures
// recorded anywhere under the element's subtree.
func (r *Reporter) WithDetail(key string, value any) *Reporter {
	details := make(map[string]any, len(r.details)+1)
	for k, v := range r.details {
		details[k] = v
	}
	details[key] = value
	return &Reporter{
		collector: r.collector,
		clock:     r.clock,
		details:   details,
		path:      r.path,
	}
}

// Path returns a copy of the root-down label path.
func (r *Reporter) Path() []Name {
	path := make([]Name, len(r.path))
	copy(path, r.path)
	return path
}

// Source returns the dot-joined label path, matching what Failure.Source
// will report for failures recorded at this scope.
func (r *Reporter) Source() string {
	return strings.Join(r.path, ".")
}

// Now returns the current time on the reporter's clock. Node
// implementations should take their start stamp from here so durations
// stay consistent under a fake clock.
func (r *Reporter) Now() time.Time {
	return r.clock.Now()
}

// Since returns the elapsed time on the reporter's clock.
func (r *Reporter) Since(t time.Time) time.Duration {
	return r.clock.Since(t)
}

// Record writes a failure to the collector. Safe to call with a nil
// collector, which discards the record.
func (r *Reporter) Record(ctx context.Context, failure *Failure) {
	if r.collector == nil {
		return
	}
	r.collector.Record(ctx, failure)
}

// Fail builds a Failure for err at the current scope, records it, and
// returns it as the halt signal. The input value the node received goes
// under Details["input"] alongside any details added with WithDetail.
// start should be the reporter-clock time the node began work.
func (r *Reporter) Fail(ctx context.Context, err error, input any, severity Severity, start time.Time) *Failure {
	now := r.clock.Now()
	details := map[string]any{DetailInput: input}
	for k, v := range r.details {
		details[k] = v
	}
	failure := &Failure{
		ID:        uuid.New(),
		Path:      r.Path(),
		Err:       err,
		Details:   details,
		Severity:  severity,
		Timestamp: now,
		Duration:  now.Sub(start),
		Timeout:   errors.Is(err, context.DeadlineExceeded),
		Canceled:  errors.Is(err, context.Canceled),
	}
	r.Record(ctx, failure)
	return failure
}
