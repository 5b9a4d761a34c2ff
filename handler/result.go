package handler

import "fmt"

// Outcome classifies what happened when a single subscriber was offered a payload.
type Outcome int

const (
	// Delivered - handler ran and returned normally
	Delivered Outcome = iota
	// SkippedType - payload was not assignable to the handler parameter
	SkippedType
	// SkippedArity - positional payload did not match the handler arity
	SkippedArity
	// Failed - handler returned an error or panicked
	Failed
	// Expired - one-shot handler was already consumed by a concurrent emission
	Expired
)

// String returns a string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case SkippedType:
		return "skipped_type"
	case SkippedArity:
		return "skipped_arity"
	case Failed:
		return "failed"
	case Expired:
		return "expired"
	default:
		return fmt.Sprintf("unknown(%d)", o)
	}
}

// Result is the per-subscriber outcome reported to the dispatch loop.
type Result struct {
	Outcome Outcome
	Err     error
	// Subscription is the ID of the subscriber that produced the result.
	Subscription string
}

// Skipped reports whether the handler was not invoked because of a payload mismatch.
func (r Result) Skipped() bool {
	return r.Outcome == SkippedType || r.Outcome == SkippedArity
}

// Classify converts an error returned by a handler into a Result.
func Classify(id string, err error) Result {
	if err == nil {
		return Result{Outcome: Delivered, Subscription: id}
	}
	return Result{Outcome: Failed, Err: err, Subscription: id}
}
