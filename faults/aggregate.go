package faults

import (
	"fmt"
	"strings"
)

// AggregatedError is the composite failure surfaced when retries,
// recovery, and fallbacks are all exhausted. It preserves every
// intermediate ErrorInfo in attempt order so callers can render a
// meaningful message without re-deriving the history.
type AggregatedError struct {
	// Operation is the name of the protected call that failed.
	Operation string

	// Errors holds every classified failure in attempt order.
	Errors []*ErrorInfo
}

// NewAggregatedError builds an aggregate for the named operation.
func NewAggregatedError(operation string, errs ...*ErrorInfo) *AggregatedError {
	return &AggregatedError{Operation: operation, Errors: errs}
}

// Append returns the aggregate with info added. A nil receiver starts a
// new aggregate so call sites can accumulate without pre-allocating.
func (a *AggregatedError) Append(info *ErrorInfo) *AggregatedError {
	if a == nil {
		return &AggregatedError{Errors: []*ErrorInfo{info}}
	}
	a.Errors = append(a.Errors, info)
	return a
}

// Error implements the error interface. The summary names the operation,
// the attempt count, and the last failure.
func (a *AggregatedError) Error() string {
	if len(a.Errors) == 0 {
		return fmt.Sprintf("operation %q failed", a.Operation)
	}
	last := a.Errors[len(a.Errors)-1]
	return fmt.Sprintf("operation %q failed after %d attempts: %s",
		a.Operation, len(a.Errors), last.Error())
}

// Unwrap exposes every underlying failure to errors.Is / errors.As.
func (a *AggregatedError) Unwrap() []error {
	errs := make([]error, len(a.Errors))
	for i, info := range a.Errors {
		errs[i] = info
	}
	return errs
}

// Last returns the final classified failure, or nil when empty.
func (a *AggregatedError) Last() *ErrorInfo {
	if a == nil || len(a.Errors) == 0 {
		return nil
	}
	return a.Errors[len(a.Errors)-1]
}

// Detail renders the full attempt history, one failure per line.
func (a *AggregatedError) Detail() string {
	var b strings.Builder
	fmt.Fprintf(&b, "operation %q: %d failures\n", a.Operation, len(a.Errors))
	for i, info := range a.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, info.Error())
	}
	return b.String()
}
