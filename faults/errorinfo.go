package faults

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrorInfo is the immutable record produced for a single classified
// failure. It is created once per raised failure and never mutated; the
// retry executor, recovery manager, and analytics all receive the same
// instance.
type ErrorInfo struct {
	// ID uniquely identifies this failure instance. Recovery procedures
	// key their at-most-once guarantee on it.
	ID string

	// Category is the classified failure kind.
	Category Category

	// Severity grades the failure.
	Severity Severity

	// Message is the original error text, preserved verbatim.
	Message string

	// Timestamp is when the failure was classified.
	Timestamp time.Time

	// Context carries caller-supplied metadata about the protected call.
	Context map[string]string

	// Retryable reports whether another attempt may succeed.
	Retryable bool

	// Err is the original failure, kept for diagnostics and unwrapping.
	Err error
}

// NewErrorInfo builds an ErrorInfo directly, bypassing classification.
// Most callers should use Classifier.Classify instead.
func NewErrorInfo(category Category, severity Severity, message string, opCtx map[string]string, err error) *ErrorInfo {
	return &ErrorInfo{
		ID:        uuid.NewString(),
		Category:  category,
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now(),
		Context:   opCtx,
		Retryable: category.DefaultRetryable(),
		Err:       err,
	}
}

// Error implements the error interface.
func (e *ErrorInfo) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Category, e.Severity, e.Message)
}

// Unwrap returns the original failure.
func (e *ErrorInfo) Unwrap() error {
	return e.Err
}

// ContextValue returns the context value for key, or "" when absent.
func (e *ErrorInfo) ContextValue(key string) string {
	if e.Context == nil {
		return ""
	}
	return e.Context[key]
}
