// Package faults defines the error taxonomy for the resilience engine.
//
// Every failure raised by a protected operation is classified into an
// immutable ErrorInfo record carrying a category, a severity, and a
// retryability flag. Classification is a pure function: the same error
// always yields the same (category, severity, retryable) triple.
//
// # Classification order
//
// The classifier resolves a failure in this order, first match wins:
//
//  1. An explicit category attached with Tag.
//  2. Typed checks: context deadlines, net.Error, connection-level
//     syscall errors.
//  3. An ordered substring rule table matched against the error text.
//  4. CategoryUnknown with medium severity.
//
// # Usage
//
//	c := faults.NewClassifier()
//	info := c.Classify(err, map[string]string{"backend": "sdxl"})
//	if info.Retryable {
//	    // schedule another attempt
//	}
//
// Operations that already know what went wrong can pre-classify:
//
//	return faults.Tag(err, faults.CategoryModelLoading)
package faults
