package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open and the
	// protected operation was not invoked.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrThrottled is returned when the throttle rejects a call.
	ErrThrottled = errors.New("resilience: throttled")

	// ErrNoCachedResult is returned by a cached-result fallback when no
	// last known good value exists for the key.
	ErrNoCachedResult = errors.New("resilience: no cached result")

	// ErrDuplicateRecovery is returned when a second recovery procedure
	// is registered for a category without disambiguating guards.
	ErrDuplicateRecovery = errors.New("resilience: duplicate recovery procedure")

	// ErrNilOperation is returned when a nil operation is passed in.
	ErrNilOperation = errors.New("resilience: nil operation")
)
