package resilience

import (
	"sync"
	"time"

	"github.com/zedarvates/StoryCore-Engine-sub006/status"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls pass through normally.
	StateClosed State = iota
	// StateOpen means calls fail fast without invoking the operation.
	StateOpen
	// StateHalfOpen means a bounded number of trial calls are admitted.
	StateHalfOpen
)

// String returns the state name as it appears in status snapshots.
func (s State) String() string {
	switch s {
	case StateClosed:
		return status.BreakerClosed
	case StateOpen:
		return status.BreakerOpen
	case StateHalfOpen:
		return status.BreakerHalfOpen
	default:
		return "unknown"
	}
}

// BreakerConfig configures one circuit breaker.
type BreakerConfig struct {
	// Name is the resource identity. It partitions breaker state.
	Name string

	// FailureThreshold is the consecutive-failure count that opens the
	// breaker.
	// Default: 5
	FailureThreshold int

	// RecoveryTimeout is how long the breaker stays open before
	// admitting half-open trials.
	// Default: 30 seconds
	RecoveryTimeout time.Duration

	// HalfOpenTrialLimit is the maximum trial calls admitted while
	// half-open.
	// Default: 1
	HalfOpenTrialLimit int

	// OnStateChange is called after each state transition, under the
	// breaker's lock. Keep it fast and do not call back into the breaker.
	OnStateChange func(name string, from, to State)
}

// Breaker is a per-resource circuit breaker.
//
// Contract:
//   - Concurrency: safe for concurrent use; every transition happens
//     under one mutex, so the state machine stays valid no matter how
//     many callers race.
//   - Half-open admission is atomic: at most HalfOpenTrialLimit callers
//     pass Allow before the breaker closes or reopens.
type Breaker struct {
	config BreakerConfig

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	lastFailureTime     time.Time
	halfOpenTrials      int

	now func() time.Time
}

// NewBreaker creates a circuit breaker in the closed state.
func NewBreaker(config BreakerConfig) *Breaker {
	// Apply defaults
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.HalfOpenTrialLimit <= 0 {
		config.HalfOpenTrialLimit = 1
	}

	return &Breaker{
		config: config,
		state:  StateClosed,
		now:    time.Now,
	}
}

// Name returns the breaker's resource identity.
func (b *Breaker) Name() string {
	return b.config.Name
}

// Allow reports whether a call may proceed. While half-open it also
// consumes one trial slot, so check it immediately before invoking the
// protected operation.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentStateLocked() {
	case StateOpen:
		return false
	case StateHalfOpen:
		if b.halfOpenTrials >= b.config.HalfOpenTrialLimit {
			return false
		}
		b.halfOpenTrials++
		return true
	default:
		return true
	}
}

// RecordSuccess records a successful terminal outcome. The first
// half-open success closes the breaker and resets all counters.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentStateLocked() {
	case StateClosed:
		b.consecutiveFailures = 0
	case StateHalfOpen:
		b.consecutiveFailures = 0
		b.halfOpenTrials = 0
		b.transitionLocked(StateClosed)
	}
}

// RecordFailure records a failed terminal outcome. Reaching the failure
// threshold opens the breaker; any half-open failure reopens it and
// restarts the recovery timeout.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailureTime = b.now()

	switch b.currentStateLocked() {
	case StateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.config.FailureThreshold {
			b.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		b.consecutiveFailures++
		b.transitionLocked(StateOpen)
	}
}

// State returns the current state, applying the open-to-half-open
// timeout transition if due.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentStateLocked()
}

// Reset forces the breaker back to closed and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	b.halfOpenTrials = 0
	if b.state != StateClosed {
		b.transitionLocked(StateClosed)
	}
}

// Snapshot returns the serializable state of this breaker.
func (b *Breaker) Snapshot() status.BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	return status.BreakerStatus{
		Name:                b.config.Name,
		Status:              b.currentStateLocked().String(),
		ConsecutiveFailures: b.consecutiveFailures,
		HalfOpenTrialsUsed:  b.halfOpenTrials,
		LastFailureTime:     b.lastFailureTime,
	}
}

// currentStateLocked evaluates the recovery timeout lazily: an open
// breaker whose timeout elapsed becomes half-open. Caller holds b.mu.
func (b *Breaker) currentStateLocked() State {
	if b.state == StateOpen && b.now().Sub(b.lastFailureTime) >= b.config.RecoveryTimeout {
		b.halfOpenTrials = 0
		b.transitionLocked(StateHalfOpen)
	}
	return b.state
}

// transitionLocked moves to the new state and fires the callback.
// Caller holds b.mu.
func (b *Breaker) transitionLocked(to State) {
	from := b.state
	b.state = to
	if from != to && b.config.OnStateChange != nil {
		b.config.OnStateChange(b.config.Name, from, to)
	}
}
