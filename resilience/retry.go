package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/zedarvates/StoryCore-Engine-sub006/faults"
)

// Operation is a protected call. It must return a non-nil error on
// failure; the engine never inspects the returned value.
type Operation func(ctx context.Context) (any, error)

// Reporter receives per-failure and per-attempt telemetry. Implemented
// by *analytics.Recorder.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Reporter interface {
	// Record ingests one classified failure.
	Record(info *faults.ErrorInfo)

	// RecordAttempt ingests one attempt outcome for a named operation.
	RecordAttempt(operation string, success bool)
}

// Strategy defines how delays grow between retry attempts.
type Strategy int

const (
	// StrategyFixed waits BaseDelay between every attempt.
	StrategyFixed Strategy = iota
	// StrategyExponential doubles the delay each attempt, capped at MaxDelay.
	StrategyExponential
	// StrategyExponentialJitter draws a uniform delay in [0, exponential].
	StrategyExponentialJitter
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyFixed:
		return "fixed"
	case StrategyExponential:
		return "exponential"
	case StrategyExponentialJitter:
		return "exponential_jitter"
	default:
		return "unknown"
	}
}

// RetryPolicy configures the retry behavior for one operation type.
// Immutable; supplied by the caller per call.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// Strategy is the backoff strategy.
	// Default: StrategyFixed
	Strategy Strategy

	// BaseDelay is the delay before the first retry.
	// Default: 100ms
	BaseDelay time.Duration

	// MaxDelay caps the computed delay between retries.
	// Default: 30s
	MaxDelay time.Duration

	// AttemptTimeout bounds each individual attempt. The resulting
	// deadline error classifies as a timeout through the normal path.
	// Default: 0 (no per-attempt timeout)
	AttemptTimeout time.Duration

	// OnRetry is called before each retry suspension.
	OnRetry func(attempt int, info *faults.ErrorInfo, delay time.Duration)
}

// withDefaults returns a copy with defaults applied.
func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	return p
}

// Delay computes the suspension before retry number attempt (the first
// retry is attempt 0). Jitter draws uniformly from [0, exponential].
func (p RetryPolicy) Delay(attempt int) time.Duration {
	p = p.withDefaults()

	switch p.Strategy {
	case StrategyFixed:
		return p.BaseDelay

	case StrategyExponential, StrategyExponentialJitter:
		delay := p.BaseDelay
		for i := 0; i < attempt; i++ {
			delay *= 2
			if delay >= p.MaxDelay {
				delay = p.MaxDelay
				break
			}
		}
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
		if p.Strategy == StrategyExponentialJitter && delay > 0 {
			// #nosec G404 -- jitter is non-cryptographic timing variance.
			delay = time.Duration(rand.Int64N(int64(delay) + 1))
		}
		return delay

	default:
		return p.BaseDelay
	}
}

// Executor retries operations per a RetryPolicy, classifying every
// failure. Stateless apart from its collaborators; safe for concurrent
// use.
type Executor struct {
	classifier *faults.Classifier
	reporter   Reporter
}

// NewExecutor creates a retry executor. A nil classifier gets the
// default rule table; a nil reporter disables telemetry.
func NewExecutor(classifier *faults.Classifier, reporter Reporter) *Executor {
	if classifier == nil {
		classifier = faults.NewClassifier()
	}
	return &Executor{classifier: classifier, reporter: reporter}
}

// Execute runs op until success, exhaustion, or a non-retryable
// classification. On success it returns the operation's value and the
// number of attempts consumed. On terminal failure the error is a
// *faults.AggregatedError carrying every classified attempt in order.
//
// Cancellation aborts the loop before the next attempt; the aggregate
// collected so far is returned.
func (e *Executor) Execute(ctx context.Context, operation string, op Operation, policy RetryPolicy, opCtx map[string]string) (any, int, error) {
	if op == nil {
		return nil, 0, ErrNilOperation
	}
	policy = policy.withDefaults()

	agg := faults.NewAggregatedError(operation)

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		value, err := e.attempt(ctx, op, policy.AttemptTimeout)
		if err == nil {
			if e.reporter != nil {
				e.reporter.RecordAttempt(operation, true)
			}
			return value, attempt + 1, nil
		}

		info := e.classifier.Classify(err, opCtx)
		agg.Append(info)
		if e.reporter != nil {
			e.reporter.Record(info)
			e.reporter.RecordAttempt(operation, false)
		}

		if !info.Retryable || attempt+1 == policy.MaxAttempts {
			break
		}

		delay := policy.Delay(attempt)
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, info, delay)
		}

		select {
		case <-ctx.Done():
			return nil, attempt + 1, agg
		case <-time.After(delay):
		}
	}

	return nil, len(agg.Errors), agg
}

// attempt runs one invocation, bounded by the per-attempt timeout when
// configured.
func (e *Executor) attempt(ctx context.Context, op Operation, timeout time.Duration) (any, error) {
	if timeout <= 0 {
		return op(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(ctx)
}
