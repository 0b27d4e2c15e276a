package resilience

import (
	"context"
	"fmt"

	"github.com/zedarvates/StoryCore-Engine-sub006/cache"
	"github.com/zedarvates/StoryCore-Engine-sub006/faults"
)

// StrategyPrimary is the Result.StrategyUsed value when the primary
// operation itself succeeded.
const StrategyPrimary = "primary"

// StrategyRecovery is the Result.StrategyUsed value when the extra
// post-recovery invocation succeeded.
const StrategyRecovery = "recovery"

// Fallback is one named alternative operation in a chain.
type Fallback struct {
	// Name identifies the strategy in results and logs. Empty names
	// default to "fallback<index>".
	Name string

	// Op is the alternative operation.
	Op Operation
}

// FallbackChain is an ordered list of alternatives tried after the
// primary operation fails. Constructed per call site; stateless beyond
// its own invocation.
type FallbackChain struct {
	// Primary is the preferred operation. May be nil when the chain only
	// supplies alternatives for an operation executed elsewhere.
	Primary Operation

	// Fallbacks are tried in order after the primary fails.
	Fallbacks []Fallback

	// MaxAttempts caps total attempts including the primary.
	// Default: len(Fallbacks)+1
	MaxAttempts int
}

// Result is the successful outcome of a protected call.
type Result struct {
	// Value is whatever the succeeding operation returned.
	Value any

	// Attempts is the total number of operation invocations consumed,
	// including retries of the primary.
	Attempts int

	// StrategyUsed identifies the succeeding operation: "primary",
	// "recovery", or the fallback's name.
	StrategyUsed string
}

// ChainExecutor runs fallback chains, classifying every failure.
// Stateless apart from its collaborators; safe for concurrent use.
type ChainExecutor struct {
	classifier *faults.Classifier
	reporter   Reporter
}

// NewChainExecutor creates a fallback chain executor. A nil classifier
// gets the default rule table; a nil reporter disables telemetry.
func NewChainExecutor(classifier *faults.Classifier, reporter Reporter) *ChainExecutor {
	if classifier == nil {
		classifier = faults.NewClassifier()
	}
	return &ChainExecutor{classifier: classifier, reporter: reporter}
}

// Execute attempts the chain's primary, then each fallback in order,
// until one succeeds or the attempt cap is reached. Total failure
// returns a *faults.AggregatedError with every classified failure in
// attempt order.
func (e *ChainExecutor) Execute(ctx context.Context, operation string, chain FallbackChain, opCtx map[string]string) (*Result, error) {
	agg := faults.NewAggregatedError(operation)
	return e.run(ctx, operation, chain, opCtx, agg, 0)
}

// run executes the chain on top of an existing aggregate. attempts is
// the number of invocations already consumed by the caller; it counts
// toward Result.Attempts but not toward chain.MaxAttempts.
func (e *ChainExecutor) run(ctx context.Context, operation string, chain FallbackChain, opCtx map[string]string, agg *faults.AggregatedError, attempts int) (*Result, error) {
	maxAttempts := chain.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = len(chain.Fallbacks) + 1
	}

	candidates := make([]Fallback, 0, len(chain.Fallbacks)+1)
	if chain.Primary != nil {
		candidates = append(candidates, Fallback{Name: StrategyPrimary, Op: chain.Primary})
	}
	for i, fb := range chain.Fallbacks {
		if fb.Name == "" {
			fb.Name = fmt.Sprintf("fallback%d", i+1)
		}
		candidates = append(candidates, fb)
	}

	used := 0
	for _, candidate := range candidates {
		if used >= maxAttempts {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if candidate.Op == nil {
			continue
		}
		used++
		attempts++

		value, err := candidate.Op(ctx)
		if err == nil {
			if e.reporter != nil {
				e.reporter.RecordAttempt(operation, true)
			}
			return &Result{Value: value, Attempts: attempts, StrategyUsed: candidate.Name}, nil
		}

		info := e.classifier.Classify(err, opCtx)
		agg.Append(info)
		if e.reporter != nil {
			e.reporter.Record(info)
			e.reporter.RecordAttempt(operation, false)
		}
	}

	if len(agg.Errors) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNilOperation
	}
	return nil, agg
}

// CachedResult builds a terminal fallback that serves the last known
// good value for key from c. Pair it with Coordinator Config.Cache,
// which refreshes the entry on every success.
func CachedResult(c cache.Cache, key string) Fallback {
	return Fallback{
		Name: "cached_result",
		Op: func(ctx context.Context) (any, error) {
			if c != nil {
				if value, ok := c.Get(ctx, key); ok {
					return value, nil
				}
			}
			return nil, fmt.Errorf("%w: %q", ErrNoCachedResult, key)
		},
	}
}
