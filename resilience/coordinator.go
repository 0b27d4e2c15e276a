package resilience

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zedarvates/StoryCore-Engine-sub006/analytics"
	"github.com/zedarvates/StoryCore-Engine-sub006/cache"
	"github.com/zedarvates/StoryCore-Engine-sub006/faults"
	"github.com/zedarvates/StoryCore-Engine-sub006/observe"
	"github.com/zedarvates/StoryCore-Engine-sub006/status"
)

// Policy bundles the protections applied to one Execute call. Callers
// build it once per operation type and reuse it for every call.
type Policy struct {
	// Retry configures the retry loop.
	Retry RetryPolicy

	// Breaker configures the resource's circuit breaker. Used only the
	// first time a given resource name is seen; the name field is set
	// from the Execute argument.
	Breaker BreakerConfig

	// Chain supplies fallback operations tried after retries, recovery,
	// and the breaker have all given up. Optional.
	Chain *FallbackChain

	// Bulkhead caps concurrent calls against the resource. Optional.
	Bulkhead *BulkheadConfig

	// Throttle caps the call rate against the resource. Optional.
	Throttle *ThrottleConfig
}

// Config configures the Coordinator.
type Config struct {
	// Classifier maps raised failures to ErrorInfo. A nil classifier
	// gets the default rule table.
	Classifier *faults.Classifier

	// Analytics receives every classified failure and attempt outcome.
	// Optional.
	Analytics *analytics.Recorder

	// Middleware wraps every protected call with tracing, metrics, and
	// logging. Defaults to a no-op middleware.
	Middleware *observe.Middleware

	// Cache, when set, is refreshed with the result of every successful
	// call, keyed by cache.Key(name, opCtx). Pair with CachedResult
	// fallbacks. Optional.
	Cache cache.Cache

	// RecoverCritical allows recovery procedures to run for critical
	// failures. By default critical failures go straight to fallback.
	RecoverCritical bool
}

// Coordinator is the facade composing the breaker registry, retry
// executor, recovery manager, fallback executor, and analytics behind a
// single Execute entry point.
//
// Contract:
//   - Concurrency: safe for concurrent use. Breakers are created
//     lazily, one per resource name, and live for the coordinator's
//     lifetime unless removed.
//   - Ordering: within one Execute call the stages run strictly as
//     gate, retry, recovery, fallback, report.
//   - Cancellation: honored between stages and between attempts;
//     recovery is never consulted after cancellation.
type Coordinator struct {
	config     Config
	classifier *faults.Classifier
	reporter   Reporter
	retry      *Executor
	chains     *ChainExecutor
	recovery   *RecoveryManager
	mw         *observe.Middleware

	mu        sync.Mutex
	breakers  map[string]*Breaker
	bulkheads map[string]*Bulkhead
	throttles map[string]*Throttle
}

// NewCoordinator creates a coordinator. All collaborators are owned by
// the returned instance; two coordinators never share breaker state.
func NewCoordinator(config Config) *Coordinator {
	if config.Classifier == nil {
		config.Classifier = faults.NewClassifier()
	}
	if config.Middleware == nil {
		config.Middleware = observe.NopMiddleware()
	}

	var reporter Reporter
	if config.Analytics != nil {
		reporter = config.Analytics
	}

	return &Coordinator{
		config:     config,
		classifier: config.Classifier,
		reporter:   reporter,
		retry:      NewExecutor(config.Classifier, reporter),
		chains:     NewChainExecutor(config.Classifier, reporter),
		recovery:   NewRecoveryManager(),
		mw:         config.Middleware,
		breakers:   make(map[string]*Breaker),
		bulkheads:  make(map[string]*Bulkhead),
		throttles:  make(map[string]*Throttle),
	}
}

// RegisterRecovery adds a recovery procedure for the category. Call at
// startup; the registry is read-only once traffic flows.
func (c *Coordinator) RegisterRecovery(category faults.Category, fn RecoveryFunc, guards ...Guard) error {
	return c.recovery.Register(category, fn, guards...)
}

// Execute runs op under the named resource's protections. It returns
// the first successful result, or the terminal failure: a
// *faults.AggregatedError carrying every classified attempt, or a
// single *faults.ErrorInfo when nothing was invoked (open breaker,
// throttle or bulkhead rejection).
func (c *Coordinator) Execute(ctx context.Context, name string, op Operation, policy Policy, opCtx map[string]string) (*Result, error) {
	if op == nil {
		return nil, ErrNilOperation
	}

	meta := observe.OpMeta{Resource: name}
	if opCtx != nil {
		meta.Operation = opCtx["operation"]
		meta.Backend = opCtx["backend"]
	}

	wrapped := c.mw.Wrap(func(ctx context.Context, _ observe.OpMeta) (any, error) {
		return c.run(ctx, name, op, policy, opCtx)
	})

	value, err := wrapped(ctx, meta)
	result, _ := value.(*Result)
	return result, err
}

// run executes the protection pipeline for one call.
func (c *Coordinator) run(ctx context.Context, name string, op Operation, policy Policy, opCtx map[string]string) (*Result, error) {
	// Admission: throttle, then bulkhead.
	if policy.Throttle != nil {
		if !c.throttle(name, *policy.Throttle).Allow() {
			return nil, c.reject(faults.Tag(ErrThrottled, faults.CategoryResourceExhaustion), opCtx)
		}
	}
	if policy.Bulkhead != nil {
		bh := c.bulkhead(name, *policy.Bulkhead)
		if err := bh.Acquire(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, c.reject(faults.Tag(err, faults.CategoryResourceExhaustion), opCtx)
		}
		defer bh.Release()
	}

	// Breaker gate. An open breaker fails fast: the operation is not
	// invoked, no retry, no recovery.
	breaker := c.breaker(name, policy.Breaker)
	if !breaker.Allow() {
		c.mw.Metrics().RecordFailFast(ctx, name)
		return nil, c.reject(ErrCircuitOpen, opCtx)
	}

	result, agg := c.attemptAll(ctx, name, op, policy, opCtx)

	// Terminal outcome feeds the breaker last, after every stage ran.
	if result != nil {
		breaker.RecordSuccess()
		c.refreshCache(ctx, name, opCtx, result.Value)
		return result, nil
	}
	breaker.RecordFailure()
	return nil, agg
}

// attemptAll runs retry, recovery, and fallback in order. It returns
// either a result or the full aggregate of classified failures.
func (c *Coordinator) attemptAll(ctx context.Context, name string, op Operation, policy Policy, opCtx map[string]string) (*Result, *faults.AggregatedError) {
	value, attempts, err := c.retry.Execute(ctx, name, op, policy.Retry, opCtx)
	if err == nil {
		return &Result{Value: value, Attempts: attempts, StrategyUsed: StrategyPrimary}, nil
	}

	agg, ok := err.(*faults.AggregatedError)
	if !ok {
		// Only ErrNilOperation reaches here; guard upstream makes this
		// unreachable in practice.
		agg = faults.NewAggregatedError(name, c.classifier.Classify(err, opCtx))
	}

	// Recovery gets a single shot per failure instance, and on success
	// grants exactly one extra invocation, not a fresh retry budget.
	if ctx.Err() == nil && c.shouldRecover(agg.Last()) {
		if c.recovery.AttemptRecovery(ctx, agg.Last()) {
			c.mw.Logger().WithOp(observe.OpMeta{Resource: name}).Info(ctx, "recovery succeeded, granting one extra attempt")
			value, err := c.retry.attempt(ctx, op, policy.Retry.AttemptTimeout)
			attempts++
			if err == nil {
				if c.reporter != nil {
					c.reporter.RecordAttempt(name, true)
				}
				return &Result{Value: value, Attempts: attempts, StrategyUsed: StrategyRecovery}, nil
			}
			info := c.classifier.Classify(err, opCtx)
			agg.Append(info)
			if c.reporter != nil {
				c.reporter.Record(info)
				c.reporter.RecordAttempt(name, false)
			}
		}
	}

	if policy.Chain != nil && ctx.Err() == nil {
		// The primary already consumed its retry budget; only the
		// fallbacks run here. The aggregate keeps accumulating so the
		// caller sees the full attempt history.
		chain := *policy.Chain
		chain.Primary = nil
		if result, err := c.chains.run(ctx, name, chain, opCtx, agg, attempts); err == nil {
			return result, nil
		}
	}

	return nil, agg
}

// shouldRecover applies the propagation policy: validation and
// authentication failures are never routed through recovery, and
// critical failures skip it unless configured otherwise.
func (c *Coordinator) shouldRecover(info *faults.ErrorInfo) bool {
	if info == nil {
		return false
	}
	switch info.Category {
	case faults.CategoryValidation, faults.CategoryAuthentication:
		return false
	}
	if info.Severity == faults.SeverityCritical && !c.config.RecoverCritical {
		return false
	}
	return true
}

// reject classifies and records a failure produced by the engine itself
// (open breaker, throttle or bulkhead saturation).
func (c *Coordinator) reject(err error, opCtx map[string]string) *faults.ErrorInfo {
	info := c.classifier.Classify(err, opCtx)
	if c.reporter != nil {
		c.reporter.Record(info)
	}
	return info
}

func (c *Coordinator) refreshCache(ctx context.Context, name string, opCtx map[string]string, value any) {
	if c.config.Cache == nil {
		return
	}
	// Best effort; a full cache never fails the call that produced the
	// value.
	_ = c.config.Cache.Set(ctx, cache.Key(name, opCtx), value, 0)
}

// breaker returns the breaker for name, creating it from config on
// first use.
func (c *Coordinator) breaker(name string, config BreakerConfig) *Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.breakers[name]; ok {
		return b
	}

	config.Name = name
	userHook := config.OnStateChange
	config.OnStateChange = func(name string, from, to State) {
		c.mw.Metrics().RecordBreakerTransition(context.Background(), name, from.String(), to.String())
		c.mw.Logger().Warn(context.Background(), "breaker state changed",
			observe.Field{Key: "breaker", Value: name},
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: to.String()},
		)
		if userHook != nil {
			userHook(name, from, to)
		}
	}

	b := NewBreaker(config)
	c.breakers[name] = b
	return b
}

// Breaker returns the breaker registered for name, or nil.
func (c *Coordinator) Breaker(name string) *Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.breakers[name]
}

// ResetBreaker forces the named breaker back to closed. A no-op for
// unknown names.
func (c *Coordinator) ResetBreaker(name string) {
	if b := c.Breaker(name); b != nil {
		b.Reset()
	}
}

// RemoveBreaker drops the named breaker from the registry. The next
// Execute for the name starts a fresh one.
func (c *Coordinator) RemoveBreaker(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.breakers, name)
}

func (c *Coordinator) bulkhead(name string, config BulkheadConfig) *Bulkhead {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.bulkheads[name]; ok {
		return b
	}
	b := NewBulkhead(config)
	c.bulkheads[name] = b
	return b
}

func (c *Coordinator) throttle(name string, config ThrottleConfig) *Throttle {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.throttles[name]; ok {
		return t
	}
	t := NewThrottle(config)
	c.throttles[name] = t
	return t
}

// Status returns a serializable snapshot of every breaker, the
// per-operation retry counters, and the recent error report. Implements
// status.Provider.
func (c *Coordinator) Status() status.Snapshot {
	c.mu.Lock()
	breakers := make([]*Breaker, 0, len(c.breakers))
	for _, b := range c.breakers {
		breakers = append(breakers, b)
	}
	c.mu.Unlock()

	snap := status.Snapshot{Timestamp: time.Now()}
	for _, b := range breakers {
		snap.Breakers = append(snap.Breakers, b.Snapshot())
	}
	sort.Slice(snap.Breakers, func(i, j int) bool {
		return snap.Breakers[i].Name < snap.Breakers[j].Name
	})

	if c.config.Analytics != nil {
		snap.Operations = c.config.Analytics.OperationStats()
		snap.RecentErrors = c.config.Analytics.Summary(0)
	}
	return snap
}

var _ status.Provider = (*Coordinator)(nil)
