package analytics

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/zedarvates/StoryCore-Engine-sub006/faults"
)

// Config configures the analytics recorder.
type Config struct {
	// Window is how far back Summary and DetectPatterns look.
	// Default: 5 minutes.
	Window time.Duration

	// Bucket is the granularity of the sliding window.
	// Default: 1 minute.
	Bucket time.Duration

	// PatternThreshold is the windowed count of one signature that
	// triggers a pattern alert. Default: 10.
	PatternThreshold int

	// PruneInterval is how often the background pruner runs when
	// started. Default: one bucket.
	PruneInterval time.Duration

	// Meter emits mirror counters to OpenTelemetry. Optional; a noop
	// meter is used when nil.
	Meter metric.Meter
}

type catSevKey struct {
	category faults.Category
	severity faults.Severity
}

// bucket accumulates one bucket-interval of failures.
type bucket struct {
	counts     map[catSevKey]int
	signatures map[uint64]int
	samples    map[uint64]sigSample
}

type sigSample struct {
	category faults.Category
	message  string
}

func newBucket() *bucket {
	return &bucket{
		counts:     make(map[catSevKey]int),
		signatures: make(map[uint64]int),
		samples:    make(map[uint64]sigSample),
	}
}

type opCounters struct {
	attempts  int64
	successes int64
	failures  int64
}

// Recorder ingests classified failures and per-operation retry
// counters. Safe for concurrent use; all state sits behind one mutex.
type Recorder struct {
	config Config

	mu      sync.Mutex
	buckets map[int64]*bucket
	ops     map[string]*opCounters
	// alerted tracks signatures already flagged, so one systemic issue
	// produces one alert instead of one per DetectPatterns call.
	alerted map[uint64]bool

	now func() time.Time

	errorCount   metric.Int64Counter
	attemptCount metric.Int64Counter
}

// New creates a Recorder. The error is non-nil only when the supplied
// meter rejects instrument creation.
func New(config Config) (*Recorder, error) {
	if config.Window <= 0 {
		config.Window = 5 * time.Minute
	}
	if config.Bucket <= 0 {
		config.Bucket = time.Minute
	}
	if config.Bucket > config.Window {
		config.Bucket = config.Window
	}
	if config.PatternThreshold <= 0 {
		config.PatternThreshold = 10
	}
	if config.PruneInterval <= 0 {
		config.PruneInterval = config.Bucket
	}
	if config.Meter == nil {
		config.Meter = noop.NewMeterProvider().Meter("noop")
	}

	r := &Recorder{
		config:  config,
		buckets: make(map[int64]*bucket),
		ops:     make(map[string]*opCounters),
		alerted: make(map[uint64]bool),
		now:     time.Now,
	}

	var err error
	r.errorCount, err = config.Meter.Int64Counter(
		"resilience.errors",
		metric.WithDescription("Classified failures recorded by the engine"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}
	r.attemptCount, err = config.Meter.Int64Counter(
		"resilience.attempts",
		metric.WithDescription("Operation attempts per protected call"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Record ingests one classified failure.
func (r *Recorder) Record(info *faults.ErrorInfo) {
	if info == nil {
		return
	}
	sig := Signature(info)
	idx := r.bucketIndex(r.now())

	r.mu.Lock()
	b, ok := r.buckets[idx]
	if !ok {
		b = newBucket()
		r.buckets[idx] = b
		r.pruneLocked(idx)
	}
	b.counts[catSevKey{info.Category, info.Severity}]++
	b.signatures[sig]++
	if _, ok := b.samples[sig]; !ok {
		b.samples[sig] = sigSample{category: info.Category, message: info.Message}
	}
	r.mu.Unlock()

	r.errorCount.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("category", info.Category.String()),
		attribute.String("severity", info.Severity.String()),
	))
}

// RecordAttempt ingests one attempt outcome for a named operation.
func (r *Recorder) RecordAttempt(operation string, success bool) {
	r.mu.Lock()
	c, ok := r.ops[operation]
	if !ok {
		c = &opCounters{}
		r.ops[operation] = c
	}
	c.attempts++
	if success {
		c.successes++
	} else {
		c.failures++
	}
	r.mu.Unlock()

	r.attemptCount.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	))
}

// Summary aggregates the failures recorded within the given window.
// window=0 uses the configured window; longer windows are clamped to it.
func (r *Recorder) Summary(window time.Duration) Report {
	if window <= 0 || window > r.config.Window {
		window = r.config.Window
	}
	now := r.now()
	oldest := r.bucketIndex(now.Add(-window))

	totals := make(map[catSevKey]int)

	r.mu.Lock()
	for idx, b := range r.buckets {
		if idx < oldest {
			continue
		}
		for k, n := range b.counts {
			totals[k] += n
		}
	}
	r.mu.Unlock()

	report := Report{
		Window:      window,
		GeneratedAt: now,
	}
	for k, n := range totals {
		report.Total += n
		report.Counts = append(report.Counts, CategoryCount{
			Category:     k.category,
			Severity:     k.severity,
			Count:        n,
			CategoryName: k.category.String(),
			SeverityName: k.severity.String(),
		})
	}
	sort.Slice(report.Counts, func(i, j int) bool {
		if report.Counts[i].Count != report.Counts[j].Count {
			return report.Counts[i].Count > report.Counts[j].Count
		}
		return report.Counts[i].CategoryName < report.Counts[j].CategoryName
	})
	return report
}

// OperationStats returns the per-operation retry counters, sorted by
// operation name.
func (r *Recorder) OperationStats() []OperationStats {
	r.mu.Lock()
	stats := make([]OperationStats, 0, len(r.ops))
	for name, c := range r.ops {
		stats = append(stats, OperationStats{
			Operation: name,
			Attempts:  c.attempts,
			Successes: c.successes,
			Failures:  c.failures,
		})
	}
	r.mu.Unlock()

	sort.Slice(stats, func(i, j int) bool { return stats[i].Operation < stats[j].Operation })
	return stats
}

// StartPruning runs the background pruner until ctx is canceled. This
// is the only goroutine the engine spawns; Record also prunes lazily,
// so running it is optional.
func (r *Recorder) StartPruning(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.config.PruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Prune()
			}
		}
	}()
}

// Prune drops buckets that fell out of the window.
func (r *Recorder) Prune() {
	idx := r.bucketIndex(r.now())
	r.mu.Lock()
	r.pruneLocked(idx)
	r.mu.Unlock()
}

func (r *Recorder) bucketIndex(t time.Time) int64 {
	return t.UnixNano() / int64(r.config.Bucket)
}

// pruneLocked removes buckets older than the window relative to the
// current bucket index. Caller holds r.mu.
func (r *Recorder) pruneLocked(current int64) {
	span := int64(r.config.Window / r.config.Bucket)
	for idx := range r.buckets {
		if idx < current-span {
			delete(r.buckets, idx)
		}
	}
}
