package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zedarvates/StoryCore-Engine-sub006/faults"
)

// fakeReporter records telemetry for assertions.
type fakeReporter struct {
	mu        sync.Mutex
	records   []*faults.ErrorInfo
	attempts  int
	successes int
	failures  int
}

func (f *fakeReporter) Record(info *faults.ErrorInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, info)
}

func (f *fakeReporter) RecordAttempt(_ string, success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if success {
		f.successes++
	} else {
		f.failures++
	}
}

func (f *fakeReporter) counts() (attempts, successes, failures int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts, f.successes, f.failures
}

func TestRetryPolicy_ExponentialSequence(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 5,
		Strategy:    StrategyExponential,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    1000 * time.Millisecond,
	}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
	}
	for n, w := range want {
		if got := policy.Delay(n); got != w {
			t.Errorf("Delay(%d) = %v, want %v", n, got, w)
		}
	}

	// Capped thereafter.
	if got := policy.Delay(4); got != 1000*time.Millisecond {
		t.Errorf("Delay(4) = %v, want 1s cap", got)
	}
	if got := policy.Delay(10); got != 1000*time.Millisecond {
		t.Errorf("Delay(10) = %v, want 1s cap", got)
	}
}

func TestRetryPolicy_FixedDelay(t *testing.T) {
	policy := RetryPolicy{Strategy: StrategyFixed, BaseDelay: 250 * time.Millisecond}
	for n := 0; n < 5; n++ {
		if got := policy.Delay(n); got != 250*time.Millisecond {
			t.Errorf("Delay(%d) = %v, want 250ms", n, got)
		}
	}
}

func TestRetryPolicy_JitterBounds(t *testing.T) {
	policy := RetryPolicy{
		Strategy:  StrategyExponentialJitter,
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  1000 * time.Millisecond,
	}
	exponential := RetryPolicy{
		Strategy:  StrategyExponential,
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  1000 * time.Millisecond,
	}

	for n := 0; n < 6; n++ {
		upper := exponential.Delay(n)
		for i := 0; i < 100; i++ {
			d := policy.Delay(n)
			if d < 0 || d > upper {
				t.Fatalf("Delay(%d) = %v, want within [0, %v]", n, d, upper)
			}
		}
	}
}

func TestExecutor_SucceedsAfterFailures(t *testing.T) {
	reporter := &fakeReporter{}
	exec := NewExecutor(nil, reporter)

	calls := 0
	op := func(ctx context.Context) (any, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection refused")
		}
		return "rendered", nil
	}

	value, attempts, err := exec.Execute(context.Background(), "render", op,
		RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if value != "rendered" {
		t.Errorf("value = %v, want rendered", value)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}

	a, s, f := reporter.counts()
	if a != 3 || s != 1 || f != 2 {
		t.Errorf("reporter counts = %d/%d/%d, want 3/1/2", a, s, f)
	}
}

func TestExecutor_ExhaustionAggregates(t *testing.T) {
	exec := NewExecutor(nil, nil)

	op := func(ctx context.Context) (any, error) {
		return nil, errors.New("connection refused by backend")
	}

	_, attempts, err := exec.Execute(context.Background(), "render", op,
		RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, nil)
	if err == nil {
		t.Fatal("expected terminal failure")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}

	var agg *faults.AggregatedError
	if !errors.As(err, &agg) {
		t.Fatalf("err type = %T, want *faults.AggregatedError", err)
	}
	if len(agg.Errors) != 3 {
		t.Fatalf("aggregate holds %d errors, want 3", len(agg.Errors))
	}
	for i, info := range agg.Errors {
		if info.Category != faults.CategoryNetwork {
			t.Errorf("error %d category = %v, want network", i, info.Category)
		}
	}
	if agg.Operation != "render" {
		t.Errorf("operation = %q, want render", agg.Operation)
	}
}

func TestExecutor_NonRetryableStopsImmediately(t *testing.T) {
	exec := NewExecutor(nil, nil)

	calls := 0
	op := func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("validation failed: prompt too long")
	}

	_, attempts, err := exec.Execute(context.Background(), "render", op,
		RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}, nil)
	if err == nil {
		t.Fatal("expected failure")
	}
	if calls != 1 || attempts != 1 {
		t.Errorf("calls = %d, attempts = %d, want 1 each", calls, attempts)
	}

	var agg *faults.AggregatedError
	if !errors.As(err, &agg) {
		t.Fatalf("err type = %T", err)
	}
	if agg.Last().Category != faults.CategoryValidation {
		t.Errorf("category = %v, want validation", agg.Last().Category)
	}
}

func TestExecutor_AttemptTimeoutClassifiesAsTimeout(t *testing.T) {
	exec := NewExecutor(nil, nil)

	op := func(ctx context.Context) (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return "too late", nil
		}
	}

	_, _, err := exec.Execute(context.Background(), "render", op, RetryPolicy{
		MaxAttempts:    2,
		BaseDelay:      time.Millisecond,
		AttemptTimeout: 5 * time.Millisecond,
	}, nil)
	if err == nil {
		t.Fatal("expected failure")
	}

	var agg *faults.AggregatedError
	if !errors.As(err, &agg) {
		t.Fatalf("err type = %T", err)
	}
	if got := agg.Last().Category; got != faults.CategoryTimeout {
		t.Errorf("category = %v, want timeout", got)
	}
}

func TestExecutor_CancellationAbortsBeforeNextAttempt(t *testing.T) {
	exec := NewExecutor(nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	op := func(ctx context.Context) (any, error) {
		calls++
		cancel()
		return nil, errors.New("connection refused")
	}

	_, attempts, err := exec.Execute(ctx, "render", op,
		RetryPolicy{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond}, nil)
	if err == nil {
		t.Fatal("expected failure")
	}
	if calls != 1 || attempts != 1 {
		t.Errorf("calls = %d, attempts = %d, want 1 each", calls, attempts)
	}
}

func TestExecutor_OnRetryCallback(t *testing.T) {
	exec := NewExecutor(nil, nil)

	var delays []time.Duration
	policy := RetryPolicy{
		MaxAttempts: 3,
		Strategy:    StrategyFixed,
		BaseDelay:   time.Millisecond,
		OnRetry: func(attempt int, info *faults.ErrorInfo, delay time.Duration) {
			if info == nil {
				t.Error("OnRetry received nil info")
			}
			delays = append(delays, delay)
		},
	}

	op := func(ctx context.Context) (any, error) {
		return nil, errors.New("connection refused")
	}

	_, _, _ = exec.Execute(context.Background(), "render", op, policy, nil)
	if len(delays) != 2 {
		t.Fatalf("OnRetry fired %d times, want 2", len(delays))
	}
}

func TestExecutor_NilOperation(t *testing.T) {
	exec := NewExecutor(nil, nil)
	_, _, err := exec.Execute(context.Background(), "render", nil, RetryPolicy{}, nil)
	if !errors.Is(err, ErrNilOperation) {
		t.Fatalf("err = %v, want ErrNilOperation", err)
	}
}
