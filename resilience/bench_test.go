package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func BenchmarkBreakerAllow(b *testing.B) {
	breaker := NewBreaker(BreakerConfig{Name: "bench"})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		breaker.Allow()
	}
}

func BenchmarkBreakerRecordSuccess(b *testing.B) {
	breaker := NewBreaker(BreakerConfig{Name: "bench"})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		breaker.RecordSuccess()
	}
}

func BenchmarkRetryPolicyDelay(b *testing.B) {
	policy := RetryPolicy{
		Strategy:  StrategyExponentialJitter,
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  time.Second,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		policy.Delay(i % 8)
	}
}

func BenchmarkCoordinatorExecuteSuccess(b *testing.B) {
	coord := NewCoordinator(Config{})
	op := func(ctx context.Context) (any, error) { return "ok", nil }
	policy := Policy{Retry: RetryPolicy{MaxAttempts: 1}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := coord.Execute(context.Background(), "bench", op, policy, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCoordinatorExecuteOpenBreaker(b *testing.B) {
	coord := NewCoordinator(Config{})
	policy := Policy{
		Retry:   RetryPolicy{MaxAttempts: 1, BaseDelay: time.Microsecond},
		Breaker: BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour},
	}
	failing := func(ctx context.Context) (any, error) {
		return nil, errors.New("connection refused")
	}

	// Open the breaker, then measure the fail-fast path.
	_, _ = coord.Execute(context.Background(), "bench", failing, policy, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = coord.Execute(context.Background(), "bench", failing, policy, nil)
	}
}

func BenchmarkBulkheadAcquireRelease(b *testing.B) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 64})
	ctx := context.Background()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if err := bh.Acquire(ctx); err == nil {
				bh.Release()
			}
		}
	})
}

func BenchmarkThrottleAllow(b *testing.B) {
	th := NewThrottle(ThrottleConfig{Rate: 1e9, Burst: 1 << 20})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		th.Allow()
	}
}
