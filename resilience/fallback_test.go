package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/zedarvates/StoryCore-Engine-sub006/cache"
	"github.com/zedarvates/StoryCore-Engine-sub006/faults"
)

func failingOp(msg string) Operation {
	return func(ctx context.Context) (any, error) {
		return nil, errors.New(msg)
	}
}

func succeedingOp(value any) Operation {
	return func(ctx context.Context) (any, error) {
		return value, nil
	}
}

func TestChainExecutor_FallbackOrdering(t *testing.T) {
	exec := NewChainExecutor(nil, nil)

	chain := FallbackChain{
		Primary: failingOp("connection refused"),
		Fallbacks: []Fallback{
			{Op: failingOp("connection refused")},
			{Op: succeedingOp("low-res render")},
		},
	}

	result, err := exec.Execute(context.Background(), "render", chain, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Value != "low-res render" {
		t.Errorf("value = %v, want low-res render", result.Value)
	}
	if result.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", result.Attempts)
	}
	if result.StrategyUsed != "fallback2" {
		t.Errorf("strategy = %q, want fallback2", result.StrategyUsed)
	}
}

func TestChainExecutor_TotalFailureAggregates(t *testing.T) {
	exec := NewChainExecutor(nil, nil)

	chain := FallbackChain{
		Primary: failingOp("connection refused"),
		Fallbacks: []Fallback{
			{Name: "local", Op: failingOp("timed out")},
			{Name: "cached", Op: failingOp("validation failed")},
		},
	}

	_, err := exec.Execute(context.Background(), "render", chain, nil)
	if err == nil {
		t.Fatal("expected total failure")
	}

	var agg *faults.AggregatedError
	if !errors.As(err, &agg) {
		t.Fatalf("err type = %T", err)
	}
	if len(agg.Errors) != 3 {
		t.Fatalf("aggregate holds %d errors, want 3", len(agg.Errors))
	}

	wantCategories := []faults.Category{
		faults.CategoryNetwork,
		faults.CategoryTimeout,
		faults.CategoryValidation,
	}
	for i, want := range wantCategories {
		if got := agg.Errors[i].Category; got != want {
			t.Errorf("error %d category = %v, want %v (attempt order preserved)", i, got, want)
		}
	}
}

func TestChainExecutor_MaxAttemptsCapsChain(t *testing.T) {
	exec := NewChainExecutor(nil, nil)

	calls := 0
	counting := func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("connection refused")
	}

	chain := FallbackChain{
		Primary: counting,
		Fallbacks: []Fallback{
			{Op: counting},
			{Op: counting},
			{Op: counting},
		},
		MaxAttempts: 2,
	}

	_, err := exec.Execute(context.Background(), "render", chain, nil)
	if err == nil {
		t.Fatal("expected failure")
	}
	if calls != 2 {
		t.Errorf("invocations = %d, want 2 (capped)", calls)
	}
}

func TestChainExecutor_CancellationStopsChain(t *testing.T) {
	exec := NewChainExecutor(nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	fallbackRan := false

	chain := FallbackChain{
		Primary: func(ctx context.Context) (any, error) {
			cancel()
			return nil, errors.New("connection refused")
		},
		Fallbacks: []Fallback{
			{Op: func(ctx context.Context) (any, error) {
				fallbackRan = true
				return "late", nil
			}},
		},
	}

	_, err := exec.Execute(ctx, "render", chain, nil)
	if err == nil {
		t.Fatal("expected failure")
	}
	if fallbackRan {
		t.Error("fallback ran after cancellation")
	}
}

func TestCachedResult(t *testing.T) {
	store := cache.NewMemory(cache.Config{})
	key := cache.Key("render", map[string]string{"model": "sdxl"})

	fb := CachedResult(store, key)
	if fb.Name != "cached_result" {
		t.Errorf("name = %q", fb.Name)
	}

	// Empty cache: the fallback itself fails.
	_, err := fb.Op(context.Background())
	if !errors.Is(err, ErrNoCachedResult) {
		t.Fatalf("err = %v, want ErrNoCachedResult", err)
	}

	if err := store.Set(context.Background(), key, "last good frame", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, err := fb.Op(context.Background())
	if err != nil {
		t.Fatalf("Op: %v", err)
	}
	if value != "last good frame" {
		t.Errorf("value = %v", value)
	}
}

func TestCachedResult_AsTerminalFallback(t *testing.T) {
	store := cache.NewMemory(cache.Config{})
	key := cache.Key("render", nil)
	if err := store.Set(context.Background(), key, "stale but usable", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	exec := NewChainExecutor(nil, nil)
	chain := FallbackChain{
		Primary:   failingOp("connection refused"),
		Fallbacks: []Fallback{CachedResult(store, key)},
	}

	result, err := exec.Execute(context.Background(), "render", chain, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Value != "stale but usable" {
		t.Errorf("value = %v", result.Value)
	}
	if result.StrategyUsed != "cached_result" {
		t.Errorf("strategy = %q, want cached_result", result.StrategyUsed)
	}
}
