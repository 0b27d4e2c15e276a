// Package resilience guards calls from a content-generation pipeline to
// unreliable backends (image/video/LLM services) against transient and
// persistent failures.
//
// The package composes six cooperating pieces:
//
//   - Executor: retries an operation per a RetryPolicy, classifying
//     every failure through faults.Classifier.
//
//   - Breaker: a per-resource circuit breaker that fails fast once a
//     dependency is judged chronically unhealthy.
//
//   - ChainExecutor: runs an ordered fallback chain until one candidate
//     succeeds.
//
//   - RecoveryManager: dispatches category-keyed recovery procedures at
//     most once per classified failure.
//
//   - Bulkhead and Throttle: bound concurrency and request rate per
//     resource.
//
//   - Coordinator: ties everything together behind a single Execute
//     entry point and exposes a status snapshot.
//
// # Usage
//
// Typical usage goes through the Coordinator:
//
//	coord := resilience.NewCoordinator(resilience.Config{
//	    Analytics: recorder,
//	})
//
//	result, err := coord.Execute(ctx, "comfyui", renderOp, resilience.Policy{
//	    Retry: resilience.RetryPolicy{
//	        MaxAttempts: 4,
//	        Strategy:    resilience.StrategyExponentialJitter,
//	    },
//	    Breaker: resilience.BreakerConfig{
//	        FailureThreshold: 5,
//	        RecoveryTimeout:  30 * time.Second,
//	    },
//	}, map[string]string{"model": "sdxl"})
//
// Each piece can also be used independently; the Coordinator adds
// nothing they cannot do on their own.
//
// The engine spawns no goroutines of its own; retry delays suspend only
// the calling goroutine. The optional analytics pruner is the single
// exception and must be started explicitly.
package resilience
