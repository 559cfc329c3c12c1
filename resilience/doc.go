// Package resilience provides resilience patterns for peer operations.
//
// This package implements the failure-handling primitives the coordination
// layer wraps around every outbound peer call. The patterns can be composed
// together to build robust execution pipelines.
//
// # Patterns
//
// The package provides the following resilience patterns:
//
//   - Circuit Breaker: Prevents cascading failures by stopping requests to
//     a failing peer resource after a threshold is reached.
//
//   - Retry: Automatically retries failed operations with capped
//     exponential backoff and uniform jitter, gated by an error allow-list.
//
//   - Bulkhead: Limits concurrent operations to prevent resource exhaustion
//     during multi-peer fan-out.
//
//   - Timeout: Ensures operations complete within a time limit.
//
// # Usage
//
// Each pattern can be used independently or composed together:
//
//	// Create a circuit breaker
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    Name:             "shard_transfer",
//	    FailureThreshold: 5,
//	    ResetTimeout:     time.Minute,
//	})
//
//	// Create a retry policy gated on retryable transport failures
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxRetries:     3,
//	    InitialBackoff: 100 * time.Millisecond,
//	    MaxBackoff:     5 * time.Second,
//	    BackoffFactor:  2.0,
//	    JitterFactor:   0.2,
//	    RetryIf:        transport.IsRetryable,
//	})
//
//	// Compose patterns
//	executor := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(cb),
//	    resilience.WithRetry(retry),
//	    resilience.WithTimeout(5*time.Second),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return callPeer(ctx)
//	})
package resilience
