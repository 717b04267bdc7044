// Package resilience guards calls to slow or flaky collaborators.
//
// It provides the patterns this service composes around its upstream
// earthquake feed and its expensive operator endpoints:
//
//   - Timeout: bounds a single feed fetch, including body decode.
//
//   - Circuit Breaker: stops hammering a dead feed after repeated
//     failures so callers fail fast instead of waiting out the timeout.
//
//   - Rate Limiter: token bucket throttling forced cache refreshes,
//     which always trigger a full recomputation.
//
// Usage:
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    MaxFailures:  5,
//	    ResetTimeout: 30 * time.Second,
//	})
//
//	err := cb.Execute(ctx, func(ctx context.Context) error {
//	    return fetchFeed(ctx)
//	})
package resilience
