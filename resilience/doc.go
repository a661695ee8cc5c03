// Package resilience implements the resilience policy wrapped around calls to
// unreliable external services: error classification (retryable vs terminal),
// a bounded retry loop, and a circuit breaker.
//
// The breaker is an explicitly owned, injectable object rather than process
// global state, so tests construct an isolated instance per case. Callers are
// expected to share one Breaker per external service for the process lifetime.
package resilience
