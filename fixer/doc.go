// Package fixer post-processes a completed batch of rewrite invocations with
// an external auto-fix service. The pass is strictly best-effort enrichment:
// the service call is gated by a circuit breaker, retried on transient
// failures, and any failure of the whole pass is swallowed so the batch's
// original tool results stand unmodified.
package fixer
