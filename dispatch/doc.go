// Package dispatch executes tool invocations recognized in the model output
// stream. Ordering is enforced by a single chained completion handle rather
// than a lock: each invocation's execution begins only when the previous
// handle resolves, and issuing it replaces the handle with one representing
// its own completion.
//
// Rewrite-class (deferred) invocations are withheld in a per-run batch queue
// and flushed exactly once, either when a subsequent non-deferred tool is
// dispatched or at end of stream. Within the flush, invocations targeting the
// same path run strictly sequentially while distinct paths run in parallel,
// with per-invocation failures isolated.
package dispatch
