package dispatch

import (
	"context"
	"sync"

	"github.com/hupe1980/agentcore/core"
)

// BatchFailure records one isolated invocation failure during the batched
// execution step.
type BatchFailure struct {
	Invocation core.ToolInvocation
	Err        error
}

// BatchState is the deferred-rewrite bookkeeping scoped to one dispatcher
// run. The phase transition is irreversible: phaseComplete becomes true
// exactly once per run, at the moment the batched step is inserted into the
// ordering chain.
type BatchState struct {
	deferredQueue []core.ToolInvocation
	phaseComplete bool
	failures      []BatchFailure
}

// BatchOutcome is handed to the post-batch hook after the batched step has
// recorded its results.
type BatchOutcome struct {
	// Invocations in original dispatch order.
	Invocations []core.ToolInvocation
	// Results keyed by tool call id; every invocation has exactly one entry.
	Results map[string]*core.ToolResult
	// Failures in completion order.
	Failures []BatchFailure
}

// runBatch executes the deferred queue: grouped by target path, sequential
// within a path, parallel across paths. One path's failure never blocks or
// invalidates other paths; a synthetic error result is recorded for each
// failed invocation and processing continues.
func (d *Dispatcher) runBatch(ctx context.Context, queue []core.ToolInvocation) {
	if len(queue) == 0 {
		return
	}

	groups := map[string][]core.ToolInvocation{}
	var paths []string
	for _, inv := range queue {
		path := inv.Input["path"]
		if _, seen := groups[path]; !seen {
			paths = append(paths, path)
		}
		groups[path] = append(groups[path], inv)
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]*core.ToolResult, len(queue))
	)

	for _, path := range paths {
		wg.Add(1)
		go func(invs []core.ToolInvocation) {
			defer wg.Done()
			// Later edits within a path assume the prior edit committed.
			for _, inv := range invs {
				res := d.execute(ctx, inv)
				mu.Lock()
				results[inv.ToolCallID] = res
				if res.IsError() {
					d.batch.failures = append(d.batch.failures, BatchFailure{
						Invocation: inv,
						Err:        &ToolFailure{Tool: inv.ToolName, Message: res.Error},
					})
				}
				mu.Unlock()
			}
		}(groups[path])
	}

	wg.Wait()

	for _, inv := range queue {
		res := results[inv.ToolCallID]
		d.state.AppendToolResult(res)
		d.onResponse(core.ToolResultEvent{Result: *res})
	}

	d.logger.Debug("dispatch.batch.complete",
		"invocations", len(queue),
		"paths", len(paths),
		"failures", len(d.batch.failures),
	)

	if d.postBatch != nil {
		d.postBatch(ctx, &BatchOutcome{
			Invocations: queue,
			Results:     results,
			Failures:    append([]BatchFailure{}, d.batch.failures...),
		})
	}
}

// ToolFailure is the error recorded in BatchState.failures for an invocation
// whose result came back error-shaped.
type ToolFailure struct {
	Tool    string
	Message string
}

func (e *ToolFailure) Error() string { return e.Tool + ": " + e.Message }
