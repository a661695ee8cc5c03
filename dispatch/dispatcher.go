package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/tool"
)

// Options configures a Dispatcher.
type Options struct {
	// Logger receives execution diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
	// OnResponse receives display events (tool_call, tool_result). Defaults
	// to a discard handler.
	OnResponse core.ResponseHandler
	// PostBatch runs inside the batched ordering step after its results are
	// recorded, before any subsequently dispatched tool executes. Used to
	// attach the auto-fix post-processor. Optional.
	PostBatch func(ctx context.Context, outcome *BatchOutcome)
}

// Dispatcher owns one run's tool execution: the completion-handle chain, the
// deferred batch state, and the message-history append path. Dispatch, Flush
// and Wait must be called from a single goroutine (the stream-consuming
// loop); execution itself proceeds on chained goroutines.
type Dispatcher struct {
	tools tool.Registry
	state *core.AgentState
	batch *BatchState
	tail  *handle

	logger     logging.Logger
	onResponse core.ResponseHandler
	postBatch  func(ctx context.Context, outcome *BatchOutcome)
}

// New constructs a Dispatcher bound to one agent state for one run. The
// batch state and handle chain are exclusively owned by this run and never
// shared across runs or agents.
func New(tools tool.Registry, state *core.AgentState, optFns ...func(o *Options)) *Dispatcher {
	opts := Options{
		Logger:     logging.NoOpLogger{},
		OnResponse: core.NopResponseHandler,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Dispatcher{
		tools:      tools,
		state:      state,
		batch:      &BatchState{},
		tail:       resolvedHandle(),
		logger:     opts.Logger,
		onResponse: opts.OnResponse,
		postBatch:  opts.PostBatch,
	}
}

// Dispatch routes one recognized invocation. Deferred (rewrite-class)
// invocations are queued while the deferral phase is open; everything else is
// chained for immediate execution. Dispatching a non-deferred tool while the
// queue is non-empty triggers the one-shot batched step ahead of it.
func (d *Dispatcher) Dispatch(ctx context.Context, inv core.ToolInvocation) {
	t, registered := d.tools.Lookup(inv.ToolName)

	if registered && t.Deferred() && !d.batch.phaseComplete {
		d.batch.deferredQueue = append(d.batch.deferredQueue, inv)
		d.onResponse(core.ToolCallEvent{Invocation: inv})
		d.logger.Debug("dispatch.tool.deferred", "tool", inv.ToolName, "queued", len(d.batch.deferredQueue))
		return
	}

	if !d.batch.phaseComplete && len(d.batch.deferredQueue) > 0 {
		d.triggerBatch(ctx)
	}

	d.onResponse(core.ToolCallEvent{Invocation: inv})
	d.enqueue(func() {
		res := d.execute(ctx, inv)
		d.state.AppendToolResult(res)
		d.onResponse(core.ToolResultEvent{Result: *res})
	})
}

// DispatchUnknown records a recognition error for an unknown or malformed
// tag as a synthetic error result, preserving chain order and never halting
// the stream.
func (d *Dispatcher) DispatchUnknown(ctx context.Context, name, raw string) {
	inv := core.NewToolInvocation(name, map[string]string{"raw": raw})
	d.logger.Warn("dispatch.tool.unknown", "tool", name)

	d.enqueue(func() {
		res := core.NewErrorResultf(inv, "unknown tool %q", name)
		d.state.AppendToolResult(res)
		d.onResponse(core.ToolResultEvent{Result: *res})
	})
}

// Flush triggers the batched step at end of stream if the deferral phase is
// still open and the queue is non-empty. Together with the in-stream trigger
// this guarantees the queue is flushed exactly once per run.
func (d *Dispatcher) Flush(ctx context.Context) {
	if !d.batch.phaseComplete && len(d.batch.deferredQueue) > 0 {
		d.triggerBatch(ctx)
	}
}

// Wait blocks until all issued tool work has completed or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	select {
	case <-d.tail.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PhaseComplete reports whether the deferral phase has been closed.
func (d *Dispatcher) PhaseComplete() bool { return d.batch.phaseComplete }

// Failures returns the isolated per-invocation failures recorded by the
// batched step. Valid after Wait.
func (d *Dispatcher) Failures() []BatchFailure {
	return append([]BatchFailure{}, d.batch.failures...)
}

// triggerBatch irreversibly closes the deferral phase and inserts the single
// batched execution step into the ordering chain.
func (d *Dispatcher) triggerBatch(ctx context.Context) {
	d.batch.phaseComplete = true
	queue := d.batch.deferredQueue

	d.logger.Info("dispatch.batch.trigger", "deferred", len(queue))

	d.enqueue(func() {
		d.runBatch(ctx, queue)
	})
}

// enqueue chains a unit of work behind the current tail handle.
func (d *Dispatcher) enqueue(run func()) {
	prev := d.tail
	next := newHandle()
	d.tail = next

	go func() {
		defer next.complete()
		prev.wait()
		run()
	}()
}

// execute runs one invocation, converting every failure mode (missing tool,
// returned error, panic) into an error-shaped result.
func (d *Dispatcher) execute(ctx context.Context, inv core.ToolInvocation) (res *core.ToolResult) {
	t, ok := d.tools.Lookup(inv.ToolName)
	if !ok {
		return core.NewErrorResultf(inv, "unknown tool %q", inv.ToolName)
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatch.tool.panic", "tool", inv.ToolName, "recover", fmt.Sprint(r), "stack", string(debug.Stack()))
			res = core.NewErrorResultf(inv, "tool %q panicked: %v", inv.ToolName, r)
		}
	}()

	start := time.Now()
	result, err := t.Call(ctx, inv)
	logging.LogToolCall(d.logger, inv.ToolName, time.Since(start), err)

	if err != nil {
		return core.NewErrorResult(inv, err)
	}
	if result == nil {
		return core.NewToolResult(inv)
	}
	return result
}
