package core

import "context"

type runScopeKey struct{}

// RunScope carries the executing agent's state and display sink through the
// context so tools that recurse into the pipeline (spawning) can reach the
// run they were invoked from.
type RunScope struct {
	State      *AgentState
	OnResponse ResponseHandler
}

// WithRunScope attaches the run scope to the context.
func WithRunScope(ctx context.Context, state *AgentState, onResponse ResponseHandler) context.Context {
	if onResponse == nil {
		onResponse = NopResponseHandler
	}

	return context.WithValue(ctx, runScopeKey{}, &RunScope{
		State:      state,
		OnResponse: onResponse,
	})
}

// RunScopeFrom extracts the run scope, if any.
func RunScopeFrom(ctx context.Context) (*RunScope, bool) {
	scope, ok := ctx.Value(runScopeKey{}).(*RunScope)
	return scope, ok
}
