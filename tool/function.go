package tool

import (
	"context"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/extract"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a
// Tool. It holds a lightweight JSON-Schema-like parameter specification and
// normalizes error handling so callers receive *ToolError with consistent
// codes (EXECUTION_ERROR for plain errors; custom codes preserved when the
// function returns *ToolError directly).
//
// A FunctionTool has no internal mutable state after construction and is safe
// for concurrent use by multiple goroutines.
type FunctionTool struct {
	name        string
	kind        extract.ToolKind
	description string
	parameters  map[string]any
	deferred    bool
	fn          func(ctx context.Context, inv core.ToolInvocation) (*core.ToolResult, error)
}

// FunctionToolOptions configures a FunctionTool.
type FunctionToolOptions struct {
	// Deferred marks the tool rewrite-class so the dispatcher batches it.
	Deferred bool
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
func NewFunctionTool(
	name string,
	kind extract.ToolKind,
	description string,
	parameters map[string]any,
	fn func(ctx context.Context, inv core.ToolInvocation) (*core.ToolResult, error),
	optFns ...func(o *FunctionToolOptions),
) *FunctionTool {
	opts := FunctionToolOptions{}
	for _, optFn := range optFns {
		optFn(&opts)
	}

	return &FunctionTool{
		name:        name,
		kind:        kind,
		description: description,
		parameters:  parameters,
		deferred:    opts.Deferred,
		fn:          fn,
	}
}

// Name returns the unique tag name used in stream recognition and routing.
func (t *FunctionTool) Name() string { return t.name }

// Kind returns the closed dispatch kind.
func (t *FunctionTool) Kind() extract.ToolKind { return t.kind }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the (minimal) JSON schema describing expected attributes.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Deferred reports whether this tool is rewrite-class.
func (t *FunctionTool) Deferred() bool { return t.deferred }

// Call validates the invocation input against the declared schema then
// invokes the underlying function.
func (t *FunctionTool) Call(ctx context.Context, inv core.ToolInvocation) (*core.ToolResult, error) {
	if err := ValidateInput(t, inv.Input); err != nil {
		return nil, err
	}

	result, err := t.fn(ctx, inv)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok {
			return nil, toolErr
		}
		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    "EXECUTION_ERROR",
		}
	}

	return result, nil
}
