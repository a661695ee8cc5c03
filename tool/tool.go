// Package tool defines the execution contract between the dispatcher and the
// host-supplied tool implementations (filesystem, terminal, search, sub-agent
// loop), plus the built-in think tool. The dispatcher treats Call as an
// opaque asynchronous operation with no retry semantics of its own.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/extract"
	"github.com/hupe1980/agentcore/internal/util"
)

// Tool is a capability invocable from the model output stream.
//
// Implementations should:
//   - Provide clear, descriptive names following tag naming conventions (snake_case)
//   - Define a minimal JSON schema for their input attributes
//   - Convert execution failures into errors, never panic
//   - Be safe for concurrent use when Deferred returns true (batched rewrite
//     invocations on distinct paths run in parallel)
type Tool interface {
	// Name returns the unique tag name for this tool.
	Name() string

	// Kind returns the closed dispatch kind the extractor resolves this tool to.
	Kind() extract.ToolKind

	// Description returns a human-readable description provided to the model.
	Description() string

	// Parameters returns a JSON-schema-like map describing the expected input.
	Parameters() map[string]any

	// Deferred reports whether invocations of this tool are rewrite-class and
	// therefore withheld in the dispatcher's deferred batch queue instead of
	// executing immediately.
	Deferred() bool

	// Call executes one invocation. A returned error is converted by the
	// dispatcher into an error-shaped ToolResult; it never halts the stream.
	Call(ctx context.Context, inv core.ToolInvocation) (*core.ToolResult, error)
}

// ValidationError re-exports the shared parameter validation error type.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// Registry maps tool names to implementations.
type Registry map[string]Tool

// NewRegistry builds a registry from the given tools, keyed by name.
func NewRegistry(tools ...Tool) Registry {
	r := Registry{}
	for _, t := range tools {
		r[t.Name()] = t
	}
	return r
}

// Lookup resolves a tool by name.
func (r Registry) Lookup(name string) (Tool, bool) {
	t, ok := r[name]
	return t, ok
}

// ValidateInput checks an invocation's string attribute map against the
// tool's declared schema.
func ValidateInput(t Tool, input map[string]string) error {
	params := make(map[string]any, len(input))
	for k, v := range input {
		params[k] = v
	}
	if err := util.ValidateParameters(params, t.Parameters()); err != nil {
		return &ToolError{
			Tool:    t.Name(),
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    "VALIDATION_ERROR",
			Details: err,
		}
	}
	return nil
}
