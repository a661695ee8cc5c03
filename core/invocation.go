package core

import "fmt"

// ToolInvocation is a structured command recognized inside the model's output
// stream: a tool name plus the attribute map captured from the stream. The
// ToolCallID is generated locally and is unique per invocation.
type ToolInvocation struct {
	ToolName   string            `json:"tool_name"`
	ToolCallID string            `json:"tool_call_id"`
	Input      map[string]string `json:"input"`
}

// NewToolInvocation builds an invocation with a fresh locally generated id.
func NewToolInvocation(toolName string, input map[string]string) ToolInvocation {
	if input == nil {
		input = map[string]string{}
	}
	return ToolInvocation{
		ToolName:   toolName,
		ToolCallID: NewID(),
		Input:      input,
	}
}

// ResultPart is a typed segment of tool output. Concrete part types implement
// the unexported isResultPart marker enabling a closed set.
type ResultPart interface{ isResultPart() }

// TextPart is plain text tool output.
type TextPart struct {
	Text string
}

func (TextPart) isResultPart() {}

// JSONPart is structured tool output (any JSON-serializable value).
type JSONPart struct {
	Value any
}

func (JSONPart) isResultPart() {}

// PatchPart is a file modification produced by a rewrite-class tool: the
// target path and a unified diff of the applied change.
type PatchPart struct {
	Path string
	Diff string
}

func (PatchPart) isResultPart() {}

// ToolResult is the outcome of exactly one ToolInvocation. Either Parts or
// Error is populated; results are appended to message history as a tool-role
// message in dispatch order.
type ToolResult struct {
	ToolCallID string       `json:"tool_call_id"`
	ToolName   string       `json:"tool_name"`
	Parts      []ResultPart `json:"parts,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// IsError reports whether the result carries an error payload.
func (r *ToolResult) IsError() bool { return r.Error != "" }

// NewToolResult builds a successful result for the given invocation.
func NewToolResult(inv ToolInvocation, parts ...ResultPart) *ToolResult {
	return &ToolResult{ToolCallID: inv.ToolCallID, ToolName: inv.ToolName, Parts: parts}
}

// NewErrorResult builds an error-shaped result for the given invocation.
// Execution failures are converted through here rather than thrown upward.
func NewErrorResult(inv ToolInvocation, err error) *ToolResult {
	return &ToolResult{
		ToolCallID: inv.ToolCallID,
		ToolName:   inv.ToolName,
		Error:      err.Error(),
	}
}

// NewErrorResultf is NewErrorResult with formatting.
func NewErrorResultf(inv ToolInvocation, format string, args ...any) *ToolResult {
	return &ToolResult{
		ToolCallID: inv.ToolCallID,
		ToolName:   inv.ToolName,
		Error:      fmt.Sprintf(format, args...),
	}
}
