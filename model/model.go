package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/agentcore/core"
)

// ToolDefinition declaratively exposes a callable tool to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset
// expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the runner.
type Request struct {
	Instructions string            `json:"instructions"`
	Messages     []core.Message    `json:"messages"`
	Tools        []ToolDefinition  `json:"tools,omitempty"`
	Context      map[string]string `json:"context,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the model-call collaborator. Stream submits the request and
// returns the chunk sequence for one model turn; the core never retries or
// reconnects this stream itself. Both channels are closed when the turn ends.
type Model interface {
	Stream(ctx context.Context, req Request) (<-chan core.StreamChunk, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// RenderResult flattens a tool result into the text form providers receive
// as the tool-role message body.
func RenderResult(r *core.ToolResult) string {
	if r == nil {
		return ""
	}

	if r.IsError() {
		return "ERROR: " + r.Error
	}

	var sb strings.Builder

	for _, part := range r.Parts {
		switch p := part.(type) {
		case core.TextPart:
			sb.WriteString(p.Text)
		case core.JSONPart:
			if data, err := json.Marshal(p.Value); err == nil {
				sb.Write(data)
			} else {
				fmt.Fprintf(&sb, "%v", p.Value)
			}
		case core.PatchPart:
			sb.WriteString(p.Diff)
		}

		sb.WriteString("\n")
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

// EncodeArguments serializes an invocation's attribute map as the JSON
// argument payload providers expect on recorded tool calls.
func EncodeArguments(input map[string]string) string {
	data, err := json.Marshal(input)
	if err != nil {
		return "{}"
	}

	return string(data)
}
