package tool

import (
	"context"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/extract"
)

// thinkTool records the model's reasoning as a tool result so downstream
// consumers need no separate code path for reasoning output. The extractor
// synthesizes its invocations from reasoning chunks.
type thinkTool struct{}

// NewThinkTool constructs the built-in think tool instance.
func NewThinkTool() Tool { return &thinkTool{} }

func (t *thinkTool) Name() string { return extract.KindThink.String() }

func (t *thinkTool) Kind() extract.ToolKind { return extract.KindThink }

func (t *thinkTool) Description() string {
	return "Record intermediate reasoning. The thought is kept in history but triggers no side effects."
}

func (t *thinkTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"thought": map[string]any{"type": "string", "description": "The reasoning text"},
		},
		"required": []string{"thought"},
	}
}

func (t *thinkTool) Deferred() bool { return false }

func (t *thinkTool) Call(_ context.Context, inv core.ToolInvocation) (*core.ToolResult, error) {
	return core.NewToolResult(inv, core.TextPart{Text: inv.Input["thought"]}), nil
}
