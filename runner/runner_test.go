package runner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/extract"
	"github.com/hupe1980/agentcore/model"
	"github.com/hupe1980/agentcore/tool"
)

// recordingTool captures invocations in execution order.
type recordingTool struct {
	mu    sync.Mutex
	name  string
	kind  extract.ToolKind
	calls []core.ToolInvocation
}

func newRecordingTool(name string, kind extract.ToolKind) *recordingTool {
	return &recordingTool{name: name, kind: kind}
}

func (t *recordingTool) Name() string { return t.name }

func (t *recordingTool) Kind() extract.ToolKind { return t.kind }

func (t *recordingTool) Description() string { return "records calls" }

func (t *recordingTool) Parameters() map[string]any { return map[string]any{"type": "object"} }

func (t *recordingTool) Deferred() bool { return t.kind == extract.KindEdit }

func (t *recordingTool) Call(ctx context.Context, inv core.ToolInvocation) (*core.ToolResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls = append(t.calls, inv)

	return core.NewToolResult(inv, core.TextPart{Text: "ok"}), nil
}

func (t *recordingTool) invocations() []core.ToolInvocation {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]core.ToolInvocation{}, t.calls...)
}

func TestRunTerminatesOnTextOnlyTurn(t *testing.T) {
	m := model.NewMockModel("test")
	m.AddTextTurn("All done.", 2.5)

	r := New(m, tool.NewRegistry())
	state := core.NewAgentState("base", 5)

	require.NoError(t, r.Run(context.Background(), state))

	assert.Equal(t, 4, state.StepsRemaining)
	assert.InDelta(t, 2.5, state.DirectCreditsUsed, 1e-9)
	assert.Equal(t, core.LastMessageOutput{Text: "All done."}, state.Output)

	require.Len(t, state.Messages, 1)
	assert.Equal(t, core.RoleAssistant, state.Messages[0].Role)
	assert.Equal(t, "All done.", state.Messages[0].Text)
}

func TestRunExecutesInlineToolTagThenFinishes(t *testing.T) {
	m := model.NewMockModel("test")
	m.AddTextTurn(`Looking it up. <search query="weather"/>`, 1)
	m.AddTextTurn("It is sunny.", 1)

	search := newRecordingTool("search", extract.KindSearch)
	r := New(m, tool.NewRegistry(search))
	state := core.NewAgentState("base", 5)

	require.NoError(t, r.Run(context.Background(), state))

	calls := search.invocations()
	require.Len(t, calls, 1)
	assert.Equal(t, "weather", calls[0].Input["query"])

	// Turn one: assistant message then its tool result. Turn two: final text.
	require.Len(t, state.Messages, 3)
	assert.Equal(t, core.RoleAssistant, state.Messages[0].Role)
	assert.Equal(t, "Looking it up. ", state.Messages[0].Text)
	require.Len(t, state.Messages[0].Invocations, 1)
	assert.Equal(t, core.RoleTool, state.Messages[1].Role)
	assert.Equal(t, calls[0].ToolCallID, state.Messages[1].Result.ToolCallID)
	assert.Equal(t, "It is sunny.", state.Messages[2].Text)

	assert.Equal(t, 3, state.StepsRemaining)
	assert.InDelta(t, 2, state.DirectCreditsUsed, 1e-9)
}

func TestRunFlushesDeferredEditsAtStreamEnd(t *testing.T) {
	m := model.NewMockModel("test")
	m.AddTextTurn(`<edit_file path="a.go" find="x" replace="y"/><edit_file path="a.go" find="y" replace="z"/>`, 1)
	m.AddTextTurn("Edits applied.", 1)

	edit := newRecordingTool("edit_file", extract.KindEdit)
	r := New(m, tool.NewRegistry(edit))
	state := core.NewAgentState("base", 5)

	require.NoError(t, r.Run(context.Background(), state))

	calls := edit.invocations()
	require.Len(t, calls, 2)
	// Same path, so invocation order is preserved through the batch.
	assert.Equal(t, "x", calls[0].Input["find"])
	assert.Equal(t, "y", calls[1].Input["find"])

	require.Len(t, state.Messages, 3)
	assert.Equal(t, core.RoleTool, state.Messages[1].Role)
}

func TestRunStopsAtStepBudget(t *testing.T) {
	m := model.NewMockModel("test")
	// Every turn issues a tool call, so only the budget ends the loop.
	m.AddTextTurn(`<search query="one"/>`, 1)
	m.AddTextTurn(`<search query="two"/>`, 1)
	m.AddTextTurn(`<search query="three"/>`, 1)

	search := newRecordingTool("search", extract.KindSearch)
	r := New(m, tool.NewRegistry(search))
	state := core.NewAgentState("base", 2)

	require.NoError(t, r.Run(context.Background(), state))

	assert.Zero(t, state.StepsRemaining)
	assert.Len(t, search.invocations(), 2)
}

func TestRunModelErrorReturnsRunErrorWithState(t *testing.T) {
	cause := errors.New("stream torn down")

	m := model.NewMockModel("test")
	m.AddTurn(
		core.TextChunk{Text: "partial "},
		core.ErrorChunk{Err: cause},
	)

	r := New(m, tool.NewRegistry())
	state := core.NewAgentState("base", 5)

	err := r.Run(context.Background(), state)
	require.Error(t, err)

	var runErr *core.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Same(t, state, runErr.State)
	assert.ErrorIs(t, err, cause)

	errOut, ok := state.Output.(core.ErrorOutput)
	require.True(t, ok)
	assert.Contains(t, errOut.Message, "stream torn down")
}

func TestRunReasoningRewrappedAsThink(t *testing.T) {
	m := model.NewMockModel("test")
	m.AddTurn(
		core.ReasoningChunk{Text: "let me think"},
		core.TextChunk{Text: "Answer."},
		core.FinishChunk{Reason: "stop", Credits: 1},
	)

	think := newRecordingTool("think", extract.KindThink)
	r := New(m, tool.NewRegistry(think))
	state := core.NewAgentState("base", 5)

	require.NoError(t, r.Run(context.Background(), state))

	calls := think.invocations()
	require.Len(t, calls, 1)
	assert.Equal(t, "let me think", calls[0].Input["thought"])

	// Reasoning text is preserved on the assistant message.
	var reasoning string
	for _, msg := range state.Messages {
		if msg.Role == core.RoleAssistant && msg.Reasoning != "" {
			reasoning = msg.Reasoning
		}
	}
	assert.Equal(t, "let me think", reasoning)
}

func TestRunRelaysTextEvents(t *testing.T) {
	m := model.NewMockModel("test")
	m.AddTextTurn("hi", 0)

	var mu sync.Mutex
	var text string

	r := New(m, tool.NewRegistry(), func(o *Options) {
		o.OnResponse = func(ev core.Event) {
			if te, ok := ev.(core.TextEvent); ok && !te.Reasoning {
				mu.Lock()
				text += te.Text
				mu.Unlock()
			}
		}
	})

	require.NoError(t, r.Run(context.Background(), core.NewAgentState("base", 5)))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "hi", text)
}

func TestRunExecutesCustomKindToolByName(t *testing.T) {
	m := model.NewMockModel("test")
	m.AddTextTurn(`<calculate op="add" a="1" b="2"/>`, 1)
	m.AddTextTurn("Three.", 1)

	calc := newRecordingTool("calculate", extract.KindCustom)
	r := New(m, tool.NewRegistry(calc))
	state := core.NewAgentState("base", 5)

	require.NoError(t, r.Run(context.Background(), state))

	calls := calc.invocations()
	require.Len(t, calls, 1)
	assert.Equal(t, "add", calls[0].Input["op"])

	require.Len(t, state.Messages, 3)
	assert.Equal(t, core.RoleTool, state.Messages[1].Role)
	assert.False(t, state.Messages[1].Result.IsError())
}

// instructionModel records the instructions submitted with each model turn.
type instructionModel struct {
	*model.MockModel

	mu   sync.Mutex
	seen []string
}

func (m *instructionModel) Stream(ctx context.Context, req model.Request) (<-chan core.StreamChunk, <-chan error) {
	m.mu.Lock()
	m.seen = append(m.seen, req.Instructions)
	m.mu.Unlock()

	return m.MockModel.Stream(ctx, req)
}

func TestRunChildUsesGivenInstructions(t *testing.T) {
	inner := model.NewMockModel("test")
	inner.AddTextTurn("child done", 1)
	inner.AddTextTurn("parent done", 1)

	m := &instructionModel{MockModel: inner}

	r := New(m, tool.NewRegistry(), func(o *Options) {
		o.Instructions = "coordinator prompt"
	})

	child := core.NewAgentState("researcher", 3)
	require.NoError(t, r.RunChild(context.Background(), child, "researcher prompt", nil))

	require.NoError(t, r.Run(context.Background(), core.NewAgentState("base", 3)))

	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.seen, 2)
	assert.Equal(t, "researcher prompt", m.seen[0])
	assert.Equal(t, "coordinator prompt", m.seen[1])
}
