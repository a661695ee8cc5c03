package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectCreditsBumpBothCounters(t *testing.T) {
	s := NewAgentState("base", 10)

	s.AddDirectCredits(2.5)
	s.AddDirectCredits(1.5)

	assert.InDelta(t, 4, s.DirectCreditsUsed, 1e-9)
	assert.InDelta(t, 4, s.CreditsUsed, 1e-9)
}

func TestAbsorbChildKeepsCounterInvariant(t *testing.T) {
	s := NewAgentState("base", 10)
	s.AddDirectCredits(50)

	s.AbsorbChild("run-a", 75)
	s.AbsorbChild("run-b", 100)

	assert.InDelta(t, 225, s.CreditsUsed, 1e-9)
	assert.InDelta(t, 50, s.DirectCreditsUsed, 1e-9)
	assert.GreaterOrEqual(t, s.CreditsUsed, s.DirectCreditsUsed)
	assert.Equal(t, []string{"run-a", "run-b"}, s.ChildRunIDs)
}

func TestAbsorbChildWithoutRunID(t *testing.T) {
	s := NewAgentState("base", 10)

	s.AbsorbChild("", 30)

	assert.InDelta(t, 30, s.CreditsUsed, 1e-9)
	assert.Empty(t, s.ChildRunIDs)
}

func TestNewChildStateLineage(t *testing.T) {
	root := NewAgentState("base", 10)
	root.AppendMessage(Message{Role: RoleUser, Text: "hello"})
	root.AddDirectCredits(9)

	child := root.NewChildState("worker", 5, false)

	assert.NotEqual(t, root.AgentID, child.AgentID)
	assert.Equal(t, root.AgentID, child.ParentID)
	assert.Equal(t, []string{root.RunID}, child.AncestorRunIDs)
	assert.Equal(t, 5, child.StepsRemaining)
	assert.Zero(t, child.CreditsUsed)
	assert.Zero(t, child.DirectCreditsUsed)
	assert.Empty(t, child.Messages)
	assert.Empty(t, child.ChildRunIDs)

	grandchild := child.NewChildState("worker", 5, true)
	assert.Equal(t, []string{root.RunID, child.RunID}, grandchild.AncestorRunIDs)
}

func TestNewChildStateHistoryCopyIsIndependent(t *testing.T) {
	root := NewAgentState("base", 10)
	root.AppendMessage(Message{Role: RoleUser, Text: "hello"})

	child := root.NewChildState("worker", 5, true)
	require.Len(t, child.Messages, 1)

	child.AppendMessage(Message{Role: RoleAssistant, Text: "child only"})
	assert.Len(t, root.Messages, 1)
}

func TestLastAssistantText(t *testing.T) {
	s := NewAgentState("base", 10)
	assert.Empty(t, s.LastAssistantText())

	s.AppendMessage(Message{Role: RoleUser, Text: "question"})
	s.AppendMessage(Message{Role: RoleAssistant, Text: "first"})
	s.AppendToolResult(&ToolResult{ToolCallID: "1", ToolName: "search"})
	s.AppendMessage(Message{Role: RoleAssistant, Text: "second"})

	assert.Equal(t, "second", s.LastAssistantText())
}

func TestNewRunErrorKeepsEarliestState(t *testing.T) {
	inner := NewAgentState("worker", 5)
	outer := NewAgentState("base", 10)

	cause := errors.New("boom")
	first := NewRunError(inner, cause)

	// Re-wrapping further up the hierarchy must not replace the state
	// attached at the point of failure.
	again := NewRunError(outer, fmt.Errorf("spawn failed: %w", first))

	assert.Same(t, inner, again.State)
	assert.ErrorIs(t, again, cause)
}

func TestRunErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewRunError(NewAgentState("base", 10), cause)

	var runErr *RunError
	require.ErrorAs(t, error(err), &runErr)
	assert.ErrorIs(t, err, cause)
}
