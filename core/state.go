package core

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Role tags a message in the conversation history.
type Role string

// Conversation roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of an agent's conversation history. Assistant messages
// may carry the tool invocations recognized in that turn; tool messages carry
// exactly one result.
type Message struct {
	Role        Role             `json:"role"`
	Text        string           `json:"text,omitempty"`
	Reasoning   string           `json:"reasoning,omitempty"`
	Invocations []ToolInvocation `json:"invocations,omitempty"`
	Result      *ToolResult      `json:"result,omitempty"`
}

// Output is the terminal value of an agent run. Concrete variants implement
// the unexported isOutput marker enabling a closed set.
type Output interface{ isOutput() }

// LastMessageOutput terminates a run with the agent's final assistant text.
type LastMessageOutput struct {
	Text string
}

func (LastMessageOutput) isOutput() {}

// StructuredOutput terminates a run with a structured value.
type StructuredOutput struct {
	Value map[string]any
}

func (StructuredOutput) isOutput() {}

// ErrorOutput terminates a run with an error description.
type ErrorOutput struct {
	Message string
}

func (ErrorOutput) isOutput() {}

// AgentState is the mutable execution state of one agent in a spawn
// hierarchy. Cost counters obey two invariants: CreditsUsed >=
// DirectCreditsUsed at all times, and a parent's CreditsUsed equals its own
// direct usage plus the sum of every child's CreditsUsed at the moment that
// child's run concluded, success or failure.
type AgentState struct {
	AgentID   string `json:"agent_id"`
	AgentType string `json:"agent_type"`
	RunID     string `json:"run_id,omitempty"`

	ParentID       string   `json:"parent_id,omitempty"`
	AncestorRunIDs []string `json:"ancestor_run_ids,omitempty"` // root first, immediate parent last
	ChildRunIDs    []string `json:"child_run_ids,omitempty"`    // append-only, populated as children conclude

	Messages       []Message `json:"messages"`
	StepsRemaining int       `json:"steps_remaining"`

	CreditsUsed       float64 `json:"credits_used"`        // includes all descendants
	DirectCreditsUsed float64 `json:"direct_credits_used"` // this agent's own model calls only

	Context map[string]string `json:"context,omitempty"` // named subgoals

	Output Output `json:"-"`
}

// NewAgentState constructs a root agent state with a fresh identity and a
// full step budget.
func NewAgentState(agentType string, stepBudget int) *AgentState {
	return &AgentState{
		AgentID:        NewID(),
		AgentType:      agentType,
		RunID:          NewID(),
		StepsRemaining: stepBudget,
		Context:        map[string]string{},
	}
}

// NewChildState derives a fresh child state for a spawn: new identity, lineage
// extended with this agent's run id, zeroed cost counters, full step budget,
// and a history that is either empty or a copy of the parent's current
// history depending on includeHistory.
func (s *AgentState) NewChildState(agentType string, stepBudget int, includeHistory bool) *AgentState {
	child := &AgentState{
		AgentID:        NewID(),
		AgentType:      agentType,
		RunID:          NewID(),
		ParentID:       s.AgentID,
		StepsRemaining: stepBudget,
		Context:        map[string]string{},
	}

	if s.RunID != "" {
		child.AncestorRunIDs = append(append([]string{}, s.AncestorRunIDs...), s.RunID)
	} else {
		child.AncestorRunIDs = append([]string{}, s.AncestorRunIDs...)
	}

	if includeHistory {
		child.Messages = append([]Message{}, s.Messages...)
	}

	return child
}

// AppendMessage appends a message to the conversation history.
func (s *AgentState) AppendMessage(m Message) { s.Messages = append(s.Messages, m) }

// AppendToolResult appends a tool-role message wrapping the given result.
func (s *AgentState) AppendToolResult(r *ToolResult) {
	s.Messages = append(s.Messages, Message{Role: RoleTool, Result: r})
}

// AddDirectCredits records cost from this agent's own model call, increasing
// both counters so the CreditsUsed >= DirectCreditsUsed invariant holds.
func (s *AgentState) AddDirectCredits(credits float64) {
	s.DirectCreditsUsed += credits
	s.CreditsUsed += credits
}

// AbsorbChild folds a concluded child's cost and run identifier into this
// state. It is called exactly once per child, whether the child completed or
// failed; a failed child's partial cost is never dropped.
func (s *AgentState) AbsorbChild(childRunID string, childCredits float64) {
	s.CreditsUsed += childCredits
	if childRunID != "" {
		s.ChildRunIDs = append(s.ChildRunIDs, childRunID)
	}
}

// LastAssistantText returns the text of the most recent assistant message, or
// the empty string if none exists.
func (s *AgentState) LastAssistantText() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Text
		}
	}
	return ""
}

// RunError is the failure variant of a concluded agent run. It always carries
// the partial AgentState reached before the failure so callers can aggregate
// cost and identifiers; the aggregation contract is part of the type, not an
// incidental attachment.
type RunError struct {
	State *AgentState
	Err   error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	return fmt.Sprintf("agent run %s failed: %v", e.State.AgentID, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *RunError) Unwrap() error { return e.Err }

// NewRunError wraps err with the partial state reached at the point of
// failure. If err already carries a RunError it is returned unchanged so the
// earliest attached state wins.
func NewRunError(state *AgentState, err error) *RunError {
	var re *RunError
	if errors.As(err, &re) {
		return re
	}
	return &RunError{State: state, Err: err}
}

// NewID generates a new unique identifier for invocations, agents and runs.
func NewID() string { return uuid.NewString() }
