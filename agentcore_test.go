package agentcore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/model"
	"github.com/hupe1980/agentcore/spawn"
)

func TestRunPlainAnswer(t *testing.T) {
	m := model.NewMockModel("test")
	m.AddTextTurn("The answer is 42.", 3)

	ac := New(m)

	state, err := ac.Run(context.Background(), "What is the answer?")
	require.NoError(t, err)

	assert.Equal(t, core.LastMessageOutput{Text: "The answer is 42."}, state.Output)
	assert.InDelta(t, 3, state.CreditsUsed, 1e-9)

	require.Len(t, state.Messages, 2)
	assert.Equal(t, core.RoleUser, state.Messages[0].Role)
	assert.Equal(t, core.RoleAssistant, state.Messages[1].Role)
}

func TestRunWithSpawnedChildAggregatesCost(t *testing.T) {
	templates := spawn.NewTemplateRegistry(
		&spawn.Template{Publisher: "acme", ID: "base", Version: "1.0.0", StepBudget: 5},
		&spawn.Template{Publisher: "acme", ID: "helper", Version: "1.0.0", DisplayName: "Helper", StepBudget: 3},
	)

	// Turn 1 (parent): spawn a helper. The helper's single turn answers
	// directly. Turn 2 (parent): final answer.
	m := model.NewMockModel("test")
	m.AddTextTurn(`<spawn_agents agents='[{"agent_type": "helper", "prompt": "sub-task"}]'/>`, 10)
	m.AddTextTurn("Helper finished the sub-task.", 4) // helper's turn
	m.AddTextTurn("All done.", 10)

	var mu sync.Mutex
	var events []core.Event
	ac := New(m, func(o *Options) {
		o.Templates = templates
		o.OnResponse = func(ev core.Event) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, ev)
		}
	})

	state, err := ac.Run(context.Background(), "Delegate this.")
	require.NoError(t, err)

	// Parent direct 20 plus the child's 4.
	assert.InDelta(t, 24, state.CreditsUsed, 1e-9)
	assert.InDelta(t, 20, state.DirectCreditsUsed, 1e-9)
	assert.Len(t, state.ChildRunIDs, 1)

	var started, finished bool
	for _, ev := range events {
		switch ev.(type) {
		case core.SubagentStartEvent:
			started = true
		case core.SubagentFinishEvent:
			finished = true
		}
	}
	assert.True(t, started)
	assert.True(t, finished)
}
