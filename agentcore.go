// Package agentcore provides a high-level facade over the execution core:
// the streaming tag extractor, ordered tool dispatcher, resilient batch
// post-processor, and agent spawn manager. Most applications interact with
// this package by:
//  1. Creating an AgentCore via New() around a model and a tool set
//  2. Optionally registering spawn templates and an auto-fix pass
//  3. Running prompts (Run) or prepared states (RunState)
//
// The facade delegates the step loop to runner.Runner while keeping setup
// ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a structured logger and
// real tool implementations.
package agentcore

import (
	"context"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/dispatch"
	"github.com/hupe1980/agentcore/fixer"
	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/model"
	"github.com/hupe1980/agentcore/runner"
	"github.com/hupe1980/agentcore/spawn"
	"github.com/hupe1980/agentcore/tool"
)

// Options configures the AgentCore instance.
type Options struct {
	// Tools are the host-supplied tool implementations. Tools declaring a
	// canonical kind answer that kind's tag; tools declaring KindCustom are
	// recognized by their registered name. The built-in think tool is
	// always registered; spawn_agents is registered when Templates is set.
	Tools []tool.Tool

	// Templates enables agent spawning when non-nil.
	Templates *spawn.TemplateRegistry

	// Fixer enables the post-batch auto-fix pass when non-nil.
	Fixer *fixer.PostProcessor

	// Instructions is the system prompt for the root agent.
	Instructions string

	// AgentType is the root agent's type specifier. Defaults to "base".
	AgentType string

	// StepBudget is the root agent's model-turn budget.
	StepBudget int

	// OnResponse receives display events for runs started through Run.
	OnResponse core.ResponseHandler

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// AgentCore is the high-level facade aggregating the runner, tool registry,
// and spawn manager.
type AgentCore struct {
	runner *runner.Runner
	opts   Options
}

// New creates an AgentCore around the given model with optional overrides.
func New(m model.Model, optFns ...func(o *Options)) *AgentCore {
	opts := Options{
		AgentType:  spawn.BaseAgentID,
		StepBudget: spawn.DefaultStepBudget,
		OnResponse: core.NopResponseHandler,
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	registry := tool.NewRegistry(append([]tool.Tool{tool.NewThinkTool()}, opts.Tools...)...)

	var postBatch func(ctx context.Context, outcome *dispatch.BatchOutcome)
	if opts.Fixer != nil {
		postBatch = opts.Fixer.Process
	}

	r := runner.New(m, registry, func(o *runner.Options) {
		o.Logger = opts.Logger
		o.OnResponse = opts.OnResponse
		o.Instructions = opts.Instructions
		o.PostBatch = postBatch
	})

	if opts.Templates != nil {
		manager := spawn.NewManager(opts.Templates, r, func(o *spawn.Options) {
			o.Logger = opts.Logger
		})

		spawnTool := spawn.NewTool(manager)
		registry[spawnTool.Name()] = spawnTool
	}

	return &AgentCore{
		runner: r,
		opts:   opts,
	}
}

// Run executes one root agent run for the prompt. On failure the returned
// error is a *core.RunError carrying the partial state; the state is returned
// either way so cost and history are never lost.
func (a *AgentCore) Run(ctx context.Context, prompt string) (*core.AgentState, error) {
	state := core.NewAgentState(a.opts.AgentType, a.opts.StepBudget)
	state.AppendMessage(core.Message{Role: core.RoleUser, Text: prompt})

	if err := a.runner.Run(ctx, state); err != nil {
		return state, err
	}

	return state, nil
}

// RunState executes the step loop for a caller-prepared state.
func (a *AgentCore) RunState(ctx context.Context, state *core.AgentState) error {
	return a.runner.Run(ctx, state)
}

// Tools exposes the registry so hosts can install additional tools before
// the first run.
func (a *AgentCore) Tools() tool.Registry { return a.runner.Tools() }
