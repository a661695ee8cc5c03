package runner

import (
	"context"
	"strings"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/dispatch"
	"github.com/hupe1980/agentcore/extract"
	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/model"
	"github.com/hupe1980/agentcore/tool"
)

// Options holds dependency and configuration overrides passed to New.
type Options struct {
	// Logger receives step diagnostics.
	Logger logging.Logger
	// OnResponse is the display sink for runs started through Run.
	OnResponse core.ResponseHandler
	// Instructions is the system prompt submitted with every model turn.
	Instructions string
	// PostBatch is invoked after each deferred rewrite batch, typically the
	// fixer pass.
	PostBatch func(ctx context.Context, outcome *dispatch.BatchOutcome)
}

// Runner executes agent runs against one model and tool set. A Runner is
// stateless across runs; all run state lives on the AgentState it is given.
type Runner struct {
	model model.Model
	tools tool.Registry
	opts  Options
}

// New constructs a Runner with optional overrides.
func New(m model.Model, tools tool.Registry, optFns ...func(o *Options)) *Runner {
	opts := Options{
		Logger:     logging.NoOpLogger{},
		OnResponse: core.NopResponseHandler,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.OnResponse == nil {
		opts.OnResponse = core.NopResponseHandler
	}

	return &Runner{
		model: m,
		tools: tools,
		opts:  opts,
	}
}

// Tools exposes the registry so hosts can install additional tools before
// the first run.
func (r *Runner) Tools() tool.Registry { return r.tools }

// Run executes the step loop to completion for the given state. On failure
// the returned error is a *core.RunError carrying the partial state.
func (r *Runner) Run(ctx context.Context, state *core.AgentState) error {
	return r.run(ctx, state, r.opts.Instructions, r.opts.OnResponse)
}

// RunChild implements the spawn child-runner contract: the same loop with the
// child's own system prompt and a per-child display sink.
func (r *Runner) RunChild(ctx context.Context, state *core.AgentState, instructions string, onResponse core.ResponseHandler) error {
	return r.run(ctx, state, instructions, onResponse)
}

func (r *Runner) run(ctx context.Context, state *core.AgentState, instructions string, onResponse core.ResponseHandler) error {
	if onResponse == nil {
		onResponse = core.NopResponseHandler
	}

	r.opts.Logger.Info("runner.run.start",
		"agent_id", state.AgentID,
		"agent_type", state.AgentType,
		"steps", state.StepsRemaining,
	)

	for state.StepsRemaining > 0 {
		done, err := r.step(ctx, state, instructions, onResponse)
		if err != nil {
			state.Output = core.ErrorOutput{Message: err.Error()}
			onResponse(core.ErrorEvent{Message: err.Error()})

			return core.NewRunError(state, err)
		}

		if done {
			break
		}
	}

	if state.Output == nil {
		state.Output = core.LastMessageOutput{Text: state.LastAssistantText()}
	}

	r.opts.Logger.Info("runner.run.complete",
		"agent_id", state.AgentID,
		"credits_used", state.CreditsUsed,
		"steps_remaining", state.StepsRemaining,
	)

	return nil
}

// step runs one model turn. It returns done=true when the turn recognized no
// tool invocations, meaning the agent has produced its final answer.
func (r *Runner) step(ctx context.Context, state *core.AgentState, instructions string, onResponse core.ResponseHandler) (bool, error) {
	// Tools that recurse into the pipeline (spawning) reach the current run
	// through the context scope.
	ctx = core.WithRunScope(ctx, state, onResponse)

	d := dispatch.New(r.tools, state, func(o *dispatch.Options) {
		o.Logger = r.opts.Logger
		o.OnResponse = onResponse
		o.PostBatch = r.opts.PostBatch
	})

	var invocations []core.ToolInvocation

	registry := extract.NewRegistry()
	for _, t := range r.tools {
		h := extract.Handler{
			OnTagEnd: func(name string, attrs map[string]string) {
				inv := core.NewToolInvocation(name, attrs)
				invocations = append(invocations, inv)
				d.Dispatch(ctx, inv)
			},
		}

		switch kind := t.Kind(); kind {
		case extract.KindCustom, extract.KindUnknown:
			registry.RegisterCustom(t.Name(), h)
		default:
			registry.Register(kind, h)
		}
	}

	registry.SetUnknownHandler(func(name, raw string) {
		d.DispatchUnknown(ctx, name, raw)
	})

	history := append([]core.Message{}, state.Messages...)

	// Reserve the assistant message slot now so tool results land after it;
	// its content is filled in once the stream ends.
	state.AppendMessage(core.Message{Role: core.RoleAssistant})
	slot := len(state.Messages) - 1

	chunks, errCh := r.model.Stream(ctx, model.Request{
		Instructions: instructions,
		Messages:     history,
		Tools:        Definitions(r.tools),
		Context:      state.Context,
	})

	var (
		ext       = extract.New(registry)
		text      strings.Builder
		reasoning strings.Builder
		credits   float64
		streamErr error
	)

	process := func(passthrough []core.StreamChunk) error {
		for _, c := range passthrough {
			switch pc := c.(type) {
			case core.TextChunk:
				text.WriteString(pc.Text)
				onResponse(core.TextEvent{Text: pc.Text})
			case core.ReasoningChunk:
				reasoning.WriteString(pc.Text)
				onResponse(core.TextEvent{Text: pc.Text, Reasoning: true})
			case core.ErrorChunk:
				return pc.Err
			case core.FinishChunk:
				credits += pc.Credits
			}
		}

		return nil
	}

	for chunk := range chunks {
		if streamErr = process(ext.Feed(chunk)); streamErr != nil {
			break
		}
	}

	if streamErr != nil {
		// Drain so the producer can exit, then let issued tool work settle.
		for range chunks {
		}

		_ = d.Wait(ctx)

		return false, streamErr
	}

	if streamErr = process(ext.Finish()); streamErr == nil {
		streamErr = <-errCh
	}

	if streamErr != nil {
		_ = d.Wait(ctx)
		return false, streamErr
	}

	// Stream end is the fallback trigger for a still-pending rewrite batch.
	d.Flush(ctx)

	if err := d.Wait(ctx); err != nil {
		return false, err
	}

	state.Messages[slot] = core.Message{
		Role:        core.RoleAssistant,
		Text:        text.String(),
		Reasoning:   reasoning.String(),
		Invocations: invocations,
	}

	state.AddDirectCredits(credits)
	state.StepsRemaining--

	r.opts.Logger.Debug("runner.step.complete",
		"agent_id", state.AgentID,
		"invocations", len(invocations),
		"credits", credits,
	)

	return len(invocations) == 0, nil
}

// Definitions exposes the registry's tools as model tool definitions.
func Definitions(tools tool.Registry) []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(tools))

	for _, t := range tools {
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	return defs
}
