package spawn

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/internal/util"
	"github.com/hupe1980/agentcore/logging"
)

// BaseAgentID is the agent type id with unrestricted spawn authorization.
const BaseAgentID = "base"

// ChildRunner runs one child state through the full step-loop pipeline with
// the child's own system prompt, relaying its display events to the given
// sink. On failure the returned error must be a *core.RunError carrying the
// partial state; the manager wraps bare errors to enforce that contract.
type ChildRunner interface {
	RunChild(ctx context.Context, state *core.AgentState, instructions string, onResponse core.ResponseHandler) error
}

// ChildRunnerFunc adapts a function to the ChildRunner interface.
type ChildRunnerFunc func(ctx context.Context, state *core.AgentState, instructions string, onResponse core.ResponseHandler) error

// RunChild implements ChildRunner.
func (f ChildRunnerFunc) RunChild(ctx context.Context, state *core.AgentState, instructions string, onResponse core.ResponseHandler) error {
	return f(ctx, state, instructions, onResponse)
}

// SpawnRequest asks for one child agent.
type SpawnRequest struct {
	AgentType string
	Prompt    string
	Params    map[string]any
}

// ChildOutcome reports one child's conclusion. Err is non-nil when the child
// failed to authorize, validate, or run; a run failure is a *core.RunError
// whose partial state was already aggregated into the parent.
type ChildOutcome struct {
	AgentID     string
	RunID       string
	AgentType   string
	DisplayName string
	CreditsUsed float64
	Output      core.Output
	Err         error
}

// Options configures a Manager.
type Options struct {
	Logger logging.Logger
}

// Manager resolves, authorizes, and runs spawned children, aggregating cost
// and run identifiers into the parent regardless of each child's outcome.
type Manager struct {
	templates *TemplateRegistry
	runner    ChildRunner
	opts      Options

	// mu serializes parent-state aggregation across concurrent siblings.
	mu sync.Mutex
}

// NewManager creates a Manager over the given template registry and child
// runner.
func NewManager(templates *TemplateRegistry, runner ChildRunner, optFns ...func(o *Options)) *Manager {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Manager{
		templates: templates,
		runner:    runner,
		opts:      opts,
	}
}

// Spawn runs the requested children concurrently. Siblings are never chained;
// one sibling's failure does not cancel or block the others. Each child's
// CreditsUsed at conclusion is added to the parent and its run id appended to
// the parent's ChildRunIDs, including children that failed partway through.
// Per-child failures are reported on the outcome, never as the overall error;
// the caller decides whether a sibling failure is fatal.
func (m *Manager) Spawn(ctx context.Context, parent *core.AgentState, requests []SpawnRequest, onResponse core.ResponseHandler) []ChildOutcome {
	if onResponse == nil {
		onResponse = core.NopResponseHandler
	}

	outcomes := make([]ChildOutcome, len(requests))

	var wg sync.WaitGroup

	for i, req := range requests {
		tmpl, err := m.authorize(parent, req.AgentType)
		if err == nil {
			err = util.ValidateParameters(req.Params, tmpl.InputSchema)
		}

		if err != nil {
			m.opts.Logger.Warn("spawn.request.rejected", "agent_type", req.AgentType, "error", err.Error())
			outcomes[i] = ChildOutcome{AgentType: req.AgentType, Err: err}

			continue
		}

		wg.Add(1)

		go func(i int, req SpawnRequest, tmpl *Template) {
			defer wg.Done()

			outcomes[i] = m.runChild(ctx, parent, req, tmpl, onResponse)
		}(i, req, tmpl)
	}

	wg.Wait()

	return outcomes
}

// authorize resolves the target template and checks the parent may spawn it.
// A base agent may spawn anything; other agents only types present in their
// own declared spawnable set.
func (m *Manager) authorize(parent *core.AgentState, agentType string) (*Template, error) {
	tmpl, err := m.templates.Resolve(agentType)
	if err != nil {
		return nil, err
	}

	parentSpec := parseSpecifier(parent.AgentType)
	if parentSpec.id == BaseAgentID {
		return tmpl, nil
	}

	parentTmpl, err := m.templates.Resolve(parent.AgentType)
	if err != nil {
		return nil, fmt.Errorf("unresolvable spawning agent type %q: %w", parent.AgentType, err)
	}

	for _, allowed := range parentTmpl.Spawnable {
		if parseSpecifier(allowed).matches(tmpl) {
			return tmpl, nil
		}
	}

	return nil, fmt.Errorf("agent type %q is not authorized to spawn %q", parent.AgentType, agentType)
}

// runChild executes one child to conclusion and aggregates it into the
// parent. The aggregation happens on every path: a child that failed partway
// still contributes its last-known cost and run id.
func (m *Manager) runChild(ctx context.Context, parent *core.AgentState, req SpawnRequest, tmpl *Template, onResponse core.ResponseHandler) ChildOutcome {
	child := parent.NewChildState(tmpl.Specifier(), tmpl.StepBudget, tmpl.IncludeMessageHistory)
	child.AppendMessage(core.Message{Role: core.RoleUser, Text: promptText(req)})

	m.opts.Logger.Info("spawn.child.start",
		"agent_id", child.AgentID,
		"agent_type", child.AgentType,
		"parent_id", parent.AgentID,
	)

	onResponse(core.SubagentStartEvent{AgentID: child.AgentID, DisplayName: tmpl.DisplayName})

	err := m.runner.RunChild(ctx, child, tmpl.Instructions, core.SubagentRelay(onResponse))

	// Whatever the outcome, the child has concluded: read its state off the
	// error when one is attached, and enforce the attachment contract when
	// a bare error slipped through.
	concluded := child
	if err != nil {
		var runErr *core.RunError
		if errors.As(err, &runErr) && runErr.State != nil {
			concluded = runErr.State
		} else {
			err = core.NewRunError(child, err)
		}
	}

	m.mu.Lock()
	parent.AbsorbChild(concluded.RunID, concluded.CreditsUsed)
	m.mu.Unlock()

	onResponse(core.SubagentFinishEvent{
		AgentID:     child.AgentID,
		DisplayName: tmpl.DisplayName,
		CreditsUsed: concluded.CreditsUsed,
		Failed:      err != nil,
	})

	m.opts.Logger.Info("spawn.child.finish",
		"agent_id", child.AgentID,
		"credits_used", concluded.CreditsUsed,
		"failed", err != nil,
	)

	return ChildOutcome{
		AgentID:     child.AgentID,
		RunID:       concluded.RunID,
		AgentType:   child.AgentType,
		DisplayName: tmpl.DisplayName,
		CreditsUsed: concluded.CreditsUsed,
		Output:      concluded.Output,
		Err:         err,
	}
}

// promptText renders the child's opening user message.
func promptText(req SpawnRequest) string {
	if len(req.Params) == 0 {
		return req.Prompt
	}

	return req.Prompt + "\n\n" + util.MarshalCompact(req.Params)
}
