package spawn

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/extract"
	"github.com/hupe1980/agentcore/tool"
)

// spawnTool is the built-in spawn_agents tool. Invoking it recursively runs
// the whole pipeline for each requested child via the manager.
type spawnTool struct {
	manager *Manager
}

// NewTool wraps a Manager as the spawn_agents tool.
func NewTool(manager *Manager) tool.Tool {
	return &spawnTool{manager: manager}
}

func (t *spawnTool) Name() string { return extract.KindSpawnAgents.String() }

func (t *spawnTool) Kind() extract.ToolKind { return extract.KindSpawnAgents }

func (t *spawnTool) Description() string {
	return "Spawn one or more child agents to work on sub-tasks concurrently."
}

func (t *spawnTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agents": map[string]any{
				"type":        "array",
				"description": "Children to spawn: objects with agent_type, prompt, and optional params.",
			},
			"agent_type": map[string]any{
				"type":        "string",
				"description": "Single-child form: the agent type to spawn.",
			},
			"prompt": map[string]any{
				"type":        "string",
				"description": "Single-child form: the child's task prompt.",
			},
		},
	}
}

func (t *spawnTool) Deferred() bool { return false }

// Call parses the spawn requests, runs them through the manager against the
// invoking run's state, and reports each child's conclusion. A missing run
// scope is a wiring error and surfaces as a failed call.
func (t *spawnTool) Call(ctx context.Context, inv core.ToolInvocation) (*core.ToolResult, error) {
	scope, ok := core.RunScopeFrom(ctx)
	if !ok {
		return nil, tool.NewToolError(t.Name(), "no run scope on context", "MISSING_RUN_SCOPE")
	}

	requests, err := parseRequests(inv.Input)
	if err != nil {
		return core.NewErrorResult(inv, err), nil
	}

	if len(requests) == 0 {
		return core.NewErrorResultf(inv, "spawn_agents: no agents requested"), nil
	}

	outcomes := t.manager.Spawn(ctx, scope.State, requests, scope.OnResponse)

	summaries := make([]map[string]any, len(outcomes))
	for i, outcome := range outcomes {
		summary := map[string]any{
			"agent_type":   outcome.AgentType,
			"credits_used": outcome.CreditsUsed,
		}

		if outcome.AgentID != "" {
			summary["agent_id"] = outcome.AgentID
		}
		if outcome.RunID != "" {
			summary["run_id"] = outcome.RunID
		}

		if outcome.Err != nil {
			summary["error"] = outcome.Err.Error()
		} else if text, ok := outcome.Output.(core.LastMessageOutput); ok {
			summary["output"] = text.Text
		}

		summaries[i] = summary
	}

	return core.NewToolResult(inv, core.JSONPart{Value: map[string]any{"agents": summaries}}), nil
}

// parseRequests accepts either an "agents" JSON array (also the tag body) or
// the single-child attribute form.
func parseRequests(input map[string]string) ([]SpawnRequest, error) {
	raw := input["agents"]
	if raw == "" {
		raw = input["body"]
	}

	if raw != "" {
		parsed := gjson.Parse(raw)
		if !parsed.IsArray() {
			return nil, fmt.Errorf("spawn_agents: agents must be a JSON array")
		}

		var requests []SpawnRequest
		for _, item := range parsed.Array() {
			req := SpawnRequest{
				AgentType: item.Get("agent_type").String(),
				Prompt:    item.Get("prompt").String(),
			}

			if params, ok := item.Get("params").Value().(map[string]any); ok {
				req.Params = params
			}

			if req.AgentType == "" {
				return nil, fmt.Errorf("spawn_agents: agent entry missing agent_type")
			}

			requests = append(requests, req)
		}

		return requests, nil
	}

	if agentType := input["agent_type"]; agentType != "" {
		return []SpawnRequest{{
			AgentType: agentType,
			Prompt:    input["prompt"],
		}}, nil
	}

	return nil, nil
}
