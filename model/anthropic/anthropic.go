// Package anthropic adapts the Anthropic Messages API to the model.Model
// interface, emitting the response as a StreamChunk sequence.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/model"
)

// Options configures the Anthropic model adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
	// CreditsPer1KInput and CreditsPer1KOutput convert token usage into the
	// credit charge reported on the finish chunk.
	CreditsPer1KInput  float64
	CreditsPer1KOutput float64
}

// Model wraps the Anthropic Messages API behind the model.Model interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		Model:              anthropic.ModelClaude3_5Sonnet20241022,
		Temperature:        0.7,
		MaxTokens:          4096,
		CreditsPer1KInput:  1,
		CreditsPer1KOutput: 3,
	}
}

// New creates a new Anthropic model using the official client.
func New(optFns ...func(o *Options)) *Model {
	opts := defaultOptions()

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Model{
		client: &client,
		opts:   opts,
	}
}

// NewFromClient creates a new Anthropic model from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{
		client: client,
		opts:   opts,
	}
}

// Stream implements model.Model. The Messages API response is fetched in one
// call and replayed as chunks: text blocks, completed tool calls, then the
// finish with the token-derived credit charge.
func (m *Model) Stream(ctx context.Context, req model.Request) (<-chan core.StreamChunk, <-chan error) {
	out := make(chan core.StreamChunk, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := anthropic.MessageNewParams{
			Model:       m.opts.Model,
			Messages:    buildMessages(req.Messages),
			MaxTokens:   m.opts.MaxTokens,
			Temperature: anthropic.Float(m.opts.Temperature),
		}

		if system := buildSystem(req); len(system) > 0 {
			params.System = system
		}

		if len(req.Tools) > 0 {
			params.Tools = buildTools(req.Tools)
		}

		resp, err := m.client.Messages.New(ctx, params)
		if err != nil {
			errCh <- fmt.Errorf("anthropic api error: %w", err)
			return
		}

		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				textBlock := block.AsText()
				if textBlock.Text != "" {
					out <- core.TextChunk{Text: textBlock.Text}
				}
			case "thinking":
				thinkingBlock := block.AsThinking()
				if thinkingBlock.Thinking != "" {
					out <- core.ReasoningChunk{Text: thinkingBlock.Thinking}
				}
			case "tool_use":
				toolBlock := block.AsToolUse()

				raw := ""
				if toolBlock.Input != nil {
					if data, err := json.Marshal(toolBlock.Input); err == nil {
						raw = string(data)
					}
				}

				out <- core.ToolCallChunk{
					Name: toolBlock.Name,
					Raw:  raw,
					Done: true,
				}
			}
		}

		reason := "stop"
		if resp.StopReason != "" {
			reason = string(resp.StopReason)
		}

		out <- core.FinishChunk{
			Reason:  reason,
			Credits: m.credits(resp.Usage),
		}
	}()

	return out, errCh
}

func (m *Model) credits(usage anthropic.Usage) float64 {
	return float64(usage.InputTokens)/1000*m.opts.CreditsPer1KInput +
		float64(usage.OutputTokens)/1000*m.opts.CreditsPer1KOutput
}

// buildMessages converts conversation history to Anthropic message format,
// attaching each tool result immediately after the assistant turn that
// issued its call.
func buildMessages(messages []core.Message) []anthropic.MessageParam {
	toolResults := map[string]*core.ToolResult{}
	for _, msg := range messages {
		if msg.Role == core.RoleTool && msg.Result != nil {
			toolResults[msg.Result.ToolCallID] = msg.Result
		}
	}

	var params []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case core.RoleSystem, core.RoleTool:
			// System handled separately, tool results embedded below.
		case core.RoleAssistant:
			var content []anthropic.ContentBlockParamUnion
			if msg.Text != "" {
				content = append(content, anthropic.NewTextBlock(msg.Text))
			}

			var callIDs []string
			for _, inv := range msg.Invocations {
				var input any = map[string]string(inv.Input)
				content = append(content, anthropic.NewToolUseBlock(inv.ToolCallID, input, inv.ToolName))
				callIDs = append(callIDs, inv.ToolCallID)
			}

			if len(content) > 0 {
				params = append(params, anthropic.NewAssistantMessage(content...))
			}

			var resultBlocks []anthropic.ContentBlockParamUnion
			for _, id := range callIDs {
				if res, ok := toolResults[id]; ok {
					resultBlocks = append(resultBlocks, anthropic.NewToolResultBlock(id, model.RenderResult(res), res.IsError()))
					delete(toolResults, id)
				}
			}

			if len(resultBlocks) > 0 {
				params = append(params, anthropic.NewUserMessage(resultBlocks...))
			}
		default:
			if msg.Text != "" {
				params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text)))
			}
		}
	}

	return params
}

func buildSystem(req model.Request) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam

	if req.Instructions != "" {
		blocks = append(blocks, anthropic.TextBlockParam{Text: req.Instructions})
	}

	for _, msg := range req.Messages {
		if msg.Role == core.RoleSystem && msg.Text != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: msg.Text})
		}
	}

	return blocks
}

// buildTools converts tool definitions to the Anthropic tool format.
func buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	params := make([]anthropic.ToolUnionParam, len(tools))

	for i, t := range tools {
		schema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if t.Parameters != nil {
			if properties, ok := t.Parameters["properties"]; ok {
				schema.Properties = properties
			}

			switch required := t.Parameters["required"].(type) {
			case []string:
				schema.Required = required
			case []any:
				for _, r := range required {
					if s, ok := r.(string); ok {
						schema.Required = append(schema.Required, s)
					}
				}
			}
		}

		params[i] = anthropic.ToolUnionParamOfTool(schema, t.Name)
	}

	return params
}
