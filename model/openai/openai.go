// Package openai adapts the OpenAI Chat Completions API (streaming, with
// function/tool calling) to the model.Model interface, emitting deltas as a
// StreamChunk sequence.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/model"
)

// aggCall aggregates partial tool call streaming deltas (id, name, arguments)
// so complete calls can be closed out when the finish reason arrives.
type aggCall struct{ id, name, args string }

// Options configures the OpenAI model adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	// CreditsPer1KInput and CreditsPer1KOutput convert token usage into the
	// credit charge reported on the finish chunk.
	CreditsPer1KInput  float64
	CreditsPer1KOutput float64
}

// Model wraps the OpenAI Chat Completions API behind the model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI model using the official client.
func New(optFns ...func(o *Options)) *Model {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI model from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
		CreditsPer1KInput:   1,
		CreditsPer1KOutput:  3,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{client: client, opts: opts}
}

// Stream implements model.Model over the streaming Chat Completions API.
func (m *Model) Stream(ctx context.Context, req model.Request) (<-chan core.StreamChunk, <-chan error) {
	out := make(chan core.StreamChunk, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := m.buildParams(req)
		stream := m.client.Chat.Completions.NewStreaming(ctx, params)

		var (
			usage  openai.CompletionUsage
			reason = "stop"
			agg    = map[int64]*aggCall{}
		)

		for stream.Next() {
			ck := stream.Current()

			if ck.Usage.TotalTokens > 0 {
				usage = ck.Usage
			}

			for _, choice := range ck.Choices {
				if choice.Delta.Content != "" {
					out <- core.TextChunk{Text: choice.Delta.Content}
				}

				for _, tc := range choice.Delta.ToolCalls {
					ac, ok := agg[tc.Index]
					if !ok {
						ac = &aggCall{}
						agg[tc.Index] = ac
					}

					if tc.ID != "" {
						ac.id = tc.ID
					}
					if tc.Function.Name != "" {
						ac.name = tc.Function.Name
					}
					if tc.Function.Arguments != "" {
						ac.args += tc.Function.Arguments

						// Forward the raw delta; the extractor accumulates
						// partial argument text itself.
						out <- core.ToolCallChunk{
							Name: ac.name,
							Raw:  tc.Function.Arguments,
						}
					}
				}

				if choice.FinishReason != "" {
					reason = choice.FinishReason

					for _, ac := range agg {
						out <- core.ToolCallChunk{Name: ac.name, Done: true}
					}

					agg = map[int64]*aggCall{}
				}
			}
		}

		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("openai streaming error: %w", err)
			return
		}

		out <- core.FinishChunk{
			Reason:  reason,
			Credits: m.credits(usage),
		}
	}()

	return out, errCh
}

func (m *Model) credits(usage openai.CompletionUsage) float64 {
	return float64(usage.PromptTokens)/1000*m.opts.CreditsPer1KInput +
		float64(usage.CompletionTokens)/1000*m.opts.CreditsPer1KOutput
}

// buildParams assembles the request including messages and tool definitions.
func (m *Model) buildParams(req model.Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req),
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}

	if len(req.Tools) == 0 {
		return params
	}

	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, t := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  t.Parameters,
			},
		}
	}

	params.Tools = tools

	return params
}

// buildMessages converts conversation history to OpenAI chat messages,
// attaching each tool result immediately after the assistant turn that
// issued its call.
func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	toolResults := map[string]*core.ToolResult{}
	for _, msg := range req.Messages {
		if msg.Role == core.RoleTool && msg.Result != nil {
			toolResults[msg.Result.ToolCallID] = msg.Result
		}
	}

	var messages []openai.ChatCompletionMessageParamUnion

	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Text))
		case core.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Text))
		case core.RoleAssistant:
			if len(msg.Invocations) == 0 {
				messages = append(messages, openai.AssistantMessage(msg.Text))
				continue
			}

			toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(msg.Invocations))
			for i, inv := range msg.Invocations {
				toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID:   inv.ToolCallID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      inv.ToolName,
						Arguments: model.EncodeArguments(inv.Input),
					},
				}
			}

			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: toolCalls,
				},
			})

			for _, inv := range msg.Invocations {
				if res, ok := toolResults[inv.ToolCallID]; ok {
					messages = append(messages, openai.ToolMessage(model.RenderResult(res), inv.ToolCallID))
					delete(toolResults, inv.ToolCallID)
				}
			}
		case core.RoleTool:
			// Embedded above, next to the originating call.
		default:
			if msg.Text != "" {
				messages = append(messages, openai.UserMessage(msg.Text))
			}
		}
	}

	return messages
}
