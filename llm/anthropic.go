// Anthropic Provider implementation using the official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for the Anthropic Messages API
// - Mapping of SSE event variants onto the shared stream events

package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/richinex/hermes/model"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model returns the default model.
func (p *AnthropicProvider) Model() string {
	return p.model
}

func (p *AnthropicProvider) buildParams(req Request) anthropic.MessageNewParams {
	m := req.Model
	if m == "" {
		m = p.model
	}
	messages, system := toAnthropicMessages(req.Messages)

	instructions := req.Instructions
	if req.JSONOnly {
		// No native JSON mode; steer through the system prompt.
		instructions += "\nRespond with a single JSON object and nothing else."
	}
	if instructions != "" {
		system = append([]anthropic.TextBlockParam{{Text: instructions}}, system...)
	}

	maxTokens := int64(maxTokensFor(req.Verbosity, 4096))
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if len(system) > 0 {
		params.System = system
	}

	// Extended thinking approximates the reasoning-effort option. Minimal
	// and low effort leave thinking off.
	var budget int64
	switch req.Effort {
	case EffortMedium:
		budget = 2048
	case EffortHigh:
		budget = 8192
	}
	if budget > 0 {
		if params.MaxTokens < budget+1024 {
			params.MaxTokens = budget + 1024
		}
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(budget)
	}

	for _, t := range req.Tools {
		properties, _ := t.Parameters["properties"].(map[string]any)
		var required []string
		switch req := t.Parameters["required"].(type) {
		case []string:
			required = req
		case []any:
			for _, r := range req {
				if s, ok := r.(string); ok {
					required = append(required, s)
				}
			}
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: properties,
					Required:   required,
				},
			},
		})
	}
	return params
}

// Complete sends a non-streaming request.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	message, err := p.client.Messages.New(ctx, p.buildParams(req))
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	content := ""
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			content += text.Text
		}
	}
	return content, nil
}

// Stream sends a streaming request, translating Messages API events into
// shared stream events.
func (p *AnthropicProvider) Stream(ctx context.Context, req Request, events chan<- StreamEvent) error {
	stream := p.client.Messages.NewStreaming(ctx, p.buildParams(req))

	// Argument fragments arrive keyed by content-block index; the call ID
	// only appears on the block start event.
	callIDs := make(map[int64]string)

	for stream.Next() {
		event := stream.Current()
		switch variant := event.AsAny().(type) {
		case anthropic.ContentBlockStartEvent:
			if tool, ok := variant.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
				callIDs[variant.Index] = tool.ID
				if err := emit(ctx, events, StreamEvent{
					Kind:   EventToolCallStart,
					CallID: tool.ID,
					Name:   tool.Name,
				}); err != nil {
					return err
				}
			}
		case anthropic.ContentBlockDeltaEvent:
			switch delta := variant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text != "" {
					if err := emit(ctx, events, StreamEvent{Kind: EventTextDelta, Delta: delta.Text}); err != nil {
						return err
					}
				}
			case anthropic.ThinkingDelta:
				if delta.Thinking != "" {
					if err := emit(ctx, events, StreamEvent{Kind: EventReasoningDelta, Delta: delta.Thinking}); err != nil {
						return err
					}
				}
			case anthropic.InputJSONDelta:
				if delta.PartialJSON != "" {
					if err := emit(ctx, events, StreamEvent{
						Kind:   EventToolCallArgs,
						CallID: callIDs[variant.Index],
						Delta:  delta.PartialJSON,
					}); err != nil {
						return err
					}
				}
			}
		}
	}
	if stream.Err() != nil {
		return fmt.Errorf("stream error: %w", stream.Err())
	}
	return nil
}

// toAnthropicMessages converts domain messages to the Messages API shape.
// System messages are extracted into system blocks.
func toAnthropicMessages(messages []model.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var out []anthropic.MessageParam
	var system []anthropic.TextBlockParam

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Text()})
		case model.RoleUser:
			out = append(out, anthropic.NewUserMessage(toAnthropicBlocks(msg.Parts)...))
		case model.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Text())))
		case model.RoleToolCall:
			content := anthropic.MessageParam{Role: anthropic.MessageParamRoleAssistant}
			if text := msg.Text(); text != "" {
				content.Content = append(content.Content, anthropic.NewTextBlock(text))
			}
			for _, call := range msg.Calls {
				var input map[string]any
				_ = json.Unmarshal(call.Arguments, &input)
				content.Content = append(content.Content, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    call.ID,
						Name:  call.Name,
						Input: input,
					},
				})
			}
			out = append(out, content)
		case model.RoleToolResult:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.CallID, msg.Text(), false),
			))
		}
	}
	return out, system
}

func toAnthropicBlocks(parts []model.Part) []anthropic.ContentBlockParamUnion {
	var out []anthropic.ContentBlockParamUnion
	for _, p := range parts {
		switch p.Type {
		case model.PartText:
			out = append(out, anthropic.NewTextBlock(p.Text))
		case model.PartImage:
			if p.Data == "" {
				continue
			}
			out = append(out, anthropic.NewImageBlockBase64("image/jpeg", p.Data))
		}
	}
	if len(out) == 0 {
		out = append(out, anthropic.NewTextBlock(""))
	}
	return out
}

// Verify AnthropicProvider implements Provider
var _ Provider = (*AnthropicProvider)(nil)
