// OpenAI Provider implementation using the go-openai library.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for the Chat Completions API
// - Streaming and tool-call delta accumulation via go-openai

package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/richinex/hermes/model"
)

// OpenAIProvider implements the Provider interface for OpenAI.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider with a default model.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Model returns the default model.
func (p *OpenAIProvider) Model() string {
	return p.model
}

func (p *OpenAIProvider) buildRequest(req Request) openai.ChatCompletionRequest {
	m := req.Model
	if m == "" {
		m = p.model
	}
	out := openai.ChatCompletionRequest{
		Model:               m,
		Messages:            toOpenAIMessages(req.Instructions, req.Messages),
		MaxCompletionTokens: maxTokensFor(req.Verbosity, 4096),
	}
	if req.Effort != "" {
		out.ReasoningEffort = string(req.Effort)
	}
	if req.JSONOnly {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
				Strict:      t.Strict,
			},
		})
	}
	return out
}

// Complete sends a non-streaming request.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream sends a streaming request, translating go-openai deltas into
// shared stream events. Tool-call argument fragments are emitted in arrival
// order, keyed by the call ID announced at the call's first chunk.
func (p *OpenAIProvider) Stream(ctx context.Context, req Request, events chan<- StreamEvent) error {
	oreq := p.buildRequest(req)
	oreq.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, oreq)
	if err != nil {
		return fmt.Errorf("stream creation failed: %w", err)
	}
	defer stream.Close()

	// The API identifies a call by index within the stream; the ID only
	// appears on the first chunk for that index.
	callIDs := make(map[int]string)

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream recv failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta

		if delta.ReasoningContent != "" {
			if err := emit(ctx, events, StreamEvent{Kind: EventReasoningDelta, Delta: delta.ReasoningContent}); err != nil {
				return err
			}
		}
		if delta.Content != "" {
			if err := emit(ctx, events, StreamEvent{Kind: EventTextDelta, Delta: delta.Content}); err != nil {
				return err
			}
		}
		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			if tc.ID != "" {
				callIDs[idx] = tc.ID
				if err := emit(ctx, events, StreamEvent{
					Kind:   EventToolCallStart,
					CallID: tc.ID,
					Name:   tc.Function.Name,
				}); err != nil {
					return err
				}
			}
			if tc.Function.Arguments != "" {
				if err := emit(ctx, events, StreamEvent{
					Kind:   EventToolCallArgs,
					CallID: callIDs[idx],
					Delta:  tc.Function.Arguments,
				}); err != nil {
					return err
				}
			}
		}
	}
}

// emit sends an event, respecting context cancellation.
func emit(ctx context.Context, events chan<- StreamEvent, ev StreamEvent) error {
	select {
	case events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// toOpenAIMessages converts domain messages to the Chat Completions shape.
func toOpenAIMessages(instructions string, messages []model.Message) []openai.ChatCompletionMessage {
	var out []openai.ChatCompletionMessage
	if instructions != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: instructions,
		})
	}
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: msg.Text(),
			})
		case model.RoleUser:
			if msg.HasImage() {
				out = append(out, openai.ChatCompletionMessage{
					Role:         openai.ChatMessageRoleUser,
					MultiContent: toOpenAIParts(msg.Parts),
				})
			} else {
				out = append(out, openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleUser,
					Content: msg.Text(),
				})
			}
		case model.RoleAssistant:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Text(),
			})
		case model.RoleToolCall:
			m := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Text(),
			}
			for _, call := range msg.Calls {
				m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(call.Arguments),
					},
				})
			}
			out = append(out, m)
		case model.RoleToolResult:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    msg.Text(),
				ToolCallID: msg.CallID,
			})
		}
	}
	return out
}

func toOpenAIParts(parts []model.Part) []openai.ChatMessagePart {
	var out []openai.ChatMessagePart
	for _, p := range parts {
		switch p.Type {
		case model.PartText:
			out = append(out, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
		case model.PartImage:
			if p.Data == "" {
				// Unresolved reference; the image was never inlined and
				// must not leak a local path to the API.
				continue
			}
			out = append(out, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: "data:image/jpeg;base64," + p.Data,
				},
			})
		}
	}
	return out
}

// WhisperTranscriber converts audio files to text through the OpenAI
// transcription endpoint. It backs the video-transcription fallback path.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

// NewWhisperTranscriber creates a transcriber using the given API key.
func NewWhisperTranscriber(apiKey string) *WhisperTranscriber {
	return &WhisperTranscriber{
		client: openai.NewClient(apiKey),
		model:  ModelOpenAIWhisper,
	}
}

// Transcribe runs speech-to-text on the audio file at path.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: path,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return resp.Text, nil
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
