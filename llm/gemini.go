// Google Gemini Provider implementation using the official
// google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - System instruction handling via config
// - Function calls arrive whole, not as argument fragments; they are
//   replayed as a start event followed by one argument event

package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/richinex/hermes/model"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client  *genai.Client
	model   string
	initErr error // client initialization error, reported on first use
}

// NewGeminiProvider creates a new Gemini provider. If client initialization
// fails, the error is stored and returned on first use.
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return &GeminiProvider{
			model:   model,
			initErr: fmt.Errorf("failed to initialize Gemini client: %w", err),
		}
	}
	return &GeminiProvider{client: client, model: model}
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the default model.
func (p *GeminiProvider) Model() string {
	return p.model
}

func (p *GeminiProvider) buildRequest(req Request) (string, []*genai.Content, *genai.GenerateContentConfig) {
	m := req.Model
	if m == "" {
		m = p.model
	}
	contents, systemInstruction := toGeminiContents(req.Messages)

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokensFor(req.Verbosity, 4096)),
	}
	instructions := req.Instructions
	if systemInstruction != "" {
		if instructions != "" {
			instructions += "\n"
		}
		instructions += systemInstruction
	}
	if instructions != "" {
		config.SystemInstruction = genai.NewContentFromText(instructions, genai.RoleUser)
	}
	if req.JSONOnly {
		config.ResponseMIMEType = "application/json"
	}
	if len(req.Tools) > 0 {
		var declarations []*genai.FunctionDeclaration
		for _, t := range req.Tools {
			declarations = append(declarations, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGeminiSchema(t.Parameters),
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}
	return m, contents, config
}

// Complete sends a non-streaming request.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	if p.initErr != nil {
		return "", p.initErr
	}
	m, contents, config := p.buildRequest(req)
	response, err := p.client.Models.GenerateContent(ctx, m, contents, config)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	return response.Text(), nil
}

// Stream sends a streaming request. Gemini delivers function calls as whole
// parts; each one becomes a start event followed by a single argument event
// carrying the full JSON.
func (p *GeminiProvider) Stream(ctx context.Context, req Request, events chan<- StreamEvent) error {
	if p.initErr != nil {
		return p.initErr
	}
	m, contents, config := p.buildRequest(req)

	for response, err := range p.client.Models.GenerateContentStream(ctx, m, contents, config) {
		if err != nil {
			return fmt.Errorf("stream error: %w", err)
		}
		if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
			continue
		}
		for _, part := range response.Candidates[0].Content.Parts {
			if part.Text != "" {
				kind := EventTextDelta
				if part.Thought {
					kind = EventReasoningDelta
				}
				if err := emit(ctx, events, StreamEvent{Kind: kind, Delta: part.Text}); err != nil {
					return err
				}
			}
			if part.FunctionCall != nil {
				// Gemini does not mint call IDs.
				callID := part.FunctionCall.ID
				if callID == "" {
					callID = uuid.New().String()
				}
				if err := emit(ctx, events, StreamEvent{
					Kind:   EventToolCallStart,
					CallID: callID,
					Name:   part.FunctionCall.Name,
				}); err != nil {
					return err
				}
				args, merr := json.Marshal(part.FunctionCall.Args)
				if merr != nil {
					args = []byte("{}")
				}
				if err := emit(ctx, events, StreamEvent{
					Kind:   EventToolCallArgs,
					CallID: callID,
					Delta:  string(args),
				}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// toGeminiContents converts domain messages to Gemini content. The function
// name for a tool result is recovered from the preceding tool-call message,
// since Gemini addresses results by name rather than call ID.
func toGeminiContents(messages []model.Message) ([]*genai.Content, string) {
	var contents []*genai.Content
	var systemInstruction string
	callNames := make(map[string]string)

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			if systemInstruction != "" {
				systemInstruction += "\n"
			}
			systemInstruction += msg.Text()
		case model.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: toGeminiParts(msg.Parts),
			})
		case model.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Text(), genai.RoleModel))
		case model.RoleToolCall:
			content := &genai.Content{Role: genai.RoleModel}
			if text := msg.Text(); text != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: text})
			}
			for _, call := range msg.Calls {
				callNames[call.ID] = call.Name
				var args map[string]any
				_ = json.Unmarshal(call.Arguments, &args)
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: call.Name, Args: args},
				})
			}
			contents = append(contents, content)
		case model.RoleToolResult:
			name := callNames[msg.CallID]
			var result map[string]any
			_ = json.Unmarshal([]byte(msg.Text()), &result)
			if result == nil {
				result = map[string]any{"result": msg.Text()}
			}
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{Name: name, Response: result},
				}},
			})
		}
	}
	return contents, systemInstruction
}

func toGeminiParts(parts []model.Part) []*genai.Part {
	var out []*genai.Part
	for _, p := range parts {
		switch p.Type {
		case model.PartText:
			out = append(out, &genai.Part{Text: p.Text})
		case model.PartImage:
			if p.Data == "" {
				continue
			}
			raw, err := base64.StdEncoding.DecodeString(p.Data)
			if err != nil {
				continue
			}
			out = append(out, &genai.Part{
				InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: raw},
			})
		}
	}
	if len(out) == 0 {
		out = append(out, &genai.Part{Text: ""})
	}
	return out
}

// toGeminiSchema converts a JSON-schema parameter map to the Gemini schema
// type. Arrays get a default string item type when unspecified, which Gemini
// requires.
func toGeminiSchema(params map[string]any) *genai.Schema {
	schema := &genai.Schema{Type: genai.TypeObject}

	if t, ok := params["type"].(string); ok {
		schema.Type = toGeminiType(t)
	}
	switch req := params["required"].(type) {
	case []string:
		schema.Required = req
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	if props, ok := params["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for name, prop := range props {
			propMap, ok := prop.(map[string]any)
			if !ok {
				continue
			}
			schema.Properties[name] = toGeminiProperty(propMap)
		}
	}
	return schema
}

func toGeminiProperty(prop map[string]any) *genai.Schema {
	schema := &genai.Schema{}
	if t, ok := prop["type"].(string); ok {
		schema.Type = toGeminiType(t)
	}
	if d, ok := prop["description"].(string); ok {
		schema.Description = d
	}
	if schema.Type == genai.TypeArray {
		if items, ok := prop["items"].(map[string]any); ok {
			schema.Items = toGeminiProperty(items)
		} else {
			schema.Items = &genai.Schema{Type: genai.TypeString}
		}
	}
	if schema.Type == genai.TypeObject {
		if props, ok := prop["properties"].(map[string]any); ok {
			schema.Properties = make(map[string]*genai.Schema)
			for name, p := range props {
				if pMap, ok := p.(map[string]any); ok {
					schema.Properties[name] = toGeminiProperty(pMap)
				}
			}
		}
	}
	return schema
}

func toGeminiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer", "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// Verify GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)
