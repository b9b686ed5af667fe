// DeepSeek Provider implementation using the go-openai library.
//
// Information Hiding:
// - Uses the OpenAI-compatible API with a different base URL
// - Reasoning deltas surface through the deepseek-reasoner models

package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// DeepSeekProvider implements the Provider interface for DeepSeek. The wire
// protocol is OpenAI-compatible, so it wraps OpenAIProvider with a custom
// client.
type DeepSeekProvider struct {
	inner *OpenAIProvider
}

// NewDeepSeekProvider creates a new DeepSeek provider.
func NewDeepSeekProvider(apiKey, model string) *DeepSeekProvider {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = deepseekBaseURL

	return &DeepSeekProvider{
		inner: &OpenAIProvider{
			client: openai.NewClientWithConfig(config),
			model:  model,
		},
	}
}

// Name returns the provider name.
func (p *DeepSeekProvider) Name() string {
	return "deepseek"
}

// Model returns the default model.
func (p *DeepSeekProvider) Model() string {
	return p.inner.model
}

// Complete sends a non-streaming request.
func (p *DeepSeekProvider) Complete(ctx context.Context, req Request) (string, error) {
	// DeepSeek rejects the reasoning_effort parameter.
	req.Effort = ""
	return p.inner.Complete(ctx, req)
}

// Stream sends a streaming request.
func (p *DeepSeekProvider) Stream(ctx context.Context, req Request, events chan<- StreamEvent) error {
	req.Effort = ""
	return p.inner.Stream(ctx, req, events)
}

// Verify DeepSeekProvider implements Provider
var _ Provider = (*DeepSeekProvider)(nil)
