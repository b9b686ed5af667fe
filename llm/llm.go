// Package llm provides the model-API boundary.
//
// Provider is the abstract interface for chat-model backends. Each
// implementation hides:
// - API client initialization and authentication
// - Request/response format conversion from the domain message model
// - Mapping of provider-native stream events onto the shared event kinds
package llm

import (
	"context"

	"github.com/richinex/hermes/model"
)

// Effort selects the reasoning budget for a request. Providers that cannot
// express an effort level ignore it.
type Effort string

const (
	EffortMinimal Effort = "minimal"
	EffortLow     Effort = "low"
	EffortMedium  Effort = "medium"
	EffortHigh    Effort = "high"
)

// Verbosity selects how expansive the answer should be. Providers without a
// native knob translate it into an output-token budget.
type Verbosity string

const (
	VerbosityLow    Verbosity = "low"
	VerbosityMedium Verbosity = "medium"
	VerbosityHigh   Verbosity = "high"
)

// ToolSchema describes one tool the model may call, in JSON-schema form.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Strict      bool           `json:"strict"`
}

// Request is a single chat-model call.
type Request struct {
	// Model overrides the provider's default model when non-empty.
	Model string
	// Instructions is prepended as system-level guidance.
	Instructions string
	Messages     []model.Message
	Tools        []ToolSchema
	Effort       Effort
	Verbosity    Verbosity
	// JSONOnly forces a bare JSON object response where the backend
	// supports it; other backends get an instruction line instead.
	JSONOnly bool
}

// EventKind discriminates stream events.
type EventKind int

const (
	// EventTextDelta carries a fragment of the answer text.
	EventTextDelta EventKind = iota
	// EventReasoningDelta carries a fragment of reasoning output.
	EventReasoningDelta
	// EventToolCallStart announces a tool invocation (ID and name known).
	EventToolCallStart
	// EventToolCallArgs carries a fragment of a tool call's argument JSON.
	EventToolCallArgs
)

// StreamEvent is one typed delta from a streaming model response. Consumers
// must tolerate empty deltas and ignore kinds they do not recognize.
type StreamEvent struct {
	Kind   EventKind
	Delta  string
	CallID string
	Name   string
}

// Provider is the abstract interface for chat-model backends.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the provider's default model.
	Model() string

	// Complete sends a non-streaming request and returns the answer text.
	Complete(ctx context.Context, req Request) (string, error)

	// Stream sends a streaming request, emitting typed events in arrival
	// order. The caller owns the channel; Stream never closes it.
	Stream(ctx context.Context, req Request, events chan<- StreamEvent) error
}

// maxTokensFor translates a verbosity level into an output-token budget for
// backends without a native verbosity option.
func maxTokensFor(v Verbosity, fallback int) int {
	switch v {
	case VerbosityLow:
		return 1024
	case VerbosityMedium:
		return 4096
	case VerbosityHigh:
		return 16384
	default:
		return fallback
	}
}
