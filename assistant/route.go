package assistant

import (
	"context"
	"fmt"

	ijson "github.com/richinex/hermes/internal/json"
	"github.com/richinex/hermes/llm"
	"github.com/richinex/hermes/model"
)

// route is the per-turn model selection: which model tier answers, with
// how much reasoning and at what length.
type route struct {
	model     string
	effort    llm.Effort
	verbosity llm.Verbosity
}

// Router classifies each user message with a cheap model call and picks
// the answering tier accordingly. Classification failure falls back to
// the standard tier, so routing can never break a turn.
type Router struct {
	provider     llm.Provider
	providerType llm.ProviderType
}

// NewRouter creates a router that classifies on the provider's fast tier.
func NewRouter(provider llm.Provider, providerType llm.ProviderType) *Router {
	return &Router{provider: provider, providerType: providerType}
}

const routePrompt = `Classify this user message for answer planning.
Return a JSON object with exactly these keys:
- "complexity": "simple" | "standard" | "complex"
- "effort": "minimal" | "low" | "medium" | "high" (how much reasoning the answer needs)
- "verbosity": "low" | "medium" | "high" (how long the answer should be)
- "tools_likely": true when answering probably needs web search, weather, time or video transcription

Message: %s`

type routeVerdict struct {
	Complexity  string `json:"complexity"`
	Effort      string `json:"effort"`
	Verbosity   string `json:"verbosity"`
	ToolsLikely bool   `json:"tools_likely"`
}

// defaultRoute is used when no router is configured or classification
// fails.
func (r *Router) defaultRoute() route {
	return route{
		model:     r.providerType.DefaultModel(),
		effort:    llm.EffortMedium,
		verbosity: llm.VerbosityMedium,
	}
}

// classify picks the route for a user message.
func (r *Router) classify(ctx context.Context, text string) route {
	out, err := r.provider.Complete(ctx, llm.Request{
		Model:     r.providerType.FastModel(),
		Messages:  []model.Message{model.UserText(fmt.Sprintf(routePrompt, text))},
		Effort:    llm.EffortMinimal,
		Verbosity: llm.VerbosityLow,
		JSONOnly:  true,
	})
	if err != nil {
		return r.defaultRoute()
	}
	verdict, err := ijson.Decode[routeVerdict](out)
	if err != nil {
		return r.defaultRoute()
	}

	selected := route{
		effort:    parseEffort(verdict.Effort),
		verbosity: parseVerbosity(verdict.Verbosity),
	}
	switch verdict.Complexity {
	case "simple":
		selected.model = r.providerType.FastModel()
	case "complex":
		selected.model = r.providerType.FlagshipModel()
	default:
		selected.model = r.providerType.DefaultModel()
	}

	// A turn that will run tools needs at least some reasoning to fold
	// the results into an answer.
	if verdict.ToolsLikely && selected.effort == llm.EffortMinimal {
		selected.effort = llm.EffortLow
	}
	return selected
}

func parseEffort(s string) llm.Effort {
	switch llm.Effort(s) {
	case llm.EffortMinimal, llm.EffortLow, llm.EffortMedium, llm.EffortHigh:
		return llm.Effort(s)
	default:
		return llm.EffortMedium
	}
}

func parseVerbosity(s string) llm.Verbosity {
	switch llm.Verbosity(s) {
	case llm.VerbosityLow, llm.VerbosityMedium, llm.VerbosityHigh:
		return llm.Verbosity(s)
	default:
		return llm.VerbosityMedium
	}
}
