package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/richinex/hermes/llm"
)

// completeProvider returns a canned Complete result.
type completeProvider struct {
	output  string
	err     error
	lastReq llm.Request
}

func (p *completeProvider) Name() string  { return "complete" }
func (p *completeProvider) Model() string { return "complete-model" }

func (p *completeProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	p.lastReq = req
	return p.output, p.err
}

func (p *completeProvider) Stream(context.Context, llm.Request, chan<- llm.StreamEvent) error {
	return errors.New("not streaming")
}

func TestRouterClassify(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		wantModel string
		wantEff   llm.Effort
		wantVerb  llm.Verbosity
	}{
		{
			name:      "simple goes to the fast tier",
			output:    `{"complexity":"simple","effort":"minimal","verbosity":"low","tools_likely":false}`,
			wantModel: llm.ProviderOpenAI.FastModel(),
			wantEff:   llm.EffortMinimal,
			wantVerb:  llm.VerbosityLow,
		},
		{
			name:      "complex goes to the flagship",
			output:    `{"complexity":"complex","effort":"high","verbosity":"high","tools_likely":false}`,
			wantModel: llm.ProviderOpenAI.FlagshipModel(),
			wantEff:   llm.EffortHigh,
			wantVerb:  llm.VerbosityHigh,
		},
		{
			name:      "tool-likely floors minimal effort",
			output:    `{"complexity":"simple","effort":"minimal","verbosity":"low","tools_likely":true}`,
			wantModel: llm.ProviderOpenAI.FastModel(),
			wantEff:   llm.EffortLow,
			wantVerb:  llm.VerbosityLow,
		},
		{
			name:      "unknown vocabulary falls back per field",
			output:    `{"complexity":"standard","effort":"extreme","verbosity":"verbose"}`,
			wantModel: llm.ProviderOpenAI.DefaultModel(),
			wantEff:   llm.EffortMedium,
			wantVerb:  llm.VerbosityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &completeProvider{output: tt.output}
			r := NewRouter(provider, llm.ProviderOpenAI)

			got := r.classify(context.Background(), "hello")
			if got.model != tt.wantModel {
				t.Errorf("model = %q, want %q", got.model, tt.wantModel)
			}
			if got.effort != tt.wantEff {
				t.Errorf("effort = %q, want %q", got.effort, tt.wantEff)
			}
			if got.verbosity != tt.wantVerb {
				t.Errorf("verbosity = %q, want %q", got.verbosity, tt.wantVerb)
			}
			// Classification runs on the fast tier.
			if provider.lastReq.Model != llm.ProviderOpenAI.FastModel() {
				t.Errorf("classified on %q", provider.lastReq.Model)
			}
		})
	}
}

func TestRouterFailureFallsBack(t *testing.T) {
	for name, provider := range map[string]*completeProvider{
		"api error":      {err: errors.New("down")},
		"garbage output": {output: "no json here"},
	} {
		t.Run(name, func(t *testing.T) {
			r := NewRouter(provider, llm.ProviderOpenAI)
			got := r.classify(context.Background(), "hello")
			if got.model != llm.ProviderOpenAI.DefaultModel() || got.effort != llm.EffortMedium {
				t.Errorf("fallback route = %+v", got)
			}
		})
	}
}
