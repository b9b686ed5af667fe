// Package relevance reduces arbitrary text plus a query to a boolean
// keep/drop decision through a cheap classification call.
//
// The policy is fail-closed: malformed output, an API error or anything
// outside the affirmative vocabulary means "not relevant". Unclear
// judgments should exclude stale context, not include it. No retries; one
// call per judgment, with callers fanning many judgments out concurrently.
package relevance

import (
	"context"
	"fmt"
	"strings"

	"github.com/richinex/hermes/llm"
	"github.com/richinex/hermes/model"
)

// Judge decides whether a text snippet is relevant to the current request.
type Judge interface {
	IsRelevant(ctx context.Context, snippet, query string) bool
}

// affirmative is the output vocabulary accepted as "relevant".
var affirmative = map[string]bool{
	"true":     true,
	"yes":      true,
	"relevant": true,
	"1":        true,
}

// ModelJudge implements Judge with a single low-latency model call.
type ModelJudge struct {
	provider llm.Provider
	model    string
}

// NewModelJudge creates a judge backed by the given provider and model.
// The model should be the provider's cheap tier.
func NewModelJudge(provider llm.Provider, judgeModel string) *ModelJudge {
	return &ModelJudge{provider: provider, model: judgeModel}
}

// IsRelevant asks the model for a one-word verdict. Any failure resolves to
// false; it never returns an error and never panics.
func (j *ModelJudge) IsRelevant(ctx context.Context, snippet, query string) bool {
	prompt := fmt.Sprintf(`Is this history relevant to the current request?

History: %s
Current: %s

Output ONLY: true or false`, snippet, query)

	out, err := j.provider.Complete(ctx, llm.Request{
		Model:     j.model,
		Messages:  []model.Message{model.UserText(prompt)},
		Effort:    llm.EffortMinimal,
		Verbosity: llm.VerbosityLow,
	})
	if err != nil {
		return false
	}
	return affirmative[strings.ToLower(strings.TrimSpace(out))]
}

// Verify ModelJudge implements Judge
var _ Judge = (*ModelJudge)(nil)
