package memory

import (
	"context"
	"fmt"
	"strings"

	ijson "github.com/richinex/hermes/internal/json"
	"github.com/richinex/hermes/llm"
	"github.com/richinex/hermes/model"
)

// Defaults for profile summarization.
const (
	// DefaultProfileSourceLimit caps how many trailing user messages feed a
	// profile refresh.
	DefaultProfileSourceLimit = 80
	// DefaultProfileCharBudget caps the total characters of source text.
	DefaultProfileCharBudget = 4000
)

// RenderProfile formats a profile summary as a system-message body. An
// empty summary renders as the empty string so callers can skip the
// message entirely.
func RenderProfile(summary model.ProfileSummary) string {
	if summary.IsEmpty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("User profile from prior chats (do not fabricate beyond this list):")

	writeRated := func(header string, items []model.RatedItem) {
		if len(items) == 0 {
			return
		}
		b.WriteString("\n" + header)
		for _, item := range items {
			b.WriteString("\n- [" + string(item.Confidence) + "] " + item.Text)
		}
	}
	writeRated("Response preferences:", summary.Preferences)
	writeRated("Topic highlights:", summary.Topics)

	if len(summary.Facts) > 0 {
		b.WriteString("\nUser insights:")
		for _, fact := range summary.Facts {
			b.WriteString("\n- " + fact)
		}
	}
	return b.String()
}

// Summarizer distills conversation history into a profile summary.
type Summarizer interface {
	// Refresh produces a fresh summary from history. The second return is
	// false when nothing useful could be produced; callers keep the cached
	// profile in that case.
	Refresh(ctx context.Context, history []model.Message) (model.ProfileSummary, bool)
}

// ModelSummarizer implements Summarizer with one structured-output call on
// a cheap model tier.
type ModelSummarizer struct {
	provider    llm.Provider
	model       string
	sourceLimit int
	charBudget  int
}

// NewModelSummarizer creates a summarizer using the given provider and
// model. Zero limits fall back to defaults.
func NewModelSummarizer(provider llm.Provider, summaryModel string, sourceLimit, charBudget int) *ModelSummarizer {
	if sourceLimit <= 0 {
		sourceLimit = DefaultProfileSourceLimit
	}
	if charBudget <= 0 {
		charBudget = DefaultProfileCharBudget
	}
	return &ModelSummarizer{
		provider:    provider,
		model:       summaryModel,
		sourceLimit: sourceLimit,
		charBudget:  charBudget,
	}
}

const summarizerPrompt = `Summarize what these user messages reveal about the user.
Return a JSON object with exactly these keys:
- "assistant_response_preferences": array of {"text", "confidence"} items describing how the user wants answers delivered (tone, length, format, language)
- "notable_topic_highlights": array of {"text", "confidence"} items naming subjects the user keeps returning to
- "helpful_user_insights": array of strings with stable facts about the user (location, occupation, tools they use)

"confidence" is one of "high", "medium", "low". Only include what the
messages actually support; empty arrays are fine.

User messages, oldest first:
%s`

// Refresh summarizes recent user messages into a profile. Any failure,
// from an empty source to a model error to unparseable output, returns
// (zero, false) so the caller's cached profile survives.
func (s *ModelSummarizer) Refresh(ctx context.Context, history []model.Message) (model.ProfileSummary, bool) {
	source := s.sourceText(history)
	if source == "" {
		return model.ProfileSummary{}, false
	}

	out, err := s.provider.Complete(ctx, llm.Request{
		Model:     s.model,
		Messages:  []model.Message{model.UserText(fmt.Sprintf(summarizerPrompt, source))},
		Effort:    llm.EffortLow,
		Verbosity: llm.VerbosityMedium,
		JSONOnly:  true,
	})
	if err != nil {
		return model.ProfileSummary{}, false
	}

	summary, err := ijson.Decode[model.ProfileSummary](out)
	if err != nil {
		return model.ProfileSummary{}, false
	}
	summary = summary.Normalize()
	if summary.IsEmpty() {
		return model.ProfileSummary{}, false
	}
	return summary, true
}

// sourceText collects the last sourceLimit user messages, newest kept,
// bounded to charBudget characters. Oldest-first in the output so the
// model reads them chronologically.
func (s *ModelSummarizer) sourceText(history []model.Message) string {
	var userTexts []string
	for _, msg := range history {
		if msg.Role != model.RoleUser {
			continue
		}
		if text := strings.TrimSpace(msg.Text()); text != "" {
			userTexts = append(userTexts, text)
		}
	}
	if len(userTexts) > s.sourceLimit {
		userTexts = userTexts[len(userTexts)-s.sourceLimit:]
	}

	// Walk backwards so the budget drops the oldest messages first.
	total := 0
	start := len(userTexts)
	for i := len(userTexts) - 1; i >= 0; i-- {
		total += len(userTexts[i]) + 1
		if total > s.charBudget {
			break
		}
		start = i
	}
	if start == len(userTexts) {
		return ""
	}
	return "- " + strings.Join(userTexts[start:], "\n- ")
}

// Verify ModelSummarizer implements Summarizer
var _ Summarizer = (*ModelSummarizer)(nil)
