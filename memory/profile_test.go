package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/richinex/hermes/llm"
	"github.com/richinex/hermes/model"
)

// stubProvider returns a canned completion, recording the last request.
type stubProvider struct {
	output  string
	err     error
	lastReq llm.Request
}

func (p *stubProvider) Name() string  { return "stub" }
func (p *stubProvider) Model() string { return "stub-model" }

func (p *stubProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	p.lastReq = req
	return p.output, p.err
}

func (p *stubProvider) Stream(_ context.Context, _ llm.Request, _ chan<- llm.StreamEvent) error {
	return errors.New("stub provider does not stream")
}

func TestRenderProfile(t *testing.T) {
	summary := model.ProfileSummary{
		Preferences: []model.RatedItem{{Text: "short answers", Confidence: model.ConfidenceHigh}},
		Topics:      []model.RatedItem{{Text: "distributed systems", Confidence: model.ConfidenceMedium}},
		Facts:       []string{"works as a nurse"},
	}
	text := RenderProfile(summary)

	for _, want := range []string{
		"do not fabricate",
		"- [high] short answers",
		"- [medium] distributed systems",
		"- works as a nurse",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered profile missing %q:\n%s", want, text)
		}
	}
}

func TestRenderProfileEmpty(t *testing.T) {
	if text := RenderProfile(model.ProfileSummary{}); text != "" {
		t.Errorf("empty profile should render empty, got %q", text)
	}
}

func TestRefreshParsesModelOutput(t *testing.T) {
	provider := &stubProvider{output: `{
		"assistant_response_preferences": [{"text": "answer in Spanish", "confidence": "high"}],
		"notable_topic_highlights": [{"text": "gardening", "confidence": "unsure"}],
		"helpful_user_insights": ["lives in Madrid"]
	}`}
	s := NewModelSummarizer(provider, "stub-model", 0, 0)

	summary, ok := s.Refresh(context.Background(), []model.Message{model.UserText("hola")})
	if !ok {
		t.Fatal("expected a summary")
	}
	if !provider.lastReq.JSONOnly {
		t.Error("summarizer should request JSON-only output")
	}
	if len(summary.Preferences) != 1 || summary.Preferences[0].Text != "answer in Spanish" {
		t.Errorf("unexpected preferences: %+v", summary.Preferences)
	}
	// Unknown confidence normalizes to medium.
	if summary.Topics[0].Confidence != model.ConfidenceMedium {
		t.Errorf("confidence = %q, want medium", summary.Topics[0].Confidence)
	}
}

func TestRefreshFailureKeepsNothing(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
		history  []model.Message
	}{
		{
			name:     "provider error",
			provider: &stubProvider{err: errors.New("api down")},
			history:  []model.Message{model.UserText("hello")},
		},
		{
			name:     "unparseable output",
			provider: &stubProvider{output: "I could not produce a summary."},
			history:  []model.Message{model.UserText("hello")},
		},
		{
			name:     "no user messages",
			provider: &stubProvider{output: "{}"},
			history:  []model.Message{model.AssistantText("hi there")},
		},
		{
			name:     "empty summary",
			provider: &stubProvider{output: `{"assistant_response_preferences": []}`},
			history:  []model.Message{model.UserText("hello")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewModelSummarizer(tt.provider, "stub-model", 0, 0)
			if _, ok := s.Refresh(context.Background(), tt.history); ok {
				t.Error("expected refresh to report failure")
			}
		})
	}
}

func TestSourceTextBudget(t *testing.T) {
	s := NewModelSummarizer(&stubProvider{}, "stub-model", 80, 50)

	history := []model.Message{
		model.UserText(strings.Repeat("old ", 20)),
		model.UserText("middle message here"),
		model.UserText("newest message"),
	}
	source := s.sourceText(history)

	if strings.Contains(source, "old") {
		t.Errorf("oldest message should be dropped by the budget: %q", source)
	}
	if !strings.Contains(source, "newest message") {
		t.Errorf("newest message must survive: %q", source)
	}
}

func TestSourceTextMessageLimit(t *testing.T) {
	s := NewModelSummarizer(&stubProvider{}, "stub-model", 2, 4000)

	history := []model.Message{
		model.UserText("one"),
		model.UserText("two"),
		model.UserText("three"),
	}
	source := s.sourceText(history)

	if strings.Contains(source, "one") {
		t.Errorf("message beyond the source limit included: %q", source)
	}
	if !strings.Contains(source, "two") || !strings.Contains(source, "three") {
		t.Errorf("expected the last two messages: %q", source)
	}
}
