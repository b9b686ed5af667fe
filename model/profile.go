package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Confidence grades how strongly a profile entry is supported by the
// underlying messages.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// NormalizeConfidence maps anything outside the known vocabulary to medium.
func NormalizeConfidence(s string) Confidence {
	switch Confidence(strings.ToLower(strings.TrimSpace(s))) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceLow:
		return ConfidenceLow
	default:
		return ConfidenceMedium
	}
}

// Profile section caps. Summaries stay bounded no matter how long the
// conversation history grows.
const (
	MaxPreferences = 15
	MaxTopics      = 8
	MaxFacts       = 5
)

// RatedItem is a profile entry with a confidence grade.
type RatedItem struct {
	Text       string     `json:"text"`
	Confidence Confidence `json:"confidence"`
}

// UnmarshalJSON accepts the current {text, confidence} shape, the model's
// native {preference|topic, confidence} shape, and legacy bare strings
// (upgraded to medium confidence).
func (r *RatedItem) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		r.Text = strings.TrimSpace(plain)
		r.Confidence = ConfidenceMedium
		return nil
	}
	var obj struct {
		Text       string `json:"text"`
		Preference string `json:"preference"`
		Topic      string `json:"topic"`
		Confidence string `json:"confidence"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	text := obj.Text
	if text == "" {
		text = obj.Preference
	}
	if text == "" {
		text = obj.Topic
	}
	r.Text = strings.TrimSpace(text)
	r.Confidence = NormalizeConfidence(obj.Confidence)
	return nil
}

// ProfileSummary is the long-term memory digest for one user: ranked
// response-style preferences, ranked topic highlights and a short list of
// free-text facts.
type ProfileSummary struct {
	Preferences []RatedItem `json:"assistant_response_preferences"`
	Topics      []RatedItem `json:"notable_topic_highlights"`
	Facts       []string    `json:"helpful_user_insights"`
}

// ProfileMeta records when a summary snapshot was taken and from how many
// messages it was derived.
type ProfileMeta struct {
	LastUpdated    time.Time `json:"last_updated"`
	SourceMessages int       `json:"source_messages"`
}

// IsEmpty reports whether the summary has no content in any section.
func (p ProfileSummary) IsEmpty() bool {
	return len(p.Preferences) == 0 && len(p.Topics) == 0 && len(p.Facts) == 0
}

// Normalize enforces section caps and drops blank entries.
func (p ProfileSummary) Normalize() ProfileSummary {
	out := ProfileSummary{}
	for _, item := range p.Preferences {
		if item.Text == "" {
			continue
		}
		item.Confidence = NormalizeConfidence(string(item.Confidence))
		out.Preferences = append(out.Preferences, item)
		if len(out.Preferences) == MaxPreferences {
			break
		}
	}
	for _, item := range p.Topics {
		if item.Text == "" {
			continue
		}
		item.Confidence = NormalizeConfidence(string(item.Confidence))
		out.Topics = append(out.Topics, item)
		if len(out.Topics) == MaxTopics {
			break
		}
	}
	for _, fact := range p.Facts {
		fact = strings.TrimSpace(fact)
		if fact == "" {
			continue
		}
		out.Facts = append(out.Facts, fact)
		if len(out.Facts) == MaxFacts {
			break
		}
	}
	return out
}
