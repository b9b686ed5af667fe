// Package memory assembles the model-facing context for a turn: a
// short-term window of recent conversation pairs taken verbatim, a
// long-term subset of older pairs selected by relevance, a cached profile
// summary and a compact digest of recent user messages.
package memory

import (
	"context"
	"encoding/base64"
	"os"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/richinex/hermes/model"
	"github.com/richinex/hermes/relevance"
)

// Defaults for the assembly limits.
const (
	// DefaultHistoryLimit caps how many trailing messages of history are
	// considered at all for a turn.
	DefaultHistoryLimit = 12
	// DefaultShortWindow is how many trailing pairs are included verbatim,
	// without spending a relevance judgment.
	DefaultShortWindow = 3
	// DefaultDigestLimit caps the recent-conversation digest.
	DefaultDigestLimit = 40

	// digestPreviewLen truncates each digest line.
	digestPreviewLen = 100
)

// Config holds assembly limits. The zero value is safe: every field falls
// back to its default.
type Config struct {
	HistoryLimit int
	ShortWindow  int
	DigestLimit  int
}

func (c Config) historyLimit() int {
	if c.HistoryLimit <= 0 {
		return DefaultHistoryLimit
	}
	return c.HistoryLimit
}

func (c Config) shortWindow() int {
	if c.ShortWindow <= 0 {
		return DefaultShortWindow
	}
	return c.ShortWindow
}

func (c Config) digestLimit() int {
	if c.DigestLimit <= 0 {
		return DefaultDigestLimit
	}
	return c.DigestLimit
}

// Assembler selects which parts of a conversation survive into the next
// model call.
type Assembler struct {
	judge  relevance.Judge
	config Config
}

// NewAssembler creates an assembler using the given judge for long-term
// relevance decisions.
func NewAssembler(judge relevance.Judge, config Config) *Assembler {
	return &Assembler{judge: judge, config: config}
}

// Assemble turns (full history, new user message, cached profile) into a
// short-term and a long-term message group.
//
// Short-term holds the profile summary and recent digest as system
// messages, followed by the last few pairs verbatim. Long-term holds older
// pairs that a concurrent relevance fan-out judged relevant, in original
// chronological order. A failed judgment drops that pair and nothing else;
// Assemble itself never fails.
func (a *Assembler) Assemble(ctx context.Context, history []model.Message, current model.Message, profile model.ProfileSummary) (shortTerm, longTerm []model.Message) {
	cleaned := stripUsageNotes(history)

	trimmed := cleaned
	if limit := a.config.historyLimit(); len(trimmed) > limit {
		trimmed = trimmed[len(trimmed)-limit:]
	}
	groups := groupPairs(trimmed)

	if text := RenderProfile(profile); text != "" {
		shortTerm = append(shortTerm, model.SystemText(text))
	}
	if digest := recentDigest(cleaned, a.config.digestLimit()); digest != "" {
		shortTerm = append(shortTerm, model.SystemText(digest))
	}

	window := a.config.shortWindow()
	cut := len(groups) - window
	if cut < 0 {
		cut = 0
	}
	for _, group := range groups[cut:] {
		shortTerm = append(shortTerm, InlineImages(group)...)
	}

	older := groups[:cut]
	if len(older) == 0 {
		return shortTerm, nil
	}

	// One judgment per candidate pair, all in flight at once, so the added
	// latency is one round-trip regardless of history depth. Results land
	// in an index-addressed slice, which keeps chronological order no
	// matter the completion order.
	query := current.Text()
	keep := make([]bool, len(older))
	var wg sync.WaitGroup
	for i, group := range older {
		wg.Add(1)
		go func(i int, group []model.Message) {
			defer wg.Done()
			keep[i] = a.judge.IsRelevant(ctx, serializeGroup(group), query)
		}(i, group)
	}
	wg.Wait()

	for i, group := range older {
		if keep[i] {
			longTerm = append(longTerm, InlineImages(group)...)
		}
	}
	return shortTerm, longTerm
}

// groupPairs splits history into chronological (user, assistant) pairs. A
// message without its counterpart forms a singleton group.
func groupPairs(history []model.Message) [][]model.Message {
	var groups [][]model.Message
	for i := 0; i < len(history); {
		if history[i].Role == model.RoleUser && i+1 < len(history) && history[i+1].Role == model.RoleAssistant {
			groups = append(groups, []model.Message{history[i], history[i+1]})
			i += 2
			continue
		}
		groups = append(groups, []model.Message{history[i]})
		i++
	}
	return groups
}

// serializeGroup renders a pair as plain text for the relevance judge.
func serializeGroup(group []model.Message) string {
	var lines []string
	for _, msg := range group {
		lines = append(lines, string(msg.Role)+": "+msg.Text())
	}
	return strings.Join(lines, "\n")
}

// stripUsageNotes returns a copy of history with the tool-usage display
// note removed from assistant messages. The note is UI decoration, not
// model input.
func stripUsageNotes(history []model.Message) []model.Message {
	out := make([]model.Message, len(history))
	for i, msg := range history {
		out[i] = msg
		if msg.Role != model.RoleAssistant {
			continue
		}
		parts := make([]model.Part, len(msg.Parts))
		copy(parts, msg.Parts)
		for j, p := range parts {
			if p.Type == model.PartText {
				parts[j].Text = model.StripUsageNote(p.Text)
			}
		}
		out[i].Parts = parts
	}
	return out
}

// InlineImages resolves image references to base64 data on copies of the
// given messages. Only images that actually survive into a prompt pay the
// encoding cost; everything at rest stays a file path. An unreadable image
// is dropped from the copy, degrading the message rather than the turn.
func InlineImages(group []model.Message) []model.Message {
	out := make([]model.Message, len(group))
	for i, msg := range group {
		out[i] = msg
		if !msg.HasImage() {
			continue
		}
		var parts []model.Part
		for _, p := range msg.Parts {
			if p.Type == model.PartImage && p.Data == "" {
				data, err := encodeImageFile(p.Path)
				if err != nil {
					continue
				}
				p.Data = data
			}
			parts = append(parts, p)
		}
		out[i].Parts = parts
	}
	return out
}

func encodeImageFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// recentDigest renders a numbered list of recent user-message previews.
// This gives the model lightweight recency awareness even over pairs the
// relevance filter excluded.
func recentDigest(history []model.Message, limit int) string {
	groups := groupPairs(history)
	start := len(groups) - limit
	if start < 0 {
		start = 0
	}

	var lines []string
	for idx, group := range groups[start:] {
		if group[0].Role != model.RoleUser {
			continue
		}
		preview := truncate(group[0].Text(), digestPreviewLen)
		lines = append(lines, strconv.Itoa(start+idx+1)+". "+preview)
	}
	if len(lines) == 0 {
		return ""
	}
	return "Recent conversation content (user-only, newest last):\n" + strings.Join(lines, "\n")
}

// truncate shortens s to at most n bytes plus an ellipsis, cutting on a
// rune boundary so multibyte text stays valid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
