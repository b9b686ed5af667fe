package memory

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/richinex/hermes/model"
)

// funcJudge adapts a function to the relevance.Judge interface.
type funcJudge struct {
	mu       sync.Mutex
	snippets []string
	fn       func(snippet, query string) bool
}

func (j *funcJudge) IsRelevant(_ context.Context, snippet, query string) bool {
	j.mu.Lock()
	j.snippets = append(j.snippets, snippet)
	j.mu.Unlock()
	if j.fn == nil {
		return false
	}
	return j.fn(snippet, query)
}

func pair(user, assistant string) []model.Message {
	return []model.Message{model.UserText(user), model.AssistantText(assistant)}
}

func historyOf(pairs ...[]model.Message) []model.Message {
	var out []model.Message
	for _, p := range pairs {
		out = append(out, p...)
	}
	return out
}

func texts(messages []model.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Text()
	}
	return out
}

func TestAssembleJudgesOnlyOlderPairs(t *testing.T) {
	judge := &funcJudge{}
	a := NewAssembler(judge, Config{})

	history := historyOf(
		pair("about cats", "cats answer"),
		pair("about dogs", "dogs answer"),
		pair("recent one", "r1"),
		pair("recent two", "r2"),
		pair("recent three", "r3"),
	)
	shortTerm, longTerm := a.Assemble(context.Background(), history, model.UserText("tell me more"), model.ProfileSummary{})

	// Five pairs with a window of three leaves exactly the two oldest for
	// the judge.
	if len(judge.snippets) != 2 {
		t.Fatalf("expected 2 judged pairs, got %d: %v", len(judge.snippets), judge.snippets)
	}
	joined := strings.Join(judge.snippets, "\n")
	if !strings.Contains(joined, "about cats") || !strings.Contains(joined, "about dogs") {
		t.Errorf("judged the wrong pairs: %v", judge.snippets)
	}
	if strings.Contains(joined, "recent") {
		t.Errorf("short-window pair reached the judge: %v", judge.snippets)
	}
	if longTerm != nil {
		t.Errorf("judge said no, expected empty long-term, got %v", texts(longTerm))
	}

	// Short-term carries the digest plus the three newest pairs verbatim.
	var shortTexts []string
	for _, m := range shortTerm {
		if m.Role != model.RoleSystem {
			shortTexts = append(shortTexts, m.Text())
		}
	}
	want := []string{"recent one", "r1", "recent two", "r2", "recent three", "r3"}
	if len(shortTexts) != len(want) {
		t.Fatalf("short-term pairs: got %v, want %v", shortTexts, want)
	}
	for i := range want {
		if shortTexts[i] != want[i] {
			t.Errorf("short-term[%d] = %q, want %q", i, shortTexts[i], want[i])
		}
	}
}

func TestAssembleHonorsHistoryLimit(t *testing.T) {
	judge := &funcJudge{}
	a := NewAssembler(judge, Config{HistoryLimit: 12})

	// Eight pairs, sixteen messages; the limit keeps only the last twelve,
	// so the two oldest pairs never even reach the judge.
	history := historyOf(
		pair("ancient one", "a"),
		pair("ancient two", "a"),
		pair("middle one", "a"),
		pair("middle two", "a"),
		pair("middle three", "a"),
		pair("recent one", "r1"),
		pair("recent two", "r2"),
		pair("recent three", "r3"),
	)
	a.Assemble(context.Background(), history, model.UserText("query"), model.ProfileSummary{})

	joined := strings.Join(judge.snippets, "\n")
	if strings.Contains(joined, "ancient") {
		t.Errorf("pair beyond the history limit reached the judge: %v", judge.snippets)
	}
	if len(judge.snippets) != 3 {
		t.Errorf("expected 3 judged pairs, got %d: %v", len(judge.snippets), judge.snippets)
	}
}

func TestAssembleSelectsRelevantPairs(t *testing.T) {
	judge := &funcJudge{fn: func(snippet, _ string) bool {
		return strings.Contains(snippet, "cats")
	}}
	a := NewAssembler(judge, Config{HistoryLimit: 20})

	history := historyOf(
		pair("about cats", "cats answer"),
		pair("about dogs", "dogs answer"),
		pair("about birds", "birds answer"),
		pair("recent one", "r1"),
		pair("recent two", "r2"),
		pair("recent three", "r3"),
	)
	_, longTerm := a.Assemble(context.Background(), history, model.UserText("more cats please"), model.ProfileSummary{})

	got := texts(longTerm)
	want := []string{"about cats", "cats answer"}
	if len(got) != len(want) {
		t.Fatalf("long-term: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("long-term[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAssembleKeepsChronologicalOrder(t *testing.T) {
	// Judgments finish in reverse order; output order must not follow
	// completion order.
	judge := &funcJudge{fn: func(snippet, _ string) bool {
		if strings.Contains(snippet, "first") {
			time.Sleep(30 * time.Millisecond)
		} else if strings.Contains(snippet, "second") {
			time.Sleep(15 * time.Millisecond)
		}
		return true
	}}
	a := NewAssembler(judge, Config{HistoryLimit: 20})

	history := historyOf(
		pair("first topic", "a1"),
		pair("second topic", "a2"),
		pair("third topic", "a3"),
		pair("recent one", "r1"),
		pair("recent two", "r2"),
		pair("recent three", "r3"),
	)
	_, longTerm := a.Assemble(context.Background(), history, model.UserText("query"), model.ProfileSummary{})

	got := texts(longTerm)
	want := []string{"first topic", "a1", "second topic", "a2", "third topic", "a3"}
	if len(got) != len(want) {
		t.Fatalf("long-term: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("long-term[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAssembleStripsUsageNotes(t *testing.T) {
	judge := &funcJudge{fn: func(string, string) bool { return true }}
	a := NewAssembler(judge, Config{})

	noted := model.AssistantText("plain answer" + model.UsageNote(
		[]model.ToolUse{{Name: "web_search", Arguments: `{"query":"x"}`}},
		map[string]string{"web_search": "Web Search"},
	))
	history := []model.Message{model.UserText("question"), noted}

	shortTerm, _ := a.Assemble(context.Background(), history, model.UserText("next"), model.ProfileSummary{})
	for _, m := range shortTerm {
		if strings.Contains(m.Text(), "Tools used") {
			t.Errorf("usage note survived into assembled context: %q", m.Text())
		}
	}
}

func TestAssembleSingletonTail(t *testing.T) {
	judge := &funcJudge{}
	a := NewAssembler(judge, Config{})

	// A user message with no assistant reply yet forms its own group.
	history := append(historyOf(pair("q1", "a1")), model.UserText("dangling"))
	shortTerm, _ := a.Assemble(context.Background(), history, model.UserText("now"), model.ProfileSummary{})

	var got []string
	for _, m := range shortTerm {
		if m.Role != model.RoleSystem {
			got = append(got, m.Text())
		}
	}
	want := []string{"q1", "a1", "dangling"}
	if len(got) != len(want) {
		t.Fatalf("short-term: got %v, want %v", got, want)
	}
}

func TestAssemblePrefixesProfileAndDigest(t *testing.T) {
	judge := &funcJudge{}
	a := NewAssembler(judge, Config{})

	profile := model.ProfileSummary{
		Facts: []string{"lives in Lagos"},
	}
	history := historyOf(pair("hello there", "hi"))
	shortTerm, _ := a.Assemble(context.Background(), history, model.UserText("next"), profile)

	if len(shortTerm) < 2 {
		t.Fatalf("expected profile and digest system messages, got %v", texts(shortTerm))
	}
	if shortTerm[0].Role != model.RoleSystem || !strings.Contains(shortTerm[0].Text(), "lives in Lagos") {
		t.Errorf("first message should be the profile, got %q", shortTerm[0].Text())
	}
	if shortTerm[1].Role != model.RoleSystem || !strings.Contains(shortTerm[1].Text(), "1. hello there") {
		t.Errorf("second message should be the digest, got %q", shortTerm[1].Text())
	}
}

func TestRecentDigestTruncatesPreviews(t *testing.T) {
	long := strings.Repeat("x", 150)
	digest := recentDigest(historyOf(pair(long, "ok")), DefaultDigestLimit)

	if !strings.Contains(digest, strings.Repeat("x", digestPreviewLen)+"...") {
		t.Errorf("preview not truncated: %q", digest)
	}
	if strings.Contains(digest, strings.Repeat("x", digestPreviewLen+1)) {
		t.Errorf("preview exceeds limit: %q", digest)
	}
}

func TestRecentDigestKeepsMultibyteTextValid(t *testing.T) {
	// 3 bytes per rune; the byte limit lands mid-rune and the cut must
	// back up to the rune boundary.
	long := strings.Repeat("あ", 60)
	digest := recentDigest(historyOf(pair(long, "ok")), DefaultDigestLimit)

	if !utf8.ValidString(digest) {
		t.Fatalf("digest is not valid UTF-8: %q", digest)
	}
	if !strings.Contains(digest, "あ...") {
		t.Errorf("preview should end on a whole rune: %q", digest)
	}
	if strings.Contains(digest, strings.Repeat("あ", 34)) {
		t.Errorf("preview exceeds the byte limit: %q", digest)
	}
}

func TestRecentDigestNumbersFromWindowStart(t *testing.T) {
	var pairs [][]model.Message
	for i := 0; i < 45; i++ {
		pairs = append(pairs, pair("question "+strings.Repeat("i", i%3), "answer"))
	}
	digest := recentDigest(historyOf(pairs...), 40)

	if !strings.Contains(digest, "6. question") {
		t.Errorf("digest should start numbering at the window start:\n%s", digest)
	}
	if strings.Contains(digest, "\n5. ") {
		t.Errorf("digest includes pairs before the window:\n%s", digest)
	}
}

func TestGroupPairs(t *testing.T) {
	history := []model.Message{
		model.UserText("u1"),
		model.AssistantText("a1"),
		model.AssistantText("orphan assistant"),
		model.UserText("u2"),
	}
	groups := groupPairs(history)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if len(groups[0]) != 2 || len(groups[1]) != 1 || len(groups[2]) != 1 {
		t.Errorf("unexpected group shapes: %v", groups)
	}
}
