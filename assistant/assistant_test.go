package assistant

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/richinex/hermes/llm"
	"github.com/richinex/hermes/memory"
	"github.com/richinex/hermes/model"
	"github.com/richinex/hermes/storage"
	"github.com/richinex/hermes/tools"
)

// scriptedProvider replays one event script per Stream call and records
// every request it receives.
type scriptedProvider struct {
	scripts  [][]llm.StreamEvent
	errs     []error
	requests []llm.Request
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-model" }

func (p *scriptedProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	return "", errors.New("scripted provider does not complete")
}

func (p *scriptedProvider) Stream(ctx context.Context, req llm.Request, events chan<- llm.StreamEvent) error {
	call := len(p.requests)
	p.requests = append(p.requests, req)
	if call < len(p.errs) && p.errs[call] != nil {
		return p.errs[call]
	}
	if call >= len(p.scripts) {
		return errors.New("unexpected extra model request")
	}
	for _, ev := range p.scripts[call] {
		select {
		case events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// dropJudge judges nothing relevant; histories in these tests are short
// enough that it never runs.
type dropJudge struct{}

func (dropJudge) IsRelevant(context.Context, string, string) bool { return false }

// echoTool records its arguments and returns a fixed output.
type echoTool struct {
	name    string
	output  string
	gotArgs []json.RawMessage
}

func (t *echoTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        t.name,
		Description: "test tool",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
	}
}

func (t *echoTool) Execute(_ context.Context, args json.RawMessage) tools.ToolResult {
	t.gotArgs = append(t.gotArgs, args)
	return tools.SuccessResult(t.output)
}

func newTestAssistant(t *testing.T, provider llm.Provider, toolset ...tools.Tool) *Assistant {
	t.Helper()

	cfg := Config{
		Provider:  provider,
		Assembler: memory.NewAssembler(dropJudge{}, memory.Config{}),
		History:   storage.NewMemoryStore(),
		Profiles:  storage.NewMemoryStore(),
	}
	if len(toolset) > 0 {
		registry := tools.NewRegistry()
		for _, tool := range toolset {
			if err := registry.Register(tool); err != nil {
				t.Fatalf("Register: %v", err)
			}
		}
		cfg.Registry = registry
		cfg.Executor = tools.NewExecutor(registry, 0)
	}

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func drainDeltas(deltas chan string) string {
	close(deltas)
	var b strings.Builder
	for d := range deltas {
		b.WriteString(d)
	}
	return b.String()
}

func TestRespondDirectAnswer(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{{
		{Kind: llm.EventTextDelta, Delta: "The answer "},
		{Kind: llm.EventTextDelta, Delta: "is 42."},
	}}}
	a := newTestAssistant(t, provider, &echoTool{name: "echo", output: "x"})

	deltas := make(chan string, 16)
	result, err := a.Respond(context.Background(), Request{
		UserID: "u", ConversationID: "c", Text: "what is the answer?",
	}, deltas)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if result.Text != "The answer is 42." {
		t.Errorf("Text = %q", result.Text)
	}
	if result.ModelCalls != 1 {
		t.Errorf("ModelCalls = %d, want 1", result.ModelCalls)
	}
	if len(result.ToolsUsed) != 0 {
		t.Errorf("ToolsUsed = %v, want none", result.ToolsUsed)
	}
	if got := drainDeltas(deltas); got != "The answer is 42." {
		t.Errorf("streamed %q", got)
	}

	// Tools were offered on the only request.
	if len(provider.requests) != 1 {
		t.Fatalf("made %d requests, want 1", len(provider.requests))
	}
	if len(provider.requests[0].Tools) == 0 {
		t.Error("first request should offer tools")
	}
}

func TestRespondInlinesCurrentImage(t *testing.T) {
	raw := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	imagePath := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(imagePath, raw, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{{
		{Kind: llm.EventTextDelta, Delta: "A photo."},
	}}}
	a := newTestAssistant(t, provider)

	if _, err := a.Respond(context.Background(), Request{
		UserID: "u", ConversationID: "c", Text: "what is this?", ImagePath: imagePath,
	}, nil); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	// The turn that attaches an image must send it: the request's last
	// message carries the image part with its data populated.
	msgs := provider.requests[0].Messages
	current := msgs[len(msgs)-1]
	if len(current.Parts) != 2 || current.Parts[1].Type != model.PartImage {
		t.Fatalf("current message parts = %+v", current.Parts)
	}
	if want := base64.StdEncoding.EncodeToString(raw); current.Parts[1].Data != want {
		t.Errorf("image data = %q, want %q", current.Parts[1].Data, want)
	}
}

func TestRespondTextBeforeToolCallSkipsToolRound(t *testing.T) {
	// Answer text arriving first means a direct answer; tool-call events
	// after it do not trigger a tool round.
	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{{
		{Kind: llm.EventTextDelta, Delta: ""},
		{Kind: llm.EventTextDelta, Delta: "Answering directly."},
		{Kind: llm.EventToolCallStart, CallID: "c1", Name: "echo"},
		{Kind: llm.EventToolCallArgs, CallID: "c1", Delta: `{}`},
	}}}
	tool := &echoTool{name: "echo", output: "never"}
	a := newTestAssistant(t, provider, tool)

	deltas := make(chan string, 16)
	result, err := a.Respond(context.Background(), Request{
		UserID: "u", ConversationID: "c", Text: "hi",
	}, deltas)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if result.ModelCalls != 1 {
		t.Errorf("ModelCalls = %d, want 1", result.ModelCalls)
	}
	if result.Text != "Answering directly." {
		t.Errorf("Text = %q", result.Text)
	}
	if len(tool.gotArgs) != 0 {
		t.Errorf("tool should never run, got %v", tool.gotArgs)
	}
	if len(provider.requests) != 1 {
		t.Errorf("made %d requests, want 1", len(provider.requests))
	}
	if got := drainDeltas(deltas); got != "Answering directly." {
		t.Errorf("streamed %q", got)
	}
}

func TestRespondToolRound(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{
		{
			{Kind: llm.EventToolCallStart, CallID: "c1", Name: "echo"},
			{Kind: llm.EventToolCallArgs, CallID: "c1", Delta: `{"va`},
			{Kind: llm.EventToolCallArgs, CallID: "c1", Delta: `lue":"x"}`},
		},
		{
			{Kind: llm.EventTextDelta, Delta: "Here is what I found."},
		},
	}}
	tool := &echoTool{name: "echo", output: "tool says hi"}
	a := newTestAssistant(t, provider, tool)

	deltas := make(chan string, 16)
	result, err := a.Respond(context.Background(), Request{
		UserID: "u", ConversationID: "c", Text: "use the tool",
	}, deltas)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if result.ModelCalls != 2 {
		t.Errorf("ModelCalls = %d, want 2", result.ModelCalls)
	}
	if result.Text != "Here is what I found." {
		t.Errorf("Text = %q", result.Text)
	}
	if len(result.ToolsUsed) != 1 || result.ToolsUsed[0].Name != "echo" {
		t.Errorf("ToolsUsed = %+v", result.ToolsUsed)
	}
	if result.ToolsUsed[0].Arguments != `{"value":"x"}` {
		t.Errorf("audit arguments = %q", result.ToolsUsed[0].Arguments)
	}
	if len(tool.gotArgs) != 1 || string(tool.gotArgs[0]) != `{"value":"x"}` {
		t.Errorf("tool received %v", tool.gotArgs)
	}
	if got := drainDeltas(deltas); got != "Here is what I found." {
		t.Errorf("streamed %q", got)
	}

	if len(provider.requests) != 2 {
		t.Fatalf("made %d requests, want 2", len(provider.requests))
	}
	second := provider.requests[1]
	if len(second.Tools) != 0 {
		t.Error("second request must not offer tools")
	}
	if !strings.Contains(second.Instructions, "Tools are unavailable") {
		t.Errorf("second request instructions: %q", second.Instructions)
	}

	// The tool round is visible to the second request: the call message
	// followed by its result.
	msgs := second.Messages
	if len(msgs) < 3 {
		t.Fatalf("second request has %d messages", len(msgs))
	}
	callMsg := msgs[len(msgs)-2]
	resultMsg := msgs[len(msgs)-1]
	if callMsg.Role != model.RoleToolCall || len(callMsg.Calls) != 1 {
		t.Errorf("missing tool-call message: %+v", callMsg)
	}
	if resultMsg.Role != model.RoleToolResult || resultMsg.CallID != "c1" {
		t.Errorf("missing tool-result message: %+v", resultMsg)
	}
	if resultMsg.Text() != "tool says hi" {
		t.Errorf("tool result text = %q", resultMsg.Text())
	}
}

func TestRespondManyCallsStillTwoRequests(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{
		{
			{Kind: llm.EventToolCallStart, CallID: "c1", Name: "echo"},
			{Kind: llm.EventToolCallArgs, CallID: "c1", Delta: `{}`},
			{Kind: llm.EventToolCallStart, CallID: "c2", Name: "echo"},
			{Kind: llm.EventToolCallArgs, CallID: "c2", Delta: `{}`},
			{Kind: llm.EventToolCallStart, CallID: "c3", Name: "echo"},
			{Kind: llm.EventToolCallArgs, CallID: "c3", Delta: `{}`},
		},
		{{Kind: llm.EventTextDelta, Delta: "done"}},
	}}
	tool := &echoTool{name: "echo", output: "ok"}
	a := newTestAssistant(t, provider, tool)

	result, err := a.Respond(context.Background(), Request{
		UserID: "u", ConversationID: "c", Text: "go",
	}, nil)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if len(provider.requests) != 2 {
		t.Errorf("made %d requests, want exactly 2", len(provider.requests))
	}
	if len(result.ToolsUsed) != 3 {
		t.Errorf("ToolsUsed = %d, want 3", len(result.ToolsUsed))
	}
	if len(tool.gotArgs) != 3 {
		t.Errorf("tool executed %d times, want 3", len(tool.gotArgs))
	}
}

func TestRespondBadArgumentsFailOnlyThatCall(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{
		{
			{Kind: llm.EventToolCallStart, CallID: "bad", Name: "echo"},
			{Kind: llm.EventToolCallArgs, CallID: "bad", Delta: `{"broken":`},
			{Kind: llm.EventToolCallStart, CallID: "good", Name: "echo"},
			{Kind: llm.EventToolCallArgs, CallID: "good", Delta: `{"fine":true}`},
		},
		{{Kind: llm.EventTextDelta, Delta: "done"}},
	}}
	tool := &echoTool{name: "echo", output: "ok"}
	a := newTestAssistant(t, provider, tool)

	result, err := a.Respond(context.Background(), Request{
		UserID: "u", ConversationID: "c", Text: "go",
	}, nil)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	// The bad call never reached the tool; the good one did.
	if len(tool.gotArgs) != 1 || string(tool.gotArgs[0]) != `{"fine":true}` {
		t.Errorf("tool received %v", tool.gotArgs)
	}
	if len(result.ToolsUsed) != 2 {
		t.Errorf("both calls should be audited, got %+v", result.ToolsUsed)
	}

	// Both calls have results in the second request, the bad one an error.
	second := provider.requests[1].Messages
	var badResult, goodResult string
	for _, msg := range second {
		if msg.Role == model.RoleToolResult {
			switch msg.CallID {
			case "bad":
				badResult = msg.Text()
			case "good":
				goodResult = msg.Text()
			}
		}
	}
	if !strings.Contains(badResult, "invalid JSON arguments") {
		t.Errorf("bad call result = %q", badResult)
	}
	if goodResult != "ok" {
		t.Errorf("good call result = %q", goodResult)
	}
}

func TestRespondUnknownToolFailsOnlyThatCall(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{
		{
			{Kind: llm.EventToolCallStart, CallID: "c1", Name: "made_up_tool"},
			{Kind: llm.EventToolCallArgs, CallID: "c1", Delta: `{}`},
		},
		{{Kind: llm.EventTextDelta, Delta: "answered anyway"}},
	}}
	a := newTestAssistant(t, provider, &echoTool{name: "echo", output: "ok"})

	result, err := a.Respond(context.Background(), Request{
		UserID: "u", ConversationID: "c", Text: "go",
	}, nil)
	if err != nil {
		t.Fatalf("a hallucinated tool name must not fail the turn: %v", err)
	}
	if result.Text != "answered anyway" {
		t.Errorf("Text = %q", result.Text)
	}

	second := provider.requests[1].Messages
	last := second[len(second)-1]
	if !strings.Contains(last.Text(), "unknown tool") {
		t.Errorf("unknown-tool result = %q", last.Text())
	}
}

func TestRespondModelFailure(t *testing.T) {
	provider := &scriptedProvider{errs: []error{errors.New("connection refused")}}
	a := newTestAssistant(t, provider)

	_, err := a.Respond(context.Background(), Request{
		UserID: "u", ConversationID: "c", Text: "hello",
	}, nil)
	if err == nil {
		t.Fatal("expected error when the model API is unreachable")
	}
}

func TestRespondUsesAssembledHistory(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	if err := store.Write(ctx, "u", "c", []model.Message{
		model.UserText("my name is Riko"),
		model.AssistantText("Nice to meet you, Riko."),
	}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	provider := &scriptedProvider{scripts: [][]llm.StreamEvent{{
		{Kind: llm.EventTextDelta, Delta: "Riko."},
	}}}
	a, err := New(Config{
		Provider:  provider,
		Assembler: memory.NewAssembler(dropJudge{}, memory.Config{}),
		History:   store,
		Profiles:  store,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := a.Respond(ctx, Request{UserID: "u", ConversationID: "c", Text: "what is my name?"}, nil); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	var sawName bool
	for _, msg := range provider.requests[0].Messages {
		if strings.Contains(msg.Text(), "my name is Riko") {
			sawName = true
		}
	}
	if !sawName {
		t.Error("recent history pair missing from the prompt")
	}
}

func TestNewValidation(t *testing.T) {
	provider := &scriptedProvider{}
	assembler := memory.NewAssembler(dropJudge{}, memory.Config{})
	store := storage.NewMemoryStore()

	if _, err := New(Config{Assembler: assembler, History: store, Profiles: store}); err == nil {
		t.Error("missing provider should fail")
	}
	if _, err := New(Config{Provider: provider, History: store, Profiles: store}); err == nil {
		t.Error("missing assembler should fail")
	}
	if _, err := New(Config{
		Provider: provider, Assembler: assembler, History: store, Profiles: store,
		Registry: tools.NewRegistry(),
	}); err == nil {
		t.Error("registry without executor should fail")
	}
}
