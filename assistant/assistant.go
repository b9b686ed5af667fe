// Package assistant orchestrates a conversation turn: memory assembly,
// routing, the streaming model call, and the bounded tool round.
//
// Information Hiding:
// - The one-round tool protocol is internal; callers see a single Respond
// - Prompt wording and instruction composition internal
// - Degradation policy internal: storage and routing failures weaken the
//   turn, only an unreachable model API fails it
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/richinex/hermes/llm"
	"github.com/richinex/hermes/memory"
	"github.com/richinex/hermes/model"
	"github.com/richinex/hermes/storage"
	"github.com/richinex/hermes/tools"
)

// Request is one user turn.
type Request struct {
	UserID         string
	ConversationID string
	Text           string
	// ImagePath optionally attaches an image file to the turn.
	ImagePath string
}

// Result is the completed turn.
type Result struct {
	// Text is the final answer.
	Text string
	// ToolsUsed records every tool invocation of the turn, in call order.
	ToolsUsed []model.ToolUse
	// ModelCalls counts the answering model requests (1 without tools,
	// 2 with).
	ModelCalls int
}

// Config assembles an Assistant. Provider, Assembler, History and
// Profiles are required; the rest degrade gracefully when absent.
type Config struct {
	Provider  llm.Provider
	Assembler *memory.Assembler
	History   storage.HistoryStore
	Profiles  storage.ProfileStore

	// Registry and Executor enable tool use. Leave nil for a pure-chat
	// assistant.
	Registry *tools.Registry
	Executor *tools.Executor

	// Router enables per-turn model selection. Nil routes every turn to
	// the provider's default model at medium effort.
	Router *Router

	// Instructions is appended to the built-in system guidance.
	Instructions string

	// Clock overrides the time source used in instructions. Nil means
	// time.Now.
	Clock func() time.Time
}

// Assistant answers user turns over a conversation history.
type Assistant struct {
	cfg Config
}

// New validates the configuration and creates an assistant.
func New(cfg Config) (*Assistant, error) {
	if cfg.Provider == nil {
		return nil, errors.New("assistant: Provider is required")
	}
	if cfg.Assembler == nil {
		return nil, errors.New("assistant: Assembler is required")
	}
	if cfg.History == nil {
		return nil, errors.New("assistant: History is required")
	}
	if cfg.Profiles == nil {
		return nil, errors.New("assistant: Profiles is required")
	}
	if (cfg.Registry == nil) != (cfg.Executor == nil) {
		return nil, errors.New("assistant: Registry and Executor must be set together")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Assistant{cfg: cfg}, nil
}

// Respond runs one turn. Answer text is streamed to deltas as it arrives
// (deltas may be nil for callers that only want the Result). The turn
// makes at most two model requests: one that may call tools, and after
// the tool round, one that may not.
//
// Respond does not write history; the caller owns persistence of the
// turn.
func (a *Assistant) Respond(ctx context.Context, req Request, deltas chan<- string) (Result, error) {
	// A storage failure degrades the turn to an empty memory rather than
	// failing it.
	history, err := a.cfg.History.Read(ctx, req.UserID, req.ConversationID)
	if err != nil {
		history = nil
	}
	profile, _, err := a.cfg.Profiles.LoadProfile(ctx, req.UserID)
	if err != nil {
		profile = model.ProfileSummary{}
	}

	current := a.buildUserMessage(req)
	shortTerm, longTerm := a.cfg.Assembler.Assemble(ctx, history, current, profile)

	selected := a.selectRoute(ctx, req.Text)

	messages := make([]model.Message, 0, len(shortTerm)+len(longTerm)+1)
	messages = append(messages, longTerm...)
	messages = append(messages, shortTerm...)
	messages = append(messages, current)

	first := llm.Request{
		Model:        selected.model,
		Instructions: a.instructions(),
		Messages:     messages,
		Effort:       selected.effort,
		Verbosity:    selected.verbosity,
	}
	if a.cfg.Registry != nil {
		first.Tools = a.cfg.Registry.Schemas()
	}

	// Answer text arriving before any tool call means the model chose to
	// answer directly: forward the stream and skip the tool round, even if
	// stray tool-call events follow. Otherwise nothing is forwarded from
	// this stream; the real answer comes from the second request.
	direct := false
	accum := newStreamAccum()
	err = collectStream(ctx, a.cfg.Provider, first, func(ev llm.StreamEvent) {
		if ev.Kind == llm.EventTextDelta && ev.Delta != "" && !accum.hasToolCalls() {
			direct = true
		}
		accum.feed(ev)
		if direct && ev.Kind == llm.EventTextDelta {
			a.sendDelta(ctx, deltas, ev.Delta)
		}
	})
	if err != nil {
		return Result{}, fmt.Errorf("model request failed: %w", err)
	}

	if direct || !accum.hasToolCalls() {
		return Result{Text: accum.text.String(), ModelCalls: 1}, nil
	}

	calls := accum.toolCalls()
	callMsg := model.Message{Role: model.RoleToolCall, Calls: calls}
	if text := accum.text.String(); text != "" {
		callMsg.Parts = []model.Part{model.TextPart(text)}
	}
	messages = append(messages, callMsg)

	var used []model.ToolUse
	for _, call := range calls {
		output := a.runTool(ctx, call)
		used = append(used, model.ToolUse{Name: call.Name, Arguments: string(call.Arguments)})
		messages = append(messages, model.ToolResult(call.ID, output))
	}

	second := llm.Request{
		Model: selected.model,
		Instructions: a.instructions() +
			"\nTools are unavailable for this response. Do not request tool calls; answer from the tool results and context above.",
		Messages:  messages,
		Effort:    selected.effort,
		Verbosity: selected.verbosity,
	}
	final := newStreamAccum()
	err = collectStream(ctx, a.cfg.Provider, second, func(ev llm.StreamEvent) {
		final.feed(ev)
		if ev.Kind == llm.EventTextDelta {
			a.sendDelta(ctx, deltas, ev.Delta)
		}
	})
	if err != nil {
		return Result{}, fmt.Errorf("model request failed: %w", err)
	}

	return Result{Text: final.text.String(), ToolsUsed: used, ModelCalls: 2}, nil
}

// runTool executes one call and always returns model-facing text. Bad
// argument JSON or an unknown tool name fails only this call.
func (a *Assistant) runTool(ctx context.Context, call model.ToolCall) string {
	if !json.Valid(call.Arguments) {
		return fmt.Sprintf("Error: invalid JSON arguments for %s", call.Name)
	}
	output, err := a.cfg.Executor.Execute(ctx, call.Name, call.Arguments)
	if err != nil {
		return "Error: " + err.Error()
	}
	return output
}

// buildUserMessage creates the current turn's message. An attached image
// is inlined here, since the turn that carries it is the one prompt it is
// guaranteed to be sent with; on later turns history assembly decides.
func (a *Assistant) buildUserMessage(req Request) model.Message {
	msg := model.UserText(req.Text)
	if req.ImagePath != "" {
		msg.Parts = append(msg.Parts, model.ImagePart(req.ImagePath))
		msg = memory.InlineImages([]model.Message{msg})[0]
	}
	return msg
}

func (a *Assistant) selectRoute(ctx context.Context, text string) route {
	if a.cfg.Router == nil {
		return route{
			model:     "",
			effort:    llm.EffortMedium,
			verbosity: llm.VerbosityMedium,
		}
	}
	return a.cfg.Router.classify(ctx, text)
}

func (a *Assistant) instructions() string {
	base := "You are Hermes, a helpful conversational assistant." +
		"\nCurrent date and time: " + a.cfg.Clock().Format("Monday, 2 January 2006 15:04 MST") + "." +
		"\nAnswer in the user's language. Be direct; do not pad answers."
	if a.cfg.Instructions != "" {
		base += "\n" + a.cfg.Instructions
	}
	return base
}

func (a *Assistant) sendDelta(ctx context.Context, deltas chan<- string, delta string) {
	if deltas == nil || delta == "" {
		return
	}
	select {
	case deltas <- delta:
	case <-ctx.Done():
	}
}
