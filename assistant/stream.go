package assistant

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/richinex/hermes/llm"
	"github.com/richinex/hermes/model"
)

// pendingCall accumulates one tool call's argument fragments.
type pendingCall struct {
	id   string
	name string
	args strings.Builder
}

// streamAccum folds stream events into answer text and tool calls. It is
// a plain reducer: feed events in arrival order, then read the fields.
// Unknown event kinds and empty deltas are ignored.
type streamAccum struct {
	text  strings.Builder
	calls []*pendingCall
	byID  map[string]int
}

func newStreamAccum() *streamAccum {
	return &streamAccum{byID: make(map[string]int)}
}

func (a *streamAccum) feed(ev llm.StreamEvent) {
	switch ev.Kind {
	case llm.EventTextDelta:
		a.text.WriteString(ev.Delta)
	case llm.EventToolCallStart:
		if _, exists := a.byID[ev.CallID]; exists {
			return
		}
		a.byID[ev.CallID] = len(a.calls)
		a.calls = append(a.calls, &pendingCall{id: ev.CallID, name: ev.Name})
	case llm.EventToolCallArgs:
		if i, ok := a.byID[ev.CallID]; ok {
			a.calls[i].args.WriteString(ev.Delta)
		} else if len(a.calls) > 0 {
			// Some backends omit the call ID on argument fragments; they
			// belong to the most recent call.
			a.calls[len(a.calls)-1].args.WriteString(ev.Delta)
		}
	}
}

// hasToolCalls reports whether any tool call was started.
func (a *streamAccum) hasToolCalls() bool {
	return len(a.calls) > 0
}

// toolCalls returns the accumulated calls. Empty or whitespace-only
// argument text becomes the empty JSON object.
func (a *streamAccum) toolCalls() []model.ToolCall {
	var out []model.ToolCall
	for _, call := range a.calls {
		args := strings.TrimSpace(call.args.String())
		if args == "" {
			args = "{}"
		}
		out = append(out, model.ToolCall{
			ID:        call.id,
			Name:      call.name,
			Arguments: json.RawMessage(args),
		})
	}
	return out
}

// collectStream runs one streaming request, invoking onEvent for every
// event in arrival order, and returns the stream's error.
func collectStream(ctx context.Context, provider llm.Provider, req llm.Request, onEvent func(llm.StreamEvent)) error {
	events := make(chan llm.StreamEvent)
	done := make(chan error, 1)
	go func() {
		done <- provider.Stream(ctx, req, events)
	}()

	for {
		select {
		case ev := <-events:
			onEvent(ev)
		case err := <-done:
			// Sends on the unbuffered channel complete before Stream
			// returns, so nothing is left to drain.
			return err
		}
	}
}
