// Tool Executor.
//
// Information Hiding:
// - Timeout handling hidden from callers
// - The distinction between "tool failed" and "tool cannot run" is the
//   executor's: operational failures come back as text for the model,
//   an unknown tool name is the caller's bug and comes back as an error

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultToolTimeout bounds a single tool execution.
const DefaultToolTimeout = 60 * time.Second

// Executor runs registered tools by name. There are no retries: a tool's
// failure text goes back to the model, which decides what to do with it.
type Executor struct {
	registry *Registry
	timeout  time.Duration
}

// NewExecutor creates an executor over the given registry. A zero timeout
// falls back to DefaultToolTimeout.
func NewExecutor(registry *Registry, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return &Executor{registry: registry, timeout: timeout}
}

// Execute runs the named tool and returns its model-facing output text.
// The only error condition is a tool name that is not registered; every
// operational failure, timeouts included, is rendered into the output so
// the conversation can continue.
func (e *Executor) Execute(ctx context.Context, name string, args json.RawMessage) (string, error) {
	tool, ok := e.registry.Get(name)
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result := tool.Execute(ctx, args)
	return result.Render(), nil
}
