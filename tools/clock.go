// Clock tool: current date and time in a requested timezone.

package tools

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// defaultZone is used when the model omits a timezone.
const defaultZone = "Asia/Tokyo"

// ClockTool reports the current date and time. The clock function is a
// field so tests can pin time.
type ClockTool struct {
	now func() time.Time
}

// NewClockTool creates a clock tool using the system clock.
func NewClockTool() *ClockTool {
	return &ClockTool{now: time.Now}
}

// Descriptor returns the tool's schema.
func (t *ClockTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "get_current_time",
		DisplayName: "Clock",
		Description: "Get the current date and time, optionally in a specific IANA timezone.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"timezone": map[string]any{
					"type":        "string",
					"description": "IANA timezone name like 'Asia/Tokyo' or 'Europe/Berlin'. Defaults to Asia/Tokyo.",
				},
			},
			"required": []string{},
		},
		Strict: true,
	}
}

type clockArgs struct {
	Timezone string `json:"timezone"`
}

// Execute formats the current time in the requested zone.
func (t *ClockTool) Execute(_ context.Context, args json.RawMessage) ToolResult {
	var parsed clockArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &parsed); err != nil {
			return FailureResultf("invalid get_current_time arguments: %v", err)
		}
	}
	zone := strings.TrimSpace(parsed.Timezone)
	if zone == "" {
		zone = defaultZone
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return FailureResultf("unknown timezone %q", zone)
	}
	now := t.now().In(loc)
	return SuccessResult(now.Format("Monday, 2 January 2006 15:04:05 MST (UTC-07:00)") + " in " + zone)
}

// Verify ClockTool implements Tool
var _ Tool = (*ClockTool)(nil)
