// Package model provides domain types shared across packages.
//
// The message model is a tagged variant: a fixed set of roles and a content
// made of typed parts. Keeping the variants closed removes the ad hoc
// key-presence checks that otherwise creep into assembly logic.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleSystem     Role = "system"
	RoleToolCall   Role = "tool_call"
	RoleToolResult Role = "tool_result"
)

// PartType identifies the kind of a content part.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// Part is one element of a message's content.
//
// Image parts carry a file path while at rest. The base64 payload (Data) is
// filled in only at the moment the message is actually sent to a model, so
// historical images are never held in memory or storage as base64.
type Part struct {
	Type PartType `json:"type"`
	Text string   `json:"text,omitempty"`
	Path string   `json:"image_path,omitempty"`
	Data string   `json:"-"` // inline base64, populated just before sending
}

// TextPart creates a text content part.
func TextPart(text string) Part {
	return Part{Type: PartText, Text: text}
}

// ImagePart creates an image content part referencing a file on disk.
func ImagePart(path string) Part {
	return Part{Type: PartImage, Path: path}
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolUse is the audit record of one tool invocation, kept regardless of
// whether execution succeeded.
type ToolUse struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a single turn in a conversation.
type Message struct {
	Role   Role       `json:"role"`
	Parts  []Part     `json:"content"`
	Calls  []ToolCall `json:"tool_calls,omitempty"` // RoleToolCall only
	CallID string     `json:"call_id,omitempty"`    // RoleToolResult only
}

// UserText creates a plain-text user message.
func UserText(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart(text)}}
}

// AssistantText creates a plain-text assistant message.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Parts: []Part{TextPart(text)}}
}

// SystemText creates a plain-text system message.
func SystemText(text string) Message {
	return Message{Role: RoleSystem, Parts: []Part{TextPart(text)}}
}

// ToolResult creates a tool-result message for the given call ID.
func ToolResult(callID, output string) Message {
	return Message{Role: RoleToolResult, CallID: callID, Parts: []Part{TextPart(output)}}
}

// Text renders the message content as plain text. Image parts become a
// placeholder so downstream summarization knows an image existed without
// reloading it.
func (m Message) Text() string {
	var parts []string
	for _, p := range m.Parts {
		switch p.Type {
		case PartText:
			if p.Text != "" {
				parts = append(parts, p.Text)
			}
		case PartImage:
			parts = append(parts, "[image attached]")
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// HasImage reports whether any content part is an image.
func (m Message) HasImage() bool {
	for _, p := range m.Parts {
		if p.Type == PartImage {
			return true
		}
	}
	return false
}

// messageWire mirrors Message with raw content for custom (un)marshaling.
type messageWire struct {
	Role   Role            `json:"role"`
	Parts  json.RawMessage `json:"content"`
	Calls  []ToolCall      `json:"tool_calls,omitempty"`
	CallID string          `json:"call_id,omitempty"`
}

// MarshalJSON writes content as a bare string when the message is a single
// text part, and as an array of typed parts otherwise. The compact form is
// what most of a history file ends up being.
func (m Message) MarshalJSON() ([]byte, error) {
	var content json.RawMessage
	var err error
	if len(m.Parts) == 1 && m.Parts[0].Type == PartText {
		content, err = json.Marshal(m.Parts[0].Text)
	} else if len(m.Parts) == 0 {
		content, err = json.Marshal("")
	} else {
		content, err = json.Marshal(m.Parts)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageWire{
		Role:   m.Role,
		Parts:  content,
		Calls:  m.Calls,
		CallID: m.CallID,
	})
}

// UnmarshalJSON accepts both the compact string form and the part-array form.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire messageWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	m.Role = wire.Role
	m.Calls = wire.Calls
	m.CallID = wire.CallID
	m.Parts = nil

	if len(wire.Parts) == 0 {
		return nil
	}
	var text string
	if err := json.Unmarshal(wire.Parts, &text); err == nil {
		if text != "" {
			m.Parts = []Part{TextPart(text)}
		}
		return nil
	}
	var parts []Part
	if err := json.Unmarshal(wire.Parts, &parts); err != nil {
		return fmt.Errorf("message content is neither string nor part list: %w", err)
	}
	m.Parts = parts
	return nil
}

// usageNoteMarker introduces the tool-usage note appended to assistant
// replies for display. It is UI decoration, not model input, and must be
// stripped before a reply is reused as history.
const usageNoteMarker = "\n\n🔌 Tools used"

// UsageNote renders the display block recording which tools ran this turn.
// Returns "" when no tools were used.
func UsageNote(uses []ToolUse, labels map[string]string) string {
	if len(uses) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(usageNoteMarker)
	for _, u := range uses {
		name := u.Name
		if label, ok := labels[name]; ok && label != "" {
			name = label
		}
		fmt.Fprintf(&b, "\n- %s\n\t- 💾 Input: %s", name, u.Arguments)
	}
	return b.String()
}

// StripUsageNote removes a trailing tool-usage note from text, if present.
func StripUsageNote(text string) string {
	if i := strings.Index(text, usageNoteMarker); i >= 0 {
		return strings.TrimSpace(text[:i])
	}
	return text
}
