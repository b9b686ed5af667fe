// Package json recovers a JSON object from model output. Models asked for
// structured output still wrap it in prose or markdown fences often enough
// that callers should never unmarshal the raw response directly.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Decode extracts the JSON object in response and unmarshals it into T.
// It accepts a bare object, an object inside ```json fences, or an object
// embedded in surrounding text (first '{' to last '}').
func Decode[T any](response string) (T, error) {
	var out T
	raw, err := Extract(response)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return out, nil
}

// Extract returns the JSON object substring of response. Brace matching is
// textual, not a full parse, so an unbalanced '}' inside a string literal
// can defeat it; in practice model output does not hit that.
func Extract(response string) (string, error) {
	response = stripFences(response)

	if json.Valid([]byte(response)) {
		return response, nil
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start != -1 && end > start {
		candidate := response[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no valid JSON object in response: %q", preview(response, 100))
}

// preview shortens s to at most n bytes plus an ellipsis for error
// messages, cutting on a rune boundary to keep multibyte text valid.
func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(response string) string {
	trimmed := strings.TrimSpace(response)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	return trimmed
}
