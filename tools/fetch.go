// Page Fetch tool.
//
// Information Hiding:
// - HTTP details and HTML-to-text conversion internal
// - Shared with web search: both reduce a page to readable text

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// maxFetchedPageLen caps the text returned for a directly fetched page.
const maxFetchedPageLen = 8000

// FetchTool retrieves a single URL and returns its readable text.
type FetchTool struct {
	client *http.Client
}

// NewFetchTool creates a page fetch tool. A nil client uses
// http.DefaultClient.
func NewFetchTool(client *http.Client) *FetchTool {
	if client == nil {
		client = http.DefaultClient
	}
	return &FetchTool{client: client}
}

// Descriptor returns the tool's schema.
func (t *FetchTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "fetch_page",
		DisplayName: "Page Fetch",
		Description: "Fetch a web page by URL and return its readable text. Use when the user provides a specific link to read.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "The URL to fetch",
				},
			},
			"required": []string{"url"},
		},
		Strict: true,
	}
}

type fetchArgs struct {
	URL string `json:"url"`
}

// Execute fetches the page and extracts its text.
func (t *FetchTool) Execute(ctx context.Context, args json.RawMessage) ToolResult {
	var parsed fetchArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return FailureResultf("invalid fetch_page arguments: %v", err)
	}
	pageURL := strings.TrimSpace(parsed.URL)
	if pageURL == "" {
		return FailureResultf("fetch_page requires a non-empty url")
	}

	text, err := fetchPageText(ctx, t.client, pageURL)
	if err != nil {
		return FailureResultf("could not fetch %s: %v", pageURL, err)
	}
	return SuccessResult(truncate(text, maxFetchedPageLen))
}

// fetchPageText retrieves a URL and reduces its HTML to plain text.
func fetchPageText(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; hermes)")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}
	doc.Find("script, style, noscript, nav, header, footer").Remove()

	text := collapseWhitespace(doc.Find("body").Text())
	if text == "" {
		text = collapseWhitespace(doc.Text())
	}
	if text == "" {
		return "", fmt.Errorf("no readable text")
	}
	return text, nil
}

// collapseWhitespace joins the non-empty lines of text with single spaces
// between words.
func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// truncate shortens s to at most n bytes plus an ellipsis, cutting on a
// rune boundary so multibyte page text stays valid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// Verify FetchTool implements Tool
var _ Tool = (*FetchTool)(nil)
