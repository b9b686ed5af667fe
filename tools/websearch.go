// Web Search tool.
//
// Information Hiding:
// - Search engine endpoint and result markup hidden from callers
// - Relevance filtering and page fetching strategy internal
// - Concurrency of the fetch fan-out hidden behind one Execute call

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/richinex/hermes/relevance"
)

// Search limits.
const (
	// maxWikipediaResults caps how many Wikipedia hits the bias pass may
	// contribute.
	maxWikipediaResults = 2
	// DefaultMaxFetch caps how many relevant pages are fetched for content.
	DefaultMaxFetch = 8
	// pageExcerptLen truncates each fetched page's text.
	pageExcerptLen = 2000
	// fetchTimeout bounds one page fetch; a slow page is dropped, not waited on.
	fetchTimeout = 10 * time.Second
)

const duckduckgoEndpoint = "https://html.duckduckgo.com/html/"

// searchHit is one parsed search result.
type searchHit struct {
	Title   string
	URL     string
	Snippet string
}

// WebSearchTool searches the web and returns the text of relevant pages.
//
// Two searches run per query: the plain query and a Wikipedia-biased
// variant. Up to two Wikipedia hits are placed first, general hits follow
// with Wikipedia duplicates removed. A relevance judge then filters hits
// by snippet against the query, and the surviving pages are fetched
// concurrently for an excerpt of their text.
type WebSearchTool struct {
	client   *http.Client
	judge    relevance.Judge
	endpoint string
	maxFetch int
}

// NewWebSearchTool creates a web search tool. A nil client uses
// http.DefaultClient; maxFetch <= 0 falls back to DefaultMaxFetch.
func NewWebSearchTool(client *http.Client, judge relevance.Judge, maxFetch int) *WebSearchTool {
	if client == nil {
		client = http.DefaultClient
	}
	if maxFetch <= 0 {
		maxFetch = DefaultMaxFetch
	}
	return &WebSearchTool{
		client:   client,
		judge:    judge,
		endpoint: duckduckgoEndpoint,
		maxFetch: maxFetch,
	}
}

// Descriptor returns the tool's schema.
func (t *WebSearchTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "web_search",
		DisplayName: "Web Search",
		Description: "Search the web and return the content of the most relevant pages. Use for current events, facts you are unsure about, or anything after your knowledge cutoff.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query",
				},
			},
			"required": []string{"query"},
		},
		Strict: true,
	}
}

type webSearchArgs struct {
	Query string `json:"query"`
}

// Execute runs the search pipeline and renders the fetched pages.
func (t *WebSearchTool) Execute(ctx context.Context, args json.RawMessage) ToolResult {
	var parsed webSearchArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return FailureResultf("invalid web_search arguments: %v", err)
	}
	query := strings.TrimSpace(parsed.Query)
	if query == "" {
		return FailureResultf("web_search requires a non-empty query")
	}

	hits, err := t.gatherHits(ctx, query)
	if err != nil {
		return FailureResult(err)
	}
	if len(hits) == 0 {
		return SuccessResult("No search results found for: " + query)
	}

	// Fail closed on relevance: hits the judge rejected stay out, even if
	// that leaves nothing to fetch.
	relevant := t.filterRelevant(ctx, hits, query)
	if len(relevant) == 0 {
		return SuccessResult("No relevant search results found for: " + query)
	}
	if len(relevant) > t.maxFetch {
		relevant = relevant[:t.maxFetch]
	}

	pages := t.fetchPages(ctx, relevant)
	return SuccessResult(renderSearchResults(query, relevant, pages))
}

// gatherHits runs the Wikipedia-biased and general searches and merges
// them: Wikipedia first, then general results minus Wikipedia duplicates.
func (t *WebSearchTool) gatherHits(ctx context.Context, query string) ([]searchHit, error) {
	general, err := t.search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var merged []searchHit
	wiki, err := t.search(ctx, query+" wikipedia")
	if err == nil {
		for _, hit := range wiki {
			if isWikipedia(hit.URL) {
				merged = append(merged, hit)
				if len(merged) == maxWikipediaResults {
					break
				}
			}
		}
	}
	for _, hit := range general {
		if !isWikipedia(hit.URL) {
			merged = append(merged, hit)
		}
	}
	return merged, nil
}

// search queries the engine and parses the result list.
func (t *WebSearchTool) search(ctx context.Context, query string) ([]searchHit, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; hermes)")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	var hits []searchHit
	doc.Find(".result").Each(func(_ int, sel *goquery.Selection) {
		anchor := sel.Find("a.result__a").First()
		href, ok := anchor.Attr("href")
		if !ok {
			return
		}
		hits = append(hits, searchHit{
			Title:   strings.TrimSpace(anchor.Text()),
			URL:     resolveRedirect(href),
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").First().Text()),
		})
	})
	return hits, nil
}

// resolveRedirect unwraps the engine's redirect links (the target sits in
// the uddg query parameter). Direct links pass through unchanged.
func resolveRedirect(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	if parsed.Scheme == "" {
		return "https:" + href
	}
	return href
}

func isWikipedia(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	return host == "wikipedia.org" || strings.HasSuffix(host, ".wikipedia.org")
}

// filterRelevant judges every hit's snippet concurrently and keeps the
// relevant ones in their original order.
func (t *WebSearchTool) filterRelevant(ctx context.Context, hits []searchHit, query string) []searchHit {
	keep := make([]bool, len(hits))
	var wg sync.WaitGroup
	for i, hit := range hits {
		wg.Add(1)
		go func(i int, hit searchHit) {
			defer wg.Done()
			keep[i] = t.judge.IsRelevant(ctx, hit.Title+": "+hit.Snippet, query)
		}(i, hit)
	}
	wg.Wait()

	var relevant []searchHit
	for i, hit := range hits {
		if keep[i] {
			relevant = append(relevant, hit)
		}
	}
	return relevant
}

// fetchPages fetches all hits concurrently. The result slice is indexed
// like hits; a failed or slow fetch leaves its slot empty.
func (t *WebSearchTool) fetchPages(ctx context.Context, hits []searchHit) []string {
	pages := make([]string, len(hits))
	var wg sync.WaitGroup
	for i, hit := range hits {
		wg.Add(1)
		go func(i int, pageURL string) {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
			defer cancel()
			text, err := fetchPageText(fetchCtx, t.client, pageURL)
			if err != nil {
				return
			}
			pages[i] = text
		}(i, hit.URL)
	}
	wg.Wait()
	return pages
}

// renderSearchResults formats the fetched pages as the model-facing output.
// Hits whose fetch failed are omitted; if every fetch failed the snippets
// are rendered instead so the model still gets something to work with.
func renderSearchResults(query string, hits []searchHit, pages []string) string {
	var b strings.Builder
	b.WriteString("Search results for: " + query)

	n := 0
	for i, hit := range hits {
		if pages[i] == "" {
			continue
		}
		n++
		excerpt := truncate(pages[i], pageExcerptLen)
		b.WriteString("\n\n" + strconv.Itoa(n) + ". " + hit.Title + "\nURL: " + hit.URL)
		if hit.Snippet != "" {
			b.WriteString("\nSnippet: " + hit.Snippet)
		}
		b.WriteString("\nContent: " + excerpt)
	}
	if n > 0 {
		return b.String()
	}

	for i, hit := range hits {
		b.WriteString("\n\n" + strconv.Itoa(i+1) + ". " + hit.Title + "\nURL: " + hit.URL)
		if hit.Snippet != "" {
			b.WriteString("\nSnippet: " + hit.Snippet)
		}
	}
	return b.String()
}

// Verify WebSearchTool implements Tool
var _ Tool = (*WebSearchTool)(nil)
