// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	searchTimeout     = 15 * time.Second
	searchMaxBody     = 5 << 20 // raw HTML cap
	searchDefaultHits = 5
	searchMaxHits     = 10
	searchBaseURL     = "https://html.duckduckgo.com/html/"
)

// DuckDuckGo's HTML interface marks result links with result__a and
// snippets with result__snippet. Compiled once.
var (
	ddgResultRegex  = regexp.MustCompile(`(?s)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.+?)</a>`)
	ddgSnippetRegex = regexp.MustCompile(`(?s)<a[^>]+class="result__snippet"[^>]*>(.+?)</a>`)
	ddgTagRegex     = regexp.MustCompile(`<[^>]*>`)
	ddgSpaceRegex   = regexp.MustCompile(`\s+`)
)

// WebSearchTool searches the web through DuckDuckGo's HTML endpoint,
// which needs no API key.
type WebSearchTool struct {
	client  *http.Client
	baseURL string
}

// NewWebSearchTool returns a searcher with a bounded timeout.
func NewWebSearchTool() *WebSearchTool {
	return &WebSearchTool{
		client:  &http.Client{Timeout: searchTimeout},
		baseURL: searchBaseURL,
	}
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Description() string {
	return "Search the web using DuckDuckGo. Returns search results with titles, URLs, and snippets. Only works when online."
}

func (t *WebSearchTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The search query",
			},
			"max_results": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of results (default: 5, max: 10)",
			},
		},
		"required": []interface{}{"query"},
	}
}

func (t *WebSearchTool) Permissions() Permissions {
	return Permissions{Network: true}
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return "", err
	}
	max := optionalInt(args, "max_results", searchDefaultHits)
	if max < 1 {
		max = 1
	}
	if max > searchMaxHits {
		max = searchMaxHits
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return "", invalidArgs("invalid query: " + err.Error())
	}
	req.Header.Set("User-Agent", webUserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", executionFailed("search failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", executionFailed(fmt.Sprintf("search returned HTTP %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, searchMaxBody))
	if err != nil {
		return "", executionFailed("failed to read response", err)
	}

	results := parseSearchResults(string(body), max)
	if len(results) == 0 {
		return "No results found for: " + query, nil
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Search results for: %s\n\n", query)
	for i, r := range results {
		fmt.Fprintf(&out, "%d. %s\n   %s\n   %s\n\n", i+1, r.title, r.url, r.snippet)
	}
	return out.String(), nil
}

type searchResult struct {
	title   string
	url     string
	snippet string
}

// parseSearchResults extracts up to max results from DuckDuckGo HTML.
// Link i pairs with snippet i; results with an unresolvable URL are
// dropped.
func parseSearchResults(html string, max int) []searchResult {
	links := ddgResultRegex.FindAllStringSubmatch(html, -1)
	snippets := ddgSnippetRegex.FindAllStringSubmatch(html, -1)

	results := make([]searchResult, 0, max)
	for i, m := range links {
		if len(results) >= max {
			break
		}
		target := resolveResultURL(strings.ReplaceAll(m[1], "&amp;", "&"))
		title := cleanResultText(m[2])
		if target == "" || title == "" {
			continue
		}
		snippet := ""
		if i < len(snippets) {
			snippet = cleanResultText(snippets[i][1])
		}
		results = append(results, searchResult{title: title, url: target, snippet: snippet})
	}
	return results
}

// resolveResultURL unwraps DuckDuckGo's redirect
// (//duckduckgo.com/l/?uddg=ENCODED) to the destination URL. Direct
// http(s) URLs pass through; anything else is discarded.
func resolveResultURL(raw string) string {
	if strings.Contains(raw, "uddg=") {
		if strings.HasPrefix(raw, "//") {
			raw = "https:" + raw
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		if target := parsed.Query().Get("uddg"); target != "" {
			return target
		}
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return ""
}

func cleanResultText(fragment string) string {
	text := ddgTagRegex.ReplaceAllString(fragment, "")
	text = decodeEntities(text)
	return strings.TrimSpace(ddgSpaceRegex.ReplaceAllString(text, " "))
}
