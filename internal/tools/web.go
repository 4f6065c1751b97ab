// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	webFetchTimeout = 30 * time.Second
	webFetchMaxBody = 2 << 20 // 2MB raw body cap
	webFetchMaxText = 50_000  // chars returned to the model
	webUserAgent    = "hermitclaw/0.1.0"
)

// WebFetchTool retrieves a URL and returns its text content. HTML is
// stripped to plain text so the model is not fed markup.
type WebFetchTool struct {
	client *http.Client
}

// NewWebFetchTool returns a web fetcher with a bounded timeout.
func NewWebFetchTool() *WebFetchTool {
	return &WebFetchTool{client: &http.Client{Timeout: webFetchTimeout}}
}

func (t *WebFetchTool) Name() string { return "web_fetch" }

func (t *WebFetchTool) Description() string {
	return "Fetch the contents of a URL. Returns the text content of the page."
}

func (t *WebFetchTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "The URL to fetch",
			},
		},
		"required": []interface{}{"url"},
	}
}

func (t *WebFetchTool) Permissions() Permissions {
	return Permissions{Network: true}
}

func (t *WebFetchTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	rawURL, err := stringArg(args, "url")
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "", invalidArgs("URL must start with http:// or https://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", invalidArgs("invalid URL: " + err.Error())
	}
	req.Header.Set("User-Agent", webUserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", executionFailed(fmt.Sprintf("failed to fetch %q", rawURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", executionFailed(fmt.Sprintf("HTTP error %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, webFetchMaxBody))
	if err != nil {
		return "", executionFailed("failed to read response", err)
	}

	text := string(body)
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		text = htmlToText(text)
	}
	if len(text) > webFetchMaxText {
		return fmt.Sprintf("%s\n\n... (truncated, %d total chars)", text[:webFetchMaxText], len(text)), nil
	}
	return text, nil
}

// decodeEntities handles the handful of entities that matter for
// readable prose.
func decodeEntities(text string) string {
	for entity, repl := range map[string]string{
		"&amp;": "&", "&lt;": "<", "&gt;": ">", "&quot;": `"`, "&#39;": "'", "&nbsp;": " ",
	} {
		text = strings.ReplaceAll(text, entity, repl)
	}
	return text
}

// htmlToText strips tags, drops script and style bodies, and decodes
// the handful of entities that matter for readable prose.
func htmlToText(html string) string {
	var (
		b         strings.Builder
		inTag     bool
		tagName   strings.Builder
		skipUntil string
	)

	for i := 0; i < len(html); i++ {
		ch := html[i]

		if ch == '<' {
			inTag = true
			tagName.Reset()
			continue
		}
		if inTag {
			if ch == '>' {
				inTag = false
				raw := strings.TrimSpace(tagName.String())
				if raw == "" {
					continue
				}
				name := strings.ToLower(strings.TrimPrefix(strings.Fields(raw)[0], "/"))
				closing := strings.HasPrefix(raw, "/")
				switch {
				case skipUntil == "" && !closing && (name == "script" || name == "style"):
					skipUntil = name
				case skipUntil != "" && closing && name == skipUntil:
					skipUntil = ""
				case skipUntil == "" && (name == "p" || name == "br" || name == "div" || name == "li"):
					b.WriteByte('\n')
				}
			} else {
				tagName.WriteByte(ch)
			}
			continue
		}
		if skipUntil != "" {
			continue
		}
		b.WriteByte(ch)
	}

	text := decodeEntities(b.String())

	// Collapse runs of blank lines left behind by stripped markup.
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}
