// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// =============================================================================
// ANTHROPIC CLIENT
// =============================================================================

// DefaultAnthropicURL is the hosted Anthropic API endpoint.
const DefaultAnthropicURL = "https://api.anthropic.com"

// anthropicVersion is the pinned API version header.
const anthropicVersion = "2023-06-01"

// anthropicMaxTokens is the required max_tokens value for each request.
const anthropicMaxTokens = 4096

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewAnthropicClient creates a client for the given base URL, model and key.
func NewAnthropicClient(baseURL, model, apiKey string) *AnthropicClient {
	if baseURL == "" {
		baseURL = DefaultAnthropicURL
	}
	return &AnthropicClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  newHTTPClient(),
		limiter: newLimiter(),
	}
}

// Name implements Provider.
func (c *AnthropicClient) Name() string { return "anthropic" }

// Model implements Provider.
func (c *AnthropicClient) Model() string { return c.model }

// --- wire types ---
//
// Message content is either a bare string or a list of typed blocks; the
// request side always emits blocks for tool traffic and strings otherwise.

type anthMessagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []anthMessage `json:"messages"`
	Tools     []anthTool    `json:"tools,omitempty"`
	Stream    bool          `json:"stream"`
}

type anthMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []anthBlock
}

type anthBlock struct {
	Type string `json:"type"`

	// type == "text"
	Text string `json:"text,omitempty"`

	// type == "tool_use"
	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name,omitempty"`
	Input map[string]interface{} `json:"input,omitempty"`

	// type == "tool_result"
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type anthTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type anthMessagesResponse struct {
	Content    []anthBlock `json:"content"`
	StopReason string      `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// --- conversion ---

// convertAnthMessages lifts system messages into the top-level system field
// and maps tool results onto user messages with tool_result blocks.
func convertAnthMessages(messages []Message) (string, []anthMessage) {
	var system strings.Builder
	out := make([]anthMessage, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(m.Content)

		case RoleUser:
			out = append(out, anthMessage{Role: "user", Content: m.Content})

		case RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, anthMessage{Role: "assistant", Content: m.Content})
				continue
			}
			blocks := make([]anthBlock, 0, len(m.ToolCalls)+1)
			if m.Content != "" {
				blocks = append(blocks, anthBlock{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthBlock{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: tc.Arguments,
				})
			}
			out = append(out, anthMessage{Role: "assistant", Content: blocks})

		case RoleTool:
			out = append(out, anthMessage{Role: "user", Content: []anthBlock{{
				Type:      "tool_result",
				ToolUseID: m.ToolCallID,
				Content:   m.Content,
			}}})
		}
	}

	return system.String(), out
}

func convertAnthTools(tools []ToolDefinition) []anthTool {
	out := make([]anthTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}
	return out
}

// Chat implements Provider.
func (c *AnthropicClient) Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error) {
	url := c.baseURL + "/v1/messages"
	system, apiMessages := convertAnthMessages(messages)

	req := anthMessagesRequest{
		Model:     c.model,
		MaxTokens: anthropicMaxTokens,
		System:    system,
		Messages:  apiMessages,
		Tools:     convertAnthTools(tools),
		Stream:    false,
	}

	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}

	hint := "cannot connect to Anthropic API at " + c.baseURL
	resp, err := postJSON(ctx, c.client, c.limiter, url, headers, req, hint)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, modelNotFoundError(fmt.Sprintf("model %q not found on Anthropic API", c.model))
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, requestError("authentication failed. Check api_key in config", nil)
	default:
		return nil, requestError(fmt.Sprintf("Anthropic returned status %d: %s",
			resp.StatusCode, readErrorBody(resp.Body)), nil)
	}

	var body anthMessagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, parseError("failed to parse Anthropic response", err)
	}

	var content strings.Builder
	var calls []ToolCall
	for _, block := range body.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)
		case "tool_use":
			args := block.Input
			if args == nil {
				args = map[string]interface{}{}
			}
			calls = append(calls, ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}

	return &Response{
		Content:   content.String(),
		ToolCalls: calls,
		Usage: TokenUsage{
			PromptTokens:     body.Usage.InputTokens,
			CompletionTokens: body.Usage.OutputTokens,
		},
	}, nil
}
