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
// OPENAI-COMPATIBLE CLIENT
// =============================================================================

// OpenAICompatClient talks to any server exposing the OpenAI chat-completions
// API: OpenAI itself, llama.cpp, vLLM, LM Studio, OpenRouter.
type OpenAICompatClient struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewOpenAICompatClient creates a client. apiKey may be empty for local
// servers that do not authenticate.
func NewOpenAICompatClient(baseURL, model, apiKey string) *OpenAICompatClient {
	return &OpenAICompatClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  newHTTPClient(),
		limiter: newLimiter(),
	}
}

// Name implements Provider.
func (c *OpenAICompatClient) Name() string { return "openai" }

// Model implements Provider.
func (c *OpenAICompatClient) Model() string { return c.model }

// --- wire types ---

type oaiChatRequest struct {
	Model    string       `json:"model"`
	Messages []oaiMessage `json:"messages"`
	Tools    []oaiTool    `json:"tools,omitempty"`
	Stream   bool         `json:"stream"`
}

type oaiMessage struct {
	Role       string        `json:"role"`
	Content    *string       `json:"content"`
	ToolCalls  []oaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

type oaiToolCall struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Function oaiFunctionCall `json:"function"`
}

type oaiFunctionCall struct {
	Name string `json:"name"`
	// Arguments is a JSON-encoded string, per the OpenAI wire format.
	Arguments string `json:"arguments"`
}

type oaiTool struct {
	Type     string         `json:"type"`
	Function oaiFunctionDef `json:"function"`
}

type oaiFunctionDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type oaiChatResponse struct {
	Choices []oaiChoice `json:"choices"`
	Usage   oaiUsage    `json:"usage"`
}

type oaiChoice struct {
	Message oaiMessage `json:"message"`
}

type oaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// --- conversion ---

func convertOAIMessages(messages []Message) []oaiMessage {
	out := make([]oaiMessage, 0, len(messages))
	for _, m := range messages {
		msg := oaiMessage{Role: string(m.Role), ToolCallID: m.ToolCallID}

		// The API rejects null content everywhere except assistant
		// messages that only carry tool calls.
		if m.Content != "" || len(m.ToolCalls) == 0 {
			content := m.Content
			msg.Content = &content
		}

		for _, tc := range m.ToolCalls {
			args, err := json.Marshal(tc.Arguments)
			if err != nil {
				args = []byte("{}")
			}
			msg.ToolCalls = append(msg.ToolCalls, oaiToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: oaiFunctionCall{Name: tc.Name, Arguments: string(args)},
			})
		}
		out = append(out, msg)
	}
	return out
}

func convertOAITools(tools []ToolDefinition) []oaiTool {
	out := make([]oaiTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, oaiTool{
			Type: "function",
			Function: oaiFunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

// Chat implements Provider.
func (c *OpenAICompatClient) Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error) {
	url := c.baseURL + "/v1/chat/completions"
	req := oaiChatRequest{
		Model:    c.model,
		Messages: convertOAIMessages(messages),
		Tools:    convertOAITools(tools),
		Stream:   false,
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	hint := "cannot connect to OpenAI-compatible server at " + c.baseURL + ". Is it running?"
	resp, err := postJSON(ctx, c.client, c.limiter, url, headers, req, hint)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, modelNotFoundError(fmt.Sprintf(
			"model %q not found on server at %s", c.model, c.baseURL))
	case http.StatusUnauthorized:
		return nil, requestError("authentication failed. Check api_key in config", nil)
	default:
		return nil, requestError(fmt.Sprintf("server returned status %d: %s",
			resp.StatusCode, readErrorBody(resp.Body)), nil)
	}

	var body oaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, parseError("failed to parse response", err)
	}
	if len(body.Choices) == 0 {
		return nil, parseError("no choices in response", nil)
	}

	choice := body.Choices[0]
	calls := make([]ToolCall, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		// Arguments arrive as a JSON string; a malformed one degrades to
		// an empty argument set rather than failing the whole turn.
		args := map[string]interface{}{}
		if tc.Function.Arguments != "" {
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		calls = append(calls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}

	content := ""
	if choice.Message.Content != nil {
		content = *choice.Message.Content
	}

	return &Response{
		Content:   content,
		ToolCalls: calls,
		Usage: TokenUsage{
			PromptTokens:     body.Usage.PromptTokens,
			CompletionTokens: body.Usage.CompletionTokens,
		},
	}, nil
}
