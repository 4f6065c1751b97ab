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
// OLLAMA CLIENT
// =============================================================================

// DefaultOllamaURL is the Ollama API base URL. Explicit IPv4 avoids IPv6
// resolution issues with localhost on some platforms.
const DefaultOllamaURL = "http://127.0.0.1:11434"

// OllamaClient talks to a local Ollama server via /api/chat.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
	limiter *rate.Limiter
}

// NewOllamaClient creates a client for the given base URL and model.
func NewOllamaClient(baseURL, model string) *OllamaClient {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  newHTTPClient(),
		limiter: newLimiter(),
	}
}

// Name implements Provider.
func (c *OllamaClient) Name() string { return "ollama" }

// Model implements Provider.
func (c *OllamaClient) Model() string { return c.model }

// --- wire types ---

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaToolCall struct {
	Function ollamaFunctionCall `json:"function"`
}

type ollamaFunctionCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ollamaTool struct {
	Type     string            `json:"type"`
	Function ollamaFunctionDef `json:"function"`
}

type ollamaFunctionDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type ollamaChatResponse struct {
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

// --- conversion ---

func convertOllamaMessages(messages []Message) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(messages))
	for _, m := range messages {
		om := ollamaMessage{Role: string(m.Role), Content: m.Content}
		for _, tc := range m.ToolCalls {
			om.ToolCalls = append(om.ToolCalls, ollamaToolCall{
				Function: ollamaFunctionCall{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		out = append(out, om)
	}
	return out
}

func convertOllamaTools(tools []ToolDefinition) []ollamaTool {
	out := make([]ollamaTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, ollamaTool{
			Type: "function",
			Function: ollamaFunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

// Chat implements Provider.
func (c *OllamaClient) Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error) {
	url := c.baseURL + "/api/chat"
	req := ollamaChatRequest{
		Model:    c.model,
		Messages: convertOllamaMessages(messages),
		Stream:   false,
		Tools:    convertOllamaTools(tools),
	}

	hint := "cannot connect to Ollama at " + c.baseURL + ". Is it running? Start with: ollama serve"
	resp, err := postJSON(ctx, c.client, c.limiter, url, nil, req, hint)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, modelNotFoundError(fmt.Sprintf(
			"model %q not found. Pull it with: ollama pull %s", c.model, c.model))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, requestError(fmt.Sprintf("Ollama returned status %d: %s",
			resp.StatusCode, readErrorBody(resp.Body)), nil)
	}

	var body ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, parseError("failed to parse Ollama response", err)
	}

	// Ollama returns no call IDs; synthesize stable per-turn IDs.
	calls := make([]ToolCall, 0, len(body.Message.ToolCalls))
	for i, tc := range body.Message.ToolCalls {
		args := tc.Function.Arguments
		if args == nil {
			args = map[string]interface{}{}
		}
		calls = append(calls, ToolCall{
			ID:        fmt.Sprintf("call_%d", i),
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return &Response{
		Content:   body.Message.Content,
		ToolCalls: calls,
		Usage: TokenUsage{
			PromptTokens:     body.PromptEvalCount,
			CompletionTokens: body.EvalCount,
		},
	}, nil
}
