// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

// =============================================================================
// GEMINI CLIENT
// =============================================================================

// DefaultGeminiURL is the hosted Gemini API endpoint.
const DefaultGeminiURL = "https://generativelanguage.googleapis.com"

// GeminiClient talks to the Gemini generateContent API.
type GeminiClient struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewGeminiClient creates a client for the given base URL, model and key.
func NewGeminiClient(baseURL, model, apiKey string) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultGeminiURL
	}
	return &GeminiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  newHTTPClient(),
		limiter: newLimiter(),
	}
}

// Name implements Provider.
func (c *GeminiClient) Name() string { return "gemini" }

// Model implements Provider.
func (c *GeminiClient) Model() string { return c.model }

// --- wire types ---

type geminiGenerateRequest struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"system_instruction,omitempty"`
	Tools             []geminiToolDecls `json:"tools,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// geminiPart is a union: exactly one of the fields is set.
type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

type geminiFunctionResponse struct {
	Name     string                 `json:"name"`
	Response map[string]interface{} `json:"response"`
}

type geminiToolDecls struct {
	FunctionDeclarations []geminiFunctionDef `json:"functionDeclarations"`
}

type geminiFunctionDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type geminiGenerateResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

// --- conversion ---

// convertGeminiMessages maps the conversation onto Gemini contents. System
// messages merge into system_instruction; tool results become
// functionResponse parts. Gemini matches responses by function name, so the
// tool-call ID (which we set to the function name) carries through.
func convertGeminiMessages(messages []Message) (*geminiContent, []geminiContent) {
	var system *geminiContent
	contents := make([]geminiContent, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			if system == nil {
				system = &geminiContent{}
			}
			system.Parts = append(system.Parts, geminiPart{Text: m.Content})

		case RoleUser:
			contents = append(contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: m.Content}},
			})

		case RoleAssistant:
			parts := make([]geminiPart, 0, len(m.ToolCalls)+1)
			if m.Content != "" {
				parts = append(parts, geminiPart{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, geminiPart{FunctionCall: &geminiFunctionCall{
					Name: tc.Name,
					Args: tc.Arguments,
				}})
			}
			if len(parts) == 0 {
				parts = append(parts, geminiPart{Text: ""})
			}
			contents = append(contents, geminiContent{Role: "model", Parts: parts})

		case RoleTool:
			contents = append(contents, geminiContent{
				Role: "user",
				Parts: []geminiPart{{FunctionResponse: &geminiFunctionResponse{
					Name:     m.ToolCallID,
					Response: map[string]interface{}{"result": m.Content},
				}}},
			})
		}
	}

	return system, contents
}

func convertGeminiTools(tools []ToolDefinition) []geminiToolDecls {
	if len(tools) == 0 {
		return nil
	}
	defs := make([]geminiFunctionDef, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, geminiFunctionDef{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return []geminiToolDecls{{FunctionDeclarations: defs}}
}

// Chat implements Provider.
func (c *GeminiClient) Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))

	system, contents := convertGeminiMessages(messages)
	req := geminiGenerateRequest{
		Contents:          contents,
		SystemInstruction: system,
		Tools:             convertGeminiTools(tools),
	}

	hint := "cannot connect to Gemini API at " + c.baseURL
	resp, err := postJSON(ctx, c.client, c.limiter, endpoint, nil, req, hint)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, modelNotFoundError(fmt.Sprintf("model %q not found on Gemini API", c.model))
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, requestError("authentication failed. Check api_key in config", nil)
	default:
		return nil, requestError(fmt.Sprintf("Gemini returned status %d: %s",
			resp.StatusCode, readErrorBody(resp.Body)), nil)
	}

	var body geminiGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, parseError("failed to parse Gemini response", err)
	}
	if len(body.Candidates) == 0 {
		return nil, parseError("no candidates in response", nil)
	}

	var content strings.Builder
	var calls []ToolCall
	for _, part := range body.Candidates[0].Content.Parts {
		switch {
		case part.FunctionCall != nil:
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]interface{}{}
			}
			// Gemini has no call IDs; the function name doubles as the ID
			// so the matching functionResponse can name the right function.
			calls = append(calls, ToolCall{
				ID:        part.FunctionCall.Name,
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
		case part.Text != "":
			content.WriteString(part.Text)
		}
	}

	return &Response{Content: content.String(), ToolCalls: calls}, nil
}
