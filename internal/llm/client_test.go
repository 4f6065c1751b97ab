// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// capture records the last request a fake backend saw.
type capture struct {
	path    string
	headers http.Header
	body    []byte
	query   string
}

// fakeBackend serves a fixed JSON response and records the request.
func fakeBackend(t *testing.T, status int, response string) (*httptest.Server, *capture) {
	t.Helper()
	cap := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cap.path = r.URL.Path
		cap.query = r.URL.RawQuery
		cap.headers = r.Header.Clone()
		cap.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, cap
}

func decodeBody(t *testing.T, cap *capture, into interface{}) {
	t.Helper()
	if err := json.Unmarshal(cap.body, into); err != nil {
		t.Fatalf("request body is not valid JSON: %v\n%s", err, cap.body)
	}
}

var sampleTools = []ToolDefinition{{
	Name:        "read_file",
	Description: "Read a file",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{"type": "string"},
		},
		"required": []interface{}{"path"},
	},
}}

// =============================================================================
// OLLAMA
// =============================================================================

func TestOllamaChatRequest(t *testing.T) {
	srv, cap := fakeBackend(t, http.StatusOK, `{
		"message": {"role": "assistant", "content": "hello"},
		"done": true,
		"prompt_eval_count": 12,
		"eval_count": 7
	}`)

	client := NewOllamaClient(srv.URL, "qwen2.5:7b")
	resp, err := client.Chat(context.Background(), []Message{
		SystemMessage("be brief"),
		UserMessage("hi"),
	}, sampleTools)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if cap.path != "/api/chat" {
		t.Errorf("path = %q", cap.path)
	}
	var body struct {
		Model    string `json:"model"`
		Stream   bool   `json:"stream"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Tools []struct {
			Type string `json:"type"`
		} `json:"tools"`
	}
	decodeBody(t, cap, &body)
	if body.Model != "qwen2.5:7b" {
		t.Errorf("model = %q", body.Model)
	}
	if body.Stream {
		t.Error("stream must be false")
	}
	if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Content != "hi" {
		t.Errorf("messages = %+v", body.Messages)
	}
	if len(body.Tools) != 1 || body.Tools[0].Type != "function" {
		t.Errorf("tools = %+v", body.Tools)
	}

	if resp.Content != "hello" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.PromptTokens != 12 || resp.Usage.CompletionTokens != 7 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestOllamaSynthesizesToolCallIDs(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusOK, `{
		"message": {
			"role": "assistant",
			"content": "",
			"tool_calls": [
				{"function": {"name": "read_file", "arguments": {"path": "a.txt"}}},
				{"function": {"name": "grep", "arguments": {"pattern": "todo"}}}
			]
		},
		"done": true
	}`)

	client := NewOllamaClient(srv.URL, "qwen2.5:7b")
	resp, err := client.Chat(context.Background(), []Message{UserMessage("go")}, sampleTools)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(resp.ToolCalls) != 2 {
		t.Fatalf("tool calls = %d", len(resp.ToolCalls))
	}
	if resp.ToolCalls[0].ID != "call_0" || resp.ToolCalls[1].ID != "call_1" {
		t.Errorf("ids = %q, %q", resp.ToolCalls[0].ID, resp.ToolCalls[1].ID)
	}
	if resp.ToolCalls[0].Arguments["path"] != "a.txt" {
		t.Errorf("arguments = %+v", resp.ToolCalls[0].Arguments)
	}
}

func TestOllamaModelNotFound(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusNotFound, `{"error": "model not found"}`)

	client := NewOllamaClient(srv.URL, "missing:1b")
	_, err := client.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	if !IsModelNotFound(err) {
		t.Fatalf("err = %v, want model-not-found", err)
	}
	if !strings.Contains(err.Error(), "ollama pull missing:1b") {
		t.Errorf("error should suggest the pull command: %v", err)
	}
}

// =============================================================================
// OPENAI-COMPATIBLE
// =============================================================================

func TestOpenAIRequestEncodesArgumentsAsString(t *testing.T) {
	srv, cap := fakeBackend(t, http.StatusOK, `{
		"choices": [{"message": {"role": "assistant", "content": "done"}}],
		"usage": {"prompt_tokens": 3, "completion_tokens": 2}
	}`)

	client := NewOpenAICompatClient(srv.URL, "gpt-4o-mini", "sk-test")
	history := []Message{
		UserMessage("read it"),
		AssistantToolCalls("", []ToolCall{{
			ID:        "call_abc",
			Name:      "read_file",
			Arguments: map[string]interface{}{"path": "a.txt"},
		}}),
		ToolResultMessage("call_abc", "contents"),
	}
	if _, err := client.Chat(context.Background(), history, sampleTools); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if cap.path != "/v1/chat/completions" {
		t.Errorf("path = %q", cap.path)
	}
	if got := cap.headers.Get("Authorization"); got != "Bearer sk-test" {
		t.Errorf("Authorization = %q", got)
	}

	var body struct {
		Messages []struct {
			Role      string `json:"role"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
			ToolCallID string `json:"tool_call_id"`
		} `json:"messages"`
	}
	decodeBody(t, cap, &body)
	assistant := body.Messages[1]
	if len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].ID != "call_abc" {
		t.Fatalf("assistant message = %+v", assistant)
	}
	// Arguments must be a JSON-encoded string on this wire.
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(assistant.ToolCalls[0].Function.Arguments), &args); err != nil {
		t.Fatalf("arguments not a JSON string: %v", err)
	}
	if args["path"] != "a.txt" {
		t.Errorf("arguments = %+v", args)
	}
	if body.Messages[2].ToolCallID != "call_abc" {
		t.Errorf("tool result = %+v", body.Messages[2])
	}
}

func TestOpenAIMalformedArgumentsDegradeToEmpty(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusOK, `{
		"choices": [{"message": {
			"role": "assistant",
			"content": null,
			"tool_calls": [{"id": "c1", "type": "function",
				"function": {"name": "grep", "arguments": "{not valid json"}}]
		}}]
	}`)

	client := NewOpenAICompatClient(srv.URL, "m", "")
	resp, err := client.Chat(context.Background(), []Message{UserMessage("go")}, nil)
	if err != nil {
		t.Fatalf("malformed arguments must not fail the turn: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d", len(resp.ToolCalls))
	}
	if len(resp.ToolCalls[0].Arguments) != 0 {
		t.Errorf("arguments = %+v, want empty", resp.ToolCalls[0].Arguments)
	}
	if resp.Content != "" {
		t.Errorf("content = %q, want empty for null content", resp.Content)
	}
}

func TestOpenAIUnauthorized(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusUnauthorized, `{"error": "bad key"}`)

	client := NewOpenAICompatClient(srv.URL, "m", "sk-wrong")
	_, err := client.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	if err == nil || !strings.Contains(err.Error(), "authentication failed") {
		t.Errorf("err = %v, want auth failure", err)
	}
}

// =============================================================================
// ANTHROPIC
// =============================================================================

func TestAnthropicLiftsSystemAndMapsToolTraffic(t *testing.T) {
	srv, cap := fakeBackend(t, http.StatusOK, `{
		"content": [
			{"type": "text", "text": "Reading now."},
			{"type": "tool_use", "id": "toolu_1", "name": "read_file", "input": {"path": "a.txt"}}
		],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`)

	client := NewAnthropicClient(srv.URL, "claude-sonnet-4-5", "sk-ant-test")
	history := []Message{
		SystemMessage("you are terse"),
		UserMessage("read a.txt"),
		AssistantToolCalls("", []ToolCall{{ID: "toolu_0", Name: "read_file",
			Arguments: map[string]interface{}{"path": "b.txt"}}}),
		ToolResultMessage("toolu_0", "b contents"),
	}
	resp, err := client.Chat(context.Background(), history, sampleTools)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if got := cap.headers.Get("x-api-key"); got != "sk-ant-test" {
		t.Errorf("x-api-key = %q", got)
	}
	if got := cap.headers.Get("anthropic-version"); got != "2023-06-01" {
		t.Errorf("anthropic-version = %q", got)
	}

	var body struct {
		System    string `json:"system"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
		Tools []struct {
			InputSchema map[string]interface{} `json:"input_schema"`
		} `json:"tools"`
	}
	decodeBody(t, cap, &body)
	if body.System != "you are terse" {
		t.Errorf("system = %q", body.System)
	}
	if body.MaxTokens != 4096 {
		t.Errorf("max_tokens = %d", body.MaxTokens)
	}
	// System prompt must not also appear as a message.
	if len(body.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(body.Messages))
	}
	// The tool result rides on a user message with a tool_result block.
	if body.Messages[2].Role != "user" {
		t.Errorf("tool result role = %q", body.Messages[2].Role)
	}
	var blocks []map[string]interface{}
	if err := json.Unmarshal(body.Messages[2].Content, &blocks); err != nil {
		t.Fatalf("tool result content: %v", err)
	}
	if blocks[0]["type"] != "tool_result" || blocks[0]["tool_use_id"] != "toolu_0" {
		t.Errorf("tool result block = %+v", blocks[0])
	}
	if body.Tools[0].InputSchema == nil {
		t.Error("tools must carry input_schema")
	}

	if resp.Content != "Reading now." {
		t.Errorf("content = %q", resp.Content)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].ID != "toolu_1" {
		t.Errorf("tool calls = %+v", resp.ToolCalls)
	}
	if resp.Usage.PromptTokens != 10 || resp.Usage.CompletionTokens != 5 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

// =============================================================================
// GEMINI
// =============================================================================

func TestGeminiFunctionNameDoublesAsCallID(t *testing.T) {
	srv, cap := fakeBackend(t, http.StatusOK, `{
		"candidates": [{"content": {"role": "model", "parts": [
			{"functionCall": {"name": "list_dir", "args": {"path": "."}}}
		]}}]
	}`)

	client := NewGeminiClient(srv.URL, "gemini-2.0-flash", "g-key")
	history := []Message{
		SystemMessage("be brief"),
		UserMessage("list files"),
	}
	resp, err := client.Chat(context.Background(), history, sampleTools)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if !strings.Contains(cap.path, "models/gemini-2.0-flash:generateContent") {
		t.Errorf("path = %q", cap.path)
	}
	if !strings.Contains(cap.query, "key=g-key") {
		t.Errorf("query = %q, want api key", cap.query)
	}

	var body struct {
		SystemInstruction *struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"system_instruction"`
		Contents []struct {
			Role string `json:"role"`
		} `json:"contents"`
	}
	decodeBody(t, cap, &body)
	if body.SystemInstruction == nil || body.SystemInstruction.Parts[0].Text != "be brief" {
		t.Errorf("system_instruction = %+v", body.SystemInstruction)
	}
	if len(body.Contents) != 1 || body.Contents[0].Role != "user" {
		t.Errorf("contents = %+v", body.Contents)
	}

	if len(resp.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d", len(resp.ToolCalls))
	}
	if resp.ToolCalls[0].ID != "list_dir" || resp.ToolCalls[0].Name != "list_dir" {
		t.Errorf("call = %+v, want function name as id", resp.ToolCalls[0])
	}
}

func TestGeminiToolResultBecomesFunctionResponse(t *testing.T) {
	srv, cap := fakeBackend(t, http.StatusOK, `{
		"candidates": [{"content": {"role": "model", "parts": [{"text": "two files"}]}}]
	}`)

	client := NewGeminiClient(srv.URL, "gemini-2.0-flash", "g-key")
	history := []Message{
		UserMessage("list files"),
		AssistantToolCalls("", []ToolCall{{ID: "list_dir", Name: "list_dir",
			Arguments: map[string]interface{}{"path": "."}}}),
		ToolResultMessage("list_dir", "a.txt\nb.txt"),
	}
	resp, err := client.Chat(context.Background(), history, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	var body struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				FunctionResponse *struct {
					Name     string                 `json:"name"`
					Response map[string]interface{} `json:"response"`
				} `json:"functionResponse"`
			} `json:"parts"`
		} `json:"contents"`
	}
	decodeBody(t, cap, &body)
	last := body.Contents[len(body.Contents)-1]
	if last.Role != "user" || last.Parts[0].FunctionResponse == nil {
		t.Fatalf("tool result content = %+v", last)
	}
	fr := last.Parts[0].FunctionResponse
	if fr.Name != "list_dir" || fr.Response["result"] != "a.txt\nb.txt" {
		t.Errorf("functionResponse = %+v", fr)
	}

	if resp.Content != "two files" {
		t.Errorf("content = %q", resp.Content)
	}
}

// =============================================================================
// TRANSPORT ERRORS
// =============================================================================

func TestConnectionRefusedIsConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewOllamaClient(url, "qwen2.5:7b")
	_, err := client.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	if !IsConnection(err) {
		t.Fatalf("err = %v, want connection error", err)
	}
	if !strings.Contains(err.Error(), "ollama serve") {
		t.Errorf("error should suggest starting the server: %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusOK, `{}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewOllamaClient(srv.URL, "qwen2.5:7b")
	_, err := client.Chat(ctx, []Message{UserMessage("hi")}, nil)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	var ce *ClientError
	if !errors.As(err, &ce) {
		t.Errorf("err = %T, want *ClientError", err)
	}
}
