// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import "context"

// =============================================================================
// ROLES AND MESSAGES
// =============================================================================

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a conversation. The message list is ordered and
// append-only; replays to a provider must preserve the exact order.
type Message struct {
	// Role is the message role: system, user, assistant, or tool.
	Role Role `json:"role"`

	// Content is the text content of the message.
	Content string `json:"content"`

	// ToolCalls contains tool calls requested by the assistant, if any.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool-result message (role "tool") back to the
	// tool call that produced it.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// SystemMessage creates a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates a plain assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// AssistantToolCalls creates an assistant message carrying tool calls.
func AssistantToolCalls(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolResultMessage creates a tool-result message linked to a tool call.
func ToolResultMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// =============================================================================
// TOOL CALLS AND DEFINITIONS
// =============================================================================

// ToolCall is a structured request from the model to run a named tool.
type ToolCall struct {
	// ID is unique within the turn that produced the call.
	ID string `json:"id"`

	// Name is the tool to invoke.
	Name string `json:"name"`

	// Arguments are the parameters for the tool, keyed by parameter name.
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolDefinition is the schema handed to a provider so the model knows what
// it may call. Pure metadata, generated from the tool registry.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// TokenUsage reports token counts when the backend provides them.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
}

// Response is one model turn: final text, tool calls, or both.
type Response struct {
	Content   string
	ToolCalls []ToolCall
	Usage     TokenUsage
}

// =============================================================================
// PROVIDER INTERFACE
// =============================================================================

// Provider is the single dependency the agent loop has on a language model.
type Provider interface {
	// Chat sends the full message history plus tool schemas and returns
	// the model's next turn.
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error)

	// Name identifies the backend ("ollama", "openai", "anthropic", "gemini").
	Name() string

	// Model returns the model identifier requests are sent to.
	Model() string
}
