// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jeranaias/hermitclaw/internal/llm"
	"github.com/jeranaias/hermitclaw/internal/permission"
	"github.com/jeranaias/hermitclaw/internal/sandbox"
	"github.com/jeranaias/hermitclaw/internal/storage"
	"github.com/jeranaias/hermitclaw/internal/tools"
)

// =============================================================================
// LIMITS
// =============================================================================

const (
	// maxToolOutputChars bounds a single tool result fed back to the
	// model.
	maxToolOutputChars = 50_000

	// maxTitleChars bounds the conversation title derived from the
	// first user message.
	maxTitleChars = 48
)

const summarizePrompt = "Summarize the conversation so far concisely, preserving key facts, decisions, and context needed for future turns."

// maxIterationsNotice terminates a turn that hit the round bound. It
// is a policy ceiling on cost, not an error.
const maxIterationsNotice = "Max iterations reached. The answer so far is incomplete; ask me to continue if you want me to keep going."

// =============================================================================
// CONFIG
// =============================================================================

// Config tunes the orchestration loop.
type Config struct {
	// MaxIterations bounds provider rounds within one user turn.
	MaxIterations int

	// ContextCompression enables automatic summarization once the
	// in-memory history passes ContextThreshold messages.
	ContextCompression bool
	ContextThreshold   int

	// KeepRecent is how many of the newest messages survive a
	// compression verbatim.
	KeepRecent int

	// Sandbox selects the isolating executor for subprocess tools.
	Sandbox bool
}

// DefaultConfig mirrors the shipped defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:      10,
		ContextCompression: true,
		ContextThreshold:   40,
		KeepRecent:         10,
		Sandbox:            true,
	}
}

func (c *Config) fillDefaults() {
	d := DefaultConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.ContextThreshold <= 0 {
		c.ContextThreshold = d.ContextThreshold
	}
	if c.KeepRecent <= 0 {
		c.KeepRecent = d.KeepRecent
	}
}

// =============================================================================
// AGENT
// =============================================================================

// Agent owns one interactive session: the message history, the
// permission gate, the active conversation, and the provider.
type Agent struct {
	provider llm.Provider
	registry *tools.Registry
	gate     *permission.Gate
	store    *storage.Store
	cfg      Config

	workingDir     string
	conversationID string
	memory         []llm.Message

	sandboxOn   bool
	isolated    sandbox.Executor
	passthrough sandbox.Executor

	// storeWarn carries the most recent persistence failure. Saving
	// is best effort: a broken store degrades resume, never the
	// running session.
	storeWarn error
}

// New builds an agent and starts a fresh conversation.
func New(provider llm.Provider, registry *tools.Registry, gate *permission.Gate, store *storage.Store, workingDir string, cfg Config) (*Agent, error) {
	cfg.fillDefaults()
	a := &Agent{
		provider:    provider,
		registry:    registry,
		gate:        gate,
		store:       store,
		cfg:         cfg,
		workingDir:  workingDir,
		isolated:    sandbox.NewNamespace(),
		passthrough: sandbox.NewPassthrough(),
	}
	a.SetSandbox(cfg.Sandbox)
	if err := a.NewSession(); err != nil {
		return nil, err
	}
	return a, nil
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// NewSession starts an empty conversation and forgets remembered
// approvals; approvals never span sessions.
func (a *Agent) NewSession() error {
	a.gate.Reset()
	a.memory = []llm.Message{llm.SystemMessage(systemPrompt)}
	a.conversationID = ""
	a.storeWarn = nil

	if a.store != nil {
		id, err := a.store.CreateConversation(a.workingDir)
		if err != nil {
			return err
		}
		a.conversationID = id
	}
	return nil
}

// Resume replaces the active session with a persisted conversation,
// restoring the exact message sequence.
func (a *Agent) Resume(conversationID string) error {
	if a.store == nil {
		return errors.New("no session store configured")
	}
	msgs, err := a.store.LoadMessages(conversationID)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return storage.ErrNotFound
	}

	a.gate.Reset()
	if msgs[0].Role != llm.RoleSystem {
		msgs = append([]llm.Message{llm.SystemMessage(systemPrompt)}, msgs...)
	}
	a.memory = msgs
	a.conversationID = conversationID
	a.storeWarn = nil
	return nil
}

// ResumeLatest resumes the most recent conversation for the working
// directory.
func (a *Agent) ResumeLatest() error {
	if a.store == nil {
		return errors.New("no session store configured")
	}
	id, err := a.store.LatestConversation(a.workingDir)
	if err != nil {
		return err
	}
	return a.Resume(id)
}

// ListSessions lists this directory's resumable conversations.
func (a *Agent) ListSessions() ([]storage.ConversationSummary, error) {
	if a.store == nil {
		return nil, errors.New("no session store configured")
	}
	return a.store.ListConversations(a.workingDir)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// ConversationID returns the active conversation's id, empty when no
// store is configured.
func (a *Agent) ConversationID() string { return a.conversationID }

// Messages returns a copy of the active in-memory history.
func (a *Agent) Messages() []llm.Message {
	out := make([]llm.Message, len(a.memory))
	copy(out, a.memory)
	return out
}

// Tools returns the registered tools in registration order.
func (a *Agent) Tools() []tools.Tool { return a.registry.List() }

// Mode returns the gate's operating mode.
func (a *Agent) Mode() permission.Mode { return a.gate.Mode() }

// SetMode switches the gate's operating mode.
func (a *Agent) SetMode(m permission.Mode) { a.gate.SetMode(m) }

// Provider returns the active provider.
func (a *Agent) Provider() llm.Provider { return a.provider }

// SetProvider swaps the provider; history carries over.
func (a *Agent) SetProvider(p llm.Provider) { a.provider = p }

// SandboxEnabled reports whether subprocess tools run isolated.
func (a *Agent) SandboxEnabled() bool { return a.sandboxOn }

// SetSandbox routes subprocess tools through the isolating executor
// (true) or the passthrough one (false).
func (a *Agent) SetSandbox(on bool) {
	a.sandboxOn = on
	exec := a.passthrough
	if on {
		exec = a.isolated
	}
	for _, t := range a.registry.List() {
		if s, ok := t.(tools.Sandboxed); ok {
			s.SetExecutor(exec)
		}
	}
}

// StoreWarning returns the most recent persistence failure, if any.
func (a *Agent) StoreWarning() error { return a.storeWarn }

// =============================================================================
// TURN PROCESSING
// =============================================================================

// ProcessTurn runs one user turn to completion: provider rounds and
// tool executions until the provider answers in plain text or the
// iteration bound is reached. A provider failure aborts only this
// turn; the session stays usable.
func (a *Agent) ProcessTurn(ctx context.Context, userText string) (string, error) {
	a.append(llm.UserMessage(userText))
	a.maybeSetTitle(userText)

	if a.cfg.ContextCompression && len(a.memory) > a.cfg.ContextThreshold {
		// Compression failure is not fatal to the turn.
		_ = a.compress(ctx, "")
	}

	defs := a.registry.Definitions()

	for i := 0; i < a.cfg.MaxIterations; i++ {
		resp, err := a.provider.Chat(ctx, a.memory, defs)
		if err != nil {
			return "", providerError(err)
		}

		if len(resp.ToolCalls) == 0 {
			a.append(llm.AssistantMessage(resp.Content))
			return resp.Content, nil
		}

		a.append(llm.AssistantToolCalls(resp.Content, resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			result := a.runToolCall(ctx, call)
			a.append(llm.ToolResultMessage(call.ID, truncateOutput(result)))
		}
	}

	a.append(llm.AssistantMessage(maxIterationsNotice))
	return maxIterationsNotice, nil
}

// runToolCall resolves one requested call to its result text. Denials
// and failures are results too, so the model can adjust course.
func (a *Agent) runToolCall(ctx context.Context, call llm.ToolCall) string {
	tool, err := a.registry.Get(call.Name)
	if err != nil {
		return fmt.Sprintf("Unknown tool: %s", call.Name)
	}

	if err := tools.ValidateArgs(tool.ParametersSchema(), call.Arguments); err != nil {
		return fmt.Sprintf("Tool error: %v", err)
	}

	if err := a.gate.Authorize(tool, call.Arguments); err != nil {
		return fmt.Sprintf("Tool denied: %v", err)
	}

	output, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		return fmt.Sprintf("Tool error: %v", err)
	}
	return output
}

func providerError(err error) error {
	switch {
	case llm.IsModelNotFound(err):
		return fmt.Errorf("model not available: %w", err)
	case llm.IsConnection(err):
		return fmt.Errorf("cannot reach the provider (is it running?): %w", err)
	default:
		return fmt.Errorf("provider request failed: %w", err)
	}
}

// =============================================================================
// CONTEXT COMPRESSION
// =============================================================================

// ErrNothingToCompress reports that the history is already at or
// below the compression floor.
var ErrNothingToCompress = errors.New("nothing to compress")

// Compact manually compresses the history. The optional instruction
// is forwarded to the summarization request.
func (a *Agent) Compact(ctx context.Context, instruction string) error {
	if len(a.memory) <= 2 {
		return ErrNothingToCompress
	}
	return a.compress(ctx, instruction)
}

// compress replaces the oldest span of messages with one synthesized
// summary, keeping the system prompt and the newest KeepRecent
// messages verbatim. Only the in-memory view changes; the persisted
// record keeps every original message.
func (a *Agent) compress(ctx context.Context, instruction string) error {
	keep := a.cfg.KeepRecent
	if keep > len(a.memory)-1 {
		keep = len(a.memory) - 1
	}
	keepFrom := len(a.memory) - keep
	if keepFrom <= 1 {
		return ErrNothingToCompress
	}

	prompt := summarizePrompt
	if instruction != "" {
		prompt += " Additional instructions: " + instruction
	}

	request := make([]llm.Message, 0, keepFrom+1)
	request = append(request, a.memory[:keepFrom]...)
	request = append(request, llm.UserMessage(prompt))

	resp, err := a.provider.Chat(ctx, request, nil)
	if err != nil {
		return fmt.Errorf("summarization failed: %w", err)
	}
	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return errors.New("summarization returned no content")
	}

	recent := a.memory[keepFrom:]
	next := make([]llm.Message, 0, len(recent)+2)
	next = append(next, a.memory[0])
	next = append(next, llm.SystemMessage("Previous conversation summary: "+summary))
	next = append(next, recent...)
	a.memory = next
	return nil
}

// =============================================================================
// INTERNAL
// =============================================================================

// append adds a message to memory and persists it. Persistence is
// best effort; the failure is kept for the surface to report.
func (a *Agent) append(msg llm.Message) {
	a.memory = append(a.memory, msg)
	a.persist(msg)
}

func (a *Agent) persist(msg llm.Message) {
	if a.store == nil || a.conversationID == "" {
		return
	}
	// System messages (the prompt, compression summaries) are session
	// furniture, not conversation content. Keeping them out of the
	// store also keeps untouched conversations invisible to resume.
	if msg.Role == llm.RoleSystem {
		return
	}
	if err := a.store.SaveMessage(a.conversationID, msg); err != nil {
		a.storeWarn = err
	}
}

// maybeSetTitle derives the conversation title from the first user
// message.
func (a *Agent) maybeSetTitle(text string) {
	if a.store == nil || a.conversationID == "" {
		return
	}
	users := 0
	for _, m := range a.memory {
		if m.Role == llm.RoleUser {
			users++
		}
	}
	if users != 1 {
		return
	}

	title := strings.Join(strings.Fields(text), " ")
	if len(title) > maxTitleChars {
		end := maxTitleChars
		for end > 0 && !utf8.RuneStart(title[end]) {
			end--
		}
		title = title[:end]
	}
	if err := a.store.UpdateTitle(a.conversationID, title); err != nil {
		a.storeWarn = err
	}
}

// truncateOutput caps a tool result at maxToolOutputChars, cutting on
// a rune boundary.
func truncateOutput(s string) string {
	if len(s) <= maxToolOutputChars {
		return s
	}
	end := maxToolOutputChars
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end] + "\n...[output truncated to 50KB]"
}
