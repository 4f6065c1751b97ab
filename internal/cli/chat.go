// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat REPL for hermitclaw.
//
// Handles the "hermitclaw chat" command: a readline loop feeding the
// agent, with slash commands for session control.
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /new                Start a fresh conversation
//   /resume [id]        Resume a conversation (latest if no id)
//   /sessions           List saved conversations
//   /mode [name]        Show or switch permission mode
//   /model [name]       Show or switch model
//   /provider [name]    Show or switch provider
//   /sandbox on|off     Toggle command isolation
//   /compact [note]     Summarize older history
//   /tools              List available tools
//   /history            Show conversation history
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel current generation
//   Ctrl+D              Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/jeranaias/hermitclaw/internal/agent"
	"github.com/jeranaias/hermitclaw/internal/config"
	"github.com/jeranaias/hermitclaw/internal/permission"
	"github.com/jeranaias/hermitclaw/internal/sandbox"
	"github.com/jeranaias/hermitclaw/internal/security"
	"github.com/jeranaias/hermitclaw/internal/storage"
	"github.com/jeranaias/hermitclaw/internal/tools"
)

// =============================================================================
// OPTIONS
// =============================================================================

// ChatOptions carries command-line overrides for the chat session.
type ChatOptions struct {
	// Model overrides the configured model.
	Model string
	// NoSandbox disables namespace isolation for this session.
	NoSandbox bool
	// Mode overrides the configured permission mode.
	Mode string
	// Resume continues the most recent conversation in this directory.
	Resume bool
}

// =============================================================================
// SESSION
// =============================================================================

// Session holds the wired-up state for one interactive run.
type Session struct {
	agent *agent.Agent
	cfg   *config.Config
	input *Input

	// cancel aborts the in-flight turn on Ctrl+C.
	cancel context.CancelFunc

	storeWarned bool
}

// NewSession builds the full stack: tool registry rooted at the
// working directory, permission gate, session store, and agent.
func NewSession(cfg *config.Config, opts ChatOptions) (*Session, error) {
	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("cannot determine working directory: %w", err)
	}

	if opts.Model != "" {
		cfg.LLM.Model = opts.Model
	}
	provider, err := BuildProvider(cfg.LLM)
	if err != nil {
		return nil, err
	}

	validator, err := security.NewValidator(workingDir)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize path validator: %w", err)
	}

	registry, err := buildRegistry(validator, workingDir)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Memory.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("cannot open session store: %w", err)
	}

	gate := permission.NewGate(NewTerminalApprover())

	agentCfg := agent.Config{
		MaxIterations:      cfg.Agent.MaxIterations,
		ContextCompression: cfg.Agent.ContextCompression,
		ContextThreshold:   cfg.Agent.ContextThreshold,
		KeepRecent:         cfg.Agent.KeepRecent,
		Sandbox:            cfg.Agent.Sandbox && !opts.NoSandbox,
	}
	ag, err := agent.New(provider, registry, gate, store, workingDir, agentCfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	modeName := cfg.Agent.PermissionMode
	if opts.Mode != "" {
		modeName = opts.Mode
	}
	mode, err := permission.ParseMode(modeName)
	if err != nil {
		store.Close()
		return nil, err
	}
	ag.SetMode(mode)

	if opts.Resume {
		// A failed resume is not fatal; the session continues fresh.
		switch err := ag.ResumeLatest(); {
		case err == nil:
		case errors.Is(err, storage.ErrNotFound):
			fmt.Fprintln(os.Stderr, infoStyle.Render("[No previous conversation here; starting fresh]"))
		default:
			fmt.Fprintln(os.Stderr, warningStyle.Render(fmt.Sprintf("[Cannot resume: %v; starting fresh]", err)))
		}
	}

	return &Session{
		agent: ag,
		cfg:   cfg,
		input: NewInput(),
	}, nil
}

// buildRegistry registers the nine built-in tools. Shell and git get
// a passthrough executor; the agent swaps in the namespace executor
// when the sandbox is on.
func buildRegistry(validator *security.Validator, workingDir string) (*tools.Registry, error) {
	exec := sandbox.NewPassthrough()

	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		&tools.ReadFileTool{Paths: validator},
		&tools.WriteFileTool{Paths: validator},
		&tools.EditFileTool{Paths: validator},
		&tools.ListDirTool{Paths: validator},
		&tools.GrepTool{Paths: validator},
		tools.NewShellTool(exec, workingDir),
		tools.NewGitTool(exec, workingDir),
		tools.NewWebFetchTool(),
		tools.NewWebSearchTool(),
	} {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Close releases the input handling and terminal state.
func (s *Session) Close() {
	s.input.Close()
}

// =============================================================================
// REPL
// =============================================================================

// Run executes the interactive loop until /quit or EOF.
func (s *Session) Run() error {
	printWelcome(s)

	// Ctrl+C cancels the in-flight turn rather than killing the
	// process; at the prompt liner surfaces it as ErrPromptAborted.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		for range sigChan {
			if s.cancel != nil {
				s.cancel()
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		input, err := s.input.ReadLine(promptStyle.Render("hermitclaw> "))
		if err != nil {
			if err == liner.ErrPromptAborted {
				fmt.Println()
				continue
			}
			// EOF (Ctrl+D) exits cleanly.
			fmt.Println()
			fmt.Println(infoStyle.Render("Goodbye!"))
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := s.handleSlashCommand(input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				fmt.Println(infoStyle.Render("Goodbye!"))
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			fmt.Println(infoStyle.Render("Goodbye!"))
			return nil
		}

		s.processTurn(input)
	}
}

// processTurn runs one user message through the agent and prints the
// answer. Errors abort only the turn.
func (s *Session) processTurn(input string) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	defer func() {
		s.cancel = nil
		cancel()
	}()

	out, err := s.agent.ProcessTurn(ctx, input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		return
	}

	fmt.Println()
	displayResponse(out)
	fmt.Println()

	if warn := s.agent.StoreWarning(); warn != nil && !s.storeWarned {
		s.storeWarned = true
		fmt.Fprintf(os.Stderr, "%s conversation is not being saved: %v\n",
			warningStyle.Render("[Warning]"), warn)
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands. Returns
// (keepGoing, error); keepGoing=false means exit.
func (s *Session) handleSlashCommand(cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?", "/":
		printHelp()
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	case "/new":
		if err := s.agent.NewSession(); err != nil {
			return true, err
		}
		fmt.Println(commandStyle.Render("[Started a fresh conversation]"))
		return true, nil

	case "/resume":
		return true, s.handleResume(args)

	case "/sessions":
		return true, s.printSessions()

	case "/mode", "/m":
		return true, s.handleMode(args)

	case "/model":
		return true, s.handleModel(args)

	case "/provider":
		return true, s.handleProvider(args)

	case "/sandbox":
		return true, s.handleSandbox(args)

	case "/compact":
		return true, s.handleCompact(strings.Join(args, " "))

	case "/tools":
		s.printTools()
		return true, nil

	case "/history":
		s.printHistory()
		return true, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

func (s *Session) handleResume(args []string) error {
	var err error
	if len(args) > 0 {
		err = s.agent.Resume(args[0])
	} else {
		err = s.agent.ResumeLatest()
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no conversation to resume (see /sessions)")
		}
		return err
	}
	fmt.Printf("%s Resumed conversation %s (%d messages)\n",
		commandStyle.Render("[OK]"),
		s.agent.ConversationID(),
		len(s.agent.Messages()))
	return nil
}

func (s *Session) printSessions() error {
	sessions, err := s.agent.ListSessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println(infoStyle.Render("[No saved conversations in this directory]"))
		return nil
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Saved Conversations"))
	for _, sess := range sessions {
		title := sess.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("  %s  %s  %s\n",
			commandStyle.Render(sess.ID),
			infoStyle.Render(fmt.Sprintf("%d msgs", sess.MessageCount)),
			title)
	}
	fmt.Println()
	return nil
}

func (s *Session) handleMode(args []string) error {
	if len(args) == 0 {
		fmt.Printf("%s Current mode: %s\n",
			infoStyle.Render("[Mode]"),
			commandStyle.Render(s.agent.Mode().String()))
		return nil
	}
	mode, err := permission.ParseMode(args[0])
	if err != nil {
		return err
	}
	s.agent.SetMode(mode)
	if mode == permission.ModeYolo {
		fmt.Println(warningStyle.Render("[yolo: approvals skipped; destructive commands stay blocked]"))
	} else {
		fmt.Printf("%s Switched to mode: %s\n", commandStyle.Render("[OK]"), mode)
	}
	return nil
}

func (s *Session) handleModel(args []string) error {
	if len(args) == 0 {
		fmt.Printf("%s Current model: %s\n",
			infoStyle.Render("[Model]"),
			commandStyle.Render(s.cfg.LLM.Model))
		return nil
	}
	s.cfg.LLM.Model = args[0]
	provider, err := BuildProvider(s.cfg.LLM)
	if err != nil {
		return err
	}
	s.agent.SetProvider(provider)
	fmt.Printf("%s Switched to model: %s\n", commandStyle.Render("[OK]"), args[0])
	return nil
}

func (s *Session) handleProvider(args []string) error {
	if len(args) == 0 {
		fmt.Printf("%s Current provider: %s (%s)\n",
			infoStyle.Render("[Provider]"),
			commandStyle.Render(s.cfg.LLM.Provider),
			s.cfg.LLM.Model)
		return nil
	}
	next := s.cfg.LLM
	next.Provider = strings.ToLower(args[0])
	next.BaseURL = config.DefaultBaseURL(next.Provider)
	next.APIKey = ""
	nextCfg := &config.Config{LLM: next}
	nextCfg.ApplyEnvOverrides()

	provider, err := BuildProvider(nextCfg.LLM)
	if err != nil {
		return err
	}
	s.cfg.LLM = nextCfg.LLM
	s.agent.SetProvider(provider)
	fmt.Printf("%s Switched to provider: %s\n", commandStyle.Render("[OK]"), next.Provider)
	return nil
}

func (s *Session) handleSandbox(args []string) error {
	if len(args) == 0 {
		state := "off"
		if s.agent.SandboxEnabled() {
			state = "on"
		}
		fmt.Printf("%s Sandbox is %s\n", infoStyle.Render("[Sandbox]"), commandStyle.Render(state))
		return nil
	}
	switch strings.ToLower(args[0]) {
	case "on":
		s.agent.SetSandbox(true)
		fmt.Println(commandStyle.Render("[Sandbox on: commands run in isolated namespaces]"))
	case "off":
		s.agent.SetSandbox(false)
		fmt.Println(warningStyle.Render("[Sandbox off: commands run directly on the host]"))
	default:
		return fmt.Errorf("usage: /sandbox on|off")
	}
	return nil
}

func (s *Session) handleCompact(instruction string) error {
	fmt.Println(infoStyle.Render("[Summarizing older history...]"))
	if err := s.agent.Compact(context.Background(), instruction); err != nil {
		if errors.Is(err, agent.ErrNothingToCompress) {
			fmt.Println(infoStyle.Render("[Nothing to compact yet]"))
			return nil
		}
		return err
	}
	fmt.Printf("%s History compacted to %d messages\n",
		commandStyle.Render("[OK]"),
		len(s.agent.Messages()))
	return nil
}

// =============================================================================
// DISPLAY
// =============================================================================

func printWelcome(s *Session) {
	fmt.Println()
	fmt.Println(welcomeStyle.Render("hermitclaw"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 30)))
	fmt.Printf("%s %s (%s)\n",
		infoStyle.Render("Model:"),
		commandStyle.Render(s.cfg.LLM.Model),
		s.cfg.LLM.Provider)
	fmt.Printf("%s %s\n",
		infoStyle.Render("Mode:"),
		commandStyle.Render(s.agent.Mode().String()))

	if s.agent.SandboxEnabled() {
		fmt.Printf("%s %s\n",
			infoStyle.Render("Sandbox:"),
			commandStyle.Render("on"))
	} else {
		fmt.Printf("%s %s\n",
			infoStyle.Render("Sandbox:"),
			warningStyle.Render("off"))
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

func printHelp() {
	fmt.Println()
	fmt.Println(headerStyle.Render("Available Commands"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/new", "Start a fresh conversation"},
		{"/resume [id]", "Resume a conversation (latest if no id)"},
		{"/sessions", "List saved conversations"},
		{"/mode [name]", "Show or switch permission mode (default, accept_edits, yolo)"},
		{"/model [name]", "Show or switch model"},
		{"/provider [name]", "Show or switch provider"},
		{"/sandbox on|off", "Toggle command isolation"},
		{"/compact [note]", "Summarize older history"},
		{"/tools", "List available tools"},
		{"/history", "Show conversation history"},
		{"/quit, /q", "Exit chat"},
	}

	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-18s", c.cmd)),
			infoStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("Tip: Ctrl+C cancels the current turn, Ctrl+D exits"))
	fmt.Println()
}

func (s *Session) printTools() {
	fmt.Println()
	fmt.Println(headerStyle.Render("Available Tools"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()
	for _, tool := range s.agent.Tools() {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-12s", tool.Name())),
			infoStyle.Render(tool.Description()))
	}
	fmt.Println()
}

func (s *Session) printHistory() {
	msgs := s.agent.Messages()
	if len(msgs) <= 1 {
		fmt.Println(infoStyle.Render("[No messages yet]"))
		return
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Conversation History"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 25)))
	fmt.Println()

	for i, msg := range msgs {
		var role string
		switch msg.Role {
		case "user":
			role = promptStyle.Render("You")
		case "assistant":
			role = welcomeStyle.Render("AI")
		case "system":
			role = warningStyle.Render("System")
		case "tool":
			role = infoStyle.Render("Tool")
		default:
			role = string(msg.Role)
		}

		content := msg.Content
		if content == "" && len(msg.ToolCalls) > 0 {
			names := make([]string, len(msg.ToolCalls))
			for j, call := range msg.ToolCalls {
				names[j] = call.Name
			}
			content = "[calls: " + strings.Join(names, ", ") + "]"
		}
		runes := []rune(content)
		if len(runes) > 100 {
			content = string(runes[:100]) + "..."
		}
		content = strings.ReplaceAll(content, "\n", " ")

		fmt.Printf("  %d. %s: %s\n", i+1, role, content)
	}

	fmt.Println()
}
