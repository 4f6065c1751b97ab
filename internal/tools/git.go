// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/hermitclaw/internal/sandbox"
	"github.com/jeranaias/hermitclaw/internal/security"
)

// GitTool runs a git subcommand. Classification happens both here and
// in the permission gate; the duplicate check means a blocked form is
// refused even if a caller reaches the tool directly.
type GitTool struct {
	exec sandbox.Executor
	root string
}

// NewGitTool returns a git tool rooted at dir.
func NewGitTool(exec sandbox.Executor, dir string) *GitTool {
	return &GitTool{exec: exec, root: dir}
}

// SetExecutor swaps the sandbox executor.
func (t *GitTool) SetExecutor(exec sandbox.Executor) { t.exec = exec }

func (t *GitTool) Name() string { return "git" }

func (t *GitTool) Description() string {
	return "Execute a git command. Read-only commands (status, diff, log, show, branch, stash) run freely. " +
		"Mutating commands (add, commit, checkout, switch, pull, fetch, push, merge, tag, cherry-pick, remote, reset) require approval."
}

func (t *GitTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "The git subcommand (e.g., 'status', 'diff', 'log', 'add', 'commit', 'push')",
			},
			"args": map[string]interface{}{
				"type":        "string",
				"description": "Additional arguments for the git command (optional)",
			},
		},
		"required": []interface{}{"command"},
	}
}

func (t *GitTool) Permissions() Permissions {
	// Pull, fetch, push and remote need the network, so the whole tool
	// carries the capability; per-verb gating happens in the
	// classifier.
	return Permissions{Subprocess: true, Network: true}
}

func (t *GitTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	verb, err := stringArg(args, "command")
	if err != nil {
		return "", err
	}
	extra := optionalString(args, "args", "")
	parsed := security.SplitArgs(extra)

	cls := security.ClassifyGit(verb, parsed)
	if cls.Tier == security.TierBlocked {
		return "", permissionDenied(cls.Reason, nil)
	}

	// Interactive editors cannot run inside the agent, so a commit
	// without an inline message is rejected up front.
	if verb == "commit" && !hasMessageFlag(parsed) {
		return "", invalidArgs(`git commit requires -m (e.g. args: "-m 'commit message'"); interactive editor is not supported`)
	}

	command := buildGitCommand(verb, parsed)
	policy := sandbox.Policy{
		NetworkAllowed: true,
		FilesystemRoot: t.root,
		Timeout:        sandbox.DefaultTimeout,
	}
	res, err := t.exec.Execute(ctx, command, policy)
	if err != nil {
		if sandbox.IsTimeout(err) && res != nil {
			return "", executionFailed(fmt.Sprintf("git %s timed out; partial output:\n%s", verb, formatOutput(res)), err)
		}
		return "", executionFailed("failed to execute git", err)
	}
	return formatOutput(res), nil
}

func hasMessageFlag(args []string) bool {
	for _, a := range args {
		if a == "-m" || a == "--message" || strings.HasPrefix(a, "-m") || strings.HasPrefix(a, "--message=") {
			return true
		}
	}
	return false
}

// buildGitCommand single-quotes every argument so the shell passes it
// through untouched.
func buildGitCommand(verb string, args []string) string {
	parts := []string{"git", verb}
	for _, a := range args {
		parts = append(parts, "'"+strings.ReplaceAll(a, "'", `'\''`)+"'")
	}
	return strings.Join(parts, " ")
}
