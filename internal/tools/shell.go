// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/hermitclaw/internal/sandbox"
)

// Sandboxed is implemented by tools that run commands through a
// sandbox executor and allow it to be swapped at runtime, e.g. when
// the user toggles sandboxing off.
type Sandboxed interface {
	SetExecutor(sandbox.Executor)
}

// ShellTool runs an arbitrary shell command through the configured
// executor with network access denied.
type ShellTool struct {
	exec sandbox.Executor
	root string
}

// NewShellTool returns a shell tool rooted at dir.
func NewShellTool(exec sandbox.Executor, dir string) *ShellTool {
	return &ShellTool{exec: exec, root: dir}
}

// SetExecutor swaps the sandbox executor.
func (t *ShellTool) SetExecutor(exec sandbox.Executor) { t.exec = exec }

func (t *ShellTool) Name() string { return "shell" }

func (t *ShellTool) Description() string {
	return "Execute a shell command (sandboxed when sandboxing is enabled)"
}

func (t *ShellTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "The shell command to execute",
			},
			"working_dir": map[string]interface{}{
				"type":        "string",
				"description": "The working directory (optional, defaults to the session directory)",
			},
		},
		"required": []interface{}{"command"},
	}
}

func (t *ShellTool) Permissions() Permissions {
	return Permissions{Subprocess: true}
}

func (t *ShellTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	command, err := stringArg(args, "command")
	if err != nil {
		return "", err
	}
	workDir := optionalString(args, "working_dir", t.root)

	policy := sandbox.DefaultPolicy(workDir)
	res, err := t.exec.Execute(ctx, command, policy)
	if err != nil {
		if sandbox.IsTimeout(err) && res != nil {
			return "", executionFailed(fmt.Sprintf("command timed out; partial output:\n%s", formatOutput(res)), err)
		}
		return "", executionFailed("failed to execute command", err)
	}
	return formatOutput(res), nil
}

// formatOutput joins stdout and stderr the way the model expects:
// stderr lines prefixed so they are distinguishable, non-zero exits
// noted but not treated as tool failures.
func formatOutput(res *sandbox.Result) string {
	var b strings.Builder
	if res.Stdout != "" {
		b.WriteString(res.Stdout)
	}
	if res.Stderr != "" {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("[stderr] ")
		b.WriteString(res.Stderr)
	}
	if res.ExitCode != 0 {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "(exit code %d)", res.ExitCode)
	}
	return b.String()
}
