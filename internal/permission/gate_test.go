// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package permission

import (
	"context"
	"testing"

	"github.com/jeranaias/hermitclaw/internal/security"
	"github.com/jeranaias/hermitclaw/internal/tools"
)

// fakeTool implements tools.Tool with a fixed permission set.
type fakeTool struct {
	name  string
	perms tools.Permissions
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return f.name }

func (f *fakeTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (f *fakeTool) Permissions() tools.Permissions { return f.perms }

func (f *fakeTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	return "", nil
}

var (
	readTool  = &fakeTool{name: "read_file", perms: tools.Permissions{FilesystemRead: true}}
	writeTool = &fakeTool{name: "write_file", perms: tools.Permissions{FilesystemRead: true, FilesystemWrite: true}}
	shellTool = &fakeTool{name: "shell", perms: tools.Permissions{Subprocess: true}}
	gitTool   = &fakeTool{name: "git", perms: tools.Permissions{Subprocess: true, Network: true}}
)

// countingApprover replies with a fixed response and counts prompts.
type countingApprover struct {
	response Response
	prompts  int
	lastTool string
	lastDesc string
}

func (c *countingApprover) Approve(tool, action string) (Response, error) {
	c.prompts++
	c.lastTool = tool
	c.lastDesc = action
	return c.response, nil
}

func TestDecide(t *testing.T) {
	readOnly := tools.Permissions{FilesystemRead: true}
	write := tools.Permissions{FilesystemRead: true, FilesystemWrite: true}
	subproc := tools.Permissions{Subprocess: true}

	tests := []struct {
		name       string
		perms      tools.Permissions
		tier       security.Tier
		mode       Mode
		remembered bool
		want       Decision
	}{
		{"read-only always allowed", readOnly, security.TierApproval, ModeDefault, false, Allow},
		{"read-only allowed in yolo", readOnly, security.TierApproval, ModeYolo, false, Allow},

		{"write asks in default", write, security.TierApproval, ModeDefault, false, Ask},
		{"write allowed in accept_edits", write, security.TierApproval, ModeAcceptEdits, false, Allow},
		{"write allowed in yolo", write, security.TierApproval, ModeYolo, false, Allow},
		{"write allowed when remembered", write, security.TierApproval, ModeDefault, true, Allow},

		{"approval-tier subprocess asks in default", subproc, security.TierApproval, ModeDefault, false, Ask},
		{"approval-tier subprocess asks in accept_edits", subproc, security.TierApproval, ModeAcceptEdits, false, Ask},
		{"approval-tier subprocess allowed in yolo", subproc, security.TierApproval, ModeYolo, false, Allow},
		{"approval-tier subprocess allowed when remembered", subproc, security.TierApproval, ModeDefault, true, Allow},

		{"allowed-tier subprocess runs freely", subproc, security.TierAllowed, ModeDefault, false, Allow},

		{"blocked denied in default", subproc, security.TierBlocked, ModeDefault, false, Deny},
		{"blocked denied in accept_edits", subproc, security.TierBlocked, ModeAcceptEdits, false, Deny},
		{"blocked denied in yolo", subproc, security.TierBlocked, ModeYolo, false, Deny},
		{"blocked denied even when remembered", subproc, security.TierBlocked, ModeDefault, true, Deny},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.perms, tt.tier, tt.mode, tt.remembered); got != tt.want {
				t.Errorf("Decide = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGateReadOnlyNeverPrompts(t *testing.T) {
	approver := &countingApprover{response: RespondNo}
	gate := NewGate(approver)

	if err := gate.Authorize(readTool, map[string]interface{}{"path": "a.txt"}); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if approver.prompts != 0 {
		t.Errorf("prompts = %d, want 0 for read-only tool", approver.prompts)
	}
}

func TestGateDeniedNeverPrompts(t *testing.T) {
	approver := &countingApprover{response: RespondYes}
	gate := NewGate(approver)
	gate.SetMode(ModeYolo)

	err := gate.Authorize(gitTool, map[string]interface{}{
		"command": "push",
		"args":    "--force origin main",
	})
	if !IsDenied(err) {
		t.Fatalf("err = %v, want DeniedError", err)
	}
	if approver.prompts != 0 {
		t.Errorf("prompts = %d, blocked commands must never reach the approver", approver.prompts)
	}
}

func TestGateSafeGitVerbSkipsApproval(t *testing.T) {
	approver := &countingApprover{response: RespondNo}
	gate := NewGate(approver)

	if err := gate.Authorize(gitTool, map[string]interface{}{"command": "status"}); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if approver.prompts != 0 {
		t.Errorf("prompts = %d, want 0 for read-only git verb", approver.prompts)
	}
}

func TestGateUserDeclines(t *testing.T) {
	approver := &countingApprover{response: RespondNo}
	gate := NewGate(approver)

	err := gate.Authorize(shellTool, map[string]interface{}{"command": "rm -rf /"})
	if !IsDenied(err) {
		t.Fatalf("err = %v, want DeniedError", err)
	}
	if approver.prompts != 1 {
		t.Errorf("prompts = %d, want 1", approver.prompts)
	}
	if approver.lastDesc != "rm -rf /" {
		t.Errorf("prompt description = %q, want the full command", approver.lastDesc)
	}

	// No must record nothing: the next identical call prompts again.
	_ = gate.Authorize(shellTool, map[string]interface{}{"command": "rm -rf /"})
	if approver.prompts != 2 {
		t.Errorf("prompts = %d, want 2 after a plain No", approver.prompts)
	}
}

func TestGateShellPromptShowsWorkingDir(t *testing.T) {
	approver := &countingApprover{response: RespondYes}
	gate := NewGate(approver)

	// An explicit working_dir changes where the command runs; the
	// approver must see it alongside the command.
	err := gate.Authorize(shellTool, map[string]interface{}{
		"command":     "make test",
		"working_dir": "/srv/app",
	})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if want := "make test (in /srv/app)"; approver.lastDesc != want {
		t.Errorf("prompt description = %q, want %q", approver.lastDesc, want)
	}

	// Without working_dir the description is the bare command.
	_ = gate.Authorize(shellTool, map[string]interface{}{"command": "make test"})
	if approver.lastDesc != "make test" {
		t.Errorf("prompt description = %q, want %q", approver.lastDesc, "make test")
	}
}

func TestGateAlwaysIsRemembered(t *testing.T) {
	approver := &countingApprover{response: RespondAlways}
	gate := NewGate(approver)

	if err := gate.Authorize(shellTool, map[string]interface{}{"command": "make test"}); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if err := gate.Authorize(shellTool, map[string]interface{}{"command": "make build"}); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if approver.prompts != 1 {
		t.Errorf("prompts = %d, want 1: Always covers later shell calls this session", approver.prompts)
	}
}

func TestGateGitApprovalScopedPerVerb(t *testing.T) {
	approver := &countingApprover{response: RespondAlways}
	gate := NewGate(approver)

	if err := gate.Authorize(gitTool, map[string]interface{}{"command": "add", "args": "."}); err != nil {
		t.Fatalf("Authorize add: %v", err)
	}
	if approver.prompts != 1 {
		t.Fatalf("prompts = %d, want 1", approver.prompts)
	}

	// A different verb is a different scope and prompts again.
	if err := gate.Authorize(gitTool, map[string]interface{}{"command": "push"}); err != nil {
		t.Fatalf("Authorize push: %v", err)
	}
	if approver.prompts != 2 {
		t.Errorf("prompts = %d, want 2: git scopes are per verb", approver.prompts)
	}

	// Same verb again stays remembered.
	if err := gate.Authorize(gitTool, map[string]interface{}{"command": "add", "args": "-p"}); err != nil {
		t.Fatalf("Authorize add again: %v", err)
	}
	if approver.prompts != 2 {
		t.Errorf("prompts = %d, want 2 after remembered verb", approver.prompts)
	}
}

func TestGateResetForgetsApprovals(t *testing.T) {
	approver := &countingApprover{response: RespondAlways}
	gate := NewGate(approver)

	if err := gate.Authorize(writeTool, map[string]interface{}{"path": "f", "content": "x"}); err != nil {
		t.Fatal(err)
	}
	gate.Reset()
	if err := gate.Authorize(writeTool, map[string]interface{}{"path": "f", "content": "y"}); err != nil {
		t.Fatal(err)
	}
	if approver.prompts != 2 {
		t.Errorf("prompts = %d, want 2 after Reset", approver.prompts)
	}
}

func TestGateAcceptEditsMode(t *testing.T) {
	approver := &countingApprover{response: RespondNo}
	gate := NewGate(approver)
	gate.SetMode(ModeAcceptEdits)

	if err := gate.Authorize(writeTool, map[string]interface{}{"path": "f", "content": "x"}); err != nil {
		t.Fatalf("write in accept_edits: %v", err)
	}
	if approver.prompts != 0 {
		t.Errorf("prompts = %d, want 0 for writes in accept_edits", approver.prompts)
	}

	// Subprocess still asks in accept_edits.
	err := gate.Authorize(shellTool, map[string]interface{}{"command": "ls"})
	if !IsDenied(err) {
		t.Fatalf("err = %v, want denial after No", err)
	}
	if approver.prompts != 1 {
		t.Errorf("prompts = %d, want 1", approver.prompts)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"default", ModeDefault, false},
		{"accept_edits", ModeAcceptEdits, false},
		{"accept-edits", ModeAcceptEdits, false},
		{"yolo", ModeYolo, false},
		{"berserk", ModeDefault, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
