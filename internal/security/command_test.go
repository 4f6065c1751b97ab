// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"reflect"
	"testing"
)

func TestClassifyGitSafeVerbs(t *testing.T) {
	for _, verb := range []string{"status", "diff", "log", "show", "branch", "stash"} {
		if c := ClassifyGit(verb, nil); c.Tier != TierAllowed {
			t.Errorf("ClassifyGit(%q) = %v, want allowed", verb, c.Tier)
		}
	}
}

func TestClassifyGitApprovalVerbs(t *testing.T) {
	verbs := []string{
		"add", "commit", "checkout", "switch", "pull", "fetch",
		"push", "merge", "tag", "cherry-pick", "remote", "reset",
	}
	for _, verb := range verbs {
		if c := ClassifyGit(verb, nil); c.Tier != TierApproval {
			t.Errorf("ClassifyGit(%q) = %v, want requires-approval", verb, c.Tier)
		}
	}
}

func TestClassifyGitBlockedByFlag(t *testing.T) {
	tests := []struct {
		verb string
		args []string
	}{
		{"reset", []string{"--hard"}},
		{"reset", []string{"--quiet", "--hard", "HEAD~1"}},
		{"push", []string{"--force"}},
		{"push", []string{"-f", "origin", "main"}},
		{"push", []string{"--force-with-lease"}},
	}
	for _, tt := range tests {
		c := ClassifyGit(tt.verb, tt.args)
		if c.Tier != TierBlocked {
			t.Errorf("ClassifyGit(%q, %v) = %v, want blocked", tt.verb, tt.args, c.Tier)
		}
		if c.Reason == "" {
			t.Errorf("ClassifyGit(%q, %v) blocked with empty reason", tt.verb, tt.args)
		}
	}
}

func TestClassifyGitBlockedVerbs(t *testing.T) {
	for _, verb := range []string{"clean", "rebase"} {
		if c := ClassifyGit(verb, nil); c.Tier != TierBlocked {
			t.Errorf("ClassifyGit(%q) = %v, want blocked", verb, c.Tier)
		}
	}
	// Flagless and flagged rebase are equally blocked.
	if c := ClassifyGit("rebase", []string{"-i", "HEAD~3"}); c.Tier != TierBlocked {
		t.Errorf("rebase -i = %v, want blocked", c.Tier)
	}
}

func TestClassifyGitSoftResetNotBlocked(t *testing.T) {
	if c := ClassifyGit("reset", []string{"--soft", "HEAD"}); c.Tier != TierApproval {
		t.Errorf("reset --soft = %v, want requires-approval", c.Tier)
	}
}

func TestClassifyGitUnknownVerb(t *testing.T) {
	for _, verb := range []string{"bisect", "filter-branch", ""} {
		if c := ClassifyGit(verb, nil); c.Tier != TierBlocked {
			t.Errorf("ClassifyGit(%q) = %v, want blocked", verb, c.Tier)
		}
	}
}

func TestClassifyShellAlwaysApproval(t *testing.T) {
	for _, cmd := range []string{"ls", "rm -rf /", "echo hello", ""} {
		if c := ClassifyShell(cmd); c.Tier != TierApproval {
			t.Errorf("ClassifyShell(%q) = %v, want requires-approval", cmd, c.Tier)
		}
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"--oneline -5", []string{"--oneline", "-5"}},
		{"-m 'initial commit'", []string{"-m", "initial commit"}},
		{`-m "initial commit"`, []string{"-m", "initial commit"}},
		{`-m "hello 'world'"`, []string{"-m", "hello 'world'"}},
		{"  --flag   value  ", []string{"--flag", "value"}},
		{"-m\t'message'", []string{"-m", "message"}},
		{"-m 'unclosed message", []string{"-m", "unclosed message"}},
		{"", nil},
		{"   \t  ", nil},
	}
	for _, tt := range tests {
		if got := SplitArgs(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitArgs(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
