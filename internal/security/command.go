// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import "fmt"

// =============================================================================
// COMMAND TIERS
// =============================================================================

// Tier classifies a shell or version-control command.
type Tier int

const (
	// TierAllowed runs without prompting in every mode (read-only).
	TierAllowed Tier = iota

	// TierApproval runs only after user approval (or yolo mode).
	TierApproval

	// TierBlocked never runs, in any mode, approval or not.
	TierBlocked
)

// String returns the string representation of a tier.
func (t Tier) String() string {
	switch t {
	case TierAllowed:
		return "allowed"
	case TierApproval:
		return "requires-approval"
	case TierBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Classification is the result of classifying a command: its tier plus a
// human-readable reason when the tier is TierBlocked.
type Classification struct {
	Tier   Tier
	Reason string
}

// =============================================================================
// GIT CLASSIFICATION
// =============================================================================

// gitSafeVerbs are read-only git subcommands, allowed without approval.
var gitSafeVerbs = map[string]bool{
	"status": true,
	"diff":   true,
	"log":    true,
	"show":   true,
	"branch": true,
	"stash":  true,
}

// gitApprovalVerbs mutate the repository and require approval.
var gitApprovalVerbs = map[string]bool{
	"add":         true,
	"commit":      true,
	"checkout":    true,
	"switch":      true,
	"pull":        true,
	"fetch":       true,
	"push":        true,
	"merge":       true,
	"tag":         true,
	"cherry-pick": true,
	"remote":      true,
	"reset":       true,
}

// gitBlockedVerbs are destructive regardless of flags.
var gitBlockedVerbs = map[string]string{
	"clean":  "git clean can delete untracked files",
	"rebase": "git rebase rewrites history",
}

// ClassifyGit classifies a git subcommand with its arguments. Destructive
// forms are detected by verb and flag combination, not verb alone:
// reset is approval-tier until --hard appears, push until --force does.
func ClassifyGit(verb string, args []string) Classification {
	if reason, ok := gitBlockedVerbs[verb]; ok {
		return Classification{Tier: TierBlocked, Reason: reason}
	}

	switch verb {
	case "reset":
		for _, a := range args {
			if a == "--hard" {
				return Classification{Tier: TierBlocked, Reason: "git reset --hard discards working-tree changes"}
			}
		}
	case "push":
		for _, a := range args {
			if a == "--force" || a == "-f" || a == "--force-with-lease" {
				return Classification{Tier: TierBlocked, Reason: "git push --force rewrites remote history"}
			}
		}
	}

	if gitSafeVerbs[verb] {
		return Classification{Tier: TierAllowed}
	}
	if gitApprovalVerbs[verb] {
		return Classification{Tier: TierApproval}
	}
	return Classification{
		Tier:   TierBlocked,
		Reason: fmt.Sprintf("git %s is not in the allowed command set", verb),
	}
}

// ClassifyShell classifies an arbitrary shell command. Shell is not
// inspected for sub-command safety the way git is: it always requires
// approval, and the full command text is shown to the approver.
func ClassifyShell(command string) Classification {
	return Classification{Tier: TierApproval}
}

// =============================================================================
// ARGUMENT SPLITTING
// =============================================================================

// SplitArgs splits a flat argument string on whitespace, respecting single
// and double quotes. An unclosed quote consumes the rest of the string.
func SplitArgs(s string) []string {
	var args []string
	var current []rune
	inSingle, inDouble := false, false

	for _, ch := range s {
		switch {
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
		case ch == '"' && !inSingle:
			inDouble = !inDouble
		case (ch == ' ' || ch == '\t') && !inSingle && !inDouble:
			if len(current) > 0 {
				args = append(args, string(current))
				current = current[:0]
			}
		default:
			current = append(current, ch)
		}
	}
	if len(current) > 0 {
		args = append(args, string(current))
	}
	return args
}
