// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package permission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/hermitclaw/internal/security"
	"github.com/jeranaias/hermitclaw/internal/tools"
)

// =============================================================================
// DECISION
// =============================================================================

// Decision is the outcome of the pure decision function.
type Decision int

const (
	Allow Decision = iota
	Ask
	Deny
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Ask:
		return "ask"
	case Deny:
		return "deny"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Decide maps a tool's capabilities, its command tier, the session
// mode, and any remembered approval onto a decision. It is a pure
// function so the policy itself is trivially testable.
func Decide(perms tools.Permissions, tier security.Tier, mode Mode, remembered bool) Decision {
	if perms.ReadOnly() {
		return Allow
	}

	if perms.Subprocess || perms.Network {
		switch tier {
		case security.TierBlocked:
			// Blocked stays blocked in every mode, yolo included.
			return Deny
		case security.TierAllowed:
			return Allow
		default:
			if mode == ModeYolo || remembered {
				return Allow
			}
			return Ask
		}
	}

	// Filesystem writes.
	if mode == ModeAcceptEdits || mode == ModeYolo || remembered {
		return Allow
	}
	return Ask
}

// =============================================================================
// APPROVER
// =============================================================================

// Response is the user's answer to an approval prompt.
type Response int

const (
	// RespondNo denies this call and records nothing.
	RespondNo Response = iota

	// RespondYes allows this call only.
	RespondYes

	// RespondAlways allows this call and remembers the approval for
	// the rest of the session.
	RespondAlways
)

// Approver is the interactive approval surface. It is handed the tool
// name and a human-readable description of the action.
type Approver interface {
	Approve(tool, action string) (Response, error)
}

// ApproverFunc adapts a function to the Approver interface.
type ApproverFunc func(tool, action string) (Response, error)

func (f ApproverFunc) Approve(tool, action string) (Response, error) { return f(tool, action) }

// =============================================================================
// APPROVALS
// =============================================================================

// Approvals is the session-scoped set of remembered "always allow"
// decisions. It lives only in memory and dies with the session.
type Approvals struct {
	granted map[string]bool
}

// NewApprovals returns an empty approval set.
func NewApprovals() *Approvals {
	return &Approvals{granted: make(map[string]bool)}
}

// Remember records an always-allow decision under key.
func (a *Approvals) Remember(key string) { a.granted[key] = true }

// Remembered reports whether key was granted earlier in the session.
func (a *Approvals) Remembered(key string) bool { return a.granted[key] }

// Clear drops every remembered approval.
func (a *Approvals) Clear() { a.granted = make(map[string]bool) }

// =============================================================================
// DENIAL ERROR
// =============================================================================

// DeniedError reports a refused tool call. It is fed back to the model
// as a tool result, never silently swallowed.
type DeniedError struct {
	Tool   string
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("permission denied for %s: %s", e.Tool, e.Reason)
}

// IsDenied reports whether err is a gate refusal.
func IsDenied(err error) bool {
	var d *DeniedError
	return errors.As(err, &d)
}

// =============================================================================
// GATE
// =============================================================================

// Gate owns the session's mode and remembered approvals and makes the
// final call before a tool executes.
type Gate struct {
	mode      Mode
	approvals *Approvals
	approver  Approver
}

// NewGate returns a gate in default mode with no remembered approvals.
func NewGate(approver Approver) *Gate {
	return &Gate{
		mode:      ModeDefault,
		approvals: NewApprovals(),
		approver:  approver,
	}
}

// Mode returns the current operating mode.
func (g *Gate) Mode() Mode { return g.mode }

// SetMode switches the operating mode for the rest of the session.
func (g *Gate) SetMode(m Mode) { g.mode = m }

// Reset drops every remembered approval, e.g. when a new session
// starts.
func (g *Gate) Reset() { g.approvals.Clear() }

// Authorize decides whether the named tool may run with args. A nil
// return means run; a *DeniedError return must be reported to the
// model verbatim. Asking the user happens synchronously in here.
func (g *Gate) Authorize(tool tools.Tool, args map[string]interface{}) error {
	perms := tool.Permissions()
	tier, scope, reason := classify(tool.Name(), perms, args)

	switch Decide(perms, tier, g.mode, g.approvals.Remembered(scope)) {
	case Allow:
		return nil
	case Deny:
		return &DeniedError{Tool: tool.Name(), Reason: reason}
	}

	resp, err := g.approver.Approve(tool.Name(), describe(tool.Name(), args))
	if err != nil {
		return &DeniedError{Tool: tool.Name(), Reason: "approval unavailable: " + err.Error()}
	}
	switch resp {
	case RespondAlways:
		g.approvals.Remember(scope)
		return nil
	case RespondYes:
		return nil
	default:
		return &DeniedError{Tool: tool.Name(), Reason: "the user declined this action"}
	}
}

// classify derives the command tier and the remember-scope key for a
// call. Git is scoped per verb so approving "git:add" does not also
// approve "git:push"; every other tool is scoped by name.
func classify(name string, perms tools.Permissions, args map[string]interface{}) (security.Tier, string, string) {
	if name == "git" {
		verb, _ := args["command"].(string)
		extra, _ := args["args"].(string)
		cls := security.ClassifyGit(verb, security.SplitArgs(extra))
		return cls.Tier, "git:" + verb, cls.Reason
	}
	if perms.Subprocess || perms.Network {
		cls := security.ClassifyShell(fmt.Sprint(args["command"]))
		return cls.Tier, name, cls.Reason
	}
	return security.TierApproval, name, "requires approval"
}

// describe renders the action for the approval prompt. The full
// command is shown for subprocess tools; path-taking tools show the
// target path.
func describe(name string, args map[string]interface{}) string {
	switch name {
	case "shell":
		if cmd, ok := args["command"].(string); ok {
			if dir, ok := args["working_dir"].(string); ok && dir != "" {
				return cmd + " (in " + dir + ")"
			}
			return cmd
		}
	case "git":
		verb, _ := args["command"].(string)
		extra, _ := args["args"].(string)
		return strings.TrimSpace("git " + verb + " " + extra)
	}
	if path, ok := args["path"].(string); ok {
		return name + " " + path
	}
	if url, ok := args["url"].(string); ok {
		return name + " " + url
	}
	if query, ok := args["query"].(string); ok {
		return name + " " + query
	}
	return name
}
