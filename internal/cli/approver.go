// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// approver.go - Interactive approval prompt for gated tool actions.

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/hermitclaw/internal/permission"
)

// TerminalApprover asks the user to approve tool actions on stdin.
// When stdin is not a terminal the answer is always no, so piped
// invocations can never be tricked into approving something.
type TerminalApprover struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// NewTerminalApprover creates an approver reading stdin and writing
// the prompt to stderr, keeping stdout clean for responses.
func NewTerminalApprover() *TerminalApprover {
	return &TerminalApprover{
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stderr,
		interactive: IsTTY(),
	}
}

// Approve prompts for a single action. Valid answers are y (once),
// n (deny), and a (allow for the rest of the session). Anything else
// reprompts.
func (t *TerminalApprover) Approve(tool, action string) (permission.Response, error) {
	if !t.interactive {
		fmt.Fprintf(t.out, "%s %s wants to run: %s (denied: no terminal to ask)\n",
			errorStyle.Render("[Denied]"), tool, action)
		return permission.RespondNo, nil
	}

	fmt.Fprintf(t.out, "\n%s %s wants to run:\n  %s\n",
		toolStyle.Render("[Approval]"), tool, commandStyle.Render(action))

	for {
		fmt.Fprintf(t.out, "%s ", warningStyle.Render("Allow? [y]es / [n]o / [a]lways:"))
		line, err := t.in.ReadString('\n')
		if err != nil {
			// EOF mid-prompt means no answer, which means no.
			return permission.RespondNo, nil
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return permission.RespondYes, nil
		case "n", "no", "":
			return permission.RespondNo, nil
		case "a", "always":
			return permission.RespondAlways, nil
		default:
			fmt.Fprintln(t.out, infoStyle.Render("Please answer y, n, or a."))
		}
	}
}
