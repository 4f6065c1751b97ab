// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package permission

import "fmt"

// Mode is the session's operating mode. It is session-scoped and
// mutable at runtime.
type Mode int

const (
	// ModeDefault asks before writes and approval-tier commands.
	ModeDefault Mode = iota

	// ModeAcceptEdits auto-approves filesystem writes but still asks
	// for subprocess and network actions.
	ModeAcceptEdits

	// ModeYolo auto-approves everything except blocked commands,
	// which stay denied.
	ModeYolo
)

func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeAcceptEdits:
		return "accept_edits"
	case ModeYolo:
		return "yolo"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a user-supplied mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "default":
		return ModeDefault, nil
	case "accept_edits", "accept-edits":
		return ModeAcceptEdits, nil
	case "yolo":
		return ModeYolo, nil
	default:
		return ModeDefault, fmt.Errorf("unknown permission mode %q (want default, accept_edits, or yolo)", s)
	}
}
