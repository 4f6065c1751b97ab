// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the interactive hermitclaw terminal surface.
//
// It wires the agent loop to a readline-style REPL with input history,
// renders final answers as markdown when stdout is a terminal, and
// prompts the user for tool approvals. Slash commands control the
// session (/mode, /model, /sandbox, /compact, /resume and friends).
package cli
