// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent drives the tool-calling conversation loop. One turn
// appends the user's message, then alternates between asking the
// provider and executing the tool calls it requests, until the
// provider answers with plain text or the iteration bound is hit.
//
// The agent is the single owner of session state: the in-memory
// message list, the permission gate, and the active conversation id.
// It runs one turn at a time on one goroutine; nothing else mutates
// its state.
package agent
