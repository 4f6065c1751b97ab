// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package permission decides whether a requested tool call may run.
// The decision combines the tool's static capability classification,
// the command safety tier for subprocess tools, the session's
// operating mode, and approvals the user chose to remember.
//
// Read-only tools never block. Blocked commands are denied in every
// mode, including yolo. Everything in between either runs or asks the
// user through the Approver.
package permission
