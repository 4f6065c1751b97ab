// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sandbox executes shell commands under resource and isolation
// constraints. The NamespaceExecutor (Linux only) runs commands inside
// fresh mount and network namespaces so that a misbehaving command
// cannot reach the network when the policy forbids it. The
// PassthroughExecutor applies the same timeout and process-group
// semantics without any isolation, for use when sandboxing is disabled
// or unavailable.
//
// Both executors kill the entire process group on timeout and return
// whatever output the command produced before it was killed.
package sandbox
