// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sandbox

import "context"

// PassthroughExecutor runs commands with the policy's timeout and
// working directory but no isolation. Used when sandboxing is turned
// off or the platform cannot provide namespaces.
type PassthroughExecutor struct{}

// NewPassthrough returns an executor with no isolation.
func NewPassthrough() *PassthroughExecutor { return &PassthroughExecutor{} }

// Execute runs command through the system shell. The NetworkAllowed
// field of the policy is ignored; passthrough commands always see the
// host network.
func (e *PassthroughExecutor) Execute(ctx context.Context, command string, policy Policy) (*Result, error) {
	cmd := newShellCmd(command, policy.FilesystemRoot)
	return runWithDeadline(ctx, cmd, policy.timeout())
}
