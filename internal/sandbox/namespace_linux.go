// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build linux

package sandbox

import (
	"context"
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// NamespaceExecutor isolates commands with Linux namespaces. Every
// command gets a private mount namespace; commands whose policy denies
// network access additionally get an empty network namespace, so even
// loopback is gone.
type NamespaceExecutor struct{}

// NewNamespace returns the Linux namespace-backed executor.
func NewNamespace() *NamespaceExecutor { return &NamespaceExecutor{} }

// Execute runs command through the system shell inside fresh
// namespaces chosen by the policy.
func (e *NamespaceExecutor) Execute(ctx context.Context, command string, policy Policy) (*Result, error) {
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = policy.FilesystemRoot

	// Unshareflags with CLONE_NEWNS also remounts / as private so
	// mounts made by the command never propagate back to the host.
	attr := &syscall.SysProcAttr{
		Setpgid:      true,
		Unshareflags: unix.CLONE_NEWNS,
	}
	if !policy.NetworkAllowed {
		attr.Cloneflags = unix.CLONE_NEWNET
	}
	cmd.SysProcAttr = attr

	res, err := runWithDeadline(ctx, cmd, policy.timeout())
	if err != nil && errors.Is(err, unix.EPERM) {
		return nil, permissionError(err)
	}
	return res, err
}
