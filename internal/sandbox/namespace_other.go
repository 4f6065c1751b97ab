// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !linux

package sandbox

import "context"

// NamespaceExecutor is unavailable off Linux. Execute fails fast so
// callers can fall back to PassthroughExecutor or refuse to run.
type NamespaceExecutor struct{}

// NewNamespace returns the stub executor for non-Linux platforms.
func NewNamespace() *NamespaceExecutor { return &NamespaceExecutor{} }

// Execute always fails with ErrUnsupported.
func (e *NamespaceExecutor) Execute(ctx context.Context, command string, policy Policy) (*Result, error) {
	return nil, &Error{
		Kind:    ErrKindUnsupported,
		Message: "namespace isolation requires Linux",
		Cause:   ErrUnsupported,
	}
}
