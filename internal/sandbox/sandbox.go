// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// POLICY
// =============================================================================

// DefaultTimeout bounds a command's wall-clock runtime when the policy
// does not set one.
const DefaultTimeout = 30 * time.Second

// Policy describes the constraints a command runs under.
type Policy struct {
	// NetworkAllowed leaves the command in the host network namespace.
	// When false the command runs with no network access at all.
	NetworkAllowed bool

	// FilesystemRoot is the working directory the command starts in.
	FilesystemRoot string

	// Timeout is the maximum wall-clock runtime. Zero means
	// DefaultTimeout.
	Timeout time.Duration
}

// DefaultPolicy denies network access and uses the default timeout.
func DefaultPolicy(root string) Policy {
	return Policy{
		NetworkAllowed: false,
		FilesystemRoot: root,
		Timeout:        DefaultTimeout,
	}
}

func (p Policy) timeout() time.Duration {
	if p.Timeout <= 0 {
		return DefaultTimeout
	}
	return p.Timeout
}

// =============================================================================
// RESULT
// =============================================================================

// Result holds the output of a completed (or killed) command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// =============================================================================
// EXECUTOR
// =============================================================================

// Executor runs a shell command under a policy. Implementations must
// return partial output alongside a timeout error when the command is
// killed for overrunning its deadline.
type Executor interface {
	Execute(ctx context.Context, command string, policy Policy) (*Result, error)
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorKind classifies sandbox failures.
type ErrorKind int

const (
	// ErrKindExecutionFailed means the command could not be started or
	// the sandbox could not be set up.
	ErrKindExecutionFailed ErrorKind = iota

	// ErrKindTimeout means the command overran its deadline and was
	// killed. The accompanying Result carries partial output.
	ErrKindTimeout

	// ErrKindPermissionDenied means the kernel refused to create the
	// requested namespaces for this user.
	ErrKindPermissionDenied

	// ErrKindUnsupported means namespace isolation is not available on
	// this platform.
	ErrKindUnsupported
)

// Sentinel errors for errors.Is checks.
var (
	ErrTimeout     = errors.New("command timed out")
	ErrUnsupported = errors.New("sandboxing not supported on this platform")
)

// Error is a sandbox failure with a kind and optional cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sandbox: %s: %v", e.Message, e.Cause)
	}
	return "sandbox: " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is maps error kinds onto the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == ErrKindTimeout
	case ErrUnsupported:
		return e.Kind == ErrKindUnsupported
	}
	return false
}

func timeoutError(d time.Duration) *Error {
	return &Error{
		Kind:    ErrKindTimeout,
		Message: fmt.Sprintf("command exceeded %s deadline", d),
		Cause:   ErrTimeout,
	}
}

func executionError(msg string, cause error) *Error {
	return &Error{Kind: ErrKindExecutionFailed, Message: msg, Cause: cause}
}

func permissionError(cause error) *Error {
	return &Error{
		Kind:    ErrKindPermissionDenied,
		Message: "kernel denied namespace creation (try running with CAP_SYS_ADMIN or disable the sandbox)",
		Cause:   cause,
	}
}

// IsTimeout reports whether err represents a command killed for
// overrunning its deadline.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }
