// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import "errors"

// =============================================================================
// ERROR KINDS
// =============================================================================

// ErrorKind classifies tool failures. An unknown tool is a distinct
// kind from a denied one so the loop can report them differently.
type ErrorKind int

const (
	KindInvalidArguments ErrorKind = iota
	KindExecutionFailed
	KindPermissionDenied
	KindUnknownTool
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidArguments:
		return "Invalid arguments"
	case KindExecutionFailed:
		return "Execution failed"
	case KindPermissionDenied:
		return "Permission denied"
	case KindUnknownTool:
		return "Unknown tool"
	default:
		return "Tool error"
	}
}

// Sentinels for errors.Is checks.
var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrPermissionDenied = errors.New("permission denied")
)

// Error is a tool failure with a kind, a message for the model, and an
// optional cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is maps kinds onto the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnknownTool:
		return e.Kind == KindUnknownTool
	case ErrPermissionDenied:
		return e.Kind == KindPermissionDenied
	}
	return false
}

func invalidArgs(msg string) *Error {
	return &Error{Kind: KindInvalidArguments, Message: msg}
}

func executionFailed(msg string, cause error) *Error {
	return &Error{Kind: KindExecutionFailed, Message: msg, Cause: cause}
}

func permissionDenied(msg string, cause error) *Error {
	return &Error{Kind: KindPermissionDenied, Message: msg, Cause: cause}
}

func unknownTool(name string) *Error {
	return &Error{Kind: KindUnknownTool, Message: name}
}
