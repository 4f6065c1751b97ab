// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeRequest
	ErrTypeParse
)

// ClientError represents an error from a provider client. The Message is
// remediation-oriented: it tells the user what to do, not just what broke.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches on error type so callers can test against the sentinels below.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// Sentinel errors for easy checking with errors.Is.
var (
	ErrConnection    = &ClientError{Type: ErrTypeConnection, Message: "cannot connect to provider"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
)

// connectionError builds a ErrTypeConnection error with a remediation hint.
func connectionError(msg string, cause error) *ClientError {
	return &ClientError{Type: ErrTypeConnection, Message: msg, Cause: cause}
}

func requestError(msg string, cause error) *ClientError {
	return &ClientError{Type: ErrTypeRequest, Message: msg, Cause: cause}
}

func parseError(msg string, cause error) *ClientError {
	return &ClientError{Type: ErrTypeParse, Message: msg, Cause: cause}
}

func modelNotFoundError(msg string) *ClientError {
	return &ClientError{Type: ErrTypeModelNotFound, Message: msg}
}

// IsModelNotFound reports whether err is a model-not-found client error.
func IsModelNotFound(err error) bool {
	ce, ok := err.(*ClientError)
	return ok && ce.Type == ErrTypeModelNotFound
}

// IsConnection reports whether err is a connection failure.
func IsConnection(err error) bool {
	ce, ok := err.(*ClientError)
	return ok && ce.Type == ErrTypeConnection
}
