// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"fmt"
)

// =============================================================================
// PERMISSIONS
// =============================================================================

// Permissions is a tool's static capability classification. The
// permission gate reads it; tools never consult it themselves.
type Permissions struct {
	FilesystemRead  bool
	FilesystemWrite bool
	Subprocess      bool
	Network         bool
}

// ReadOnly reports whether the tool has no side-effecting capability.
func (p Permissions) ReadOnly() bool {
	return !p.FilesystemWrite && !p.Subprocess && !p.Network
}

// =============================================================================
// TOOL INTERFACE
// =============================================================================

// Tool is a single invocable action.
type Tool interface {
	Name() string
	Description() string

	// ParametersSchema returns the JSON-schema object describing the
	// arguments Execute accepts. It must stay in lock-step with what
	// Execute actually reads, since the model only ever sees the
	// schema.
	ParametersSchema() map[string]interface{}

	Permissions() Permissions

	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// =============================================================================
// ARGUMENT HELPERS
// =============================================================================

func stringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", invalidArgs(fmt.Sprintf("missing %q argument", key))
	}
	s, ok := v.(string)
	if !ok {
		return "", invalidArgs(fmt.Sprintf("argument %q must be a string", key))
	}
	return s, nil
}

func optionalString(args map[string]interface{}, key, fallback string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return fallback
}

func optionalBool(args map[string]interface{}, key string, fallback bool) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return fallback
}

// optionalInt accepts float64 as well because JSON numbers decode to
// float64.
func optionalInt(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

// ValidateArgs checks args against a tool's declared schema: every
// required key must be present, and every provided key with a declared
// primitive type must match it. Unknown keys are tolerated; providers
// occasionally add extras.
func ValidateArgs(schema, args map[string]interface{}) error {
	required, _ := schema["required"].([]interface{})
	for _, r := range required {
		key, ok := r.(string)
		if !ok {
			continue
		}
		if _, present := args[key]; !present {
			return invalidArgs(fmt.Sprintf("missing %q argument", key))
		}
	}

	props, _ := schema["properties"].(map[string]interface{})
	for key, raw := range args {
		prop, ok := props[key].(map[string]interface{})
		if !ok {
			continue
		}
		want, _ := prop["type"].(string)
		if want == "" || raw == nil {
			continue
		}
		if !typeMatches(want, raw) {
			return invalidArgs(fmt.Sprintf("argument %q must be a %s", key, want))
		}
	}
	return nil
}

func typeMatches(want string, v interface{}) bool {
	switch want {
	case "string":
		_, ok := v.(string)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "number", "integer":
		switch v.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case "object":
		_, ok := v.(map[string]interface{})
		return ok
	case "array":
		_, ok := v.([]interface{})
		return ok
	}
	return true
}
