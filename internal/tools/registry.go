// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"fmt"

	"github.com/jeranaias/hermitclaw/internal/llm"
)

// =============================================================================
// REGISTRY
// =============================================================================

// Registry holds the available tools in registration order and caches
// the definition list handed to the provider.
type Registry struct {
	tools map[string]Tool
	order []string
	defs  []llm.ToolDefinition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Duplicate names are rejected so two tools can
// never answer to the same schema entry.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	r.defs = append(r.defs, llm.ToolDefinition{
		Name:        name,
		Description: t.Description(),
		Parameters:  t.ParametersSchema(),
	})
	return nil
}

// Get returns the named tool, or an ErrUnknownTool error.
func (r *Registry) Get(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, unknownTool(name)
	}
	return t, nil
}

// List returns the tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Definitions returns the cached schema list. The slice is shared;
// callers must not mutate it.
func (r *Registry) Definitions() []llm.ToolDefinition {
	return r.defs
}
