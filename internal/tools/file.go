// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jeranaias/hermitclaw/internal/security"
)

// validate resolves path through the validator and translates a
// safety refusal into a permission-denied tool error, never a
// not-found one.
func validate(v *security.Validator, path string) (string, error) {
	canonical, err := v.Validate(path)
	if err != nil {
		if security.IsPathError(err) {
			return "", permissionDenied(fmt.Sprintf("access to %q is blocked: %v", path, err), err)
		}
		return "", executionFailed(fmt.Sprintf("resolving %q", path), err)
	}
	return canonical, nil
}

// =============================================================================
// READ FILE
// =============================================================================

// ReadFileTool reads a file inside the validated root.
type ReadFileTool struct {
	Paths *security.Validator
}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Read the contents of a file at the given path"
}

func (t *ReadFileTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "The file path to read",
			},
		},
		"required": []interface{}{"path"},
	}
}

func (t *ReadFileTool) Permissions() Permissions {
	return Permissions{FilesystemRead: true}
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return "", err
	}
	canonical, err := validate(t.Paths, path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(canonical)
	if err != nil {
		return "", executionFailed(fmt.Sprintf("failed to read %q", path), err)
	}
	return string(data), nil
}

// =============================================================================
// WRITE FILE
// =============================================================================

// WriteFileTool creates or overwrites a file inside the validated root.
type WriteFileTool struct {
	Paths *security.Validator
}

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Description() string {
	return "Write content to a file at the given path, creating it if needed"
}

func (t *WriteFileTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "The file path to write to",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "The content to write",
			},
		},
		"required": []interface{}{"path", "content"},
	}
}

func (t *WriteFileTool) Permissions() Permissions {
	return Permissions{FilesystemRead: true, FilesystemWrite: true}
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return "", err
	}
	content, err := stringArg(args, "content")
	if err != nil {
		return "", err
	}
	canonical, err := validate(t.Paths, path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(canonical), 0o755); err != nil {
		return "", executionFailed(fmt.Sprintf("creating parent directory for %q", path), err)
	}
	if err := os.WriteFile(canonical, []byte(content), 0o644); err != nil {
		return "", executionFailed(fmt.Sprintf("failed to write %q", path), err)
	}
	return fmt.Sprintf("Successfully wrote to %q", path), nil
}

// =============================================================================
// LIST DIR
// =============================================================================

// ListDirTool lists a directory, optionally recursively. Directories
// get a trailing slash so the model can tell them apart from files.
type ListDirTool struct {
	Paths *security.Validator
}

func (t *ListDirTool) Name() string { return "list_dir" }

func (t *ListDirTool) Description() string {
	return "List the contents of a directory"
}

func (t *ListDirTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "The directory path to list",
			},
			"recursive": map[string]interface{}{
				"type":        "boolean",
				"description": "Whether to list recursively (default: false)",
			},
		},
		"required": []interface{}{"path"},
	}
}

func (t *ListDirTool) Permissions() Permissions {
	return Permissions{FilesystemRead: true}
}

func (t *ListDirTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return "", err
	}
	recursive := optionalBool(args, "recursive", false)

	canonical, err := validate(t.Paths, path)
	if err != nil {
		return "", err
	}

	var entries []string
	if err := listEntries(canonical, recursive, &entries); err != nil {
		return "", err
	}
	return strings.Join(entries, "\n"), nil
}

func listEntries(dir string, recursive bool, out *[]string) error {
	items, err := os.ReadDir(dir)
	if err != nil {
		return executionFailed(fmt.Sprintf("failed to read %q", dir), err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name() < items[j].Name() })

	for _, item := range items {
		full := filepath.Join(dir, item.Name())
		if item.IsDir() {
			*out = append(*out, full+string(os.PathSeparator))
			if recursive {
				if err := listEntries(full, true, out); err != nil {
					return err
				}
			}
		} else {
			*out = append(*out, full)
		}
	}
	return nil
}
