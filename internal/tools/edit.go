// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/hermitclaw/internal/security"
)

// contextLines is how many lines around a change are echoed back so
// the model can see the edit landed where it expected.
const contextLines = 3

// EditFileTool replaces one exact text match in a file. The match must
// be unique; an ambiguous match is refused so the model tightens its
// anchor instead of editing the wrong spot.
type EditFileTool struct {
	Paths *security.Validator
}

func (t *EditFileTool) Name() string { return "edit_file" }

func (t *EditFileTool) Description() string {
	return "Edit a file by replacing an exact text match with new text"
}

func (t *EditFileTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "The file path to edit",
			},
			"old_text": map[string]interface{}{
				"type":        "string",
				"description": "The exact text to find and replace (must appear exactly once)",
			},
			"new_text": map[string]interface{}{
				"type":        "string",
				"description": "The replacement text",
			},
		},
		"required": []interface{}{"path", "old_text", "new_text"},
	}
}

func (t *EditFileTool) Permissions() Permissions {
	return Permissions{FilesystemRead: true, FilesystemWrite: true}
}

func (t *EditFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return "", err
	}
	oldText, err := stringArg(args, "old_text")
	if err != nil {
		return "", err
	}
	newText, err := stringArg(args, "new_text")
	if err != nil {
		return "", err
	}
	if oldText == "" {
		return "", invalidArgs("old_text must not be empty")
	}

	canonical, err := validate(t.Paths, path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(canonical)
	if err != nil {
		return "", executionFailed(fmt.Sprintf("failed to read %q", path), err)
	}
	content := string(data)

	switch n := strings.Count(content, oldText); n {
	case 0:
		return "", executionFailed("old_text not found in file", nil)
	case 1:
		// fall through
	default:
		return "", executionFailed(fmt.Sprintf("old_text appears %d times; provide more context to make it unique", n), nil)
	}

	updated := strings.Replace(content, oldText, newText, 1)
	if err := os.WriteFile(canonical, []byte(updated), 0o644); err != nil {
		return "", executionFailed(fmt.Sprintf("failed to write %q", path), err)
	}

	pos := strings.Index(updated, newText)
	if pos < 0 {
		pos = 0
	}
	return fmt.Sprintf("Successfully edited %q. Context around change:\n%s",
		path, excerpt(updated, pos, len(newText))), nil
}

// excerpt returns a few lines on either side of the changed span.
func excerpt(content string, pos, length int) string {
	start := pos
	for i := 0; i < contextLines && start > 0; i++ {
		nl := strings.LastIndexByte(content[:start], '\n')
		if nl < 0 {
			start = 0
			break
		}
		start = nl
	}
	if start > 0 {
		start++ // skip the newline itself
	}

	end := pos + length
	if end > len(content) {
		end = len(content)
	}
	for i := 0; i < contextLines && end < len(content); i++ {
		nl := strings.IndexByte(content[end:], '\n')
		if nl < 0 {
			end = len(content)
			break
		}
		end += nl + 1
	}
	return strings.TrimRight(content[start:end], "\n")
}
