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

const (
	maxGrepResults  = 100
	maxGrepFileSize = 1 << 20 // 1MB
	binaryProbeSize = 512
)

// Directories nobody wants search hits from.
var grepSkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"target":       true,
	"vendor":       true,
}

// GrepTool searches files recursively for a literal substring.
type GrepTool struct {
	Paths *security.Validator
}

func (t *GrepTool) Name() string { return "grep" }

func (t *GrepTool) Description() string {
	return "Search for a pattern in files recursively"
}

func (t *GrepTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "The text pattern to search for",
			},
			"path": map[string]interface{}{
				"type":        "string",
				"description": "The directory or file to search in (default: current directory)",
			},
			"case_insensitive": map[string]interface{}{
				"type":        "boolean",
				"description": "Whether to ignore case (default: false)",
			},
		},
		"required": []interface{}{"pattern"},
	}
}

func (t *GrepTool) Permissions() Permissions {
	return Permissions{FilesystemRead: true}
}

func (t *GrepTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	pattern, err := stringArg(args, "pattern")
	if err != nil {
		return "", err
	}
	if pattern == "" {
		return "", invalidArgs("pattern must not be empty")
	}
	path := optionalString(args, "path", ".")
	insensitive := optionalBool(args, "case_insensitive", false)

	canonical, err := validate(t.Paths, path)
	if err != nil {
		return "", err
	}

	needle := pattern
	if insensitive {
		needle = strings.ToLower(needle)
	}

	var results []string
	if err := searchPath(canonical, needle, insensitive, &results); err != nil {
		return "", err
	}

	if len(results) == 0 {
		return "No matches found.", nil
	}
	out := strings.Join(results, "\n")
	if len(results) >= maxGrepResults {
		out += fmt.Sprintf("\n\n(Results truncated at %d matches)", maxGrepResults)
	}
	return out, nil
}

func searchPath(path, needle string, insensitive bool, results *[]string) error {
	if len(*results) >= maxGrepResults {
		return nil
	}

	info, err := os.Lstat(path)
	if err != nil {
		return executionFailed(fmt.Sprintf("failed to stat %q", path), err)
	}

	if info.Mode().IsRegular() {
		searchFile(path, needle, insensitive, results)
		return nil
	}
	if !info.IsDir() {
		// Symlinks are skipped to keep recursion cycle-free.
		return nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return executionFailed(fmt.Sprintf("failed to read %q", path), err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if len(*results) >= maxGrepResults {
			return nil
		}
		if entry.IsDir() && grepSkipDirs[entry.Name()] {
			continue
		}
		if err := searchPath(filepath.Join(path, entry.Name()), needle, insensitive, results); err != nil {
			return err
		}
	}
	return nil
}

func searchFile(path, needle string, insensitive bool, results *[]string) {
	info, err := os.Stat(path)
	if err != nil || info.Size() > maxGrepFileSize {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if isBinary(data) {
		return
	}

	for i, line := range strings.Split(string(data), "\n") {
		if len(*results) >= maxGrepResults {
			return
		}
		haystack := line
		if insensitive {
			haystack = strings.ToLower(haystack)
		}
		if strings.Contains(haystack, needle) {
			*results = append(*results, fmt.Sprintf("%s:%d: %s", path, i+1, strings.TrimRight(line, "\r")))
		}
	}
}

func isBinary(data []byte) bool {
	probe := data
	if len(probe) > binaryProbeSize {
		probe = probe[:binaryProbeSize]
	}
	for _, b := range probe {
		if b == 0 {
			return true
		}
	}
	return false
}
