// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/hermitclaw/internal/security"
)

func newValidator(t *testing.T) (*security.Validator, string) {
	t.Helper()
	dir := t.TempDir()
	v, err := security.NewValidator(dir)
	require.NoError(t, err)
	return v, dir
}

func TestReadFile(t *testing.T) {
	v, dir := newValidator(t)
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello\n"), 0o644))

	tool := &ReadFileTool{Paths: v}
	out, err := tool.Execute(context.Background(), map[string]interface{}{"path": path})
	require.NoError(t, err)
	require.Equal(t, "hello\n", out)
}

func TestReadFileMissing(t *testing.T) {
	v, dir := newValidator(t)
	tool := &ReadFileTool{Paths: v}
	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"path": filepath.Join(dir, "absent.txt"),
	})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrPermissionDenied), "missing file is not a denial")
}

func TestReadFileOutsideRootDenied(t *testing.T) {
	v, _ := newValidator(t)
	tool := &ReadFileTool{Paths: v}
	_, err := tool.Execute(context.Background(), map[string]interface{}{"path": "/etc/shadow"})
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestWriteFileCreatesParents(t *testing.T) {
	v, dir := newValidator(t)
	tool := &WriteFileTool{Paths: v}
	target := filepath.Join(dir, "nested", "deep", "out.txt")

	out, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":    target,
		"content": "payload",
	})
	require.NoError(t, err)
	require.Contains(t, out, "Successfully wrote")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
}

func TestListDir(t *testing.T) {
	v, dir := newValidator(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "inner.txt"), []byte("i"), 0o644))

	tool := &ListDirTool{Paths: v}

	out, err := tool.Execute(context.Background(), map[string]interface{}{"path": dir})
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "a.txt")
	require.Contains(t, lines[2], "sub"+string(os.PathSeparator))
	require.NotContains(t, out, "inner.txt")

	out, err = tool.Execute(context.Background(), map[string]interface{}{
		"path":      dir,
		"recursive": true,
	})
	require.NoError(t, err)
	require.Contains(t, out, "inner.txt")
}

func TestEditFileUniqueMatch(t *testing.T) {
	v, dir := newValidator(t)
	path := filepath.Join(dir, "code.go")
	require.NoError(t, os.WriteFile(path, []byte("alpha\nbeta\ngamma\n"), 0o644))

	tool := &EditFileTool{Paths: v}
	out, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":     path,
		"old_text": "beta",
		"new_text": "delta",
	})
	require.NoError(t, err)
	require.Contains(t, out, "Successfully edited")
	require.Contains(t, out, "delta")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "alpha\ndelta\ngamma\n", string(data))
}

func TestEditFileRejectsAmbiguousMatch(t *testing.T) {
	v, dir := newValidator(t)
	path := filepath.Join(dir, "dup.txt")
	require.NoError(t, os.WriteFile(path, []byte("same\nsame\n"), 0o644))

	tool := &EditFileTool{Paths: v}
	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":     path,
		"old_text": "same",
		"new_text": "different",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "2 times")

	// File untouched on refusal.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "same\nsame\n", string(data))
}

func TestEditFileNotFoundMatch(t *testing.T) {
	v, dir := newValidator(t)
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("content\n"), 0o644))

	tool := &EditFileTool{Paths: v}
	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":     path,
		"old_text": "missing",
		"new_text": "x",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestGrepFindsMatches(t *testing.T) {
	v, dir := newValidator(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("needle here\nnothing\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("another needle\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "c.txt"), []byte("needle in git\n"), 0o644))

	tool := &GrepTool{Paths: v}
	out, err := tool.Execute(context.Background(), map[string]interface{}{
		"pattern": "needle",
		"path":    dir,
	})
	require.NoError(t, err)
	require.Contains(t, out, "a.txt:1")
	require.Contains(t, out, "b.txt:1")
	require.NotContains(t, out, ".git")
}

func TestGrepCaseInsensitive(t *testing.T) {
	v, dir := newValidator(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("NEEDLE\n"), 0o644))

	tool := &GrepTool{Paths: v}

	out, err := tool.Execute(context.Background(), map[string]interface{}{
		"pattern": "needle",
		"path":    dir,
	})
	require.NoError(t, err)
	require.Equal(t, "No matches found.", out)

	out, err = tool.Execute(context.Background(), map[string]interface{}{
		"pattern":          "needle",
		"path":             dir,
		"case_insensitive": true,
	})
	require.NoError(t, err)
	require.Contains(t, out, "a.txt:1")
}

func TestGrepSkipsBinaryFiles(t *testing.T) {
	v, dir := newValidator(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bin.dat"), []byte("needle\x00more"), 0o644))

	tool := &GrepTool{Paths: v}
	out, err := tool.Execute(context.Background(), map[string]interface{}{
		"pattern": "needle",
		"path":    dir,
	})
	require.NoError(t, err)
	require.Equal(t, "No matches found.", out)
}

func TestGrepTruncatesAtCap(t *testing.T) {
	v, dir := newValidator(t)
	var b strings.Builder
	for i := 0; i < maxGrepResults+50; i++ {
		b.WriteString("needle line\n")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.txt"), []byte(b.String()), 0o644))

	tool := &GrepTool{Paths: v}
	out, err := tool.Execute(context.Background(), map[string]interface{}{
		"pattern": "needle",
		"path":    dir,
	})
	require.NoError(t, err)
	require.Contains(t, out, "truncated at 100 matches")
	require.Len(t, strings.Split(strings.SplitN(out, "\n\n", 2)[0], "\n"), maxGrepResults)
}
