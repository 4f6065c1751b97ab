// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// =============================================================================
// PATH SAFETY ERRORS
// =============================================================================

// PathError reports a path-safety violation. It is a distinct error kind so
// callers can never confuse a refusal with a missing file.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("access to %q is blocked: %s", e.Path, e.Reason)
}

// IsPathError reports whether err is a path-safety violation.
func IsPathError(err error) bool {
	var pe *PathError
	return errors.As(err, &pe)
}

// =============================================================================
// SENSITIVE PATH DENY-LIST
// =============================================================================

// blockedAbsolute are sensitive system files that are never readable or
// writable, independent of the permitted root.
var blockedAbsolute = []string{
	"/etc/shadow",
	"/etc/gshadow",
	"/etc/sudoers",
}

// blockedHomeDirs are credential/config directories under the user's home
// that are never accessible, even when home is inside the permitted root.
var blockedHomeDirs = []string{
	".ssh",
	".gnupg",
	".aws",
	".kube",
	".docker",
	".config/gcloud",
}

// blockedHomeFiles are individual files under home that hold credentials,
// history, or shell startup code.
var blockedHomeFiles = []string{
	".netrc",
	".git-credentials",
	".bash_history",
	".zsh_history",
	".bashrc",
	".bash_profile",
	".zshrc",
	".zprofile",
	".profile",
}

// blockedBasenames are filenames blocked wherever they appear.
var blockedBasenames = []string{
	".env",
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator canonicalizes requested paths and enforces the permitted root
// and the sensitive deny-list.
type Validator struct {
	// root is the canonical permitted root directory.
	root string

	// allowHidden permits dotfiles inside the root. The deny-list still
	// applies regardless.
	allowHidden bool
}

// NewValidator creates a validator rooted at dir. dir must exist; it is
// resolved to its canonical form so later containment checks compare
// like with like.
func NewValidator(dir string) (*Validator, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", dir, err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", dir, err)
	}
	return &Validator{root: canonical}, nil
}

// AllowHidden enables access to dotfiles inside the root.
func (v *Validator) AllowHidden(allow bool) { v.allowHidden = allow }

// Root returns the canonical permitted root.
func (v *Validator) Root() string { return v.root }

// Validate canonicalizes path (home expansion, absolutization against the
// root, symlink and ".." resolution) and returns the canonical path if it
// may be accessed. Relative paths resolve against the permitted root, never
// against the process working directory.
func (v *Validator) Validate(path string) (string, error) {
	if path == "" {
		return "", &PathError{Path: path, Reason: "empty path"}
	}

	expanded := ExpandHome(path)
	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(v.root, expanded)
	}

	canonical, err := canonicalize(expanded)
	if err != nil {
		return "", err
	}

	// Deny-list applies before and independent of the root check: a
	// workspace rooted at $HOME must still not expose ~/.ssh.
	if reason := checkDenyList(canonical); reason != "" {
		return "", &PathError{Path: path, Reason: reason}
	}

	if !within(canonical, v.root) {
		return "", &PathError{Path: path, Reason: "outside the permitted root " + v.root}
	}

	if !v.allowHidden {
		if seg := hiddenSegment(canonical, v.root); seg != "" {
			return "", &PathError{Path: path, Reason: "hidden path segment " + seg}
		}
	}

	return canonical, nil
}

// canonicalize resolves symlinks and ".." fully. A missing leaf is fine
// (write targets may not exist yet): the deepest existing ancestor is
// resolved and the remaining cleaned components re-joined, so a symlinked
// parent can still not smuggle the path outside the root.
func canonicalize(abs string) (string, error) {
	cleaned := filepath.Clean(abs)

	resolved, err := filepath.EvalSymlinks(cleaned)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", &PathError{Path: abs, Reason: "cannot resolve path: " + err.Error()}
	}

	dir, base := filepath.Split(cleaned)
	dir = strings.TrimRight(dir, string(filepath.Separator))
	if dir == "" || dir == cleaned {
		return cleaned, nil
	}
	resolvedDir, err := canonicalize(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, base), nil
}

// checkDenyList returns a non-empty reason if the canonical path hits the
// sensitive deny-list.
func checkDenyList(canonical string) string {
	for _, blocked := range blockedAbsolute {
		if canonical == blocked || strings.HasPrefix(canonical, blocked+string(filepath.Separator)) {
			return "sensitive system file"
		}
	}

	for _, base := range blockedBasenames {
		if filepath.Base(canonical) == base {
			return "environment/credential file"
		}
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	for _, d := range blockedHomeDirs {
		p := filepath.Join(home, filepath.FromSlash(d))
		if canonical == p || strings.HasPrefix(canonical, p+string(filepath.Separator)) {
			return "sensitive configuration directory"
		}
	}
	for _, f := range blockedHomeFiles {
		if canonical == filepath.Join(home, f) {
			return "sensitive file"
		}
	}
	return ""
}

// within reports whether path is root or inside root.
func within(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// hiddenSegment returns the first dot-prefixed component of path below
// root, or "" when there is none.
func hiddenSegment(path, root string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return ""
	}
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
			return seg
		}
	}
	return ""
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil && home != "" {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}
