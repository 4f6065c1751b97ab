// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Centralized styling for the hermitclaw CLI.
//
// Colors are adaptive (light/dark terminal) and lipgloss disables
// them automatically for non-TTY output.

package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// PALETTE
// =============================================================================

var (
	// Cyan - prompts, user highlights
	colorCyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

	// Purple - assistant output accents, banner
	colorPurple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

	// Emerald - success, allowed actions
	colorEmerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

	// Amber - warnings, approval prompts
	colorAmber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

	// Rose - errors, denials
	colorRose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

	// Muted gray - secondary text
	colorMuted = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
)

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(colorPurple).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	commandStyle = lipgloss.NewStyle().
			Foreground(colorEmerald)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorAmber)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRose).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	toolStyle = lipgloss.NewStyle().
			Foreground(colorAmber).
			Bold(true)
)
