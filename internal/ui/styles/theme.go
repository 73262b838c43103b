// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the aurachat TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// COLORS
// =============================================================================

var (
	colorAccent    = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D79F6"}
	colorUser      = lipgloss.AdaptiveColor{Light: "#005F87", Dark: "#56B6C2"}
	colorAssistant = lipgloss.AdaptiveColor{Light: "#3A3A3A", Dark: "#D4D4D4"}
	colorError     = lipgloss.AdaptiveColor{Light: "#B00020", Dark: "#E06C75"}
	colorWarning   = lipgloss.AdaptiveColor{Light: "#8A6D00", Dark: "#E5C07B"}
	colorMuted     = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#6C7086"}
)

// =============================================================================
// THEME
// =============================================================================

// Theme holds the styled components for the application, adjusted to the
// terminal's detected color capability.
type Theme struct {
	ColorProfile termenv.Profile
	IsDark       bool

	// Header and status line
	Header    lipgloss.Style
	Title     lipgloss.Style
	StatusBar lipgloss.Style

	// Message rendering
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserText       lipgloss.Style
	AssistantText  lipgloss.Style
	FailedText     lipgloss.Style
	RetryHint      lipgloss.Style

	// Notices
	OfflineNotice lipgloss.Style
	Advisory      lipgloss.Style

	// Input area
	InputPrompt lipgloss.Style
	Spinner     lipgloss.Style

	// Conversation list
	ListTitle   lipgloss.Style
	ListPreview lipgloss.Style

	// Help line
	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style
}

// NewTheme detects terminal capabilities and builds the theme.
func NewTheme() *Theme {
	profile := termenv.ColorProfile()
	isDark := termenv.HasDarkBackground()

	return &Theme{
		ColorProfile: profile,
		IsDark:       isDark,

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			PaddingBottom(1),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent),
		StatusBar: lipgloss.NewStyle().
			Foreground(colorMuted),

		UserLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorUser),
		AssistantLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent),
		UserText: lipgloss.NewStyle().
			Foreground(colorUser),
		AssistantText: lipgloss.NewStyle().
			Foreground(colorAssistant),
		FailedText: lipgloss.NewStyle().
			Foreground(colorError),
		RetryHint: lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true),

		OfflineNotice: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWarning),
		Advisory: lipgloss.NewStyle().
			Foreground(colorWarning),

		InputPrompt: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent),
		Spinner: lipgloss.NewStyle().
			Foreground(colorAccent),

		ListTitle: lipgloss.NewStyle().
			Bold(true),
		ListPreview: lipgloss.NewStyle().
			Foreground(colorMuted),

		HelpKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent),
		HelpDesc: lipgloss.NewStyle().
			Foreground(colorMuted),
	}
}
