// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"

	"github.com/aurachat/aurachat/internal/ai"
	"github.com/aurachat/aurachat/internal/store"
)

// =============================================================================
// RENDERING
// =============================================================================

// rebuildRenderer recreates the markdown renderer for the current width.
func (m *Model) rebuildRenderer() {
	wrap := m.viewport.Width - 2
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		m.renderer = nil
		return
	}
	m.renderer = r
}

// refreshViewport re-renders the transcript and keeps the view pinned to the
// bottom so streaming output stays visible.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript() string {
	if len(m.messages) == 0 {
		return m.theme.StatusBar.Render("No messages yet. Say hello.")
	}
	var sb strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(m.renderMessage(msg))
	}
	return sb.String()
}

func (m *Model) renderMessage(msg store.Message) string {
	switch {
	case msg.Role == ai.RoleUser:
		return m.theme.UserLabel.Render("You") + "\n" +
			m.theme.UserText.Render(msg.Content) + "\n"

	case msg.DeliveryState == store.StateFailed:
		body := m.theme.FailedText.Render(msg.Content)
		hint := m.theme.RetryHint.Render("press ctrl+r to retry")
		return m.theme.AssistantLabel.Render("Assistant") + "\n" +
			body + "\n" + hint + "\n"

	default:
		return m.theme.AssistantLabel.Render("Assistant") + "\n" +
			m.renderMarkdown(msg.Content) + "\n"
	}
}

// renderMarkdown renders assistant output as markdown, falling back to the
// raw text when the renderer is unavailable.
func (m *Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return m.theme.AssistantText.Render(content)
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return m.theme.AssistantText.Render(content)
	}
	return strings.TrimRight(out, "\n")
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the full chat screen.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var sb strings.Builder

	title := m.title
	if title == "" {
		title = "Conversation"
	}
	sb.WriteString(m.theme.Header.Render(truncateLine(title, m.width)))
	sb.WriteByte('\n')

	sb.WriteString(m.viewport.View())
	sb.WriteByte('\n')

	sb.WriteString(m.statusLine())
	sb.WriteByte('\n')

	if m.streaming {
		sb.WriteString(m.spinner.View() + m.theme.StatusBar.Render(" waiting for reply..."))
	} else {
		sb.WriteString(m.theme.InputPrompt.Render("> ") + m.input.View())
	}
	sb.WriteByte('\n')
	sb.WriteString(m.helpLine())

	return sb.String()
}

func (m *Model) statusLine() string {
	switch {
	case m.loadErr != nil:
		return m.theme.FailedText.Render(fmt.Sprintf("Could not load conversation: %v", m.loadErr))
	case !m.online:
		return m.theme.OfflineNotice.Render("Offline. Replies will fail until the connection returns.")
	case m.advisory != "":
		return m.theme.Advisory.Render(truncateLine(m.advisory, m.width))
	case m.modelName != "":
		return m.theme.StatusBar.Render(truncateLine(m.modelName, m.width))
	default:
		return ""
	}
}

func (m *Model) helpLine() string {
	parts := []string{
		m.theme.HelpKey.Render("enter") + m.theme.HelpDesc.Render(" send"),
		m.theme.HelpKey.Render("ctrl+r") + m.theme.HelpDesc.Render(" retry"),
		m.theme.HelpKey.Render("esc") + m.theme.HelpDesc.Render(" back"),
		m.theme.HelpKey.Render("ctrl+c") + m.theme.HelpDesc.Render(" quit"),
	}
	return strings.Join(parts, m.theme.HelpDesc.Render("  "))
}

// truncateLine cuts a line to the terminal width, accounting for wide runes.
func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
