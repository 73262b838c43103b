// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package home provides the conversation list screen: pick an existing
// conversation or start a new one.
package home

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aurachat/aurachat/internal/store"
	"github.com/aurachat/aurachat/internal/ui/styles"
	"github.com/aurachat/aurachat/internal/util"
)

// =============================================================================
// TEA MESSAGES
// =============================================================================

// OpenConversationMsg asks the parent model to open a conversation. A zero ID
// opens an unsaved chat; the conversation row is created when its first
// message is sent.
type OpenConversationMsg struct {
	ID int64
}

// summariesMsg carries a reloaded conversation list.
type summariesMsg struct {
	summaries []store.Summary
}

// summariesErrMsg reports a failed list load.
type summariesErrMsg struct{ err error }

// summariesChangedMsg signals a committed write touching any conversation.
type summariesChangedMsg struct{}

// =============================================================================
// LIST ITEM
// =============================================================================

// item adapts a store.Summary to the bubbles list item interface.
type item struct {
	summary store.Summary
}

func (i item) Title() string { return i.summary.Title }

func (i item) Description() string {
	preview := i.summary.LatestMessagePreview
	if preview == "" {
		return "No messages yet"
	}
	return util.TruncateRunes(preview, 72)
}

func (i item) FilterValue() string { return i.summary.Title }

// =============================================================================
// HOME MODEL
// =============================================================================

// KeyMap defines the home screen bindings beyond the list defaults.
type KeyMap struct {
	Open key.Binding
	New  key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default home bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new chat"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Model is the Bubble Tea model for the conversation list.
type Model struct {
	theme *styles.Theme
	keys  KeyMap
	store *store.Store

	list        list.Model
	changes     <-chan struct{}
	stopChanges func()

	loadErr error
	width   int
	height  int
}

// New builds the home model and starts observing the summary feed.
func New(theme *styles.Theme, st *store.Store) *Model {
	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, 0, 0)
	l.Title = "AuraChat"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		k := DefaultKeyMap()
		return []key.Binding{k.New}
	}

	changes, stopChanges := st.ObserveSummaries()

	return &Model{
		theme:       theme,
		keys:        DefaultKeyMap(),
		store:       st,
		list:        l,
		changes:     changes,
		stopChanges: stopChanges,
	}
}

// Close releases the summary subscription.
func (m *Model) Close() {
	m.stopChanges()
}

// Init loads the list and starts the observation loop.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadSummaries(), m.awaitChange())
}

// Update handles one Bubble Tea message.
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-1)
		return m, nil

	case tea.KeyMsg:
		// Let the list handle keys while the user is filtering.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Open):
			if it, ok := m.list.SelectedItem().(item); ok {
				id := it.summary.ID
				return m, func() tea.Msg { return OpenConversationMsg{ID: id} }
			}
			return m, nil

		case key.Matches(msg, m.keys.New):
			// Unsaved chat: no row exists until the first message is sent.
			return m, func() tea.Msg { return OpenConversationMsg{ID: 0} }
		}

	case summariesMsg:
		m.loadErr = nil
		items := make([]list.Item, 0, len(msg.summaries))
		for _, s := range msg.summaries {
			items = append(items, item{summary: s})
		}
		return m, m.list.SetItems(items)

	case summariesErrMsg:
		m.loadErr = msg.err
		return m, nil

	case summariesChangedMsg:
		return m, tea.Batch(m.loadSummaries(), m.awaitChange())
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list screen.
func (m *Model) View() string {
	if m.loadErr != nil {
		return m.theme.FailedText.Render(fmt.Sprintf("Could not load conversations: %v", m.loadErr))
	}
	return m.list.View()
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m *Model) loadSummaries() tea.Cmd {
	return func() tea.Msg {
		summaries, err := m.store.Summaries(context.Background())
		if err != nil {
			return summariesErrMsg{err: err}
		}
		return summariesMsg{summaries: summaries}
	}
}

func (m *Model) awaitChange() tea.Cmd {
	ch := m.changes
	return func() tea.Msg {
		_, ok := <-ch
		if !ok {
			return nil
		}
		return summariesChangedMsg{}
	}
}
