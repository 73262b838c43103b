// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui wires the TUI screens together: the conversation list and the
// open chat view.
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aurachat/aurachat/internal/delivery"
	"github.com/aurachat/aurachat/internal/netmon"
	"github.com/aurachat/aurachat/internal/store"
	"github.com/aurachat/aurachat/internal/ui/chat"
	"github.com/aurachat/aurachat/internal/ui/home"
	"github.com/aurachat/aurachat/internal/ui/styles"
)

// screen identifies the active view.
type screen int

const (
	screenHome screen = iota
	screenChat
)

// Config supplies the live settings the interface reflects. *settings.Settings
// implements it; edits written by this process or picked up by the file
// watcher arrive through Observe.
type Config interface {
	Model() string
	Observe() (<-chan struct{}, func())
}

// settingsChangedMsg signals a reloaded configuration.
type settingsChangedMsg struct{}

// App is the top-level Bubble Tea model.
type App struct {
	theme   *styles.Theme
	cfg     Config
	store   *store.Store
	deliver *delivery.Deliverer
	monitor netmon.Monitor

	settingsCh   <-chan struct{}
	stopSettings func()

	active screen
	home   *home.Model
	chat   *chat.Model

	width  int
	height int
}

// NewApp builds the application model starting on the conversation list.
func NewApp(theme *styles.Theme, cfg Config, st *store.Store, deliver *delivery.Deliverer, monitor netmon.Monitor) *App {
	settingsCh, stopSettings := cfg.Observe()
	return &App{
		theme:        theme,
		cfg:          cfg,
		store:        st,
		deliver:      deliver,
		monitor:      monitor,
		settingsCh:   settingsCh,
		stopSettings: stopSettings,
		active:       screenHome,
		home:         home.New(theme, st),
	}
}

// Init starts the home screen and the settings observation loop.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.home.Init(), a.awaitSettings())
}

// awaitSettings blocks on the settings subscription and converts the next
// reload into a message. Re-issued after every receipt.
func (a *App) awaitSettings() tea.Cmd {
	ch := a.settingsCh
	return func() tea.Msg {
		_, ok := <-ch
		if !ok {
			return nil
		}
		return settingsChangedMsg{}
	}
}

// Update routes messages to the active screen and handles transitions.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Both screens need the size; forward below.

	case settingsChangedMsg:
		if a.chat != nil {
			a.chat.SetModel(a.cfg.Model())
		}
		return a, a.awaitSettings()

	case home.OpenConversationMsg:
		a.chat = chat.New(a.theme, a.store, a.deliver, a.monitor, msg.ID, a.cfg.Model())
		a.active = screenChat
		cmds := []tea.Cmd{a.chat.Init()}
		if a.width > 0 {
			resized, cmd := a.chat.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
			a.chat = resized
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case chat.BackMsg:
		// The chat model released its subscriptions before emitting this.
		a.chat = nil
		a.active = screenHome
		return a, nil
	}

	// The home model keeps running behind the chat view so its summary
	// observation loop stays alive; input only reaches the active screen.
	var cmds []tea.Cmd
	_, isInput := msg.(tea.KeyMsg)
	if a.active == screenHome || !isInput {
		var cmd tea.Cmd
		a.home, cmd = a.home.Update(msg)
		cmds = append(cmds, cmd)
	}
	if a.active == screenChat && a.chat != nil {
		var cmd tea.Cmd
		a.chat, cmd = a.chat.Update(msg)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

// View renders the active screen.
func (a *App) View() string {
	switch a.active {
	case screenChat:
		return a.chat.View()
	default:
		return a.home.View()
	}
}
