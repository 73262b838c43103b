// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/aurachat/aurachat/internal/ai"
	"github.com/aurachat/aurachat/internal/delivery"
	"github.com/aurachat/aurachat/internal/netmon"
	"github.com/aurachat/aurachat/internal/store"
	"github.com/aurachat/aurachat/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for one open conversation. A zero
// conversation id is an unsaved chat: no row exists until the first message
// is sent, at which point the view binds to the created conversation.
type Model struct {
	theme          *styles.Theme
	keys           KeyMap
	conversationID int64
	modelName      string

	store   *store.Store
	deliver *delivery.Deliverer
	monitor netmon.Monitor

	// sessionCtx scopes in-flight deliveries to the open view; closing the
	// view cancels them.
	sessionCtx    context.Context
	cancelSession context.CancelFunc

	changes      <-chan struct{}
	stopChanges  func()
	transitions  <-chan bool
	stopMonitor  func()

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	title     string
	messages  []store.Message
	streaming bool
	online    bool
	advisory  string
	loadErr   error

	width  int
	height int
	ready  bool
}

// New builds the chat model for a conversation.
func New(theme *styles.Theme, st *store.Store, deliver *delivery.Deliverer, monitor netmon.Monitor, conversationID int64, modelName string) *Model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	ctx, cancel := context.WithCancel(context.Background())

	// An unsaved chat has no row to observe yet; follow the summary feed
	// until the first send creates the conversation.
	var (
		changes     <-chan struct{}
		stopChanges func()
	)
	if conversationID == 0 {
		changes, stopChanges = st.ObserveSummaries()
	} else {
		changes, stopChanges = st.ObserveConversation(conversationID)
	}
	transitions, stopMonitor := monitor.Subscribe()

	return &Model{
		theme:          theme,
		keys:           DefaultKeyMap(),
		conversationID: conversationID,
		modelName:      modelName,
		store:          st,
		deliver:        deliver,
		monitor:        monitor,
		sessionCtx:     ctx,
		cancelSession:  cancel,
		changes:        changes,
		stopChanges:    stopChanges,
		transitions:    transitions,
		stopMonitor:    stopMonitor,
		input:          input,
		spinner:        sp,
		online:         monitor.IsOnline(),
	}
}

// SetModel updates the displayed provider model name after a settings change.
func (m *Model) SetModel(name string) {
	m.modelName = name
}

// bind switches an unsaved chat onto the conversation its first message
// created, moving the observation feed to that row.
func (m *Model) bind(id int64) {
	m.conversationID = id
	m.stopChanges()
	m.changes, m.stopChanges = m.store.ObserveConversation(id)
}

// Close cancels any in-flight delivery and releases subscriptions. The parent
// model calls it when leaving the view.
func (m *Model) Close() {
	m.cancelSession()
	m.stopChanges()
	m.stopMonitor()
}

// Init starts history loading and the observation loops.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadHistory(),
		m.awaitChange(),
		m.awaitConnectivity(),
		textinput.Blink,
	)
}

// Update handles one Bubble Tea message.
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case historyMsg:
		m.messages = msg.messages
		m.title = msg.title
		m.loadErr = nil
		m.refreshViewport()
		return m, nil

	case historyErrMsg:
		m.loadErr = msg.err
		return m, nil

	case conversationChangedMsg:
		// A committed write (possibly one streaming partial); reload and
		// keep listening. For an unsaved chat the signal means the first
		// send just created the conversation; look it up and bind.
		if m.conversationID == 0 {
			return m, m.resolveConversation()
		}
		return m, tea.Batch(m.loadHistory(), m.awaitChange())

	case conversationBoundMsg:
		if m.conversationID != 0 {
			// Already bound through the delivery outcome.
			return m, nil
		}
		if msg.id == 0 {
			// No conversation yet; keep following the summary feed.
			return m, m.awaitChange()
		}
		m.bind(msg.id)
		return m, tea.Batch(m.loadHistory(), m.awaitChange())

	case deliveryDoneMsg:
		return m.handleDeliveryDone(msg)

	case connectivityMsg:
		m.online = msg.online
		if m.online && m.advisory == ai.KindOffline.FriendlyMessage() {
			m.advisory = ""
		}
		return m, m.awaitConnectivity()

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (*Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		m.Close()
		return m, func() tea.Msg { return BackMsg{} }

	case key.Matches(msg, m.keys.Send):
		text := m.input.Value()
		if text == "" || m.streaming {
			return m, nil
		}
		m.input.Reset()
		m.advisory = ""
		m.streaming = true
		return m, tea.Batch(m.send(text), m.spinner.Tick)

	case key.Matches(msg, m.keys.Retry):
		if m.streaming {
			return m, nil
		}
		m.advisory = ""
		m.streaming = true
		return m, tea.Batch(m.retry(), m.spinner.Tick)

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleDeliveryDone maps the pipeline outcome to view state. Persisted
// failures arrive through store observation; only transient outcomes need
// advisory text here.
func (m *Model) handleDeliveryDone(msg deliveryDoneMsg) (*Model, tea.Cmd) {
	m.streaming = false

	if msg.err != nil {
		switch {
		case errors.Is(msg.err, delivery.ErrBusy):
			m.advisory = "A reply is already in progress."
		case errors.Is(msg.err, context.Canceled):
			// View is closing; nothing to show.
		default:
			m.advisory = msg.err.Error()
		}
		return m, nil
	}

	switch msg.result.Kind() {
	case ai.KindOffline, ai.KindInvalid, ai.KindNothingToRetry:
		// Transient advisory state, nothing was persisted.
		m.advisory = msg.result.Failure.Message
	}

	// An unsaved chat binds to the conversation the send created, in case
	// the summary signal has not arrived yet.
	if m.conversationID == 0 && msg.result.ConversationID != 0 {
		m.bind(msg.result.ConversationID)
		return m, tea.Batch(m.loadHistory(), m.awaitChange())
	}
	return m, m.loadHistory()
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	headerH := 2
	footerH := 4
	m.viewport.Width = width
	m.viewport.Height = max(height-headerH-footerH, 1)
	m.input.Width = max(width-4, 10)

	m.rebuildRenderer()
	m.refreshViewport()
	m.ready = true
}
