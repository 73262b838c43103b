// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aurachat/aurachat/internal/delivery"
)

// =============================================================================
// TEA COMMANDS
// =============================================================================

// loadHistory reads the full message history and title. An unsaved chat has
// no rows yet and renders an empty transcript under the default title.
func (m *Model) loadHistory() tea.Cmd {
	id := m.conversationID
	if id == 0 {
		return func() tea.Msg {
			return historyMsg{title: delivery.DefaultTitle}
		}
	}
	return func() tea.Msg {
		msgs, err := m.store.Messages(context.Background(), id)
		if err != nil {
			return historyErrMsg{err: err}
		}
		title, err := m.store.ConversationTitle(context.Background(), id)
		if err != nil {
			return historyErrMsg{err: err}
		}
		return historyMsg{messages: msgs, title: title}
	}
}

// resolveConversation looks up the conversation an unsaved chat's first send
// just created. The in-flight delivery is the only writer, so the newest
// summary is ours.
func (m *Model) resolveConversation() tea.Cmd {
	return func() tea.Msg {
		summaries, err := m.store.Summaries(context.Background())
		if err != nil || len(summaries) == 0 {
			return conversationBoundMsg{}
		}
		return conversationBoundMsg{id: summaries[0].ID}
	}
}

// awaitChange blocks on the store observation channel and converts the next
// committed write into a message. Re-issued after every receipt.
func (m *Model) awaitChange() tea.Cmd {
	ch := m.changes
	return func() tea.Msg {
		_, ok := <-ch
		if !ok {
			return nil
		}
		return conversationChangedMsg{}
	}
}

// awaitConnectivity blocks on the connectivity subscription.
func (m *Model) awaitConnectivity() tea.Cmd {
	ch := m.transitions
	return func() tea.Msg {
		online, ok := <-ch
		if !ok {
			return nil
		}
		return connectivityMsg{online: online}
	}
}

// send runs one delivery in the background. The pipeline owns all persistence;
// the view just waits for the outcome while store observation repaints the
// streaming partials.
func (m *Model) send(text string) tea.Cmd {
	ctx, deliver, id := m.sessionCtx, m.deliver, m.conversationID
	return func() tea.Msg {
		res, err := deliver.SendUserMessage(ctx, id, text)
		return deliveryDoneMsg{result: res, err: err}
	}
}

// retry re-requests a reply for the most recent failed assistant message.
func (m *Model) retry() tea.Cmd {
	ctx, deliver, id := m.sessionCtx, m.deliver, m.conversationID
	return func() tea.Msg {
		res, err := deliver.RetryLastFailedAssistantReply(ctx, id)
		return deliveryDoneMsg{result: res, err: err}
	}
}
