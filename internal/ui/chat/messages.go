// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/aurachat/aurachat/internal/delivery"
	"github.com/aurachat/aurachat/internal/store"
)

// =============================================================================
// TEA MESSAGES
// =============================================================================

// BackMsg asks the parent model to return to the conversation list.
type BackMsg struct{}

// historyMsg carries freshly loaded conversation history.
type historyMsg struct {
	messages []store.Message
	title    string
}

// historyErrMsg reports a failed history load.
type historyErrMsg struct{ err error }

// conversationChangedMsg signals a committed store write for this
// conversation; the view reloads.
type conversationChangedMsg struct{}

// conversationBoundMsg carries the id of the conversation an unsaved chat was
// written to, so the view can switch to its observation feed.
type conversationBoundMsg struct{ id int64 }

// deliveryDoneMsg carries the outcome of a send or retry.
type deliveryDoneMsg struct {
	result delivery.SendResult
	err    error
}

// connectivityMsg carries an online/offline transition.
type connectivityMsg struct{ online bool }
