// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"time"

	"github.com/aurachat/aurachat/internal/ai"
)

// =============================================================================
// DELIVERY STATE
// =============================================================================

// DeliveryState records whether a message reached its terminal good state.
// User messages are always Sent; only assistant messages may be Failed.
type DeliveryState string

const (
	StateSent   DeliveryState = "SENT"
	StateFailed DeliveryState = "FAILED"
)

// ParseDeliveryState maps a stored state string back to a DeliveryState.
// Unknown values decode as StateSent.
func ParseDeliveryState(s string) DeliveryState {
	if s == string(StateFailed) {
		return StateFailed
	}
	return StateSent
}

// =============================================================================
// ROW TYPES
// =============================================================================

// Conversation is one chat session.
type Conversation struct {
	ID        int64
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one row of a conversation's history.
type Message struct {
	ID             int64
	ConversationID int64
	Role           ai.Role
	Content        string
	CreatedAt      time.Time
	DeliveryState  DeliveryState
	// ErrorKind is set only when DeliveryState is StateFailed.
	ErrorKind *ai.ErrorKind
}

// Summary is the lightweight projection used by the conversation list.
type Summary struct {
	ID                   int64
	Title                string
	LatestMessagePreview string
	UpdatedAt            time.Time
}

// msFromTime converts a time to the epoch-millisecond representation stored
// in SQLite.
func msFromTime(t time.Time) int64 {
	return t.UnixMilli()
}

// timeFromMS converts stored epoch milliseconds back to a time.
func timeFromMS(ms int64) time.Time {
	return time.UnixMilli(ms)
}
