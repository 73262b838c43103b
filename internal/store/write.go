// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aurachat/aurachat/internal/ai"
)

// =============================================================================
// TX WRITE OPERATIONS
// =============================================================================

// InsertConversation creates a conversation row and returns its id.
func (t *Tx) InsertConversation(ctx context.Context, title string, now time.Time) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO conversations (title, created_at_ms, updated_at_ms) VALUES (?, ?, ?)`,
		title, msFromTime(now), msFromTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to insert conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read conversation id: %w", err)
	}
	t.touch(id)
	return id, nil
}

// InsertMessage appends a message row and returns its id.
func (t *Tx) InsertMessage(ctx context.Context, m Message) (int64, error) {
	var kind *string
	if m.ErrorKind != nil {
		s := string(*m.ErrorKind)
		kind = &s
	}
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, created_at_ms, delivery_state, error_kind)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ConversationID, string(m.Role), m.Content, msFromTime(m.CreatedAt), string(m.DeliveryState), kind)
	if err != nil {
		return 0, fmt.Errorf("failed to insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read message id: %w", err)
	}
	t.touch(m.ConversationID)
	return id, nil
}

// UpdateMessageContent overwrites a message's content. Used for the
// incremental overwrite of a streaming assistant message.
func (t *Tx) UpdateMessageContent(ctx context.Context, messageID int64, content string) error {
	convID, err := conversationOfMessage(ctx, t.tx, messageID)
	if err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE messages SET content = ? WHERE id = ?`, content, messageID); err != nil {
		return fmt.Errorf("failed to update message content: %w", err)
	}
	t.touch(convID)
	return nil
}

// UpdateMessageDelivery overwrites content, delivery state, and error kind in
// one statement. kind may be nil to clear the error column.
func (t *Tx) UpdateMessageDelivery(ctx context.Context, messageID int64, content string, state DeliveryState, kind *ai.ErrorKind) error {
	convID, err := conversationOfMessage(ctx, t.tx, messageID)
	if err != nil {
		return err
	}
	var kindStr *string
	if kind != nil {
		s := string(*kind)
		kindStr = &s
	}
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE messages SET content = ?, delivery_state = ?, error_kind = ? WHERE id = ?`,
		content, string(state), kindStr, messageID); err != nil {
		return fmt.Errorf("failed to update message delivery: %w", err)
	}
	t.touch(convID)
	return nil
}

// UpdateConversationTitle sets the title without touching updated_at.
func (t *Tx) UpdateConversationTitle(ctx context.Context, conversationID int64, title string) error {
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE conversations SET title = ? WHERE id = ?`, title, conversationID); err != nil {
		return fmt.Errorf("failed to update conversation title: %w", err)
	}
	t.touch(conversationID)
	return nil
}

// TouchConversation advances the conversation's updated_at timestamp.
func (t *Tx) TouchConversation(ctx context.Context, conversationID int64, now time.Time) error {
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at_ms = ? WHERE id = ?`,
		msFromTime(now), conversationID); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	t.touch(conversationID)
	return nil
}

// DeleteMessage removes a message row by id.
func (t *Tx) DeleteMessage(ctx context.Context, messageID int64) error {
	convID, err := conversationOfMessage(ctx, t.tx, messageID)
	if err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM messages WHERE id = ?`, messageID); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	t.touch(convID)
	return nil
}

// CountUserMessages counts user-role messages in a conversation, read inside
// the transaction so title derivation sees the row just inserted.
func (t *Tx) CountUserMessages(ctx context.Context, conversationID int64) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND role = ?`,
		conversationID, string(ai.RoleUser)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count user messages: %w", err)
	}
	return n, nil
}

// conversationOfMessage resolves the owning conversation for notification.
func conversationOfMessage(ctx context.Context, tx *sql.Tx, messageID int64) (int64, error) {
	var convID int64
	err := tx.QueryRowContext(ctx,
		`SELECT conversation_id FROM messages WHERE id = ?`, messageID).Scan(&convID)
	if err == sql.ErrNoRows {
		return 0, ErrMessageNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve message owner: %w", err)
	}
	return convID, nil
}
