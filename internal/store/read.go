// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aurachat/aurachat/internal/ai"
)

// =============================================================================
// READ OPERATIONS
// =============================================================================

// Conversation fetches one conversation row.
func (s *Store) Conversation(ctx context.Context, id int64) (*Conversation, error) {
	var (
		c         Conversation
		createdMS int64
		updatedMS int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at_ms, updated_at_ms FROM conversations WHERE id = ?`,
		id).Scan(&c.ID, &c.Title, &createdMS, &updatedMS)
	if err == sql.ErrNoRows {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation: %w", err)
	}
	c.CreatedAt = timeFromMS(createdMS)
	c.UpdatedAt = timeFromMS(updatedMS)
	return &c, nil
}

// ConversationTitle fetches only the title.
func (s *Store) ConversationTitle(ctx context.Context, id int64) (string, error) {
	var title string
	err := s.db.QueryRowContext(ctx,
		`SELECT title FROM conversations WHERE id = ?`, id).Scan(&title)
	if err == sql.ErrNoRows {
		return "", ErrConversationNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read conversation title: %w", err)
	}
	return title, nil
}

// Summaries lists all conversations ordered by updated_at descending, each
// with a preview of its latest message.
func (s *Store) Summaries(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id,
		       c.title,
		       COALESCE((
		           SELECT m.content
		           FROM messages m
		           WHERE m.conversation_id = c.id
		           ORDER BY m.created_at_ms DESC, m.id DESC
		           LIMIT 1
		       ), '') AS latest_preview,
		       c.updated_at_ms
		FROM conversations c
		ORDER BY c.updated_at_ms DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var (
			sum       Summary
			updatedMS int64
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.LatestMessagePreview, &updatedMS); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		sum.UpdatedAt = timeFromMS(updatedMS)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Messages returns the full history of a conversation in canonical order:
// (created_at, id) ascending.
func (s *Store) Messages(ctx context.Context, conversationID int64) ([]Message, error) {
	return s.queryMessages(ctx, `
		SELECT id, conversation_id, role, content, created_at_ms, delivery_state, error_kind
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at_ms ASC, id ASC`, conversationID)
}

// RequestContext returns the message set sent to the provider: the full
// history minus any assistant message currently marked Failed.
func (s *Store) RequestContext(ctx context.Context, conversationID int64) ([]Message, error) {
	return s.queryMessages(ctx, `
		SELECT id, conversation_id, role, content, created_at_ms, delivery_state, error_kind
		FROM messages
		WHERE conversation_id = ?
		  AND NOT (role = 'assistant' AND delivery_state = 'FAILED')
		ORDER BY created_at_ms ASC, id ASC`, conversationID)
}

// LastFailedAssistantMessage returns the most recent Failed assistant message
// (ties broken by highest id), or ErrMessageNotFound when none exists.
func (s *Store) LastFailedAssistantMessage(ctx context.Context, conversationID int64) (*Message, error) {
	msgs, err := s.queryMessages(ctx, `
		SELECT id, conversation_id, role, content, created_at_ms, delivery_state, error_kind
		FROM messages
		WHERE conversation_id = ?
		  AND role = 'assistant'
		  AND delivery_state = 'FAILED'
		ORDER BY created_at_ms DESC, id DESC
		LIMIT 1`, conversationID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, ErrMessageNotFound
	}
	return &msgs[0], nil
}

// Message fetches a single message row by id.
func (s *Store) Message(ctx context.Context, messageID int64) (*Message, error) {
	msgs, err := s.queryMessages(ctx, `
		SELECT id, conversation_id, role, content, created_at_ms, delivery_state, error_kind
		FROM messages
		WHERE id = ?`, messageID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, ErrMessageNotFound
	}
	return &msgs[0], nil
}

// CountUserMessages counts user-role messages outside a transaction.
func (s *Store) CountUserMessages(ctx context.Context, conversationID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND role = ?`,
		conversationID, string(ai.RoleUser)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count user messages: %w", err)
	}
	return n, nil
}

// queryMessages runs a message query and scans the rows.
func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var (
			m         Message
			role      string
			createdMS int64
			state     string
			kind      sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &createdMS, &state, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = ai.ParseRole(role)
		m.CreatedAt = timeFromMS(createdMS)
		m.DeliveryState = ParseDeliveryState(state)
		if kind.Valid {
			k := ai.ParseErrorKind(kind.String)
			m.ErrorKind = &k
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
