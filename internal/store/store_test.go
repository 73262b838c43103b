// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurachat/aurachat/internal/ai"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func insertConversation(t *testing.T, s *Store, title string, now time.Time) int64 {
	t.Helper()
	var id int64
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		var err error
		id, err = tx.InsertConversation(context.Background(), title, now)
		return err
	})
	require.NoError(t, err)
	return id
}

func insertMessage(t *testing.T, s *Store, m Message) int64 {
	t.Helper()
	var id int64
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		var err error
		id, err = tx.InsertMessage(context.Background(), m)
		return err
	})
	require.NoError(t, err)
	return id
}

func TestInsertAndReadConversation(t *testing.T) {
	s := openTestStore(t)
	now := time.UnixMilli(1000)

	id := insertConversation(t, s, "New chat", now)
	require.Greater(t, id, int64(0))

	conv, err := s.Conversation(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "New chat", conv.Title)
	assert.Equal(t, now.UnixMilli(), conv.CreatedAt.UnixMilli())
	assert.Equal(t, now.UnixMilli(), conv.UpdatedAt.UnixMilli())
}

func TestConversationNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Conversation(context.Background(), 999)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	_, err = s.ConversationTitle(context.Background(), 999)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestMessagesCanonicalOrder(t *testing.T) {
	s := openTestStore(t)
	conv := insertConversation(t, s, "t", time.UnixMilli(0))

	// Insert out of timestamp order, with two rows sharing a timestamp so
	// the id tiebreak is exercised.
	t1 := time.UnixMilli(100)
	t2 := time.UnixMilli(200)
	insertMessage(t, s, Message{ConversationID: conv, Role: ai.RoleUser, Content: "a", CreatedAt: t2, DeliveryState: StateSent})
	insertMessage(t, s, Message{ConversationID: conv, Role: ai.RoleAssistant, Content: "b", CreatedAt: t1, DeliveryState: StateSent})
	insertMessage(t, s, Message{ConversationID: conv, Role: ai.RoleUser, Content: "c", CreatedAt: t1, DeliveryState: StateSent})

	msgs, err := s.Messages(context.Background(), conv)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	// Ascending (created_at, id): "b" (t1, id2), "c" (t1, id3), "a" (t2, id1).
	assert.Equal(t, "b", msgs[0].Content)
	assert.Equal(t, "c", msgs[1].Content)
	assert.Equal(t, "a", msgs[2].Content)

	for i := 1; i < len(msgs); i++ {
		prev, cur := msgs[i-1], msgs[i]
		ordered := prev.CreatedAt.Before(cur.CreatedAt) ||
			(prev.CreatedAt.Equal(cur.CreatedAt) && prev.ID < cur.ID)
		assert.True(t, ordered, "messages %d and %d out of order", i-1, i)
	}
}

func TestRequestContextExcludesFailedAssistant(t *testing.T) {
	s := openTestStore(t)
	conv := insertConversation(t, s, "t", time.UnixMilli(0))
	kind := ai.KindTimeout

	insertMessage(t, s, Message{ConversationID: conv, Role: ai.RoleUser, Content: "hi", CreatedAt: time.UnixMilli(1), DeliveryState: StateSent})
	insertMessage(t, s, Message{ConversationID: conv, Role: ai.RoleAssistant, Content: "boom", CreatedAt: time.UnixMilli(2), DeliveryState: StateFailed, ErrorKind: &kind})
	insertMessage(t, s, Message{ConversationID: conv, Role: ai.RoleAssistant, Content: "ok", CreatedAt: time.UnixMilli(3), DeliveryState: StateSent})

	ctxMsgs, err := s.RequestContext(context.Background(), conv)
	require.NoError(t, err)
	require.Len(t, ctxMsgs, 2)
	assert.Equal(t, "hi", ctxMsgs[0].Content)
	assert.Equal(t, "ok", ctxMsgs[1].Content)

	// Full history still shows all three.
	all, err := s.Messages(context.Background(), conv)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLastFailedAssistantMessage(t *testing.T) {
	s := openTestStore(t)
	conv := insertConversation(t, s, "t", time.UnixMilli(0))
	kind := ai.KindNetwork

	_, err := s.LastFailedAssistantMessage(context.Background(), conv)
	assert.ErrorIs(t, err, ErrMessageNotFound)

	insertMessage(t, s, Message{ConversationID: conv, Role: ai.RoleAssistant, Content: "first", CreatedAt: time.UnixMilli(1), DeliveryState: StateFailed, ErrorKind: &kind})
	second := insertMessage(t, s, Message{ConversationID: conv, Role: ai.RoleAssistant, Content: "second", CreatedAt: time.UnixMilli(1), DeliveryState: StateFailed, ErrorKind: &kind})

	// Equal timestamps: highest id wins.
	got, err := s.LastFailedAssistantMessage(context.Background(), conv)
	require.NoError(t, err)
	assert.Equal(t, second, got.ID)
	require.NotNil(t, got.ErrorKind)
	assert.Equal(t, ai.KindNetwork, *got.ErrorKind)
}

func TestSummariesOrderAndPreview(t *testing.T) {
	s := openTestStore(t)

	older := insertConversation(t, s, "older", time.UnixMilli(100))
	newer := insertConversation(t, s, "newer", time.UnixMilli(200))
	insertMessage(t, s, Message{ConversationID: older, Role: ai.RoleUser, Content: "old hello", CreatedAt: time.UnixMilli(100), DeliveryState: StateSent})
	insertMessage(t, s, Message{ConversationID: older, Role: ai.RoleAssistant, Content: "latest reply", CreatedAt: time.UnixMilli(150), DeliveryState: StateSent})

	summaries, err := s.Summaries(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, newer, summaries[0].ID)
	assert.Equal(t, "", summaries[0].LatestMessagePreview)
	assert.Equal(t, older, summaries[1].ID)
	assert.Equal(t, "latest reply", summaries[1].LatestMessagePreview)
}

func TestUpdateMessageDelivery(t *testing.T) {
	s := openTestStore(t)
	conv := insertConversation(t, s, "t", time.UnixMilli(0))
	id := insertMessage(t, s, Message{ConversationID: conv, Role: ai.RoleAssistant, Content: "", CreatedAt: time.UnixMilli(1), DeliveryState: StateSent})

	kind := ai.KindEmptyResponse
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		return tx.UpdateMessageDelivery(context.Background(), id, kind.FriendlyMessage(), StateFailed, &kind)
	})
	require.NoError(t, err)

	got, err := s.Message(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, got.DeliveryState)
	assert.Equal(t, kind.FriendlyMessage(), got.Content)
	require.NotNil(t, got.ErrorKind)
	assert.Equal(t, ai.KindEmptyResponse, *got.ErrorKind)
}

func TestDeleteMessage(t *testing.T) {
	s := openTestStore(t)
	conv := insertConversation(t, s, "t", time.UnixMilli(0))
	keep := insertMessage(t, s, Message{ConversationID: conv, Role: ai.RoleUser, Content: "keep", CreatedAt: time.UnixMilli(1), DeliveryState: StateSent})
	drop := insertMessage(t, s, Message{ConversationID: conv, Role: ai.RoleAssistant, Content: "drop", CreatedAt: time.UnixMilli(2), DeliveryState: StateSent})

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		return tx.DeleteMessage(context.Background(), drop)
	})
	require.NoError(t, err)

	msgs, err := s.Messages(context.Background(), conv)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, keep, msgs[0].ID)
}

func TestTransactionRollbackLeavesNoRows(t *testing.T) {
	s := openTestStore(t)
	conv := insertConversation(t, s, "t", time.UnixMilli(0))

	boom := errors.New("boom")
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		if _, err := tx.InsertMessage(context.Background(), Message{
			ConversationID: conv, Role: ai.RoleUser, Content: "ghost",
			CreatedAt: time.UnixMilli(1), DeliveryState: StateSent,
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	msgs, err := s.Messages(context.Background(), conv)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestCountUserMessages(t *testing.T) {
	s := openTestStore(t)
	conv := insertConversation(t, s, "t", time.UnixMilli(0))

	insertMessage(t, s, Message{ConversationID: conv, Role: ai.RoleUser, Content: "a", CreatedAt: time.UnixMilli(1), DeliveryState: StateSent})
	insertMessage(t, s, Message{ConversationID: conv, Role: ai.RoleAssistant, Content: "b", CreatedAt: time.UnixMilli(2), DeliveryState: StateSent})
	insertMessage(t, s, Message{ConversationID: conv, Role: ai.RoleUser, Content: "c", CreatedAt: time.UnixMilli(3), DeliveryState: StateSent})

	n, err := s.CountUserMessages(context.Background(), conv)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestObserveConversationSignalsAfterCommit(t *testing.T) {
	s := openTestStore(t)
	conv := insertConversation(t, s, "t", time.UnixMilli(0))

	ch, cancel := s.ObserveConversation(conv)
	defer cancel()

	insertMessage(t, s, Message{ConversationID: conv, Role: ai.RoleUser, Content: "a", CreatedAt: time.UnixMilli(1), DeliveryState: StateSent})

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a change signal after commit")
	}
}

func TestObserveSummariesCoalesces(t *testing.T) {
	s := openTestStore(t)

	ch, cancel := s.ObserveSummaries()
	defer cancel()

	// Two writes without draining: the buffered channel coalesces to one
	// pending signal and the writer never blocks.
	insertConversation(t, s, "one", time.UnixMilli(1))
	insertConversation(t, s, "two", time.UnixMilli(2))

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a summaries signal")
	}

	select {
	case <-ch:
		// A second coalesced signal may or may not be pending; either is fine.
	default:
	}
}

func TestObserveCancelStopsSignals(t *testing.T) {
	s := openTestStore(t)
	conv := insertConversation(t, s, "t", time.UnixMilli(0))

	ch, cancel := s.ObserveConversation(conv)
	cancel()

	insertMessage(t, s, Message{ConversationID: conv, Role: ai.RoleUser, Content: "a", CreatedAt: time.UnixMilli(1), DeliveryState: StateSent})

	// Cancel closes the channel so blocked observers can unwind.
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("cancelled observer should not receive signals")
		}
	case <-time.After(time.Second):
		t.Fatal("cancel should close the observation channel")
	}
}
