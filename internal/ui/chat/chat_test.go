// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurachat/aurachat/internal/ai"
	"github.com/aurachat/aurachat/internal/delivery"
	"github.com/aurachat/aurachat/internal/netmon"
	"github.com/aurachat/aurachat/internal/store"
	"github.com/aurachat/aurachat/internal/ui/styles"
)

// nullProvider never produces a reply; the view tests exercise state
// transitions, not delivery.
type nullProvider struct{}

func (nullProvider) GenerateReply(ctx context.Context, req ai.Request) (*ai.Reply, error) {
	return nil, ai.NewError(ai.KindUnknown, "")
}

func (nullProvider) StreamReply(ctx context.Context, req ai.Request) <-chan ai.Chunk {
	ch := make(chan ai.Chunk)
	close(ch)
	return ch
}

type fixedOpts struct{}

func (fixedOpts) RequestTimeout() time.Duration { return 30 * time.Second }
func (fixedOpts) Model() string                 { return "gemini-1.5-flash" }

func newTestModel(t *testing.T, conversationID int64) (*Model, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	monitor := netmon.NewStaticMonitor(true)
	deliver := delivery.New(st, nullProvider{}, fixedOpts{}, monitor, nil)

	m := New(styles.NewTheme(), st, deliver, monitor, conversationID, "gemini-1.5-flash")
	t.Cleanup(m.Close)
	return m, st
}

func insertConversation(t *testing.T, st *store.Store, title string) int64 {
	t.Helper()
	var id int64
	require.NoError(t, st.WithTx(context.Background(), func(tx *store.Tx) error {
		var err error
		id, err = tx.InsertConversation(context.Background(), title, time.UnixMilli(1))
		return err
	}))
	return id
}

func TestUnsavedChatShowsDefaultTitle(t *testing.T) {
	m, _ := newTestModel(t, 0)

	msg := m.loadHistory()()
	history, ok := msg.(historyMsg)
	require.True(t, ok)
	assert.Equal(t, delivery.DefaultTitle, history.title)
	assert.Empty(t, history.messages)
}

func TestUnsavedChatBindsAfterDelivery(t *testing.T) {
	m, st := newTestModel(t, 0)
	id := insertConversation(t, st, "Hello")

	m, cmd := m.Update(deliveryDoneMsg{result: delivery.SendResult{ConversationID: id}})
	assert.Equal(t, id, m.conversationID)
	require.NotNil(t, cmd)
}

func TestUnsavedChatBindsFromSummaryFeed(t *testing.T) {
	m, st := newTestModel(t, 0)
	id := insertConversation(t, st, "Hello")

	m, cmd := m.Update(conversationBoundMsg{id: id})
	assert.Equal(t, id, m.conversationID)
	require.NotNil(t, cmd)

	// A later bind signal for an already-bound chat is ignored.
	other := insertConversation(t, st, "Other")
	m, _ = m.Update(conversationBoundMsg{id: other})
	assert.Equal(t, id, m.conversationID)
}

func TestResolveConversationFindsNewestRow(t *testing.T) {
	m, st := newTestModel(t, 0)
	insertConversation(t, st, "First")

	msg := m.resolveConversation()()
	bound, ok := msg.(conversationBoundMsg)
	require.True(t, ok)
	assert.NotZero(t, bound.id)
}

func TestStatusLineShowsModelName(t *testing.T) {
	m, _ := newTestModel(t, 0)

	assert.Contains(t, m.statusLine(), "gemini-1.5-flash")

	m.SetModel("gemini-1.5-pro")
	assert.Contains(t, m.statusLine(), "gemini-1.5-pro")
}
