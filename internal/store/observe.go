// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import "sync"

// =============================================================================
// CHANGE NOTIFICATION
// =============================================================================

// notifier fans committed-write signals out to subscribers. Signals are
// invalidations, not payloads: a subscriber re-reads whatever it observes.
// Channels are buffered with capacity one and sends never block, so a slow
// observer coalesces signals instead of stalling the writer.
type notifier struct {
	mu            sync.Mutex
	conversations map[int64][]chan struct{}
	summaries     []chan struct{}
}

func newNotifier() *notifier {
	return &notifier{
		conversations: make(map[int64][]chan struct{}),
	}
}

func (n *notifier) notifyConversation(id int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.conversations[id] {
		signal(ch)
	}
}

func (n *notifier) notifySummaries() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.summaries {
		signal(ch)
	}
}

// signal performs a non-blocking coalescing send.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// ObserveConversation returns a channel that receives a signal after every
// committed write touching the conversation. Call the returned cancel
// function to unsubscribe.
func (s *Store) ObserveConversation(id int64) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.notifier.mu.Lock()
	s.notifier.conversations[id] = append(s.notifier.conversations[id], ch)
	s.notifier.mu.Unlock()

	cancel := func() {
		s.notifier.mu.Lock()
		defer s.notifier.mu.Unlock()
		subs := s.notifier.conversations[id]
		for i, c := range subs {
			if c == ch {
				s.notifier.conversations[id] = append(subs[:i], subs[i+1:]...)
				// Sends hold the same lock, so closing here is safe and
				// lets a blocked receiver observe the unsubscribe.
				close(ch)
				break
			}
		}
		if len(s.notifier.conversations[id]) == 0 {
			delete(s.notifier.conversations, id)
		}
	}
	return ch, cancel
}

// ObserveSummaries returns a channel signalled after any committed write, for
// observers of the conversation list.
func (s *Store) ObserveSummaries() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.notifier.mu.Lock()
	s.notifier.summaries = append(s.notifier.summaries, ch)
	s.notifier.mu.Unlock()

	cancel := func() {
		s.notifier.mu.Lock()
		defer s.notifier.mu.Unlock()
		for i, c := range s.notifier.summaries {
			if c == ch {
				s.notifier.summaries = append(s.notifier.summaries[:i], s.notifier.summaries[i+1:]...)
				close(ch)
				break
			}
		}
	}
	return ch, cancel
}
