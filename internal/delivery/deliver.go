// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package delivery

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/aurachat/aurachat/internal/ai"
	"github.com/aurachat/aurachat/internal/store"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Request timeout bounds. Settings values outside this range are clamped
// before the provider call is issued.
const (
	MinRequestTimeout     = 5 * time.Second
	MaxRequestTimeout     = 120 * time.Second
	DefaultRequestTimeout = 30 * time.Second
)

// Options supplies the tunable request parameters. *settings.Settings
// implements it.
type Options interface {
	RequestTimeout() time.Duration
	Model() string
}

// Connectivity answers the online/offline question consulted before any
// send or retry is admitted.
type Connectivity interface {
	IsOnline() bool
}

// Clock abstracts wall time so tests can pin timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// =============================================================================
// DELIVERER
// =============================================================================

// Deliverer orchestrates message delivery for all conversations. At most one
// send-or-retry operation runs per conversation at a time; concurrent
// attempts are rejected with ErrBusy.
type Deliverer struct {
	store    *store.Store
	provider ai.Provider
	opts     Options
	net      Connectivity
	clock    Clock

	mu     sync.Mutex
	guards map[int64]*Guard
}

// New builds a Deliverer. A nil clock defaults to SystemClock.
func New(st *store.Store, provider ai.Provider, opts Options, net Connectivity, clock Clock) *Deliverer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Deliverer{
		store:    st,
		provider: provider,
		opts:     opts,
		net:      net,
		clock:    clock,
		guards:   make(map[int64]*Guard),
	}
}

// guard returns the per-conversation guard, creating it on first use.
func (d *Deliverer) guard(conversationID int64) *Guard {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.guards[conversationID]
	if !ok {
		g = &Guard{}
		d.guards[conversationID] = g
	}
	return g
}

// InFlight reports whether a delivery is currently running for the
// conversation. The UI uses it to disable the input while streaming.
func (d *Deliverer) InFlight(conversationID int64) bool {
	return d.guard(conversationID).InFlight()
}

// =============================================================================
// SEND
// =============================================================================

// SendUserMessage delivers one user message: persist it (deriving the title
// on the first message), then request a streamed assistant reply.
//
// A zero conversationID designates a conversation not yet created; the row is
// created in the same transaction as its first message, so rejected input
// never leaves an empty conversation behind. The result carries the assigned
// id.
//
// The returned error is non-nil only for ErrBusy and context cancellation.
// Every other failure is a SendResult with a classified Failure.
func (d *Deliverer) SendUserMessage(ctx context.Context, conversationID int64, text string) (SendResult, error) {
	g := d.guard(conversationID)
	if !g.TryAcquire() {
		return SendResult{}, ErrBusy
	}
	defer g.Release()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return failure(conversationID, ai.NewError(ai.KindInvalid, "")), nil
	}

	if !d.net.IsOnline() {
		return failure(conversationID, ai.NewError(ai.KindOffline, "")), nil
	}

	now := d.clock.Now()
	convID := conversationID
	err := d.store.WithTx(ctx, func(tx *store.Tx) error {
		if convID == 0 {
			id, err := tx.InsertConversation(ctx, DefaultTitle, now)
			if err != nil {
				return err
			}
			convID = id
		}
		_, err := tx.InsertMessage(ctx, store.Message{
			ConversationID: convID,
			Role:           ai.RoleUser,
			Content:        trimmed,
			CreatedAt:      now,
			DeliveryState:  store.StateSent,
		})
		if err != nil {
			return err
		}
		count, err := tx.CountUserMessages(ctx, convID)
		if err != nil {
			return err
		}
		if count == 1 {
			if err := tx.UpdateConversationTitle(ctx, convID, DeriveTitle(trimmed)); err != nil {
				return err
			}
		}
		return tx.TouchConversation(ctx, convID, now)
	})
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return SendResult{}, cerr
		}
		log.Printf("[delivery] persist user message: %v", err)
		return failure(conversationID, ai.WrapError(ai.KindUnknown, "", err)), nil
	}

	return d.requestAssistantReply(ctx, convID)
}

// =============================================================================
// RETRY
// =============================================================================

// RetryLastFailedAssistantReply deletes the most recent failed assistant
// message and re-requests a reply from the remaining history. With no failed
// message present it reports NothingToRetry and writes nothing.
func (d *Deliverer) RetryLastFailedAssistantReply(ctx context.Context, conversationID int64) (SendResult, error) {
	g := d.guard(conversationID)
	if !g.TryAcquire() {
		return SendResult{}, ErrBusy
	}
	defer g.Release()

	if !d.net.IsOnline() {
		return failure(conversationID, ai.NewError(ai.KindOffline, "")), nil
	}

	failed, err := d.store.LastFailedAssistantMessage(ctx, conversationID)
	if errors.Is(err, store.ErrMessageNotFound) {
		return failure(conversationID, ai.NewError(ai.KindNothingToRetry, "")), nil
	}
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return SendResult{}, cerr
		}
		return failure(conversationID, ai.WrapError(ai.KindUnknown, "", err)), nil
	}

	now := d.clock.Now()
	err = d.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.DeleteMessage(ctx, failed.ID); err != nil {
			return err
		}
		return tx.TouchConversation(ctx, conversationID, now)
	})
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return SendResult{}, cerr
		}
		log.Printf("[delivery] drop failed message %d: %v", failed.ID, err)
		return failure(conversationID, ai.WrapError(ai.KindUnknown, "", err)), nil
	}

	return d.requestAssistantReply(ctx, conversationID)
}

// =============================================================================
// STREAM CONSUMPTION
// =============================================================================

// requestAssistantReply issues the provider stream and folds it into store
// writes. Callers hold the conversation guard.
//
// The first text chunk creates an empty Sent assistant message; every chunk
// after that overwrites its content with the running accumulator, in emission
// order. A provider error is recorded but does not abort consumption: if any
// content arrived the message stays Sent with the partial text, otherwise the
// recorded error (or EmptyResponse when the stream was silent) is persisted
// as a Failed assistant message.
func (d *Deliverer) requestAssistantReply(ctx context.Context, conversationID int64) (SendResult, error) {
	history, err := d.store.RequestContext(ctx, conversationID)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return SendResult{}, cerr
		}
		return d.finalize(ctx, conversationID, 0, "", ai.WrapError(ai.KindUnknown, "", err))
	}

	req := ai.Request{
		Messages: projectHistory(history),
		Model:    d.opts.Model(),
		Timeout:  clampTimeout(d.opts.RequestTimeout()),
	}

	// A dedicated cancel lets us abandon the stream on a write failure
	// without cancelling the caller's context.
	streamCtx, stopStream := context.WithCancel(ctx)
	defer stopStream()

	var (
		content   strings.Builder
		lastErr   *ai.Error
		messageID int64
	)

	for chunk := range d.provider.StreamReply(streamCtx, req) {
		if chunk.Err != nil {
			lastErr = chunk.Err
		}
		if chunk.Text == "" {
			continue
		}
		content.WriteString(chunk.Text)
		id, err := d.writeChunk(ctx, conversationID, messageID, content.String())
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return SendResult{}, cerr
			}
			log.Printf("[delivery] persist chunk: %v", err)
			lastErr = ai.WrapError(ai.KindUnknown, "", err)
			stopStream()
			break
		}
		messageID = id
	}

	if cerr := ctx.Err(); cerr != nil {
		return SendResult{}, cerr
	}

	return d.finalize(ctx, conversationID, messageID, content.String(), lastErr)
}

// writeChunk persists the accumulated content, creating the assistant
// message on the first call. Both writes touch updatedAt.
func (d *Deliverer) writeChunk(ctx context.Context, conversationID, messageID int64, accumulated string) (int64, error) {
	now := d.clock.Now()
	err := d.store.WithTx(ctx, func(tx *store.Tx) error {
		if messageID == 0 {
			id, err := tx.InsertMessage(ctx, store.Message{
				ConversationID: conversationID,
				Role:           ai.RoleAssistant,
				Content:        "",
				CreatedAt:      now,
				DeliveryState:  store.StateSent,
			})
			if err != nil {
				return err
			}
			messageID = id
		}
		if err := tx.UpdateMessageContent(ctx, messageID, accumulated); err != nil {
			return err
		}
		return tx.TouchConversation(ctx, conversationID, now)
	})
	if err != nil {
		return 0, err
	}
	return messageID, nil
}

// finalize classifies the terminated stream. Content wins: if any text was
// accumulated the message stays Sent even when an error followed it.
func (d *Deliverer) finalize(ctx context.Context, conversationID, messageID int64, content string, lastErr *ai.Error) (SendResult, error) {
	if content != "" {
		if lastErr != nil {
			log.Printf("[delivery] conversation %d: keeping partial reply after %s", conversationID, lastErr.Kind)
		}
		return success(conversationID), nil
	}

	if lastErr == nil {
		lastErr = ai.NewError(ai.KindEmptyResponse, "")
	}

	now := d.clock.Now()
	kind := lastErr.Kind
	err := d.store.WithTx(ctx, func(tx *store.Tx) error {
		if messageID == 0 {
			id, err := tx.InsertMessage(ctx, store.Message{
				ConversationID: conversationID,
				Role:           ai.RoleAssistant,
				Content:        kind.FriendlyMessage(),
				CreatedAt:      now,
				DeliveryState:  store.StateFailed,
				ErrorKind:      &kind,
			})
			if err != nil {
				return err
			}
			messageID = id
			return tx.TouchConversation(ctx, conversationID, now)
		}
		if err := tx.UpdateMessageDelivery(ctx, messageID, kind.FriendlyMessage(), store.StateFailed, &kind); err != nil {
			return err
		}
		return tx.TouchConversation(ctx, conversationID, now)
	})
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return SendResult{}, cerr
		}
		log.Printf("[delivery] persist failure state: %v", err)
		return failure(conversationID, ai.WrapError(ai.KindUnknown, "", err)), nil
	}

	return failure(conversationID, lastErr), nil
}

// =============================================================================
// CONVERSATION MANAGEMENT
// =============================================================================

// RenameConversation sets a user-chosen title. Blank input is ignored.
func (d *Deliverer) RenameConversation(ctx context.Context, conversationID int64, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	now := d.clock.Now()
	return d.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.UpdateConversationTitle(ctx, conversationID, title); err != nil {
			return err
		}
		return tx.TouchConversation(ctx, conversationID, now)
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// projectHistory maps stored rows to the provider message shape.
func projectHistory(msgs []store.Message) []ai.Message {
	out := make([]ai.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ai.Message{Role: m.Role, Text: m.Content})
	}
	return out
}

// clampTimeout bounds the configured request timeout. Zero falls back to the
// default.
func clampTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultRequestTimeout
	case d < MinRequestTimeout:
		return MinRequestTimeout
	case d > MaxRequestTimeout:
		return MaxRequestTimeout
	default:
		return d
	}
}
