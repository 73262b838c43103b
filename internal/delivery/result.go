// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package delivery

import (
	"github.com/aurachat/aurachat/internal/ai"
)

// SendResult is the outcome of one send or retry operation. A nil Failure
// means the assistant reply was delivered and persisted as Sent.
//
// Failure outcomes are values, not errors: they are expected pipeline states
// the UI renders (failed bubble, offline notice). Only concurrency rejection
// and context cancellation travel as Go errors.
type SendResult struct {
	ConversationID int64
	Failure        *ai.Error
}

// OK reports whether the operation delivered a reply.
func (r SendResult) OK() bool {
	return r.Failure == nil
}

// Kind returns the failure kind, or the empty string on success.
func (r SendResult) Kind() ai.ErrorKind {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.Kind
}

func success(conversationID int64) SendResult {
	return SendResult{ConversationID: conversationID}
}

func failure(conversationID int64, err *ai.Error) SendResult {
	return SendResult{ConversationID: conversationID, Failure: err}
}
