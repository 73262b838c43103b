// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package ai

import (
	"context"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role identifies the author of a message sent to the provider.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// ParseRole maps a stored role string back to a Role.
// Unknown values fall back to RoleAssistant, matching how rows written by
// older builds are treated.
func ParseRole(s string) Role {
	if s == string(RoleUser) {
		return RoleUser
	}
	return RoleAssistant
}

// =============================================================================
// REQUEST / REPLY TYPES
// =============================================================================

// Message is a single role-tagged entry of the request context.
type Message struct {
	Role Role
	Text string
}

// Request carries the full ordered context for one generation call.
type Request struct {
	Messages []Message
	Model    string
	Timeout  time.Duration
}

// Reply is the complete text of a non-streaming generation.
type Reply struct {
	Text string
}

// Chunk is one element of a streaming reply: either incremental text or a
// classified error. A stream may keep emitting text chunks after an error
// chunk; consumers decide what to do with the tail.
type Chunk struct {
	Text string
	Err  *Error
}

// =============================================================================
// PROVIDER CAPABILITY
// =============================================================================

// Provider is the reply-generation capability consumed by the delivery
// pipeline. Implementations classify every failure into an Error; they never
// surface raw transport errors.
type Provider interface {
	// GenerateReply performs a single non-streaming generation.
	GenerateReply(ctx context.Context, req Request) (*Reply, error)

	// StreamReply issues a streaming generation. The returned channel is
	// finite and closed when the stream terminates; errors are delivered
	// in-band as chunks. The sequence is not restartable: a fresh call
	// re-issues the request.
	StreamReply(ctx context.Context, req Request) <-chan Chunk
}
