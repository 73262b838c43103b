// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view for the TUI: message history,
// input line, streaming updates, and the retry affordance for failed replies.
//
// The view is glue only. It reads committed state from the store and calls
// into the delivery pipeline; it never mutates messages itself.
package chat
