// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package delivery is the message delivery pipeline: it turns a user-typed
// message into durable store writes and a supervised streaming request to the
// reply provider, with incremental persistence of partial output, failure
// classification, and single-action retry.
//
// All conversation and message rows are written exclusively through this
// package. The UI reads from the store and observes change notifications; it
// never mutates delivery state itself.
package delivery
