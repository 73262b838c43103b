// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the durable record of conversations and messages.
//
// Backed by SQLite (modernc.org/sqlite, pure Go), the store exposes point
// reads and writes, transactional multi-row updates, and push-based change
// notification: observers receive an invalidation signal after every
// committed write to a conversation and re-read the rows they care about.
//
// All mutating operations that touch more than one row run inside a single
// transaction, so readers never observe a partial update.
package store
