// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrConversationNotFound is returned for reads of a missing conversation.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrMessageNotFound is returned for reads of a missing message.
	ErrMessageNotFound = errors.New("message not found")
)

// =============================================================================
// STORE
// =============================================================================

// Store is the SQLite-backed conversation store.
type Store struct {
	db       *sql.DB
	notifier *notifier
}

// Open opens (creating if needed) the database at path and prepares the
// schema. Pass ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY and keeps transactions serialized.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(initMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &Store{
		db:       db,
		notifier: newNotifier(),
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// Tx is one atomic unit of writes. Change notifications for everything
// written through a Tx are delivered only after the transaction commits.
type Tx struct {
	tx      *sql.Tx
	changed map[int64]struct{}
}

// touch records that a conversation's observers need an invalidation signal
// once this transaction commits.
func (t *Tx) touch(conversationID int64) {
	t.changed[conversationID] = struct{}{}
}

// WithTx runs fn inside a single transaction. If fn returns an error the
// transaction rolls back and nothing is observable; on commit every touched
// conversation's observers are signalled.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx := &Tx{tx: sqlTx, changed: make(map[int64]struct{})}

	if err := fn(tx); err != nil {
		sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	for id := range tx.changed {
		s.notifier.notifyConversation(id)
	}
	if len(tx.changed) > 0 {
		s.notifier.notifySummaries()
	}
	return nil
}
