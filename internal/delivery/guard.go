// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package delivery

import (
	"errors"
	"sync/atomic"
)

// ErrBusy is returned when a send or retry is attempted while another
// operation is already in flight for the same conversation. The caller is
// rejected immediately, never queued.
var ErrBusy = errors.New("delivery: operation already in flight")

// Guard is a single-slot non-blocking lock. TryAcquire never waits: it either
// claims the slot or reports it taken.
type Guard struct {
	busy atomic.Bool
}

// TryAcquire claims the slot if it is free. It returns false without
// blocking when an operation is already in flight.
func (g *Guard) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release frees the slot. Safe to call from a deferred path regardless of
// how the operation ended.
func (g *Guard) Release() {
	g.busy.Store(false)
}

// InFlight reports whether the slot is currently held.
func (g *Guard) InFlight() bool {
	return g.busy.Load()
}
