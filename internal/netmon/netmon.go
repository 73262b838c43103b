// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package netmon tracks whether the machine currently has internet
// connectivity. The delivery pipeline consults it before admitting a send or
// retry; the UI shows an offline notice driven by its subscription channel.
package netmon

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// MONITOR INTERFACE
// =============================================================================

// Monitor answers the online/offline question and pushes transitions.
type Monitor interface {
	// IsOnline reports the last observed connectivity state.
	IsOnline() bool

	// Subscribe returns a channel receiving the new state on every
	// online/offline transition (never the same state twice in a row) and
	// a cancel func releasing the subscription.
	Subscribe() (<-chan bool, func())
}

// =============================================================================
// PROBE MONITOR
// =============================================================================

// probeTargets are dialed round-robin; reaching any one of them counts as
// online. Well-known anycast DNS endpoints keep the probe cheap and
// DNS-independent.
var probeTargets = []string{
	"1.1.1.1:53",
	"8.8.8.8:53",
	"9.9.9.9:53",
}

const (
	probeInterval = 10 * time.Second
	probeTimeout  = 3 * time.Second
)

// ProbeMonitor detects connectivity by dialing well-known endpoints on a
// ticker. Probes are additionally throttled by a rate limiter so that
// CheckNow callers (e.g. a retry keypress storm) cannot turn the monitor
// into a dial loop.
type ProbeMonitor struct {
	dialer  *net.Dialer
	limiter *rate.Limiter

	mu     sync.RWMutex
	online bool
	subs   []chan bool
	next   int

	stop   chan struct{}
	stopMu sync.Once
}

// NewProbeMonitor builds a monitor and runs one synchronous probe so the
// initial state is real, then continues probing in the background.
func NewProbeMonitor() *ProbeMonitor {
	m := &ProbeMonitor{
		dialer:  &net.Dialer{Timeout: probeTimeout},
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		stop:    make(chan struct{}),
	}
	m.online = m.probe(context.Background())
	go m.loop()
	return m
}

// IsOnline reports the last probed state.
func (m *ProbeMonitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Subscribe registers a transition observer.
func (m *ProbeMonitor) Subscribe() (<-chan bool, func()) {
	ch := make(chan bool, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, sub := range m.subs {
			if sub == ch {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// CheckNow forces an immediate probe, subject to the rate limit, and returns
// the resulting state. The UI calls it when the user hits retry while the
// offline notice is showing.
func (m *ProbeMonitor) CheckNow(ctx context.Context) bool {
	if !m.limiter.Allow() {
		return m.IsOnline()
	}
	m.setOnline(m.probe(ctx))
	return m.IsOnline()
}

// Close stops the background probe loop.
func (m *ProbeMonitor) Close() {
	m.stopMu.Do(func() { close(m.stop) })
}

func (m *ProbeMonitor) loop() {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if !m.limiter.Allow() {
				continue
			}
			m.setOnline(m.probe(context.Background()))
		}
	}
}

// probe dials the next target in the rotation. One reachable target is
// enough; on failure the remaining targets are tried before concluding
// offline.
func (m *ProbeMonitor) probe(ctx context.Context) bool {
	m.mu.Lock()
	start := m.next
	m.next = (m.next + 1) % len(probeTargets)
	m.mu.Unlock()

	for i := 0; i < len(probeTargets); i++ {
		target := probeTargets[(start+i)%len(probeTargets)]
		conn, err := m.dialer.DialContext(ctx, "tcp", target)
		if err == nil {
			conn.Close()
			return true
		}
	}
	return false
}

// setOnline records the new state and notifies subscribers on transitions
// only.
func (m *ProbeMonitor) setOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == online {
		return
	}
	m.online = online
	// Sends stay under the lock so cancel can close channels safely.
	for _, ch := range m.subs {
		select {
		case ch <- online:
		default:
		}
	}
}

// =============================================================================
// STATIC MONITOR
// =============================================================================

// StaticMonitor is a Monitor with an externally controlled state, used in
// tests and by the --offline flag.
type StaticMonitor struct {
	mu     sync.RWMutex
	online bool
	subs   []chan bool
}

// NewStaticMonitor returns a monitor pinned to the given state until SetOnline
// is called.
func NewStaticMonitor(online bool) *StaticMonitor {
	return &StaticMonitor{online: online}
}

func (m *StaticMonitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

func (m *StaticMonitor) Subscribe() (<-chan bool, func()) {
	ch := make(chan bool, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, sub := range m.subs {
			if sub == ch {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// SetOnline flips the state, notifying subscribers on transitions.
func (m *StaticMonitor) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == online {
		return
	}
	m.online = online
	for _, ch := range m.subs {
		select {
		case ch <- online:
		default:
		}
	}
}
