// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package settings

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// OBSERVERS
// =============================================================================

// observers fans a change signal out to subscribers. Sends are non-blocking;
// the buffered-1 channels coalesce bursts, so a subscriber sees "something
// changed" rather than one event per write.
type observers struct {
	mu   sync.Mutex
	subs []chan struct{}
}

func newObservers() *observers {
	return &observers{}
}

func (o *observers) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	o.mu.Lock()
	o.subs = append(o.subs, ch)
	o.mu.Unlock()

	cancel := func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, sub := range o.subs {
			if sub == ch {
				o.subs = append(o.subs[:i], o.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

func (o *observers) notify() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, ch := range o.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Observe returns a channel that receives a signal after any settings change,
// whether written through this process or edited externally. The returned
// cancel must be called when the observer is done.
func (s *Settings) Observe() (<-chan struct{}, func()) {
	return s.obs.subscribe()
}

// =============================================================================
// FILE WATCHER
// =============================================================================

// watchDebounce absorbs the write+rename event pairs editors produce.
const watchDebounce = 200 * time.Millisecond

// Watch starts the fsnotify watcher on the config file. External edits are
// reloaded and pushed to observers. Safe to call once; errors from the
// watcher are logged, never fatal.
func (s *Settings) Watch() error {
	var err error
	s.watchOnce.Do(func() {
		var w *fsnotify.Watcher
		w, err = fsnotify.NewWatcher()
		if err != nil {
			return
		}
		// Watch the directory: atomic renames replace the file inode, so
		// watching the file itself would go stale after the first save.
		if err = w.Add(s.dir); err != nil {
			w.Close()
			return
		}
		done := make(chan struct{})
		s.stopWatch = func() {
			close(done)
			w.Close()
		}
		go s.watchLoop(w, done)
	})
	return err
}

func (s *Settings) watchLoop(w *fsnotify.Watcher, done chan struct{}) {
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(s.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			if err := s.reload(); err != nil {
				log.Printf("[settings] reload after external edit: %v", err)
				continue
			}
			s.obs.notify()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("[settings] watcher: %v", err)
		}
	}
}
