// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package repoindex

import (
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher wraps an *Index with an fsnotify watch on the workspace root,
// invalidating the index (debounced) on filesystem create/remove/rename/
// write events so that a long-lived session's repository file set stays
// current without re-enumerating on every query. This realizes the
// "file watcher notifications" invalidation trigger; the index itself
// remains usable, and correct, without a Watcher attached (explicit
// Invalidate calls are always sufficient).
type Watcher struct {
	idx     *Index
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	done    chan struct{}
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithLogger sets the logger used for watch-loop diagnostics.
func WithLogger(logger *slog.Logger) WatchOption {
	return func(w *Watcher) { w.logger = logger }
}

// Watch starts watching root for changes that should invalidate idx.
// The caller must call Close to release the underlying fsnotify watcher.
func Watch(idx *Index, root string, opts ...WatchOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(root); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		idx:     idx,
		watcher: fw,
		logger:  slog.Default(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	go w.loop()
	return w, nil
}

// debounceWindow bounds how often a burst of filesystem events can
// trigger invalidation; large refactors and git checkouts fire many
// events in quick succession.
const debounceWindow = 150 * time.Millisecond

func (w *Watcher) loop() {
	var pending *time.Timer
	invalidate := func() {
		w.idx.Invalidate()
		w.logger.Debug("repository index invalidated by filesystem event")
	}

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevantOp(event.Op) {
				continue
			}
			if pending == nil {
				pending = time.AfterFunc(debounceWindow, invalidate)
			} else {
				pending.Reset(debounceWindow)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("repository index watch error", "error", err)
		case <-w.done:
			if pending != nil {
				pending.Stop()
			}
			return
		}
	}
}

func relevantOp(op fsnotify.Op) bool {
	return op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0
}

// Close stops the watch loop and releases the underlying fsnotify
// watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
