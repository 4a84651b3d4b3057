// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

package tailer

import (
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// RotationHint watches a directory for filesystem events so a real
// deployment can skip RotatingSource.CurrentFile's glob+stat scan on ticks
// where nothing changed. It is an optimization only: TickLogRotate always
// re-resolves the current file itself before reading, so a missed event
// never changes which bytes are read; it can only leave a cached
// resolution (and the mtime attached to buffered entries) in use until the
// next event in that directory.
type RotationHint struct {
	watcher *fsnotify.Watcher
	dirty   atomic.Bool
}

// NewRotationHint starts watching dir. It is best-effort: on platforms or
// filesystems where fsnotify can't watch (common in containers with
// overlay/network mounts), it returns a hint that always reports dirty, so
// callers fall back to scanning every tick.
func NewRotationHint(dir string) (*RotationHint, error) {
	h := &RotationHint{}
	h.dirty.Store(true)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return h, errors.Wrap(err, "tailer: rotation watcher unavailable, falling back to per-tick scan")
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return h, errors.Wrapf(err, "tailer: watch %q, falling back to per-tick scan", dir)
	}
	h.watcher = w

	go func() {
		for {
			select {
			case _, ok := <-w.Events:
				if !ok {
					h.dirty.Store(true)
					return
				}
				h.dirty.Store(true)
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
				h.dirty.Store(true)
			}
		}
	}()

	return h, nil
}

// Stale reports whether a rescan is warranted, and clears the flag. A hint
// whose watcher failed to start always reports true.
func (h *RotationHint) Stale() bool {
	if h.watcher == nil {
		return true
	}
	return h.dirty.Swap(false)
}

// Close stops the underlying watcher, if any.
func (h *RotationHint) Close() error {
	if h.watcher == nil {
		return nil
	}
	return h.watcher.Close()
}
