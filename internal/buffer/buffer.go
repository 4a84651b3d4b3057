// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

// Package buffer implements a bounded, dual-priority outbound value queue.
// Persistent entries (log/event-log records) must never be silently
// dropped; transient entries (numeric samples) may be coalesced by a
// fresher same-(host,key) sample.
package buffer

import (
	"go.uber.org/atomic"
)

// NotSupported is the sentinel value carried on the wire for checks the
// agent can no longer evaluate.
const NotSupported = "NOTSUPPORTED"

// Entry is one pending outbound value.
type Entry struct {
	Host       string
	Key        string
	Value      string
	Clock      int64
	Persistent bool

	LastLogSize *int64
	Mtime       *int64
	Timestamp   *int64
	Source      *string
	Severity    *string
	LogEventID  *int64
}

func sameSlot(a, b *Entry) bool {
	return a.Host == b.Host && a.Key == b.Key
}

// ErrPersistentFull is returned by Enqueue when a persistent insert would
// exceed the reserved half of capacity.
type ErrPersistentFull struct{}

func (ErrPersistentFull) Error() string {
	return "buffer: persistent slots full, rejecting persistent value"
}

// Buffer is the bounded queue. It is not safe for concurrent use from more
// than one goroutine: each endpoint owns exactly one cooperative goroutine,
// so no locking is needed internally.
type Buffer struct {
	cap        int
	data       []*Entry
	count      atomic.Int64
	persistent atomic.Int64
	lastSentAt int64
}

// New returns an empty buffer with the given capacity. Capacity must be >= 2
// so the persistent half-reserve (CAP/2) is non-degenerate. now seeds
// lastSentAt the way init_active_metrics() seeds buffer.lastsent, so the
// flush-on-staleness check doesn't fire spuriously before the first value is
// ever buffered.
func New(capacity int, now int64) *Buffer {
	return &Buffer{
		cap:        capacity,
		data:       make([]*Entry, 0, capacity),
		lastSentAt: now,
	}
}

// Count is the total number of buffered entries.
func (b *Buffer) Count() int { return int(b.count.Load()) }

// PersistentCount is the number of buffered persistent entries.
func (b *Buffer) PersistentCount() int { return int(b.persistent.Load()) }

// Cap is the buffer's configured capacity.
func (b *Buffer) Cap() int { return b.cap }

// LastSentAt is the clock value at the last successful send, or the now
// passed to New if nothing has been sent yet.
func (b *Buffer) LastSentAt() int64 { return b.lastSentAt }

// Entries exposes the buffered entries in FIFO send order. Callers must not
// mutate the returned slice.
func (b *Buffer) Entries() []*Entry { return b.data }

// Enqueue inserts entry following these rules:
//   - a persistent insert is rejected outright once persistentCount reaches
//     CAP/2, regardless of free slots elsewhere (the reserve is sacred);
//   - while there is free room, append;
//   - once full, evict a victim: for a transient entry, prefer an existing
//     same-(host,key) transient slot (coalescing); otherwise (no coalescing
//     target, or the new entry is persistent) evict the first non-persistent
//     slot. The victim's slot is removed and the new entry appended at the
//     end, preserving FIFO order for everything that survives.
func (b *Buffer) Enqueue(entry *Entry) error {
	if entry.Persistent && b.PersistentCount() >= b.cap/2 {
		return ErrPersistentFull{}
	}

	if b.Count() < b.cap {
		b.data = append(b.data, entry)
		b.count.Inc()
		if entry.Persistent {
			b.persistent.Inc()
		}
		return nil
	}

	victim := -1
	if !entry.Persistent {
		for i, e := range b.data {
			if !e.Persistent && sameSlot(e, entry) {
				victim = i
				break
			}
		}
	}
	if victim == -1 {
		for i, e := range b.data {
			if !e.Persistent {
				victim = i
				break
			}
		}
	}
	if victim == -1 {
		// Every slot is persistent and this insert is also persistent:
		// the CAP/2 reserve check above should have already rejected it.
		// Defensive fallback, should be unreachable.
		return ErrPersistentFull{}
	}

	evicted := b.data[victim]
	b.data = append(b.data[:victim], b.data[victim+1:]...)
	b.data = append(b.data, entry)
	if evicted.Persistent {
		b.persistent.Dec()
	}
	if entry.Persistent {
		b.persistent.Inc()
	}
	return nil
}

// ShouldFlush reports the flush trigger: never flush an empty buffer;
// otherwise flush unless the buffer still has persistent headroom, isn't
// full, and isn't stale.
func (b *Buffer) ShouldFlush(now, maxAge int64) bool {
	if b.Count() == 0 {
		return false
	}
	if b.PersistentCount() < b.cap/2 && b.Count() < b.cap && now-b.lastSentAt < maxAge {
		return false
	}
	return true
}

// Clear drops every entry and resets counters after a successful send.
func (b *Buffer) Clear(now int64) {
	b.data = b.data[:0]
	b.count.Store(0)
	b.persistent.Store(0)
	b.lastSentAt = now
}
