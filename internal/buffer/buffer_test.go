// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEnqueue(t *testing.T, b *Buffer, e *Entry) {
	t.Helper()
	require.NoError(t, b.Enqueue(e))
}

func TestEnqueueFillsThenEvictsTransientCoalescing(t *testing.T) {
	b := New(2, 1000)
	mustEnqueue(t, b, &Entry{Host: "h", Key: "k1", Value: "1"})
	mustEnqueue(t, b, &Entry{Host: "h", Key: "k1", Value: "2"})
	require.NoError(t, b.Enqueue(&Entry{Host: "h", Key: "k1", Value: "3"}))

	assert.Equal(t, 2, b.Count())
	entries := b.Entries()
	// earliest same-key slot overwritten, not the newest; new entry lands at
	// the end, order preserved for the survivor.
	assert.Equal(t, "3", entries[1].Value)
}

func TestPersistentReserveRejected(t *testing.T) {
	b := New(4, 1000)
	for i := 0; i < 2; i++ {
		mustEnqueue(t, b, &Entry{Host: "h", Key: "log", Value: "line", Persistent: true})
	}
	err := b.Enqueue(&Entry{Host: "h", Key: "log", Value: "line3", Persistent: true})
	require.Error(t, err)
	assert.Equal(t, 2, b.PersistentCount())
}

func TestPersistentNeverEvictedByTransient(t *testing.T) {
	b := New(2, 1000)
	mustEnqueue(t, b, &Entry{Host: "h", Key: "log", Value: "line", Persistent: true})
	mustEnqueue(t, b, &Entry{Host: "h", Key: "cpu", Value: "4"})

	require.NoError(t, b.Enqueue(&Entry{Host: "h", Key: "mem", Value: "5"}))
	assert.Equal(t, 1, b.PersistentCount())
	entries := b.Entries()
	assert.True(t, entries[0].Persistent)
	assert.Equal(t, "mem", entries[1].Key)
}

func TestShouldFlush(t *testing.T) {
	b := New(4, 100)
	assert.False(t, b.ShouldFlush(100, 5), "empty buffer never flushes")

	mustEnqueue(t, b, &Entry{Host: "h", Key: "a", Value: "1"})
	assert.False(t, b.ShouldFlush(101, 5), "not stale, not full, persistent headroom")
	assert.True(t, b.ShouldFlush(106, 5), "stale enough to flush")

	b2 := New(2, 100)
	mustEnqueue(t, b2, &Entry{Host: "h", Key: "a", Value: "1"})
	mustEnqueue(t, b2, &Entry{Host: "h", Key: "b", Value: "1"})
	assert.True(t, b2.ShouldFlush(101, 5), "full buffer flushes regardless of age")
}

func TestClearResetsState(t *testing.T) {
	b := New(2, 0)
	mustEnqueue(t, b, &Entry{Host: "h", Key: "a", Value: "1", Persistent: true})
	b.Clear(500)
	assert.Equal(t, 0, b.Count())
	assert.Equal(t, 0, b.PersistentCount())
	assert.EqualValues(t, 500, b.LastSentAt())
}

func TestBufferBoundInvariant(t *testing.T) {
	b := New(6, 0)
	for i := 0; i < 20; i++ {
		_ = b.Enqueue(&Entry{Host: "h", Key: "cpu", Value: "x"})
	}
	assert.LessOrEqual(t, b.Count(), b.Cap())
	assert.LessOrEqual(t, b.PersistentCount(), b.Count())
	assert.LessOrEqual(t, b.PersistentCount(), b.Cap()/2)
}
