// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

package tailer

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func TestFileSourceReadsLinesSequentially(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a.log", "one\ntwo\nthree\n")
	src := NewFileSource(fs)

	rec, err := src.Read("/a.log", 0)
	require.NoError(t, err)
	require.NotNil(t, rec.Value)
	assert.Equal(t, "one", *rec.Value)

	rec, err = src.Read("/a.log", rec.Offset)
	require.NoError(t, err)
	assert.Equal(t, "two", *rec.Value)
}

func TestFileSourceEOFAtEnd(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a.log", "one\n")
	src := NewFileSource(fs)

	rec, err := src.Read("/a.log", 0)
	require.NoError(t, err)
	require.NotNil(t, rec.Value)

	rec, err = src.Read("/a.log", rec.Offset)
	require.NoError(t, err)
	assert.True(t, rec.EOF)
	assert.Nil(t, rec.Value)
}

func TestFileSourcePartialTrailingLineNotConsumed(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a.log", "complete\nparti")
	src := NewFileSource(fs)

	rec, err := src.Read("/a.log", 0)
	require.NoError(t, err)
	assert.Equal(t, "complete", *rec.Value)

	rec, err = src.Read("/a.log", rec.Offset)
	require.NoError(t, err)
	assert.True(t, rec.EOF)
	assert.EqualValues(t, len("complete\n"), rec.Offset)
}

func TestFileSourceTruncationResetsToNewEOF(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a.log", "short\n")
	src := NewFileSource(fs)

	rec, err := src.Read("/a.log", 1000) // offset beyond current size: truncated
	require.NoError(t, err)
	assert.True(t, rec.EOF)
	assert.EqualValues(t, len("short\n"), rec.Offset)
}

func TestTickLogRateCap(t *testing.T) {
	fs := afero.NewMemMapFs()
	var b strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	writeFile(t, fs, "/a.log", b.String())
	src := NewFileSource(fs)

	var emitted []string
	emit := func(value string, oldOffset int64) error {
		emitted = append(emitted, value)
		return nil
	}
	match := func(string) bool { return true }

	out, err := TickLog(src, "/a.log", 1, 0, 10, match, emit)
	require.NoError(t, err)
	assert.Equal(t, 10, out.Matched)
	assert.Len(t, emitted, 10)

	out2, err := TickLog(src, "/a.log", 1, out.NewLastLogSize, 10, match, emit)
	require.NoError(t, err)
	assert.Equal(t, 10, out2.Matched)
	assert.Len(t, emitted, 20)
}

func TestTickLogAbortsOnPersistentFullWithoutAdvancing(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a.log", "l1\nl2\nl3\nl4\n")
	src := NewFileSource(fs)

	calls := 0
	emit := func(value string, oldOffset int64) error {
		calls++
		if calls == 2 {
			return assert.AnError
		}
		return nil
	}
	match := func(string) bool { return true }

	out, err := TickLog(src, "/a.log", 10, 0, 100, match, emit)
	require.NoError(t, err)
	assert.True(t, out.Aborted)
	// only l1 was committed; l2's bytes must be re-read next tick.
	assert.EqualValues(t, len("l1\n"), out.NewLastLogSize)

	// retry from the committed offset re-emits l2.
	var replay []string
	emit2 := func(value string, oldOffset int64) error {
		replay = append(replay, value)
		return nil
	}
	out2, err := TickLog(src, "/a.log", 10, out.NewLastLogSize, 100, match, emit2)
	require.NoError(t, err)
	assert.Equal(t, []string{"l2", "l3", "l4"}, replay)
	assert.False(t, out2.Aborted)
}

func TestTickLogUnmatchedLinesStillAdvanceOffset(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a.log", "skip\nkeep\n")
	src := NewFileSource(fs)

	var emitted []string
	emit := func(value string, oldOffset int64) error {
		emitted = append(emitted, value)
		return nil
	}
	match := func(v string) bool { return v == "keep" }

	out, err := TickLog(src, "/a.log", 10, 0, 100, match, emit)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, emitted)
	assert.EqualValues(t, len("skip\nkeep\n"), out.NewLastLogSize)
}

func TestRotatingSourceDetectsRotation(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/app.log.1", "old1\nold2\n")
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	require.NoError(t, fs.Chtimes("/app.log.1", older, older))

	rs := NewRotatingSource(fs)

	path, mtime1, err := rs.CurrentFile("/app.log*")
	require.NoError(t, err)
	assert.Equal(t, "/app.log.1", path)

	out, err := TickLogRotate(rs, "/app.log*", 10, 0, 0, 100, func(string) bool { return true }, func(string, int64) error { return nil })
	require.NoError(t, err)
	assert.EqualValues(t, len("old1\nold2\n"), out.NewLastLogSize)
	assert.Equal(t, mtime1, out.NewMtime)

	// simulate rotation: a new file with a later mtime appears.
	writeFile(t, fs, "/app.log.2", "new1\n")
	require.NoError(t, fs.Chtimes("/app.log.2", newer, newer))

	path2, mtime2, err := rs.CurrentFile("/app.log*")
	require.NoError(t, err)
	assert.Equal(t, "/app.log.2", path2)
	assert.NotEqual(t, mtime1, mtime2)

	out2, err := TickLogRotate(rs, "/app.log*", 10, out.NewLastLogSize, out.NewMtime, 100, func(string) bool { return true }, func(string, int64) error { return nil })
	require.NoError(t, err)
	assert.EqualValues(t, len("new1\n"), out2.NewLastLogSize, "rotation restarts at offset 0 of the new file")
}

func TestSplitKeyParams(t *testing.T) {
	params, ok := SplitKeyParams("log[/var/log/a.log,ERROR,,5]", "log[")
	require.True(t, ok)
	assert.Equal(t, []string{"/var/log/a.log", "ERROR", "", "5"}, params)

	_, ok = SplitKeyParams("logrt[/var/log/a.log]", "log[")
	assert.False(t, ok)
}

func TestParseLogParams(t *testing.T) {
	p, err := ParseLogParams([]string{"/var/log/a.log", "ERROR", "UTF-8", "20"}, 10, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, "/var/log/a.log", p.File)
	assert.Equal(t, 20, p.MaxLinesPerSecond)

	_, err = ParseLogParams([]string{"a", "b", "c", "d", "e"}, 10, 1, 1000)
	assert.Error(t, err)

	_, err = ParseLogParams([]string{"/var/log/a.log", "", "", "99999"}, 10, 1, 1000)
	assert.Error(t, err)
}
