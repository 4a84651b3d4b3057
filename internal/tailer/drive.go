// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

package tailer

// MatchFunc reports whether a tailed line passes the check's filters.
type MatchFunc func(value string) bool

// EmitFunc hands a matched value to the result buffer. oldOffset is the
// offset the reader was positioned at *before* this record was read: the
// buffered entry carries that pre-read offset so the server reconciles
// against where the agent started reading this record, while the registry
// itself only advances past the record once Emit succeeds. A non-nil error
// (typically a full persistent buffer) aborts the tick without advancing
// past this record.
type EmitFunc func(value string, oldOffset int64) error

// TickOutcome summarizes one evaluation tick over a log source.
type TickOutcome struct {
	NewLastLogSize int64
	NewMtime       int64
	Matched        int
	Processed      int
	// Aborted is true when emit refused a value (buffer backpressure);
	// the caller must not advance the registry's offset past
	// NewLastLogSize in that case, and should retry the same bytes next
	// tick.
	Aborted bool
}

func rateLimitReached(sCount, pCount int, maxLinesPerSecond int, refresh int64) bool {
	cap64 := int64(maxLinesPerSecond) * refresh
	if int64(sCount) >= cap64 {
		return true
	}
	if int64(pCount) >= 4*cap64 {
		return true
	}
	return false
}

// TickLog drives one evaluation tick of a `log[...]` check (no rotation).
func TickLog(fs *FileSource, path string, refresh int64, startOffset int64, maxLinesPerSecond int, match MatchFunc, emit EmitFunc) (TickOutcome, error) {
	cursor := startOffset
	committed := startOffset
	out := TickOutcome{}

	for {
		rec, err := fs.Read(path, cursor)
		if err != nil {
			return out, err
		}
		if rec.EOF {
			committed = rec.Offset
			break
		}

		oldOffset := cursor
		cursor = rec.Offset
		out.Processed++

		if match(*rec.Value) {
			if err := emit(*rec.Value, oldOffset); err != nil {
				out.Aborted = true
				out.NewLastLogSize = committed
				return out, nil
			}
			committed = cursor
			out.Matched++
		} else {
			committed = cursor
		}

		if rateLimitReached(out.Matched, out.Processed, maxLinesPerSecond, refresh) {
			break
		}
	}

	out.NewLastLogSize = committed
	return out, nil
}

// TickLogRotate drives one evaluation tick of a `logrt[...]` check. The
// current file is resolved once at the start of the tick and held fixed for
// the duration of the tick: a rotation observed mid-tick by some other means
// is picked up fresh next tick, never mid-loop.
func TickLogRotate(rs *RotatingSource, pattern string, refresh int64, startOffset, startMtime int64, maxLinesPerSecond int, match MatchFunc, emit EmitFunc) (TickOutcome, error) {
	path, curMtime, err := rs.CurrentFile(pattern)
	if err != nil {
		return TickOutcome{}, err
	}

	cursor := startOffset
	if curMtime != startMtime {
		cursor = 0
	}
	committed := cursor
	out := TickOutcome{NewMtime: curMtime}
	reader := NewFileSource(rs.Fs)

	for {
		rec, err := reader.Read(path, cursor)
		if err != nil {
			return out, err
		}
		if rec.EOF {
			committed = rec.Offset
			break
		}

		oldOffset := cursor
		cursor = rec.Offset
		out.Processed++

		if match(*rec.Value) {
			if err := emit(*rec.Value, oldOffset); err != nil {
				out.Aborted = true
				out.NewLastLogSize = committed
				return out, nil
			}
			committed = cursor
			out.Matched++
		} else {
			committed = cursor
		}

		if rateLimitReached(out.Matched, out.Processed, maxLinesPerSecond, refresh) {
			break
		}
	}

	out.NewLastLogSize = committed
	return out, nil
}

// EventLogMatchFunc reports whether an event-log record passes every
// configured filter (pattern, severity, source, event id).
type EventLogMatchFunc func(rec Record) bool

// EventEmitFunc hands a matched event-log record to the result buffer.
type EventEmitFunc func(rec Record, oldOffset int64) error

// TickEventLog drives one evaluation tick of an `eventlog[...]` check.
func TickEventLog(src EventLogSource, source string, refresh int64, startOffset int64, maxLinesPerSecond int, match EventLogMatchFunc, emit EventEmitFunc) (TickOutcome, error) {
	cursor := startOffset
	committed := startOffset
	out := TickOutcome{}

	for {
		rec, err := src.Read(source, cursor)
		if err != nil {
			return out, err
		}
		if rec.EOF {
			committed = rec.Offset
			break
		}

		oldOffset := cursor
		cursor = rec.Offset
		out.Processed++

		if match(rec) {
			if err := emit(rec, oldOffset); err != nil {
				out.Aborted = true
				out.NewLastLogSize = committed
				return out, nil
			}
			committed = cursor
			out.Matched++
		} else {
			committed = cursor
		}

		if rateLimitReached(out.Matched, out.Processed, maxLinesPerSecond, refresh) {
			break
		}
	}

	out.NewLastLogSize = committed
	return out, nil
}
