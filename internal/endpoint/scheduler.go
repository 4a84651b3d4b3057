// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

package endpoint

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/watchmesh/activecore/internal/buffer"
	"github.com/watchmesh/activecore/internal/check"
	"github.com/watchmesh/activecore/internal/config"
	"github.com/watchmesh/activecore/internal/tailer"
)

// processActiveChecks evaluates every due check in registry order. A check
// that aborts mid-tick because the buffer's persistent reserve is full
// halts the entire pass immediately: the aborted check keeps its current
// NextCheckAt so the same unread bytes are retried on the next tick.
func (e *Endpoint) processActiveChecks(now int64) {
	for _, c := range e.Registry.All() {
		if !c.Runnable(now) {
			continue
		}

		var aborted bool
		switch {
		case strings.HasPrefix(c.Key, "log["):
			aborted = e.processLog(c, now)
		case strings.HasPrefix(c.Key, "logrt["):
			aborted = e.processLogRotate(c, now)
		case strings.HasPrefix(c.Key, "eventlog["):
			aborted = e.processEventLog(c, now)
		default:
			e.processGeneric(c, now)
		}

		if aborted {
			return
		}
		c.NextCheckAt = now + c.Refresh
	}
}

func (e *Endpoint) processLog(c *check.Check, now int64) bool {
	params, ok := tailer.SplitKeyParams(c.Key, "log[")
	if !ok {
		e.markUnsupported(c, now, errors.Errorf("malformed key %q", c.Key))
		return false
	}
	parsed, err := tailer.ParseLogParams(params, e.Config.MaxLinesPerSecond, config.MinValueLines, config.MaxValueLines)
	if err != nil {
		e.markUnsupported(c, now, err)
		return false
	}

	match := func(value string) bool { return e.Regexps.Match(value, parsed.Pattern, true) }
	emit := func(value string, oldOffset int64) error {
		return e.Buffer.Enqueue(&buffer.Entry{
			Host:        e.Config.Hostname,
			Key:         c.KeyOrig,
			Value:       value,
			Clock:       now,
			Persistent:  true,
			LastLogSize: ptrInt64(oldOffset),
		})
	}

	out, err := tailer.TickLog(e.FileSource, parsed.File, c.Refresh, c.LastLogSize, parsed.MaxLinesPerSecond, match, emit)
	if err != nil {
		e.markUnsupported(c, now, err)
		return false
	}
	c.LastLogSize = out.NewLastLogSize
	return out.Aborted
}

func (e *Endpoint) processLogRotate(c *check.Check, now int64) bool {
	params, ok := tailer.SplitKeyParams(c.Key, "logrt[")
	if !ok {
		e.markUnsupported(c, now, errors.Errorf("malformed key %q", c.Key))
		return false
	}
	parsed, err := tailer.ParseLogParams(params, e.Config.MaxLinesPerSecond, config.MinValueLines, config.MaxValueLines)
	if err != nil {
		e.markUnsupported(c, now, err)
		return false
	}

	// Resolved once, up front, purely to attach the current file's mtime
	// to buffered entries below; TickLogRotate resolves the same pattern
	// again internally and holds it fixed for the rest of this tick.
	// resolveCurrentFile consults the directory's rotation hint first so
	// an idle directory doesn't cost a glob+stat scan on every tick.
	_, curMtime, err := e.resolveCurrentFile(parsed.File)
	if err != nil {
		e.markUnsupported(c, now, err)
		return false
	}

	match := func(value string) bool { return e.Regexps.Match(value, parsed.Pattern, true) }
	emit := func(value string, oldOffset int64) error {
		return e.Buffer.Enqueue(&buffer.Entry{
			Host:        e.Config.Hostname,
			Key:         c.KeyOrig,
			Value:       value,
			Clock:       now,
			Persistent:  true,
			LastLogSize: ptrInt64(oldOffset),
			Mtime:       ptrInt64(curMtime),
		})
	}

	out, err := tailer.TickLogRotate(e.RotatingSource, parsed.File, c.Refresh, c.LastLogSize, c.Mtime, parsed.MaxLinesPerSecond, match, emit)
	if err != nil {
		e.markUnsupported(c, now, err)
		return false
	}
	c.LastLogSize = out.NewLastLogSize
	c.Mtime = out.NewMtime
	return out.Aborted
}

func (e *Endpoint) processEventLog(c *check.Check, now int64) bool {
	params, ok := tailer.SplitKeyParams(c.Key, "eventlog[")
	if !ok {
		e.markUnsupported(c, now, errors.Errorf("malformed key %q", c.Key))
		return false
	}
	parsed, err := tailer.ParseEventLogParams(params, e.Config.MaxLinesPerSecond, config.MinValueLines, config.MaxValueLines)
	if err != nil {
		e.markUnsupported(c, now, err)
		return false
	}

	match := func(rec tailer.Record) bool {
		if rec.Value == nil {
			return false
		}
		if parsed.Pattern != "" && !e.Regexps.Match(*rec.Value, parsed.Pattern, true) {
			return false
		}
		if parsed.SeverityFilter != "" && !strings.Contains(parsed.SeverityFilter, rec.Severity) {
			return false
		}
		if parsed.SourceFilter != "" && !strings.EqualFold(parsed.SourceFilter, rec.Source) {
			return false
		}
		if parsed.EventIDFilter != "" && strconv.FormatInt(rec.LogEventID, 10) != parsed.EventIDFilter {
			return false
		}
		return true
	}
	emit := func(rec tailer.Record, oldOffset int64) error {
		value := ""
		if rec.Value != nil {
			value = *rec.Value
		}
		return e.Buffer.Enqueue(&buffer.Entry{
			Host:        e.Config.Hostname,
			Key:         c.KeyOrig,
			Value:       value,
			Clock:       now,
			Persistent:  true,
			LastLogSize: ptrInt64(oldOffset),
			Timestamp:   ptrInt64(rec.Timestamp),
			Source:      ptrString(rec.Source),
			Severity:    ptrString(rec.Severity),
			LogEventID:  ptrInt64(rec.LogEventID),
		})
	}

	out, err := tailer.TickEventLog(e.EventLogSource, parsed.File, c.Refresh, c.LastLogSize, parsed.MaxLinesPerSecond, match, emit)
	if err != nil {
		e.markUnsupported(c, now, err)
		return false
	}
	c.LastLogSize = out.NewLastLogSize
	return out.Aborted
}

func (e *Endpoint) processGeneric(c *check.Check, now int64) {
	result := e.Evaluator.Evaluate(c.Key)
	if err := e.Buffer.Enqueue(&buffer.Entry{
		Host:       e.Config.Hostname,
		Key:        c.KeyOrig,
		Value:      result.Text,
		Clock:      now,
		Persistent: false,
	}); err != nil {
		e.Log.Debugw("dropped transient value", "key", c.KeyOrig, "error", err)
	}
	if result.Text == buffer.NotSupported {
		c.Status = check.StatusNotSupported
		e.Log.Warnw("check evaluation unsupported", "key", c.KeyOrig, "error", result.Err)
	}
}

// markUnsupported soft-disables a check and emits one NOTSUPPORTED sentinel
// carrying its last known offsets, so an unreadable log source is reported
// back to the server rather than silently going quiet.
func (e *Endpoint) markUnsupported(c *check.Check, now int64, reason error) {
	c.Status = check.StatusNotSupported
	e.Log.Warnw("check unsupported", "key", c.KeyOrig, "error", reason)

	if err := e.Buffer.Enqueue(&buffer.Entry{
		Host:        e.Config.Hostname,
		Key:         c.KeyOrig,
		Value:       buffer.NotSupported,
		Clock:       now,
		Persistent:  false,
		LastLogSize: ptrInt64(c.LastLogSize),
		Mtime:       ptrInt64(c.Mtime),
	}); err != nil {
		e.Log.Debugw("dropped notsupported sentinel", "key", c.KeyOrig, "error", err)
	}
}

// resolveCurrentFile resolves pattern's current file, reusing the last
// resolution when the pattern's directory hasn't changed since. The hint is
// keyed by filepath.Dir(pattern), not by the pattern itself: several
// logrt[...] patterns sharing a directory share a watcher, and a stale hint
// for one directory never masks a rotation happening in another.
func (e *Endpoint) resolveCurrentFile(pattern string) (string, int64, error) {
	hint := e.rotationHintFor(pattern)
	if hint != nil && !hint.Stale() {
		if cached, ok := e.rotationCache[pattern]; ok {
			return cached.path, cached.mtime, nil
		}
	}

	path, mtime, err := e.RotatingSource.CurrentFile(pattern)
	if err != nil {
		return "", 0, err
	}
	if e.rotationCache == nil {
		e.rotationCache = make(map[string]cachedRotation)
	}
	e.rotationCache[pattern] = cachedRotation{path: path, mtime: mtime}
	return path, mtime, nil
}

// rotationHintFor returns the watcher for pattern's directory, creating it
// on first use. A watcher that fails to start (unsupported filesystem, no
// inotify headroom) is cached too, since tailer.NewRotationHint returns a
// hint that always reports stale in that case rather than a usable one.
func (e *Endpoint) rotationHintFor(pattern string) *tailer.RotationHint {
	if e.NewRotationHint == nil {
		return nil
	}
	dir := filepath.Dir(pattern)
	if hint, ok := e.rotationHints[dir]; ok {
		return hint
	}
	hint, err := e.NewRotationHint(dir)
	if err != nil {
		e.Log.Debugw("rotation hint unavailable, scanning this directory every tick", "dir", dir, "error", err)
	}
	if e.rotationHints == nil {
		e.rotationHints = make(map[string]*tailer.RotationHint)
	}
	e.rotationHints[dir] = hint
	return hint
}

func ptrInt64(v int64) *int64    { return &v }
func ptrString(v string) *string { return &v }
