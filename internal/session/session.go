// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

// Package session implements the two request/response exchanges with the
// central server: refreshActiveChecks and sendBuffer. Both open a transient
// connection, send one request, read a reply, and close —
// this implementation reads to connection-close for both exchanges rather
// than distinguishing a separate length-prefixed frame for agentData, since
// the wire codec here is plain newline-free JSON with no such header; the
// two Dialer methods in internal/transport stay distinct so a future
// binary-framed transport can diverge without touching this package.
package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/watchmesh/activecore/internal/buffer"
	"github.com/watchmesh/activecore/internal/check"
	"github.com/watchmesh/activecore/internal/regexpset"
	"github.com/watchmesh/activecore/internal/transport"
	"github.com/watchmesh/activecore/internal/wire"
)

// Session ties a Dialer to one server endpoint's registry and regexp set.
type Session struct {
	Dialer  *transport.Dialer
	Addr    string
	Timeout time.Duration
	Log     *zap.SugaredLogger
}

// New returns a Session for addr.
func New(dialer *transport.Dialer, addr string, timeout time.Duration, log *zap.SugaredLogger) *Session {
	return &Session{Dialer: dialer, Addr: addr, Timeout: timeout, Log: log}
}

// RefreshActiveChecks builds the getActiveChecks request, round-trips it,
// and applies the reply to registry and regexps via ParseListOfChecks.
// Connection failure is non-fatal; the caller (the scheduler) is expected
// to retry on its own timer.
func (s *Session) RefreshActiveChecks(ctx context.Context, hostname string, registry *check.Registry, regexps *regexpset.Set) error {
	req := wire.NewEncoder(wire.ValueGetActiveChecks).Set(wire.TagHost, hostname)
	payload, err := req.Encode()
	if err != nil {
		return errors.Wrap(err, "session: encode getActiveChecks")
	}

	s.Log.Debugw("sending getActiveChecks", "payload", string(payload))
	reply, err := s.Dialer.SendAndReadUntilClose(ctx, s.Addr, payload, s.Timeout)
	if err != nil {
		s.Log.Debugw("getActiveChecks transport error", "error", err)
		return err
	}
	s.Log.Debugw("got getActiveChecks reply", "payload", string(reply))

	return ParseListOfChecks(reply, registry, regexps, s.Log)
}

// SendBuffer builds the agentData request from the whole buffer on a flush
// trigger, round-trips it with a timeout of min(count*Timeout, 60s), and
// clears the buffer only on confirmed success. On any transport or parse
// failure the buffer is left untouched so the next tick retries the same
// entries.
func (s *Session) SendBuffer(ctx context.Context, hostname string, now int64, b *buffer.Buffer, maxAge int64) error {
	if !b.ShouldFlush(now, maxAge) {
		return nil
	}

	entries := b.Entries()
	req := wire.NewEncoder(wire.ValueAgentData)
	req.Set(wire.TagData, encodeEntries(hostname, entries))
	req.Set(wire.TagClock, now)

	payload, err := req.Encode()
	if err != nil {
		return errors.Wrap(err, "session: encode agentData")
	}

	timeout := s.Timeout * time.Duration(len(entries))
	if timeout > 60*time.Second || timeout <= 0 {
		timeout = 60 * time.Second
	}

	s.Log.Debugw("sending agentData", "count", len(entries))
	reply, err := s.Dialer.SendAndReadOne(ctx, s.Addr, payload, timeout)
	if err != nil {
		s.Log.Debugw("agentData transport error", "error", err)
		return err
	}

	if err := CheckResponse(reply, s.Log); err != nil {
		return err
	}

	b.Clear(now)
	return nil
}

func encodeEntries(hostname string, entries []*buffer.Entry) []map[string]any {
	rows := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		row := map[string]any{
			wire.TagHost:  hostname,
			wire.TagKey:   e.Key,
			wire.TagValue: e.Value,
			wire.TagClock: e.Clock,
		}
		if e.LastLogSize != nil {
			row[wire.TagLastLogSize] = *e.LastLogSize
		}
		if e.Mtime != nil {
			row[wire.TagMtime] = *e.Mtime
		}
		if e.Timestamp != nil {
			row[wire.TagTimestamp] = *e.Timestamp
		}
		if e.Source != nil {
			row[wire.TagSource] = *e.Source
		}
		if e.Severity != nil {
			row[wire.TagSeverity] = *e.Severity
		}
		if e.LogEventID != nil {
			row[wire.TagLogEventID] = *e.LogEventID
		}
		rows = append(rows, row)
	}
	return rows
}

// CheckResponse reports success iff the reply parses and its response tag
// is "success"; any info tag is logged for diagnostics either way.
func CheckResponse(reply []byte, log *zap.SugaredLogger) error {
	tree, err := wire.Parse(reply)
	if err != nil {
		return errors.Wrap(err, "session: parse response")
	}
	if info, ok := tree.ValueByName(wire.TagInfo); ok {
		log.Debugw("info from server", "info", info)
	}
	resp, ok := tree.ValueByName(wire.TagResponse)
	if !ok || resp != wire.ValueSuccess {
		return errors.Errorf("session: server response was %q", resp)
	}
	return nil
}
