// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

// Package endpoint ties one server endpoint's registry, regexp set, and
// result buffer together behind a cooperative scheduler loop: one goroutine
// per endpoint, no shared mutable state across endpoints, no internal
// locking.
package endpoint

import (
	"context"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/watchmesh/activecore/internal/buffer"
	"github.com/watchmesh/activecore/internal/check"
	"github.com/watchmesh/activecore/internal/config"
	"github.com/watchmesh/activecore/internal/evaluator"
	"github.com/watchmesh/activecore/internal/regexpset"
	"github.com/watchmesh/activecore/internal/session"
	"github.com/watchmesh/activecore/internal/tailer"
)

// Endpoint owns every piece of mutable state for one configured server.
type Endpoint struct {
	Config    *config.Config
	Session   *session.Session
	Registry  *check.Registry
	Regexps   *regexpset.Set
	Buffer    *buffer.Buffer
	Evaluator evaluator.Evaluator

	FileSource     *tailer.FileSource
	RotatingSource *tailer.RotatingSource
	EventLogSource tailer.EventLogSource

	// NewRotationHint constructs the fsnotify-backed hint for a given
	// directory; overridable in tests. rotationHints holds one hint per
	// directory that a logrt[...] pattern has resolved into, created
	// lazily the first time resolveCurrentFile sees that directory —
	// the set of watched directories isn't known until the checklist is
	// loaded from the server.
	NewRotationHint func(dir string) (*tailer.RotationHint, error)
	rotationHints   map[string]*tailer.RotationHint
	rotationCache   map[string]cachedRotation

	Log *zap.SugaredLogger

	// Clock is injectable for deterministic tests; defaults to wall time.
	Clock func() int64
	// SetTitle reports what the loop is currently doing, the way a daemon
	// updates its process title for `ps`; the default is a no-op.
	SetTitle func(string)

	nextSendAt    int64
	nextRefreshAt int64
	nextCheckAt   int64
}

type cachedRotation struct {
	path  string
	mtime int64
}

// Close releases every rotation watcher opened during Run. Safe to call
// even if Run was never invoked.
func (e *Endpoint) Close() {
	for _, h := range e.rotationHints {
		h.Close()
	}
}

// New constructs an Endpoint ready to Run, backed by the real filesystem.
func New(cfg *config.Config, sess *session.Session, log *zap.SugaredLogger) *Endpoint {
	now := time.Now().Unix()
	fs := afero.NewOsFs()
	return &Endpoint{
		Config:          cfg,
		Session:         sess,
		Registry:        check.NewRegistry(),
		Regexps:         regexpset.NewSet(),
		Buffer:          buffer.New(cfg.BufferSize, now),
		Evaluator:       evaluator.NewRegistry(),
		FileSource:      tailer.NewFileSource(fs),
		RotatingSource:  tailer.NewRotatingSource(fs),
		EventLogSource:  tailer.NewDefaultEventLogSource(),
		NewRotationHint: tailer.NewRotationHint,
		rotationHints:   make(map[string]*tailer.RotationHint),
		rotationCache:   make(map[string]cachedRotation),
		Log:             log,
		Clock:           func() int64 { return time.Now().Unix() },
		SetTitle:        func(string) {},
	}
}

// Run drives the cooperative loop until ctx is cancelled. The current
// iteration always completes before Run returns; the buffer is not flushed
// on exit and is held only in memory, so values still buffered at shutdown
// are lost.
func (e *Endpoint) Run(ctx context.Context) error {
	e.Log.Infow("active checks endpoint started", "server", e.Session.Addr)
	defer e.Log.Infow("active checks endpoint stopped", "server", e.Session.Addr)

	for {
		if ctx.Err() != nil {
			return nil
		}

		now := e.Clock()

		if now >= e.nextSendAt {
			if err := e.Session.SendBuffer(ctx, e.Config.Hostname, now, e.Buffer, e.Config.BufferSend); err != nil {
				e.Log.Debugw("send buffer failed, will retry", "error", err)
			}
			e.nextSendAt = now + 1
		}

		if now >= e.nextRefreshAt {
			e.SetTitle("poller [getting list of active checks]")
			if err := e.Session.RefreshActiveChecks(ctx, e.Config.Hostname, e.Registry, e.Regexps); err != nil {
				e.Log.Debugw("refresh active checks failed, retrying in 60s", "error", err)
				e.nextRefreshAt = now + 60
			} else {
				e.nextRefreshAt = now + e.Config.RefreshActiveChecks
			}
		}

		// The sleep below is the `else` of this condition alone, exactly
		// as in the original loop: a send or refresh earlier in this same
		// iteration does not suppress the sleep when evaluation isn't due.
		if now >= e.nextCheckAt && e.Buffer.PersistentCount() < e.Buffer.Cap()/2 {
			e.SetTitle("poller [processing active checks]")
			e.processActiveChecks(now)

			if e.Buffer.PersistentCount() >= e.Buffer.Cap()/2 {
				// Backpressure: don't advance nextCheckAt, loop back
				// immediately so the next iteration focuses on draining
				// via SendBuffer above.
				continue
			}
			if min, ok := e.Registry.MinNextCheck(); ok {
				e.nextCheckAt = min
			} else {
				e.nextCheckAt = now + 60
			}
		} else {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}
