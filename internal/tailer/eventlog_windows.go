// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

//go:build windows

package tailer

import (
	"github.com/pkg/errors"
)

// WindowsEventLogSource backs eventlog[...] checks on Windows builds. The
// real event log API call (ReadEventLog/EvtNext) is treated as a pluggable
// collaborator; this type is the seam a platform-specific implementation
// plugs into.
type WindowsEventLogSource struct {
	// Open is the platform hook that yields the next event-log record. It
	// is a field rather than an embedded concrete implementation so a real
	// build can inject the actual Windows API binding without this package
	// depending on golang.org/x/sys/windows directly.
	Open func(source string, offset int64) (Record, error)
}

// Read implements EventLogSource.
func (s *WindowsEventLogSource) Read(source string, offset int64) (Record, error) {
	if s.Open == nil {
		return Record{}, errors.New("tailer: no windows event log backend configured")
	}
	return s.Open(source, offset)
}
