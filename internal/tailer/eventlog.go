// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

package tailer

// EventLogSource reads the platform event log (the `eventlog[...]` key
// family). It is a capability interface per DESIGN NOTES §9: the Windows
// build provides WindowsEventLogSource, which reads through an injectable
// Open hook (every read fails while no hook is set); other builds return
// ErrUnsupported from Read so the scheduler can cleanly mark the check
// notSupported.
type EventLogSource interface {
	// Read returns the next eventlog record at or after offset, or an EOF
	// record once none remain.
	Read(source string, offset int64) (Record, error)
}
