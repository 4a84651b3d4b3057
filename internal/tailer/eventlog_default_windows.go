// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

//go:build windows

package tailer

// NewDefaultEventLogSource returns the platform-appropriate EventLogSource.
func NewDefaultEventLogSource() EventLogSource {
	return &WindowsEventLogSource{}
}
