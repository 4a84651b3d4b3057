// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

// Package tailer implements stateful incremental reading over single files,
// rotating file sets, and the platform event log, dispatched by the `log[`,
// `logrt[`, and `eventlog[` key prefixes.
//
// The low-level "does this file have more bytes, and what are they"
// question is treated as a pluggable collaborator; this package implements
// a reasonable default over github.com/spf13/afero so the module is
// runnable and testable without a real disk, while keeping offset
// preservation across reads front and center.
package tailer

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Record is one yielded tuple from a reader: either a matched/unmatched
// line (Value non-nil) or an end-of-file marker (Value nil) carrying the
// offset the registry should persist. The file readers set only Value,
// Offset and EOF; the remaining fields are for eventlog sources.
type Record struct {
	Value    *string
	Offset   int64
	Mtime    int64
	EOF      bool
	Source   string
	Severity string
	// LogEventID is only populated for eventlog records.
	LogEventID int64
	Timestamp  int64
}

// ErrUnsupported is returned by a reader when the requested source cannot
// be read on this platform or in this build (e.g. eventlog on non-Windows).
var ErrUnsupported = errors.New("tailer: source not supported")

// Params is the parsed, common shape of a log[...]/logrt[...] key's
// parameter list.
type Params struct {
	File              string
	Pattern           string
	Encoding          string
	MaxLinesPerSecond int
}

// EventLogParams is eventlog[...]'s parameter list.
type EventLogParams struct {
	File              string
	Pattern           string
	SeverityFilter    string
	SourceFilter      string
	EventIDFilter     string
	MaxLinesPerSecond int
}

// ParseLogParams parses a log[file,pattern?,encoding?,maxLinesPerSecond?]
// parameter string (already split on commas by the caller) with a strict
// upper bound of 4 parameters.
func ParseLogParams(params []string, defaultMaxLines, minLines, maxLines int) (Params, error) {
	if len(params) == 0 || len(params) > 4 {
		return Params{}, errors.Errorf("log: expected 1-4 parameters, got %d", len(params))
	}
	p := Params{File: params[0]}
	if len(params) >= 2 {
		p.Pattern = params[1]
	}
	if len(params) >= 3 {
		p.Encoding = strings.ToUpper(params[2])
	}
	p.MaxLinesPerSecond = defaultMaxLines
	if len(params) >= 4 && params[3] != "" {
		n, err := strconv.Atoi(params[3])
		if err != nil {
			return Params{}, errors.Wrap(err, "log: maxLinesPerSecond must be an integer")
		}
		if n < minLines || n > maxLines {
			return Params{}, errors.Errorf("log: maxLinesPerSecond %d out of range [%d,%d]", n, minLines, maxLines)
		}
		p.MaxLinesPerSecond = n
	}
	if p.File == "" {
		return Params{}, errors.New("log: file parameter required")
	}
	if p.Encoding != "" && p.Encoding != "UTF-8" {
		return Params{}, errors.Errorf("log: unsupported encoding %q", p.Encoding)
	}
	return p, nil
}

// ParseEventLogParams parses eventlog[...]'s up-to-6-parameter list.
func ParseEventLogParams(params []string, defaultMaxLines, minLines, maxLines int) (EventLogParams, error) {
	if len(params) == 0 || len(params) > 6 {
		return EventLogParams{}, errors.Errorf("eventlog: expected 1-6 parameters, got %d", len(params))
	}
	p := EventLogParams{File: params[0]}
	if len(params) >= 2 {
		p.Pattern = params[1]
	}
	if len(params) >= 3 {
		p.SeverityFilter = params[2]
	}
	if len(params) >= 4 {
		p.SourceFilter = params[3]
	}
	if len(params) >= 5 {
		p.EventIDFilter = params[4]
	}
	p.MaxLinesPerSecond = defaultMaxLines
	if len(params) >= 6 && params[5] != "" {
		n, err := strconv.Atoi(params[5])
		if err != nil {
			return EventLogParams{}, errors.Wrap(err, "eventlog: maxLinesPerSecond must be an integer")
		}
		if n < minLines || n > maxLines {
			return EventLogParams{}, errors.Errorf("eventlog: maxLinesPerSecond %d out of range [%d,%d]", n, minLines, maxLines)
		}
		p.MaxLinesPerSecond = n
	}
	if p.File == "" {
		return EventLogParams{}, errors.New("eventlog: source name required")
	}
	return p, nil
}

// SplitKeyParams splits the bracketed parameter list of a key like
// "log[/var/log/a.log,pattern,,5]" into its comma-separated fields. It does
// not attempt to handle escaped commas beyond the simple cases active
// checks use in practice.
func SplitKeyParams(key, prefix string) ([]string, bool) {
	if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, "]") {
		return nil, false
	}
	inner := key[len(prefix) : len(key)-1]
	if inner == "" {
		return nil, false
	}
	return strings.Split(inner, ","), true
}
