// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

// Package wire implements the tagged object-tree text codec used for both
// requests sent to, and replies received from, the central server. The wire
// format is JSON; the package exists so the rest of the module never imports
// encoding/json directly and instead goes through a vocabulary (ValueByName,
// IntByName, BracketsByName, Rows) that matches the protocol's own tag names.
package wire

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// Protocol tag names used on the wire by both requests and replies.
const (
	TagRequest  = "request"
	TagResponse = "response"
	TagInfo     = "info"
	TagHost     = "host"
	TagData     = "data"
	TagRegexp   = "regexp"
	TagClock    = "clock"

	TagKey         = "key"
	TagKeyOrig     = "key_orig"
	TagDelay       = "delay"
	TagLastLogSize = "lastlogsize"
	TagMtime       = "mtime"

	TagName            = "name"
	TagExpression      = "expression"
	TagExpressionType  = "expression_type"
	TagExpDelimiter    = "exp_delimiter"
	TagCaseSensitive   = "case_sensitive"

	TagValue      = "value"
	TagTimestamp  = "timestamp"
	TagSource     = "source"
	TagSeverity   = "severity"
	TagLogEventID = "logeventid"

	ValueGetActiveChecks = "active checks"
	ValueAgentData       = "agent data"
	ValueSuccess         = "success"
	ValueFailed          = "failed"
)

// Tree is a parsed object or array node. It wraps whatever encoding/json
// decoded (map[string]any, []any, or a scalar) behind an interface so
// callers never touch the underlying JSON representation directly.
type Tree struct {
	raw any
}

// Parse decodes raw reply bytes into a Tree. A parse error is reported
// through Strerror on the returned error so callers get a single-line
// reason suitable for logging.
func Parse(data []byte) (*Tree, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "wire: malformed object tree")
	}
	return &Tree{raw: raw}, nil
}

// Strerror renders a parse error in a single line, the Go analogue of
// zbx_json_strerror().
func Strerror(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (t *Tree) object() (map[string]any, bool) {
	if t == nil {
		return nil, false
	}
	m, ok := t.raw.(map[string]any)
	return m, ok
}

// ValueByName returns the string form of a scalar leaf. Integers may arrive
// either as JSON numbers or as quoted strings; cast.ToString handles either
// representation uniformly.
func (t *Tree) ValueByName(name string) (string, bool) {
	m, ok := t.object()
	if !ok {
		return "", false
	}
	v, ok := m[name]
	if !ok || v == nil {
		return "", false
	}
	return cast.ToString(v), true
}

// IntByName returns the integer form of a scalar leaf, accepting both
// numeric and quoted-string encodings.
func (t *Tree) IntByName(name string) (int64, bool) {
	m, ok := t.object()
	if !ok {
		return 0, false
	}
	v, ok := m[name]
	if !ok || v == nil {
		return 0, false
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// BracketsByName opens a named array or object child, the equivalent of
// zbx_json_brackets_by_name.
func (t *Tree) BracketsByName(name string) (*Tree, bool) {
	m, ok := t.object()
	if !ok {
		return nil, false
	}
	v, ok := m[name]
	if !ok || v == nil {
		return nil, false
	}
	return &Tree{raw: v}, true
}

// Rows returns the elements of an array tree opened via BracketsByName, the
// equivalent of repeated zbx_json_next calls each wrapped with
// zbx_json_brackets_open.
func (t *Tree) Rows() []*Tree {
	if t == nil {
		return nil
	}
	arr, ok := t.raw.([]any)
	if !ok {
		return nil
	}
	rows := make([]*Tree, 0, len(arr))
	for _, v := range arr {
		rows = append(rows, &Tree{raw: v})
	}
	return rows
}

// Encoder builds a request message in the tagged object-tree form.
type Encoder struct {
	fields map[string]any
}

// NewEncoder starts a request of the given operation, the top-level
// "request" tag.
func NewEncoder(request string) *Encoder {
	return &Encoder{fields: map[string]any{TagRequest: request}}
}

// Set adds a scalar or nested field.
func (e *Encoder) Set(name string, value any) *Encoder {
	e.fields[name] = value
	return e
}

// Encode serializes the request as a single newline-free JSON object.
func (e *Encoder) Encode() ([]byte, error) {
	b, err := json.Marshal(e.fields)
	if err != nil {
		return nil, errors.Wrap(err, "wire: encode request")
	}
	return b, nil
}
