// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

// Package regexpset holds the server-supplied set of named regular
// expressions used to filter log tailer matches.
package regexpset

import (
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Type enumerates the match modes a NamedRegexp can have.
type Type int

const (
	TypeLiteral Type = iota
	TypeIRegex
	TypeRegex
	TypeNoMatchIRegex
	TypeNoMatchRegex
	TypeGlobPipe
)

// NamedRegexp is one server-defined filter entry.
type NamedRegexp struct {
	Name          string
	Expression    string
	Type          Type
	Delimiter     byte
	CaseSensitive bool

	compiled *regexp.Regexp
}

// Row is the minimal shape ingestion needs, decoupled from the wire
// package so this package stays independent of the transport layer.
type Row struct {
	Name           string
	Expression     string
	ExpressionType int64
	ExpDelimiter   string
	CaseSensitive  int64
}

// Set is the active, wholesale-replaceable collection of NamedRegexp
// entries for one endpoint.
type Set struct {
	entries map[string]*NamedRegexp
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{entries: make(map[string]*NamedRegexp)}
}

// Replace clears the set and ingests rows in order, skipping (with an
// aggregated error) any row missing mandatory fields. The returned error is
// non-nil only when at least one row was skipped; it is diagnostic, not
// fatal: ingestion of the remaining, well-formed rows still succeeds.
func (s *Set) Replace(rows []Row) error {
	s.entries = make(map[string]*NamedRegexp)

	var skipped *multierror.Error
	for _, row := range rows {
		if row.Name == "" || row.Expression == "" {
			skipped = multierror.Append(skipped, errors.Errorf("regexp row missing name or expression"))
			continue
		}
		var delim byte
		if len(row.ExpDelimiter) > 0 {
			delim = row.ExpDelimiter[0]
		}
		nr := &NamedRegexp{
			Name:          row.Name,
			Expression:    row.Expression,
			Type:          Type(row.ExpressionType),
			Delimiter:     delim,
			CaseSensitive: row.CaseSensitive != 0,
		}
		if err := nr.compile(); err != nil {
			skipped = multierror.Append(skipped, errors.Wrapf(err, "regexp %q", row.Name))
			continue
		}
		s.entries[nr.Name] = nr
	}
	if skipped != nil {
		return skipped.ErrorOrNil()
	}
	return nil
}

func (nr *NamedRegexp) compile() error {
	switch nr.Type {
	case TypeLiteral, TypeGlobPipe:
		// No compiled form needed; matched as literal/glob text below.
		return nil
	case TypeRegex, TypeNoMatchRegex:
		re, err := regexp.Compile(nr.Expression)
		if err != nil {
			return err
		}
		nr.compiled = re
		return nil
	case TypeIRegex, TypeNoMatchIRegex:
		re, err := regexp.Compile("(?i)" + nr.Expression)
		if err != nil {
			return err
		}
		nr.compiled = re
		return nil
	default:
		return errors.Errorf("unknown expression type %d", nr.Type)
	}
}

// Match reports whether value matches a plain pattern — which may be a
// literal pattern supplied directly on a log key's pattern parameter, or
// the name of a set member prefixed with "@" as Zabbix-style keys allow.
// caseSensitive governs the fallback literal comparison used when pattern
// does not reference a named entry.
func (s *Set) Match(value, pattern string, caseSensitive bool) bool {
	if pattern == "" {
		return true
	}
	if named, ok := s.lookup(pattern); ok {
		return named.match(value)
	}
	if caseSensitive {
		return strings.Contains(value, pattern)
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (s *Set) lookup(pattern string) (*NamedRegexp, bool) {
	name := strings.TrimPrefix(pattern, "@")
	if name == pattern {
		return nil, false
	}
	nr, ok := s.entries[name]
	return nr, ok
}

func (nr *NamedRegexp) match(value string) bool {
	switch nr.Type {
	case TypeLiteral:
		if nr.CaseSensitive {
			return strings.Contains(value, nr.Expression)
		}
		return strings.Contains(strings.ToLower(value), strings.ToLower(nr.Expression))
	case TypeRegex, TypeIRegex:
		return nr.compiled.MatchString(value)
	case TypeNoMatchRegex, TypeNoMatchIRegex:
		return !nr.compiled.MatchString(value)
	case TypeGlobPipe:
		for _, alt := range strings.Split(nr.Expression, string(nr.delimiterOrDefault())) {
			if ok, _ := regexp.MatchString(globToRegexp(alt), value); ok {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (nr *NamedRegexp) delimiterOrDefault() byte {
	if nr.Delimiter == 0 {
		return ','
	}
	return nr.Delimiter
}

// globToRegexp converts a shell-style glob (`*`, `?`) into an anchored
// regular expression.
func globToRegexp(glob string) string {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return b.String()
}
