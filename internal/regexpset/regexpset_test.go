// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

package regexpset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceSkipsMissingFields(t *testing.T) {
	s := NewSet()
	err := s.Replace([]Row{
		{Name: "ok", Expression: "^ERROR", ExpressionType: int64(TypeRegex), CaseSensitive: 1},
		{Name: "", Expression: "missing name"},
		{Name: "missing-expr"},
	})
	require.Error(t, err)
	assert.True(t, s.Match("an ERROR occurred", "@ok", true))
}

func TestReplaceWholesale(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Replace([]Row{
		{Name: "r1", Expression: "foo", ExpressionType: int64(TypeLiteral), CaseSensitive: 1},
	}))
	assert.True(t, s.Match("foobar", "@r1", true))

	require.NoError(t, s.Replace([]Row{
		{Name: "r2", Expression: "bar", ExpressionType: int64(TypeLiteral), CaseSensitive: 1},
	}))
	assert.False(t, s.Match("foobar", "@r1", true), "r1 must be gone after wholesale replace")
	assert.True(t, s.Match("foobar", "@r2", true))
}

func TestMatchModes(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Replace([]Row{
		{Name: "ci", Expression: "ERROR", ExpressionType: int64(TypeIRegex)},
		{Name: "notmatch", Expression: "DEBUG", ExpressionType: int64(TypeNoMatchRegex)},
	}))
	assert.True(t, s.Match("an error occurred", "@ci", false))
	assert.True(t, s.Match("an INFO line", "@notmatch", false))
	assert.False(t, s.Match("a DEBUG line", "@notmatch", false))
}

func TestMatchPlainPatternFallsBackToLiteral(t *testing.T) {
	s := NewSet()
	assert.True(t, s.Match("hello world", "world", true))
	assert.False(t, s.Match("hello world", "World", true))
	assert.True(t, s.Match("hello world", "World", false))
}

func TestMatchEmptyPatternAlwaysMatches(t *testing.T) {
	s := NewSet()
	assert.True(t, s.Match("anything", "", true))
}
