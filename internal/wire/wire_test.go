// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActiveChecksReply(t *testing.T) {
	raw := []byte(`{
		"response": "success",
		"data": [
			{"key":"system.cpu.num","key_orig":"system.cpu.num","delay":"30","lastlogsize":"0","mtime":"0"},
			{"key":"log[/var/log/app.log]","delay":30,"lastlogsize":1024}
		],
		"regexp": [
			{"name":"r1","expression":"^ERROR","expression_type":"2","exp_delimiter":",","case_sensitive":"1"}
		]
	}`)

	tree, err := Parse(raw)
	require.NoError(t, err)

	resp, ok := tree.ValueByName(TagResponse)
	require.True(t, ok)
	assert.Equal(t, ValueSuccess, resp)

	data, ok := tree.BracketsByName(TagData)
	require.True(t, ok)
	rows := data.Rows()
	require.Len(t, rows, 2)

	key, ok := rows[0].ValueByName(TagKey)
	require.True(t, ok)
	assert.Equal(t, "system.cpu.num", key)

	delay, ok := rows[0].IntByName(TagDelay)
	require.True(t, ok)
	assert.EqualValues(t, 30, delay)

	// second row: numeric JSON leaves still decode via IntByName/ValueByName.
	delay2, ok := rows[1].IntByName(TagDelay)
	require.True(t, ok)
	assert.EqualValues(t, 30, delay2)

	_, hasKeyOrig := rows[1].ValueByName(TagKeyOrig)
	assert.False(t, hasKeyOrig)

	regexps, ok := tree.BracketsByName(TagRegexp)
	require.True(t, ok)
	rrows := regexps.Rows()
	require.Len(t, rrows, 1)
	name, _ := rrows[0].ValueByName(TagName)
	assert.Equal(t, "r1", name)
}

func TestParseFailedResponse(t *testing.T) {
	raw := []byte(`{"response":"failed","info":"no active checks"}`)
	tree, err := Parse(raw)
	require.NoError(t, err)

	resp, ok := tree.ValueByName(TagResponse)
	require.True(t, ok)
	assert.Equal(t, ValueFailed, resp)

	info, ok := tree.ValueByName(TagInfo)
	require.True(t, ok)
	assert.Equal(t, "no active checks", info)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	require.Error(t, err)
	assert.NotEmpty(t, Strerror(err))
}

func TestEncodeRequest(t *testing.T) {
	enc := NewEncoder(ValueGetActiveChecks).Set(TagHost, "h1")
	b, err := enc.Encode()
	require.NoError(t, err)

	tree, err := Parse(b)
	require.NoError(t, err)

	req, _ := tree.ValueByName(TagRequest)
	assert.Equal(t, ValueGetActiveChecks, req)
	host, _ := tree.ValueByName(TagHost)
	assert.Equal(t, "h1", host)
}
