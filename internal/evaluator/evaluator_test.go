// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/watchmesh/activecore/internal/buffer"
)

func TestRegistryKnownKey(t *testing.T) {
	r := NewRegistry()
	res := r.Evaluate("agent.ping")
	assert.Equal(t, "1", res.Text)
	assert.NoError(t, res.Err)
}

func TestRegistryUnknownKeyNotSupported(t *testing.T) {
	r := NewRegistry()
	res := r.Evaluate("system.cpu.num")
	assert.Equal(t, buffer.NotSupported, res.Text)
	assert.Error(t, res.Err)
}

func TestRegistryBareKeyStripsParams(t *testing.T) {
	r := NewRegistry()
	r.Register("custom.metric", func() (string, error) { return "42", nil })
	res := r.Evaluate("custom.metric[arg1,arg2]")
	assert.Equal(t, "42", res.Text)
}

func TestFuncAdapter(t *testing.T) {
	var e Evaluator = Func(func(key string) Result { return Result{Text: "ok:" + key} })
	assert.Equal(t, "ok:foo", e.Evaluate("foo").Text)
}
