// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

// Package evaluator names the metric-evaluator collaborator: resolving a
// check key to value-or-error for every key that is not one of the
// log/logrt/eventlog families. It also ships a minimal registry-based
// implementation so the module runs end to end without a real
// system-metrics backend wired in.
package evaluator

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/watchmesh/activecore/internal/buffer"
)

// Result is the outcome of evaluating one check key. A value result and an
// error result both carry a string and are treated identically by the
// caller except for logging — a failed evaluation still has a renderable
// text form to put on the wire.
type Result struct {
	Text string
	// Err holds the MSG-result case: evaluation ran but produced an error
	// string rather than a value. Still rendered as Text on the wire.
	Err error
}

// Evaluator resolves non-log check keys to values.
type Evaluator interface {
	Evaluate(key string) Result
}

// Func adapts a plain function to the Evaluator interface.
type Func func(key string) Result

// Evaluate implements Evaluator.
func (f Func) Evaluate(key string) Result { return f(key) }

// MetricFunc computes one metric's value, returning an error if the metric
// cannot currently be resolved on this host.
type MetricFunc func() (string, error)

// Registry is a minimal process(key) implementation: a table of metric
// functions looked up by bare key (the part before any '['), so parameters
// are ignored. NewRegistry registers only agent.ping and agent.version;
// anything unregistered evaluates to a MSG result carrying the sentinel
// NOTSUPPORTED value, same as the original agent's unknown-key path.
type Registry struct {
	byKey map[string]MetricFunc
}

// NewRegistry returns a Registry seeded with a small set of always-available
// built-ins (constant values are fine here — this is the "external
// collaborator" boundary, not the thing under test).
func NewRegistry() *Registry {
	r := &Registry{byKey: make(map[string]MetricFunc)}
	r.Register("agent.ping", func() (string, error) { return "1", nil })
	r.Register("agent.version", func() (string, error) { return "activecore 1.0", nil })
	return r
}

// Register adds or replaces the metric function for an exact key.
func (r *Registry) Register(key string, fn MetricFunc) {
	r.byKey[key] = fn
}

// Evaluate implements Evaluator.
func (r *Registry) Evaluate(key string) Result {
	bareKey := key
	if idx := strings.IndexByte(key, '['); idx >= 0 {
		bareKey = key[:idx]
	}
	fn, ok := r.byKey[bareKey]
	if !ok {
		return Result{Text: buffer.NotSupported, Err: errors.Errorf("unsupported key %q", key)}
	}
	value, err := fn()
	if err != nil {
		return Result{Text: fmt.Sprintf("ZBX_ERROR: %s", err), Err: err}
	}
	return Result{Text: value}
}
