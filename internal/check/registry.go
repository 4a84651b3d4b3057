// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

// Package check holds the in-memory table of active checks the agent
// evaluates on its own schedule, keyed by their server-assigned original
// key.
package check

// Status is the lifecycle state of an ActiveCheck.
type Status int

const (
	// StatusActive means the check should be evaluated when its
	// nextCheckAt arrives.
	StatusActive Status = iota
	// StatusNotSupported means the check is soft-disabled: either the
	// server omitted it from the latest refresh, or evaluation itself
	// failed. It is skipped by the scheduler but kept in the registry so
	// a future refresh can re-enable it.
	StatusNotSupported
)

// Check is a single evaluation task. Key is mutable (reassigned on server
// update); KeyOrig is the immutable identity used for registry lookup.
type Check struct {
	Key         string
	KeyOrig     string
	Refresh     int64
	NextCheckAt int64
	Status      Status
	LastLogSize int64
	Mtime       int64
}

// Runnable reports whether the check is active and due.
func (c *Check) Runnable(now int64) bool {
	return c.Status == StatusActive && c.NextCheckAt <= now
}

// Registry is a plain insertion-ordered sequence of checks, owned by a
// single endpoint. It requires no locking: each endpoint runs on exactly
// one cooperative goroutine and shares no mutable state with any other.
type Registry struct {
	checks []*Check
	byKey  map[string]*Check
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]*Check)}
}

// DisableAll marks every entry notSupported. Called at the start of every
// refresh pass so checks dropped from the new reply end up disabled rather
// than lingering active.
func (r *Registry) DisableAll() {
	for _, c := range r.checks {
		c.Status = StatusNotSupported
	}
}

// AddOrUpdate refreshes the entry matching keyOrig in place (including a
// nextCheckAt reset when Refresh changed), or appends a new entry in
// insertion order if none exists yet.
func (r *Registry) AddOrUpdate(key, keyOrig string, refresh, lastLogSize, mtime int64) *Check {
	if existing, ok := r.byKey[keyOrig]; ok {
		if existing.Key != key {
			existing.Key = key
			existing.LastLogSize = lastLogSize
			existing.Mtime = mtime
		}
		if existing.Refresh != refresh {
			existing.NextCheckAt = 0
			existing.Refresh = refresh
		}
		existing.Status = StatusActive
		return existing
	}

	c := &Check{
		Key:         key,
		KeyOrig:     keyOrig,
		Refresh:     refresh,
		NextCheckAt: 0,
		Status:      StatusActive,
		LastLogSize: lastLogSize,
		Mtime:       mtime,
	}
	r.checks = append(r.checks, c)
	r.byKey[keyOrig] = c
	return c
}

// All returns checks in registry-insertion order. The slice must not be
// mutated by the caller; checks themselves are mutated in place by the
// scheduler.
func (r *Registry) All() []*Check {
	return r.checks
}

// Len reports the number of tracked checks, active or not.
func (r *Registry) Len() int {
	return len(r.checks)
}

// MinNextCheck returns the smallest NextCheckAt across active entries, and
// false if no entry is active — the Go analogue of get_min_nextcheck()'s
// FAIL sentinel.
func (r *Registry) MinNextCheck() (int64, bool) {
	var min int64
	found := false
	for _, c := range r.checks {
		if c.Status != StatusActive {
			continue
		}
		if !found || c.NextCheckAt < min {
			min = c.NextCheckAt
			found = true
		}
	}
	return min, found
}
