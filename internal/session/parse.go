// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

package session

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/watchmesh/activecore/internal/check"
	"github.com/watchmesh/activecore/internal/regexpset"
	"github.com/watchmesh/activecore/internal/wire"
)

// ParseListOfChecks applies a getActiveChecks reply to registry and
// regexps. It always starts by disabling every existing check (so entries
// dropped from this reply end up notSupported); on a non-success response,
// or a malformed reply, it returns an error and leaves every check
// disabled.
func ParseListOfChecks(data []byte, registry *check.Registry, regexps *regexpset.Set, log *zap.SugaredLogger) error {
	registry.DisableAll()

	tree, err := wire.Parse(data)
	if err != nil {
		return errors.Wrap(err, "session: malformed active checks reply")
	}

	resp, ok := tree.ValueByName(wire.TagResponse)
	if !ok || resp != wire.ValueSuccess {
		if info, ok := tree.ValueByName(wire.TagInfo); ok {
			log.Warnw("no active checks on server", "info", info)
		} else {
			log.Warnw("no active checks on server")
		}
		return errors.New("session: active checks request failed")
	}

	dataTree, ok := tree.BracketsByName(wire.TagData)
	if !ok {
		return errors.New("session: active checks reply missing data")
	}

	var skipped *multierror.Error
	for _, row := range dataTree.Rows() {
		key, ok := row.ValueByName(wire.TagKey)
		if !ok || key == "" {
			log.Warnw("active checks row missing key, skipping")
			skipped = multierror.Append(skipped, errors.New("row missing key"))
			continue
		}

		keyOrig, ok := row.ValueByName(wire.TagKeyOrig)
		if !ok || keyOrig == "" {
			keyOrig = key
		}

		delay, ok := row.IntByName(wire.TagDelay)
		if !ok {
			log.Warnw("active checks row missing delay, skipping", "key", key)
			skipped = multierror.Append(skipped, errors.Errorf("row %q missing delay", key))
			continue
		}

		lastLogSize, ok := row.IntByName(wire.TagLastLogSize)
		if !ok {
			log.Warnw("active checks row missing lastlogsize, skipping", "key", key)
			skipped = multierror.Append(skipped, errors.Errorf("row %q missing lastlogsize", key))
			continue
		}

		mtime, _ := row.IntByName(wire.TagMtime)

		registry.AddOrUpdate(key, keyOrig, delay, lastLogSize, mtime)
	}

	var rows []regexpset.Row
	if regexpTree, ok := tree.BracketsByName(wire.TagRegexp); ok {
		for _, row := range regexpTree.Rows() {
			name, hasName := row.ValueByName(wire.TagName)
			expr, hasExpr := row.ValueByName(wire.TagExpression)
			exprType, hasType := row.IntByName(wire.TagExpressionType)
			delim, _ := row.ValueByName(wire.TagExpDelimiter)
			caseSensitive, hasCase := row.IntByName(wire.TagCaseSensitive)

			if !hasName || !hasExpr || !hasType || !hasCase {
				log.Warnw("regexp row missing mandatory field, skipping", "name", name)
				skipped = multierror.Append(skipped, errors.Errorf("regexp row %q missing a mandatory field", name))
				continue
			}
			rows = append(rows, regexpset.Row{
				Name:           name,
				Expression:     expr,
				ExpressionType: exprType,
				ExpDelimiter:   delim,
				CaseSensitive:  caseSensitive,
			})
		}
	}
	if err := regexps.Replace(rows); err != nil {
		log.Warnw("some regexp rows were skipped", "error", err)
	}

	// A missing field on an individual row is a per-row warning, not a
	// reason to fail the whole refresh: the rows we did apply above are
	// real and already live in the registry/regexp set.
	if skipped.ErrorOrNil() != nil {
		log.Debugw("some rows were skipped during refresh", "error", skipped.ErrorOrNil())
	}
	return nil
}
