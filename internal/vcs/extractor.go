package vcs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gitstamp/internal/snapshot"
)

// queryFunc performs one extraction step against the backend.
type queryFunc func(ctx context.Context, r QueryRunner) (string, error)

// step pairs a registry property with its extraction query.
type step struct {
	property snapshot.Property
	query    queryFunc
}

// Extractor produces one Snapshot per invocation by running the fixed,
// ordered extraction steps.
//
// A failed query is definitive for this invocation: the property takes its
// sentinel value, the snapshot's success flag goes false, and extraction
// continues with the remaining steps. There are no retries; the next
// invocation extracts from scratch.
type Extractor struct {
	runner QueryRunner
	steps  []step
	logger *slog.Logger
}

// NewExtractor wires the extraction steps and verifies they stay aligned
// with the property registry. The alignment check is what lets a new
// property be added in exactly two places without risking a silent
// ordering drift.
func NewExtractor(runner QueryRunner, logger *slog.Logger) (*Extractor, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	steps := []step{
		{query: queryHeadSHA1},
		{query: queryIsDirty},
		{query: queryBranch},
		{query: queryDescribe},
		{query: queryLogFormat("%an")},
		{query: queryLogFormat("%ae")},
		{query: queryLogFormat("%ci")},
		{query: queryLogFormat("%s")},
	}
	if len(steps) != len(snapshot.Registry) {
		return nil, fmt.Errorf("extraction steps (%d) out of sync with property registry (%d)", len(steps), len(snapshot.Registry))
	}
	for i := range steps {
		steps[i].property = snapshot.Registry[i]
	}
	return &Extractor{runner: runner, steps: steps, logger: logger}, nil
}

// Extract runs every extraction step in registry order.
//
// Extract never fails: backend errors degrade the snapshot rather than abort
// the invocation, so a build can proceed (with "unknown" state recorded) even
// outside a repository. The later transition back to known state is itself a
// detected change.
func (e *Extractor) Extract(ctx context.Context) snapshot.Snapshot {
	retrieved := true
	values := make([]string, len(e.steps))
	for i, st := range e.steps {
		v, err := st.query(ctx, e.runner)
		if err != nil {
			e.logger.Debug("extraction step failed",
				"property", st.property.Name,
				"error", err)
			retrieved = false
			values[i] = st.property.Sentinel
			continue
		}
		e.logger.Debug("extraction step succeeded",
			"property", st.property.Name,
			"value", v)
		values[i] = v
	}

	snap, err := snapshot.New(retrieved, values)
	if err != nil {
		// Unreachable: the constructor validated step/registry alignment.
		return snapshot.Degraded()
	}
	return snap
}

func queryHeadSHA1(ctx context.Context, r QueryRunner) (string, error) {
	out, err := r.Run(ctx, "rev-parse", "--verify", "HEAD")
	if err != nil {
		return "", err
	}
	return firstLine(out), nil
}

// queryIsDirty reduces the porcelain status listing to a boolean: any output
// line means at least one tracked file has uncommitted modifications.
func queryIsDirty(ctx context.Context, r QueryRunner) (string, error) {
	out, err := r.Run(ctx, "status", "--porcelain", "-uno")
	if err != nil {
		return "", err
	}
	dirty := strings.TrimSpace(out) != ""
	return strconv.FormatBool(dirty), nil
}

func queryBranch(ctx context.Context, r QueryRunner) (string, error) {
	out, err := r.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return firstLine(out), nil
}

func queryDescribe(ctx context.Context, r QueryRunner) (string, error) {
	out, err := r.Run(ctx, "describe", "--always", "--dirty")
	if err != nil {
		return "", err
	}
	return firstLine(out), nil
}

func queryLogFormat(format string) queryFunc {
	return func(ctx context.Context, r QueryRunner) (string, error) {
		out, err := r.Run(ctx, "log", "-1", "--format="+format)
		if err != nil {
			return "", err
		}
		return firstLine(out), nil
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
