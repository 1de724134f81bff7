// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/harborqa/relgate/pkg/config"
	"github.com/harborqa/relgate/services/coverage"
	"github.com/harborqa/relgate/services/coverage/trend"
	"github.com/harborqa/relgate/services/harness"
	"github.com/harborqa/relgate/services/harness/generate"
	"github.com/harborqa/relgate/services/harness/runner"
	"github.com/harborqa/relgate/services/release"
)

// bindCases attaches executable predicates to the planned definitions.
// Definitions without a binding are left out with a warning; they exist
// in the catalog for traceability but cannot run from this binary.
func bindCases(plan []*harness.Definition, logger *slog.Logger) []*runner.Case {
	var cases []*runner.Case
	for _, def := range plan {
		bind, ok := propertyBindings[def.Name]
		if !ok {
			logger.Warn("no executable binding for property", "property", def.Name)
			continue
		}
		cases = append(cases, bind(def))
	}
	return cases
}

var propertyBindings = map[string]func(*harness.Definition) *runner.Case{
	"plan_order_deterministic":        bindPlanOrder,
	"duplicate_registration_rejected": bindDuplicateRegistration,
	"catalog_export_roundtrip":        bindExportRoundtrip,
	"velocity_never_nan":              bindVelocityFinite,
	"gap_urgency_monotonic":           bindGapUrgency,
	"parallel_matches_sequential":     bindParallelEquivalence,
	"snapshot_rows_immutable":         bindSnapshotImmutable,
	"gate_report_schema_stable":       bindGateSchema,
}

// scratchDefinition builds a valid definition for catalog properties.
func scratchDefinition(name string, cat harness.Category, pri harness.Priority) *harness.Definition {
	return &harness.Definition{
		Name:             name,
		Description:      "scratch property used by the self-check suite",
		Category:         cat,
		Priority:         pri,
		Requirements:     []string{"REQ-SELF-001"},
		ExpectedExamples: 1,
		Timeout:          time.Second,
		Enabled:          true,
	}
}

var scratchSet = []struct {
	name string
	cat  harness.Category
	pri  harness.Priority
}{
	{"scratch_a", harness.CategoryAnalysis, harness.PriorityCritical},
	{"scratch_b", harness.CategoryPipeline, harness.PriorityCritical},
	{"scratch_c", harness.CategorySerialization, harness.PriorityHigh},
	{"scratch_d", harness.CategoryAPI, harness.PriorityMedium},
	{"scratch_e", harness.CategoryConcurrency, harness.PriorityMedium},
	{"scratch_f", harness.CategoryAnalysis, harness.PriorityLow},
}

// bindPlanOrder verifies that registration order never changes the plan:
// two catalogs filled in different shuffles yield identical plans.
func bindPlanOrder(def *harness.Definition) *runner.Case {
	return &runner.Case{
		Definition: def,
		Domain:     "int",
		Predicate: func(input any) error {
			seed := uint64(input.(int)) //nolint:gosec
			names := planFromShuffle(seed)
			again := planFromShuffle(seed + 1)
			for i := range names {
				if names[i] != again[i] {
					return runner.Violationf(
						"plan diverged at position %d: %s vs %s", i, names[i], again[i])
				}
			}
			return nil
		},
	}
}

func planFromShuffle(seed uint64) []string {
	rng := rand.New(rand.NewPCG(seed, seed))
	order := rng.Perm(len(scratchSet))

	catalog := harness.NewEmptyCatalog()
	for _, idx := range order {
		s := scratchSet[idx]
		catalog.MustRegister(scratchDefinition(s.name, s.cat, s.pri))
	}
	plan := catalog.ExecutionPlan(harness.PlanFilter{})
	names := make([]string, 0, len(plan))
	for _, d := range plan {
		names = append(names, d.Name)
	}
	return names
}

// bindDuplicateRegistration verifies the uniqueness invariant for
// arbitrary property names.
func bindDuplicateRegistration(def *harness.Definition) *runner.Case {
	return &runner.Case{
		Definition: def,
		Domain:     "short_string",
		Predicate: func(input any) error {
			name := "dup_" + input.(string)
			catalog := harness.NewEmptyCatalog()
			first := scratchDefinition(name, harness.CategoryAnalysis, harness.PriorityHigh)
			if err := catalog.Register(first); err != nil {
				return fmt.Errorf("first registration failed: %w", err)
			}
			second := scratchDefinition(name, harness.CategoryPipeline, harness.PriorityLow)
			if err := catalog.Register(second); !errors.Is(err, harness.ErrDuplicateProperty) {
				return runner.Violationf("duplicate %q accepted (err=%v)", name, err)
			}
			if catalog.Count() != 1 {
				return runner.Violationf("catalog count %d after rejected duplicate", catalog.Count())
			}
			got, err := catalog.Get(name)
			if err != nil {
				return err
			}
			if got.Category != harness.CategoryAnalysis {
				return runner.Violationf("rejected duplicate overwrote the original")
			}
			return nil
		},
	}
}

// bindExportRoundtrip verifies that export/import preserves the catalog,
// including enable toggles.
func bindExportRoundtrip(def *harness.Definition) *runner.Case {
	return &runner.Case{
		Definition: def,
		Domain:     "int",
		Predicate: func(input any) error {
			catalog := harness.NewCatalog()
			plan := catalog.ExecutionPlan(harness.PlanFilter{IncludeDisabled: true})
			toggled := plan[abs(input.(int))%len(plan)].Name
			if err := catalog.SetEnabled(toggled, false); err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := catalog.Export(&buf); err != nil {
				return err
			}
			imported, err := harness.Import(&buf)
			if err != nil {
				return err
			}

			if imported.Count() != catalog.Count() {
				return runner.Violationf("count %d != %d after roundtrip",
					imported.Count(), catalog.Count())
			}
			got, err := imported.Get(toggled)
			if err != nil {
				return err
			}
			if got.Enabled {
				return runner.Violationf("enable toggle on %q lost in roundtrip", toggled)
			}
			return nil
		},
	}
}

// storeEnv carries a scratch snapshot store across a case's examples.
type storeEnv struct {
	dir   string
	store *coverage.Store
}

func (e *storeEnv) setup() error {
	dir, err := os.MkdirTemp("", "relgate-selfcheck-*")
	if err != nil {
		return err
	}
	store, err := coverage.OpenStore(filepath.Join(dir, "selfcheck.db"))
	if err != nil {
		os.RemoveAll(dir)
		return err
	}
	e.dir, e.store = dir, store
	return nil
}

func (e *storeEnv) teardown() error {
	if e.store != nil {
		e.store.Close()
	}
	if e.dir != "" {
		return os.RemoveAll(e.dir)
	}
	return nil
}

// bindVelocityFinite persists snapshots with arbitrary coverage values,
// including pairs captured at the same instant, and requires a finite
// velocity every time.
func bindVelocityFinite(def *harness.Definition) *runner.Case {
	env := &storeEnv{}
	policy := config.Default().Trend
	var analyzer *trend.Analyzer
	return &runner.Case{
		Definition: def,
		Domain:     "percentage",
		Setup: func() error {
			if err := env.setup(); err != nil {
				return err
			}
			analyzer = trend.NewAnalyzer(env.store, &policy, slog.Default())
			return nil
		},
		Teardown: env.teardown,
		Predicate: func(input any) error {
			snap := &coverage.Snapshot{
				Timestamp:  time.Now(),
				Overall:    input.(float64),
				Components: map[string]float64{},
			}
			if err := env.store.Persist(context.Background(), snap); err != nil {
				return err
			}
			t := analyzer.Trend(context.Background(), 0)
			if t.InsufficientData {
				return nil
			}
			if math.IsNaN(t.Velocity) || math.IsInf(t.Velocity, 0) {
				return runner.Violationf("velocity %v is not finite", t.Velocity)
			}
			return nil
		},
	}
}

// bindGapUrgency checks that within one component, a file with lower
// coverage is never reported less urgent than one with higher coverage.
func bindGapUrgency(def *harness.Definition) *runner.Case {
	policy := &config.Default().Coverage
	return &runner.Case{
		Definition: def,
		Domain:     "percentage",
		Predicate: func(input any) error {
			higher := input.(float64)
			lower := higher / 2
			snap := &coverage.Snapshot{
				Components: map[string]float64{},
				Files: []coverage.FileRecord{
					{Path: "self/core/lower.py", Component: coverage.ComponentCore,
						Percent: lower, LinesCovered: int(lower), LinesTotal: 100},
					{Path: "self/core/higher.py", Component: coverage.ComponentCore,
						Percent: higher, LinesCovered: int(higher), LinesTotal: 100},
				},
			}
			report := coverage.AnalyzeGaps(snap, policy)
			if gapRank(report, "self/core/lower.py") > gapRank(report, "self/core/higher.py") {
				return runner.Violationf(
					"file at %.1f%% reported less urgent than file at %.1f%%", lower, higher)
			}
			return nil
		},
	}
}

// gapRank returns the urgency rank of a path's gap, or past-low when the
// file was not flagged at all.
func gapRank(report *coverage.GapReport, path string) int {
	for _, g := range report.Gaps {
		if g.Path == path {
			return g.Urgency.Rank()
		}
	}
	return coverage.UrgencyLow.Rank() + 1
}

// bindParallelEquivalence runs a small case set sequentially and in
// parallel with identical seeds and compares the sorted result sets.
func bindParallelEquivalence(def *harness.Definition) *runner.Case {
	return &runner.Case{
		Definition: def,
		Domain:     "int",
		Predicate: func(input any) error {
			seed := uint64(input.(int)) //nolint:gosec
			sequential := runScratchSet(seed, 1)
			parallel := runScratchSet(seed, 4)
			if len(sequential) != len(parallel) {
				return runner.Violationf("result counts differ: %d vs %d",
					len(sequential), len(parallel))
			}
			for i := range sequential {
				if sequential[i].Property != parallel[i].Property ||
					sequential[i].Status != parallel[i].Status {
					return runner.Violationf("results diverge at %s: %s vs %s",
						sequential[i].Property, sequential[i].Status, parallel[i].Status)
				}
			}
			return nil
		},
	}
}

// runScratchSet executes three value-independent properties and returns
// the results sorted by the stable key.
func runScratchSet(seed uint64, workers int) []*runner.Result {
	engine := runner.NewEngine(generate.NewSampler(seed), slog.New(slog.DiscardHandler))
	cases := []*runner.Case{
		{
			Definition: scratchCase("inner_pass"),
			Domain:     "percentage",
			Predicate: func(input any) error {
				if v := input.(float64); v < 0 || v > 100 {
					return runner.Violationf("percentage out of range: %v", v)
				}
				return nil
			},
		},
		{
			Definition: scratchCase("inner_fail"),
			Domain:     "int",
			Predicate: func(any) error {
				return runner.Violationf("always fails")
			},
		},
		{
			Definition: scratchCase("inner_error"),
			Domain:     "int",
			Predicate: func(any) error {
				return errors.New("always errors")
			},
		},
	}
	results := engine.RunAll(context.Background(), cases, workers)
	runner.SortResults(results)
	return results
}

func scratchCase(name string) *harness.Definition {
	d := scratchDefinition(name, harness.CategoryConcurrency, harness.PriorityMedium)
	d.ExpectedExamples = 10
	return d
}

// bindSnapshotImmutable persists snapshots and verifies earlier rows
// never change as later ones are appended.
func bindSnapshotImmutable(def *harness.Definition) *runner.Case {
	env := &storeEnv{}
	return &runner.Case{
		Definition: def,
		Domain:     "percentage",
		Setup:      env.setup,
		Teardown:   env.teardown,
		Predicate: func(input any) error {
			ctx := context.Background()
			overall := input.(float64)
			snap := &coverage.Snapshot{
				Timestamp:  time.Now(),
				Overall:    overall,
				Components: map[string]float64{},
				Files: []coverage.FileRecord{
					{Path: "self/core/a.py", Percent: overall, LinesTotal: 100,
						LinesCovered: int(overall), Component: coverage.ComponentCore},
				},
			}
			if err := env.store.Persist(ctx, snap); err != nil {
				return err
			}

			// Append another row, then re-read the first.
			if err := env.store.Persist(ctx, &coverage.Snapshot{
				Timestamp:  time.Now(),
				Overall:    overall / 2,
				Components: map[string]float64{},
			}); err != nil {
				return err
			}

			history, err := env.store.History(ctx, 0)
			if err != nil {
				return err
			}
			for _, h := range history {
				if h.ID != snap.ID {
					continue
				}
				if math.Abs(h.Overall-overall) > 1e-9 {
					return runner.Violationf(
						"snapshot %d changed from %.4f to %.4f", snap.ID, overall, h.Overall)
				}
				files, err := env.store.FilesFor(ctx, snap.ID)
				if err != nil {
					return err
				}
				if len(files) != 1 || files[0].Path != "self/core/a.py" {
					return runner.Violationf("file rows of snapshot %d changed", snap.ID)
				}
				return nil
			}
			return runner.Violationf("snapshot %d disappeared from history", snap.ID)
		},
	}
}

// bindGateSchema fabricates gate reports for arbitrary pass/fail
// combinations and requires a lossless JSON roundtrip.
func bindGateSchema(def *harness.Definition) *runner.Case {
	gateNames := []string{
		release.GatePassRate, release.GateCoverage, release.GatePerformance,
		release.GateQuality, release.GateReliability,
	}
	return &runner.Case{
		Definition: def,
		Domain:     "int",
		Predicate: func(input any) error {
			bits := abs(input.(int))
			report := &release.Report{
				RunID:     fmt.Sprintf("selfcheck-%d", bits),
				Timestamp: time.Now().UTC(),
				Passed:    true,
			}
			for i, name := range gateNames {
				passed := bits&(1<<i) == 0
				result := release.GateResult{
					Name:      name,
					Passed:    passed,
					Score:     float64(bits % 101),
					Threshold: 80,
					Message:   "synthetic verdict",
				}
				report.Gates = append(report.Gates, result)
				if !passed {
					report.Passed = false
					report.Failures = append(report.Failures, name+": synthetic verdict")
				}
			}

			data, err := report.JSON()
			if err != nil {
				return err
			}
			var decoded release.Report
			if err := json.Unmarshal(data, &decoded); err != nil {
				return fmt.Errorf("report does not parse back: %w", err)
			}
			if decoded.Passed != report.Passed || len(decoded.Gates) != len(report.Gates) {
				return runner.Violationf("schema roundtrip lost the verdict")
			}
			for i := range decoded.Gates {
				if decoded.Gates[i].Passed != report.Gates[i].Passed {
					return runner.Violationf("gate %s verdict lost in roundtrip",
						report.Gates[i].Name)
				}
			}
			return nil
		},
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
