// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/harborqa/relgate/services/harness"
	"github.com/harborqa/relgate/services/harness/generate"
	"github.com/harborqa/relgate/services/harness/runner"
)

func TestEveryBuiltinHasBinding(t *testing.T) {
	plan := harness.NewCatalog().ExecutionPlan(harness.PlanFilter{IncludeDisabled: true})
	for _, def := range plan {
		if _, ok := propertyBindings[def.Name]; !ok {
			t.Errorf("registered property %q has no executable binding", def.Name)
		}
	}
	for name := range propertyBindings {
		if _, err := harness.NewCatalog().Get(name); err != nil {
			t.Errorf("binding %q has no registered property", name)
		}
	}
}

func TestSelfCheckSuitePasses(t *testing.T) {
	if testing.Short() {
		t.Skip("self-check suite runs hundreds of examples")
	}

	logger := slog.New(slog.DiscardHandler)
	plan := harness.NewCatalog().ExecutionPlan(harness.PlanFilter{})
	cases := bindCases(plan, logger)
	if len(cases) != len(plan) {
		t.Fatalf("bound %d of %d planned properties", len(cases), len(plan))
	}

	engine := runner.NewEngine(generate.NewSampler(7), logger)
	results := engine.RunAll(context.Background(), cases, 4)
	runner.SortResults(results)

	for _, r := range results {
		if r.Status != runner.StatusPassed {
			t.Errorf("%s = %s: %s", r.Property, r.Status, r.Error)
			if r.Counterexample != nil {
				t.Logf("counterexample: %s", r.Counterexample.Input)
			}
		}
	}
}

func TestPlanFilterRejectsNothingByDefault(t *testing.T) {
	runCategories = nil
	runPriorities = nil
	includeDisabled = false

	filter := planFilter()
	plan := harness.NewCatalog().ExecutionPlan(filter)
	if len(plan) == 0 {
		t.Fatal("default filter must admit the built-in properties")
	}
}
