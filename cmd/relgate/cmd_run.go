// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/harborqa/relgate/pkg/logging"
	"github.com/harborqa/relgate/services/harness"
	"github.com/harborqa/relgate/services/harness/generate"
	"github.com/harborqa/relgate/services/harness/runner"
)

func planFilter() harness.PlanFilter {
	filter := harness.PlanFilter{IncludeDisabled: includeDisabled}
	for _, c := range runCategories {
		cat := harness.Category(c)
		if !cat.Valid() {
			fatal("unknown category %q (valid: %v)", c, harness.Categories())
		}
		filter.Categories = append(filter.Categories, cat)
	}
	for _, p := range runPriorities {
		pri := harness.Priority(p)
		if !pri.Valid() {
			fatal("unknown priority %q (valid: %v)", p, harness.Priorities())
		}
		filter.Priorities = append(filter.Priorities, pri)
	}
	return filter
}

func runPlan(cmd *cobra.Command, args []string) {
	plan := harness.NewCatalog().ExecutionPlan(planFilter())

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Property", "Priority", "Category", "Examples"})
	for i, def := range plan {
		t.AppendRow(table.Row{i + 1, def.Name, def.Priority, def.Category, def.ExpectedExamples})
	}
	t.Render()
	fmt.Printf("%d properties planned\n", len(plan))
}

func runProperties(cmd *cobra.Command, args []string) {
	logger := logging.Default().Slog()
	plan := harness.NewCatalog().ExecutionPlan(planFilter())
	cases := bindCases(plan, logger)
	if len(cases) == 0 {
		fatal("no runnable properties matched the filter")
	}

	engine := runner.NewEngine(generate.NewSampler(runSeed), logger)
	results := engine.RunAll(context.Background(), cases, runWorkers)
	runner.SortResults(results)
	renderResults(results)

	summary := runner.Aggregate(results)
	fmt.Printf("%d properties, %.1f%% success, %s total\n",
		summary.Total, summary.SuccessRate, summary.TotalDuration.Round(time.Millisecond))

	for _, r := range results {
		if r.Status != runner.StatusPassed && r.Status != runner.StatusSkipped {
			os.Exit(1)
		}
	}
}

func renderResults(results []*runner.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Property", "Status", "Examples", "Duration"})
	for _, r := range results {
		status := string(r.Status)
		switch r.Status {
		case runner.StatusPassed:
			status = text.FgGreen.Sprint(status)
		case runner.StatusFailed, runner.StatusError, runner.StatusTimeout:
			status = text.FgRed.Sprint(status)
		}
		t.AppendRow(table.Row{
			r.Property,
			status,
			r.ExamplesTested,
			r.Duration.Round(time.Millisecond),
		})
	}
	t.Render()

	for _, r := range results {
		if r.Counterexample != nil {
			fmt.Printf("counterexample for %s: input=%s error=%s\n",
				r.Property, r.Counterexample.Input, r.Counterexample.Message)
		}
	}
}
