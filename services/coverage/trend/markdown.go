// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package trend

import (
	"fmt"
	"strings"
	"time"

	"github.com/harborqa/relgate/services/coverage"
)

const chartHeight = 10

// RenderMarkdown renders a trend as a Markdown report. Pure rendering,
// no I/O.
func RenderMarkdown(t *Trend, regressions []FileRegression) string {
	var b strings.Builder
	b.WriteString("# Coverage Trend\n\n")

	if t.InsufficientData {
		fmt.Fprintf(&b,
			"Insufficient data: %d snapshot(s) in the last %d days; at least 2 are needed.\n",
			t.Snapshots, t.WindowDays)
		return b.String()
	}

	fmt.Fprintf(&b, "Window: %s to %s (%d snapshots)\n\n",
		t.From.Format(time.RFC3339), t.To.Format(time.RFC3339), t.Snapshots)

	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Overall | %.1f%% -> %.1f%% (%+.1f) |\n",
		t.EarliestOverall, t.LatestOverall, t.OverallDelta)
	fmt.Fprintf(&b, "| Velocity | %+.2f pts/day |\n", t.Velocity)
	fmt.Fprintf(&b, "| Mean / Min / Max | %.1f%% / %.1f%% / %.1f%% |\n",
		t.Stats.Mean, t.Stats.Min, t.Stats.Max)
	for _, name := range coverage.Components() {
		fmt.Fprintf(&b, "| %s delta | %+.1f |\n", name, t.ComponentDeltas[name])
	}

	b.WriteString("\n## Regressions\n\n")
	switch {
	case t.OverallRegression:
		fmt.Fprintf(&b, "- overall coverage regressed by %.1f points\n", -t.OverallDelta)
	case len(t.ComponentRegressions) == 0 && len(regressions) == 0:
		b.WriteString("- none detected\n")
	}
	for _, name := range t.ComponentRegressions {
		fmt.Fprintf(&b, "- %s regressed by %.1f points\n", name, -t.ComponentDeltas[name])
	}
	for _, r := range regressions {
		fmt.Fprintf(&b, "- %s dropped %.1f points (%.1f%% -> %.1f%%)\n",
			r.Path, r.Drop, r.Previous, r.Current)
	}

	return b.String()
}

// RenderChart draws the overall-coverage series as a fixed-height ASCII
// chart, oldest snapshot on the left. Fewer than two points yields a
// short placeholder.
func RenderChart(snaps []coverage.Snapshot) string {
	if len(snaps) < 2 {
		return "not enough snapshots to chart\n"
	}

	lo, hi := snaps[0].Overall, snaps[0].Overall
	for _, s := range snaps {
		if s.Overall < lo {
			lo = s.Overall
		}
		if s.Overall > hi {
			hi = s.Overall
		}
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	rows := make([][]byte, chartHeight)
	for i := range rows {
		rows[i] = []byte(strings.Repeat(" ", len(snaps)))
	}
	for col, s := range snaps {
		level := int((s.Overall - lo) / span * float64(chartHeight-1))
		rows[chartHeight-1-level][col] = '*'
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%6.1f%% ┤%s\n", hi, rows[0])
	for i := 1; i < chartHeight-1; i++ {
		fmt.Fprintf(&b, "        │%s\n", rows[i])
	}
	fmt.Fprintf(&b, "%6.1f%% ┤%s\n", lo, rows[chartHeight-1])
	fmt.Fprintf(&b, "        └%s\n", strings.Repeat("─", len(snaps)))
	fmt.Fprintf(&b, "         %s -> %s\n",
		snaps[0].Timestamp.Format("01-02"),
		snaps[len(snaps)-1].Timestamp.Format("01-02"))
	return b.String()
}
