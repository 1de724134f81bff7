// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package coverage

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a snapshot and its gap analysis as a Markdown
// report. Pure rendering over the structs, no I/O.
func RenderMarkdown(snap *Snapshot, gaps *GapReport) string {
	var b strings.Builder

	b.WriteString("# Coverage Report\n\n")
	fmt.Fprintf(&b, "Captured: %s\n\n", snap.Timestamp.Format(time.RFC3339))
	if snap.Degraded {
		fmt.Fprintf(&b, "> **Degraded capture:** %s\n\n", snap.Message)
	}

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Overall coverage | %.1f%% |\n", snap.Overall)
	fmt.Fprintf(&b, "| Lines | %d / %d |\n", snap.LinesCovered, snap.LinesTotal)
	if snap.BranchesTotal > 0 {
		fmt.Fprintf(&b, "| Branches | %d / %d |\n", snap.BranchesCovered, snap.BranchesTotal)
	}
	b.WriteString("\n## Components\n\n")
	b.WriteString("| Component | Coverage |\n|---|---|\n")
	for _, name := range Components() {
		fmt.Fprintf(&b, "| %s | %.1f%% |\n", name, snap.Component(name))
	}

	if gaps != nil {
		b.WriteString("\n## Gaps\n\n")
		if len(gaps.Gaps) == 0 {
			b.WriteString("No files below threshold.\n")
		} else {
			b.WriteString("| File | Component | Coverage | Uncovered | Urgency |\n")
			b.WriteString("|---|---|---|---|---|\n")
			for _, g := range gaps.Gaps {
				fmt.Fprintf(&b, "| %s | %s | %.1f%% | %d | %s |\n",
					g.Path, g.Component, g.Percent, g.UncoveredLines, g.Urgency)
			}
		}
		b.WriteString("\n## Recommendations\n\n")
		for _, rec := range gaps.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
	}

	return b.String()
}
