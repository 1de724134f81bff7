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

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/harborqa/relgate/services/coverage"
)

func runSnapshot(cmd *cobra.Command, args []string) {
	pol := loadPolicy()
	svc, store := openCoverage(pol)
	defer store.Close()

	snap, err := svc.Capture(context.Background())
	if err != nil {
		fatal("capture snapshot: %v", err)
	}
	gaps := svc.Analyze(snap)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Snapshot", snap.ID})
	t.AppendRow(table.Row{"Overall", fmt.Sprintf("%.1f%%", snap.Overall)})
	for _, name := range coverage.Components() {
		t.AppendRow(table.Row{name, fmt.Sprintf("%.1f%%", snap.Component(name))})
	}
	t.AppendRow(table.Row{"Files", len(snap.Files)})
	t.AppendRow(table.Row{"Gaps", len(gaps.Gaps)})
	t.Render()

	if snap.Degraded {
		fmt.Printf("warning: degraded capture: %s\n", snap.Message)
	}
	for _, rec := range gaps.Recommendations {
		fmt.Printf("- %s\n", rec)
	}

	writeArtifact(outputPath, []byte(coverage.RenderMarkdown(snap, gaps)))
}
