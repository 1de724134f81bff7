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
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/harborqa/relgate/pkg/logging"
	"github.com/harborqa/relgate/services/release"
)

func runGates(cmd *cobra.Command, args []string) {
	pol := loadPolicy()
	svc, store := openCoverage(pol)
	defer store.Close()

	logger := logging.Default().Slog()
	runner := release.NewSuiteRunner(pol.Suite.WorkingDir, pol.Suite.SummaryFile, logger)
	engine := release.NewEngine(pol, runner, svc, logger)

	report := engine.Evaluate(context.Background())
	renderGateTable(report)

	if data, err := report.JSON(); err == nil {
		writeArtifact(outputPath, data)
	}

	fmt.Println(report.Summary())
	if failOnError && !report.Passed {
		os.Exit(1)
	}
}

func renderGateTable(report *release.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Gate", "Verdict", "Score", "Threshold", "Message"})
	for _, g := range report.Gates {
		verdict := text.FgGreen.Sprint("PASS")
		if !g.Passed {
			verdict = text.FgRed.Sprint("FAIL")
		}
		t.AppendRow(table.Row{
			g.Name,
			verdict,
			fmt.Sprintf("%.1f", g.Score),
			fmt.Sprintf("%.1f", g.Threshold),
			g.Message,
		})
	}
	t.Render()
}
