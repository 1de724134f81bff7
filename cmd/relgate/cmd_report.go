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

	"github.com/spf13/cobra"

	"github.com/harborqa/relgate/pkg/logging"
	"github.com/harborqa/relgate/services/coverage/trend"
)

func runReport(cmd *cobra.Command, args []string) {
	pol := loadPolicy()
	_, store := openCoverage(pol)
	defer store.Close()

	analyzer := trend.NewAnalyzer(store, &pol.Trend, logging.Default().Slog())
	ctx := context.Background()

	t := analyzer.Trend(ctx, windowDays)
	regressions, err := analyzer.FileRegressions(ctx, pol.Trend.FileRegression)
	if err != nil {
		fatal("file regressions: %v", err)
	}

	md := trend.RenderMarkdown(t, regressions)
	fmt.Print(md)
	writeArtifact(outputPath, []byte(md))
}

func runChart(cmd *cobra.Command, args []string) {
	pol := loadPolicy()
	_, store := openCoverage(pol)
	defer store.Close()

	analyzer := trend.NewAnalyzer(store, &pol.Trend, logging.Default().Slog())
	fmt.Print(trend.RenderChart(analyzer.History(context.Background(), windowDays)))
}
