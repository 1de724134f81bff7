// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath      string
	windowDays      int
	outputPath      string
	failOnError     bool
	runWorkers      int
	runSeed         uint64
	runCategories   []string
	runPriorities   []string
	includeDisabled bool

	rootCmd = &cobra.Command{
		Use:   "relgate",
		Short: "Release-readiness gates over a property suite and coverage time series",
		Long: `relgate captures coverage snapshots into a local time series, analyzes
				trends, runs the registered correctness properties, and evaluates the
				five release gates (pass rate, coverage, performance, code quality,
				reliability).`,
	}

	// --- Coverage ---
	snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Capture a coverage snapshot and append it to the time series",
		Run:   runSnapshot, // Defined in cmd_snapshot.go
	}

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Render the coverage trend report for the trailing window",
		Run:   runReport, // Defined in cmd_report.go
	}
	chartCmd = &cobra.Command{
		Use:   "chart",
		Short: "Render the overall-coverage series as an ASCII chart",
		Run:   runChart, // Defined in cmd_report.go
	}

	// --- Release Gates ---
	gatesCmd = &cobra.Command{
		Use:   "gates",
		Short: "Evaluate all five release gates and write the JSON report",
		Run:   runGates, // Defined in cmd_gates.go
	}

	// --- Property Harness ---
	planCmd = &cobra.Command{
		Use:   "plan",
		Short: "Print the deterministic execution plan of the registered properties",
		Run:   runPlan, // Defined in cmd_run.go
	}
	runPropsCmd = &cobra.Command{
		Use:   "run",
		Short: "Execute the registered correctness properties",
		Run:   runProperties, // Defined in cmd_run.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "relgate.yaml",
		"Path to the policy file; missing file falls back to built-in defaults")

	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().StringVarP(&outputPath, "output", "o", "",
		"Write the Markdown coverage report to this file")

	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().IntVar(&windowDays, "days", 30, "Trailing window in days")
	reportCmd.Flags().StringVarP(&outputPath, "output", "o", "",
		"Write the Markdown trend report to this file")

	rootCmd.AddCommand(chartCmd)
	chartCmd.Flags().IntVar(&windowDays, "days", 30, "Trailing window in days")

	rootCmd.AddCommand(gatesCmd)
	gatesCmd.Flags().BoolVar(&failOnError, "fail-on-error", true,
		"Exit 1 when any gate fails")
	gatesCmd.Flags().StringVarP(&outputPath, "output", "o", "gate_report.json",
		"Write the JSON gate report to this file")

	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringSliceVar(&runCategories, "category", nil,
		"Restrict to these property categories")
	planCmd.Flags().StringSliceVar(&runPriorities, "priority", nil,
		"Restrict to these property priorities")
	planCmd.Flags().BoolVar(&includeDisabled, "include-disabled", false,
		"Include disabled properties in the plan")

	rootCmd.AddCommand(runPropsCmd)
	runPropsCmd.Flags().IntVar(&runWorkers, "workers", 1,
		"Worker pool size; 1 runs sequentially")
	runPropsCmd.Flags().Uint64Var(&runSeed, "seed", 1,
		"Generator seed; a fixed seed reproduces the exact input sequence")
	runPropsCmd.Flags().StringSliceVar(&runCategories, "category", nil,
		"Restrict to these property categories")
	runPropsCmd.Flags().StringSliceVar(&runPriorities, "priority", nil,
		"Restrict to these property priorities")
}
