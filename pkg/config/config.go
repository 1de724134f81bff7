// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config holds the release-quality policy: every threshold the
// coverage analyzers, trend detection, and quality gates consult.
//
// The numbers here are policy, not invariants. They ship with defaults that
// match long-standing team practice (85% file coverage floor, -1.0 point
// overall regression tolerance, and so on) but every one of them can be
// overridden from a YAML policy file:
//
//	policy, err := config.Load("relgate.yaml")
//	if err != nil { ... }
//
// A missing file is not an error; Load falls back to Default().
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidPolicy is returned when a policy file fails validation.
var ErrInvalidPolicy = errors.New("invalid policy")

// CoveragePolicy sets the coverage thresholds consulted by the coverage
// gate and the gap analyzer. Values are percentages.
type CoveragePolicy struct {
	// GlobalMinimum is the overall coverage floor for the coverage gate.
	GlobalMinimum float64 `yaml:"global_minimum" validate:"gte=0,lte=100"`

	// ComponentMinimums is the per-component coverage floor.
	ComponentMinimums map[string]float64 `yaml:"component_minimums" validate:"dive,gte=0,lte=100"`

	// ComponentTargets is the per-component aspirational target. Falling
	// short of a target produces a recommendation, not a gate failure.
	ComponentTargets map[string]float64 `yaml:"component_targets" validate:"dive,gte=0,lte=100"`

	// FileThreshold is the per-file coverage floor below which a gap is
	// reported.
	FileThreshold float64 `yaml:"file_threshold" validate:"gte=0,lte=100"`

	// UncoveredLineLimit reports a gap for any file with more uncovered
	// lines than this, regardless of its percentage.
	UncoveredLineLimit int `yaml:"uncovered_line_limit" validate:"gte=0"`

	// HighUrgencyBelow marks a gap high urgency when file coverage is
	// below this percentage.
	HighUrgencyBelow float64 `yaml:"high_urgency_below" validate:"gte=0,lte=100"`

	// MediumUrgencyBelow marks a gap medium urgency when file coverage is
	// below this percentage.
	MediumUrgencyBelow float64 `yaml:"medium_urgency_below" validate:"gte=0,lte=100"`
}

// TrendPolicy sets the regression tolerances for trend analysis. Deltas are
// in coverage percentage points; more negative means a larger drop.
type TrendPolicy struct {
	// OverallRegression flags a regression when the overall delta drops
	// below this (e.g. -1.0).
	OverallRegression float64 `yaml:"overall_regression" validate:"lte=0"`

	// ComponentRegression flags a regression when any component delta
	// drops below this. Looser than the overall tolerance because
	// per-component sample sizes are smaller and noisier.
	ComponentRegression float64 `yaml:"component_regression" validate:"lte=0"`

	// FileRegression is the default per-file drop threshold for
	// file-level regression detection.
	FileRegression float64 `yaml:"file_regression" validate:"gte=0"`
}

// GatePolicy sets the thresholds for the five release gates.
type GatePolicy struct {
	// PassRateThreshold is the minimum test pass rate percentage.
	PassRateThreshold float64 `yaml:"pass_rate_threshold" validate:"gte=0,lte=100"`

	// QualityThreshold is the minimum code-quality score.
	QualityThreshold float64 `yaml:"quality_threshold" validate:"gte=0,lte=100"`

	// ReliabilityThreshold is the minimum rerun success-rate percentage.
	ReliabilityThreshold float64 `yaml:"reliability_threshold" validate:"gte=0,lte=100"`

	// ReliabilityRuns is how many times the fast subset is rerun.
	ReliabilityRuns int `yaml:"reliability_runs" validate:"gte=1"`

	// PerformanceTargetSeconds is the soft wall-clock target for the
	// fast subset.
	PerformanceTargetSeconds int `yaml:"performance_target_seconds" validate:"gt=0"`

	// PerformanceTimeoutSeconds is the hard subprocess timeout. Exceeding
	// it fails the performance gate and kills the subprocess.
	PerformanceTimeoutSeconds int `yaml:"performance_timeout_seconds" validate:"gt=0"`
}

// PerformanceTarget returns the soft target as a duration.
func (g GatePolicy) PerformanceTarget() time.Duration {
	return time.Duration(g.PerformanceTargetSeconds) * time.Second
}

// PerformanceTimeout returns the hard timeout as a duration.
func (g GatePolicy) PerformanceTimeout() time.Duration {
	return time.Duration(g.PerformanceTimeoutSeconds) * time.Second
}

// SuitePolicy describes how to invoke the external test suite and the
// coverage collector.
type SuitePolicy struct {
	// Command is the argv for a full suite run.
	Command []string `yaml:"command" validate:"min=1"`

	// FastCommand is the argv for the reduced fast subset.
	FastCommand []string `yaml:"fast_command" validate:"min=1"`

	// CoverageCommand is the argv for the coverage collector.
	CoverageCommand []string `yaml:"coverage_command" validate:"min=1"`

	// CoverageReport is the path of the machine-readable report the
	// collector writes.
	CoverageReport string `yaml:"coverage_report" validate:"required"`

	// SummaryFile is the machine-readable run summary the suite writes,
	// if any. Empty means rely on the textual summary line.
	SummaryFile string `yaml:"summary_file"`

	// WorkingDir is the directory suite processes run in.
	WorkingDir string `yaml:"working_dir"`

	// TestGlobs selects test sources for the code-quality scan.
	TestGlobs []string `yaml:"test_globs" validate:"min=1"`
}

// Policy is the complete relgate policy document.
type Policy struct {
	Coverage CoveragePolicy `yaml:"coverage"`
	Trend    TrendPolicy    `yaml:"trend"`
	Gates    GatePolicy     `yaml:"gates"`
	Suite    SuitePolicy    `yaml:"suite"`

	// ComponentKeywords classifies files by path substring. Matching is
	// attempted in the order core, domain, integration; the first hit
	// wins and unmatched files fall into "other". This is rough triage,
	// not an authoritative mapping.
	ComponentKeywords map[string][]string `yaml:"component_keywords"`

	// DatabasePath is the SQLite file holding the snapshot time series.
	DatabasePath string `yaml:"database_path" validate:"required"`
}

// Default returns the policy relgate ships with.
func Default() *Policy {
	return &Policy{
		Coverage: CoveragePolicy{
			GlobalMinimum: 80.0,
			ComponentMinimums: map[string]float64{
				"core":        90.0,
				"domain":      85.0,
				"integration": 75.0,
			},
			ComponentTargets: map[string]float64{
				"core":        95.0,
				"domain":      90.0,
				"integration": 85.0,
			},
			FileThreshold:      85.0,
			UncoveredLineLimit: 10,
			HighUrgencyBelow:   50.0,
			MediumUrgencyBelow: 70.0,
		},
		Trend: TrendPolicy{
			OverallRegression:   -1.0,
			ComponentRegression: -2.0,
			FileRegression:      1.0,
		},
		Gates: GatePolicy{
			PassRateThreshold:         99.0,
			QualityThreshold:          80.0,
			ReliabilityThreshold:      90.0,
			ReliabilityRuns:           3,
			PerformanceTargetSeconds:  30,
			PerformanceTimeoutSeconds: 300,
		},
		Suite: SuitePolicy{
			Command:         []string{"go", "test", "./..."},
			FastCommand:     []string{"go", "test", "-short", "./..."},
			CoverageCommand: []string{"go", "test", "-coverprofile", "coverage.out", "./..."},
			CoverageReport:  "coverage.json",
			SummaryFile:     "",
			WorkingDir:      "",
			TestGlobs:       []string{"**/*_test.go"},
		},
		ComponentKeywords: map[string][]string{
			"core":        {"core", "engine", "harness"},
			"domain":      {"domain", "analysis", "model"},
			"integration": {"integration", "cli", "api"},
		},
		DatabasePath: ".relgate/coverage.db",
	}
}

// Load reads a YAML policy file, fills unset sections from Default(), and
// validates the result. A missing file returns Default() without error; a
// malformed or invalid file returns ErrInvalidPolicy.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	policy := Default()
	if err := yaml.Unmarshal(data, policy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}

	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return policy, nil
}

// Validate checks the policy against its struct tags plus the cross-field
// constraints the tags can't express.
func (p *Policy) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	if p.Coverage.HighUrgencyBelow > p.Coverage.MediumUrgencyBelow {
		return fmt.Errorf("%w: high_urgency_below (%.1f) must not exceed medium_urgency_below (%.1f)",
			ErrInvalidPolicy, p.Coverage.HighUrgencyBelow, p.Coverage.MediumUrgencyBelow)
	}
	if p.Gates.PerformanceTargetSeconds > p.Gates.PerformanceTimeoutSeconds {
		return fmt.Errorf("%w: performance_target_seconds (%d) must not exceed performance_timeout_seconds (%d)",
			ErrInvalidPolicy, p.Gates.PerformanceTargetSeconds, p.Gates.PerformanceTimeoutSeconds)
	}
	return nil
}
