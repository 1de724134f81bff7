// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package release

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/harborqa/relgate/pkg/config"
	"github.com/harborqa/relgate/services/coverage"
)

// Gate names, in evaluation order.
const (
	GatePassRate    = "pass_rate"
	GateCoverage    = "coverage"
	GatePerformance = "performance"
	GateQuality     = "code_quality"
	GateReliability = "reliability"
)

// GateResult is one gate's verdict.
type GateResult struct {
	Name      string         `json:"name"`
	Passed    bool           `json:"passed"`
	Score     float64        `json:"score"`
	Threshold float64        `json:"threshold"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// Report is one full gate evaluation.
type Report struct {
	RunID     string        `json:"run_id"`
	Timestamp time.Time     `json:"timestamp"`
	Gates     []GateResult  `json:"gates"`
	Passed    bool          `json:"passed"`
	Failures  []string      `json:"failures,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// JSON serializes the report for artifact export.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Summary is a one-line verdict listing every failing gate, never just
// the first.
func (r *Report) Summary() string {
	if r.Passed {
		return fmt.Sprintf("all %d gates passed", len(r.Gates))
	}
	return fmt.Sprintf("%d of %d gates failed: %s",
		len(r.Failures), len(r.Gates), strings.Join(r.Failures, "; "))
}

// Engine evaluates the five release gates.
//
// # Description
//
// Each gate runs individually recovered: a panic or error inside one
// gate becomes that gate's failure and the remaining gates still run,
// so a single evaluation enumerates every violated criterion. The
// overall verdict is the logical AND of all five gates.
//
// # Thread Safety
//
// Engine is stateless between evaluations and safe for concurrent use.
type Engine struct {
	policy   *config.Policy
	runner   *SuiteRunner
	coverage *coverage.Service
	logger   *slog.Logger
}

// NewEngine wires the gate engine. coverageSvc may share its store with
// trend analysis.
func NewEngine(policy *config.Policy, runner *SuiteRunner, coverageSvc *coverage.Service, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{policy: policy, runner: runner, coverage: coverageSvc, logger: logger}
}

// Evaluate runs all five gates and never exits the process. The ctx
// cancels in-flight subprocesses; a cancelled gate reports failure.
func (e *Engine) Evaluate(ctx context.Context) *Report {
	ctx, span := otel.Tracer("relgate/release").Start(ctx, "gates.evaluate")
	defer span.End()

	report := &Report{
		RunID:     uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Passed:    true,
	}
	start := time.Now()

	gates := []struct {
		name string
		fn   func(context.Context) GateResult
	}{
		{GatePassRate, e.passRateGate},
		{GateCoverage, e.coverageGate},
		{GatePerformance, e.performanceGate},
		{GateQuality, e.qualityGate},
		{GateReliability, e.reliabilityGate},
	}
	for _, g := range gates {
		result := e.runGate(ctx, g.name, g.fn)
		report.Gates = append(report.Gates, result)
		if !result.Passed {
			report.Passed = false
			report.Failures = append(report.Failures, fmt.Sprintf("%s: %s", result.Name, result.Message))
		}
		observeGate(result)
	}
	sort.Strings(report.Failures)
	report.Duration = time.Since(start)

	span.SetAttributes(
		attribute.String("run_id", report.RunID),
		attribute.Bool("passed", report.Passed),
		attribute.Int("failures", len(report.Failures)),
	)
	if !report.Passed {
		span.SetStatus(codes.Error, report.Summary())
	}
	e.logger.Info("gate evaluation complete",
		"run_id", report.RunID,
		"passed", report.Passed,
		"summary", report.Summary(),
		"duration", report.Duration.Round(time.Millisecond).String())
	return report
}

// Enforce evaluates the gates and, only when failOnError is set,
// terminates the process with exit code 1 on failure.
func (e *Engine) Enforce(ctx context.Context, failOnError bool) *Report {
	report := e.Evaluate(ctx)
	if failOnError && !report.Passed {
		e.logger.Error("release gates failed, exiting", "summary", report.Summary())
		os.Exit(1)
	}
	return report
}

// runGate isolates one gate: a panic becomes that gate's failure.
func (e *Engine) runGate(ctx context.Context, name string, fn func(context.Context) GateResult) (result GateResult) {
	ctx, span := otel.Tracer("relgate/release").Start(ctx, "gate."+name)
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("gate panicked",
				"gate", name,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
			result = GateResult{
				Name:    name,
				Passed:  false,
				Message: fmt.Sprintf("gate panicked: %v", r),
			}
		}
		span.SetAttributes(
			attribute.Bool("passed", result.Passed),
			attribute.Float64("score", result.Score),
		)
		if !result.Passed {
			span.SetStatus(codes.Error, result.Message)
		}
	}()
	return fn(ctx)
}

// passRateGate runs the full suite and checks its pass rate.
func (e *Engine) passRateGate(ctx context.Context) GateResult {
	threshold := e.policy.Gates.PassRateThreshold
	result, err := e.runner.Run(ctx, e.policy.Suite.Command, e.policy.Gates.PerformanceTimeout())
	if err != nil {
		return GateResult{
			Name:      GatePassRate,
			Threshold: threshold,
			Message:   fmt.Sprintf("suite run failed: %v", err),
		}
	}
	rate := result.PassRate()
	return GateResult{
		Name:      GatePassRate,
		Passed:    rate >= threshold,
		Score:     rate,
		Threshold: threshold,
		Message: fmt.Sprintf("pass rate %.1f%% (%d/%d), threshold %.1f%%",
			rate, result.Passed, result.Total, threshold),
		Details: map[string]any{
			"passed":  result.Passed,
			"failed":  result.Failed,
			"skipped": result.Skipped,
		},
	}
}

// coverageGate captures a fresh snapshot and checks the global minimum
// plus every component minimum, enumerating all violations.
func (e *Engine) coverageGate(ctx context.Context) GateResult {
	pol := &e.policy.Coverage
	snap, err := e.coverage.Capture(ctx)
	if err != nil {
		return GateResult{
			Name:      GateCoverage,
			Threshold: pol.GlobalMinimum,
			Message:   fmt.Sprintf("snapshot capture failed: %v", err),
		}
	}

	var violations []string
	if snap.Overall < pol.GlobalMinimum {
		violations = append(violations, fmt.Sprintf(
			"overall %.1f%% < %.1f%%", snap.Overall, pol.GlobalMinimum))
	}
	for _, name := range coverage.Components() {
		minimum := pol.ComponentMinimums[name]
		if actual := snap.Component(name); actual < minimum {
			violations = append(violations, fmt.Sprintf(
				"%s %.1f%% < %.1f%%", name, actual, minimum))
		}
	}

	result := GateResult{
		Name:      GateCoverage,
		Passed:    len(violations) == 0,
		Score:     snap.Overall,
		Threshold: pol.GlobalMinimum,
		Details:   map[string]any{"snapshot_id": snap.ID, "degraded": snap.Degraded},
	}
	if result.Passed {
		result.Message = fmt.Sprintf("overall %.1f%%, all components above minimum", snap.Overall)
	} else {
		result.Message = strings.Join(violations, "; ")
	}
	return result
}

// performanceGate runs the fast subset under the soft target inside the
// hard timeout. A timeout is a gate failure, not a crash.
func (e *Engine) performanceGate(ctx context.Context) GateResult {
	target := e.policy.Gates.PerformanceTarget()
	result, err := e.runner.Run(ctx, e.policy.Suite.FastCommand, e.policy.Gates.PerformanceTimeout())
	if err != nil {
		msg := fmt.Sprintf("fast suite failed: %v", err)
		if result != nil && result.TimedOut {
			msg = fmt.Sprintf("fast suite exceeded hard timeout %s", e.policy.Gates.PerformanceTimeout())
		}
		return GateResult{
			Name:      GatePerformance,
			Threshold: target.Seconds(),
			Message:   msg,
		}
	}
	elapsed := result.Duration
	return GateResult{
		Name:      GatePerformance,
		Passed:    elapsed <= target,
		Score:     elapsed.Seconds(),
		Threshold: target.Seconds(),
		Message: fmt.Sprintf("fast suite took %s, target %s",
			elapsed.Round(time.Millisecond), target),
	}
}

// qualityGate scans test sources for markers and naming violations.
func (e *Engine) qualityGate(context.Context) GateResult {
	threshold := e.policy.Gates.QualityThreshold
	scan, err := Scan(e.policy.Suite.WorkingDir, e.policy.Suite.TestGlobs)
	if err != nil {
		return GateResult{
			Name:      GateQuality,
			Threshold: threshold,
			Message:   fmt.Sprintf("scan failed: %v", err),
		}
	}
	return GateResult{
		Name:      GateQuality,
		Passed:    scan.Score >= threshold,
		Score:     scan.Score,
		Threshold: threshold,
		Message: fmt.Sprintf("quality score %.0f (%d findings in %d categories across %d files)",
			scan.Score, len(scan.Findings), len(scan.Categories), scan.FilesScanned),
		Details: map[string]any{"categories": scan.Categories},
	}
}

// reliabilityGate reruns the fast subset and requires a stable success
// rate across runs.
func (e *Engine) reliabilityGate(ctx context.Context) GateResult {
	threshold := e.policy.Gates.ReliabilityThreshold
	runs := e.policy.Gates.ReliabilityRuns
	succeeded := 0
	for i := 0; i < runs; i++ {
		if ctx.Err() != nil {
			return GateResult{
				Name:      GateReliability,
				Threshold: threshold,
				Message:   fmt.Sprintf("cancelled after %d of %d runs", i, runs),
			}
		}
		result, err := e.runner.Run(ctx, e.policy.Suite.FastCommand, e.policy.Gates.PerformanceTimeout())
		if err == nil && result.Succeeded() {
			succeeded++
		}
	}
	rate := 100 * float64(succeeded) / float64(runs)
	return GateResult{
		Name:      GateReliability,
		Passed:    rate >= threshold,
		Score:     rate,
		Threshold: threshold,
		Message: fmt.Sprintf("%d/%d runs succeeded (%.1f%%), threshold %.1f%%",
			succeeded, runs, rate, threshold),
	}
}
