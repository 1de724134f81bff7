// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package release implements the five-gate release-readiness decision.
package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

var (
	// ErrSuiteTimeout marks a suite run killed at the hard timeout. The
	// subprocess is reaped, never leaked.
	ErrSuiteTimeout = errors.New("test suite timed out")

	// ErrNoCommand marks a runner invoked with an empty argv.
	ErrNoCommand = errors.New("no suite command configured")
)

// suiteOutputLimit caps retained suite output.
const suiteOutputLimit = 256 * 1024

// SuiteResult is one external test-suite run, parsed.
type SuiteResult struct {
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
	ExitCode int           `json:"exit_code"`
	TimedOut bool          `json:"timed_out"`
	Output   string        `json:"-"`
}

// PassRate returns passed/total as a percentage, 0.0 on an empty run.
func (r *SuiteResult) PassRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return 100 * float64(r.Passed) / float64(r.Total)
}

// Succeeded reports a clean run: exit zero, no timeout, no failures.
func (r *SuiteResult) Succeeded() bool {
	return !r.TimedOut && r.ExitCode == 0 && r.Failed == 0
}

// SuiteRunner executes the external test suite and parses its summary.
//
// # Description
//
// The runner prefers a structured JSON summary file written by the
// suite; when that is absent it falls back to scraping "N passed, M
// failed" style counters from the captured output. A run that exceeds
// the hard timeout is killed, reaped, and reported with TimedOut set
// alongside ErrSuiteTimeout.
type SuiteRunner struct {
	workingDir  string
	summaryFile string
	logger      *slog.Logger
}

// NewSuiteRunner builds a runner. summaryFile is resolved against
// workingDir when relative; empty disables the structured path.
func NewSuiteRunner(workingDir, summaryFile string, logger *slog.Logger) *SuiteRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &SuiteRunner{workingDir: workingDir, summaryFile: summaryFile, logger: logger}
}

// Run executes argv under the hard timeout and parses the result.
func (r *SuiteRunner) Run(ctx context.Context, argv []string, timeout time.Duration) (*SuiteResult, error) {
	if len(argv) == 0 {
		return nil, ErrNoCommand
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = r.workingDir
	// Give the killed process a grace window to be reaped before Wait
	// returns, so a timeout never leaks a zombie.
	cmd.WaitDelay = 5 * time.Second

	out := newLimitedBuffer(suiteOutputLimit)
	cmd.Stdout = out
	cmd.Stderr = out

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	result := &SuiteResult{Duration: elapsed, Output: out.String()}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		r.logger.Error("suite run killed at hard timeout",
			"command", argv[0],
			"timeout", timeout.String())
		return result, fmt.Errorf("%w after %s", ErrSuiteTimeout, timeout)
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return result, fmt.Errorf("run suite %q: %w", argv[0], err)
	}

	r.parseSummary(result)
	r.logger.Info("suite run complete",
		"passed", result.Passed,
		"failed", result.Failed,
		"duration", elapsed.Round(time.Millisecond).String(),
		"exit_code", result.ExitCode)
	return result, nil
}

// suiteSummary is the structured summary document a suite may write.
type suiteSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

func (r *SuiteRunner) parseSummary(result *SuiteResult) {
	if r.summaryFile != "" {
		path := r.summaryFile
		if !filepath.IsAbs(path) && r.workingDir != "" {
			path = filepath.Join(r.workingDir, path)
		}
		if data, err := os.ReadFile(path); err == nil {
			var summary suiteSummary
			if err := json.Unmarshal(data, &summary); err == nil {
				result.Total = summary.Total
				result.Passed = summary.Passed
				result.Failed = summary.Failed
				result.Skipped = summary.Skipped
				if result.Total == 0 {
					result.Total = summary.Passed + summary.Failed + summary.Skipped
				}
				return
			}
			r.logger.Warn("summary file unparseable, falling back to output scrape",
				"path", path, "error", err.Error())
		}
	}
	parseTextualSummary(result)
}

var (
	passedRe  = regexp.MustCompile(`(\d+)\s+passed`)
	failedRe  = regexp.MustCompile(`(\d+)\s+failed`)
	skippedRe = regexp.MustCompile(`(\d+)\s+skipped`)
)

// parseTextualSummary scrapes "N passed, M failed" counters from suite
// output. Missing counters stay zero.
func parseTextualSummary(result *SuiteResult) {
	result.Passed = lastCount(passedRe, result.Output)
	result.Failed = lastCount(failedRe, result.Output)
	result.Skipped = lastCount(skippedRe, result.Output)
	result.Total = result.Passed + result.Failed + result.Skipped
}

func lastCount(re *regexp.Regexp, s string) int {
	matches := re.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return 0
	}
	n, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		return 0
	}
	return n
}

// limitedBuffer retains at most limit bytes and silently drops the rest.
type limitedBuffer struct {
	buf   []byte
	limit int
}

func newLimitedBuffer(limit int) *limitedBuffer {
	return &limitedBuffer{limit: limit}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - len(b.buf)
	if remaining > 0 {
		if len(p) > remaining {
			b.buf = append(b.buf, p[:remaining]...)
		} else {
			b.buf = append(b.buf, p...)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return string(b.buf)
}
