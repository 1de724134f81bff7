// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package coverage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// collectorOutputLimit caps how much collector output we retain for
// diagnostics.
const collectorOutputLimit = 64 * 1024

// Collector runs an external coverage tool and parses the report it
// writes. Every failure mode degrades to a zero report so snapshot
// capture keeps working without coverage data.
//
// # Thread Safety
//
// Collector is immutable after construction and safe for concurrent use.
type Collector struct {
	command    []string
	reportPath string
	workingDir string
	timeout    time.Duration
	logger     *slog.Logger
}

// NewCollector builds a collector. command is the argv of the coverage
// tool; reportPath is where the tool writes its report, resolved against
// workingDir when relative.
func NewCollector(command []string, reportPath, workingDir string, timeout time.Duration, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Collector{
		command:    command,
		reportPath: reportPath,
		workingDir: workingDir,
		timeout:    timeout,
		logger:     logger,
	}
}

// Collect runs the coverage command, then parses the report file. A
// failing command is logged but the report file is still parsed: many
// coverage tools exit non-zero when tests fail while writing a valid
// report.
func (c *Collector) Collect(ctx context.Context) *Report {
	if len(c.command) == 0 {
		return c.parse()
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.command[0], c.command[1:]...)
	cmd.Dir = c.workingDir

	var output bytes.Buffer
	cmd.Stdout = &collectorWriter{buf: &output}
	cmd.Stderr = &collectorWriter{buf: &output}

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	switch {
	case err == nil:
		c.logger.Info("coverage collection complete",
			"command", c.command[0],
			"duration", elapsed.Round(time.Millisecond).String())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		c.logger.Error("coverage collection timed out",
			"command", strings.Join(c.command, " "),
			"timeout", c.timeout.String())
		return DegradedReport(fmt.Sprintf("coverage command timed out after %s", c.timeout))
	default:
		// Non-zero exit still usually leaves a usable report behind.
		c.logger.Warn("coverage command exited non-zero",
			"command", strings.Join(c.command, " "),
			"error", err.Error(),
			"output_tail", tail(output.String(), 512))
	}

	return c.parse()
}

func (c *Collector) parse() *Report {
	path := c.reportPath
	if !filepath.IsAbs(path) && c.workingDir != "" {
		path = filepath.Join(c.workingDir, path)
	}
	report := ParseReportFile(path)
	if report.Degraded {
		c.logger.Warn("degrading to zero coverage", "reason", report.Message)
	}
	return report
}

// collectorWriter retains at most collectorOutputLimit bytes and drops
// the rest.
type collectorWriter struct {
	buf *bytes.Buffer
}

func (w *collectorWriter) Write(p []byte) (int, error) {
	remaining := collectorOutputLimit - w.buf.Len()
	if remaining > 0 {
		if len(p) > remaining {
			w.buf.Write(p[:remaining])
		} else {
			w.buf.Write(p)
		}
	}
	return len(p), nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
