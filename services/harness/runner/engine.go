// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/harborqa/relgate/services/harness/generate"
)

// Engine runs property cases against a generation capability.
//
// # Description
//
// One Engine cooperates with one Generator. A single case's
// draw-validate-evaluate loop is single-threaded; RunAll distributes
// independent cases across a fixed-size worker pool.
//
// # Thread Safety
//
// Safe for concurrent use as long as the Generator is.
type Engine struct {
	gen    generate.Generator
	logger *slog.Logger
}

// NewEngine creates an engine over the given generator. A nil logger
// falls back to slog.Default().
func NewEngine(gen generate.Generator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{gen: gen, logger: logger}
}

// Run executes one case to a terminal result.
//
// The protocol: setup (failure means ERROR, teardown still runs), then draw
// inputs until the expected example count is reached (PASSED), the
// generator exhausts (SKIPPED), or the definition timeout elapses
// (TIMEOUT). Precondition-rejected inputs never count. A violation from
// the predicate produces FAILED with a counterexample; any other fault
// produces ERROR with a trace. Result.Duration covers the loop only.
func (e *Engine) Run(ctx context.Context, c *Case) *Result {
	def := c.Definition
	result := &Result{Property: def.Name}

	defer e.teardown(c, result)

	if c.Setup != nil {
		if err := e.runSetup(c); err != nil {
			result.Status = StatusError
			result.Error = fmt.Sprintf("setup: %v", err)
			observeResult(result)
			return result
		}
	}

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		observeResult(result)
	}()

	runCtx, cancel := context.WithTimeout(ctx, def.Timeout)
	defer cancel()

	for result.ExamplesTested < def.ExpectedExamples {
		if err := runCtx.Err(); err != nil {
			e.classifyContextErr(err, result)
			return result
		}

		input, err := e.gen.Draw(runCtx, c.Domain)
		switch {
		case err == nil:
		case errors.Is(err, generate.ErrExhausted):
			// Not a failure: the domain simply ran out of distinct
			// inputs. ExamplesTested reflects what was evaluated.
			result.Status = StatusSkipped
			e.logger.Debug("generator exhausted",
				slog.String("property", def.Name),
				slog.Int("examples_tested", result.ExamplesTested),
			)
			return result
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
			e.classifyContextErr(err, result)
			return result
		default:
			result.Status = StatusError
			result.Error = fmt.Sprintf("generate: %v", err)
			result.Counterexample = e.counterexample(c, nil, err)
			return result
		}

		if c.Precondition != nil && !c.Precondition(input) {
			continue
		}

		verdict, trace := e.evaluate(c, input)
		switch {
		case verdict == nil:
			result.ExamplesTested++
		case errors.Is(verdict, ErrViolation):
			result.ExamplesTested++
			result.Status = StatusFailed
			result.Error = verdict.Error()
			result.Counterexample = e.counterexample(c, input, verdict)
			return result
		default:
			result.ExamplesTested++
			result.Status = StatusError
			result.Error = verdict.Error()
			result.Counterexample = e.counterexample(c, input, verdict)
			result.Trace = trace
			return result
		}
	}

	result.Status = StatusPassed
	return result
}

// runSetup isolates setup panics into errors.
func (e *Engine) runSetup(c *Case) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.Setup()
}

// evaluate runs the predicate on one input, converting panics into
// errors with a captured stack.
func (e *Engine) evaluate(c *Case, input any) (verdict error, trace string) {
	defer func() {
		if r := recover(); r != nil {
			verdict = fmt.Errorf("panic: %v", r)
			trace = string(debug.Stack())
		}
	}()
	return c.Predicate(input), ""
}

// teardown runs the case's teardown in a guaranteed-cleanup path.
// Teardown faults are logged and never override the decided status.
func (e *Engine) teardown(c *Case, result *Result) {
	if c.Teardown == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("teardown panicked",
				slog.String("property", c.Definition.Name),
				slog.Any("panic", r),
			)
		}
	}()
	if err := c.Teardown(); err != nil {
		e.logger.Warn("teardown failed",
			slog.String("property", c.Definition.Name),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) classifyContextErr(err error, result *Result) {
	if errors.Is(err, context.DeadlineExceeded) {
		result.Status = StatusTimeout
		result.Error = "timeout exceeded"
		return
	}
	result.Status = StatusError
	result.Error = fmt.Sprintf("run cancelled: %v", err)
}

func (e *Engine) counterexample(c *Case, input any, err error) *Counterexample {
	return &Counterexample{
		Input:     fmt.Sprintf("%#v", input),
		ErrorType: fmt.Sprintf("%T", err),
		Message:   err.Error(),
		Property:  c.Definition.Name,
		Category:  c.Definition.Category,
	}
}
