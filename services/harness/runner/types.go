// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package runner executes property cases to terminal results and
// aggregates them into suite summaries.
package runner

import (
	"errors"
	"fmt"
	"time"

	"github.com/harborqa/relgate/services/harness"
)

// ErrViolation is the sentinel a predicate wraps to signal that the
// property does not hold for an input. Any other predicate error is
// classified as unexpected.
var ErrViolation = errors.New("property violated")

// Violationf builds a predicate failure with a formatted message.
func Violationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrViolation}, args...)...)
}

// Status is the terminal outcome of one property run. Exactly one status
// is assigned per run and results are never mutated afterwards.
type Status string

const (
	// StatusPassed means the expected number of examples was evaluated
	// with no violation.
	StatusPassed Status = "PASSED"

	// StatusFailed means the predicate reported a violation for some
	// input.
	StatusFailed Status = "FAILED"

	// StatusSkipped means the generation capability exhausted its
	// domain before the expected example count was reached.
	StatusSkipped Status = "SKIPPED"

	// StatusError means setup, generation, or the predicate failed in
	// an unexpected way.
	StatusError Status = "ERROR"

	// StatusTimeout means wall clock exceeded the definition's timeout.
	StatusTimeout Status = "TIMEOUT"
)

// Counterexample is the structured failure payload attached to FAILED and
// ERROR results.
type Counterexample struct {
	// Input is the serialized input that triggered the failure.
	Input string `json:"input"`

	// ErrorType names the Go error or panic kind.
	ErrorType string `json:"error_type"`

	// Message is the failure message.
	Message string `json:"message"`

	// Property is the property name, repeated here so the payload is
	// self-contained.
	Property string `json:"property"`

	// Category is the property's category.
	Category harness.Category `json:"category"`
}

// Result is the immutable outcome of one property run.
type Result struct {
	// Property is the property name.
	Property string `json:"property"`

	// Status is the terminal status.
	Status Status `json:"status"`

	// Duration covers generation and evaluation only; setup and
	// teardown are excluded.
	Duration time.Duration `json:"duration"`

	// ExamplesTested is the exact number of accepted inputs evaluated.
	// Inputs rejected by the precondition are not counted.
	ExamplesTested int `json:"examples_tested"`

	// Error is the failure message, empty for PASSED and SKIPPED.
	Error string `json:"error,omitempty"`

	// Counterexample is present for FAILED and ERROR results.
	Counterexample *Counterexample `json:"counterexample,omitempty"`

	// Trace is the stack trace for ERROR results caused by panics.
	Trace string `json:"trace,omitempty"`
}

// Case binds a catalog definition to the code that evaluates it.
type Case struct {
	// Definition is the registered property this case runs.
	Definition *harness.Definition

	// Domain names the input domain the generator draws from.
	Domain string

	// Setup runs before generation. A setup error classifies the run
	// ERROR; teardown still runs.
	Setup func() error

	// Teardown always runs after the case, whatever the outcome.
	// Errors and panics from teardown are logged and never override an
	// already-decided status.
	Teardown func() error

	// Precondition filters generated inputs. Rejected inputs are
	// discarded without counting toward ExamplesTested. Nil accepts
	// everything.
	Precondition func(input any) bool

	// Predicate evaluates the property for one accepted input. Return
	// nil to accept, an ErrViolation-wrapped error to fail the
	// property, or any other error for an unexpected fault.
	Predicate func(input any) error
}
