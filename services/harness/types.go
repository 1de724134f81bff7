// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package harness implements the correctness-property registry.
//
// A property is a universally-quantified statement about system behavior,
// verified by sampling many generated inputs. The catalog holds every
// property definition the suite knows about, indexed by name, category,
// priority, and claimed requirement, and produces deterministic execution
// plans for the runner.
package harness

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/harborqa/relgate/pkg/validation"
)

var (
	// ErrDuplicateProperty is returned when registering a name that
	// already exists in the catalog.
	ErrDuplicateProperty = errors.New("property already registered")

	// ErrPropertyNotFound is returned when a lookup misses.
	ErrPropertyNotFound = errors.New("property not found")

	// ErrInvalidDefinition is returned for a malformed definition or an
	// enum value outside its closed set.
	ErrInvalidDefinition = errors.New("invalid property definition")
)

// Category classifies what a property is about. The set is closed;
// registration rejects anything else.
type Category string

const (
	CategoryAnalysis      Category = "analysis"
	CategorySerialization Category = "serialization"
	CategoryPipeline      Category = "pipeline"
	CategoryAPI           Category = "api"
	CategoryConcurrency   Category = "concurrency"
)

// Categories lists the closed category set.
func Categories() []Category {
	return []Category{
		CategoryAnalysis,
		CategorySerialization,
		CategoryPipeline,
		CategoryAPI,
		CategoryConcurrency,
	}
}

// Valid reports whether c is a member of the closed set.
func (c Category) Valid() bool {
	switch c {
	case CategoryAnalysis, CategorySerialization, CategoryPipeline, CategoryAPI, CategoryConcurrency:
		return true
	default:
		return false
	}
}

// Priority orders properties for execution planning. The set is closed;
// registration rejects anything else.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// Priorities lists the closed priority set, highest first.
func Priorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
}

// Valid reports whether p is a member of the closed set.
func (p Priority) Valid() bool {
	return p.Rank() >= 0
}

// Rank returns the sort rank of the priority, 0 for CRITICAL through 3 for
// LOW, or -1 for an unknown value. Execution plans sort ascending by rank.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return -1
	}
}

// Definition describes one correctness property.
//
// Definitions live for the process lifetime once registered; the only
// mutation the catalog permits afterwards is the Enabled flag.
type Definition struct {
	// Name uniquely identifies the property catalog-wide.
	// Lowercase with underscores, e.g. "velocity_never_nan".
	Name string `yaml:"name" validate:"required"`

	// Description explains what the property verifies. A complete
	// sentence.
	Description string `yaml:"description" validate:"required"`

	// Category is the closed-enum classification.
	Category Category `yaml:"category" validate:"required"`

	// Priority is the closed-enum execution priority.
	Priority Priority `yaml:"priority" validate:"required"`

	// Requirements lists the requirement ids this property claims to
	// verify, for traceability.
	Requirements []string `yaml:"requirements,omitempty"`

	// Tags are free-form labels for selective runs.
	Tags []string `yaml:"tags,omitempty"`

	// ExpectedExamples is how many accepted inputs a run must evaluate
	// to pass.
	ExpectedExamples int `yaml:"expected_examples" validate:"gte=1"`

	// Timeout bounds a single run's wall clock.
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`

	// Enabled excludes the property from default execution plans when
	// false.
	Enabled bool `yaml:"enabled"`
}

var validate = validator.New()

// Validate checks structural constraints and closed-enum membership.
func (d *Definition) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	if err := validation.PropertyName(d.Name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	if !d.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidDefinition, d.Category)
	}
	if !d.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidDefinition, d.Priority)
	}
	return nil
}

// HasTag reports whether the definition carries the tag.
func (d *Definition) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// clone returns a copy so callers can't mutate catalog state through a
// returned definition.
func (d *Definition) clone() *Definition {
	out := *d
	out.Requirements = append([]string(nil), d.Requirements...)
	out.Tags = append([]string(nil), d.Tags...)
	return &out
}
