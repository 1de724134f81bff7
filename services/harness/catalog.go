// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package harness

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Catalog is the process-wide property registry.
//
// # Description
//
// The catalog maps names to definitions and maintains category and
// requirement indexes alongside. It is passed explicitly to every
// component that needs it; nothing in this package registers state at
// import time.
//
// # Thread Safety
//
// Safe for concurrent use. Registration serializes around the name index
// so the uniqueness invariant holds under contention.
type Catalog struct {
	mu            sync.RWMutex
	definitions   map[string]*Definition
	byCategory    map[Category][]string
	byRequirement map[string][]string
}

// NewCatalog creates a catalog populated with the built-in property
// definitions.
func NewCatalog() *Catalog {
	c := NewEmptyCatalog()
	for _, def := range builtinDefinitions() {
		// Built-ins are maintained alongside this package; a bad one
		// is a programming error, not an input error.
		if err := c.Register(def); err != nil {
			panic(fmt.Sprintf("harness: built-in property %q: %v", def.Name, err))
		}
	}
	return c
}

// NewEmptyCatalog creates a catalog with no definitions.
func NewEmptyCatalog() *Catalog {
	return &Catalog{
		definitions:   make(map[string]*Definition),
		byCategory:    make(map[Category][]string),
		byRequirement: make(map[string][]string),
	}
}

// Register validates the definition and adds it to the catalog and its
// indexes. It fails with ErrDuplicateProperty if the name exists and
// ErrInvalidDefinition for enum or structural violations; on failure the
// catalog is unchanged.
func (c *Catalog) Register(def *Definition) error {
	if def == nil {
		return fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
	}
	if err := def.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.definitions[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProperty, def.Name)
	}

	stored := def.clone()
	c.definitions[stored.Name] = stored
	c.byCategory[stored.Category] = append(c.byCategory[stored.Category], stored.Name)
	for _, req := range stored.Requirements {
		c.byRequirement[req] = append(c.byRequirement[req], stored.Name)
	}
	return nil
}

// MustRegister registers a definition and panics on error. For use during
// initialization only.
func (c *Catalog) MustRegister(def *Definition) {
	if err := c.Register(def); err != nil {
		panic(fmt.Sprintf("harness: failed to register %q: %v", def.Name, err))
	}
}

// Get returns the definition for name, or ErrPropertyNotFound.
func (c *Catalog) Get(name string) (*Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.definitions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPropertyNotFound, name)
	}
	return def.clone(), nil
}

// Count returns the number of registered properties.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.definitions)
}

// ByCategory returns the definitions in a category, sorted by name.
func (c *Catalog) ByCategory(cat Category) []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collect(c.byCategory[cat])
}

// ByPriority returns the definitions with the given priority, sorted by
// name.
func (c *Catalog) ByPriority(p Priority) []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var names []string
	for name, def := range c.definitions {
		if def.Priority == p {
			names = append(names, name)
		}
	}
	return c.collect(names)
}

// ByRequirement returns the definitions claiming a requirement id, sorted
// by name.
func (c *Catalog) ByRequirement(req string) []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collect(c.byRequirement[req])
}

// collect resolves names to cloned definitions sorted by name.
// Callers must hold at least a read lock.
func (c *Catalog) collect(names []string) []*Definition {
	out := make([]*Definition, 0, len(names))
	for _, name := range names {
		if def, ok := c.definitions[name]; ok {
			out = append(out, def.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetEnabled flips the enabled flag on a registered property. The flag is
// the only post-registration mutation the catalog permits.
func (c *Catalog) SetEnabled(name string, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	def, ok := c.definitions[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPropertyNotFound, name)
	}
	def.Enabled = enabled
	return nil
}

// RequirementCoverage reports how well the catalog covers a requirement
// universe.
type RequirementCoverage struct {
	// Covered lists requirement ids claimed by at least one property.
	Covered []string `json:"covered"`

	// Uncovered lists requirement ids no property claims.
	Uncovered []string `json:"uncovered"`

	// Percentage is covered / universe size * 100, 0 for an empty
	// universe.
	Percentage float64 `json:"percentage"`

	// ByCategory counts registered properties per category.
	ByCategory map[Category]int `json:"by_category"`

	// ByPriority counts registered properties per priority.
	ByPriority map[Priority]int `json:"by_priority"`
}

// ValidateCoverage checks every requirement id in the universe against the
// requirement index.
func (c *Catalog) ValidateCoverage(universe []string) *RequirementCoverage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cov := &RequirementCoverage{
		ByCategory: make(map[Category]int),
		ByPriority: make(map[Priority]int),
	}
	for _, req := range universe {
		if len(c.byRequirement[req]) > 0 {
			cov.Covered = append(cov.Covered, req)
		} else {
			cov.Uncovered = append(cov.Uncovered, req)
		}
	}
	sort.Strings(cov.Covered)
	sort.Strings(cov.Uncovered)
	if len(universe) > 0 {
		cov.Percentage = float64(len(cov.Covered)) / float64(len(universe)) * 100
	}

	for _, def := range c.definitions {
		cov.ByCategory[def.Category]++
		cov.ByPriority[def.Priority]++
	}
	return cov
}

// PlanFilter narrows an execution plan. Zero value means everything
// enabled.
type PlanFilter struct {
	// Categories restricts the plan to these categories. Empty means all.
	Categories []Category

	// Priorities restricts the plan to these priorities. Empty means all.
	Priorities []Priority

	// IncludeDisabled admits disabled properties.
	IncludeDisabled bool
}

func (f PlanFilter) admits(def *Definition) bool {
	if !def.Enabled && !f.IncludeDisabled {
		return false
	}
	if len(f.Categories) > 0 && !containsCategory(f.Categories, def.Category) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, def.Priority) {
		return false
	}
	return true
}

func containsCategory(set []Category, c Category) bool {
	for _, v := range set {
		if v == c {
			return true
		}
	}
	return false
}

func containsPriority(set []Priority, p Priority) bool {
	for _, v := range set {
		if v == p {
			return true
		}
	}
	return false
}

// ExecutionPlan filters the catalog and returns definitions in the
// deterministic run order: priority rank (CRITICAL first), then category
// name, then property name. The ordering is a hard invariant; reproducible
// runs depend on it.
func (c *Catalog) ExecutionPlan(filter PlanFilter) []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var plan []*Definition
	for _, def := range c.definitions {
		if filter.admits(def) {
			plan = append(plan, def.clone())
		}
	}
	sort.Slice(plan, func(i, j int) bool {
		a, b := plan[i], plan[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Name < b.Name
	})
	return plan
}

// catalogDocument is the serialized form. Indexes are included so an
// exported catalog is inspectable without reconstructing them, but Import
// rebuilds them from the definitions rather than trusting the document.
type catalogDocument struct {
	Definitions   []*Definition       `yaml:"definitions"`
	ByCategory    map[string][]string `yaml:"by_category"`
	ByRequirement map[string][]string `yaml:"by_requirement"`
}

// Export writes the full catalog as YAML.
func (c *Catalog) Export(w io.Writer) error {
	c.mu.RLock()
	doc := catalogDocument{
		ByCategory:    make(map[string][]string),
		ByRequirement: make(map[string][]string),
	}
	for _, def := range c.definitions {
		doc.Definitions = append(doc.Definitions, def.clone())
	}
	for cat, names := range c.byCategory {
		sorted := append([]string(nil), names...)
		sort.Strings(sorted)
		doc.ByCategory[string(cat)] = sorted
	}
	for req, names := range c.byRequirement {
		sorted := append([]string(nil), names...)
		sort.Strings(sorted)
		doc.ByRequirement[req] = sorted
	}
	c.mu.RUnlock()

	sort.Slice(doc.Definitions, func(i, j int) bool {
		return doc.Definitions[i].Name < doc.Definitions[j].Name
	})
	return yaml.NewEncoder(w).Encode(doc)
}

// Import builds a fresh catalog from an exported document. Every
// definition passes through Register, so indexes and invariants are
// reconstructed rather than deserialized.
func Import(r io.Reader) (*Catalog, error) {
	var doc catalogDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := NewEmptyCatalog()
	for _, def := range doc.Definitions {
		if err := c.Register(def); err != nil {
			return nil, fmt.Errorf("import %q: %w", def.Name, err)
		}
	}
	return c, nil
}
