// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package harness

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"
)

func testDef(name string, cat Category, pri Priority) *Definition {
	return &Definition{
		Name:             name,
		Description:      "Test property " + name + ".",
		Category:         cat,
		Priority:         pri,
		Requirements:     []string{"REQ-" + name},
		ExpectedExamples: 10,
		Timeout:          time.Second,
		Enabled:          true,
	}
}

func TestRegister(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		c := NewEmptyCatalog()
		if err := c.Register(testDef("p1", CategoryAnalysis, PriorityHigh)); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if c.Count() != 1 {
			t.Errorf("Count = %d, want 1", c.Count())
		}
	})

	t.Run("nil definition", func(t *testing.T) {
		c := NewEmptyCatalog()
		if err := c.Register(nil); !errors.Is(err, ErrInvalidDefinition) {
			t.Errorf("expected ErrInvalidDefinition, got %v", err)
		}
	})

	t.Run("duplicate name leaves catalog unchanged", func(t *testing.T) {
		c := NewEmptyCatalog()
		first := testDef("dup", CategoryAnalysis, PriorityHigh)
		if err := c.Register(first); err != nil {
			t.Fatalf("first registration: %v", err)
		}

		second := testDef("dup", CategoryPipeline, PriorityLow)
		second.Requirements = []string{"REQ-other"}
		if err := c.Register(second); !errors.Is(err, ErrDuplicateProperty) {
			t.Fatalf("expected ErrDuplicateProperty, got %v", err)
		}

		got, err := c.Get("dup")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Category != CategoryAnalysis || got.Priority != PriorityHigh {
			t.Errorf("catalog mutated by failed registration: %+v", got)
		}
		if len(c.ByRequirement("REQ-other")) != 0 {
			t.Error("failed registration leaked into requirement index")
		}
	})

	t.Run("invalid category", func(t *testing.T) {
		c := NewEmptyCatalog()
		def := testDef("bad_cat", Category("nonsense"), PriorityHigh)
		if err := c.Register(def); !errors.Is(err, ErrInvalidDefinition) {
			t.Errorf("expected ErrInvalidDefinition, got %v", err)
		}
	})

	t.Run("invalid priority", func(t *testing.T) {
		c := NewEmptyCatalog()
		def := testDef("bad_pri", CategoryAnalysis, Priority("URGENT"))
		if err := c.Register(def); !errors.Is(err, ErrInvalidDefinition) {
			t.Errorf("expected ErrInvalidDefinition, got %v", err)
		}
	})

	t.Run("missing expected examples", func(t *testing.T) {
		c := NewEmptyCatalog()
		def := testDef("no_examples", CategoryAnalysis, PriorityHigh)
		def.ExpectedExamples = 0
		if err := c.Register(def); !errors.Is(err, ErrInvalidDefinition) {
			t.Errorf("expected ErrInvalidDefinition, got %v", err)
		}
	})
}

func TestGet(t *testing.T) {
	c := NewEmptyCatalog()
	c.MustRegister(testDef("known", CategoryAPI, PriorityMedium))

	t.Run("found", func(t *testing.T) {
		def, err := c.Get("known")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if def.Name != "known" {
			t.Errorf("Name = %q", def.Name)
		}
	})

	t.Run("not found", func(t *testing.T) {
		if _, err := c.Get("missing"); !errors.Is(err, ErrPropertyNotFound) {
			t.Errorf("expected ErrPropertyNotFound, got %v", err)
		}
	})

	t.Run("returned definition is a copy", func(t *testing.T) {
		def, _ := c.Get("known")
		def.Description = "mutated"
		again, _ := c.Get("known")
		if again.Description == "mutated" {
			t.Error("catalog state mutated through returned definition")
		}
	})
}

func TestConcurrentRegistration(t *testing.T) {
	c := NewEmptyCatalog()

	const workers = 32
	var wg sync.WaitGroup
	successes := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Register(testDef("contended", CategoryAnalysis, PriorityHigh)); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	won := 0
	for range successes {
		won++
	}
	if won != 1 {
		t.Errorf("exactly one concurrent registration should win, got %d", won)
	}
	if c.Count() != 1 {
		t.Errorf("Count = %d, want 1", c.Count())
	}
}

func TestValidateCoverage(t *testing.T) {
	c := NewEmptyCatalog()
	c.MustRegister(testDef("a", CategoryAnalysis, PriorityCritical))
	c.MustRegister(testDef("b", CategoryPipeline, PriorityLow))

	cov := c.ValidateCoverage([]string{"REQ-a", "REQ-b", "REQ-orphan"})

	if !reflect.DeepEqual(cov.Covered, []string{"REQ-a", "REQ-b"}) {
		t.Errorf("Covered = %v", cov.Covered)
	}
	if !reflect.DeepEqual(cov.Uncovered, []string{"REQ-orphan"}) {
		t.Errorf("Uncovered = %v", cov.Uncovered)
	}
	if cov.Percentage < 66.6 || cov.Percentage > 66.7 {
		t.Errorf("Percentage = %f", cov.Percentage)
	}
	if cov.ByCategory[CategoryAnalysis] != 1 || cov.ByCategory[CategoryPipeline] != 1 {
		t.Errorf("ByCategory = %v", cov.ByCategory)
	}
	if cov.ByPriority[PriorityCritical] != 1 || cov.ByPriority[PriorityLow] != 1 {
		t.Errorf("ByPriority = %v", cov.ByPriority)
	}

	t.Run("empty universe", func(t *testing.T) {
		cov := c.ValidateCoverage(nil)
		if cov.Percentage != 0 {
			t.Errorf("Percentage = %f, want 0", cov.Percentage)
		}
	})
}

func TestExecutionPlanOrdering(t *testing.T) {
	// Three properties in category analysis with priorities CRITICAL,
	// HIGH, LOW, and two in pipeline with MEDIUM: the unfiltered plan is
	// exactly [CRITICAL, HIGH, MEDIUM, MEDIUM, LOW], MEDIUM ties broken
	// by name.
	c := NewEmptyCatalog()
	c.MustRegister(testDef("a_crit", CategoryAnalysis, PriorityCritical))
	c.MustRegister(testDef("a_high", CategoryAnalysis, PriorityHigh))
	c.MustRegister(testDef("a_low", CategoryAnalysis, PriorityLow))
	c.MustRegister(testDef("b_med2", CategoryPipeline, PriorityMedium))
	c.MustRegister(testDef("b_med1", CategoryPipeline, PriorityMedium))

	plan := c.ExecutionPlan(PlanFilter{})
	if len(plan) != 5 {
		t.Fatalf("plan length = %d, want 5", len(plan))
	}

	wantNames := []string{"a_crit", "a_high", "b_med1", "b_med2", "a_low"}
	wantPriorities := []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityMedium, PriorityLow}
	for i, def := range plan {
		if def.Name != wantNames[i] {
			t.Errorf("plan[%d] = %q, want %q", i, def.Name, wantNames[i])
		}
		if def.Priority != wantPriorities[i] {
			t.Errorf("plan[%d] priority = %q, want %q", i, def.Priority, wantPriorities[i])
		}
	}
}

func TestExecutionPlanDeterministic(t *testing.T) {
	c := NewEmptyCatalog()
	for i := 0; i < 20; i++ {
		cat := Categories()[i%len(Categories())]
		pri := Priorities()[i%len(Priorities())]
		c.MustRegister(testDef(fmt.Sprintf("p%02d", i), cat, pri))
	}

	first := c.ExecutionPlan(PlanFilter{})
	for run := 0; run < 10; run++ {
		again := c.ExecutionPlan(PlanFilter{})
		if len(again) != len(first) {
			t.Fatalf("plan length changed between runs")
		}
		for i := range first {
			if again[i].Name != first[i].Name {
				t.Fatalf("run %d: plan[%d] = %q, want %q", run, i, again[i].Name, first[i].Name)
			}
		}
	}
}

func TestExecutionPlanFilters(t *testing.T) {
	c := NewEmptyCatalog()
	c.MustRegister(testDef("keep", CategoryAnalysis, PriorityHigh))
	c.MustRegister(testDef("other_cat", CategoryPipeline, PriorityHigh))
	c.MustRegister(testDef("other_pri", CategoryAnalysis, PriorityLow))

	disabled := testDef("disabled", CategoryAnalysis, PriorityHigh)
	disabled.Enabled = false
	c.MustRegister(disabled)

	t.Run("category and priority filter", func(t *testing.T) {
		plan := c.ExecutionPlan(PlanFilter{
			Categories: []Category{CategoryAnalysis},
			Priorities: []Priority{PriorityHigh},
		})
		if len(plan) != 1 || plan[0].Name != "keep" {
			t.Errorf("plan = %v", planNames(plan))
		}
	})

	t.Run("disabled excluded by default", func(t *testing.T) {
		for _, def := range c.ExecutionPlan(PlanFilter{}) {
			if def.Name == "disabled" {
				t.Error("disabled property included in default plan")
			}
		}
	})

	t.Run("disabled included on request", func(t *testing.T) {
		plan := c.ExecutionPlan(PlanFilter{IncludeDisabled: true})
		found := false
		for _, def := range plan {
			found = found || def.Name == "disabled"
		}
		if !found {
			t.Error("IncludeDisabled plan missing disabled property")
		}
	})
}

func TestSetEnabled(t *testing.T) {
	c := NewEmptyCatalog()
	c.MustRegister(testDef("toggle", CategoryAnalysis, PriorityHigh))

	if err := c.SetEnabled("toggle", false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	def, _ := c.Get("toggle")
	if def.Enabled {
		t.Error("property still enabled after disable")
	}

	if err := c.SetEnabled("missing", true); !errors.Is(err, ErrPropertyNotFound) {
		t.Errorf("expected ErrPropertyNotFound, got %v", err)
	}
}

func TestExportImportRoundtrip(t *testing.T) {
	c := NewCatalog()

	var buf bytes.Buffer
	if err := c.Export(&buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	imported, err := Import(&buf)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if imported.Count() != c.Count() {
		t.Fatalf("imported count = %d, want %d", imported.Count(), c.Count())
	}

	// The reimported catalog must answer category and requirement
	// lookups identically to the live registry.
	for _, cat := range Categories() {
		if !reflect.DeepEqual(planNames(imported.ByCategory(cat)), planNames(c.ByCategory(cat))) {
			t.Errorf("ByCategory(%s) differs after roundtrip", cat)
		}
	}
	for _, def := range c.ExecutionPlan(PlanFilter{IncludeDisabled: true}) {
		for _, req := range def.Requirements {
			if !reflect.DeepEqual(planNames(imported.ByRequirement(req)), planNames(c.ByRequirement(req))) {
				t.Errorf("ByRequirement(%s) differs after roundtrip", req)
			}
		}
	}
}

func TestBuiltinsAreValid(t *testing.T) {
	c := NewCatalog()
	if c.Count() == 0 {
		t.Fatal("built-in catalog is empty")
	}
	plan := c.ExecutionPlan(PlanFilter{})
	if len(plan) == 0 {
		t.Fatal("built-in plan is empty")
	}
	// Plans start with the highest priority present.
	if plan[0].Priority != PriorityCritical {
		t.Errorf("first planned priority = %s, want CRITICAL", plan[0].Priority)
	}
}

func planNames(defs []*Definition) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}
