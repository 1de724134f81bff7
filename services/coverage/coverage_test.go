// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package coverage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harborqa/relgate/pkg/config"
)

const sampleJSON = `{
  "totals": {
    "percent_covered": 82.5,
    "covered_lines": 330,
    "num_statements": 400,
    "covered_branches": 40,
    "num_branches": 50
  },
  "files": {
    "src/core/engine.py": {
      "summary": {"percent_covered": 90.0, "covered_lines": 90, "num_statements": 100},
      "missing_lines": [12, 13, 14]
    },
    "src/analysis/model.py": {
      "summary": {"percent_covered": 75.0, "covered_lines": 150, "num_statements": 200}
    },
    "src/cli/main.py": {
      "summary": {"percent_covered": 45.0, "covered_lines": 45, "num_statements": 100}
    }
  }
}`

func testClassifier() *Classifier {
	return NewClassifier(config.Default().ComponentKeywords)
}

func TestParseReportJSON(t *testing.T) {
	report := ParseReport([]byte(sampleJSON))
	if report.Degraded {
		t.Fatalf("unexpected degraded report: %s", report.Message)
	}
	if report.Overall != 82.5 {
		t.Errorf("overall = %v, want 82.5", report.Overall)
	}
	if report.LinesCovered != 330 || report.LinesTotal != 400 {
		t.Errorf("lines = %d/%d, want 330/400", report.LinesCovered, report.LinesTotal)
	}
	if len(report.Files) != 3 {
		t.Fatalf("files = %d, want 3", len(report.Files))
	}
	// Files come back sorted by path.
	if report.Files[0].Path != "src/analysis/model.py" {
		t.Errorf("first file = %q, want src/analysis/model.py", report.Files[0].Path)
	}
}

func TestParseReportXML(t *testing.T) {
	xml := `<?xml version="1.0"?>
<coverage line-rate="0.8" lines-covered="80" lines-valid="100" branches-covered="10" branches-valid="20">
  <packages>
    <package>
      <classes>
        <class filename="src/core/engine.py" line-rate="0.75">
          <lines>
            <line number="1" hits="3"/>
            <line number="2" hits="0"/>
            <line number="3" hits="1"/>
            <line number="4" hits="0"/>
          </lines>
        </class>
      </classes>
    </package>
  </packages>
</coverage>`
	report := ParseReport([]byte(xml))
	if report.Degraded {
		t.Fatalf("unexpected degraded report: %s", report.Message)
	}
	if report.Overall != 80.0 {
		t.Errorf("overall = %v, want 80.0", report.Overall)
	}
	if len(report.Files) != 1 {
		t.Fatalf("files = %d, want 1", len(report.Files))
	}
	f := report.Files[0]
	if f.LinesCovered != 2 || f.LinesTotal != 4 {
		t.Errorf("lines = %d/%d, want 2/4", f.LinesCovered, f.LinesTotal)
	}
	if len(f.MissingLines) != 2 || f.MissingLines[0] != 2 || f.MissingLines[1] != 4 {
		t.Errorf("missing lines = %v, want [2 4]", f.MissingLines)
	}
}

func TestParseReportDegrades(t *testing.T) {
	cases := map[string][]byte{
		"empty":    []byte("   "),
		"bad json": []byte("{not json"),
		"bad xml":  []byte("<coverage><unclosed"),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			report := ParseReport(data)
			if !report.Degraded {
				t.Fatal("expected degraded report")
			}
			if report.Overall != 0 || len(report.Files) != 0 {
				t.Errorf("degraded report must be zero-valued, got %+v", report)
			}
			if report.Message == "" {
				t.Error("degraded report must carry a message")
			}
		})
	}
}

func TestParseReportFileMissing(t *testing.T) {
	report := ParseReportFile(filepath.Join(t.TempDir(), "nope.json"))
	if !report.Degraded {
		t.Fatal("expected degraded report for missing file")
	}
}

func TestClassify(t *testing.T) {
	c := testClassifier()
	cases := []struct {
		path string
		want string
	}{
		{"src/core/engine.py", ComponentCore},
		{"src/analysis/model.py", ComponentDomain},
		{"src/cli/main.py", ComponentIntegration},
		{"src/util/strings.py", ComponentOther},
		{"SRC/CORE/ENGINE.PY", ComponentCore},
		// "core" wins over "cli" because core is checked first.
		{"src/core/cli_shim.py", ComponentCore},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.path); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestBuildSnapshotComponents(t *testing.T) {
	report := ParseReport([]byte(sampleJSON))
	snap := BuildSnapshot(report, testClassifier(), time.Now())

	if snap.Overall != 82.5 {
		t.Errorf("overall = %v, want 82.5", snap.Overall)
	}
	if got := snap.Component(ComponentCore); got != 90.0 {
		t.Errorf("core = %v, want 90.0", got)
	}
	if got := snap.Component(ComponentDomain); got != 75.0 {
		t.Errorf("domain = %v, want 75.0", got)
	}
	if got := snap.Component(ComponentIntegration); got != 45.0 {
		t.Errorf("integration = %v, want 45.0", got)
	}
	if len(snap.Files) != 3 {
		t.Fatalf("files = %d, want 3", len(snap.Files))
	}
}

func TestBuildSnapshotExcludesOther(t *testing.T) {
	report := &Report{
		Overall: 50,
		Files: []FileCoverage{
			{Path: "src/core/a.py", Percent: 80, LinesCovered: 80, LinesTotal: 100},
			{Path: "src/misc/b.py", Percent: 0, LinesCovered: 0, LinesTotal: 500},
		},
	}
	snap := BuildSnapshot(report, testClassifier(), time.Now())
	if got := snap.Component(ComponentCore); got != 80.0 {
		t.Errorf("core = %v, want 80.0 (unclassified files must not dilute it)", got)
	}
	if snap.Files[1].Component != ComponentOther {
		t.Errorf("component = %q, want other", snap.Files[1].Component)
	}
}

func TestAnalyzeGaps(t *testing.T) {
	policy := &config.Default().Coverage
	snap := &Snapshot{
		Components: map[string]float64{
			ComponentCore:        95,
			ComponentDomain:      92,
			ComponentIntegration: 88,
		},
		Files: []FileRecord{
			{Path: "src/core/fine.py", Component: ComponentCore, Percent: 96, LinesCovered: 96, LinesTotal: 100},
			{Path: "src/core/low.py", Component: ComponentCore, Percent: 40, LinesCovered: 40, LinesTotal: 100},
			{Path: "src/analysis/mid.py", Component: ComponentDomain, Percent: 65, LinesCovered: 65, LinesTotal: 100},
			{Path: "src/analysis/near.py", Component: ComponentDomain, Percent: 80, LinesCovered: 80, LinesTotal: 100},
			{Path: "src/cli/near.py", Component: ComponentIntegration, Percent: 80, LinesCovered: 80, LinesTotal: 100},
		},
	}
	report := AnalyzeGaps(snap, policy)

	if len(report.Gaps) != 4 {
		t.Fatalf("gaps = %d, want 4", len(report.Gaps))
	}
	wantOrder := []struct {
		path    string
		urgency Urgency
	}{
		{"src/core/low.py", UrgencyHigh},
		{"src/analysis/mid.py", UrgencyMedium},
		{"src/analysis/near.py", UrgencyMedium},
		{"src/cli/near.py", UrgencyLow},
	}
	for i, want := range wantOrder {
		got := report.Gaps[i]
		if got.Path != want.path || got.Urgency != want.urgency {
			t.Errorf("gap[%d] = %s/%s, want %s/%s",
				i, got.Path, got.Urgency, want.path, want.urgency)
		}
	}
	if len(report.Recommendations) == 0 {
		t.Fatal("recommendations must never be empty")
	}
}

func TestAnalyzeGapsUrgencyMonotonic(t *testing.T) {
	policy := &config.Default().Coverage
	prev := -1
	for pct := 0.0; pct <= 100; pct += 2.5 {
		u := classifyUrgency(pct, ComponentCore, policy)
		if prev >= 0 && u.Rank() < prev {
			t.Fatalf("urgency rank dropped at %.1f%%: %d -> %d", pct, prev, u.Rank())
		}
		prev = u.Rank()
	}
}

func TestAnalyzeGapsAllTargetsMet(t *testing.T) {
	policy := &config.Default().Coverage
	snap := &Snapshot{
		Components: map[string]float64{
			ComponentCore:        97,
			ComponentDomain:      95,
			ComponentIntegration: 90,
		},
		Files: []FileRecord{
			{Path: "src/core/a.py", Component: ComponentCore, Percent: 97, LinesCovered: 97, LinesTotal: 100},
		},
	}
	report := AnalyzeGaps(snap, policy)
	if len(report.Gaps) != 0 {
		t.Fatalf("gaps = %d, want 0", len(report.Gaps))
	}
	if len(report.Recommendations) != 1 ||
		!strings.Contains(report.Recommendations[0], "meet their coverage targets") {
		t.Errorf("recommendations = %v, want single targets-met line", report.Recommendations)
	}
}

func TestUncoveredLineLimitFlagsLargeFiles(t *testing.T) {
	policy := &config.Default().Coverage
	// 88% coverage is above the file threshold, but 120 uncovered lines
	// exceed the limit.
	snap := &Snapshot{
		Components: map[string]float64{},
		Files: []FileRecord{
			{Path: "src/core/big.py", Component: ComponentCore, Percent: 88, LinesCovered: 880, LinesTotal: 1000},
		},
	}
	report := AnalyzeGaps(snap, policy)
	if len(report.Gaps) != 1 {
		t.Fatalf("gaps = %d, want 1", len(report.Gaps))
	}
	if report.Gaps[0].UncoveredLines != 120 {
		t.Errorf("uncovered = %d, want 120", report.Gaps[0].UncoveredLines)
	}
	// Coverage above the file threshold keeps the gap low urgency even
	// for a core file.
	if report.Gaps[0].Urgency != UrgencyLow {
		t.Errorf("urgency = %q, want %q", report.Gaps[0].Urgency, UrgencyLow)
	}
}

func TestRenderMarkdown(t *testing.T) {
	report := ParseReport([]byte(sampleJSON))
	snap := BuildSnapshot(report, testClassifier(), time.Now())
	md := RenderMarkdown(snap, AnalyzeGaps(snap, &config.Default().Coverage))

	for _, want := range []string{
		"# Coverage Report",
		"| Overall coverage | 82.5% |",
		"## Components",
		"## Gaps",
		"src/cli/main.py",
		"## Recommendations",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestCollectorMissingReportDegrades(t *testing.T) {
	dir := t.TempDir()
	c := NewCollector(nil, "coverage.json", dir, time.Minute, nil)
	report := c.Collect(context.Background())
	if !report.Degraded {
		t.Fatal("expected degraded report when report file is absent")
	}
}

func TestCollectorParsesExistingReport(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "coverage.json"), []byte(sampleJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	c := NewCollector(nil, "coverage.json", dir, time.Minute, nil)
	report := c.Collect(context.Background())
	if report.Degraded {
		t.Fatalf("unexpected degraded report: %s", report.Message)
	}
	if report.Overall != 82.5 {
		t.Errorf("overall = %v, want 82.5", report.Overall)
	}
}
