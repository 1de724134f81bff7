// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package coverage

import (
	"fmt"
	"sort"

	"github.com/harborqa/relgate/pkg/config"
)

// Urgency ranks how badly a coverage gap needs attention.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// Rank orders urgencies for sorting; high sorts first.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyHigh:
		return 0
	case UrgencyMedium:
		return 1
	case UrgencyLow:
		return 2
	default:
		return 3
	}
}

// Gap is one file whose coverage falls short of policy.
type Gap struct {
	Path           string  `json:"path"`
	Component      string  `json:"component"`
	Percent        float64 `json:"percent"`
	UncoveredLines int     `json:"uncovered_lines"`
	Urgency        Urgency `json:"urgency"`
}

// GapReport is the result of analyzing one snapshot against policy.
type GapReport struct {
	Gaps            []Gap    `json:"gaps"`
	Recommendations []string `json:"recommendations"`
}

// AnalyzeGaps flags every file below the per-file threshold or carrying
// more uncovered lines than policy allows, assigns urgencies, and
// derives component-level recommendations. Gaps sort by urgency, then
// ascending coverage.
func AnalyzeGaps(snap *Snapshot, policy *config.CoveragePolicy) *GapReport {
	report := &GapReport{}
	for _, f := range snap.Files {
		uncovered := f.LinesTotal - f.LinesCovered
		if f.Percent >= policy.FileThreshold && uncovered <= policy.UncoveredLineLimit {
			continue
		}
		report.Gaps = append(report.Gaps, Gap{
			Path:           f.Path,
			Component:      f.Component,
			Percent:        f.Percent,
			UncoveredLines: uncovered,
			Urgency:        classifyUrgency(f.Percent, f.Component, policy),
		})
	}
	sort.SliceStable(report.Gaps, func(i, j int) bool {
		gi, gj := report.Gaps[i], report.Gaps[j]
		if gi.Urgency.Rank() != gj.Urgency.Rank() {
			return gi.Urgency.Rank() < gj.Urgency.Rank()
		}
		return gi.Percent < gj.Percent
	})
	report.Recommendations = recommend(snap, report.Gaps, policy)
	return report
}

// classifyUrgency maps a file's coverage to an urgency tier. Lower
// coverage never yields lower urgency than higher coverage within the
// same component.
func classifyUrgency(percent float64, component string, policy *config.CoveragePolicy) Urgency {
	switch {
	case percent < policy.HighUrgencyBelow:
		return UrgencyHigh
	case percent < policy.MediumUrgencyBelow:
		return UrgencyMedium
	case percent < policy.FileThreshold &&
		(component == ComponentCore || component == ComponentDomain):
		// Below the file threshold, core and domain files stay medium.
		// Files flagged only by the uncovered-line limit rank low.
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// recommend emits component shortfalls first, then the worst individual
// gaps, and a confirmation line when everything meets target.
func recommend(snap *Snapshot, gaps []Gap, policy *config.CoveragePolicy) []string {
	var recs []string
	for _, name := range Components() {
		actual := snap.Component(name)
		minimum := policy.ComponentMinimums[name]
		target := policy.ComponentTargets[name]
		switch {
		case actual < minimum:
			recs = append(recs, fmt.Sprintf(
				"%s coverage %.1f%% is below the %.1f%% minimum; add tests before release",
				name, actual, minimum))
		case actual < target:
			recs = append(recs, fmt.Sprintf(
				"%s coverage %.1f%% meets the minimum but trails the %.1f%% target",
				name, actual, target))
		}
	}

	worst := 0
	for _, g := range gaps {
		if g.Urgency != UrgencyHigh || worst == 3 {
			continue
		}
		recs = append(recs, fmt.Sprintf(
			"%s is at %.1f%% with %d uncovered lines; prioritize it",
			g.Path, g.Percent, g.UncoveredLines))
		worst++
	}

	if len(recs) == 0 {
		recs = append(recs, "all components meet their coverage targets")
	}
	return recs
}
