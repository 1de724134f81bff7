// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package coverage

import (
	"time"
)

// FileRecord is one file's coverage within a persisted snapshot.
type FileRecord struct {
	SnapshotID   int64   `json:"snapshot_id"`
	Path         string  `json:"path"`
	Percent      float64 `json:"percent"`
	LinesCovered int     `json:"lines_covered"`
	LinesTotal   int     `json:"lines_total"`
	Component    string  `json:"component"`
}

// Snapshot is one immutable point in the coverage time series.
//
// # Description
//
// A snapshot freezes overall coverage, per-component coverage, and
// line/branch totals at capture time, together with one FileRecord per
// measured file. A snapshot is assigned its ID by the store on persist
// and is never modified afterwards.
type Snapshot struct {
	ID              int64              `json:"id"`
	Timestamp       time.Time          `json:"timestamp"`
	Overall         float64            `json:"overall"`
	Components      map[string]float64 `json:"components"`
	LinesCovered    int                `json:"lines_covered"`
	LinesTotal      int                `json:"lines_total"`
	BranchesCovered int                `json:"branches_covered"`
	BranchesTotal   int                `json:"branches_total"`
	Files           []FileRecord       `json:"files,omitempty"`

	// Degraded carries through from the source report.
	Degraded bool   `json:"degraded,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Component returns the named component's coverage, or 0 when it was
// never measured.
func (s *Snapshot) Component(name string) float64 {
	return s.Components[name]
}

// BuildSnapshot assembles a snapshot from a parsed report. Files are
// classified into components and each component's coverage is the
// line-weighted average of its files; files classified as "other" are
// excluded from component figures but still recorded.
func BuildSnapshot(report *Report, classifier *Classifier, at time.Time) *Snapshot {
	snap := &Snapshot{
		Timestamp:       at.UTC(),
		Overall:         report.Overall,
		Components:      make(map[string]float64, 3),
		LinesCovered:    report.LinesCovered,
		LinesTotal:      report.LinesTotal,
		BranchesCovered: report.BranchesCovered,
		BranchesTotal:   report.BranchesTotal,
		Degraded:        report.Degraded,
		Message:         report.Message,
	}
	for _, name := range Components() {
		snap.Components[name] = 0
	}

	covered := make(map[string]int, 3)
	total := make(map[string]int, 3)
	for _, f := range report.Files {
		component := classifier.Classify(f.Path)
		snap.Files = append(snap.Files, FileRecord{
			Path:         f.Path,
			Percent:      f.Percent,
			LinesCovered: f.LinesCovered,
			LinesTotal:   f.LinesTotal,
			Component:    component,
		})
		if component == ComponentOther {
			continue
		}
		covered[component] += f.LinesCovered
		total[component] += f.LinesTotal
	}
	for _, name := range Components() {
		if total[name] > 0 {
			snap.Components[name] = 100 * float64(covered[name]) / float64(total[name])
		}
	}
	return snap
}
