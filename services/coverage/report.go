// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package coverage captures, persists, and analyzes coverage snapshots.
//
// The package consumes a machine-readable report produced by an external
// coverage collector, classifies files into components, appends immutable
// snapshots to a SQLite time series, and derives gaps and
// recommendations. A missing or partial report degrades to zero coverage
// with an explanatory message; it never crashes the pipeline.
package coverage

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"strings"
)

// FileCoverage is one file's slice of a parsed report.
type FileCoverage struct {
	Path         string  `json:"path"`
	Percent      float64 `json:"percent"`
	LinesCovered int     `json:"lines_covered"`
	LinesTotal   int     `json:"lines_total"`
	MissingLines []int   `json:"missing_lines,omitempty"`
}

// Report is the parsed output of the external coverage collector.
type Report struct {
	Overall         float64        `json:"overall"`
	LinesCovered    int            `json:"lines_covered"`
	LinesTotal      int            `json:"lines_total"`
	BranchesCovered int            `json:"branches_covered"`
	BranchesTotal   int            `json:"branches_total"`
	Files           []FileCoverage `json:"files"`

	// Degraded marks a report synthesized from a missing or unreadable
	// source. Message explains why.
	Degraded bool   `json:"degraded,omitempty"`
	Message  string `json:"message,omitempty"`
}

// DegradedReport builds the zero-coverage fallback used whenever the
// collector output is unusable.
func DegradedReport(reason string) *Report {
	return &Report{Degraded: true, Message: reason}
}

// jsonReport mirrors the collector's JSON document: a totals summary plus
// a file map.
type jsonReport struct {
	Totals struct {
		PercentCovered  float64 `json:"percent_covered"`
		CoveredLines    int     `json:"covered_lines"`
		NumStatements   int     `json:"num_statements"`
		CoveredBranches int     `json:"covered_branches"`
		NumBranches     int     `json:"num_branches"`
	} `json:"totals"`
	Files map[string]struct {
		Summary struct {
			PercentCovered float64 `json:"percent_covered"`
			CoveredLines   int     `json:"covered_lines"`
			NumStatements  int     `json:"num_statements"`
		} `json:"summary"`
		MissingLines []int `json:"missing_lines"`
	} `json:"files"`
}

// ParseReportFile reads and parses a collector report, selecting the
// format from the content. A missing or unparseable file returns a
// degraded zero report, never an error.
func ParseReportFile(path string) *Report {
	data, err := os.ReadFile(path)
	if err != nil {
		return DegradedReport(fmt.Sprintf("coverage report unavailable: %v", err))
	}
	return ParseReport(data)
}

// ParseReport parses raw report bytes as JSON or XML.
func ParseReport(data []byte) *Report {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return DegradedReport("coverage report is empty")
	}
	if trimmed[0] == '<' {
		return parseXML(data)
	}
	return parseJSON(data)
}

func parseJSON(data []byte) *Report {
	var doc jsonReport
	if err := json.Unmarshal(data, &doc); err != nil {
		return DegradedReport(fmt.Sprintf("coverage report is not valid JSON: %v", err))
	}

	r := &Report{
		Overall:         doc.Totals.PercentCovered,
		LinesCovered:    doc.Totals.CoveredLines,
		LinesTotal:      doc.Totals.NumStatements,
		BranchesCovered: doc.Totals.CoveredBranches,
		BranchesTotal:   doc.Totals.NumBranches,
	}
	for path, f := range doc.Files {
		r.Files = append(r.Files, FileCoverage{
			Path:         path,
			Percent:      f.Summary.PercentCovered,
			LinesCovered: f.Summary.CoveredLines,
			LinesTotal:   f.Summary.NumStatements,
			MissingLines: f.MissingLines,
		})
	}
	sortFiles(r.Files)
	return r
}

func parseXML(data []byte) *Report {
	var doc struct {
		XMLName      xml.Name `xml:"coverage"`
		LineRate     float64  `xml:"line-rate,attr"`
		LinesCovered int      `xml:"lines-covered,attr"`
		LinesValid   int      `xml:"lines-valid,attr"`
		BranchCov    int      `xml:"branches-covered,attr"`
		BranchValid  int      `xml:"branches-valid,attr"`
		Classes      []struct {
			Filename string  `xml:"filename,attr"`
			LineRate float64 `xml:"line-rate,attr"`
			Lines    []struct {
				Number int `xml:"number,attr"`
				Hits   int `xml:"hits,attr"`
			} `xml:"lines>line"`
		} `xml:"packages>package>classes>class"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return DegradedReport(fmt.Sprintf("coverage report is not valid XML: %v", err))
	}

	r := &Report{
		Overall:         doc.LineRate * 100,
		LinesCovered:    doc.LinesCovered,
		LinesTotal:      doc.LinesValid,
		BranchesCovered: doc.BranchCov,
		BranchesTotal:   doc.BranchValid,
	}
	for _, cls := range doc.Classes {
		fc := FileCoverage{
			Path:    cls.Filename,
			Percent: cls.LineRate * 100,
		}
		for _, line := range cls.Lines {
			fc.LinesTotal++
			if line.Hits > 0 {
				fc.LinesCovered++
			} else {
				fc.MissingLines = append(fc.MissingLines, line.Number)
			}
		}
		r.Files = append(r.Files, fc)
	}
	sortFiles(r.Files)
	return r
}

func sortFiles(files []FileCoverage) {
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
}

// UncoveredLines returns how many lines the file leaves uncovered,
// preferring the explicit missing-line set when present.
func (f *FileCoverage) UncoveredLines() int {
	if len(f.MissingLines) > 0 {
		return len(f.MissingLines)
	}
	return f.LinesTotal - f.LinesCovered
}
