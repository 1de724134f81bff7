// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package release

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Finding categories reported by the quality scan.
const (
	CategorySkipMarker    = "skip_marker"
	CategoryXfailMarker   = "xfail_marker"
	CategoryCommentedTest = "commented_test"
	CategoryNaming        = "naming_violation"
)

// Finding is one flagged line in a scanned test source file.
type Finding struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

// ScanResult is the outcome of a quality scan over the test tree.
type ScanResult struct {
	FilesScanned int       `json:"files_scanned"`
	Findings     []Finding `json:"findings"`
	Categories   []string  `json:"categories"`
	Score        float64   `json:"score"`
}

// Scanner patterns. Each category flags a line; the score penalizes
// both the breadth of categories hit and the raw marker count.
var scanPatterns = []struct {
	category string
	re       *regexp.Regexp
}{
	{CategorySkipMarker, regexp.MustCompile(`(?i)@[\w.]*skip\b|\bt\.Skip\(|#\s*skip\b`)},
	{CategoryXfailMarker, regexp.MustCompile(`(?i)\bxfail\b`)},
	{CategoryCommentedTest, regexp.MustCompile(`^\s*(#|//)\s*(def test_|func Test)`)},
	{CategoryNaming, regexp.MustCompile(`^\s*def\s+test[A-Z]\w*|^\s*func\s+Test_\w`)},
}

// Scan walks the test sources matched by the glob patterns under root
// and scores them: 100 minus 10 per distinct issue category minus one
// per skip or xfail marker finding, clamped at zero. An empty root
// means the current directory. An unreadable file is skipped, not
// fatal, but a broken root surfaces as an error rather than a vacuous
// pass.
func Scan(root string, globs []string) (*ScanResult, error) {
	if root == "" {
		root = "."
	}
	result := &ScanResult{}
	seen := map[string]bool{}
	categories := map[string]bool{}

	rootFS := os.DirFS(root)
	for _, pattern := range globs {
		matches, err := doublestar.Glob(rootFS, pattern, doublestar.WithFailOnIOErrors())
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			if seen[match] {
				continue
			}
			seen[match] = true
			result.FilesScanned++
			findings := scanFile(filepath.Join(root, match), match)
			for _, f := range findings {
				categories[f.Category] = true
			}
			result.Findings = append(result.Findings, findings...)
		}
	}

	for c := range categories {
		result.Categories = append(result.Categories, c)
	}
	sort.Strings(result.Categories)
	sort.Slice(result.Findings, func(i, j int) bool {
		if result.Findings[i].File != result.Findings[j].File {
			return result.Findings[i].File < result.Findings[j].File
		}
		return result.Findings[i].Line < result.Findings[j].Line
	})

	markers := 0
	for _, f := range result.Findings {
		if f.Category == CategorySkipMarker || f.Category == CategoryXfailMarker {
			markers++
		}
	}
	score := 100 - 10*float64(len(result.Categories)) - float64(markers)
	if score < 0 {
		score = 0
	}
	result.Score = score
	return result, nil
}

func scanFile(path, rel string) []Finding {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var findings []Finding
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		for _, p := range scanPatterns {
			if p.re.MatchString(line) {
				findings = append(findings, Finding{
					File:     rel,
					Line:     lineNo,
					Category: p.category,
					Text:     trimFinding(line),
				})
			}
		}
	}
	return findings
}

func trimFinding(line string) string {
	const max = 120
	if len(line) > max {
		return line[:max]
	}
	return line
}
