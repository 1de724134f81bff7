// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package coverage

import (
	"path/filepath"
	"strings"
)

// Component names used throughout snapshots and policy thresholds.
const (
	ComponentCore        = "core"
	ComponentDomain      = "domain"
	ComponentIntegration = "integration"
	ComponentOther       = "other"
)

// Components lists the tracked components in reporting order. Files
// classified as "other" are excluded from component averages.
func Components() []string {
	return []string{ComponentCore, ComponentDomain, ComponentIntegration}
}

// Classifier assigns files to components by substring-matching path
// segments against per-component keyword lists. The first component
// whose keywords match wins, in the order core, domain, integration.
type Classifier struct {
	keywords map[string][]string
}

// NewClassifier builds a classifier from a component -> keywords map.
// Missing components simply never match.
func NewClassifier(keywords map[string][]string) *Classifier {
	normalized := make(map[string][]string, len(keywords))
	for component, words := range keywords {
		lowered := make([]string, 0, len(words))
		for _, w := range words {
			lowered = append(lowered, strings.ToLower(w))
		}
		normalized[component] = lowered
	}
	return &Classifier{keywords: normalized}
}

// Classify returns the component for a file path, or ComponentOther when
// no keyword matches any path segment.
func (c *Classifier) Classify(path string) string {
	segments := splitSegments(path)
	for _, component := range Components() {
		for _, keyword := range c.keywords[component] {
			for _, seg := range segments {
				if strings.Contains(seg, keyword) {
					return component
				}
			}
		}
	}
	return ComponentOther
}

// splitSegments lowercases the path and splits it on separators so
// keywords match within a segment, never across a separator.
func splitSegments(path string) []string {
	cleaned := strings.ToLower(filepath.ToSlash(path))
	return strings.FieldsFunc(cleaned, func(r rune) bool {
		return r == '/' || r == '\\'
	})
}
