// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for
// security-critical operations.
//
// This package contains validators for user-provided inputs that end up
// in database rows, file paths, or report artifacts. Using these
// validators keeps injection attempts and path traversal out of the
// snapshot store and the artifact writer.
package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// propertyNamePattern matches valid property names: lowercase snake_case,
// starting with a letter, at most 64 characters.
var propertyNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// PropertyName validates a property name before it becomes a registry
// key and a stable sort key in execution plans.
func PropertyName(name string) error {
	if name == "" {
		return fmt.Errorf("property name must not be empty")
	}
	if !propertyNamePattern.MatchString(name) {
		return fmt.Errorf("invalid property name %q: must be lowercase snake_case, start with a letter, and be at most 64 characters", name)
	}
	return nil
}

// ArtifactPath validates a user-supplied output path before a report is
// written to it. It rejects empty paths and parent-directory traversal
// in relative paths; absolute paths are the caller's explicit choice and
// pass through.
func ArtifactPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("artifact path must not be empty")
	}
	if filepath.IsAbs(path) {
		return nil
	}
	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("artifact path %q escapes the working directory", path)
	}
	return nil
}
