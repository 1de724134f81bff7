// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"strings"
	"testing"
)

func TestPropertyName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Valid names
		{"simple", "velocity_never_nan", false},
		{"single letter", "a", false},
		{"with digits", "gate5_check", false},
		{"max length", "a" + strings.Repeat("b", 63), false},

		// Invalid names
		{"empty", "", true},
		{"uppercase", "VelocityNeverNan", true},
		{"leading digit", "5gate", true},
		{"leading underscore", "_hidden", true},
		{"spaces", "has space", true},
		{"sql injection", "x'; DROP TABLE coverage_snapshots--", true},
		{"path chars", "../escape", true},
		{"too long", "a" + strings.Repeat("b", 64), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := PropertyName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("PropertyName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestArtifactPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative file", "report.md", false},
		{"nested", "out/report.md", false},
		{"absolute", "/tmp/report.md", false},
		{"dot prefixed", "./report.md", false},
		{"traversal hidden by clean", "out/../../escape.md", true},

		{"empty", "", true},
		{"whitespace", "   ", true},
		{"parent", "../report.md", true},
		{"bare parent", "..", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ArtifactPath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ArtifactPath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
