// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/harborqa/relgate/pkg/config"
	"github.com/harborqa/relgate/pkg/logging"
	"github.com/harborqa/relgate/pkg/validation"
	"github.com/harborqa/relgate/services/coverage"
)

func main() {
	// Execute the root command. Cobra handles parsing the arguments.
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

// fatal logs the error and exits 1. Commands use it instead of letting
// partial state escape.
func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// loadPolicy reads the policy file named by --config, falling back to
// defaults when it is absent.
func loadPolicy() *config.Policy {
	pol, err := config.Load(configPath)
	if err != nil {
		fatal("invalid policy file %s: %v", configPath, err)
	}
	return pol
}

// openCoverage opens the snapshot store and wires the capture service.
// The caller must Close the returned store.
func openCoverage(pol *config.Policy) (*coverage.Service, *coverage.Store) {
	store, err := coverage.OpenStore(pol.DatabasePath)
	if err != nil {
		fatal("open snapshot store %s: %v", pol.DatabasePath, err)
	}
	return coverage.NewService(pol, store, logging.Default().Slog()), store
}

// writeArtifact writes a rendered report to disk when path is set.
func writeArtifact(path string, data []byte) {
	if path == "" {
		return
	}
	if err := validation.ArtifactPath(path); err != nil {
		fatal("%v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fatal("write %s: %v", path, err)
	}
	fmt.Printf("wrote %s\n", path)
}
