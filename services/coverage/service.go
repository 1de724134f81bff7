// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package coverage

import (
	"context"
	"log/slog"
	"time"

	"github.com/harborqa/relgate/pkg/config"
)

// Service wires the collector, classifier, and store into one capture
// pipeline.
type Service struct {
	collector  *Collector
	classifier *Classifier
	store      *Store
	policy     *config.CoveragePolicy
	logger     *slog.Logger
}

// NewService builds the capture pipeline from policy. The caller owns
// the store and closes it.
func NewService(pol *config.Policy, store *Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		collector: NewCollector(
			pol.Suite.CoverageCommand,
			pol.Suite.CoverageReport,
			pol.Suite.WorkingDir,
			pol.Gates.PerformanceTimeout(),
			logger,
		),
		classifier: NewClassifier(pol.ComponentKeywords),
		store:      store,
		policy:     &pol.Coverage,
		logger:     logger,
	}
}

// Capture runs the collector, assembles a snapshot, and appends it to
// the store. Collection failures degrade to a zero snapshot; a
// persistence failure is returned loudly.
func (s *Service) Capture(ctx context.Context) (*Snapshot, error) {
	report := s.collector.Collect(ctx)
	snap := BuildSnapshot(report, s.classifier, time.Now())
	if err := s.store.Persist(ctx, snap); err != nil {
		s.logger.Error("snapshot persist failed", "error", err.Error())
		return nil, err
	}
	s.logger.Info("coverage snapshot captured",
		"snapshot_id", snap.ID,
		"overall", snap.Overall,
		"files", len(snap.Files),
		"degraded", snap.Degraded)
	return snap, nil
}

// Analyze produces the gap report for a snapshot under the configured
// policy.
func (s *Service) Analyze(snap *Snapshot) *GapReport {
	return AnalyzeGaps(snap, s.policy)
}

// Store exposes the underlying snapshot store for trend analysis.
func (s *Service) Store() *Store {
	return s.store
}
