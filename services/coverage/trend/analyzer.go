// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package trend derives direction, velocity, and regressions from the
// coverage snapshot time series.
package trend

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/harborqa/relgate/pkg/config"
	"github.com/harborqa/relgate/services/coverage"
)

// SeriesStats summarizes the overall-coverage series in a window.
type SeriesStats struct {
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Range float64 `json:"range"`
}

// Trend is the analysis of a snapshot window.
//
// InsufficientData marks a window with fewer than two snapshots; every
// numeric field is zero in that case and no regression is flagged.
type Trend struct {
	InsufficientData bool      `json:"insufficient_data"`
	Snapshots        int       `json:"snapshots"`
	WindowDays       int       `json:"window_days"`
	From             time.Time `json:"from,omitempty"`
	To               time.Time `json:"to,omitempty"`

	EarliestOverall float64            `json:"earliest_overall"`
	LatestOverall   float64            `json:"latest_overall"`
	OverallDelta    float64            `json:"overall_delta"`
	ComponentDeltas map[string]float64 `json:"component_deltas,omitempty"`

	// Velocity is overall delta per elapsed day; 0.0 when the window's
	// endpoints share a timestamp.
	Velocity float64 `json:"velocity"`

	OverallRegression    bool     `json:"overall_regression"`
	ComponentRegressions []string `json:"component_regressions,omitempty"`

	Stats SeriesStats `json:"stats"`
}

// Regressed reports whether any regression flag is set.
func (t *Trend) Regressed() bool {
	return t.OverallRegression || len(t.ComponentRegressions) > 0
}

// FileRegression is one file whose coverage dropped between the two
// most recent snapshots.
type FileRegression struct {
	Path     string  `json:"path"`
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
	Drop     float64 `json:"drop"`
}

// Analyzer reads snapshot history and computes trends against policy.
//
// # Thread Safety
//
// Analyzer holds no mutable state and is safe for concurrent use.
type Analyzer struct {
	store  *coverage.Store
	policy *config.TrendPolicy
	logger *slog.Logger
}

// NewAnalyzer builds an analyzer over an open store.
func NewAnalyzer(store *coverage.Store, policy *config.TrendPolicy, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{store: store, policy: policy, logger: logger}
}

// History returns the snapshot window oldest first. Store failures are
// logged and reported as an empty history, never an error: trend
// analysis is advisory and must not break callers.
func (a *Analyzer) History(ctx context.Context, windowDays int) []coverage.Snapshot {
	snaps, err := a.store.History(ctx, windowDays)
	if err != nil {
		a.logger.Warn("snapshot history unavailable", "error", err.Error())
		return nil
	}
	return snaps
}

// Trend analyzes the trailing window. Fewer than two snapshots yields
// the InsufficientData marker result.
func (a *Analyzer) Trend(ctx context.Context, windowDays int) *Trend {
	ctx, span := otel.Tracer("trend").Start(ctx, "trend.Analyzer.Trend",
		trace.WithAttributes(
			attribute.Int("window_days", windowDays),
		),
	)
	defer span.End()

	snaps := a.History(ctx, windowDays)
	if len(snaps) < 2 {
		return &Trend{InsufficientData: true, Snapshots: len(snaps), WindowDays: windowDays}
	}

	earliest := &snaps[0]
	latest := &snaps[len(snaps)-1]
	t := &Trend{
		Snapshots:       len(snaps),
		WindowDays:      windowDays,
		From:            earliest.Timestamp,
		To:              latest.Timestamp,
		EarliestOverall: earliest.Overall,
		LatestOverall:   latest.Overall,
		OverallDelta:    latest.Overall - earliest.Overall,
		ComponentDeltas: make(map[string]float64, 3),
	}

	elapsedDays := latest.Timestamp.Sub(earliest.Timestamp).Hours() / 24
	if elapsedDays > 0 {
		t.Velocity = t.OverallDelta / elapsedDays
	}

	for _, name := range coverage.Components() {
		delta := latest.Component(name) - earliest.Component(name)
		t.ComponentDeltas[name] = delta
		if delta < a.policy.ComponentRegression {
			t.ComponentRegressions = append(t.ComponentRegressions, name)
		}
	}
	sort.Strings(t.ComponentRegressions)
	t.OverallRegression = t.OverallDelta < a.policy.OverallRegression

	t.Stats = seriesStats(snaps)
	span.SetAttributes(
		attribute.Int("snapshots", t.Snapshots),
		attribute.Bool("regressed", t.Regressed()),
	)
	return t
}

// FileRegressions compares the two most recent snapshots path by path
// and returns files whose coverage dropped more than threshold points,
// most regressed first. Files present in only one snapshot are skipped.
func (a *Analyzer) FileRegressions(ctx context.Context, threshold float64) ([]FileRegression, error) {
	ctx, span := otel.Tracer("trend").Start(ctx, "trend.Analyzer.FileRegressions",
		trace.WithAttributes(
			attribute.Float64("threshold", threshold),
		),
	)
	defer span.End()

	snaps, err := a.store.Latest(ctx, 2)
	if err != nil {
		return nil, err
	}
	if len(snaps) < 2 {
		return nil, nil
	}

	prevFiles, err := a.store.FilesFor(ctx, snaps[0].ID)
	if err != nil {
		return nil, err
	}
	currFiles, err := a.store.FilesFor(ctx, snaps[1].ID)
	if err != nil {
		return nil, err
	}

	previous := make(map[string]float64, len(prevFiles))
	for _, f := range prevFiles {
		previous[f.Path] = f.Percent
	}

	var regressions []FileRegression
	for _, f := range currFiles {
		before, ok := previous[f.Path]
		if !ok {
			continue
		}
		drop := before - f.Percent
		if drop > threshold {
			regressions = append(regressions, FileRegression{
				Path:     f.Path,
				Previous: before,
				Current:  f.Percent,
				Drop:     drop,
			})
		}
	}
	sort.Slice(regressions, func(i, j int) bool {
		if regressions[i].Drop != regressions[j].Drop {
			return regressions[i].Drop > regressions[j].Drop
		}
		return regressions[i].Path < regressions[j].Path
	})
	span.SetAttributes(attribute.Int("regressions", len(regressions)))
	return regressions, nil
}

func seriesStats(snaps []coverage.Snapshot) SeriesStats {
	stats := SeriesStats{Min: snaps[0].Overall, Max: snaps[0].Overall}
	var sum float64
	for _, s := range snaps {
		sum += s.Overall
		if s.Overall < stats.Min {
			stats.Min = s.Overall
		}
		if s.Overall > stats.Max {
			stats.Max = s.Overall
		}
	}
	stats.Mean = sum / float64(len(snaps))
	stats.Range = stats.Max - stats.Min
	return stats
}
