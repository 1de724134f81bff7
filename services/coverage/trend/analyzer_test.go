// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package trend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborqa/relgate/pkg/config"
	"github.com/harborqa/relgate/services/coverage"
)

func newAnalyzer(t *testing.T) (*Analyzer, *coverage.Store) {
	t.Helper()
	store, err := coverage.OpenStore(filepath.Join(t.TempDir(), "trend.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	policy := config.Default().Trend
	return NewAnalyzer(store, &policy, nil), store
}

func persist(t *testing.T, store *coverage.Store, at time.Time, overall float64, components map[string]float64, files ...coverage.FileRecord) {
	t.Helper()
	if components == nil {
		components = map[string]float64{
			coverage.ComponentCore:        overall,
			coverage.ComponentDomain:      overall,
			coverage.ComponentIntegration: overall,
		}
	}
	snap := &coverage.Snapshot{
		Timestamp:  at,
		Overall:    overall,
		Components: components,
		Files:      files,
	}
	require.NoError(t, store.Persist(context.Background(), snap))
}

func TestTrendInsufficientData(t *testing.T) {
	analyzer, store := newAnalyzer(t)
	ctx := context.Background()

	trend := analyzer.Trend(ctx, 30)
	assert.True(t, trend.InsufficientData)
	assert.Zero(t, trend.Snapshots)

	persist(t, store, time.Now(), 75, nil)
	trend = analyzer.Trend(ctx, 30)
	assert.True(t, trend.InsufficientData)
	assert.Equal(t, 1, trend.Snapshots)
	assert.False(t, trend.Regressed())
}

func TestTrendVelocity(t *testing.T) {
	analyzer, store := newAnalyzer(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// 70% -> 75% over exactly one day: velocity +5.0 points/day.
	persist(t, store, now.AddDate(0, 0, -1), 70, nil)
	persist(t, store, now, 75, nil)

	trend := analyzer.Trend(ctx, 30)
	require.False(t, trend.InsufficientData)
	assert.InDelta(t, 5.0, trend.OverallDelta, 0.001)
	assert.InDelta(t, 5.0, trend.Velocity, 0.01)
	assert.False(t, trend.OverallRegression)
}

func TestTrendZeroElapsedDays(t *testing.T) {
	analyzer, store := newAnalyzer(t)
	ctx := context.Background()
	at := time.Now().UTC()

	persist(t, store, at, 70, nil)
	persist(t, store, at, 80, nil)

	trend := analyzer.Trend(ctx, 30)
	require.False(t, trend.InsufficientData)
	assert.InDelta(t, 10.0, trend.OverallDelta, 0.001)
	assert.Zero(t, trend.Velocity, "zero elapsed time must not divide")
}

func TestTrendOverallRegression(t *testing.T) {
	analyzer, store := newAnalyzer(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// 82% -> 78.5% is a 3.5 point drop, past the 1.0 threshold.
	persist(t, store, now.AddDate(0, 0, -7), 82, nil)
	persist(t, store, now, 78.5, nil)

	trend := analyzer.Trend(ctx, 30)
	require.False(t, trend.InsufficientData)
	assert.InDelta(t, -3.5, trend.OverallDelta, 0.001)
	assert.True(t, trend.OverallRegression)
	assert.True(t, trend.Regressed())
}

func TestTrendComponentRegression(t *testing.T) {
	analyzer, store := newAnalyzer(t)
	ctx := context.Background()
	now := time.Now().UTC()

	persist(t, store, now.AddDate(0, 0, -3), 80, map[string]float64{
		coverage.ComponentCore:        90,
		coverage.ComponentDomain:      85,
		coverage.ComponentIntegration: 75,
	})
	// Core drops 2.5 points (> 2.0 threshold); overall drops only 0.5.
	persist(t, store, now, 79.5, map[string]float64{
		coverage.ComponentCore:        87.5,
		coverage.ComponentDomain:      85.5,
		coverage.ComponentIntegration: 75,
	})

	trend := analyzer.Trend(ctx, 30)
	require.False(t, trend.InsufficientData)
	assert.False(t, trend.OverallRegression)
	assert.Equal(t, []string{coverage.ComponentCore}, trend.ComponentRegressions)
}

func TestTrendSeriesStats(t *testing.T) {
	analyzer, store := newAnalyzer(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, overall := range []float64{60, 80, 70} {
		persist(t, store, now.Add(time.Duration(i)*time.Hour), overall, nil)
	}

	trend := analyzer.Trend(ctx, 30)
	require.False(t, trend.InsufficientData)
	assert.InDelta(t, 70.0, trend.Stats.Mean, 0.001)
	assert.InDelta(t, 60.0, trend.Stats.Min, 0.001)
	assert.InDelta(t, 80.0, trend.Stats.Max, 0.001)
	assert.InDelta(t, 20.0, trend.Stats.Range, 0.001)
}

func TestHistoryNeverErrors(t *testing.T) {
	analyzer, store := newAnalyzer(t)
	require.NoError(t, store.Close())

	snaps := analyzer.History(context.Background(), 30)
	assert.Empty(t, snaps, "a failing store must read as empty history")

	trend := analyzer.Trend(context.Background(), 30)
	assert.True(t, trend.InsufficientData)
}

func TestFileRegressions(t *testing.T) {
	analyzer, store := newAnalyzer(t)
	ctx := context.Background()
	now := time.Now().UTC()

	persist(t, store, now.Add(-time.Hour), 80, nil,
		coverage.FileRecord{Path: "src/core/a.py", Percent: 90, Component: coverage.ComponentCore},
		coverage.FileRecord{Path: "src/core/b.py", Percent: 85, Component: coverage.ComponentCore},
		coverage.FileRecord{Path: "src/cli/gone.py", Percent: 70, Component: coverage.ComponentIntegration},
	)
	persist(t, store, now, 78, nil,
		coverage.FileRecord{Path: "src/core/a.py", Percent: 82, Component: coverage.ComponentCore},
		coverage.FileRecord{Path: "src/core/b.py", Percent: 70, Component: coverage.ComponentCore},
		coverage.FileRecord{Path: "src/cli/new.py", Percent: 10, Component: coverage.ComponentIntegration},
	)

	regressions, err := analyzer.FileRegressions(ctx, 5.0)
	require.NoError(t, err)
	require.Len(t, regressions, 2, "new and removed files must be skipped")
	assert.Equal(t, "src/core/b.py", regressions[0].Path)
	assert.InDelta(t, 15.0, regressions[0].Drop, 0.001)
	assert.Equal(t, "src/core/a.py", regressions[1].Path)
}

func TestFileRegressionsNeedsTwoSnapshots(t *testing.T) {
	analyzer, store := newAnalyzer(t)
	ctx := context.Background()

	regressions, err := analyzer.FileRegressions(ctx, 1.0)
	require.NoError(t, err)
	assert.Empty(t, regressions)

	persist(t, store, time.Now(), 80, nil)
	regressions, err = analyzer.FileRegressions(ctx, 1.0)
	require.NoError(t, err)
	assert.Empty(t, regressions)
}

func TestRenderMarkdownTrend(t *testing.T) {
	analyzer, store := newAnalyzer(t)
	ctx := context.Background()
	now := time.Now().UTC()

	persist(t, store, now.AddDate(0, 0, -2), 82, nil)
	persist(t, store, now, 78.5, nil)

	md := RenderMarkdown(analyzer.Trend(ctx, 30), nil)
	for _, want := range []string{
		"# Coverage Trend",
		"82.0% -> 78.5% (-3.5)",
		"## Regressions",
		"overall coverage regressed by 3.5 points",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderChart(t *testing.T) {
	now := time.Now()
	var snaps []coverage.Snapshot
	for i, overall := range []float64{60, 65, 70, 80} {
		snaps = append(snaps, coverage.Snapshot{
			Timestamp: now.Add(time.Duration(i) * time.Hour),
			Overall:   overall,
		})
	}
	chart := RenderChart(snaps)
	assert.Contains(t, chart, "80.0%")
	assert.Contains(t, chart, "60.0%")
	assert.Equal(t, 4, strings.Count(chart, "*"))

	assert.Contains(t, RenderChart(nil), "not enough snapshots")
}
