// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil)
	require.True(t, s.Empty, "empty input must produce the explicit marker")
	assert.Zero(t, s.Total)
	assert.Zero(t, s.SuccessRate)
}

func TestAggregate(t *testing.T) {
	results := []*Result{
		{Property: "fast_pass", Status: StatusPassed, Duration: 10 * time.Millisecond, ExamplesTested: 100},
		{Property: "slow_pass", Status: StatusPassed, Duration: 900 * time.Millisecond, ExamplesTested: 250},
		{Property: "mid_fail", Status: StatusFailed, Duration: 50 * time.Millisecond, ExamplesTested: 17},
		{Property: "skipped", Status: StatusSkipped, Duration: 40 * time.Millisecond, ExamplesTested: 0},
	}

	s := Aggregate(results)

	require.False(t, s.Empty)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.ByStatus[StatusPassed])
	assert.Equal(t, 1, s.ByStatus[StatusFailed])
	assert.Equal(t, 1, s.ByStatus[StatusSkipped])
	assert.Equal(t, 50.0, s.SuccessRate)
	assert.Equal(t, 1000*time.Millisecond, s.TotalDuration)
	assert.Equal(t, 367, s.TotalExamples)
	assert.Equal(t, 250*time.Millisecond, s.AvgDuration)
	assert.Equal(t, "fast_pass", s.Fastest)
	assert.Equal(t, "slow_pass", s.Slowest)
	assert.Equal(t, "slow_pass", s.MostExamples)
	assert.Equal(t, "skipped", s.FewestExamples)
}

func TestAggregateSingle(t *testing.T) {
	s := Aggregate([]*Result{
		{Property: "only", Status: StatusError, Duration: time.Second, ExamplesTested: 3},
	})

	assert.Equal(t, 0.0, s.SuccessRate)
	assert.Equal(t, "only", s.Fastest)
	assert.Equal(t, "only", s.Slowest)
}
