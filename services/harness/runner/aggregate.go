// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package runner

import "time"

// Summary aggregates a batch of property results.
type Summary struct {
	// Empty marks a summary computed from no results. All other fields
	// are zero; callers must check it before trusting the rates.
	Empty bool `json:"empty"`

	// Total is the number of results aggregated.
	Total int `json:"total"`

	// ByStatus counts results per terminal status.
	ByStatus map[Status]int `json:"by_status"`

	// SuccessRate is passed / total * 100.
	SuccessRate float64 `json:"success_rate"`

	// TotalDuration sums execution time across all results.
	TotalDuration time.Duration `json:"total_duration"`

	// TotalExamples sums examples tested across all results.
	TotalExamples int `json:"total_examples"`

	// AvgDuration is TotalDuration / Total.
	AvgDuration time.Duration `json:"avg_duration"`

	// Fastest and Slowest name the properties with the extreme
	// durations.
	Fastest string `json:"fastest"`
	Slowest string `json:"slowest"`

	// MostExamples and FewestExamples name the properties with the
	// extreme examples-tested counts.
	MostExamples   string `json:"most_examples"`
	FewestExamples string `json:"fewest_examples"`
}

// Aggregate summarizes a batch of results. An empty batch returns the
// explicit Empty marker rather than dividing by zero.
func Aggregate(results []*Result) *Summary {
	if len(results) == 0 {
		return &Summary{Empty: true, ByStatus: make(map[Status]int)}
	}

	s := &Summary{
		Total:    len(results),
		ByStatus: make(map[Status]int),
	}

	fastest, slowest := results[0], results[0]
	most, fewest := results[0], results[0]
	for _, r := range results {
		s.ByStatus[r.Status]++
		s.TotalDuration += r.Duration
		s.TotalExamples += r.ExamplesTested

		if r.Duration < fastest.Duration {
			fastest = r
		}
		if r.Duration > slowest.Duration {
			slowest = r
		}
		if r.ExamplesTested > most.ExamplesTested {
			most = r
		}
		if r.ExamplesTested < fewest.ExamplesTested {
			fewest = r
		}
	}

	s.SuccessRate = float64(s.ByStatus[StatusPassed]) / float64(s.Total) * 100
	s.AvgDuration = s.TotalDuration / time.Duration(s.Total)
	s.Fastest = fastest.Property
	s.Slowest = slowest.Property
	s.MostExamples = most.Property
	s.FewestExamples = fewest.Property
	return s
}
