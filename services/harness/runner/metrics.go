// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	executionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relgate_property_executions_total",
		Help: "Property executions by terminal status.",
	}, []string{"status"})

	executionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relgate_property_execution_seconds",
		Help:    "Wall-clock duration of the generation and evaluation loop.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	examplesTested = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relgate_property_examples_tested",
		Help:    "Accepted inputs evaluated per property execution.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)

func observeResult(r *Result) {
	executionsTotal.WithLabelValues(string(r.Status)).Inc()
	executionDuration.Observe(r.Duration.Seconds())
	examplesTested.Observe(float64(r.ExamplesTested))
}
