// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package release

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gateResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relgate_gate_results_total",
		Help: "Gate verdicts by gate name and outcome.",
	}, []string{"gate", "passed"})

	gateScores = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relgate_gate_score",
		Help: "Most recent score per gate.",
	}, []string{"gate"})
)

func observeGate(result GateResult) {
	gateResults.WithLabelValues(result.Name, strconv.FormatBool(result.Passed)).Inc()
	gateScores.WithLabelValues(result.Name).Set(result.Score)
}
