// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package harness

import "time"

// builtinDefinitions returns the properties every relgate deployment
// starts with. They cover the toolchain's own guarantees; product-specific
// properties are registered by the embedding project.
func builtinDefinitions() []*Definition {
	return []*Definition{
		{
			Name:             "plan_order_deterministic",
			Description:      "Execution plans are identical across repeated calls for a fixed filter and unchanged catalog.",
			Category:         CategoryAnalysis,
			Priority:         PriorityCritical,
			Requirements:     []string{"REQ-PLAN-001"},
			Tags:             []string{"planner"},
			ExpectedExamples: 100,
			Timeout:          30 * time.Second,
			Enabled:          true,
		},
		{
			Name:             "duplicate_registration_rejected",
			Description:      "Registering an existing property name fails and leaves the catalog unchanged.",
			Category:         CategoryAnalysis,
			Priority:         PriorityCritical,
			Requirements:     []string{"REQ-CAT-001"},
			Tags:             []string{"catalog"},
			ExpectedExamples: 100,
			Timeout:          30 * time.Second,
			Enabled:          true,
		},
		{
			Name:             "catalog_export_roundtrip",
			Description:      "An exported catalog reimports to identical category and requirement lookups.",
			Category:         CategorySerialization,
			Priority:         PriorityHigh,
			Requirements:     []string{"REQ-CAT-002"},
			Tags:             []string{"catalog", "yaml"},
			ExpectedExamples: 50,
			Timeout:          30 * time.Second,
			Enabled:          true,
		},
		{
			Name:             "velocity_never_nan",
			Description:      "Coverage trend velocity is finite for every snapshot pair, including zero elapsed days.",
			Category:         CategoryAnalysis,
			Priority:         PriorityHigh,
			Requirements:     []string{"REQ-TREND-001"},
			Tags:             []string{"trend"},
			ExpectedExamples: 200,
			Timeout:          30 * time.Second,
			Enabled:          true,
		},
		{
			Name:             "gap_urgency_monotonic",
			Description:      "Gap urgency never decreases as file coverage decreases for files of equal line count.",
			Category:         CategoryAnalysis,
			Priority:         PriorityMedium,
			Requirements:     []string{"REQ-GAP-001"},
			Tags:             []string{"coverage"},
			ExpectedExamples: 200,
			Timeout:          30 * time.Second,
			Enabled:          true,
		},
		{
			Name:             "parallel_matches_sequential",
			Description:      "Parallel property execution produces the same result set as sequential execution after a stable-key sort.",
			Category:         CategoryConcurrency,
			Priority:         PriorityHigh,
			Requirements:     []string{"REQ-RUN-001"},
			Tags:             []string{"runner", "slow"},
			ExpectedExamples: 25,
			Timeout:          120 * time.Second,
			Enabled:          true,
		},
		{
			Name:             "snapshot_rows_immutable",
			Description:      "Persisted snapshot rows are never updated or deleted by any store operation.",
			Category:         CategoryPipeline,
			Priority:         PriorityMedium,
			Requirements:     []string{"REQ-STORE-001"},
			Tags:             []string{"store"},
			ExpectedExamples: 50,
			Timeout:          60 * time.Second,
			Enabled:          true,
		},
		{
			Name:             "gate_report_schema_stable",
			Description:      "Quality-gate JSON reports parse under the published schema for every gate combination.",
			Category:         CategoryAPI,
			Priority:         PriorityLow,
			Requirements:     []string{"REQ-GATE-001"},
			Tags:             []string{"gates", "json"},
			ExpectedExamples: 50,
			Timeout:          30 * time.Second,
			Enabled:          true,
		},
	}
}
