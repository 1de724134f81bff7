// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package runner

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// maxWorkers caps the pool regardless of CPU count; property evaluation
// is rarely wide enough to benefit from more.
const maxWorkers = 8

// RunAll executes independent cases across a fixed-size worker pool.
//
// # Description
//
// workers <= 0 selects min(NumCPU, 8). Result ordering is completion
// order and is NOT guaranteed to match the input or a sequential run;
// callers comparing against a sequential baseline must sort both sides
// with SortResults first.
//
// Every case reaches a terminal result even when ctx is cancelled
// mid-run; cancellation surfaces per-case as TIMEOUT or ERROR statuses, so
// RunAll never returns short.
func (e *Engine) RunAll(ctx context.Context, cases []*Case, workers int) []*Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}

	var (
		mu      sync.Mutex
		results = make([]*Result, 0, len(cases))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, c := range cases {
		g.Go(func() error {
			r := e.Run(ctx, c)
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; terminal statuses carry the faults.
	_ = g.Wait()

	return results
}

// SortResults orders results by the stable key (property name) so a
// parallel result set can be compared against a sequential baseline.
func SortResults(results []*Result) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Property < results[j].Property
	})
}
