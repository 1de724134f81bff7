// Copyright (C) 2025 HarborQA (engineering@harborqa.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package generate abstracts the randomized-input capability the runner
// draws from.
//
// The harness does not implement a quickcheck engine itself; it only
// requires something that can produce values for a named domain and can
// signal when its domain is exhausted. The seeded Sampler below is the
// default implementation; tests and embedders can supply their own.
package generate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

var (
	// ErrExhausted signals that no further distinct inputs can be
	// produced. The runner recovers it into a SKIPPED result; it is
	// never propagated past the engine.
	ErrExhausted = errors.New("input domain exhausted")

	// ErrUnknownDomain is returned for a domain the generator has no
	// strategy for.
	ErrUnknownDomain = errors.New("unknown input domain")
)

// Generator produces inputs for property evaluation.
//
// Implementations may be CPU-bound; Draw takes a context so a run can be
// cancelled mid-generation.
type Generator interface {
	// Draw produces the next value for the named domain. It returns
	// ErrExhausted once no further distinct inputs exist and
	// ErrUnknownDomain for an unregistered domain.
	Draw(ctx context.Context, domain string) (any, error)

	// Exhausted reports whether the generator can produce no further
	// inputs for any domain.
	Exhausted() bool
}

// Strategy produces one value per call for a single domain.
type Strategy func(r *rand.Rand) any

// Sampler is a seeded pseudo-random Generator.
//
// # Description
//
// Sampler draws from named strategies using a deterministic PRNG, so a
// run is reproducible from its seed. It never exhausts; finite-domain
// semantics are provided by FiniteDomain.
//
// # Thread Safety
//
// Safe for concurrent use; the PRNG is guarded by a mutex.
type Sampler struct {
	mu         sync.Mutex
	rng        *rand.Rand
	strategies map[string]Strategy
}

// NewSampler creates a sampler seeded with seed and the built-in
// strategies for the common domains (ints, unit floats, percentages,
// short strings, float slices).
func NewSampler(seed uint64) *Sampler {
	s := &Sampler{
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		strategies: make(map[string]Strategy),
	}
	s.Strategy("int", func(r *rand.Rand) any { return r.IntN(1<<16) - 1<<15 })
	s.Strategy("unit_float", func(r *rand.Rand) any { return r.Float64() })
	s.Strategy("percentage", func(r *rand.Rand) any { return r.Float64() * 100 })
	s.Strategy("short_string", func(r *rand.Rand) any { return randomString(r, 1+r.IntN(16)) })
	s.Strategy("float_slice", func(r *rand.Rand) any {
		out := make([]float64, r.IntN(32))
		for i := range out {
			out[i] = r.NormFloat64() * 100
		}
		return out
	})
	return s
}

// Strategy registers or replaces the strategy for a domain.
func (s *Sampler) Strategy(domain string, strat Strategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategies[domain] = strat
}

// Draw produces the next pseudo-random value for the domain.
func (s *Sampler) Draw(ctx context.Context, domain string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	strat, ok := s.strategies[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDomain, domain)
	}
	return strat(s.rng), nil
}

// Exhausted always reports false; a pseudo-random stream has no end.
func (s *Sampler) Exhausted() bool { return false }

const stringAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789_"

func randomString(r *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = stringAlphabet[r.IntN(len(stringAlphabet))]
	}
	return string(b)
}

// FiniteDomain enumerates a fixed value list once, then reports
// exhaustion. All domains share the one list; it exists to give the
// runner real exhaustion semantics and to make SKIPPED paths testable.
//
// Thread Safety: Safe for concurrent use.
type FiniteDomain struct {
	mu     sync.Mutex
	values []any
	next   int
}

// NewFiniteDomain creates a generator over the given values.
func NewFiniteDomain(values ...any) *FiniteDomain {
	return &FiniteDomain{values: values}
}

// Draw returns the next remaining value, or ErrExhausted.
func (f *FiniteDomain) Draw(ctx context.Context, domain string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.next >= len(f.values) {
		return nil, ErrExhausted
	}
	v := f.values[f.next]
	f.next++
	return v, nil
}

// Exhausted reports whether every value has been drawn.
func (f *FiniteDomain) Exhausted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next >= len(f.values)
}
