// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package perturb produces populations of minimally edited variants of a
// passage by masking contiguous word spans and asking an infill model to
// rewrite them. The variant population is the raw material for the
// perturbation-discrepancy detection statistic.
package perturb

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
	"github.com/AleutianAI/Curvatext/services/detector/telemetry"
)

// Perturber generates perturbation sets for passages.
//
// Each variant gets up to NPerturbationRounds independent mask+infill
// attempts. A round fails when the infill model returns the wrong number of
// fills (degenerate output) or an empty result; transport errors from the
// infill backend propagate to the caller instead. When every round fails the
// variant falls back to the unmasked original passage. That fallback is
// deliberate: downstream statistics tolerate it through the zero-variance
// guard, and a missing variant would be worse than a useless one.
//
// Thread Safety: safe for concurrent use; the rng is mutex-guarded.
type Perturber struct {
	infill  InfillClient
	logger  *slog.Logger
	metrics *telemetry.Metrics

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Perturber.
type Option func(*Perturber)

// WithSeed fixes the mask-span selection seed. With the same seed, passage,
// and hyperparameters, repeated runs produce identical perturbation sets.
func WithSeed(seed int64) Option {
	return func(p *Perturber) {
		p.rng = rand.New(rand.NewSource(seed))
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Perturber) {
		p.logger = logger
	}
}

// WithMetrics attaches round and fallback counters.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Perturber) {
		p.metrics = m
	}
}

// NewPerturber creates a Perturber around an infill backend.
func NewPerturber(infill InfillClient, opts ...Option) *Perturber {
	p := &Perturber{
		infill: infill,
		logger: slog.Default(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Perturb produces exactly hp.NPerturbations variants of the passage.
//
// Variants are generated independently; distinct passages can be perturbed
// on parallel workers. The returned error is non-nil only for infill
// transport failures or an unmaskable (empty) passage; degenerate infill
// output is absorbed by the retry-then-fallback contract.
func (p *Perturber) Perturb(ctx context.Context, passage string, hp datatypes.Hyperparameters) (datatypes.PerturbationSet, error) {
	set := make(datatypes.PerturbationSet, 0, hp.NPerturbations)
	fallbacks := 0
	for v := 0; v < hp.NPerturbations; v++ {
		variant, err := p.perturbOne(ctx, passage, hp)
		if err != nil {
			if errors.Is(err, errAllRoundsFailed) {
				set = append(set, passage)
				fallbacks++
				continue
			}
			return nil, err
		}
		set = append(set, variant)
	}
	if fallbacks > 0 {
		if p.metrics != nil {
			p.metrics.RecordPerturbationFallback(ctx, int64(fallbacks))
		}
		p.logger.Warn("perturbation fallback to unmasked passage",
			"fallbacks", fallbacks,
			"n_variants", hp.NPerturbations,
			"rounds", hp.NPerturbationRounds,
			"passage_prefix", prefix(passage, 60),
		)
	}
	return set, nil
}

// errAllRoundsFailed is internal control flow for the fallback path.
var errAllRoundsFailed = errors.New("all perturbation rounds failed")

func (p *Perturber) perturbOne(ctx context.Context, passage string, hp datatypes.Hyperparameters) (string, error) {
	var lastErr error
	for round := 0; round < hp.NPerturbationRounds; round++ {
		masked, nMasks, err := p.mask(passage, hp)
		if err != nil {
			return "", err
		}
		raw, err := p.infill.Infill(ctx, masked, nMasks)
		if err != nil {
			return "", err
		}
		fills, err := extractFills(raw, nMasks)
		if p.metrics != nil {
			p.metrics.RecordPerturbationRound(ctx, err == nil)
		}
		if err != nil {
			lastErr = err
			p.logger.Debug("infill round failed",
				"round", round+1,
				"rounds", hp.NPerturbationRounds,
				"error", err,
			)
			continue
		}
		variant := applyFills(masked, fills)
		if variant == "" {
			lastErr = ErrEmptyFill
			continue
		}
		return variant, nil
	}
	if lastErr == nil {
		lastErr = ErrPlaceholderMismatch
	}
	return "", errors.Join(errAllRoundsFailed, lastErr)
}

func (p *Perturber) mask(passage string, hp datatypes.Hyperparameters) (string, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return maskSpans(p.rng, passage, hp.SpanLength, hp.PerturbPct)
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
