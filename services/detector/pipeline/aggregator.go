// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline orchestrates the detection pipeline: perturbation of
// passage pairs, likelihood aggregation over originals and their
// perturbation sets, and experiment runs that feed the classifier.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
	"github.com/AleutianAI/Curvatext/services/detector/scoring"
	"github.com/AleutianAI/Curvatext/services/detector/telemetry"
	"golang.org/x/sync/errgroup"
)

// Aggregator queries the likelihood backend over (original, sampled) pairs
// and their perturbation sets and reduces each pair to a ResultRecord.
//
// Records are independent, so aggregation runs on a bounded set of parallel
// workers. A scoring failure fails only its own record; the failed record is
// reported and never published downstream in partial form.
type Aggregator struct {
	scorer      scoring.Scorer
	concurrency int
	logger      *slog.Logger
	usage       *scoring.UsageCounter
	metrics     *telemetry.Metrics
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithConcurrency bounds the parallel record workers. Defaults to 4.
func WithConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithUsage attaches a token counter so runs can report cost afterwards.
func WithUsage(usage *scoring.UsageCounter) AggregatorOption {
	return func(a *Aggregator) { a.usage = usage }
}

// WithMetrics attaches pipeline telemetry.
func WithMetrics(m *telemetry.Metrics) AggregatorOption {
	return func(a *Aggregator) { a.metrics = m }
}

// WithAggregatorLogger overrides the default slog logger.
func WithAggregatorLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) { a.logger = logger }
}

// NewAggregator creates an Aggregator around a likelihood backend.
func NewAggregator(scorer scoring.Scorer, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		scorer:      scorer,
		concurrency: 4,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate scores every partial record and returns the completed records
// in input order, minus any that failed. Failures come back as
// *AggregationError values, one per failed record. The returned error is
// non-nil only when the context is cancelled.
func (a *Aggregator) Aggregate(ctx context.Context, partials []datatypes.PartialRecord) ([]datatypes.ResultRecord, []*AggregationError, error) {
	start := time.Now()
	var tokensBefore int64
	if a.usage != nil {
		tokensBefore = a.usage.Total()
	}
	results := make([]*datatypes.ResultRecord, len(partials))

	var mu sync.Mutex
	var failures []*AggregationError

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range partials {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			record, aggErr := a.buildRecord(gctx, i, &partials[i])
			if aggErr != nil {
				mu.Lock()
				failures = append(failures, aggErr)
				mu.Unlock()
				a.logger.Error("record aggregation failed",
					"index", aggErr.Index, "stage", aggErr.Stage, "error", aggErr.Err)
				if a.metrics != nil {
					a.metrics.RecordFailure(gctx)
				}
				return nil
			}
			results[i] = record
			if a.metrics != nil {
				a.metrics.RecordProcessed(gctx)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	records := make([]datatypes.ResultRecord, 0, len(partials))
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}

	a.logger.Info("likelihood aggregation complete",
		"records", len(records),
		"failed", len(failures),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if a.usage != nil {
		a.logger.Info("token usage for this query", "tokens", a.usage.Total())
		if a.metrics != nil {
			a.metrics.RecordTokens(ctx, a.usage.Total()-tokensBefore)
		}
	}
	return records, failures, nil
}

// buildRecord scores one pair and its perturbation sets. The perturbation
// sets go out as batches so a backend that supports batch scoring does the
// whole set in one call.
func (a *Aggregator) buildRecord(ctx context.Context, idx int, partial *datatypes.PartialRecord) (*datatypes.ResultRecord, *AggregationError) {
	perturbedSampledLL, err := a.scoreBatch(ctx, partial.PerturbedSampled)
	if err != nil {
		return nil, &AggregationError{Index: idx, Stage: "perturbed_sampled", Err: err}
	}
	perturbedOriginalLL, err := a.scoreBatch(ctx, partial.PerturbedOriginal)
	if err != nil {
		return nil, &AggregationError{Index: idx, Stage: "perturbed_original", Err: err}
	}
	originalLL, err := a.scoreText(ctx, partial.Original)
	if err != nil {
		return nil, &AggregationError{Index: idx, Stage: "original", Err: err}
	}
	sampledLL, err := a.scoreText(ctx, partial.Sampled)
	if err != nil {
		return nil, &AggregationError{Index: idx, Stage: "sampled", Err: err}
	}

	return &datatypes.ResultRecord{
		Original:          partial.Original,
		Sampled:           partial.Sampled,
		PerturbedOriginal: partial.PerturbedOriginal,
		PerturbedSampled:  partial.PerturbedSampled,

		OriginalLL: originalLL,
		SampledLL:  sampledLL,

		AllPerturbedOriginalLL: perturbedOriginalLL,
		AllPerturbedSampledLL:  perturbedSampledLL,

		PerturbedOriginalLL:    Mean(perturbedOriginalLL),
		PerturbedSampledLL:     Mean(perturbedSampledLL),
		PerturbedOriginalLLStd: FlooredStd(perturbedOriginalLL),
		PerturbedSampledLLStd:  FlooredStd(perturbedSampledLL),
	}, nil
}

// scoreText and scoreBatch wrap the scorer so every backend call lands in
// the request counter, including the failed ones.
func (a *Aggregator) scoreText(ctx context.Context, text string) (float64, error) {
	ll, err := a.scorer.ScoreText(ctx, text)
	if a.metrics != nil {
		a.metrics.RecordScoreRequest(ctx, "score", err)
	}
	return ll, err
}

func (a *Aggregator) scoreBatch(ctx context.Context, texts []string) ([]float64, error) {
	lls, err := a.scorer.ScoreBatch(ctx, texts)
	if a.metrics != nil {
		a.metrics.RecordScoreRequest(ctx, "score_batch", err)
	}
	return lls, err
}
