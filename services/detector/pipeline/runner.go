// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
	"github.com/AleutianAI/Curvatext/services/detector/dataset"
	"github.com/AleutianAI/Curvatext/services/detector/evaluation"
	"github.com/AleutianAI/Curvatext/services/detector/perturb"
	"github.com/AleutianAI/Curvatext/services/detector/scoring"
	"github.com/AleutianAI/Curvatext/services/detector/storage/perturbcache"
	"github.com/AleutianAI/Curvatext/services/detector/telemetry"
)

// Runner executes a full detection experiment from a scenario: load the
// passage pairs, perturb both sides of each pair, score everything, then
// classify under each configured criterion.
type Runner struct {
	scenario  *datatypes.DetectionScenario
	perturber *perturb.Perturber
	scorer    scoring.Scorer
	cache     *perturbcache.Store
	usage     *scoring.UsageCounter
	metrics   *telemetry.Metrics
	logger    *slog.Logger
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithCache attaches a perturbation cache. The runner does not own the
// store; the caller closes it.
func WithCache(store *perturbcache.Store) RunnerOption {
	return func(r *Runner) { r.cache = store }
}

// WithRunnerMetrics attaches experiment metrics.
func WithRunnerMetrics(m *telemetry.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithRunnerLogger overrides the default logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner wires a runner from a validated scenario. The scoring backend
// and infill client are constructed from the scenario's configuration.
func NewRunner(scenario *datatypes.DetectionScenario, opts ...RunnerOption) (*Runner, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	usage := &scoring.UsageCounter{}
	scorer, err := buildScorer(scenario, usage)
	if err != nil {
		return nil, err
	}

	infill, err := perturb.NewHTTPInfillClient(scenario.Infill.BaseURL, scenario.Infill.MaxTokens)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		scenario: scenario,
		scorer:   scorer,
		usage:    usage,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	perturbOpts := []perturb.Option{}
	if scenario.Run.Seed != 0 {
		perturbOpts = append(perturbOpts, perturb.WithSeed(scenario.Run.Seed))
	}
	if r.metrics != nil {
		perturbOpts = append(perturbOpts, perturb.WithMetrics(r.metrics))
	}
	r.perturber = perturb.NewPerturber(infill, perturbOpts...)
	return r, nil
}

func buildScorer(scenario *datatypes.DetectionScenario, usage *scoring.UsageCounter) (scoring.Scorer, error) {
	switch scenario.Scoring.Backend {
	case "openai":
		return scoring.NewOpenAIScorer(scoring.OpenAIScorerConfig{
			Model:             scenario.Scoring.Model,
			Options:           scenario.Scoring.Options,
			RequestsPerSecond: scenario.Scoring.RequestsPerSecond,
			Usage:             usage,
		})
	case "local":
		return scoring.NewLocalScorer(scenario.Scoring.BaseURL)
	default:
		return nil, fmt.Errorf("unknown scoring backend %q", scenario.Scoring.Backend)
	}
}

// Usage returns the token counter shared with the scoring backend.
func (r *Runner) Usage() *scoring.UsageCounter { return r.usage }

// Run executes the experiment and returns one outcome per criterion.
func (r *Runner) Run(ctx context.Context) ([]datatypes.ExperimentOutcome, error) {
	pairs, err := dataset.LoadPairs(r.scenario.Dataset.File, r.scenario.Dataset.KExamples)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("dataset %q contains no usable passage pairs", r.scenario.Dataset.File)
	}
	r.logger.Info("loaded dataset",
		"dataset", r.scenario.Dataset.Name,
		"pairs", len(pairs))

	partials := dataset.ToPartialRecords(pairs)
	if err := r.perturbAll(ctx, partials); err != nil {
		return nil, err
	}

	aggOpts := []AggregatorOption{
		WithConcurrency(r.scenario.Run.Concurrency),
		WithUsage(r.usage),
		WithAggregatorLogger(r.logger),
	}
	if r.metrics != nil {
		aggOpts = append(aggOpts, WithMetrics(r.metrics))
	}
	agg := NewAggregator(r.scorer, aggOpts...)

	records, failures, err := agg.Aggregate(ctx, partials)
	if err != nil {
		return nil, err
	}
	for _, f := range failures {
		r.logger.Warn("record dropped from experiment", "index", f.Index, "stage", f.Stage, "error", f.Err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("all %d records failed scoring", len(partials))
	}

	outcomes := make([]datatypes.ExperimentOutcome, 0, len(r.scenario.Run.Criteria))
	for _, name := range r.scenario.Run.Criteria {
		criterion, err := evaluation.ParseCriterion(name)
		if err != nil {
			return nil, err
		}
		outcome, err := evaluation.Classify(records, criterion, r.scenario.Dataset.Name, r.scenario.Perturbation)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
	}

	r.logger.Info("experiment complete",
		"dataset", r.scenario.Dataset.Name,
		"records", len(records),
		"failed", len(failures),
		"tokens_used", r.usage.Total())
	return outcomes, nil
}

// perturbAll fills the perturbation sets on every partial record, serving
// from the cache where possible. Perturbation is sequential so a fixed
// seed yields a reproducible mask sequence.
func (r *Runner) perturbAll(ctx context.Context, partials []datatypes.PartialRecord) error {
	hp := r.scenario.Perturbation
	for i := range partials {
		orig, err := r.perturbPassage(ctx, partials[i].Original, hp)
		if err != nil {
			return fmt.Errorf("perturbing original passage %d: %w", i, err)
		}
		sampled, err := r.perturbPassage(ctx, partials[i].Sampled, hp)
		if err != nil {
			return fmt.Errorf("perturbing sampled passage %d: %w", i, err)
		}
		partials[i].PerturbedOriginal = orig
		partials[i].PerturbedSampled = sampled
	}
	return nil
}

func (r *Runner) perturbPassage(ctx context.Context, passage string, hp datatypes.Hyperparameters) (datatypes.PerturbationSet, error) {
	if r.cache != nil {
		set, ok, err := r.cache.Get(passage, hp)
		if err != nil {
			return nil, err
		}
		if ok {
			return set, nil
		}
	}

	set, err := r.perturber.Perturb(ctx, passage, hp)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Put(passage, hp, set); err != nil {
			r.logger.Warn("failed to cache perturbation set", "error", err)
		}
	}
	return set, nil
}
