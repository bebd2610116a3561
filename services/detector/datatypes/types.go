// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the shared data model for the Curvatext detection
// pipeline: passages, perturbation sets, scored records, and experiment
// outcomes. Types here are plain data; they carry no behavior beyond
// convenience accessors so they serialize cleanly to JSON, YAML, and CSV.
package datatypes

import "fmt"

// PassageRole tags where a passage came from.
type PassageRole string

const (
	// RoleOriginal marks human-authored text.
	RoleOriginal PassageRole = "original"

	// RoleSampled marks candidate (machine-authored) text.
	RoleSampled PassageRole = "sampled"
)

// Passage is a text with its provenance tag. Immutable once created.
type Passage struct {
	Text string      `json:"text"`
	Role PassageRole `json:"role"`
}

// PerturbationSet is an ordered sequence of perturbed variants of a single
// passage. Variants are produced independently and are not guaranteed
// distinct; a variant that could not be infilled after the configured number
// of rounds equals the unmasked source passage.
type PerturbationSet []string

// Distinct returns the number of distinct variant texts in the set.
// Used for zero-variance diagnostics.
func (s PerturbationSet) Distinct() int {
	seen := make(map[string]struct{}, len(s))
	for _, v := range s {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// Hyperparameters bundles the perturbation knobs for one experiment.
type Hyperparameters struct {
	// NPerturbations is the number of variants produced per passage.
	NPerturbations int `json:"n_perturbations" yaml:"n_perturbations" validate:"gte=1"`

	// SpanLength is the number of word tokens masked per span.
	SpanLength int `json:"span_length" yaml:"span_length" validate:"gte=1"`

	// PerturbPct is the approximate fraction of tokens to mask, in (0, 1].
	PerturbPct float64 `json:"perturb_pct" yaml:"perturb_pct" validate:"gt=0,lte=1"`

	// NPerturbationRounds is the number of mask+infill attempts per variant
	// before falling back to the unmasked passage.
	NPerturbationRounds int `json:"n_perturbation_rounds" yaml:"n_perturbation_rounds" validate:"gte=1"`
}

// CompletionOptions carries the remote completion request knobs used by the
// OpenAI scoring backend. Echo mode with logprobs is how the backend turns a
// completion endpoint into a likelihood oracle.
type CompletionOptions struct {
	// LogProbs is how many alternative token logprobs to request (0-5).
	LogProbs int `json:"logprobs" yaml:"logprobs" validate:"gte=0,lte=5"`

	// Echo returns the prompt tokens (and their logprobs) in the response.
	Echo bool `json:"echo" yaml:"echo"`

	// MaxTokens caps newly generated tokens. 0 for pure scoring.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" validate:"gte=0"`

	// Temperature for any generated continuation. Irrelevant when MaxTokens
	// is 0 but carried for parity with the completion API surface.
	Temperature float32 `json:"temperature" yaml:"temperature" validate:"gte=0"`

	// N is the number of completions per prompt.
	N int `json:"n" yaml:"n" validate:"gte=1"`
}

// DefaultCompletionOptions returns the scoring configuration: echo the
// prompt with per-token logprobs, generate nothing.
func DefaultCompletionOptions() CompletionOptions {
	return CompletionOptions{
		LogProbs:    1,
		Echo:        true,
		MaxTokens:   0,
		Temperature: 0,
		N:           1,
	}
}

// PartialRecord pairs an original passage with a sampled candidate plus
// their perturbation sets. It is the aggregator's unit of input; the sets
// may be empty if perturbation has not run yet.
type PartialRecord struct {
	Original          string          `json:"original"`
	Sampled           string          `json:"sampled"`
	PerturbedOriginal PerturbationSet `json:"perturbed_original"`
	PerturbedSampled  PerturbationSet `json:"perturbed_sampled"`
}

// ResultRecord is a fully scored record: the passage pair, the perturbation
// sets, and all derived likelihood statistics. Built incrementally by the
// aggregator and immutable once populated.
//
// Standard deviations are floored to 1 when a perturbation set has fewer
// than two elements or zero variance, so the z-score criterion never
// divides by zero.
type ResultRecord struct {
	Original          string          `json:"original"`
	Sampled           string          `json:"sampled"`
	PerturbedOriginal PerturbationSet `json:"perturbed_original"`
	PerturbedSampled  PerturbationSet `json:"perturbed_sampled"`

	OriginalLL float64 `json:"original_ll"`
	SampledLL  float64 `json:"sampled_ll"`

	AllPerturbedOriginalLL []float64 `json:"all_perturbed_original_ll"`
	AllPerturbedSampledLL  []float64 `json:"all_perturbed_sampled_ll"`

	PerturbedOriginalLL    float64 `json:"perturbed_original_ll"`
	PerturbedSampledLL     float64 `json:"perturbed_sampled_ll"`
	PerturbedOriginalLLStd float64 `json:"perturbed_original_ll_std"`
	PerturbedSampledLLStd  float64 `json:"perturbed_sampled_ll_std"`
}

// Predictions holds the per-population detection scores produced by a
// criterion. "Real" scores come from original passages, "Samples" from
// candidate passages. Higher score means more machine-like.
type Predictions struct {
	Real    []float64 `json:"real"`
	Samples []float64 `json:"samples"`
}

// ROCMetrics is a receiver-operating-characteristic curve with its area.
type ROCMetrics struct {
	FPR []float64 `json:"fpr"`
	TPR []float64 `json:"tpr"`
	AUC float64   `json:"roc_auc"`
}

// PRMetrics is a precision-recall curve with its area.
type PRMetrics struct {
	Precision []float64 `json:"precision"`
	Recall    []float64 `json:"recall"`
	AUC       float64   `json:"pr_auc"`
}

// ExperimentOutcome bundles everything produced by one (criterion,
// hyperparameter) run: the predictions, the raw scored records, and the
// evaluation metrics. Read-only after creation.
type ExperimentOutcome struct {
	Name        string          `json:"name"`
	RunID       string          `json:"run_id"`
	Criterion   string          `json:"criterion"`
	Info        Hyperparameters `json:"info"`
	Predictions Predictions     `json:"predictions"`
	RawResults  []ResultRecord  `json:"raw_results"`
	ROC         ROCMetrics      `json:"metrics"`
	PR          PRMetrics       `json:"pr_metrics"`

	// Loss is 1 - PR AUC, used to rank hyperparameter sweeps.
	Loss float64 `json:"loss"`
}

// OutcomeName builds the canonical experiment name from its parameters,
// e.g. "xsum_difference_5_0.15".
func OutcomeName(dataset, criterion string, hp Hyperparameters) string {
	return fmt.Sprintf("%s_%s_%d_%g", dataset, criterion, hp.NPerturbations, hp.PerturbPct)
}
