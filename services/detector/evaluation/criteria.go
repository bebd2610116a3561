// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package evaluation turns aggregated likelihood statistics into detection
// scores and binary-classification metrics.
//
// Sign convention: a machine-generated passage sits near a local maximum of
// the model's likelihood surface, so perturbing it drops the likelihood more
// than perturbing human text does. Both criteria therefore score HIGHER for
// machine-like passages, and the "samples" population is the positive class
// throughout.
package evaluation

import (
	"fmt"
	"log/slog"

	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
)

// Criterion selects the detection statistic.
type Criterion string

const (
	// CriterionDifference scores ll(text) - mean(ll(perturbations)).
	CriterionDifference Criterion = "difference"

	// CriterionZScore divides the difference by the perturbation
	// population's standard deviation.
	CriterionZScore Criterion = "zscore"
)

// ParseCriterion validates a criterion name.
func ParseCriterion(name string) (Criterion, error) {
	switch Criterion(name) {
	case CriterionDifference, CriterionZScore:
		return Criterion(name), nil
	}
	return "", fmt.Errorf("unknown criterion %q (want %q or %q)",
		name, CriterionDifference, CriterionZScore)
}

// Predict converts scored records into per-population detection scores.
//
// Deterministic given identical inputs; no randomness at this stage. For
// the z-score criterion a zero standard deviation is floored to 1 and a
// warning is logged with enough context to find the degenerate passage.
func Predict(records []datatypes.ResultRecord, criterion Criterion) (datatypes.Predictions, error) {
	preds := datatypes.Predictions{
		Real:    make([]float64, 0, len(records)),
		Samples: make([]float64, 0, len(records)),
	}

	switch criterion {
	case CriterionDifference:
		for _, res := range records {
			preds.Real = append(preds.Real, res.OriginalLL-res.PerturbedOriginalLL)
			preds.Samples = append(preds.Samples, res.SampledLL-res.PerturbedSampledLL)
		}

	case CriterionZScore:
		for _, res := range records {
			origStd := res.PerturbedOriginalLLStd
			if origStd == 0 {
				origStd = 1
				warnZeroVariance("original", res.Original, res.PerturbedOriginal)
			}
			sampledStd := res.PerturbedSampledLLStd
			if sampledStd == 0 {
				sampledStd = 1
				warnZeroVariance("sampled", res.Sampled, res.PerturbedSampled)
			}
			preds.Real = append(preds.Real, (res.OriginalLL-res.PerturbedOriginalLL)/origStd)
			preds.Samples = append(preds.Samples, (res.SampledLL-res.PerturbedSampledLL)/sampledStd)
		}

	default:
		return datatypes.Predictions{}, fmt.Errorf("unknown criterion %q", criterion)
	}

	return preds, nil
}

func warnZeroVariance(role, passage string, set datatypes.PerturbationSet) {
	slog.Warn("perturbation scores have zero variance, flooring std to 1",
		"role", role,
		"distinct_perturbations", set.Distinct(),
		"n_perturbations", len(set),
		"passage_prefix", passagePrefix(passage),
	)
}

func passagePrefix(s string) string {
	const n = 80
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
