// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scoring turns heterogeneous language-model backends into a single
// likelihood capability: score one text, score a batch. Two backends are
// provided, a remote completion API queried in echo mode and a local
// inference sidecar. Both reduce per-token log-probabilities to a mean so
// scores stay comparable across passage lengths.
package scoring

import "context"

// Scorer is the likelihood capability the detection pipeline depends on.
//
// Implementations must be safe for concurrent use; callers batch where the
// backend supports it. Scores are mean per-token log-probabilities. Failures
// surface as *QueryError and are never retried at this layer.
type Scorer interface {
	// ScoreText returns the mean per-token log-probability of text under
	// the backend's reference model.
	ScoreText(ctx context.Context, text string) (float64, error)

	// ScoreBatch scores texts in order. A single backend failure fails the
	// whole batch; partial results are never returned.
	ScoreBatch(ctx context.Context, texts []string) ([]float64, error)
}

// meanLogProb reduces per-token logprobs to a single scalar.
//
// The mean (not the sum) keeps values comparable across passage lengths:
// two passages with identical average token probability score identically
// regardless of how long they are.
func meanLogProb(logprobs []float64) (float64, error) {
	if len(logprobs) == 0 {
		return 0, ErrNoTokens
	}
	var sum float64
	for _, lp := range logprobs {
		sum += lp
	}
	return sum / float64(len(logprobs)), nil
}
