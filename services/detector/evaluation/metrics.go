// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package evaluation

import (
	"sort"

	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
)

// scoredLabel pairs a detection score with its ground-truth class.
type scoredLabel struct {
	score    float64
	positive bool
}

// rankScores merges the two populations into a single threshold sweep:
// scores sorted descending, with ties kept in one group so tied positives
// and negatives advance the curve together.
func rankScores(real, samples []float64) []scoredLabel {
	labeled := make([]scoredLabel, 0, len(real)+len(samples))
	for _, s := range real {
		labeled = append(labeled, scoredLabel{score: s})
	}
	for _, s := range samples {
		labeled = append(labeled, scoredLabel{score: s, positive: true})
	}
	sort.SliceStable(labeled, func(i, j int) bool {
		return labeled[i].score > labeled[j].score
	})
	return labeled
}

// ROCCurve computes the receiver-operating-characteristic curve treating
// samples as the positive class, sweeping the detection score as the
// decision threshold from high to low.
func ROCCurve(real, samples []float64) datatypes.ROCMetrics {
	if len(real) == 0 || len(samples) == 0 {
		return datatypes.ROCMetrics{}
	}
	labeled := rankScores(real, samples)
	nPos := float64(len(samples))
	nNeg := float64(len(real))

	fpr := []float64{0}
	tpr := []float64{0}
	var tp, fp float64
	for i := 0; i < len(labeled); {
		j := i
		for j < len(labeled) && labeled[j].score == labeled[i].score {
			if labeled[j].positive {
				tp++
			} else {
				fp++
			}
			j++
		}
		fpr = append(fpr, fp/nNeg)
		tpr = append(tpr, tp/nPos)
		i = j
	}
	return datatypes.ROCMetrics{FPR: fpr, TPR: tpr, AUC: trapezoid(fpr, tpr)}
}

// PRCurve computes the precision-recall curve treating samples as the
// positive class. The curve starts at (recall 0, precision 1) by
// convention so a perfectly separable population integrates to 1.
func PRCurve(real, samples []float64) datatypes.PRMetrics {
	if len(real) == 0 || len(samples) == 0 {
		return datatypes.PRMetrics{}
	}
	labeled := rankScores(real, samples)
	nPos := float64(len(samples))

	recall := []float64{0}
	precision := []float64{1}
	var tp, fp float64
	for i := 0; i < len(labeled); {
		j := i
		for j < len(labeled) && labeled[j].score == labeled[i].score {
			if labeled[j].positive {
				tp++
			} else {
				fp++
			}
			j++
		}
		recall = append(recall, tp/nPos)
		precision = append(precision, tp/(tp+fp))
		i = j
	}
	return datatypes.PRMetrics{Precision: precision, Recall: recall, AUC: trapezoid(recall, precision)}
}

// trapezoid integrates ys over xs. The xs must be non-decreasing, which
// both curve sweeps guarantee.
func trapezoid(xs, ys []float64) float64 {
	var area float64
	for i := 1; i < len(xs); i++ {
		area += (xs[i] - xs[i-1]) * (ys[i] + ys[i-1]) / 2
	}
	return area
}
