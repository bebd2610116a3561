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

import "math"

// Mean of xs. Zero for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// FlooredStd returns the sample standard deviation of xs, floored to 1 when
// fewer than two elements exist or the variance is zero. The z-score
// criterion divides by this value, so a degenerate population must never
// yield zero here; stored records therefore always carry a std of at least
// 1 and the z-score degrades to the raw difference for them.
func FlooredStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 1
	}
	m := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(xs)-1))
	if std == 0 {
		return 1
	}
	return std
}
