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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
)

func TestParseCriterion(t *testing.T) {
	c, err := ParseCriterion("difference")
	require.NoError(t, err)
	assert.Equal(t, CriterionDifference, c)

	c, err = ParseCriterion("zscore")
	require.NoError(t, err)
	assert.Equal(t, CriterionZScore, c)

	_, err = ParseCriterion("mahalanobis")
	assert.Error(t, err)
}

func TestPredict_Difference(t *testing.T) {
	records := []datatypes.ResultRecord{{
		OriginalLL:          -2.0,
		SampledLL:           -1.0,
		PerturbedOriginalLL: -2.5,
		PerturbedSampledLL:  -3.0,
	}}

	preds, err := Predict(records, CriterionDifference)
	require.NoError(t, err)
	require.Len(t, preds.Real, 1)
	require.Len(t, preds.Samples, 1)

	assert.InDelta(t, 0.5, preds.Real[0], 1e-9)
	assert.InDelta(t, 2.0, preds.Samples[0], 1e-9)

	// The machine passage loses more likelihood under perturbation, so it
	// must score higher.
	assert.Greater(t, preds.Samples[0], preds.Real[0])
}

func TestPredict_ZScore(t *testing.T) {
	records := []datatypes.ResultRecord{{
		OriginalLL:             -2.0,
		SampledLL:              -1.0,
		PerturbedOriginalLL:    -2.5,
		PerturbedSampledLL:     -3.0,
		PerturbedOriginalLLStd: 0.5,
		PerturbedSampledLLStd:  2.0,
	}}

	preds, err := Predict(records, CriterionZScore)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, preds.Real[0], 1e-9)    // 0.5 / 0.5
	assert.InDelta(t, 1.0, preds.Samples[0], 1e-9) // 2.0 / 2.0
}

func TestPredict_ZScore_ZeroStdFloorsToOne(t *testing.T) {
	// Identical perturbation scores give zero variance; the criterion
	// must not divide by zero and must degrade to the raw difference.
	records := []datatypes.ResultRecord{{
		Original:               "human text",
		Sampled:                "machine text",
		PerturbedOriginal:      datatypes.PerturbationSet{"same", "same"},
		PerturbedSampled:       datatypes.PerturbationSet{"same", "same"},
		OriginalLL:             -2.0,
		SampledLL:              -1.0,
		PerturbedOriginalLL:    -2.5,
		PerturbedSampledLL:     -3.0,
		PerturbedOriginalLLStd: 0,
		PerturbedSampledLLStd:  0,
	}}

	preds, err := Predict(records, CriterionZScore)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, preds.Real[0], 1e-9)
	assert.InDelta(t, 2.0, preds.Samples[0], 1e-9)
}

func TestPredict_UnknownCriterion(t *testing.T) {
	_, err := Predict(nil, Criterion("nope"))
	assert.Error(t, err)
}

func TestPredict_Deterministic(t *testing.T) {
	records := []datatypes.ResultRecord{
		{OriginalLL: -1, SampledLL: -2, PerturbedOriginalLL: -3, PerturbedSampledLL: -4,
			PerturbedOriginalLLStd: 1, PerturbedSampledLLStd: 1},
		{OriginalLL: -5, SampledLL: -6, PerturbedOriginalLL: -7, PerturbedSampledLL: -8,
			PerturbedOriginalLLStd: 2, PerturbedSampledLLStd: 2},
	}
	for _, criterion := range []Criterion{CriterionDifference, CriterionZScore} {
		a, err := Predict(records, criterion)
		require.NoError(t, err)
		b, err := Predict(records, criterion)
		require.NoError(t, err)
		assert.Equal(t, a, b, "criterion %s", criterion)
	}
}
