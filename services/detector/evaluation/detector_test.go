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

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
)

// separableRecords gives machine passages a much larger likelihood drop
// than human passages, so every criterion separates the populations.
func separableRecords() []datatypes.ResultRecord {
	return []datatypes.ResultRecord{
		{
			OriginalLL: -2.0, PerturbedOriginalLL: -2.1, PerturbedOriginalLLStd: 1,
			SampledLL: -1.0, PerturbedSampledLL: -4.0, PerturbedSampledLLStd: 1,
		},
		{
			OriginalLL: -3.0, PerturbedOriginalLL: -3.2, PerturbedOriginalLLStd: 1,
			SampledLL: -1.5, PerturbedSampledLL: -5.0, PerturbedSampledLLStd: 1,
		},
	}
}

func TestClassify_SeparablePopulations(t *testing.T) {
	hp := datatypes.Hyperparameters{NPerturbations: 5, SpanLength: 2, PerturbPct: 0.15, NPerturbationRounds: 1}

	outcome, err := Classify(separableRecords(), CriterionDifference, "xsum", hp)
	require.NoError(t, err)

	assert.Equal(t, "xsum_difference_5_0.15", outcome.Name)
	assert.Equal(t, "difference", outcome.Criterion)
	assert.Equal(t, hp, outcome.Info)
	assert.Len(t, outcome.RawResults, 2)
	assert.Len(t, outcome.Predictions.Real, 2)
	assert.Len(t, outcome.Predictions.Samples, 2)

	assert.InDelta(t, 1.0, outcome.ROC.AUC, 1e-9)
	assert.InDelta(t, 1.0, outcome.PR.AUC, 1e-9)
	assert.InDelta(t, 0.0, outcome.Loss, 1e-9)
}

func TestClassify_LossIsOneMinusPRAUC(t *testing.T) {
	hp := datatypes.Hyperparameters{NPerturbations: 3, SpanLength: 2, PerturbPct: 0.3, NPerturbationRounds: 1}
	records := []datatypes.ResultRecord{
		// Inverted: the human passage loses more likelihood.
		{
			OriginalLL: -1.0, PerturbedOriginalLL: -4.0, PerturbedOriginalLLStd: 1,
			SampledLL: -2.0, PerturbedSampledLL: -2.1, PerturbedSampledLLStd: 1,
		},
	}

	outcome, err := Classify(records, CriterionZScore, "writing", hp)
	require.NoError(t, err)
	assert.InDelta(t, 1-outcome.PR.AUC, outcome.Loss, 1e-12)
}

func TestClassify_RunIDsAreUnique(t *testing.T) {
	hp := datatypes.Hyperparameters{NPerturbations: 5, SpanLength: 2, PerturbPct: 0.15, NPerturbationRounds: 1}

	a, err := Classify(separableRecords(), CriterionDifference, "xsum", hp)
	require.NoError(t, err)
	b, err := Classify(separableRecords(), CriterionDifference, "xsum", hp)
	require.NoError(t, err)

	_, err = uuid.Parse(a.RunID)
	assert.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)

	// Everything except the run ID is reproducible.
	a.RunID, b.RunID = "", ""
	assert.Equal(t, a, b)
}

func TestClassify_UnknownCriterion(t *testing.T) {
	hp := datatypes.Hyperparameters{NPerturbations: 5, SpanLength: 2, PerturbPct: 0.15, NPerturbationRounds: 1}
	_, err := Classify(separableRecords(), Criterion("nope"), "xsum", hp)
	assert.Error(t, err)
}
