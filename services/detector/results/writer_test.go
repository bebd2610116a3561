// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package results

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
)

var testHP = datatypes.Hyperparameters{
	NPerturbations:      5,
	SpanLength:          2,
	PerturbPct:          0.15,
	NPerturbationRounds: 1,
}

func testOutcome(name, criterion string) datatypes.ExperimentOutcome {
	return datatypes.ExperimentOutcome{
		Name:      name,
		RunID:     "run-" + name,
		Criterion: criterion,
		Info:      testHP,
		Predictions: datatypes.Predictions{
			Real:    []float64{0.1, 0.2},
			Samples: []float64{0.8, 0.9},
		},
		ROC:  datatypes.ROCMetrics{FPR: []float64{0, 1}, TPR: []float64{1, 1}, AUC: 1},
		PR:   datatypes.PRMetrics{Precision: []float64{1, 1}, Recall: []float64{0, 1}, AUC: 1},
		Loss: 0,
	}
}

func TestRunDirName(t *testing.T) {
	assert.Equal(t, "n=5_s=2_p=0.15", RunDirName(testHP, nil),
		"local runs carry no remote suffix")

	opts := datatypes.DefaultCompletionOptions()
	assert.Equal(t, "n=5_s=2_p=0.15_openai_temp=0_choices=1", RunDirName(testHP, &opts),
		"remote echo runs still record their options")

	opts.Temperature = 0.7
	opts.N = 3
	assert.Equal(t, "n=5_s=2_p=0.15_openai_temp=0.7_choices=3", RunDirName(testHP, &opts))
}

func TestSaveOutcomes(t *testing.T) {
	base := t.TempDir()
	outcomes := []datatypes.ExperimentOutcome{
		testOutcome("xsum_zscore_5_0.15", "zscore"),
		testOutcome("xsum_difference_5_0.15", "difference"),
	}

	dir, err := SaveOutcomes(base, testHP, nil, outcomes)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "n=5_s=2_p=0.15"), dir)

	for _, o := range outcomes {
		assert.FileExists(t, filepath.Join(dir, o.Name+".json"))
	}

	f, err := os.Open(filepath.Join(dir, "summary.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"name", "run_id", "criterion", "n_perturbations", "perturb_pct", "roc_auc", "pr_auc", "loss"}, rows[0])
	assert.Equal(t, "xsum_zscore_5_0.15", rows[1][0])
	assert.Equal(t, "zscore", rows[1][2])
	assert.Equal(t, "5", rows[1][3])
	assert.Equal(t, "0.15", rows[1][4])
	assert.Equal(t, "1", rows[1][5])
}

func TestSaveThenLoadOutcome(t *testing.T) {
	base := t.TempDir()
	original := testOutcome("writing_zscore_5_0.15", "zscore")

	dir, err := SaveOutcomes(base, testHP, nil, []datatypes.ExperimentOutcome{original})
	require.NoError(t, err)

	loaded, err := LoadOutcome(filepath.Join(dir, original.Name+".json"))
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestLoadOutcome_Errors(t *testing.T) {
	_, err := LoadOutcome(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorContains(t, err, "failed to read outcome file")

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err = LoadOutcome(path)
	assert.ErrorContains(t, err, "failed to decode outcome file")
}

func TestSaveOutcomes_OverwritesExistingRun(t *testing.T) {
	base := t.TempDir()
	outcome := testOutcome("xsum_zscore_5_0.15", "zscore")

	_, err := SaveOutcomes(base, testHP, nil, []datatypes.ExperimentOutcome{outcome})
	require.NoError(t, err)

	outcome.Loss = 0.5
	dir, err := SaveOutcomes(base, testHP, nil, []datatypes.ExperimentOutcome{outcome})
	require.NoError(t, err)

	loaded, err := LoadOutcome(filepath.Join(dir, outcome.Name+".json"))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, loaded.Loss, 1e-12)
}
