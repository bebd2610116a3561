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
	"log/slog"

	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
	"github.com/google/uuid"
)

// Classify converts scored records into a full experiment outcome for one
// criterion: per-population predictions, ROC and PR curves, and the sweep
// loss (1 - PR AUC).
//
// Deterministic given identical inputs except for the generated run ID.
func Classify(records []datatypes.ResultRecord, criterion Criterion, dataset string, hp datatypes.Hyperparameters) (datatypes.ExperimentOutcome, error) {
	preds, err := Predict(records, criterion)
	if err != nil {
		return datatypes.ExperimentOutcome{}, err
	}

	roc := ROCCurve(preds.Real, preds.Samples)
	pr := PRCurve(preds.Real, preds.Samples)

	outcome := datatypes.ExperimentOutcome{
		Name:        datatypes.OutcomeName(dataset, string(criterion), hp),
		RunID:       uuid.NewString(),
		Criterion:   string(criterion),
		Info:        hp,
		Predictions: preds,
		RawResults:  records,
		ROC:         roc,
		PR:          pr,
		Loss:        1 - pr.AUC,
	}

	slog.Info("experiment classified",
		"name", outcome.Name,
		"run_id", outcome.RunID,
		"roc_auc", roc.AUC,
		"pr_auc", pr.AUC,
		"records", len(records),
	)
	return outcome, nil
}
