// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package results persists experiment outcomes: JSON files under a per-run
// directory named after the hyperparameters, plus an optional InfluxDB sink
// for dashboarding sweeps.
package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
)

// RunDirName derives the canonical output directory name for a run,
// e.g. "n=5_s=2_p=0.15" for a local backend or
// "n=5_s=2_p=0.15_openai_temp=0.7_choices=3" for a remote one. Callers
// pass opts only when the remote backend scored the run.
func RunDirName(hp datatypes.Hyperparameters, opts *datatypes.CompletionOptions) string {
	name := fmt.Sprintf("n=%d_s=%d_p=%g", hp.NPerturbations, hp.SpanLength, hp.PerturbPct)
	if opts != nil {
		name += fmt.Sprintf("_openai_temp=%g_choices=%d", opts.Temperature, opts.N)
	}
	return name
}

// SaveOutcomes writes each outcome as <name>.json under baseDir/<run dir>
// and a summary.csv ranking the outcomes by loss. Returns the run
// directory path.
func SaveOutcomes(baseDir string, hp datatypes.Hyperparameters, opts *datatypes.CompletionOptions, outcomes []datatypes.ExperimentOutcome) (string, error) {
	dir := filepath.Join(baseDir, RunDirName(hp, opts))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	for _, outcome := range outcomes {
		path := filepath.Join(dir, outcome.Name+".json")
		if err := writeJSON(path, outcome); err != nil {
			return "", err
		}
		slog.Info("saved experiment outcome",
			"name", outcome.Name,
			"path", path,
			"roc_auc", outcome.ROC.AUC,
			"pr_auc", outcome.PR.AUC)
	}

	if err := writeSummary(filepath.Join(dir, "summary.csv"), outcomes); err != nil {
		return "", err
	}
	return dir, nil
}

func writeJSON(path string, outcome datatypes.ExperimentOutcome) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create outcome file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome); err != nil {
		return fmt.Errorf("failed to encode outcome %q: %w", outcome.Name, err)
	}
	return nil
}

func writeSummary(path string, outcomes []datatypes.ExperimentOutcome) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"name", "run_id", "criterion", "n_perturbations", "perturb_pct", "roc_auc", "pr_auc", "loss"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write summary header: %w", err)
	}
	for _, o := range outcomes {
		row := []string{
			o.Name,
			o.RunID,
			o.Criterion,
			strconv.Itoa(o.Info.NPerturbations),
			strconv.FormatFloat(o.Info.PerturbPct, 'g', -1, 64),
			strconv.FormatFloat(o.ROC.AUC, 'g', -1, 64),
			strconv.FormatFloat(o.PR.AUC, 'g', -1, 64),
			strconv.FormatFloat(o.Loss, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush summary: %w", err)
	}
	return nil
}

// LoadOutcome reads a saved outcome back from disk.
func LoadOutcome(path string) (datatypes.ExperimentOutcome, error) {
	var outcome datatypes.ExperimentOutcome
	data, err := os.ReadFile(path)
	if err != nil {
		return outcome, fmt.Errorf("failed to read outcome file: %w", err)
	}
	if err := json.Unmarshal(data, &outcome); err != nil {
		return outcome, fmt.Errorf("failed to decode outcome file %q: %w", path, err)
	}
	return outcome, nil
}
