// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Curvatext/pkg/ux"
	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
	"github.com/AleutianAI/Curvatext/services/detector/pipeline"
	"github.com/AleutianAI/Curvatext/services/detector/results"
	"github.com/AleutianAI/Curvatext/services/detector/storage/perturbcache"
)

func runDetect(cmd *cobra.Command, _ []string) {
	logger := initLogging("cli")
	defer logger.Close()

	// 1. Read and parse the scenario file
	scenario, err := datatypes.LoadScenario(scenarioPath)
	if err != nil {
		slog.Error("Failed to load scenario", "path", scenarioPath, "error", err)
		return
	}

	// 2. Apply CLI overrides
	if outputDir != "" {
		scenario.Run.OutputDir = outputDir
	}
	if seedOverride != 0 {
		scenario.Run.Seed = seedOverride
	}
	if cacheDir != "" {
		scenario.Run.CacheDir = cacheDir
	}
	if noCache {
		scenario.Run.CacheDir = ""
	}
	if scenario.Run.OutputDir == "" {
		scenario.Run.OutputDir = "results"
	}

	printBanner(fmt.Sprintf("Detection Run: %s", scenario.Metadata.ID))
	if stdoutIsTerminal() {
		fmt.Printf("   Dataset:        %s (%s)\n", scenario.Dataset.Name, scenario.Dataset.File)
		fmt.Printf("   Backend:        %s\n", scenario.Scoring.Backend)
		fmt.Printf("   Perturbations:  n=%d span=%d pct=%g\n",
			scenario.Perturbation.NPerturbations,
			scenario.Perturbation.SpanLength,
			scenario.Perturbation.PerturbPct)
		fmt.Printf("   Criteria:       %v\n", scenario.Run.Criteria)
	}

	// 3. Optional perturbation cache
	var runnerOpts []pipeline.RunnerOption
	if scenario.Run.CacheDir != "" {
		store, err := perturbcache.Open(perturbcache.DefaultConfig(scenario.Run.CacheDir))
		if err != nil {
			slog.Error("Failed to open perturbation cache", "dir", scenario.Run.CacheDir, "error", err)
			return
		}
		defer store.Close()
		runnerOpts = append(runnerOpts, pipeline.WithCache(store))
	}

	// 4. Run the experiment
	runner, err := pipeline.NewRunner(scenario, runnerOpts...)
	if err != nil {
		slog.Error("Failed to build experiment runner", "error", err)
		return
	}

	ctx := context.Background()
	var spinner *ux.Spinner
	if stdoutIsTerminal() {
		spinner = ux.NewSpinner(fmt.Sprintf("Running %s experiment...", scenario.Dataset.Name))
		spinner.Start()
	}
	outcomes, err := runner.Run(ctx)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		slog.Error("Experiment failed", "error", err)
		return
	}

	// 5. Persist outcomes. Remote runs fold their completion options into
	// the run directory name, local runs do not.
	var opts *datatypes.CompletionOptions
	if scenario.Scoring.Backend == "openai" {
		opts = &scenario.Scoring.Options
	}
	dir, err := results.SaveOutcomes(scenario.Run.OutputDir, scenario.Perturbation, opts, outcomes)
	if err != nil {
		slog.Error("Failed to save outcomes", "error", err)
		return
	}

	// 6. Optional InfluxDB export
	if exportInflux {
		sink, err := results.NewInfluxSink(results.InfluxConfigFromEnv())
		if err != nil {
			slog.Error("InfluxDB export skipped", "error", err)
		} else {
			defer sink.Close()
			for _, outcome := range outcomes {
				if err := sink.WriteOutcome(ctx, scenario.Dataset.Name, outcome); err != nil {
					slog.Error("Failed to export outcome", "experiment", outcome.Name, "error", err)
				}
			}
		}
	}

	// 7. Summary
	if stdoutIsTerminal() {
		fmt.Printf("\nResults saved to %s\n", dir)
		for _, outcome := range outcomes {
			fmt.Printf("   %-40s roc_auc=%.4f pr_auc=%.4f loss=%.4f\n",
				outcome.Name, outcome.ROC.AUC, outcome.PR.AUC, outcome.Loss)
		}
		fmt.Printf("   Tokens used: %d\n", runner.Usage().Total())
	} else {
		_ = outputJSON(outcomes)
	}
}
