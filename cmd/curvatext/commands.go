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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	scenarioPath   string
	outputDir      string
	cacheDir       string
	seedOverride   int64
	noCache        bool
	exportInflux   bool
	servePort      string
	scoreBackend   string
	scoreModel     string
	scoreBaseURL   string
	nPerturbations int
	spanLength     int
	perturbPct     float64
	jsonLogs       bool
	verboseLogs    bool

	rootCmd = &cobra.Command{
		Use:   "curvatext",
		Short: "A cli for detecting machine-generated text via perturbation curvature",
		Long: `Curvatext measures how a passage's likelihood under a reference model
				changes when the passage is lightly rewritten. Machine-generated text
				sits near a likelihood peak, so perturbing it drops the likelihood
				more than it does for human text.`,
	}

	// --- Experiments ---
	detectCmd = &cobra.Command{
		Use:   "detect",
		Short: "Run a full detection experiment from a scenario file",
		Run:   runDetect, // Defined in cmd_detect.go
	}

	// --- Single-passage utilities ---
	perturbCmd = &cobra.Command{
		Use:   "perturb [text or @file]",
		Short: "Show the perturbed variants the infill model produces for a passage",
		Args:  cobra.ExactArgs(1),
		Run:   runPerturb, // Defined in cmd_perturb.go
	}
	scoreCmd = &cobra.Command{
		Use:   "score [text or @file]",
		Short: "Print the mean per-token log-likelihood of a passage",
		Args:  cobra.ExactArgs(1),
		Run:   runScore, // Defined in cmd_score.go
	}

	// --- Serving ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the detection HTTP API",
		Run:   runServe, // Defined in cmd_serve.go
	}

	// --- Results ---
	exportCmd = &cobra.Command{
		Use:   "export [outcome.json...]",
		Short: "Export saved experiment outcomes to InfluxDB",
		Args:  cobra.MinimumNArgs(1),
		Run:   runExport, // Defined in cmd_export.go
	}

	// --- Dataset preparation ---
	datasetCmd = &cobra.Command{
		Use:   "dataset",
		Short: "Prepare passage-pair datasets",
	}
	datasetMergeCmd = &cobra.Command{
		Use:   "merge [human.csv] [sampled.csv] [out.csv]",
		Short: "Merge a human-text CSV and a model-text CSV into a paired dataset",
		Args:  cobra.ExactArgs(3),
		Run:   runDatasetMerge, // Defined in cmd_dataset.go
	}
	datasetStripCmd = &cobra.Command{
		Use:   "strip [file.csv] [column] [message]",
		Short: "Remove a leading instruction message from every row of a column",
		Args:  cobra.ExactArgs(3),
		Run:   runDatasetStrip, // Defined in cmd_dataset.go
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verboseLogs, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().StringVarP(&scenarioPath, "config", "c", "", "Scenario YAML file (required)")
	detectCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Override the scenario's output directory")
	detectCmd.Flags().Int64Var(&seedOverride, "seed", 0, "Override the scenario's mask-selection seed")
	detectCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Override the scenario's perturbation cache directory")
	detectCmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the perturbation cache even when the scenario enables it")
	detectCmd.Flags().BoolVar(&exportInflux, "export-influx", false, "Also export outcomes to InfluxDB (reads INFLUXDB_* env vars)")
	_ = detectCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(perturbCmd)
	perturbCmd.Flags().IntVarP(&nPerturbations, "n", "n", 5, "Number of perturbed variants")
	perturbCmd.Flags().IntVar(&spanLength, "span", 2, "Words per masked span")
	perturbCmd.Flags().Float64Var(&perturbPct, "pct", 0.15, "Fraction of words to mask")

	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().StringVar(&scoreBackend, "backend", "local", "Scoring backend: 'openai' or 'local'")
	scoreCmd.Flags().StringVar(&scoreModel, "model", "", "Reference model identifier (openai backend)")
	scoreCmd.Flags().StringVar(&scoreBaseURL, "base-url", "", "Scoring sidecar base URL (local backend)")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&scenarioPath, "config", "c", "", "Scenario YAML file providing the backends (required)")
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Listen port (default $CURVATEXT_PORT or 12400)")
	_ = serveCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(exportCmd)

	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetMergeCmd)
	datasetMergeCmd.Flags().StringSlice("human-columns", []string{"text"}, "Columns concatenated to form the human passage")
	datasetMergeCmd.Flags().StringSlice("sampled-columns", []string{"text"}, "Columns concatenated to form the sampled passage")
	datasetCmd.AddCommand(datasetStripCmd)
}
