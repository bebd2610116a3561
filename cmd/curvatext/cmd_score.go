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

	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
	"github.com/AleutianAI/Curvatext/services/detector/scoring"
)

func runScore(cmd *cobra.Command, args []string) {
	logger := initLogging("cli")
	defer logger.Close()

	text, err := readTextArg(args[0])
	if err != nil {
		slog.Error("Failed to read passage", "error", err)
		return
	}

	var scorer scoring.Scorer
	switch scoreBackend {
	case "openai":
		scorer, err = scoring.NewOpenAIScorer(scoring.OpenAIScorerConfig{
			Model:   scoreModel,
			Options: datatypes.DefaultCompletionOptions(),
		})
	case "local":
		scorer, err = scoring.NewLocalScorer(scoreBaseURL)
	default:
		slog.Error("Unknown backend, must be 'openai' or 'local'", "backend", scoreBackend)
		return
	}
	if err != nil {
		slog.Error("Failed to create scorer", "backend", scoreBackend, "error", err)
		return
	}

	ll, err := scorer.ScoreText(context.Background(), text)
	if err != nil {
		slog.Error("Scoring failed", "error", err)
		return
	}

	if stdoutIsTerminal() {
		fmt.Printf("mean per-token log-likelihood: %.6f\n", ll)
	} else {
		fmt.Printf("%.6f\n", ll)
	}
}
