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
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Curvatext/services/detector/dataset"
)

func runDatasetMerge(cmd *cobra.Command, args []string) {
	logger := initLogging("cli")
	defer logger.Close()

	humanPath, sampledPath, outPath := args[0], args[1], args[2]
	humanCols, _ := cmd.Flags().GetStringSlice("human-columns")
	sampledCols, _ := cmd.Flags().GetStringSlice("sampled-columns")

	n, err := dataset.MergeHumanSampled(humanPath, humanCols, sampledPath, sampledCols, outPath)
	if err != nil {
		slog.Error("Merge failed", "error", err)
		return
	}

	if stdoutIsTerminal() {
		fmt.Printf("Wrote %d passage pairs to %s\n", n, outPath)
	}
}

func runDatasetStrip(cmd *cobra.Command, args []string) {
	logger := initLogging("cli")
	defer logger.Close()

	path, col, msg := args[0], args[1], args[2]
	if err := dataset.StripText(path, col, msg); err != nil {
		slog.Error("Strip failed", "path", path, "error", err)
		return
	}

	if stdoutIsTerminal() {
		fmt.Printf("Stripped %q from column %q in %s\n", msg, col, path)
	}
}
