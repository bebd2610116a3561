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
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Curvatext/services/detector/results"
)

func runExport(cmd *cobra.Command, args []string) {
	logger := initLogging("cli")
	defer logger.Close()

	sink, err := results.NewInfluxSink(results.InfluxConfigFromEnv())
	if err != nil {
		slog.Error("InfluxDB not configured, set INFLUXDB_URL, INFLUXDB_TOKEN, INFLUXDB_ORG and INFLUXDB_BUCKET", "error", err)
		return
	}
	defer sink.Close()

	ctx := context.Background()
	exported := 0
	for _, path := range args {
		outcome, err := results.LoadOutcome(path)
		if err != nil {
			slog.Error("Failed to load outcome", "path", path, "error", err)
			continue
		}
		// The dataset name is the leading segment of the outcome name,
		// e.g. "xsum" from "xsum_difference_5_0.15".
		dataset := outcome.Name
		if idx := strings.Index(dataset, "_"); idx > 0 {
			dataset = dataset[:idx]
		}
		if err := sink.WriteOutcome(ctx, dataset, outcome); err != nil {
			slog.Error("Failed to export outcome", "path", path, "error", err)
			continue
		}
		exported++
	}

	if stdoutIsTerminal() {
		fmt.Printf("Exported %d of %d outcomes\n", exported, len(args))
	}
}
