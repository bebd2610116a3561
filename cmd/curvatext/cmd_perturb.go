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
	"github.com/AleutianAI/Curvatext/services/detector/perturb"
)

func runPerturb(cmd *cobra.Command, args []string) {
	logger := initLogging("cli")
	defer logger.Close()

	text, err := readTextArg(args[0])
	if err != nil {
		slog.Error("Failed to read passage", "error", err)
		return
	}

	// The infill sidecar address comes from INFILL_SERVICE_URL_BASE when
	// no explicit base URL is given.
	infill, err := perturb.NewHTTPInfillClient("", 256)
	if err != nil {
		slog.Error("Failed to create infill client", "error", err)
		return
	}

	perturber := perturb.NewPerturber(infill)
	hp := datatypes.Hyperparameters{
		NPerturbations:      nPerturbations,
		SpanLength:          spanLength,
		PerturbPct:          perturbPct,
		NPerturbationRounds: 1,
	}

	set, err := perturber.Perturb(context.Background(), text, hp)
	if err != nil {
		slog.Error("Perturbation failed", "error", err)
		return
	}

	if stdoutIsTerminal() {
		printBanner(fmt.Sprintf("Perturbed variants (%d distinct of %d)", set.Distinct(), len(set)))
		for i, variant := range set {
			fmt.Printf("%d: %s\n\n", i+1, variant)
		}
	} else {
		_ = outputJSON(set)
	}
}
