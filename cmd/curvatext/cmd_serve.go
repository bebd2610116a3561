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
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
	"github.com/AleutianAI/Curvatext/services/detector/handlers"
	"github.com/AleutianAI/Curvatext/services/detector/perturb"
	"github.com/AleutianAI/Curvatext/services/detector/routes"
	"github.com/AleutianAI/Curvatext/services/detector/scoring"
	"github.com/AleutianAI/Curvatext/services/detector/telemetry"
)

func runServe(cmd *cobra.Command, _ []string) {
	logger := initLogging("serve")
	defer logger.Close()

	port := servePort
	if port == "" {
		port = os.Getenv("CURVATEXT_PORT")
	}
	if port == "" {
		port = "12400"
	}

	scenario, err := datatypes.LoadScenario(scenarioPath)
	if err != nil {
		slog.Error("Failed to load scenario", "path", scenarioPath, "error", err)
		return
	}

	ctx := context.Background()
	shutdown, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		slog.Error("Failed to initialize telemetry", "error", err)
		return
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			slog.Error("Telemetry shutdown failed", "error", err)
		}
	}()

	metrics, err := telemetry.NewMetrics(otel.Meter("curvatext.detector"))
	if err != nil {
		slog.Error("Failed to create metrics", "error", err)
		return
	}

	scorer, err := buildServeScorer(scenario)
	if err != nil {
		slog.Error("Failed to create scoring backend", "error", err)
		return
	}

	infill, err := perturb.NewHTTPInfillClient(scenario.Infill.BaseURL, scenario.Infill.MaxTokens)
	if err != nil {
		slog.Error("Failed to create infill client", "error", err)
		return
	}

	svc := &handlers.Service{
		Perturber: perturb.NewPerturber(infill, perturb.WithMetrics(metrics)),
		Scorer:    scorer,
		Defaults:  scenario.Perturbation,
		Metrics:   metrics,
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("curvatext-detector"))
	routes.SetupRoutes(router, svc)

	slog.Info("Starting the detection server", "port", port)
	if err := router.Run(":" + port); err != nil {
		slog.Error("Server exited", "error", err)
	}
}

func buildServeScorer(scenario *datatypes.DetectionScenario) (scoring.Scorer, error) {
	if scenario.Scoring.Backend == "openai" {
		return scoring.NewOpenAIScorer(scoring.OpenAIScorerConfig{
			Model:             scenario.Scoring.Model,
			Options:           scenario.Scoring.Options,
			RequestsPerSecond: scenario.Scoring.RequestsPerSecond,
		})
	}
	return scoring.NewLocalScorer(scenario.Scoring.BaseURL)
}
