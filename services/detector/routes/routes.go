// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/Curvatext/services/detector/handlers"
	"github.com/AleutianAI/Curvatext/services/detector/telemetry"
)

// SetupRoutes registers the detection API on the router. The metrics
// endpoint is only registered when telemetry has been initialized with the
// prometheus exporter.
func SetupRoutes(router *gin.Engine, svc *handlers.Service) {
	router.GET("/health", handlers.HealthCheck)

	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/detect", handlers.HandleDetect(svc))
		v1.POST("/detect/batch", handlers.HandleDetectBatch(svc))
		v1.POST("/perturb", handlers.HandlePerturb(svc))
		v1.POST("/score", handlers.HandleScore(svc))
	}
}
