// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP API for on-demand detection: a
// single passage comes in, gets perturbed and scored, and a perturbation
// discrepancy comes back. Unlike the batch experiment pipeline there is no
// paired human passage, so the response carries raw discrepancy scores
// rather than a classification.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
	"github.com/AleutianAI/Curvatext/services/detector/perturb"
	"github.com/AleutianAI/Curvatext/services/detector/pipeline"
	"github.com/AleutianAI/Curvatext/services/detector/scoring"
	"github.com/AleutianAI/Curvatext/services/detector/telemetry"
)

// DetectRequest is the payload for single-passage detection. Perturbation
// knobs are optional; zeroes take the server defaults.
type DetectRequest struct {
	Text           string  `json:"text" binding:"required"`
	NPerturbations int     `json:"n_perturbations"`
	SpanLength     int     `json:"span_length"`
	PerturbPct     float64 `json:"perturb_pct"`
}

// DetectResponse carries the discrepancy scores for one passage. Higher
// values mean the passage is more likely machine-generated.
type DetectResponse struct {
	TextLL           float64 `json:"text_ll"`
	PerturbedLL      float64 `json:"perturbed_ll"`
	PerturbedLLStd   float64 `json:"perturbed_ll_std"`
	Difference       float64 `json:"difference"`
	ZScore           float64 `json:"z_score"`
	NPerturbations   int     `json:"n_perturbations"`
	ElapsedMillis    int64   `json:"elapsed_ms"`
	DistinctVariants int     `json:"distinct_variants"`
}

// DetectBatchRequest scores several passages in one call.
type DetectBatchRequest struct {
	Texts          []string `json:"texts" binding:"required,min=1"`
	NPerturbations int      `json:"n_perturbations"`
	SpanLength     int      `json:"span_length"`
	PerturbPct     float64  `json:"perturb_pct"`
}

// DetectBatchResponse is the per-passage result list, index-aligned with
// the request. A passage that failed has Error set and zeroed scores.
type DetectBatchResponse struct {
	Results []DetectBatchItem `json:"results"`
}

// DetectBatchItem is one entry of a batch response.
type DetectBatchItem struct {
	DetectResponse
	Error string `json:"error,omitempty"`
}

// Service bundles the dependencies the detection handlers need.
type Service struct {
	Perturber *perturb.Perturber
	Scorer    scoring.Scorer
	Defaults  datatypes.Hyperparameters
	Metrics   *telemetry.Metrics
}

func (s *Service) hyperparams(n, span int, pct float64) datatypes.Hyperparameters {
	hp := s.Defaults
	if n > 0 {
		hp.NPerturbations = n
	}
	if span > 0 {
		hp.SpanLength = span
	}
	if pct > 0 {
		hp.PerturbPct = pct
	}
	return hp
}

// detectOne runs the perturb-and-score loop for a single passage.
func (s *Service) detectOne(c *gin.Context, text string, hp datatypes.Hyperparameters) (DetectResponse, error) {
	start := time.Now()
	ctx := c.Request.Context()

	set, err := s.Perturber.Perturb(ctx, text, hp)
	if err != nil {
		return DetectResponse{}, err
	}

	textLL, err := s.Scorer.ScoreText(ctx, text)
	if s.Metrics != nil {
		s.Metrics.RecordScoreRequest(ctx, "score", err)
	}
	if err != nil {
		return DetectResponse{}, err
	}
	perturbedLL, err := s.Scorer.ScoreBatch(ctx, set)
	if s.Metrics != nil {
		s.Metrics.RecordScoreRequest(ctx, "score_batch", err)
	}
	if err != nil {
		return DetectResponse{}, err
	}

	meanLL := pipeline.Mean(perturbedLL)
	stdLL := pipeline.FlooredStd(perturbedLL)

	if s.Metrics != nil {
		s.Metrics.RecordProcessed(ctx)
		s.Metrics.ScoreRequestDuration.Record(ctx, time.Since(start).Seconds())
	}

	return DetectResponse{
		TextLL:           textLL,
		PerturbedLL:      meanLL,
		PerturbedLLStd:   stdLL,
		Difference:       textLL - meanLL,
		ZScore:           (textLL - meanLL) / stdLL,
		NPerturbations:   hp.NPerturbations,
		ElapsedMillis:    time.Since(start).Milliseconds(),
		DistinctVariants: set.Distinct(),
	}, nil
}

// HandleDetect scores one passage.
//
// POST /v1/detect
func HandleDetect(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DetectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}

		hp := svc.hyperparams(req.NPerturbations, req.SpanLength, req.PerturbPct)
		resp, err := svc.detectOne(c, req.Text, hp)
		if err != nil {
			slog.Error("detection failed", "error", err)
			if svc.Metrics != nil {
				svc.Metrics.RecordError(c.Request.Context(), "detect")
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// HandleDetectBatch scores several passages. Individual failures do not
// fail the call; each failed passage reports its own error.
//
// POST /v1/detect/batch
func HandleDetectBatch(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DetectBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}

		hp := svc.hyperparams(req.NPerturbations, req.SpanLength, req.PerturbPct)
		results := make([]DetectBatchItem, len(req.Texts))
		for i, text := range req.Texts {
			resp, err := svc.detectOne(c, text, hp)
			if err != nil {
				slog.Error("batch detection item failed", "index", i, "error", err)
				if svc.Metrics != nil {
					svc.Metrics.RecordError(c.Request.Context(), "detect_batch")
				}
				results[i] = DetectBatchItem{Error: err.Error()}
				continue
			}
			results[i] = DetectBatchItem{DetectResponse: resp}
		}
		c.JSON(http.StatusOK, DetectBatchResponse{Results: results})
	}
}

// PerturbRequest asks for the perturbed variants of a passage without
// scoring them. Useful for inspecting what the infill model produces.
type PerturbRequest struct {
	Text           string  `json:"text" binding:"required"`
	NPerturbations int     `json:"n_perturbations"`
	SpanLength     int     `json:"span_length"`
	PerturbPct     float64 `json:"perturb_pct"`
}

// HandlePerturb returns the perturbation set for a passage.
//
// POST /v1/perturb
func HandlePerturb(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PerturbRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}

		hp := svc.hyperparams(req.NPerturbations, req.SpanLength, req.PerturbPct)
		set, err := svc.Perturber.Perturb(c.Request.Context(), req.Text, hp)
		if err != nil {
			slog.Error("perturbation failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"variants": set, "distinct": set.Distinct()})
	}
}

// ScoreRequest asks for the mean per-token log-likelihood of a passage.
type ScoreRequest struct {
	Text string `json:"text" binding:"required"`
}

// HandleScore returns the raw likelihood of a passage under the scoring
// backend.
//
// POST /v1/score
func HandleScore(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ScoreRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}

		ll, err := svc.Scorer.ScoreText(c.Request.Context(), req.Text)
		if svc.Metrics != nil {
			svc.Metrics.RecordScoreRequest(c.Request.Context(), "score", err)
		}
		if err != nil {
			slog.Error("scoring failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"log_likelihood": ll})
	}
}
