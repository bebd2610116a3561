// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics contains pre-defined metrics for the Curvatext detector.
//
// All metrics use the "curvatext_" prefix for consistent naming.
// Safe for concurrent use after creation.
type Metrics struct {
	// ScoreRequestsTotal counts likelihood requests by operation and status.
	ScoreRequestsTotal metric.Int64Counter

	// ScoreRequestDuration records likelihood request duration in seconds.
	ScoreRequestDuration metric.Float64Histogram

	// TokensUsedTotal counts tokens consumed by the remote backend.
	TokensUsedTotal metric.Int64Counter

	// PerturbationRoundsTotal counts mask+infill rounds by outcome.
	PerturbationRoundsTotal metric.Int64Counter

	// PerturbationFallbacksTotal counts variants that fell back to the
	// unmasked passage after exhausting their rounds.
	PerturbationFallbacksTotal metric.Int64Counter

	// RecordsProcessedTotal counts fully aggregated result records.
	RecordsProcessedTotal metric.Int64Counter

	// RecordFailuresTotal counts records discarded by scoring failures.
	RecordFailuresTotal metric.Int64Counter

	// ErrorsTotal counts errors by component.
	ErrorsTotal metric.Int64Counter
}

// NewMetrics creates a Metrics instance with all instruments registered on
// the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.ScoreRequestsTotal, err = meter.Int64Counter(
		"curvatext_score_requests_total",
		metric.WithDescription("Total likelihood scoring requests"),
	); err != nil {
		return nil, fmt.Errorf("create score_requests_total: %w", err)
	}

	if m.ScoreRequestDuration, err = meter.Float64Histogram(
		"curvatext_score_request_duration_seconds",
		metric.WithDescription("Likelihood scoring request duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("create score_request_duration: %w", err)
	}

	if m.TokensUsedTotal, err = meter.Int64Counter(
		"curvatext_tokens_used_total",
		metric.WithDescription("Tokens consumed by the remote scoring backend"),
	); err != nil {
		return nil, fmt.Errorf("create tokens_used_total: %w", err)
	}

	if m.PerturbationRoundsTotal, err = meter.Int64Counter(
		"curvatext_perturbation_rounds_total",
		metric.WithDescription("Mask and infill rounds attempted"),
	); err != nil {
		return nil, fmt.Errorf("create perturbation_rounds_total: %w", err)
	}

	if m.PerturbationFallbacksTotal, err = meter.Int64Counter(
		"curvatext_perturbation_fallbacks_total",
		metric.WithDescription("Variants that fell back to the unmasked passage"),
	); err != nil {
		return nil, fmt.Errorf("create perturbation_fallbacks_total: %w", err)
	}

	if m.RecordsProcessedTotal, err = meter.Int64Counter(
		"curvatext_records_processed_total",
		metric.WithDescription("Result records aggregated successfully"),
	); err != nil {
		return nil, fmt.Errorf("create records_processed_total: %w", err)
	}

	if m.RecordFailuresTotal, err = meter.Int64Counter(
		"curvatext_record_failures_total",
		metric.WithDescription("Result records discarded by scoring failures"),
	); err != nil {
		return nil, fmt.Errorf("create record_failures_total: %w", err)
	}

	if m.ErrorsTotal, err = meter.Int64Counter(
		"curvatext_errors_total",
		metric.WithDescription("Total errors by component"),
	); err != nil {
		return nil, fmt.Errorf("create errors_total: %w", err)
	}

	return m, nil
}

// RecordProcessed increments the processed-records counter.
func (m *Metrics) RecordProcessed(ctx context.Context) {
	m.RecordsProcessedTotal.Add(ctx, 1)
}

// RecordFailure increments the failed-records counter.
func (m *Metrics) RecordFailure(ctx context.Context) {
	m.RecordFailuresTotal.Add(ctx, 1)
}

// RecordTokens adds to the token-usage counter.
func (m *Metrics) RecordTokens(ctx context.Context, tokens int64) {
	m.TokensUsedTotal.Add(ctx, tokens)
}

// RecordScoreRequest counts one likelihood request by operation and status.
func (m *Metrics) RecordScoreRequest(ctx context.Context, op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ScoreRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("status", status),
	))
}

// RecordPerturbationRound counts one mask+infill round by outcome.
func (m *Metrics) RecordPerturbationRound(ctx context.Context, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.PerturbationRoundsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordPerturbationFallback counts variants that gave up on infill and
// reused the unmasked passage.
func (m *Metrics) RecordPerturbationFallback(ctx context.Context, n int64) {
	m.PerturbationFallbacksTotal.Add(ctx, n)
}

// RecordError increments the error counter for a component.
func (m *Metrics) RecordError(ctx context.Context, component string) {
	m.ErrorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", component),
	))
}
