// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package results

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxConfig holds connection settings for the metrics sink.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxConfigFromEnv reads connection settings from INFLUXDB_URL,
// INFLUXDB_TOKEN, INFLUXDB_ORG and INFLUXDB_BUCKET.
func InfluxConfigFromEnv() InfluxConfig {
	return InfluxConfig{
		URL:    os.Getenv("INFLUXDB_URL"),
		Token:  os.Getenv("INFLUXDB_TOKEN"),
		Org:    os.Getenv("INFLUXDB_ORG"),
		Bucket: os.Getenv("INFLUXDB_BUCKET"),
	}
}

// InfluxSink exports experiment outcomes to InfluxDB so hyperparameter
// sweeps can be compared on a dashboard.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
}

// NewInfluxSink creates a sink from the given configuration. Returns an
// error if any required field is missing.
func NewInfluxSink(cfg InfluxConfig) (*InfluxSink, error) {
	if cfg.URL == "" || cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influxdb sink requires url, token, org and bucket")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		bucket:   cfg.Bucket,
	}, nil
}

// WriteOutcome writes one point per outcome under the "detection_run"
// measurement, tagged by experiment name and criterion.
func (s *InfluxSink) WriteOutcome(ctx context.Context, dataset string, outcome datatypes.ExperimentOutcome) error {
	point := influxdb2.NewPointWithMeasurement("detection_run").
		AddTag("dataset", dataset).
		AddTag("experiment", outcome.Name).
		AddTag("criterion", outcome.Criterion).
		AddTag("run_id", outcome.RunID).
		AddField("roc_auc", outcome.ROC.AUC).
		AddField("pr_auc", outcome.PR.AUC).
		AddField("loss", outcome.Loss).
		AddField("n_perturbations", outcome.Info.NPerturbations).
		AddField("span_length", outcome.Info.SpanLength).
		AddField("perturb_pct", outcome.Info.PerturbPct).
		AddField("n_records", len(outcome.RawResults)).
		SetTime(time.Now())

	if err := s.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("failed to write outcome to influxdb: %w", err)
	}
	slog.Info("exported outcome to influxdb", "experiment", outcome.Name, "bucket", s.bucket)
	return nil
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
