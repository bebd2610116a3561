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
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfluxConfigFromEnv(t *testing.T) {
	t.Setenv("INFLUXDB_URL", "http://influx.local:8086")
	t.Setenv("INFLUXDB_TOKEN", "tok")
	t.Setenv("INFLUXDB_ORG", "aleutian")
	t.Setenv("INFLUXDB_BUCKET", "curvatext")

	cfg := InfluxConfigFromEnv()
	assert.Equal(t, "http://influx.local:8086", cfg.URL)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, "aleutian", cfg.Org)
	assert.Equal(t, "curvatext", cfg.Bucket)
}

func TestNewInfluxSink_RequiresAllFields(t *testing.T) {
	complete := InfluxConfig{URL: "http://x", Token: "t", Org: "o", Bucket: "b"}
	for name, mutate := range map[string]func(*InfluxConfig){
		"url":    func(c *InfluxConfig) { c.URL = "" },
		"token":  func(c *InfluxConfig) { c.Token = "" },
		"org":    func(c *InfluxConfig) { c.Org = "" },
		"bucket": func(c *InfluxConfig) { c.Bucket = "" },
	} {
		cfg := complete
		mutate(&cfg)
		_, err := NewInfluxSink(cfg)
		assert.Error(t, err, "missing %s should be rejected", name)
	}

	sink, err := NewInfluxSink(complete)
	require.NoError(t, err)
	sink.Close()
}

func TestInfluxSink_WriteOutcome(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/write") {
			w.WriteHeader(http.StatusOK)
			return
		}
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sink, err := NewInfluxSink(InfluxConfig{URL: server.URL, Token: "t", Org: "o", Bucket: "b"})
	require.NoError(t, err)
	defer sink.Close()

	outcome := testOutcome("xsum_zscore_5_0.15", "zscore")
	require.NoError(t, sink.WriteOutcome(context.Background(), "xsum", outcome))

	assert.Contains(t, body, "detection_run")
	assert.Contains(t, body, "dataset=xsum")
	assert.Contains(t, body, "experiment=xsum_zscore_5_0.15")
	assert.Contains(t, body, "criterion=zscore")
	assert.Contains(t, body, "roc_auc=1")
	assert.Contains(t, body, "n_records=")
}

func TestInfluxSink_WriteOutcome_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"bucket not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	sink, err := NewInfluxSink(InfluxConfig{URL: server.URL, Token: "t", Org: "o", Bucket: "missing"})
	require.NoError(t, err)
	defer sink.Close()

	err = sink.WriteOutcome(context.Background(), "xsum", testOutcome("x", "zscore"))
	assert.ErrorContains(t, err, "failed to write outcome to influxdb")
}
