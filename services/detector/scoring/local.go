// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// LocalScorer scores texts against a device-resident model served by a local
// inference sidecar. The sidecar holds the model and tokenizer; this client
// only speaks its HTTP contract:
//
//	POST {base}/v1/score        {"text": "..."}
//	POST {base}/v1/score/batch  {"texts": ["...", ...]}
//
// Both return per-token logprobs which are reduced to mean per-token here.
// The sidecar serializes forward passes per device, so a whole batch in one
// request is the cheap way to score a perturbation set.
type LocalScorer struct {
	httpClient *http.Client
	baseURL    string
}

type localScorePayload struct {
	Text string `json:"text"`
}

type localScoreBatchPayload struct {
	Texts []string `json:"texts"`
}

type localScoreResp struct {
	Tokens        []string  `json:"tokens"`
	TokenLogprobs []float64 `json:"token_logprobs"`
}

type localScoreBatchResp struct {
	Results []localScoreResp `json:"results"`
}

// NewLocalScorer builds a client for the local scoring sidecar. The base URL
// comes from the argument or, when empty, SCORING_SERVICE_URL_BASE.
func NewLocalScorer(baseURL string) (*LocalScorer, error) {
	if baseURL == "" {
		baseURL = os.Getenv("SCORING_SERVICE_URL_BASE")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("SCORING_SERVICE_URL_BASE environment variable not set")
	}
	return &LocalScorer{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// ScoreText implements Scorer.
func (l *LocalScorer) ScoreText(ctx context.Context, text string) (float64, error) {
	var parsed localScoreResp
	if err := l.post(ctx, "/v1/score", localScorePayload{Text: text}, &parsed); err != nil {
		return 0, queryErr("local", "score", err)
	}
	ll, err := meanLogProb(parsed.TokenLogprobs)
	if err != nil {
		return 0, queryErr("local", "score", err)
	}
	return ll, nil
}

// ScoreBatch implements Scorer. One request scores the whole batch in a
// single forward pass on the sidecar.
func (l *LocalScorer) ScoreBatch(ctx context.Context, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var parsed localScoreBatchResp
	if err := l.post(ctx, "/v1/score/batch", localScoreBatchPayload{Texts: texts}, &parsed); err != nil {
		return nil, queryErr("local", "score_batch", err)
	}
	if len(parsed.Results) != len(texts) {
		return nil, queryErr("local", "score_batch", ErrBatchShape)
	}
	scores := make([]float64, len(texts))
	for i, res := range parsed.Results {
		ll, err := meanLogProb(res.TokenLogprobs)
		if err != nil {
			return nil, queryErr("local", "score_batch", err)
		}
		scores[i] = ll
	}
	return scores, nil
}

func (l *LocalScorer) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal the payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach scoring sidecar: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read sidecar response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sidecar returned status %d: %s", resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse sidecar response: %w", err)
	}
	return nil
}
