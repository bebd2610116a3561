// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package perturb

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

// InfillClient produces replacement text for masked placeholders.
//
// Implementations return the model's raw generation, which still contains
// the <extra_id_k> markers; fills are parsed out by the perturber so the
// placeholder-count validity check stays in one place.
type InfillClient interface {
	Infill(ctx context.Context, maskedText string, nMasks int) (string, error)
}

// HTTPInfillClient talks to a mask-filling sidecar hosting a seq2seq infill
// model (T5 family). Contract:
//
//	POST {base}/v1/infill  {"text": "... <extra_id_0> ...", "max_tokens": n}
//	-> {"completion": "<extra_id_0> fill <extra_id_1> ..."}
type HTTPInfillClient struct {
	httpClient *http.Client
	baseURL    string
	maxTokens  int
}

type infillPayload struct {
	Text      string `json:"text"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

type infillResp struct {
	Completion string `json:"completion"`
}

// NewHTTPInfillClient builds a client for the infill sidecar. The base URL
// comes from the argument or, when empty, INFILL_SERVICE_URL_BASE.
func NewHTTPInfillClient(baseURL string, maxTokens int) (*HTTPInfillClient, error) {
	if baseURL == "" {
		baseURL = os.Getenv("INFILL_SERVICE_URL_BASE")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("INFILL_SERVICE_URL_BASE environment variable not set")
	}
	return &HTTPInfillClient{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		maxTokens:  maxTokens,
	}, nil
}

// Infill implements InfillClient.
func (c *HTTPInfillClient) Infill(ctx context.Context, maskedText string, nMasks int) (string, error) {
	body, err := json.Marshal(infillPayload{Text: maskedText, MaxTokens: c.maxTokens})
	if err != nil {
		return "", fmt.Errorf("failed to marshal the payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/infill", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach infill sidecar: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read infill response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("infill sidecar returned status %d: %s", resp.StatusCode, string(respBody))
	}
	var parsed infillResp
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse infill response: %w", err)
	}
	return parsed.Completion, nil
}
