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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
)

// fakeCompletionServer mimics the completion endpoint in echo mode: every
// prompt token comes back with a fixed logprob, the first with null as the
// real API does, plus one generated token past the prompt that must be
// excluded from the likelihood.
func fakeCompletionServer(t *testing.T, perTokenLogProb float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt any  `json:"prompt"`
			Echo   bool `json:"echo"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.True(t, req.Echo, "scoring requests must set echo")

		var prompts []string
		switch p := req.Prompt.(type) {
		case string:
			prompts = []string{p}
		case []any:
			for _, v := range p {
				prompts = append(prompts, v.(string))
			}
		default:
			t.Fatalf("unexpected prompt type %T", req.Prompt)
		}

		choices := make([]map[string]any, 0, len(prompts))
		totalTokens := 0
		// Answer in reverse so index matching is actually exercised.
		for i := len(prompts) - 1; i >= 0; i-- {
			prompt := prompts[i]
			// Two prompt tokens: the whole prompt split at the midpoint.
			mid := len(prompt) / 2
			choices = append(choices, map[string]any{
				"index": i,
				"text":  prompt + " extra",
				"logprobs": map[string]any{
					"tokens":         []string{prompt[:mid], prompt[mid:], " extra"},
					"token_logprobs": []any{nil, perTokenLogProb, -9.0},
					"text_offset":    []int{0, mid, len(prompt)},
				},
			})
			totalTokens += 3
		}

		resp := map[string]any{
			"object":  "text_completion",
			"choices": choices,
			"usage":   map[string]int{"total_tokens": totalTokens},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestScorer(t *testing.T, baseURL string) *OpenAIScorer {
	t.Helper()
	scorer, err := NewOpenAIScorer(OpenAIScorerConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "davinci-002",
		Options: datatypes.DefaultCompletionOptions(),
	})
	require.NoError(t, err)
	return scorer
}

func TestOpenAIScorer_ScoreText(t *testing.T) {
	srv := fakeCompletionServer(t, -0.5)
	defer srv.Close()

	scorer := newTestScorer(t, srv.URL)
	ll, err := scorer.ScoreText(context.Background(), "the quick brown fox")
	require.NoError(t, err)

	// First token's null logprob is skipped and the generated token is cut
	// at the prompt boundary, leaving exactly one -0.5 token.
	assert.InDelta(t, -0.5, ll, 1e-9)
}

func TestOpenAIScorer_ScoreBatch_MatchesByIndex(t *testing.T) {
	srv := fakeCompletionServer(t, -1.25)
	defer srv.Close()

	scorer := newTestScorer(t, srv.URL)
	scores, err := scorer.ScoreBatch(context.Background(), []string{"first passage", "second passage", "third passage"})
	require.NoError(t, err)
	require.Len(t, scores, 3)
	for i, s := range scores {
		assert.InDelta(t, -1.25, s, 1e-9, "score %d", i)
	}
}

func TestOpenAIScorer_ScoreBatch_Empty(t *testing.T) {
	srv := fakeCompletionServer(t, -0.5)
	defer srv.Close()

	scorer := newTestScorer(t, srv.URL)
	scores, err := scorer.ScoreBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, scores)
}

func TestOpenAIScorer_UsageAccumulatesAcrossConcurrentCalls(t *testing.T) {
	srv := fakeCompletionServer(t, -0.5)
	defer srv.Close()

	usage := &UsageCounter{}
	scorer, err := NewOpenAIScorer(OpenAIScorerConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "davinci-002",
		Options: datatypes.DefaultCompletionOptions(),
		Usage:   usage,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := scorer.ScoreText(context.Background(), "some passage text")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// 3 tokens per call, 8 calls.
	assert.Equal(t, int64(24), usage.Total())
}

func TestOpenAIScorer_MissingLogProbs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"object": "text_completion",
			"choices": []map[string]any{
				{"index": 0, "text": "no logprobs here"},
			},
			"usage": map[string]int{"total_tokens": 2},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	scorer := newTestScorer(t, srv.URL)
	_, err := scorer.ScoreText(context.Background(), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingLogProbs)

	var qErr *QueryError
	require.ErrorAs(t, err, &qErr)
	assert.Equal(t, "openai", qErr.Backend)
}

func TestOpenAIScorer_MissingChoiceForPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Two choices for prompt 0, none for prompt 1.
		choice := map[string]any{
			"index": 0,
			"text":  "x",
			"logprobs": map[string]any{
				"tokens":         []string{"a", "b"},
				"token_logprobs": []any{nil, -0.5},
				"text_offset":    []int{0, 1},
			},
		}
		resp := map[string]any{
			"object":  "text_completion",
			"choices": []map[string]any{choice, choice},
			"usage":   map[string]int{"total_tokens": 4},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	scorer := newTestScorer(t, srv.URL)
	_, err := scorer.ScoreBatch(context.Background(), []string{"ab", "cd"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBatchShape)
}

func TestNewOpenAIScorer_RequiresModel(t *testing.T) {
	_, err := NewOpenAIScorer(OpenAIScorerConfig{APIKey: "k"})
	assert.Error(t, err)
}

func TestNewOpenAIScorer_ForcesEcho(t *testing.T) {
	opts := datatypes.DefaultCompletionOptions()
	opts.Echo = false
	scorer, err := NewOpenAIScorer(OpenAIScorerConfig{
		APIKey:  "k",
		Model:   "davinci-002",
		Options: opts,
	})
	require.NoError(t, err)
	assert.True(t, scorer.opts.Echo)
}

func TestMeanLogProb(t *testing.T) {
	ll, err := meanLogProb([]float64{-1, -2, -3})
	require.NoError(t, err)
	assert.InDelta(t, -2.0, ll, 1e-9)

	_, err = meanLogProb(nil)
	assert.ErrorIs(t, err, ErrNoTokens)
}
