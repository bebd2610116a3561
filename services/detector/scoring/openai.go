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
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// OpenAIScorer scores texts against a hosted completion endpoint queried in
// echo mode: the prompt is returned with per-token logprobs and no new
// tokens are consumed for generation.
//
// Token usage is tracked on an explicit UsageCounter so concurrent scoring
// remains safe and cost reporting stays per-run rather than process-global.
type OpenAIScorer struct {
	client  *openai.Client
	model   string
	opts    datatypes.CompletionOptions
	usage   *UsageCounter
	limiter *rate.Limiter
}

// OpenAIScorerConfig configures an OpenAIScorer.
type OpenAIScorerConfig struct {
	// APIKey for the completion endpoint. Falls back to OPENAI_API_KEY.
	APIKey string

	// BaseURL overrides the API endpoint. Used in tests and for
	// OpenAI-compatible local gateways.
	BaseURL string

	// Model is the reference model identifier (e.g. "davinci-002").
	Model string

	// Options are the completion request knobs. Echo must be enabled for
	// scoring; NewOpenAIScorer forces it on.
	Options datatypes.CompletionOptions

	// RequestsPerSecond throttles outgoing calls. 0 disables throttling.
	RequestsPerSecond float64

	// Usage receives token counts. A fresh counter is created when nil.
	Usage *UsageCounter
}

// NewOpenAIScorer builds a scorer for the remote completion backend.
func NewOpenAIScorer(cfg OpenAIScorerConfig) (*OpenAIScorer, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai scorer requires a model identifier")
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	opts := cfg.Options
	if !opts.Echo {
		slog.Warn("echo disabled in completion options, forcing on for scoring")
		opts.Echo = true
	}
	if opts.N == 0 {
		opts.N = 1
	}

	usage := cfg.Usage
	if usage == nil {
		usage = &UsageCounter{}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &OpenAIScorer{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		opts:    opts,
		usage:   usage,
		limiter: limiter,
	}, nil
}

// Usage returns the scorer's token counter.
func (s *OpenAIScorer) Usage() *UsageCounter { return s.usage }

// ScoreText implements Scorer.
func (s *OpenAIScorer) ScoreText(ctx context.Context, text string) (float64, error) {
	scores, err := s.score(ctx, []string{text}, "score")
	if err != nil {
		return 0, err
	}
	return scores[0], nil
}

// ScoreBatch implements Scorer. All texts go out in a single completion
// request; the API returns one choice per prompt, matched back by index.
func (s *OpenAIScorer) ScoreBatch(ctx context.Context, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return s.score(ctx, texts, "score_batch")
}

func (s *OpenAIScorer) score(ctx context.Context, texts []string, op string) ([]float64, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, queryErr("openai", op, err)
		}
	}

	req := openai.CompletionRequest{
		Model:       s.model,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
		LogProbs:    s.opts.LogProbs,
		Echo:        true,
		N:           s.opts.N,
	}
	if len(texts) == 1 {
		req.Prompt = texts[0]
	} else {
		req.Prompt = texts
	}

	resp, err := s.client.CreateCompletion(ctx, req)
	if err != nil {
		return nil, queryErr("openai", op, err)
	}
	s.usage.Add(resp.Usage.TotalTokens)

	if len(resp.Choices) < len(texts) {
		return nil, queryErr("openai", op, ErrBatchShape)
	}

	scores := make([]float64, len(texts))
	seen := make([]bool, len(texts))
	for _, choice := range resp.Choices {
		idx := choice.Index
		if idx < 0 || idx >= len(texts) || seen[idx] {
			continue // extra completions when N > 1; first one wins
		}
		ll, err := echoLogProb(choice, texts[idx])
		if err != nil {
			return nil, queryErr("openai", op, err)
		}
		scores[idx] = ll
		seen[idx] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, queryErr("openai", op,
				fmt.Errorf("%w: no choice for prompt %d", ErrBatchShape, i))
		}
	}
	return scores, nil
}

// echoLogProb reduces an echoed choice to the mean per-token logprob of the
// prompt portion only. The first token carries a null logprob in echo mode
// and is skipped; tokens with a text offset at or past the prompt length are
// model-generated continuation and excluded from the likelihood.
func echoLogProb(choice openai.CompletionChoice, prompt string) (float64, error) {
	lp := choice.LogProbs
	if len(lp.TokenLogprobs) == 0 {
		return 0, ErrMissingLogProbs
	}
	logprobs := make([]float64, 0, len(lp.TokenLogprobs))
	for i, tokenLP := range lp.TokenLogprobs {
		if i == 0 {
			continue
		}
		if i < len(lp.TextOffset) && lp.TextOffset[i] >= len(prompt) {
			break
		}
		logprobs = append(logprobs, float64(tokenLP))
	}
	return meanLogProb(logprobs)
}
