// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ScenarioMetadata names and versions a detection scenario file.
type ScenarioMetadata struct {
	ID      string `yaml:"id" json:"id" validate:"required"`
	Version string `yaml:"version" json:"version"`
	Notes   string `yaml:"notes" json:"notes"`
}

// DetectionScenario is the YAML experiment configuration consumed by the
// CLI and the experiment runner. One scenario describes a dataset, a scoring
// backend, an infill backend, and the perturbation hyperparameters.
type DetectionScenario struct {
	Metadata ScenarioMetadata `yaml:"metadata" json:"metadata"`

	Dataset struct {
		// Name labels outcomes (e.g. "xsum", "writing_prompts").
		Name string `yaml:"name" json:"name" validate:"required"`
		// File is the CSV of original/sampled passage pairs.
		File string `yaml:"file" json:"file"`
		// KExamples caps how many pairs are loaded. 0 loads everything.
		KExamples int `yaml:"k_examples" json:"k_examples" validate:"gte=0"`
	} `yaml:"dataset" json:"dataset"`

	Scoring struct {
		// Backend selects the likelihood backend: "openai" or "local".
		Backend string `yaml:"backend" json:"backend" validate:"required,oneof=openai local"`
		// Model is the reference model identifier for the openai backend.
		Model string `yaml:"model" json:"model"`
		// BaseURL overrides the local scoring sidecar address.
		BaseURL string `yaml:"base_url" json:"base_url"`
		// Options are the completion request knobs for the openai backend.
		Options CompletionOptions `yaml:"options" json:"options"`
		// RequestsPerSecond throttles the remote backend. 0 disables.
		RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second" validate:"gte=0"`
	} `yaml:"scoring" json:"scoring"`

	Infill struct {
		// BaseURL of the mask-filling sidecar (seq2seq infill model).
		BaseURL string `yaml:"base_url" json:"base_url"`
		// MaxTokens caps the infill generation length per request.
		MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"gte=0"`
	} `yaml:"infill" json:"infill"`

	Perturbation Hyperparameters `yaml:"perturbation" json:"perturbation"`

	Run struct {
		// Criteria to evaluate, any of "difference" and "zscore".
		Criteria []string `yaml:"criteria" json:"criteria" validate:"dive,oneof=difference zscore"`
		// Concurrency bounds parallel record aggregation.
		Concurrency int `yaml:"concurrency" json:"concurrency" validate:"gte=0"`
		// Seed fixes mask-span selection for reproducible runs.
		Seed int64 `yaml:"seed" json:"seed"`
		// OutputDir is where outcomes are persisted.
		OutputDir string `yaml:"output_dir" json:"output_dir"`
		// CacheDir enables the badger perturbation cache when set.
		CacheDir string `yaml:"cache_dir" json:"cache_dir"`
	} `yaml:"run" json:"run"`
}

// scenarioValidator is shared; validator.Validate is safe for concurrent use.
var scenarioValidator = validator.New()

// Validate checks structural constraints on the scenario. Hyperparameter
// defaults are applied first so a minimal YAML file still validates.
func (s *DetectionScenario) Validate() error {
	s.applyDefaults()
	if err := scenarioValidator.Struct(s); err != nil {
		return fmt.Errorf("invalid scenario %q: %w", s.Metadata.ID, err)
	}
	return nil
}

func (s *DetectionScenario) applyDefaults() {
	if s.Perturbation.NPerturbations == 0 {
		s.Perturbation.NPerturbations = 5
	}
	if s.Perturbation.SpanLength == 0 {
		s.Perturbation.SpanLength = 2
	}
	if s.Perturbation.PerturbPct == 0 {
		s.Perturbation.PerturbPct = 0.15
	}
	if s.Perturbation.NPerturbationRounds == 0 {
		s.Perturbation.NPerturbationRounds = 1
	}
	if len(s.Run.Criteria) == 0 {
		s.Run.Criteria = []string{"zscore", "difference"}
	}
	if s.Run.Concurrency == 0 {
		s.Run.Concurrency = 4
	}
	if s.Scoring.Options == (CompletionOptions{}) {
		s.Scoring.Options = DefaultCompletionOptions()
	}
	if s.Infill.MaxTokens == 0 {
		s.Infill.MaxTokens = 256
	}
}

// LoadScenario reads, parses, and validates a scenario YAML file.
func LoadScenario(path string) (*DetectionScenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	var scenario DetectionScenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}
