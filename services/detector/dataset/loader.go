// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dataset loads and repairs the CSV corpora of paired human and
// machine passages consumed by the detection pipeline.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/AleutianAI/Curvatext/services/detector/datatypes"
)

// Pair is one human/machine passage pair as read from disk.
type Pair struct {
	Original string
	Sampled  string
}

// LoadPairs reads passage pairs from a CSV with "original" and "sampled"
// columns. k caps how many pairs are loaded; 0 loads everything. Rows with
// an empty side are skipped with a warning rather than failing the run.
func LoadPairs(path string, k int) ([]Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}
	origIdx, sampledIdx := -1, -1
	for i, col := range header {
		switch col {
		case "original":
			origIdx = i
		case "sampled":
			sampledIdx = i
		}
	}
	if origIdx < 0 || sampledIdx < 0 {
		return nil, fmt.Errorf("dataset %s missing original/sampled columns (header %v)", path, header)
	}

	var pairs []Pair
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset row: %w", err)
		}
		if origIdx >= len(row) || sampledIdx >= len(row) {
			skipped++
			continue
		}
		original := ProcessSpaces(row[origIdx])
		sampled := ProcessSpaces(row[sampledIdx])
		if original == "" || sampled == "" {
			skipped++
			continue
		}
		pairs = append(pairs, Pair{Original: original, Sampled: sampled})
		if k > 0 && len(pairs) >= k {
			break
		}
	}
	if skipped > 0 {
		slog.Warn("skipped incomplete dataset rows", "path", path, "skipped", skipped)
	}
	slog.Info("dataset loaded", "path", path, "pairs", len(pairs))
	return pairs, nil
}

// ToPartialRecords converts loaded pairs into the aggregator's input shape
// with empty perturbation sets.
func ToPartialRecords(pairs []Pair) []datatypes.PartialRecord {
	records := make([]datatypes.PartialRecord, len(pairs))
	for i, p := range pairs {
		records[i] = datatypes.PartialRecord{Original: p.Original, Sampled: p.Sampled}
	}
	return records
}
