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
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"strings"
)

// placeholder formats the k-th mask marker. The <extra_id_k> convention
// matches T5-family infill models, which emit their fills delimited by the
// same markers.
func placeholder(k int) string {
	return fmt.Sprintf("<extra_id_%d>", k)
}

// placeholderPattern matches any mask marker in masked or generated text.
var placeholderPattern = regexp.MustCompile(`<extra_id_\d+>`)

// maskSpans replaces randomly selected spans of spanLength word tokens with
// numbered placeholders until roughly pct of the tokens are covered.
//
// Selected spans are kept non-adjacent (one token of buffer on each side) so
// two masks never merge into one; placeholders are numbered left to right
// regardless of selection order. Determinism follows from the caller's rng:
// the same seed, passage, and parameters mask the same spans.
func maskSpans(rng *rand.Rand, passage string, spanLength int, pct float64) (string, int, error) {
	tokens := strings.Fields(passage)
	if len(tokens) == 0 {
		return "", 0, ErrEmptyPassage
	}
	if spanLength > len(tokens) {
		spanLength = len(tokens)
	}

	targetSpans := int(math.Ceil(pct * float64(len(tokens)) / float64(spanLength)))
	if targetSpans < 1 {
		targetSpans = 1
	}

	masked := make([]bool, len(tokens))
	placed := 0

	// Rejection sampling with a bounded attempt count: short passages may
	// not fit the requested coverage with non-adjacent spans.
	maxAttempts := 16 * (targetSpans + 1)
	for attempt := 0; placed < targetSpans && attempt < maxAttempts; attempt++ {
		start := rng.Intn(len(tokens) - spanLength + 1)
		if regionTouched(masked, start-1, start+spanLength+1) {
			continue
		}
		for i := start; i < start+spanLength; i++ {
			masked[i] = true
		}
		placed++
	}
	if placed == 0 {
		return "", 0, ErrEmptyPassage
	}

	// Rebuild the passage with placeholders numbered left to right.
	out := make([]string, 0, len(tokens))
	spanID := 0
	for i := 0; i < len(tokens); {
		if masked[i] {
			out = append(out, placeholder(spanID))
			spanID++
			for i < len(tokens) && masked[i] {
				i++
			}
			continue
		}
		out = append(out, tokens[i])
		i++
	}
	return strings.Join(out, " "), spanID, nil
}

// regionTouched reports whether any token in [lo, hi) is already masked.
// Bounds are clamped.
func regionTouched(masked []bool, lo, hi int) bool {
	if lo < 0 {
		lo = 0
	}
	if hi > len(masked) {
		hi = len(masked)
	}
	for i := lo; i < hi; i++ {
		if masked[i] {
			return true
		}
	}
	return false
}

// extractFills parses the raw infill generation into one fill string per
// placeholder. T5-style infill models answer a masked input with
// "<extra_id_0> fill zero <extra_id_1> fill one ..."; everything between
// consecutive markers belongs to the preceding placeholder.
//
// Returns ErrPlaceholderMismatch if fewer than nMasks non-empty fills come
// back, which callers treat as a failed round.
func extractFills(raw string, nMasks int) ([]string, error) {
	markers := placeholderPattern.FindAllStringIndex(raw, -1)
	if len(markers) < nMasks {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrPlaceholderMismatch, nMasks, len(markers))
	}

	fills := make([]string, 0, nMasks)
	for i := 0; i < nMasks; i++ {
		start := markers[i][1]
		end := len(raw)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		fill := strings.TrimSpace(raw[start:end])
		if fill == "" {
			return nil, fmt.Errorf("%w: empty fill for placeholder %d", ErrPlaceholderMismatch, i)
		}
		fills = append(fills, fill)
	}
	return fills, nil
}

// applyFills substitutes each numbered placeholder in the masked passage
// with its fill.
func applyFills(masked string, fills []string) string {
	out := masked
	for i, fill := range fills {
		out = strings.Replace(out, placeholder(i), fill, 1)
	}
	return out
}
