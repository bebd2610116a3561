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

import "errors"

var (
	// ErrPlaceholderMismatch indicates the infill model produced fewer fills
	// than the masked placeholders. This is the known degenerate failure
	// mode of seq2seq infill models on short or low-entropy inputs; it is a
	// domain-level failure handled by the round retry loop, never a
	// transport error.
	ErrPlaceholderMismatch = errors.New("infill produced wrong placeholder count")

	// ErrEmptyPassage indicates the passage had no maskable tokens.
	ErrEmptyPassage = errors.New("passage has no tokens to mask")

	// ErrEmptyFill indicates the infill round produced an empty result.
	ErrEmptyFill = errors.New("infill produced empty text")
)
