// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import "fmt"

// AggregationError reports that scoring failed while building one record.
// The record is discarded; processing of other records continues. Whether a
// run tolerates failed records is the caller's decision, not the
// aggregator's.
type AggregationError struct {
	// Index of the failed record in the input slice.
	Index int

	// Stage names what was being scored ("original", "sampled",
	// "perturbed_original", "perturbed_sampled").
	Stage string

	// Err is the underlying scoring failure.
	Err error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregating record %d (%s): %v", e.Index, e.Stage, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }
