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
	"errors"
	"fmt"
)

var (
	// ErrNoTokens indicates the backend returned no per-token logprobs.
	ErrNoTokens = errors.New("backend returned no token logprobs")

	// ErrMissingLogProbs indicates the response omitted the logprobs block,
	// usually because the request did not ask for echo mode.
	ErrMissingLogProbs = errors.New("response contained no logprobs block")

	// ErrBatchShape indicates a batch response did not line up with the
	// submitted texts.
	ErrBatchShape = errors.New("batch response does not match request size")
)

// QueryError wraps any failure while scoring a text: backend unreachable,
// timeout, non-2xx status, or a malformed response body.
//
// The querier never retries; the error propagates to the aggregator, which
// fails the whole record and moves on.
type QueryError struct {
	// Backend names the scorer that failed ("openai", "local").
	Backend string

	// Op is the operation that failed ("score", "score_batch").
	Op string

	// Err is the underlying cause.
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("scoring %s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

func queryErr(backend, op string, err error) *QueryError {
	return &QueryError{Backend: backend, Op: op, Err: err}
}
