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

import "sync/atomic"

// UsageCounter tracks token consumption for cost reporting.
//
// It replaces the module-level accumulator pattern with an explicit counter
// object passed into backends, so parallel queries stay safe and tests can
// observe usage in isolation. Zero value is ready to use.
type UsageCounter struct {
	tokens atomic.Int64
}

// Add records tokens consumed by one request.
func (c *UsageCounter) Add(tokens int) {
	c.tokens.Add(int64(tokens))
}

// Total returns tokens consumed since creation or the last Reset.
func (c *UsageCounter) Total() int64 {
	return c.tokens.Load()
}

// Reset zeroes the counter. Intended for process start or per-run scoping.
func (c *UsageCounter) Reset() {
	c.tokens.Store(0)
}
