// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpinner_StartStop(t *testing.T) {
	s := NewSpinner("working")
	s.Start()
	time.Sleep(250 * time.Millisecond)
	s.Stop()
}

func TestSpinner_StopWithoutStart(t *testing.T) {
	s := NewSpinner("idle")
	s.Stop()
}

func TestSpinner_DoubleStartAndStop(t *testing.T) {
	s := NewSpinner("working")
	s.Start()
	s.Start()
	time.Sleep(150 * time.Millisecond)
	s.Stop()
	s.Stop()
}

func TestSpinner_UpdateMessage(t *testing.T) {
	s := NewSpinner("phase one")
	s.Start()
	s.UpdateMessage("phase two")
	time.Sleep(150 * time.Millisecond)
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, "phase two", s.message)
}
