// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
		{Level(-1), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.level.String()
			if got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(99), slog.LevelInfo},
	}

	for _, tt := range tests {
		got := tt.level.toSlogLevel()
		if got != tt.want {
			t.Errorf("Level(%d).toSlogLevel() = %v, want %v", tt.level, got, tt.want)
		}
	}
}

// =============================================================================
// Constructor Tests
// =============================================================================

func TestNew_DefaultConfig(t *testing.T) {
	logger := New(Config{})
	if logger == nil {
		t.Fatal("New returned nil")
	}
	if logger.slog == nil {
		t.Error("underlying slog.Logger is nil")
	}
}

func TestNew_WithLogDir(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  dir,
		Service: "detector",
		Quiet:   true,
	})
	defer logger.Close()

	logger.Info("perturbation round complete", "variants", 5)

	wantFile := filepath.Join(dir, "detector_"+time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(wantFile)
	if err != nil {
		t.Fatalf("expected log file %s: %v", wantFile, err)
	}
	if !strings.Contains(string(data), "perturbation round complete") {
		t.Errorf("log file missing message, got: %s", data)
	}
	if !strings.Contains(string(data), `"service":"detector"`) {
		t.Errorf("log file missing service attribute, got: %s", data)
	}
}

func TestNew_WithLogDir_NoService(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Quiet: true})
	defer logger.Close()

	logger.Info("hello")

	wantFile := filepath.Join(dir, "curvatext_"+time.Now().Format("2006-01-02")+".log")
	if _, err := os.Stat(wantFile); err != nil {
		t.Errorf("expected default-named log file: %v", err)
	}
}

func TestNew_WithLogDir_InvalidPath(t *testing.T) {
	// A path under /dev/null cannot be created; construction must still
	// succeed with stderr as the fallback.
	logger := New(Config{LogDir: "/dev/null/impossible"})
	if logger == nil {
		t.Fatal("New returned nil for invalid LogDir")
	}
	if logger.file != nil {
		t.Error("expected nil file handle for invalid LogDir")
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	if logger == nil {
		t.Fatal("Default returned nil")
	}
	if logger.config.Service != "curvatext" {
		t.Errorf("Default service = %q, want curvatext", logger.config.Service)
	}
}

// =============================================================================
// Logging and Export Tests
// =============================================================================

func TestLogger_ExporterReceivesEntries(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{
		Level:    LevelInfo,
		Service:  "cli",
		Quiet:    true,
		Exporter: exporter,
	})

	logger.Info("experiment saved", "dataset", "xsum", "records", 150)
	logger.Error("scoring failed", "error", "timeout")

	waitForEntries(t, exporter, 2)

	entries := exporter.Entries()
	if entries[0].Message != "experiment saved" {
		t.Errorf("first entry message = %q", entries[0].Message)
	}
	if entries[0].Service != "cli" {
		t.Errorf("entry service = %q, want cli", entries[0].Service)
	}
	if entries[0].Attrs["dataset"] != "xsum" {
		t.Errorf("entry attrs = %v", entries[0].Attrs)
	}
	if entries[1].Level != LevelError {
		t.Errorf("second entry level = %v, want error", entries[1].Level)
	}
}

func TestLogger_ExporterPreservesOrder(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{
		Level:    LevelInfo,
		Quiet:    true,
		Exporter: exporter,
	})

	const n = 50
	for i := 0; i < n; i++ {
		logger.Info("record scored", "index", i)
	}
	// Close drains the export queue before returning.
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries := exporter.Entries()
	if len(entries) != n {
		t.Fatalf("got %d entries, want %d", len(entries), n)
	}
	for i, entry := range entries {
		if entry.Attrs["index"] != i {
			t.Fatalf("entry %d has index %v, delivery out of order", i, entry.Attrs["index"])
		}
	}
}

func TestLogger_ExporterLevelFiltering(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{
		Level:    LevelWarn,
		Quiet:    true,
		Exporter: exporter,
	})

	logger.Debug("noise")
	logger.Info("more noise")
	logger.Warn("degraded perturbation set")

	waitForEntries(t, exporter, 1)

	entries := exporter.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Message != "degraded perturbation set" {
		t.Errorf("entry message = %q", entries[0].Message)
	}
}

func TestLogger_With(t *testing.T) {
	parent := New(Config{Quiet: true, Exporter: NewBufferedExporter()})
	child := parent.With("run_id", "abc123")

	if child == parent {
		t.Fatal("With returned the parent logger")
	}
	if child.exporter != parent.exporter {
		t.Error("child should share the parent's exporter")
	}
	if child.file != parent.file {
		t.Error("child should share the parent's file handle")
	}
}

func TestLogger_Slog(t *testing.T) {
	logger := New(Config{Quiet: true})
	if logger.Slog() == nil {
		t.Error("Slog returned nil")
	}
}

func TestLogger_Close_NoResources(t *testing.T) {
	logger := New(Config{Quiet: true})
	if err := logger.Close(); err != nil {
		t.Errorf("Close with no resources: %v", err)
	}
}

func TestLogger_ConcurrentUse(t *testing.T) {
	logger := New(Config{Level: LevelDebug, Quiet: true})
	defer logger.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				logger.Info("concurrent log", "goroutine", n, "iteration", j)
			}
		}(i)
	}
	wg.Wait()
}

// =============================================================================
// multiHandler Tests
// =============================================================================

func TestMultiHandler_Enabled(t *testing.T) {
	debug := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	errOnly := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})

	h := &multiHandler{handlers: []slog.Handler{errOnly, debug}}
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("multiHandler should be enabled when any handler accepts the level")
	}

	h = &multiHandler{handlers: []slog.Handler{errOnly}}
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("multiHandler should be disabled when no handler accepts the level")
	}
}

func TestMultiHandler_WithAttrs(t *testing.T) {
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(os.Stderr, nil),
		slog.NewJSONHandler(os.Stderr, nil),
	}}
	got := h.WithAttrs([]slog.Attr{slog.String("k", "v")})
	mh, ok := got.(*multiHandler)
	if !ok {
		t.Fatalf("WithAttrs returned %T, want *multiHandler", got)
	}
	if len(mh.handlers) != 2 {
		t.Errorf("WithAttrs handler count = %d, want 2", len(mh.handlers))
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~/.curvatext/logs", filepath.Join(home, ".curvatext/logs")},
		{"/var/log/curvatext", "/var/log/curvatext"},
		{"relative/path", "relative/path"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := expandPath(tt.in); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestArgsToMap(t *testing.T) {
	got := argsToMap([]any{"dataset", "xsum", "records", 150})
	if got["dataset"] != "xsum" || got["records"] != 150 {
		t.Errorf("argsToMap result = %v", got)
	}

	// Odd trailing value is dropped.
	got = argsToMap([]any{"key", "value", "dangling"})
	if len(got) != 1 {
		t.Errorf("argsToMap with dangling key = %v", got)
	}

	// Non-string keys are skipped.
	got = argsToMap([]any{42, "value"})
	if len(got) != 0 {
		t.Errorf("argsToMap with int key = %v", got)
	}
}

// =============================================================================
// Exporter Tests
// =============================================================================

func TestNopExporter(t *testing.T) {
	e := &NopExporter{}
	if err := e.Export(context.Background(), LogEntry{}); err != nil {
		t.Errorf("Export: %v", err)
	}
	if err := e.Flush(context.Background()); err != nil {
		t.Errorf("Flush: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestBufferedExporter_EntriesIsCopy(t *testing.T) {
	e := NewBufferedExporter()
	_ = e.Export(context.Background(), LogEntry{Message: "one"})

	entries := e.Entries()
	entries[0].Message = "mutated"

	if e.Entries()[0].Message != "one" {
		t.Error("Entries should return a copy of the buffer")
	}
}

// waitForEntries polls the exporter until n entries arrive. Export runs in
// a goroutine per log call, so tests must wait rather than assert
// immediately.
func waitForEntries(t *testing.T, e *BufferedExporter, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(e.Entries()) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d exported entries, got %d", n, len(e.Entries()))
}
