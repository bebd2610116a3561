// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// stdoutIsTerminal reports whether stdout is an interactive terminal.
// Piped output gets machine-friendly formatting (no banners, JSON where
// the command supports it).
func stdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// outputJSON writes data as indented JSON to stdout.
func outputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// printBanner prints a section banner on interactive terminals only.
func printBanner(title string) {
	if !stdoutIsTerminal() {
		return
	}
	fmt.Println(title)
	fmt.Println(strings.Repeat("-", len(title)))
}

// readTextArg resolves a positional text argument: a value starting with
// "@" is treated as a file path and its contents are returned.
func readTextArg(arg string) (string, error) {
	if !strings.HasPrefix(arg, "@") {
		return arg, nil
	}
	data, err := os.ReadFile(strings.TrimPrefix(arg, "@"))
	if err != nil {
		return "", fmt.Errorf("failed to read passage file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
