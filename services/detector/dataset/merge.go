// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// readColumn reads a CSV file and concatenates the named columns of each
// row into a single passage string. An empty cols selects every column.
func readColumn(path string, cols []string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	var indices []int
	if len(cols) == 0 {
		for i := range header {
			indices = append(indices, i)
		}
	} else {
		byName := make(map[string]int, len(header))
		for i, name := range header {
			byName[strings.TrimSpace(name)] = i
		}
		for _, col := range cols {
			idx, ok := byName[strings.TrimSpace(col)]
			if !ok {
				return nil, fmt.Errorf("column %q not found in %s (header %v)", col, path, header)
			}
			indices = append(indices, idx)
		}
	}

	var out []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row of %s: %w", path, err)
		}
		values := make([]string, 0, len(indices))
		for _, idx := range indices {
			if idx < len(row) {
				values = append(values, row[idx])
			}
		}
		out = append(out, ConcatColumns(values))
	}
	return out, nil
}

// MergeHumanSampled joins a human-authored CSV and a machine-sampled CSV
// into the pipeline's paired format and writes it to outPath. Column lists
// select and concatenate the source columns; empty lists take every column.
// Extra rows on the longer side are dropped.
func MergeHumanSampled(originalPath string, originalCols []string, sampledPath string, sampledCols []string, outPath string) (int, error) {
	originals, err := readColumn(originalPath, originalCols)
	if err != nil {
		return 0, err
	}
	sampled, err := readColumn(sampledPath, sampledCols)
	if err != nil {
		return 0, err
	}

	n := len(originals)
	if len(sampled) < n {
		n = len(sampled)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer out.Close()

	writer := csv.NewWriter(out)
	defer writer.Flush()

	if err := writer.Write([]string{"original", "sampled"}); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := writer.Write([]string{originals[i], sampled[i]}); err != nil {
			return 0, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	return n, nil
}

// StripText removes a fixed message from one column of a CSV in place,
// used to scrub boilerplate the sampling model prepends to its answers.
func StripText(path, col, stripMsg string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s is empty", path)
	}

	colIdx := -1
	for i, name := range rows[0] {
		if name == col {
			colIdx = i
		}
	}
	if colIdx < 0 {
		return fmt.Errorf("column %q not found in %s", col, path)
	}

	for i := 1; i < len(rows); i++ {
		if colIdx < len(rows[i]) {
			rows[i][colIdx] = strings.ReplaceAll(rows[i][colIdx], stripMsg, "")
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", path, err)
	}
	defer out.Close()
	writer := csv.NewWriter(out)
	defer writer.Flush()
	return writer.WriteAll(rows)
}
