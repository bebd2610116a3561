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

import "strings"

// spaceRepairs undoes the detached punctuation and markup left behind by
// word-level tokenizers in the source corpora. Applied as sequential full
// passes: the quote repairs depend on seeing the output of earlier rules,
// so a single-pass replacer would miss cases like "sure ''".
var spaceRepairs = [][2]string{
	{" ,", ","},
	{" .", "."},
	{" ?", "?"},
	{" !", "!"},
	{" ;", ";"},
	{" '", "'"},
	{" ’ ", "'"},
	{" :", ":"},
	{"<newline>", "\n"},
	{"`` ", "\""},
	{" ''", "\""},
	{"''", "\""},
	{".. ", "... "},
	{" )", ")"},
	{"( ", "("},
	{" n't", "n't"},
	{" i ", " I "},
	{" i'", " I'"},
	{"\\'", "'"},
	{"\n ", "\n"},
}

// ProcessSpaces normalizes a tokenized passage back into natural prose.
func ProcessSpaces(story string) string {
	for _, r := range spaceRepairs {
		story = strings.ReplaceAll(story, r[0], r[1])
	}
	return strings.TrimSpace(story)
}

// StripPromptTags removes writing-prompt corpus tags from a prompt.
func StripPromptTags(prompt string) string {
	prompt = strings.ReplaceAll(prompt, "[ WP ]", "")
	return strings.ReplaceAll(prompt, "[ OT ]", "")
}

// ConcatColumns joins selected row values with single spaces, trimming the
// trailing separator. Used when a passage spans several CSV columns.
func ConcatColumns(values []string) string {
	return strings.TrimSpace(strings.Join(values, " "))
}
