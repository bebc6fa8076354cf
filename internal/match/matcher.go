// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package match

// Rule is one compiled manifest rule, indexed by its position in
// document order. Invalid patterns are represented with a nil Pattern
// and are excluded from matching (they match nothing), per the
// Matcher's boundary rule.
type Rule struct {
	// Line is the zero-based manifest line number this rule came from.
	Line int
	// Pattern is the compiled pattern, or nil if the source pattern
	// failed to compile.
	Pattern *Pattern
	// Owners is the ordered list of owner tokens for this rule.
	Owners []string
}

// Table is the result of sweeping every rule against every repository
// file: for each file, the index (into Rules) of the owning rule, or -1
// if unowned; and for each rule, its raw match count (files matched
// before considering later rules) and owned match count (files for
// which it is the final, winning rule).
type Table struct {
	Rules []Rule

	// Owner maps repository file path to the winning rule's index, or
	// -1 if no rule matches.
	Owner map[string]int

	// RawCount[i] is the number of files rule i matches, ignoring later
	// shadowing rules.
	RawCount []int
	// OwnedCount[i] is the number of files for which rule i is the
	// winning (last-matching) rule.
	OwnedCount []int
}

// IsPatternDead reports whether rule i matches no files at all.
func (t *Table) IsPatternDead(i int) bool {
	return t.RawCount[i] == 0
}

// IsShadowed reports whether rule i has raw matches but none of them
// survive to be owned (every one is overridden by a later rule).
func (t *Table) IsShadowed(i int) bool {
	return t.RawCount[i] > 0 && t.OwnedCount[i] == 0
}

// Sweep evaluates every rule against every file in files in one pass,
// per the spec's implementation guidance: iterate the repository index
// once, and for each file record the index of the last matching rule.
// Per-rule raw match counts are derived from the same sweep.
func Sweep(rules []Rule, files []string) *Table {
	t := &Table{
		Rules:      rules,
		Owner:      make(map[string]int, len(files)),
		RawCount:   make([]int, len(rules)),
		OwnedCount: make([]int, len(rules)),
	}

	for _, f := range files {
		winner := -1
		for i, r := range rules {
			if r.Pattern == nil {
				continue
			}
			if r.Pattern.Match(f) {
				t.RawCount[i]++
				winner = i
			}
		}
		t.Owner[f] = winner
		if winner >= 0 {
			t.OwnedCount[winner]++
		}
	}

	return t
}

// Query determines the owning rule for a single path without requiring
// it to be present in a pre-swept file set — used for queries against
// arbitrary, possibly non-manifest files (e.g. hover over an arbitrary
// repository file). Scans rules in document order and returns the
// index of the last match, or -1.
func Query(rules []Rule, path string) int {
	winner := -1
	for i, r := range rules {
		if r.Pattern == nil {
			continue
		}
		if r.Pattern.Match(path) {
			winner = i
		}
	}
	return winner
}
