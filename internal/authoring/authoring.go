// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package authoring computes pure text edits over a manifest document:
// take-ownership, remove-dead-rule, dedupe-owners, add-catch-all, and the
// git-history-driven owner suggestion operation. Nothing in this package
// performs I/O directly on the manifest; every operation returns a
// manifest.Edit for the caller to apply.
package authoring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/radiosilence/codeowners-lsp/internal/manifest"
	"github.com/radiosilence/codeowners-lsp/internal/validate"
)

// ErrAlreadyCovered is returned by AddCatchAll when the manifest's last
// rule is already a catch-all pattern.
var ErrAlreadyCovered = errors.New("authoring: catch-all already present")

// TakeOwnership produces the edit that makes owner O responsible for
// path P: appending O to an existing rule whose pattern exactly matches
// P, or inserting a new rule at the chosen insertion point.
//
// Applying this operation twice in a row is idempotent: the second call
// finds owner already listed on the (now-existing) exact-match rule and
// returns a zero-width edit.
func TakeOwnership(doc *manifest.Document, path, owner string) manifest.Edit {
	if line, ok := exactMatchRule(doc, path); ok {
		if ownerPresent(line.Rule, owner) {
			return manifest.Edit{Start: lineEnd(doc, line.Number), End: lineEnd(doc, line.Number), Replacement: ""}
		}
		return appendOwnerEdit(doc, line, owner)
	}

	offset := insertionOffset(doc, path, owner)
	newLine := path + manifest.DefaultSeparator + owner + "\n"
	if needsLeadingNewline(doc, offset) {
		newLine = "\n" + newLine
	}
	return manifest.Edit{Start: offset, End: offset, Replacement: newLine}
}

// exactMatchRule finds the Rule line whose pattern, once any anchoring
// leading slash is stripped, equals path (similarly stripped).
func exactMatchRule(doc *manifest.Document, path string) (manifest.Line, bool) {
	norm := strings.TrimPrefix(path, "/")
	for _, line := range doc.Lines {
		if line.Kind != manifest.Rule {
			continue
		}
		if strings.TrimPrefix(line.Rule.Pattern, "/") == norm {
			return line, true
		}
	}
	return manifest.Line{}, false
}

func ownerPresent(rc manifest.RuleContent, owner string) bool {
	key := validate.CanonicalKey(owner)
	for _, o := range rc.Owners {
		if validate.CanonicalKey(o.Token) == key {
			return true
		}
	}
	return false
}

// appendOwnerEdit returns the edit that appends owner to line's owner
// list, reusing the separator style already used before the last token
// on the line (its own leading whitespace run), falling back to
// manifest.DefaultSeparator when the rule has no owners yet.
func appendOwnerEdit(doc *manifest.Document, line manifest.Line, owner string) manifest.Edit {
	sep := manifest.DefaultSeparator
	insertAt := line.Rule.PatternSpan.End
	if n := len(line.Rule.Owners); n > 0 {
		last := line.Rule.Owners[n-1]
		insertAt = last.Span.End
		// Reuse the whitespace immediately preceding the last owner as
		// the separator style, since it is the rule's established idiom.
		if n >= 2 {
			prevEnd := line.Rule.Owners[n-2].Span.End
			sep = line.Raw[prevEnd:last.Span.Start]
		} else {
			sep = line.Raw[line.Rule.PatternSpan.End:last.Span.Start]
		}
	}

	base := manifest.LineOffset(doc.Lines, line.Number)
	abs := base + insertAt
	return manifest.Edit{Start: abs, End: abs, Replacement: sep + owner}
}

// lineEnd returns the absolute byte offset just past line n's content,
// i.e. immediately before its terminator, used for zero-width
// already-applied edits.
func lineEnd(doc *manifest.Document, n int) int {
	base := manifest.LineOffset(doc.Lines, n)
	return base + len(manifest.Bare(doc.Lines[n].Raw))
}

// insertionOffset implements the insertion-point selection rules of
// spec §4.6: prefer just after the rule in owner's existing contiguous
// block whose pattern shares the longest directory prefix with path;
// otherwise after the last
// rule sharing any directory segment with path; otherwise end of file
// (before trailing blank lines). The returned offset always lands at
// the start of a line (i.e. immediately after some line's terminator,
// or at document end), so the caller's inserted text only ever needs a
// trailing, never a leading, newline — except at true end-of-file with
// no trailing terminator, handled by needsLeadingNewline.
func insertionOffset(doc *manifest.Document, path, owner string) int {
	rules := doc.Rules()

	if block := ownerBlock(rules, owner); len(block) > 0 {
		best := bestByDirPrefix(block, path)
		return manifest.LineOffset(doc.Lines, best.Number+1)
	}

	if idx := lastSharingDirSegment(rules, path); idx >= 0 {
		return manifest.LineOffset(doc.Lines, rules[idx].Number+1)
	}

	return endOfFileOffset(doc)
}

// ownerBlock returns the largest contiguous run (in document Rules()
// order) of rules owned by owner.
func ownerBlock(rules []manifest.Line, owner string) []manifest.Line {
	var best, current []manifest.Line
	for _, r := range rules {
		if ownerPresent(r.Rule, owner) {
			current = append(current, r)
			if len(current) > len(best) {
				best = current
			}
			continue
		}
		current = nil
	}
	return best
}

// bestByDirPrefix returns the rule in block whose pattern directory
// shares the longest prefix with path's directory, tie-breaking on the
// later (higher line Number) rule.
func bestByDirPrefix(block []manifest.Line, path string) manifest.Line {
	pathDirs := dirSegments(path)
	best := block[0]
	bestScore := -1
	for _, r := range block {
		score := sharedPrefixLen(dirSegments(r.Rule.Pattern), pathDirs)
		if score >= bestScore {
			bestScore = score
			best = r
		}
	}
	return best
}

// lastSharingDirSegment returns the index (in rules) of the last rule
// whose pattern shares at least one directory segment with path, or -1.
func lastSharingDirSegment(rules []manifest.Line, path string) int {
	pathDirs := dirSegments(path)
	found := -1
	for i, r := range rules {
		if sharesAnySegment(dirSegments(r.Rule.Pattern), pathDirs) {
			found = i
		}
	}
	return found
}

func dirSegments(pattern string) []string {
	trimmed := strings.Trim(pattern, "/")
	dir := trimmed
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		dir = trimmed[:idx]
	} else {
		dir = ""
	}
	if dir == "" {
		return nil
	}
	return strings.Split(dir, "/")
}

func sharedPrefixLen(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func sharesAnySegment(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}

// endOfFileOffset returns the byte offset immediately before any run of
// trailing blank lines at the end of the document, or the document's
// full length if there are none.
func endOfFileOffset(doc *manifest.Document) int {
	end := len(doc.Lines)
	for end > 0 && doc.Lines[end-1].Kind == manifest.Blank {
		end--
	}
	return manifest.LineOffset(doc.Lines, end)
}

// RemoveDeadRule deletes line n and, if present, one immediately
// following blank line that exists only to separate rules (i.e. is
// itself preceded by no other blank line).
func RemoveDeadRule(doc *manifest.Document, n int) manifest.Edit {
	start := manifest.LineOffset(doc.Lines, n)
	end := start + len(doc.Lines[n].Raw)

	if n+1 < len(doc.Lines) && doc.Lines[n+1].Kind == manifest.Blank {
		end += len(doc.Lines[n+1].Raw)
	}

	return manifest.Edit{Start: start, End: end, Replacement: ""}
}

// DedupeOwners removes repeated canonical owner tokens from line n,
// preserving the first occurrence of each and the whitespace style that
// preceded it.
func DedupeOwners(doc *manifest.Document, n int) manifest.Edit {
	line := doc.Lines[n]
	rc := line.Rule
	base := manifest.LineOffset(doc.Lines, n)

	seen := make(map[string]bool, len(rc.Owners))
	var b strings.Builder
	cursor := rc.PatternSpan.End

	for _, owner := range rc.Owners {
		key := validate.CanonicalKey(owner.Token)
		gapStart := cursor
		gapEnd := owner.Span.Start
		if !seen[key] {
			seen[key] = true
			b.WriteString(line.Raw[gapStart:gapEnd])
			b.WriteString(owner.Token)
		}
		cursor = owner.Span.End
	}

	var tail int
	if rc.HasComment {
		tail = rc.CommentSpan.Start
	} else {
		tail = len(manifest.Bare(line.Raw))
	}

	start := base + rc.PatternSpan.End
	end := base + tail
	replacement := b.String()
	if rc.HasComment {
		replacement += line.Raw[cursor:rc.CommentSpan.Start]
	}

	return manifest.Edit{Start: start, End: end, Replacement: replacement}
}

// AddCatchAll appends a `*<TAB>defaultOwner` rule at the end of the
// file, or returns ErrAlreadyCovered if the manifest's last rule already
// has the catch-all pattern `*`.
func AddCatchAll(doc *manifest.Document, defaultOwner string) (manifest.Edit, error) {
	rules := doc.Rules()
	if len(rules) > 0 && rules[len(rules)-1].Rule.Pattern == "*" {
		return manifest.Edit{}, fmt.Errorf("%w", ErrAlreadyCovered)
	}

	offset := endOfFileOffset(doc)
	text := "*" + manifest.DefaultSeparator + defaultOwner + "\n"
	if offset > 0 && needsLeadingNewline(doc, offset) {
		text = "\n" + text
	}
	return manifest.Edit{Start: offset, End: offset, Replacement: text}, nil
}

// needsLeadingNewline reports whether the byte immediately before offset
// in the reconstructed document is something other than a newline, in
// which case the inserted catch-all rule needs one to start its own line.
func needsLeadingNewline(doc *manifest.Document, offset int) bool {
	full := doc.Text()
	if offset == 0 || offset > len(full) {
		return false
	}
	return full[offset-1] != '\n'
}
