// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package manifest

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// sectionHeaderPattern matches `[Name]` or `^[Name]`, optionally followed
// by an approval count and default owners, per spec precedence rule 3.
var sectionHeaderPattern = regexp.MustCompile(`^(\^?)\[([^\]]+)\](?:\s+(\d+))?(\s+.*)?$`)

// Parse converts manifest text into an ordered, positional line model.
// Parse is total: every input, however malformed, yields a Document with
// one Line per logical line, and reconstructing the input from Line.Raw
// values is exact for every line (see Document.Text).
func Parse(text string) *Document {
	doc := &Document{}
	for i, raw := range splitKeepEnds(text) {
		doc.Lines = append(doc.Lines, parseLine(i, raw))
	}
	return doc
}

// splitKeepEnds splits text into lines, keeping each line's terminator
// (LF or CRLF) attached to it, so the split is reversible by
// concatenation. A trailing terminator produces no empty final element;
// a final line lacking a terminator is kept as-is.
func splitKeepEnds(text string) []string {
	if text == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

// bareText strips a trailing line terminator (CRLF or LF) from raw,
// returning the content used for classification; spans are computed
// against this bare content.
func bareText(raw string) string {
	s := strings.TrimSuffix(raw, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s
}

func parseLine(number int, raw string) Line {
	content := bareText(raw)

	if strings.TrimSpace(content) == "" {
		return Line{Number: number, Raw: raw, Kind: Blank}
	}

	trimmedLeading := strings.TrimLeft(content, " \t")
	leadingWidth := len(content) - len(trimmedLeading)

	if header, ok := parseSectionHeader(content); ok {
		return Line{Number: number, Raw: raw, Kind: SectionHeader, SectionHeader: header}
	}

	if strings.HasPrefix(trimmedLeading, "#") {
		return Line{Number: number, Raw: raw, Kind: Comment}
	}

	rule, reason, ok := parseRule(content, leadingWidth)
	if !ok {
		return Line{Number: number, Raw: raw, Kind: Malformed, Malformed: MalformedContent{Reason: reason}}
	}
	return Line{Number: number, Raw: raw, Kind: Rule, Rule: rule}
}

func parseSectionHeader(content string) (SectionHeaderContent, bool) {
	m := sectionHeaderPattern.FindStringSubmatch(content)
	if m == nil {
		return SectionHeaderContent{}, false
	}
	h := SectionHeaderContent{
		Name:          m[2],
		Optional:      m[1] == "^",
		ApprovalCount: -1,
	}
	if m[3] != "" {
		n, err := strconv.Atoi(m[3])
		if err == nil {
			h.ApprovalCount = n
		}
	}
	if strings.TrimSpace(m[4]) != "" {
		fields := strings.Fields(m[4])
		base := len(content) - len(m[4])
		cursor := base
		for _, f := range fields {
			idx := strings.Index(content[cursor:], f)
			start := cursor + idx
			end := start + len(f)
			h.DefaultOwners = append(h.DefaultOwners, Owner{Token: f, Span: Span{Start: start, End: end}})
			cursor = end
		}
	}
	return h, true
}

// parseRule tokenises content by whitespace with no quoting: the first
// token is the pattern, subsequent tokens up to an inline '#' are
// owners, and everything from '#' onward (inclusive) is the trailing
// comment. Returns ok=false with a reason when the pattern/owner
// portion is incoherent: either no pattern token can be extracted at
// all, or the bytes making up the pattern and owner tokens are not a
// well-formed line (invalid UTF-8, or a control byte that can't be part
// of any token) per spec precedence rule 5.
func parseRule(content string, leadingWidth int) (RuleContent, string, bool) {
	commentStart := strings.IndexByte(content, '#')

	body := content
	var commentSpan Span
	hasComment := false
	if commentStart >= 0 {
		body = content[:commentStart]
		commentSpan = Span{Start: commentStart, End: len(content)}
		hasComment = true
	}

	if hasInvalidByteSequence(body) {
		return RuleContent{}, "invalid byte sequence", false
	}

	fields, offsets := fieldsWithOffsets(body)
	if len(fields) == 0 {
		return RuleContent{}, "missing pattern token", false
	}

	rc := RuleContent{
		Pattern:     fields[0],
		PatternSpan: Span{Start: offsets[0], End: offsets[0] + len(fields[0])},
		CommentSpan: commentSpan,
		HasComment:  hasComment,
	}
	for i := 1; i < len(fields); i++ {
		rc.Owners = append(rc.Owners, Owner{
			Token: fields[i],
			Span:  Span{Start: offsets[i], End: offsets[i] + len(fields[i])},
		})
	}
	_ = leadingWidth
	return rc, "", true
}

// hasInvalidByteSequence reports whether s (the pattern/owners portion
// of a line, with any trailing comment already stripped) contains
// invalid UTF-8 or a control byte other than the tab used to separate
// tokens. A pattern or owner token can't coherently contain either, so
// their presence means the line fails precedence rule 5 rather than
// parsing as a Rule.
func hasInvalidByteSequence(s string) bool {
	if !utf8.ValidString(s) {
		return true
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 && s[i] != '\t' {
			return true
		}
	}
	return false
}

// fieldsWithOffsets splits s on whitespace runs (spaces and tabs) and
// returns each field alongside its byte offset within s.
func fieldsWithOffsets(s string) ([]string, []int) {
	var fields []string
	var offsets []int
	i := 0
	for i < len(s) {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= len(s) {
			break
		}
		start := i
		for i < len(s) && s[i] != ' ' && s[i] != '\t' {
			i++
		}
		fields = append(fields, s[start:i])
		offsets = append(offsets, start)
	}
	return fields, offsets
}
