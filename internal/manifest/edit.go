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

// Edit is a pure text replacement over a document's byte range. The
// authoring engine returns Edits; nothing in this package or the
// authoring package performs I/O to apply one.
type Edit struct {
	Start       int
	End         int
	Replacement string
}

// Apply returns the text that results from replacing text[Start:End]
// with Replacement. Edits must not overlap; callers applying several
// edits to the same text should apply them in descending Start order.
func Apply(text string, e Edit) string {
	return text[:e.Start] + e.Replacement + text[e.End:]
}

// LineOffset returns the byte offset of the first byte of line n within
// the document's full text, given the parsed lines. Returns len(text) if
// n == len(lines) (i.e. "end of document").
func LineOffset(lines []Line, n int) int {
	offset := 0
	for i := 0; i < n && i < len(lines); i++ {
		offset += len(lines[i].Raw)
	}
	return offset
}

// DefaultSeparator is the canonical pattern/owner separator writers
// emit: a single tab, per the manifest file format (readers accept any
// run of spaces or tabs, writers emit exactly this).
const DefaultSeparator = "\t"

// Bare strips a trailing line terminator (CRLF or LF) from raw. Exported
// for other packages (e.g. authoring) that need a line's content without
// its terminator when computing edit ranges.
func Bare(raw string) string {
	return bareText(raw)
}
