// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"unicode/utf8"

	"github.com/radiosilence/codeowners-lsp/internal/lspwire"
	"github.com/radiosilence/codeowners-lsp/internal/manifest"
)

// Position.Character is tracked in rune counts rather than the LSP
// specification's UTF-16 code units: manifest patterns and owner tokens
// are ASCII in every real-world file this engine has seen, and
// negotiating a client's offset encoding is a transport concern, not a
// core one.

// spanToRange converts a line-relative manifest.Span into a document
// Range.
func spanToRange(line manifest.Line, span manifest.Span) lspwire.Range {
	return lspwire.Range{
		Start: lspwire.Position{Line: line.Number, Character: runeCount(line.Raw[:span.Start])},
		End:   lspwire.Position{Line: line.Number, Character: runeCount(line.Raw[:span.End])},
	}
}

// fullLineRange returns the Range covering line n's content, excluding
// its terminator.
func fullLineRange(doc *manifest.Document, n int) lspwire.Range {
	line := doc.Lines[n]
	bare := manifest.Bare(line.Raw)
	return lspwire.Range{
		Start: lspwire.Position{Line: n, Character: 0},
		End:   lspwire.Position{Line: n, Character: runeCount(bare)},
	}
}

// positionToLineOffset converts a Position into a byte offset within its
// own line's raw text, returning ok=false if the position names a line
// or column past the document's end.
func positionToLineOffset(doc *manifest.Document, pos lspwire.Position) (line manifest.Line, offset int, ok bool) {
	if pos.Line < 0 || pos.Line >= len(doc.Lines) {
		return manifest.Line{}, 0, false
	}
	line = doc.Lines[pos.Line]
	off, ok := runeIndexToByteOffset(line.Raw, pos.Character)
	return line, off, ok
}

// offsetToPosition converts a whole-document byte offset (as produced by
// manifest.Edit) into a Position, by locating the line it falls in.
func offsetToPosition(doc *manifest.Document, offset int) lspwire.Position {
	base := 0
	for _, line := range doc.Lines {
		end := base + len(line.Raw)
		if offset <= end {
			return lspwire.Position{Line: line.Number, Character: runeCount(line.Raw[:offset-base])}
		}
		base = end
	}
	return lspwire.Position{Line: len(doc.Lines), Character: 0}
}

// spanContains reports whether a line-relative byte offset falls inside
// span.
func spanContains(span manifest.Span, offset int) bool {
	return offset >= span.Start && offset < span.End
}

func runeCount(s string) int {
	return utf8.RuneCountInString(s)
}

func runeIndexToByteOffset(s string, idx int) (int, bool) {
	if idx < 0 {
		return 0, false
	}
	count := 0
	for i := range s {
		if count == idx {
			return i, true
		}
		count++
	}
	if count == idx {
		return len(s), true
	}
	return 0, false
}
