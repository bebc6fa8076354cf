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

import "strings"

// Subsumes reports whether every path matched by a is also matched by
// b — i.e. a's raw matches are a subset of b's raw matches — using a
// structural comparison of the two patterns' text rather than a full
// repository sweep. It is a conservative structural approximation (it
// may return false for a pair that is semantically subsuming but
// textually dissimilar); callers that need an exact answer should
// compare raw match sets directly. Only this package's tests call it;
// the diagnostics engine classifies shadowed rules from sweep counts.
func Subsumes(a, b *Pattern) bool {
	if a.raw == b.raw {
		return true
	}
	if isMatchAll(b) {
		return true
	}
	if isMatchAll(a) {
		return false
	}

	if aExt, ok := extensionOf(a); ok {
		if bExt, ok := extensionOf(b); ok {
			return strings.HasSuffix(aExt, bExt)
		}
	}

	aDir := strings.Trim(a.trimmedDir, "/")
	bDir := strings.Trim(b.trimmedDir, "/")
	if aDir == bDir {
		return true
	}
	if startsWithDir(aDir, bDir) {
		return true
	}
	return false
}

func isMatchAll(p *Pattern) bool {
	return p.raw == "*" || p.raw == "**" || p.raw == "/*" || p.raw == "/**"
}

// extensionOf reports whether p is a bare single-segment extension
// pattern of the form "*.ext" (no leading '/', no embedded '/'), and if
// so returns ".ext".
func extensionOf(p *Pattern) (string, bool) {
	raw := p.raw
	if strings.Contains(raw, "/") {
		return "", false
	}
	if !strings.HasPrefix(raw, "*") {
		return "", false
	}
	ext := strings.TrimPrefix(raw, "*")
	if ext == "" || strings.Contains(ext, "*") {
		return "", false
	}
	return ext, true
}

// startsWithDir reports whether path is dir itself or a path nested
// under dir (dir followed by '/').
func startsWithDir(path, dir string) bool {
	if dir == "" {
		return false
	}
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+"/")
}
