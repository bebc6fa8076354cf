// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diagnostics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiosilence/codeowners-lsp/internal/manifest"
	"github.com/radiosilence/codeowners-lsp/internal/match"
	"github.com/radiosilence/codeowners-lsp/internal/validate"
)

// buildTable compiles every Rule line in doc and sweeps files, returning
// the table plus any per-line compile errors, mirroring what a session
// does before calling Build.
func buildTable(t *testing.T, doc *manifest.Document, files []string) (*match.Table, map[int]error) {
	t.Helper()
	var rules []match.Rule
	errs := make(map[int]error)
	for _, line := range doc.Rules() {
		p, err := match.Compile(line.Rule.Pattern)
		if err != nil {
			errs[line.Number] = err
			rules = append(rules, match.Rule{Line: line.Number, Owners: ownerTokens(line)})
			continue
		}
		rules = append(rules, match.Rule{Line: line.Number, Pattern: p, Owners: ownerTokens(line)})
	}
	return match.Sweep(rules, files), errs
}

func ownerTokens(line manifest.Line) []string {
	var out []string
	for _, o := range line.Rule.Owners {
		out = append(out, o.Token)
	}
	return out
}

func TestBuild_DeadAndShadowedRules(t *testing.T) {
	// scenario 2: two earlier rules both match the repository's only
	// file, /a/b, but are fully overridden by a third identical-pattern
	// rule; a fourth rule matches nothing in the repository at all.
	doc := manifest.Parse("/a/*\t@x\n/a/b\t@y\n/a/*\t@z\n*.rs\t@nobody\n")
	files := []string{"a/b"}

	table, errs := buildTable(t, doc, files)
	require.Empty(t, errs)

	issues := Build(doc, table, errs, nil, nil, DefaultConfig())

	var gotDeadLine0, gotDeadLine1, gotNoMatches bool
	for _, iss := range issues {
		if iss.Code == DeadRule && iss.Line == 0 {
			gotDeadLine0 = true
		}
		if iss.Code == DeadRule && iss.Line == 1 {
			gotDeadLine1 = true
		}
		if iss.Code == NoMatches && iss.Line == 3 {
			gotNoMatches = true
		}
	}
	assert.True(t, gotDeadLine0, "expected dead-rule on line 0")
	assert.True(t, gotDeadLine1, "expected dead-rule on line 1")
	assert.True(t, gotNoMatches, "expected no-matches on line 3 (*.rs matches nothing)")
}

func TestBuild_InvalidPattern(t *testing.T) {
	doc := manifest.Parse("src/**.ts\t@a\n")
	table, errs := buildTable(t, doc, nil)
	require.NotEmpty(t, errs)

	issues := Build(doc, table, errs, nil, nil, DefaultConfig())
	require.Len(t, issues, 1)
	assert.Equal(t, InvalidPattern, issues[0].Code)
	assert.Equal(t, Error, issues[0].Severity)
	assert.Equal(t, doc.Lines[0].Rule.PatternSpan, issues[0].Range)
}

func TestBuild_NoOwners(t *testing.T) {
	doc := manifest.Parse("*.go\n")
	table, errs := buildTable(t, doc, []string{"main.go"})
	issues := Build(doc, table, errs, nil, nil, DefaultConfig())

	require.Len(t, issues, 1)
	assert.Equal(t, NoOwners, issues[0].Code)
}

func TestBuild_DuplicateOwner(t *testing.T) {
	doc := manifest.Parse("*.go\t@a\t@a\n")
	table, errs := buildTable(t, doc, []string{"main.go"})
	issues := Build(doc, table, errs, nil, nil, DefaultConfig())

	require.Len(t, issues, 1)
	assert.Equal(t, DuplicateOwner, issues[0].Code)
	assert.Equal(t, doc.Lines[0].Rule.Owners[1].Span, issues[0].Range)
}

func TestBuild_InvalidAndUnknownOwner(t *testing.T) {
	doc := manifest.Parse("*.go\t@bad\t@unseen\n")
	table, errs := buildTable(t, doc, []string{"main.go"})

	lookup := func(token string) validate.Record {
		if validate.CanonicalKey(token) == "bad" {
			return validate.Record{State: validate.Invalid, Reason: "not found", FetchedAt: time.Now()}
		}
		return validate.Record{State: validate.Unknown}
	}

	issues := Build(doc, table, errs, lookup, nil, DefaultConfig())

	var gotInvalid, gotUnknown bool
	for _, iss := range issues {
		if iss.Code == InvalidOwner {
			gotInvalid = true
			assert.Equal(t, doc.Lines[0].Rule.Owners[0].Span, iss.Range)
		}
		if iss.Code == UnknownOwner {
			gotUnknown = true
			assert.Equal(t, doc.Lines[0].Rule.Owners[1].Span, iss.Range)
		}
	}
	assert.True(t, gotInvalid)
	assert.True(t, gotUnknown)
}

func TestBuild_MalformedLine(t *testing.T) {
	doc := manifest.Parse("\x00\n")
	require.Equal(t, manifest.Malformed, doc.Lines[0].Kind)

	table := &match.Table{}
	issues := Build(doc, table, nil, nil, nil, DefaultConfig())

	require.Len(t, issues, 1)
	assert.Equal(t, MalformedLine, issues[0].Code)
	assert.Equal(t, Error, issues[0].Severity)
	assert.Equal(t, "invalid byte sequence", issues[0].Message)
}

func TestBuild_FileNotOwnedIsOffByDefault(t *testing.T) {
	doc := manifest.Parse("*.go\t@a\n")
	table, errs := buildTable(t, doc, []string{"main.go"})

	issues := Build(doc, table, errs, nil, []string{"untouched.md"}, DefaultConfig())
	for _, iss := range issues {
		assert.NotEqual(t, FileNotOwned, iss.Code)
	}

	cfg := DefaultConfig()
	cfg.Severities[FileNotOwned] = Warning
	issues = Build(doc, table, errs, nil, []string{"untouched.md"}, cfg)

	require.Len(t, issues, 1)
	assert.Equal(t, FileNotOwned, issues[0].Code)
	assert.Equal(t, Warning, issues[0].Severity)
	assert.Equal(t, manifest.Span{Start: 0, End: len(doc.Text())}, issues[0].Range,
		"file-not-owned must anchor to the full document range, not offset zero")
}

func TestBuild_SeverityOffSuppressesKind(t *testing.T) {
	doc := manifest.Parse("*.go\n")
	table, errs := buildTable(t, doc, []string{"main.go"})

	cfg := DefaultConfig()
	cfg.Severities[NoOwners] = Off
	issues := Build(doc, table, errs, nil, nil, cfg)
	assert.Empty(t, issues)
}
