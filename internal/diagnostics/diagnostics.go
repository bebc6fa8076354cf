// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diagnostics combines parser output, matcher results, and
// validator state into a flat set of issues, each anchored to the
// narrowest byte range that identifies its cause.
//
// # Design Principles
//
// Build is a pure function: given the same document, match table,
// pattern-compile errors, owner lookups, and severity configuration, it
// always produces the same issue set. It owns no state of its own and
// performs no I/O.
package diagnostics

import (
	"fmt"

	"github.com/radiosilence/codeowners-lsp/internal/manifest"
	"github.com/radiosilence/codeowners-lsp/internal/match"
	"github.com/radiosilence/codeowners-lsp/internal/validate"
)

// Code identifies an issue kind.
type Code string

const (
	InvalidPattern Code = "invalid-pattern"
	MalformedLine  Code = "malformed-line"
	NoMatches      Code = "no-matches"
	DeadRule       Code = "dead-rule"
	NoOwners       Code = "no-owners"
	DuplicateOwner Code = "duplicate-owner"
	InvalidOwner   Code = "invalid-owner"
	UnknownOwner   Code = "unknown-owner"
	FileNotOwned   Code = "file-not-owned"
)

// Severity is the configured importance of an issue.
type Severity int

const (
	// Off suppresses the issue kind entirely.
	Off Severity = iota
	Hint
	Info
	Warning
	Error
)

// String returns the human-readable name of the severity.
func (s Severity) String() string {
	switch s {
	case Hint:
		return "hint"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "off"
	}
}

// Config maps each Code to the severity it should be reported at.
// Missing entries fall back to DefaultConfig's value for that code.
type Config struct {
	Severities map[Code]Severity
}

// DefaultConfig returns the spec's default severity table.
func DefaultConfig() Config {
	return Config{Severities: map[Code]Severity{
		InvalidPattern: Error,
		MalformedLine:  Error,
		NoMatches:      Warning,
		DeadRule:       Warning,
		NoOwners:       Warning,
		DuplicateOwner: Info,
		InvalidOwner:   Warning,
		UnknownOwner:   Hint,
		FileNotOwned:   Off,
	}}
}

func (c Config) severity(code Code) Severity {
	if c.Severities != nil {
		if s, ok := c.Severities[code]; ok {
			return s
		}
	}
	return DefaultConfig().Severities[code]
}

// Issue is one diagnostic: a byte range within a single line (or, for
// document-scoped issues such as FileNotOwned, a whole-document byte
// range starting at offset 0, with Line set to the document's synthetic
// trailing line), a kind, a severity, and a human message.
type Issue struct {
	Line     int
	Range    manifest.Span
	Code     Code
	Severity Severity
	Message  string
}

// OwnerLookup resolves a canonical owner token to its current
// validation record. Implementations are expected to be backed by
// validate.Validator.Lookup.
type OwnerLookup func(token string) validate.Record

// Build produces the full issue set for one document evaluation.
//
//   - doc is the parsed manifest.
//   - table is the Matcher's sweep result over the same rules doc.Rules()
//     compiled to, in the same order.
//   - patternErrors maps a Rule line's Number to the error Compile
//     returned for its pattern, for lines whose pattern failed to parse.
//   - lookup resolves owner tokens against the Validator; pass nil to
//     skip owner validation issues entirely (e.g. before a first refresh).
//   - unownedFiles lists repository files, outside the manifest's own
//     matched set, known to have no owning rule — only consulted when
//     FileNotOwned is not Off.
func Build(doc *manifest.Document, table *match.Table, patternErrors map[int]error, lookup OwnerLookup, unownedFiles []string, cfg Config) []Issue {
	var issues []Issue

	ruleIdxByLine := make(map[int]int, len(table.Rules))
	for i, r := range table.Rules {
		ruleIdxByLine[r.Line] = i
	}

	for _, line := range doc.Lines {
		switch line.Kind {
		case manifest.Malformed:
			if sev := cfg.severity(MalformedLine); sev != Off {
				issues = append(issues, Issue{
					Line:     line.Number,
					Range:    fullLineSpan(line),
					Code:     MalformedLine,
					Severity: sev,
					Message:  malformedMessage(line),
				})
			}
		case manifest.Rule:
			issues = append(issues, ruleIssues(line, table, ruleIdxByLine, patternErrors, lookup, cfg)...)
		}
	}

	if sev := cfg.severity(FileNotOwned); sev != Off {
		line, span := documentEndSpan(doc)
		for _, f := range unownedFiles {
			issues = append(issues, Issue{
				Line:     line,
				Range:    span,
				Code:     FileNotOwned,
				Severity: sev,
				Message:  fmt.Sprintf("%q has no owning rule", f),
			})
		}
	}

	return issues
}

func ruleIssues(line manifest.Line, table *match.Table, ruleIdxByLine map[int]int, patternErrors map[int]error, lookup OwnerLookup, cfg Config) []Issue {
	var out []Issue
	rc := line.Rule

	if err, bad := patternErrors[line.Number]; bad {
		if sev := cfg.severity(InvalidPattern); sev != Off {
			out = append(out, Issue{
				Line:     line.Number,
				Range:    rc.PatternSpan,
				Code:     InvalidPattern,
				Severity: sev,
				Message:  fmt.Sprintf("invalid pattern %q: %v", rc.Pattern, err),
			})
		}
		// A rule with an unparseable pattern cannot also be meaningfully
		// classified as dead, shadowed, or unowned by the matcher (it was
		// excluded from the sweep entirely), so no further issues apply.
		return out
	}

	if i, ok := ruleIdxByLine[line.Number]; ok {
		if table.IsPatternDead(i) {
			if sev := cfg.severity(NoMatches); sev != Off {
				out = append(out, Issue{
					Line:     line.Number,
					Range:    rc.PatternSpan,
					Code:     NoMatches,
					Severity: sev,
					Message:  fmt.Sprintf("pattern %q matches no files in the repository", rc.Pattern),
				})
			}
		} else if table.IsShadowed(i) {
			if sev := cfg.severity(DeadRule); sev != Off {
				out = append(out, Issue{
					Line:     line.Number,
					Range:    fullLineSpan(line),
					Code:     DeadRule,
					Severity: sev,
					Message:  "rule is always shadowed by a later, more specific rule",
				})
			}
		}
	}

	if len(rc.Owners) == 0 {
		if sev := cfg.severity(NoOwners); sev != Off {
			out = append(out, Issue{
				Line:     line.Number,
				Range:    fullLineSpan(line),
				Code:     NoOwners,
				Severity: sev,
				Message:  "rule has no owners",
			})
		}
	}

	out = append(out, ownerIssues(line, rc, lookup, cfg)...)
	return out
}

func ownerIssues(line manifest.Line, rc manifest.RuleContent, lookup OwnerLookup, cfg Config) []Issue {
	var out []Issue
	seen := make(map[string]bool, len(rc.Owners))

	for _, owner := range rc.Owners {
		key := validate.CanonicalKey(owner.Token)
		if seen[key] {
			if sev := cfg.severity(DuplicateOwner); sev != Off {
				out = append(out, Issue{
					Line:     line.Number,
					Range:    owner.Span,
					Code:     DuplicateOwner,
					Severity: sev,
					Message:  fmt.Sprintf("owner %s is repeated in this rule", owner.Token),
				})
			}
			continue
		}
		seen[key] = true

		if lookup == nil {
			continue
		}
		rec := lookup(owner.Token)
		switch rec.State {
		case validate.Invalid:
			if sev := cfg.severity(InvalidOwner); sev != Off {
				out = append(out, Issue{
					Line:     line.Number,
					Range:    owner.Span,
					Code:     InvalidOwner,
					Severity: sev,
					Message:  fmt.Sprintf("owner %s could not be validated: %s", owner.Token, rec.Reason),
				})
			}
		case validate.Unknown:
			if sev := cfg.severity(UnknownOwner); sev != Off {
				out = append(out, Issue{
					Line:     line.Number,
					Range:    owner.Span,
					Code:     UnknownOwner,
					Severity: sev,
					Message:  fmt.Sprintf("owner %s has not yet been validated", owner.Token),
				})
			}
		}
	}
	return out
}

func malformedMessage(line manifest.Line) string {
	if line.Malformed.Reason != "" {
		return line.Malformed.Reason
	}
	return "line could not be parsed"
}

func fullLineSpan(line manifest.Line) manifest.Span {
	return manifest.Span{Start: 0, End: len(line.Raw)}
}

// documentEndSpan returns the synthetic trailing line index and the full
// document range a document-scoped issue (FileNotOwned) attaches to: the
// range covers the whole document up to the byte offset immediately
// before any run of trailing blank lines, the same end-of-file offset the
// Authoring Engine computes for its own end-of-file edits.
func documentEndSpan(doc *manifest.Document) (int, manifest.Span) {
	end := len(doc.Lines)
	for end > 0 && doc.Lines[end-1].Kind == manifest.Blank {
		end--
	}
	offset := manifest.LineOffset(doc.Lines, end)
	return end, manifest.Span{Start: 0, End: offset}
}
