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
	"context"
	"fmt"
	"strings"

	"github.com/radiosilence/codeowners-lsp/internal/authoring"
	"github.com/radiosilence/codeowners-lsp/internal/diagnostics"
	"github.com/radiosilence/codeowners-lsp/internal/lspwire"
	"github.com/radiosilence/codeowners-lsp/internal/manifest"
	"github.com/radiosilence/codeowners-lsp/internal/match"
	"github.com/radiosilence/codeowners-lsp/internal/validate"
)

// exampleFileLimit bounds how many matching file paths a pattern hover
// surfaces alongside its match count.
const exampleFileLimit = 5

// Hover returns ownership information for the token under the cursor: in
// the manifest, the interpretation of a pattern (match count and example
// files) or an owner (its validation record); elsewhere, the owning
// rule for the queried repository file.
func (s *Session) Hover(ctx context.Context, uri string, pos lspwire.Position) (*lspwire.HoverResult, error) {
	doc, rules, _, _, ok := s.snapshot()
	if !ok {
		return nil, lspwire.ErrUnknownDocument
	}

	if uri == s.manifestURI {
		return s.hoverInManifest(ctx, doc, rules, pos)
	}
	return s.hoverInFile(rules, doc, s.pathForURI(uri)), nil
}

func (s *Session) hoverInManifest(ctx context.Context, doc *manifest.Document, rules []match.Rule, pos lspwire.Position) (*lspwire.HoverResult, error) {
	line, offset, ok := positionToLineOffset(doc, pos)
	if !ok || line.Kind != manifest.Rule {
		return nil, nil
	}
	rc := line.Rule

	if spanContains(rc.PatternSpan, offset) {
		table, files, err := s.sweepRepo(ctx, rules)
		if err != nil {
			return nil, err
		}
		idx := ruleIndexForLine(table, line.Number)
		if idx < 0 {
			return nil, nil
		}
		return &lspwire.HoverResult{
			Contents: lspwire.MarkupContent{Kind: "markdown", Value: patternHoverText(table, idx, files)},
			Range:    rangePtr(spanToRange(line, rc.PatternSpan)),
		}, nil
	}

	for _, owner := range rc.Owners {
		if spanContains(owner.Span, offset) {
			return &lspwire.HoverResult{
				Contents: lspwire.MarkupContent{Kind: "markdown", Value: s.ownerHoverText(owner.Token)},
				Range:    rangePtr(spanToRange(line, owner.Span)),
			}, nil
		}
	}

	return nil, nil
}

func (s *Session) hoverInFile(rules []match.Rule, doc *manifest.Document, path string) *lspwire.HoverResult {
	idx := match.Query(rules, path)
	if idx < 0 {
		return &lspwire.HoverResult{Contents: lspwire.MarkupContent{Kind: "plaintext", Value: "no owning rule"}}
	}
	r := rules[idx]
	return &lspwire.HoverResult{
		Contents: lspwire.MarkupContent{
			Kind:  "markdown",
			Value: fmt.Sprintf("owned by `%s` (line %d) — %s", r.Pattern.String(), r.Line+1, strings.Join(r.Owners, ", ")),
		},
	}
}

func patternHoverText(table *match.Table, idx int, files []string) string {
	r := table.Rules[idx]
	examples := matchingExamples(r, files, exampleFileLimit)
	text := fmt.Sprintf("`%s` matches %d file(s)", r.Pattern.String(), table.RawCount[idx])
	if len(examples) > 0 {
		text += "\n\n" + strings.Join(examples, "\n")
	}
	return text
}

func matchingExamples(r match.Rule, files []string, limit int) []string {
	if r.Pattern == nil {
		return nil
	}
	var out []string
	for _, f := range files {
		if r.Pattern.Match(f) {
			out = append(out, f)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

func (s *Session) ownerHoverText(token string) string {
	if s.validator == nil {
		return fmt.Sprintf("%s (owner validation disabled)", token)
	}
	rec := s.validator.Lookup(token)
	switch rec.State {
	case validate.Valid:
		text := fmt.Sprintf("%s — %s", token, rec.Identity.DisplayName)
		if rec.Stale {
			text += " (stale, refreshing)"
		}
		return text
	case validate.Invalid:
		return fmt.Sprintf("%s — invalid: %s", token, rec.Reason)
	default:
		return fmt.Sprintf("%s — not yet validated", token)
	}
}

func ruleIndexForLine(table *match.Table, lineNumber int) int {
	for i, r := range table.Rules {
		if r.Line == lineNumber {
			return i
		}
	}
	return -1
}

func rangePtr(r lspwire.Range) *lspwire.Range { return &r }

// InlayHints reports, for the manifest, each rule's match count at its
// line end; for other files, the owning rule summary at line zero.
func (s *Session) InlayHints(ctx context.Context, uri string, rng lspwire.Range) ([]lspwire.InlayHint, error) {
	doc, rules, _, _, ok := s.snapshot()
	if !ok {
		return nil, lspwire.ErrUnknownDocument
	}

	if uri == s.manifestURI {
		table, _, err := s.sweepRepo(ctx, rules)
		if err != nil {
			return nil, err
		}
		var hints []lspwire.InlayHint
		for i, r := range table.Rules {
			if r.Line < rng.Start.Line || r.Line > rng.End.Line {
				continue
			}
			bare := manifest.Bare(doc.Lines[r.Line].Raw)
			hints = append(hints, lspwire.InlayHint{
				Position:    lspwire.Position{Line: r.Line, Character: runeCount(bare)},
				Label:       fmt.Sprintf("%d matches", table.OwnedCount[i]),
				PaddingLeft: true,
			})
		}
		return hints, nil
	}

	path := s.pathForURI(uri)
	idx := match.Query(rules, path)
	label := "no owning rule"
	if idx >= 0 {
		r := rules[idx]
		label = fmt.Sprintf("owned by %s", strings.Join(r.Owners, ", "))
	}
	return []lspwire.InlayHint{{Position: lspwire.Position{Line: 0, Character: 0}, Label: label}}, nil
}

// CodeActions enumerates every authoring operation applicable at range.
func (s *Session) CodeActions(ctx context.Context, uri string, rng lspwire.Range) ([]lspwire.CodeAction, error) {
	doc, rules, _, _, ok := s.snapshot()
	if !ok {
		return nil, lspwire.ErrUnknownDocument
	}

	if uri == s.manifestURI {
		return s.manifestCodeActions(ctx, doc, rules, rng)
	}
	return s.fileCodeActions(doc, rules, s.pathForURI(uri)), nil
}

func (s *Session) manifestCodeActions(ctx context.Context, doc *manifest.Document, rules []match.Rule, rng lspwire.Range) ([]lspwire.CodeAction, error) {
	table, _, err := s.sweepRepo(ctx, rules)
	if err != nil {
		return nil, err
	}

	var actions []lspwire.CodeAction
	for i, r := range table.Rules {
		if r.Line < rng.Start.Line || r.Line > rng.End.Line {
			continue
		}
		if table.IsPatternDead(i) || table.IsShadowed(i) {
			edit := authoring.RemoveDeadRule(doc, r.Line)
			actions = append(actions, s.quickFix("Remove dead rule", doc, edit))
		}
		if hasDuplicateOwners(doc.Lines[r.Line].Rule) {
			edit := authoring.DedupeOwners(doc, r.Line)
			actions = append(actions, s.quickFix("Remove duplicate owners", doc, edit))
		}
	}

	if !lastRuleIsCatchAll(doc) {
		if s.individual != "" {
			if edit, err := authoring.AddCatchAll(doc, s.individual); err == nil {
				actions = append(actions, s.quickFix(fmt.Sprintf("Add catch-all rule for %s", s.individual), doc, edit))
			}
		}
		if s.team != "" {
			if edit, err := authoring.AddCatchAll(doc, s.team); err == nil {
				actions = append(actions, s.quickFix(fmt.Sprintf("Add catch-all rule for %s", s.team), doc, edit))
			}
		}
	}

	return actions, nil
}

func (s *Session) fileCodeActions(doc *manifest.Document, rules []match.Rule, path string) []lspwire.CodeAction {
	if match.Query(rules, path) >= 0 {
		return nil
	}
	var actions []lspwire.CodeAction
	if s.individual != "" {
		edit := authoring.TakeOwnership(doc, path, s.individual)
		actions = append(actions, s.quickFix(fmt.Sprintf("Take ownership as %s", s.individual), doc, edit))
	}
	if s.team != "" {
		edit := authoring.TakeOwnership(doc, path, s.team)
		actions = append(actions, s.quickFix(fmt.Sprintf("Take ownership as %s", s.team), doc, edit))
	}
	return actions
}

func (s *Session) quickFix(title string, doc *manifest.Document, edit manifest.Edit) lspwire.CodeAction {
	te := textEditFromEdit(doc, edit)
	return lspwire.CodeAction{
		Title: title,
		Kind:  "quickfix",
		Edit:  workspaceEditFrom(s.manifestURI, te),
	}
}

func hasDuplicateOwners(rc manifest.RuleContent) bool {
	seen := make(map[string]bool, len(rc.Owners))
	for _, o := range rc.Owners {
		key := validate.CanonicalKey(o.Token)
		if seen[key] {
			return true
		}
		seen[key] = true
	}
	return false
}

func lastRuleIsCatchAll(doc *manifest.Document) bool {
	rules := doc.Rules()
	return len(rules) > 0 && rules[len(rules)-1].Rule.Pattern == "*"
}

// GotoDefinition returns the location of a non-manifest file's owning
// rule; inside the manifest itself it is a no-op per spec §4.7.
func (s *Session) GotoDefinition(ctx context.Context, uri string, pos lspwire.Position) (*lspwire.Location, error) {
	if uri == s.manifestURI {
		return nil, nil
	}
	doc, rules, _, _, ok := s.snapshot()
	if !ok {
		return nil, lspwire.ErrUnknownDocument
	}

	idx := match.Query(rules, s.pathForURI(uri))
	if idx < 0 {
		return nil, nil
	}
	line := rules[idx].Line
	return &lspwire.Location{URI: s.manifestURI, Range: fullLineRange(doc, line)}, nil
}

// Execute runs a prepared authoring operation identified by
// params.Command and returns the edit, refusing to run against a
// document version that has since advanced.
func (s *Session) Execute(ctx context.Context, params lspwire.ExecuteCommandParams) (*lspwire.WorkspaceEdit, error) {
	if params.DocumentURI != s.manifestURI {
		return nil, lspwire.ErrUnknownDocument
	}
	doc, _, _, version, ok := s.snapshot()
	if !ok {
		return nil, lspwire.ErrUnknownDocument
	}
	if params.DocumentVersion != version {
		return nil, lspwire.ErrStaleVersion
	}

	var edit manifest.Edit
	switch params.Command {
	case CmdTakeOwnership:
		path, err := argString(params.Arguments, 0)
		if err != nil {
			return nil, err
		}
		owner, err := argString(params.Arguments, 1)
		if err != nil {
			return nil, err
		}
		edit = authoring.TakeOwnership(doc, path, owner)

	case CmdRemoveDeadRule:
		line, err := argInt(params.Arguments, 0)
		if err != nil {
			return nil, err
		}
		edit = authoring.RemoveDeadRule(doc, line)

	case CmdDedupeOwners:
		line, err := argInt(params.Arguments, 0)
		if err != nil {
			return nil, err
		}
		edit = authoring.DedupeOwners(doc, line)

	case CmdAddCatchAll:
		owner, err := argString(params.Arguments, 0)
		if err != nil {
			return nil, err
		}
		var caErr error
		edit, caErr = authoring.AddCatchAll(doc, owner)
		if caErr != nil {
			return nil, caErr
		}

	default:
		return nil, lspwire.ErrUnknownCommand
	}

	te := textEditFromEdit(doc, edit)
	return workspaceEditFrom(s.manifestURI, te), nil
}

// SuggestedAction pairs a Suggestion Engine result with the
// take-ownership edit execute would produce, per SPEC_FULL's
// suggest_owners capability.
type SuggestedAction struct {
	authoring.OwnerSuggestion
	Edit lspwire.WorkspaceEdit
}

// SuggestOwners surfaces candidate ownership rules for the manifest's
// currently-unowned files, each carrying a prepared-but-not-yet-applied
// edit.
func (s *Session) SuggestOwners(ctx context.Context, minConfidence float64) ([]SuggestedAction, error) {
	if s.history == nil {
		return nil, fmt.Errorf("session: commit history collaborator not configured")
	}
	doc, rules, _, _, ok := s.snapshot()
	if !ok {
		return nil, lspwire.ErrUnknownDocument
	}

	table, files, err := s.sweepRepo(ctx, rules)
	if err != nil {
		return nil, err
	}

	suggestions, err := authoring.SuggestOwners(ctx, s.history, unownedFiles(table, files), minConfidence)
	if err != nil {
		return nil, err
	}

	out := make([]SuggestedAction, 0, len(suggestions))
	for _, sg := range suggestions {
		edit := authoring.TakeOwnership(doc, strings.TrimSuffix(sg.Path, "/"), sg.SuggestedOwner)
		te := textEditFromEdit(doc, edit)
		out = append(out, SuggestedAction{OwnerSuggestion: sg, Edit: *workspaceEditFrom(s.manifestURI, te)})
	}
	return out, nil
}

// Diagnostics runs the full diagnostics set for the current document,
// used both by the transport collaborator's publish-diagnostics path
// and by the CLI's headless batch mode. An enumeration failure degrades
// to an empty result per spec §7's environment-error policy rather than
// failing the whole session.
func (s *Session) Diagnostics(ctx context.Context) ([]diagnostics.Issue, error) {
	doc, rules, patternErrors, _, ok := s.snapshot()
	if !ok {
		return nil, lspwire.ErrUnknownDocument
	}

	table, files, err := s.sweepRepo(ctx, rules)
	if err != nil {
		s.logger.Warn("repository enumeration failed, degrading to empty diagnostics", "error", err)
		return []diagnostics.Issue{}, nil
	}

	issues := diagnostics.Build(doc, table, patternErrors, s.ownerLookup(), unownedFiles(table, files), s.cfg)
	return issues, nil
}

func textEditFromEdit(doc *manifest.Document, edit manifest.Edit) lspwire.TextEdit {
	return lspwire.TextEdit{
		Range: lspwire.Range{
			Start: offsetToPosition(doc, edit.Start),
			End:   offsetToPosition(doc, edit.End),
		},
		NewText: edit.Replacement,
	}
}

func workspaceEditFrom(uri string, te lspwire.TextEdit) *lspwire.WorkspaceEdit {
	return &lspwire.WorkspaceEdit{Changes: map[string][]lspwire.TextEdit{uri: {te}}}
}
