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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiosilence/codeowners-lsp/internal/diagnostics"
	"github.com/radiosilence/codeowners-lsp/internal/lspwire"
	"github.com/radiosilence/codeowners-lsp/internal/repoindex"
	"github.com/radiosilence/codeowners-lsp/internal/validate"
)

const manifestURI = "file:///repo/CODEOWNERS"

func newTestIndex(t *testing.T, files []string) *repoindex.Index {
	t.Helper()
	enum := repoindex.FileEnumeratorFunc(func(ctx context.Context, root string) ([]string, error) {
		return files, nil
	})
	return repoindex.New("/repo", enum)
}

func newTestSession(t *testing.T, files []string, opts ...Option) *Session {
	t.Helper()
	return New("/repo", manifestURI, newTestIndex(t, files), diagnostics.DefaultConfig(), "@fallback-owner", "@fallback-team", opts...)
}

func TestSession_Change_RefusesStaleOrEqualVersion(t *testing.T) {
	s := newTestSession(t, nil)
	require.NoError(t, s.Open(manifestURI, "*.go\t@alice\n", 1))
	require.NoError(t, s.Change(manifestURI, "*.go\t@bob\n", 2))

	err := s.Change(manifestURI, "*.go\t@carol\n", 2)
	assert.ErrorIs(t, err, lspwire.ErrStaleVersion)

	err = s.Change(manifestURI, "*.go\t@carol\n", 1)
	assert.ErrorIs(t, err, lspwire.ErrStaleVersion)

	_, _, _, version, ok := s.snapshot()
	require.True(t, ok)
	assert.Equal(t, 2, version)
}

func TestSession_Close_DiscardsDocument(t *testing.T) {
	s := newTestSession(t, nil)
	require.NoError(t, s.Open(manifestURI, "*.go\t@alice\n", 1))
	require.NoError(t, s.Close(manifestURI))

	_, _, _, _, ok := s.snapshot()
	assert.False(t, ok)

	_, err := s.Hover(context.Background(), manifestURI, lspwire.Position{})
	assert.ErrorIs(t, err, lspwire.ErrUnknownDocument)
}

func TestSession_NonManifestURI_IsNoOpForLifecycle(t *testing.T) {
	s := newTestSession(t, nil)
	require.NoError(t, s.Open("file:///repo/other.go", "package main\n", 1))
	_, _, _, _, ok := s.snapshot()
	assert.False(t, ok)
}

func TestSession_Hover_PatternSpanReportsMatchCount(t *testing.T) {
	s := newTestSession(t, []string{"a.go", "b.go", "README.md"})
	require.NoError(t, s.Open(manifestURI, "*.go\t@alice\n", 1))

	result, err := s.Hover(context.Background(), manifestURI, lspwire.Position{Line: 0, Character: 1})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Contains(t, result.Contents.Value, "2 file(s)")
}

func TestSession_Hover_OwnerSpanUsesValidator(t *testing.T) {
	forge := &fakeForge{usersOK: map[string]validate.Identity{"alice": {DisplayName: "Alice Smith"}}}
	v := validate.New(t.TempDir(), forge)
	s := newTestSession(t, []string{"a.go"}, WithValidator(v))

	require.NoError(t, s.Open(manifestURI, "*.go\t@alice\n", 1))
	require.NoError(t, v.Refresh(context.Background(), []string{"@alice"}))

	result, err := s.Hover(context.Background(), manifestURI, lspwire.Position{Line: 0, Character: 6})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Contains(t, result.Contents.Value, "Alice Smith")
}

func TestSession_Hover_NonManifestFileReportsOwningRule(t *testing.T) {
	s := newTestSession(t, []string{"a.go"})
	require.NoError(t, s.Open(manifestURI, "*.go\t@alice\n", 1))

	result, err := s.Hover(context.Background(), "file:///repo/a.go", lspwire.Position{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Contains(t, result.Contents.Value, "@alice")
}

func TestSession_Hover_UnownedNonManifestFile(t *testing.T) {
	s := newTestSession(t, []string{"a.go"})
	require.NoError(t, s.Open(manifestURI, "*.md\t@alice\n", 1))

	result, err := s.Hover(context.Background(), "file:///repo/a.go", lspwire.Position{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "no owning rule", result.Contents.Value)
}

func TestSession_GotoDefinition_FromFileToManifestLine(t *testing.T) {
	s := newTestSession(t, []string{"a.go"})
	require.NoError(t, s.Open(manifestURI, "# header\n*.go\t@alice\n", 1))

	loc, err := s.GotoDefinition(context.Background(), "file:///repo/a.go", lspwire.Position{})
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, manifestURI, loc.URI)
	assert.Equal(t, 1, loc.Range.Start.Line)
}

func TestSession_GotoDefinition_NoOpInsideManifest(t *testing.T) {
	s := newTestSession(t, []string{"a.go"})
	require.NoError(t, s.Open(manifestURI, "*.go\t@alice\n", 1))

	loc, err := s.GotoDefinition(context.Background(), manifestURI, lspwire.Position{})
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestSession_InlayHints_ManifestShowsMatchCounts(t *testing.T) {
	s := newTestSession(t, []string{"a.go", "b.go"})
	require.NoError(t, s.Open(manifestURI, "*.go\t@alice\n", 1))

	hints, err := s.InlayHints(context.Background(), manifestURI, lspwire.Range{End: lspwire.Position{Line: 10}})
	require.NoError(t, err)
	require.Len(t, hints, 1)
	assert.Equal(t, "2 matches", hints[0].Label)
}

func TestSession_CodeActions_ManifestProposesRemoveDeadRule(t *testing.T) {
	s := newTestSession(t, []string{"a.go"})
	require.NoError(t, s.Open(manifestURI, "*.rb\t@alice\n*.go\t@bob\n", 1))

	actions, err := s.CodeActions(context.Background(), manifestURI, lspwire.Range{End: lspwire.Position{Line: 10}})
	require.NoError(t, err)

	var found bool
	for _, a := range actions {
		if a.Title == "Remove dead rule" {
			found = true
		}
	}
	assert.True(t, found, "expected a remove-dead-rule action, got %+v", actions)
}

func TestSession_CodeActions_FileProposesTakeOwnership(t *testing.T) {
	s := newTestSession(t, []string{"a.go"})
	require.NoError(t, s.Open(manifestURI, "*.md\t@alice\n", 1))

	actions, err := s.CodeActions(context.Background(), "file:///repo/a.go", lspwire.Range{})
	require.NoError(t, err)
	require.NotEmpty(t, actions)
	assert.Contains(t, actions[0].Title, "Take ownership")
	require.NotNil(t, actions[0].Edit)
	assert.Contains(t, actions[0].Edit.Changes, manifestURI)
}

func TestSession_Execute_RefusesStaleVersion(t *testing.T) {
	s := newTestSession(t, []string{"a.go"})
	require.NoError(t, s.Open(manifestURI, "*.md\t@alice\n", 1))

	_, err := s.Execute(context.Background(), lspwire.ExecuteCommandParams{
		Command:         CmdTakeOwnership,
		DocumentURI:     manifestURI,
		DocumentVersion: 99,
		Arguments:       []interface{}{"a.go", "@bob"},
	})
	assert.ErrorIs(t, err, lspwire.ErrStaleVersion)
}

func TestSession_Execute_RefusesUnknownDocumentURI(t *testing.T) {
	s := newTestSession(t, []string{"a.go"})
	require.NoError(t, s.Open(manifestURI, "*.md\t@alice\n", 1))

	_, err := s.Execute(context.Background(), lspwire.ExecuteCommandParams{
		Command:         CmdTakeOwnership,
		DocumentURI:     "file:///repo/other.txt",
		DocumentVersion: 1,
		Arguments:       []interface{}{"a.go", "@bob"},
	})
	assert.ErrorIs(t, err, lspwire.ErrUnknownDocument)
}

func TestSession_Execute_TakeOwnership_ProducesInsertionEdit(t *testing.T) {
	s := newTestSession(t, []string{"a.go"})
	require.NoError(t, s.Open(manifestURI, "*.md\t@alice\n", 1))

	edit, err := s.Execute(context.Background(), lspwire.ExecuteCommandParams{
		Command:         CmdTakeOwnership,
		DocumentURI:     manifestURI,
		DocumentVersion: 1,
		Arguments:       []interface{}{"a.go", "@bob"},
	})
	require.NoError(t, err)
	require.NotNil(t, edit)
	tes := edit.Changes[manifestURI]
	require.Len(t, tes, 1)
	assert.Contains(t, tes[0].NewText, "a.go")
	assert.Contains(t, tes[0].NewText, "@bob")
}

func TestSession_Execute_UnknownCommand(t *testing.T) {
	s := newTestSession(t, []string{"a.go"})
	require.NoError(t, s.Open(manifestURI, "*.md\t@alice\n", 1))

	_, err := s.Execute(context.Background(), lspwire.ExecuteCommandParams{
		Command:         "codeowners-lsp.doesNotExist",
		DocumentURI:     manifestURI,
		DocumentVersion: 1,
	})
	assert.ErrorIs(t, err, lspwire.ErrUnknownCommand)
}

func TestSession_Diagnostics_DegradesOnEnumerationFailure(t *testing.T) {
	enum := repoindex.FileEnumeratorFunc(func(ctx context.Context, root string) ([]string, error) {
		return nil, errors.New("boom")
	})
	idx := repoindex.New("/repo", enum)
	s := New("/repo", manifestURI, idx, diagnostics.DefaultConfig(), "", "")
	require.NoError(t, s.Open(manifestURI, "*.go\t@alice\n", 1))

	issues, err := s.Diagnostics(context.Background())
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestSession_Diagnostics_ReportsUnownedFile(t *testing.T) {
	cfg := diagnostics.DefaultConfig()
	cfg.Severities[diagnostics.FileNotOwned] = diagnostics.Warning

	enum := repoindex.FileEnumeratorFunc(func(ctx context.Context, root string) ([]string, error) {
		return []string{"a.go", "b.rb"}, nil
	})
	idx := repoindex.New("/repo", enum)
	s := New("/repo", manifestURI, idx, cfg, "", "")
	require.NoError(t, s.Open(manifestURI, "*.go\t@alice\n", 1))

	issues, err := s.Diagnostics(context.Background())
	require.NoError(t, err)

	var sawUnowned bool
	for _, iss := range issues {
		if iss.Code == diagnostics.FileNotOwned {
			sawUnowned = true
		}
	}
	assert.True(t, sawUnowned)
}

func TestSession_SuggestOwners_RequiresCommitHistory(t *testing.T) {
	s := newTestSession(t, []string{"a.go"})
	require.NoError(t, s.Open(manifestURI, "# empty\n", 1))

	_, err := s.SuggestOwners(context.Background(), 50)
	assert.Error(t, err)
}

func TestSession_SuggestOwners_WiresEditFromAuthoring(t *testing.T) {
	history := fakeHistory{"a.go": "40\tAda Lovelace <ada@example.com>\n"}
	s := newTestSession(t, []string{"a.go"}, WithCommitHistory(history))
	require.NoError(t, s.Open(manifestURI, "# empty\n", 1))

	suggestions, err := s.SuggestOwners(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "a.go", suggestions[0].Path)
	tes := suggestions[0].Edit.Changes[manifestURI]
	require.Len(t, tes, 1)
	assert.Contains(t, tes[0].NewText, "a.go")
}

// fakeForge is a minimal validate.ForgeClient for session-level tests;
// internal/validate's own test suite covers its behavior in depth.
type fakeForge struct {
	usersOK map[string]validate.Identity
}

func (f *fakeForge) ResolveUser(ctx context.Context, name string) (validate.Identity, error) {
	if id, ok := f.usersOK[name]; ok {
		return id, nil
	}
	return validate.Identity{}, validate.ErrNotFound
}

func (f *fakeForge) ResolveTeam(ctx context.Context, name string) (validate.Identity, error) {
	return validate.Identity{}, validate.ErrNotFound
}

// fakeHistory is a minimal authoring.CommitHistory for session-level
// tests; internal/authoring's own test suite covers parsing in depth.
type fakeHistory map[string]string

func (f fakeHistory) Shortlog(ctx context.Context, pathspec string) (string, error) {
	if out, ok := f[pathspec]; ok {
		return out, nil
	}
	return "", nil
}
