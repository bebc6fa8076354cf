// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package authoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHistory answers Shortlog from a fixed table keyed by pathspec,
// so tests don't need a real git repository.
type fakeHistory struct {
	byPathspec map[string]string
}

func (f *fakeHistory) Shortlog(_ context.Context, pathspec string) (string, error) {
	return f.byPathspec[pathspec], nil
}

func TestSuggestOwners_PrefersDirectoryOverFile(t *testing.T) {
	history := &fakeHistory{byPathspec: map[string]string{
		"src/*": "    40\tAda Lovelace <ada@example.com>\n    10\tGrace Hopper <grace@example.com>\n",
	}}

	suggestions, err := SuggestOwners(context.Background(), history, []string{"src/a.go", "src/b.go"}, 50)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "src/", suggestions[0].Path)
	assert.Equal(t, "@ada-lovelace", suggestions[0].SuggestedOwner)
	assert.Equal(t, 50, suggestions[0].TotalCommits)
}

func TestSuggestOwners_FallsBackToPerFileWhenDirectoryBelowThreshold(t *testing.T) {
	history := &fakeHistory{byPathspec: map[string]string{
		"src/*":    "    5\tAda Lovelace <ada@example.com>\n    5\tGrace Hopper <grace@example.com>\n",
		"src/a.go": "    20\tGrace Hopper <grace@example.com>\n",
	}}

	suggestions, err := SuggestOwners(context.Background(), history, []string{"src/a.go"}, 60)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "src/a.go", suggestions[0].Path)
	assert.Equal(t, "@grace-hopper", suggestions[0].SuggestedOwner)
}

func TestSuggestOwners_NoContributorsYieldsNoSuggestion(t *testing.T) {
	history := &fakeHistory{byPathspec: map[string]string{}}

	suggestions, err := SuggestOwners(context.Background(), history, []string{"src/a.go"}, 10)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestEmailToOwner_GitHubNoreplyWithNumericPrefix(t *testing.T) {
	got := emailToOwner("1234567+octocat@users.noreply.github.com", "The Octocat")
	assert.Equal(t, "@octocat", got)
}

func TestEmailToOwner_GitHubNoreplyWithoutNumericPrefix(t *testing.T) {
	got := emailToOwner("octocat@users.noreply.github.com", "The Octocat")
	assert.Equal(t, "@octocat", got)
}

func TestEmailToOwner_GitHubEmailDomain(t *testing.T) {
	got := emailToOwner("octocat@github.com", "The Octocat")
	assert.Equal(t, "@octocat", got)
}

func TestEmailToOwner_FallsBackToSlugifiedName(t *testing.T) {
	got := emailToOwner("ada@example.com", "Ada Lovelace")
	assert.Equal(t, "@ada-lovelace", got)
}

func TestEmailToOwner_UnslugifiableNameFallsBackToEmail(t *testing.T) {
	got := emailToOwner("x@example.com", "#")
	assert.Equal(t, "x@example.com", got)
}

func TestParseShortlog_ComputesConfidenceFromPercentageAndVolume(t *testing.T) {
	// 8 of 10 commits by the top contributor, 10 total commits:
	// (0.8*0.7 + 0.10*0.3) * 100 = 59
	suggestion := parseShortlog("    8\tAda Lovelace <ada@example.com>\n    2\tGrace Hopper <grace@example.com>\n", "src/a.go")
	require.NotNil(t, suggestion)
	assert.InDelta(t, 59.0, suggestion.Confidence, 0.001)
	assert.Equal(t, 10, suggestion.TotalCommits)
}
