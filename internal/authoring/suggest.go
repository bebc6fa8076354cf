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
	"path"
	"sort"
	"strconv"
	"strings"
)

// CommitHistory is the external collaborator SuggestOwners analyzes: a
// source of per-path commit authorship, abstracted away from any
// concrete VCS so this package stays unit-testable without a real git
// repository. A host wires this to `git shortlog -sne --no-merges HEAD
// -- <path>`.
type CommitHistory interface {
	// Shortlog returns raw `git shortlog -sne --no-merges` output for
	// pathspec (a file path, or a directory glob like "src/*").
	Shortlog(ctx context.Context, pathspec string) (string, error)
}

// ContributorStats describes one author's share of a path's history.
type ContributorStats struct {
	Name        string
	Email       string
	CommitCount int
	Percentage  float64
}

// OwnerSuggestion is a proposed owner for a path, backed by commit
// history analysis.
type OwnerSuggestion struct {
	Path           string
	SuggestedOwner string
	Confidence     float64
	Contributors   []ContributorStats
	TotalCommits   int
}

// SuggestOwners analyzes unownedFiles' commit history and proposes
// owners, preferring a directory-level suggestion over per-file
// suggestions when a containing directory's aggregate history clears
// minConfidence, and falling back to per-file analysis for files whose
// directory did not. Results are sorted by descending confidence.
func SuggestOwners(ctx context.Context, history CommitHistory, unownedFiles []string, minConfidence float64) ([]OwnerSuggestion, error) {
	dirFiles := groupByDirectory(unownedFiles)

	var suggestions []OwnerSuggestion
	var coveredDirs []string

	dirs := make([]string, 0, len(dirFiles))
	for d := range dirFiles {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		suggestion, err := analyzeDirectory(ctx, history, dir)
		if err != nil {
			return nil, err
		}
		if suggestion == nil || suggestion.Confidence < minConfidence {
			continue
		}
		if dir == "" {
			suggestion.Path = "*"
		} else {
			suggestion.Path = dir + "/"
		}
		coveredDirs = append(coveredDirs, suggestion.Path)
		suggestions = append(suggestions, *suggestion)
	}

	for _, file := range unownedFiles {
		parentDir := path.Dir(file) + "/"
		if parentDir == "./" {
			parentDir = "/"
		}
		if coveredByDir(coveredDirs, parentDir) {
			continue
		}
		suggestion, err := analyzeFile(ctx, history, file)
		if err != nil {
			return nil, err
		}
		if suggestion != nil && suggestion.Confidence >= minConfidence {
			suggestions = append(suggestions, *suggestion)
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	return suggestions, nil
}

func groupByDirectory(files []string) map[string][]string {
	out := make(map[string][]string)
	for _, f := range files {
		dir := path.Dir(f)
		if dir == "." {
			dir = ""
		}
		out[dir] = append(out[dir], f)
	}
	return out
}

func coveredByDir(coveredDirs []string, parentDir string) bool {
	for _, d := range coveredDirs {
		if strings.HasPrefix(parentDir, strings.TrimSuffix(d, "/")) {
			return true
		}
	}
	return false
}

func analyzeFile(ctx context.Context, history CommitHistory, filePath string) (*OwnerSuggestion, error) {
	out, err := history.Shortlog(ctx, filePath)
	if err != nil {
		return nil, err
	}
	return parseShortlog(out, filePath), nil
}

func analyzeDirectory(ctx context.Context, history CommitHistory, dir string) (*OwnerSuggestion, error) {
	pathspec := dir + "/*"
	if dir == "" {
		pathspec = "*"
	}
	out, err := history.Shortlog(ctx, pathspec)
	if err != nil {
		return nil, err
	}
	return parseShortlog(out, dir), nil
}

// parseShortlog parses `git shortlog -sne --no-merges` output of the
// form "   123\tName <email>" per line into an OwnerSuggestion, or nil
// if the output contains no parseable contributor lines.
func parseShortlog(output, forPath string) *OwnerSuggestion {
	var contributors []ContributorStats
	total := 0

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			continue
		}
		name, email := splitNameEmail(strings.TrimSpace(parts[1]))

		total += count
		contributors = append(contributors, ContributorStats{Name: name, Email: email, CommitCount: count})
	}

	if len(contributors) == 0 {
		return nil
	}

	for i := range contributors {
		contributors[i].Percentage = float64(contributors[i].CommitCount) / float64(total) * 100
	}
	sort.SliceStable(contributors, func(i, j int) bool {
		return contributors[i].CommitCount > contributors[j].CommitCount
	})

	top := contributors[0]
	percentageFactor := top.Percentage / 100
	volumeFactor := minFloat(float64(total), 100) / 100
	confidence := (percentageFactor*0.7 + volumeFactor*0.3) * 100

	return &OwnerSuggestion{
		Path:           forPath,
		SuggestedOwner: emailToOwner(top.Email, top.Name),
		Confidence:     confidence,
		Contributors:   contributors,
		TotalCommits:   total,
	}
}

func splitNameEmail(author string) (name, email string) {
	start := strings.IndexByte(author, '<')
	if start < 0 {
		return author, ""
	}
	end := strings.IndexByte(author, '>')
	if end < 0 || end < start {
		return strings.TrimSpace(author), ""
	}
	return strings.TrimSpace(author[:start]), author[start+1 : end]
}

// emailToOwner converts a commit author's email (and, failing a
// recognizable forge pattern, their display name) into a CODEOWNERS-style
// "@handle" guess. Ported from the Rust reference's email_to_owner.
func emailToOwner(email, name string) string {
	if strings.Contains(email, "@users.noreply.github.com") {
		local := strings.SplitN(email, "@", 2)[0]
		if idx := strings.LastIndex(local, "+"); idx >= 0 {
			return "@" + local[idx+1:]
		}
		return "@" + local
	}

	if strings.HasSuffix(email, "@github.com") {
		return "@" + strings.SplitN(email, "@", 2)[0]
	}

	clean := slugify(name)
	if len(clean) >= 2 {
		return "@" + clean
	}
	if email != "" {
		return email
	}
	return "@" + clean
}

func slugify(name string) string {
	lower := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	var b strings.Builder
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
