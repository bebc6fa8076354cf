// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/radiosilence/codeowners-lsp/internal/session"
	"github.com/radiosilence/codeowners-lsp/pkg/logging"
)

func runSuggest(cmd *cobra.Command, args []string) {
	root, err := workspaceRoot()
	if err != nil {
		log.Fatalf("suggest: %v", err)
	}
	rec, err := loadWorkspaceConfig(root)
	if err != nil {
		log.Fatalf("suggest: %v", err)
	}

	logger := logging.New(logging.Config{Level: logging.LevelWarn, Service: "codeowners-lsp-cli"})
	defer logger.Close()

	sess, _, err := openWorkspace(root, rec, logger)
	if err != nil {
		log.Fatalf("suggest: %v", err)
	}

	ctx := context.Background()
	suggestions, err := sess.SuggestOwners(ctx, suggestMinConfidence)
	if err != nil {
		log.Fatalf("suggest: %v", err)
	}

	switch suggestFormat {
	case "codeowners":
		suggestOutputCodeowners(suggestions)
	case "json":
		suggestOutputJSON(suggestions)
	default:
		suggestOutputHuman(suggestions)
	}
}

func suggestOutputHuman(suggestions []session.SuggestedAction) {
	if len(suggestions) == 0 {
		fmt.Println("No confident suggestions found.")
		fmt.Printf("  Try lowering --min-confidence (currently %g%%)\n", suggestMinConfidence)
		return
	}

	shown := suggestions
	if len(shown) > suggestLimit {
		shown = shown[:suggestLimit]
	}

	fmt.Printf("%d suggestion(s) found:\n\n", len(shown))
	for i, sg := range shown {
		fmt.Printf("%d. %s %s (%.0f%% confidence)\n", i+1, sg.Path, sg.SuggestedOwner, sg.Confidence)
		top := sg.Contributors
		if len(top) > 3 {
			top = top[:3]
		}
		for j, c := range top {
			if j > 0 {
				fmt.Print(", ")
			} else {
				fmt.Print("   Based on: ")
			}
			fmt.Printf("%s (%d%%)", c.Name, int(c.Percentage))
		}
		fmt.Printf(" from %d commits\n\n", sg.TotalCommits)
	}

	if len(suggestions) > suggestLimit {
		fmt.Printf("...%d more suggestions not shown (use --limit to see more)\n", len(suggestions)-suggestLimit)
	}

	fmt.Println("\nAdd to CODEOWNERS:")
	for _, sg := range shown {
		fmt.Printf("%s %s\n", sg.Path, sg.SuggestedOwner)
	}
}

func suggestOutputCodeowners(suggestions []session.SuggestedAction) {
	fmt.Println("# Suggested CODEOWNERS entries (generated from git history)")
	fmt.Println("# Review and verify before committing!")

	shown := suggestions
	if len(shown) > suggestLimit {
		shown = shown[:suggestLimit]
	}
	for _, sg := range shown {
		fmt.Printf("# Confidence: %.0f%% (%d commits)\n", sg.Confidence, sg.TotalCommits)
		fmt.Printf("%s %s\n\n", sg.Path, sg.SuggestedOwner)
	}
}

type suggestJSONContributor struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Commits    int     `json:"commits"`
	Percentage float64 `json:"percentage"`
}

type suggestJSONEntry struct {
	Path           string                    `json:"path"`
	SuggestedOwner string                    `json:"suggested_owner"`
	Confidence     float64                   `json:"confidence"`
	TotalCommits   int                       `json:"total_commits"`
	Contributors   []suggestJSONContributor  `json:"contributors"`
}

func suggestOutputJSON(suggestions []session.SuggestedAction) {
	entries := make([]suggestJSONEntry, 0, len(suggestions))
	for _, sg := range suggestions {
		contributors := make([]suggestJSONContributor, 0, len(sg.Contributors))
		for _, c := range sg.Contributors {
			contributors = append(contributors, suggestJSONContributor{
				Name: c.Name, Email: c.Email, Commits: c.CommitCount, Percentage: c.Percentage,
			})
		}
		entries = append(entries, suggestJSONEntry{
			Path:           sg.Path,
			SuggestedOwner: sg.SuggestedOwner,
			Confidence:     sg.Confidence,
			TotalCommits:   sg.TotalCommits,
			Contributors:   contributors,
		})
	}

	out, err := json.MarshalIndent(map[string]interface{}{
		"suggestion_count": len(entries),
		"suggestions":      entries,
	}, "", "  ")
	if err != nil {
		log.Fatalf("suggest: marshal: %v", err)
	}
	fmt.Println(string(out))
}
