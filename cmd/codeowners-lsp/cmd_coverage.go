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
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/radiosilence/codeowners-lsp/internal/manifest"
	"github.com/radiosilence/codeowners-lsp/internal/match"
	"github.com/radiosilence/codeowners-lsp/internal/repoindex"
)

// unownedPreviewLimit bounds how many unowned file paths coverage prints
// before collapsing the rest into a "...and N more" summary line.
const unownedPreviewLimit = 50

func runCoverage(cmd *cobra.Command, args []string) {
	root, err := workspaceRoot()
	if err != nil {
		log.Fatalf("coverage: %v", err)
	}
	rec, err := loadWorkspaceConfig(root)
	if err != nil {
		log.Fatalf("coverage: %v", err)
	}

	text, err := os.ReadFile(filepath.Join(root, rec.Path))
	if err != nil {
		log.Fatalf("coverage: read %s: %v", rec.Path, err)
	}
	doc := manifest.Parse(string(text))
	rules, _ := compileCheckRules(doc)

	ctx := context.Background()
	idx := repoindex.New(root, repoindex.NewWalkEnumerator())
	allFiles, err := idx.AllFiles(ctx)
	if err != nil {
		log.Fatalf("coverage: enumerate files: %v", err)
	}

	filter, err := collectFiles(args, coverageFilesFrom, coverageStdin)
	if err != nil {
		log.Fatalf("coverage: %v", err)
	}

	table := match.Sweep(rules, allFiles)

	var unowned []string
	for _, f := range allFiles {
		if table.Owner[f] == -1 {
			unowned = append(unowned, f)
		}
	}

	totalFiles := len(allFiles)
	mode := "total"
	if len(filter) > 0 {
		filterSet := make(map[string]bool, len(filter))
		for _, f := range filter {
			filterSet[f] = true
		}
		filtered := unowned[:0:0]
		for _, f := range unowned {
			if filterSet[f] {
				filtered = append(filtered, f)
			}
		}
		unowned = filtered
		totalFiles = len(filter)
		mode = "checked"
	}

	ownedCount := totalFiles - len(unowned)
	coveragePct := 100.0
	if totalFiles > 0 {
		coveragePct = float64(ownedCount) / float64(totalFiles) * 100.0
	}

	fmt.Printf("Coverage: %.1f%% (%d/%d %s files have owners)\n", coveragePct, ownedCount, totalFiles, mode)

	if len(unowned) == 0 {
		fmt.Println("\nAll files have owners!")
		return
	}

	fmt.Printf("\nFiles without owners (%d):\n", len(unowned))
	for _, f := range unowned[:min(len(unowned), unownedPreviewLimit)] {
		fmt.Printf("  %s\n", f)
	}
	if len(unowned) > unownedPreviewLimit {
		fmt.Printf("  ...and %d more\n", len(unowned)-unownedPreviewLimit)
	}
	os.Exit(1)
}
