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
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/radiosilence/codeowners-lsp/internal/manifest"
	"github.com/radiosilence/codeowners-lsp/internal/match"
)

// checkResultJSON is the --json output shape for one queried path,
// mirroring the reference CLI's CheckResultJson.
type checkResultJSON struct {
	Rule   *string  `json:"rule"`
	Line   *int     `json:"line"`
	Owners []string `json:"owners"`
}

func runCheck(cmd *cobra.Command, args []string) {
	root, err := workspaceRoot()
	if err != nil {
		log.Fatalf("check: %v", err)
	}
	rec, err := loadWorkspaceConfig(root)
	if err != nil {
		log.Fatalf("check: %v", err)
	}

	text, err := os.ReadFile(filepath.Join(root, rec.Path))
	if err != nil {
		log.Fatalf("check: read %s: %v", rec.Path, err)
	}
	doc := manifest.Parse(string(text))
	rules, _ := compileCheckRules(doc)

	files, err := collectFiles(args, checkFilesFrom, checkStdin)
	if err != nil {
		log.Fatalf("check: %v", err)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No files specified")
		os.Exit(1)
	}

	if checkJSON {
		os.Exit(checkOutputJSON(rules, files))
	}
	os.Exit(checkOutputHuman(rules, files))
}

func compileCheckRules(doc *manifest.Document) ([]match.Rule, map[int]error) {
	lines := doc.Rules()
	rules := make([]match.Rule, len(lines))
	patternErrors := make(map[int]error)
	for i, line := range lines {
		owners := make([]string, len(line.Rule.Owners))
		for j, o := range line.Rule.Owners {
			owners[j] = o.Token
		}
		pattern, err := match.Compile(line.Rule.Pattern)
		if err != nil {
			patternErrors[line.Number] = err
		}
		rules[i] = match.Rule{Line: line.Number, Pattern: pattern, Owners: owners}
	}
	return rules, patternErrors
}

func checkOutputJSON(rules []match.Rule, files []string) int {
	results := make(map[string]checkResultJSON, len(files))
	for _, f := range files {
		idx := match.Query(rules, f)
		if idx < 0 {
			results[f] = checkResultJSON{Owners: []string{}}
			continue
		}
		r := rules[idx]
		pattern := r.Pattern.String()
		line := r.Line + 1
		results[f] = checkResultJSON{Rule: &pattern, Line: &line, Owners: r.Owners}
	}
	out, err := json.Marshal(results)
	if err != nil {
		log.Fatalf("check: marshal: %v", err)
	}
	fmt.Println(string(out))
	return 0
}

func checkOutputHuman(rules []match.Rule, files []string) int {
	anyUnowned := false
	for i, f := range files {
		if i > 0 {
			fmt.Println()
		}
		idx := match.Query(rules, f)
		fmt.Printf("File: %s\n", f)
		if idx < 0 {
			anyUnowned = true
			fmt.Println("No matching rule - file has no owners")
			continue
		}
		r := rules[idx]
		fmt.Printf("Rule: %s (line %d)\n", r.Pattern.String(), r.Line+1)
		fmt.Printf("Owners: %s\n", strings.Join(r.Owners, " "))
	}

	if len(files) == 1 && anyUnowned {
		return 1
	}
	return 0
}
