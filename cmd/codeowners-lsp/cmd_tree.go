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
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/radiosilence/codeowners-lsp/internal/manifest"
	"github.com/radiosilence/codeowners-lsp/internal/match"
	"github.com/radiosilence/codeowners-lsp/internal/repoindex"
)

// treeNode is one directory or file in the rendered ownership tree.
type treeNode struct {
	name     string
	isFile   bool
	owners   string // files: owning rule's owners, or "(unowned)"; empty for directories
	children map[string]*treeNode
}

func runTree(cmd *cobra.Command, args []string) {
	root, err := workspaceRoot()
	if err != nil {
		log.Fatalf("tree: %v", err)
	}
	rec, err := loadWorkspaceConfig(root)
	if err != nil {
		log.Fatalf("tree: %v", err)
	}

	text, err := os.ReadFile(filepath.Join(root, rec.Path))
	if err != nil {
		log.Fatalf("tree: read %s: %v", rec.Path, err)
	}
	doc := manifest.Parse(string(text))
	rules, _ := compileCheckRules(doc)

	idx := repoindex.New(root, repoindex.NewWalkEnumerator())
	files, err := idx.AllFiles(context.Background())
	if err != nil {
		log.Fatalf("tree: enumerate files: %v", err)
	}

	table := match.Sweep(rules, files)
	treeRoot := &treeNode{children: make(map[string]*treeNode)}
	for _, f := range files {
		owners := "(unowned)"
		if idx := table.Owner[f]; idx >= 0 {
			owners = strings.Join(table.Rules[idx].Owners, " ")
		}
		insertTreePath(treeRoot, strings.Split(f, "/"), owners)
	}

	printTree(treeRoot, "")
}

func insertTreePath(node *treeNode, segments []string, owners string) {
	for i, seg := range segments {
		child, ok := node.children[seg]
		if !ok {
			child = &treeNode{name: seg, children: make(map[string]*treeNode)}
			node.children[seg] = child
		}
		node = child
		if i == len(segments)-1 {
			node.isFile = true
			node.owners = owners
		}
	}
}

func printTree(node *treeNode, prefix string) {
	names := make([]string, 0, len(node.children))
	for name := range node.children {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		child := node.children[name]
		last := i == len(names)-1
		connector := "├── "
		nextPrefix := prefix + "│   "
		if last {
			connector = "└── "
			nextPrefix = prefix + "    "
		}

		if child.isFile {
			fmt.Printf("%s%s%s — %s\n", prefix, connector, child.name, child.owners)
		} else {
			fmt.Printf("%s%s%s/\n", prefix, connector, child.name)
		}
		printTree(child, nextPrefix)
	}
}
