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
	"github.com/spf13/cobra"
)

var (
	// --- check ---
	checkJSON      bool
	checkFilesFrom string
	checkStdin     bool

	// --- coverage ---
	coverageFilesFrom string
	coverageStdin     bool

	// --- suggest ---
	suggestMinConfidence float64
	suggestFormat        string
	suggestLimit         int

	// --- serve ---
	serveLogDir string

	rootCmd = &cobra.Command{
		Use:   "codeowners-lsp",
		Short: "A language server and CLI for code-ownership manifests",
		Long: `codeowners-lsp parses, validates, and edits CODEOWNERS-style
manifests: a positional-line parser with byte-exact round trip, a
last-match-wins matcher, a background owner validator, and a set of
authoring operations exposed both as editor code actions and as CLI
subcommands.`,
	}

	// --- diagnostics ---
	lintCmd = &cobra.Command{
		Use:   "lint",
		Short: "Run the full diagnostics set over the manifest and exit non-zero on any error",
		Run:   runLint,
	}

	// --- ownership queries ---
	checkCmd = &cobra.Command{
		Use:   "check [path...]",
		Short: "Print the owning rule for one or more paths",
		Run:   runCheck,
	}
	coverageCmd = &cobra.Command{
		Use:   "coverage [path...]",
		Short: "Print the percentage of files with an owner",
		Run:   runCoverage,
	}
	treeCmd = &cobra.Command{
		Use:   "tree",
		Short: "Render the repository as a directory tree annotated with owning rules",
		Run:   runTree,
	}

	// --- configuration ---
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration record as YAML",
		Run:   runConfig,
	}

	// --- authoring ---
	suggestCmd = &cobra.Command{
		Use:   "suggest",
		Short: "Suggest owners for unowned files based on git commit history",
		Run:   runSuggest,
	}

	// --- editor transport ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the session over stdio for an editor to attach to",
		Run:   runServe,
	}
)

func init() {
	rootCmd.AddCommand(lintCmd)

	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "emit machine-readable JSON instead of text")
	checkCmd.Flags().StringVar(&checkFilesFrom, "files-from", "", "read additional paths, one per line, from this file")
	checkCmd.Flags().BoolVar(&checkStdin, "stdin", false, "read additional paths, one per line, from stdin")

	rootCmd.AddCommand(coverageCmd)
	coverageCmd.Flags().StringVar(&coverageFilesFrom, "files-from", "", "restrict the coverage report to paths read from this file")
	coverageCmd.Flags().BoolVar(&coverageStdin, "stdin", false, "restrict the coverage report to paths read from stdin")

	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.AddCommand(suggestCmd)
	suggestCmd.Flags().Float64Var(&suggestMinConfidence, "min-confidence", 30.0, "minimum confidence percentage (0-100) a suggestion must clear")
	suggestCmd.Flags().StringVar(&suggestFormat, "format", "human", "output format: human, codeowners, or json")
	suggestCmd.Flags().IntVar(&suggestLimit, "limit", 50, "maximum number of suggestions to print")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveLogDir, "log-dir", "", "directory to additionally write JSON session logs to")
}
