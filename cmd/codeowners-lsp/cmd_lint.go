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

	"github.com/spf13/cobra"

	"github.com/radiosilence/codeowners-lsp/internal/diagnostics"
	"github.com/radiosilence/codeowners-lsp/pkg/logging"
)

func runLint(cmd *cobra.Command, args []string) {
	root, err := workspaceRoot()
	if err != nil {
		log.Fatalf("lint: %v", err)
	}
	rec, err := loadWorkspaceConfig(root)
	if err != nil {
		log.Fatalf("lint: %v", err)
	}

	logger := logging.New(logging.Config{Level: logging.LevelWarn, Service: "codeowners-lsp-cli"})
	defer logger.Close()

	sess, _, err := openWorkspace(root, rec, logger)
	if err != nil {
		log.Fatalf("lint: %v", err)
	}

	issues, err := sess.Diagnostics(context.Background())
	if err != nil {
		log.Fatalf("lint: %v", err)
	}

	if len(issues) == 0 {
		fmt.Println("No issues found.")
		return
	}

	hasError := false
	for _, issue := range issues {
		fmt.Printf("%s:%d: [%s] %s\n", rec.Path, issue.Line+1, issue.Severity, issue.Message)
		if issue.Severity == diagnostics.Error {
			hasError = true
		}
	}

	if hasError {
		os.Exit(1)
	}
}
