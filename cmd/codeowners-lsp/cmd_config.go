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
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func runConfig(cmd *cobra.Command, args []string) {
	root, err := workspaceRoot()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	rec, err := loadWorkspaceConfig(root)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	out, err := yaml.Marshal(rec)
	if err != nil {
		log.Fatalf("config: marshal: %v", err)
	}
	fmt.Print(string(out))
}
