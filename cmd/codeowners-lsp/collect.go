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
	"bufio"
	"fmt"
	"os"
	"strings"
)

// collectFiles merges positional file arguments with the contents of a
// --files-from file and/or stdin, one path per line, blank lines
// skipped. Ported from the reference CLI's collect_files/
// collect_files_to_check helpers, unified into the single shared
// implementation the original's check.rs and coverage.rs duplicated.
func collectFiles(args []string, filesFrom string, stdin bool) ([]string, error) {
	seen := make(map[string]bool, len(args))
	var out []string
	add := func(f string) {
		if f == "" || seen[f] {
			return
		}
		seen[f] = true
		out = append(out, f)
	}

	for _, f := range args {
		add(f)
	}

	if filesFrom != "" {
		data, err := os.ReadFile(filesFrom)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filesFrom, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			add(strings.TrimSpace(line))
		}
	}

	if stdin {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			add(strings.TrimSpace(scanner.Text()))
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
	}

	return out, nil
}
