// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package repoindex

import (
	"context"
	"os"
	"path/filepath"
)

// WalkEnumerator is a convenience FileEnumerator for hosts that do not
// supply their own gitignore-aware enumerator: it walks the filesystem
// with os.ReadDir, skipping a fixed set of directories that are never
// meaningful manifest targets. It does not parse .gitignore; a host
// embedding a real editor or forge should inject its own enumerator that
// does, per this package's design (directory walking and ignore-rule
// filtering are an external collaborator's concern). Tests for this
// package exercise the Index contract against a fake
// FileEnumerator, never this walker.
type WalkEnumerator struct {
	// SkipDirs names directories (by base name) never to descend into.
	SkipDirs map[string]struct{}
}

// NewWalkEnumerator returns a WalkEnumerator with sensible defaults.
func NewWalkEnumerator() *WalkEnumerator {
	return &WalkEnumerator{
		SkipDirs: map[string]struct{}{
			".git":         {},
			"node_modules": {},
			"vendor":       {},
		},
	}
}

// EnumerateFiles implements FileEnumerator.
func (w *WalkEnumerator) EnumerateFiles(ctx context.Context, root string) ([]string, error) {
	var files []string
	var walk func(dir, rel string) error
	walk = func(dir, rel string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			name := e.Name()
			relPath := name
			if rel != "" {
				relPath = rel + "/" + name
			}
			if e.IsDir() {
				if _, skip := w.SkipDirs[name]; skip {
					continue
				}
				if err := walk(filepath.Join(dir, name), relPath); err != nil {
					return err
				}
				continue
			}
			files = append(files, relPath)
		}
		return nil
	}

	if err := walk(root, ""); err != nil {
		return nil, err
	}
	return files, nil
}
