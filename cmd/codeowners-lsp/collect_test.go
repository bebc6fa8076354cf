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
	"os"
	"path/filepath"
	"testing"
)

func TestCollectFiles_EmptyWhenNothingGiven(t *testing.T) {
	got, err := collectFiles(nil, "", false)
	if err != nil {
		t.Fatalf("collectFiles: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestCollectFiles_FromArgs(t *testing.T) {
	got, err := collectFiles([]string{"src/main.go", "src/lib.go"}, "", false)
	if err != nil {
		t.Fatalf("collectFiles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2: %v", len(got), got)
	}
	want := map[string]bool{"src/main.go": true, "src/lib.go": true}
	for _, f := range got {
		if !want[f] {
			t.Errorf("unexpected entry %q", f)
		}
	}
}

func TestCollectFiles_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "files.txt")
	content := "src/foo.go\nsrc/bar.go\n  src/baz.go  \n\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	got, err := collectFiles(nil, path, false)
	if err != nil {
		t.Fatalf("collectFiles: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3: %v", len(got), got)
	}
	want := map[string]bool{"src/foo.go": true, "src/bar.go": true, "src/baz.go": true}
	for _, f := range got {
		if !want[f] {
			t.Errorf("unexpected entry %q", f)
		}
	}
}

func TestCollectFiles_FromNonexistentFile(t *testing.T) {
	_, err := collectFiles(nil, "/nonexistent/path.txt", false)
	if err == nil {
		t.Error("expected an error for a nonexistent --files-from path")
	}
}

func TestCollectFiles_Combined(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "files.txt")
	if err := os.WriteFile(path, []byte("from_file.go\n"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	got, err := collectFiles([]string{"from_args.go"}, path, false)
	if err != nil {
		t.Fatalf("collectFiles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2: %v", len(got), got)
	}
	want := map[string]bool{"from_args.go": true, "from_file.go": true}
	for _, f := range got {
		if !want[f] {
			t.Errorf("unexpected entry %q", f)
		}
	}
}

func TestCollectFiles_Dedupes(t *testing.T) {
	got, err := collectFiles([]string{"same.go", "same.go", "different.go"}, "", false)
	if err != nil {
		t.Fatalf("collectFiles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2: %v", len(got), got)
	}
}
