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
	"os"
	"path/filepath"

	"github.com/radiosilence/codeowners-lsp/internal/config"
	"github.com/radiosilence/codeowners-lsp/internal/repoindex"
	"github.com/radiosilence/codeowners-lsp/internal/session"
	"github.com/radiosilence/codeowners-lsp/pkg/logging"
)

// configCandidates lists the workspace-relative filenames this CLI
// searches for an optional config.Record, in priority order. Locating
// and merging configuration files is an external collaborator's concern
// per spec.md §1; this is the CLI's own minimal stand-in so `codeowners-lsp`
// works out of the box without one.
var configCandidates = []string{".codeowners-lsp.yaml", ".codeowners-lsp.yml", "codeowners-lsp.yaml"}

// loadWorkspaceConfig resolves a config.Record for the workspace rooted
// at root: the first configCandidates file found is decoded with
// config.Load; absent any, a default record pointing at the first of
// config.DefaultManifestPaths that actually exists is built in-process.
func loadWorkspaceConfig(root string) (config.Record, error) {
	for _, name := range configCandidates {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err == nil {
			return config.Load(path)
		}
	}

	for _, candidate := range config.DefaultManifestPaths {
		if _, err := os.Stat(filepath.Join(root, candidate)); err == nil {
			return config.Record{Path: candidate}, nil
		}
	}

	return config.Record{}, fmt.Errorf("workspace: no CODEOWNERS file found under %s", root)
}

// openWorkspace builds a Session for the manifest at root/rec.Path,
// wiring the repository index, the configured diagnostics severities,
// and (when available) the suggest_owners git collaborator. Owner
// validation is deliberately left unwired here: a ForgeClient talking to
// a real forge is explicitly an external collaborator's concern, so
// `validate_owners: true` without one configured degrades to a logged
// warning rather than a fabricated client.
func openWorkspace(root string, rec config.Record, logger *logging.Logger) (*session.Session, *repoindex.Index, error) {
	diagCfg, err := rec.DiagnosticsConfig()
	if err != nil {
		return nil, nil, err
	}

	if rec.ValidateOwners {
		logger.Warn("validate_owners is enabled but no forge client is wired into this CLI; owner validation stays disabled")
	}

	idx := repoindex.New(root, repoindex.NewWalkEnumerator())
	manifestURI := "file://" + filepath.Join(root, rec.Path)

	sess := session.New(root, manifestURI, idx, diagCfg, rec.Individual, rec.Team,
		session.WithCommitHistory(gitCommitHistory{root: root}),
		session.WithLogger(logger.Slog()),
	)

	text, err := os.ReadFile(filepath.Join(root, rec.Path))
	if err != nil {
		return nil, nil, fmt.Errorf("workspace: read %s: %w", rec.Path, err)
	}
	if err := sess.Open(manifestURI, string(text), 1); err != nil {
		return nil, nil, fmt.Errorf("workspace: open %s: %w", rec.Path, err)
	}

	return sess, idx, nil
}

// workspaceRoot resolves the directory codeowners-lsp treats as the
// repository root: the current working directory, since locating a VCS
// root above it is a filesystem-traversal concern left to an external
// collaborator per spec.md §1.
func workspaceRoot() (string, error) {
	return os.Getwd()
}
