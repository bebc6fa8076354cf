// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config decodes the immutable configuration record the Session
// and CLI are handed at startup. Locating the file among a workspace's
// conventional candidates, and merging several sources together, are an
// external collaborator's concern: Load only turns one resolved path
// into a validated Record.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/radiosilence/codeowners-lsp/internal/diagnostics"
)

// DefaultManifestPaths lists the workspace-relative locations a
// discovery collaborator conventionally searches, in priority order.
var DefaultManifestPaths = []string{
	".github/CODEOWNERS",
	"CODEOWNERS",
	"docs/CODEOWNERS",
}

// Record is the resolved, immutable configuration the Session treats as
// input for the lifetime of one workspace.
type Record struct {
	// Path is the manifest location, relative to the workspace root.
	Path string `yaml:"path" validate:"required"`

	// Individual is the owner token "take ownership as individual" code
	// actions use.
	Individual string `yaml:"individual,omitempty" validate:"omitempty,startswith=@"`

	// Team is the owner token "take ownership as team" code actions use.
	Team string `yaml:"team,omitempty" validate:"omitempty,startswith=@"`

	// ValidateOwners enables the Validator's background forge checks.
	ValidateOwners bool `yaml:"validate_owners"`

	// Diagnostics overrides the default per-kind severity, keyed by
	// diagnostics.Code string value (e.g. "invalid-pattern"). Values are
	// checked against ParseSeverity by Load, not by a struct tag: the
	// validator package's map-dive syntax only constrains keys or values
	// uniformly, and severity strings are more clearly checked by the
	// same function DiagnosticsConfig already uses to convert them.
	Diagnostics map[string]string `yaml:"diagnostics,omitempty"`
}

var validate = validator.New()

// Load reads and decodes the YAML configuration file at path, applying
// struct-tag validation before returning it. path must already be
// resolved by the caller; Load performs no discovery of its own.
func Load(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	rec := Record{Path: DefaultManifestPaths[1]}
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := validate.Struct(rec); err != nil {
		return Record{}, fmt.Errorf("config: invalid %s: %w", path, err)
	}

	if _, err := rec.DiagnosticsConfig(); err != nil {
		return Record{}, err
	}

	return rec, nil
}

// DiagnosticsConfig converts Record.Diagnostics into the
// diagnostics.Config the Diagnostics Engine consumes, falling back to
// diagnostics.DefaultConfig for any code the record doesn't override.
// An unrecognised severity string is reported as an error rather than
// silently ignored; Load runs this same conversion, so a Record it
// returns never carries one.
func (r Record) DiagnosticsConfig() (diagnostics.Config, error) {
	cfg := diagnostics.DefaultConfig()
	for code, sev := range r.Diagnostics {
		severity, err := ParseSeverity(sev)
		if err != nil {
			return diagnostics.Config{}, fmt.Errorf("config: diagnostics.%s: %w", code, err)
		}
		cfg.Severities[diagnostics.Code(code)] = severity
	}
	return cfg, nil
}

// ParseSeverity converts one of the configuration record's severity
// strings ("off", "hint", "info", "warning", "error") into a
// diagnostics.Severity.
func ParseSeverity(s string) (diagnostics.Severity, error) {
	switch s {
	case "off":
		return diagnostics.Off, nil
	case "hint":
		return diagnostics.Hint, nil
	case "info":
		return diagnostics.Info, nil
	case "warning":
		return diagnostics.Warning, nil
	case "error":
		return diagnostics.Error, nil
	default:
		return 0, fmt.Errorf("unrecognised severity %q", s)
	}
}
