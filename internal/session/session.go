// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session orchestrates one workspace: the manifest document and
// its line model, the repository index, the validator, and the
// diagnostics/authoring engines, behind the concurrency discipline of
// spec §5 — a single-writer/multi-reader lock around document state,
// with the repository index and validator kept behind their own locks
// that are never acquired while holding the document lock.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/radiosilence/codeowners-lsp/internal/authoring"
	"github.com/radiosilence/codeowners-lsp/internal/diagnostics"
	"github.com/radiosilence/codeowners-lsp/internal/lspwire"
	"github.com/radiosilence/codeowners-lsp/internal/manifest"
	"github.com/radiosilence/codeowners-lsp/internal/match"
	"github.com/radiosilence/codeowners-lsp/internal/repoindex"
	"github.com/radiosilence/codeowners-lsp/internal/validate"
)

var sessionTracer = otel.Tracer("codeowners-lsp.session")

// Execute command identifiers, one per authoring operation, registered
// in the Session's ServerCapabilities.ExecuteCommandProvider.
const (
	CmdTakeOwnership  = "codeowners-lsp.takeOwnership"
	CmdRemoveDeadRule = "codeowners-lsp.removeDeadRule"
	CmdDedupeOwners   = "codeowners-lsp.dedupeOwners"
	CmdAddCatchAll    = "codeowners-lsp.addCatchAll"
)

// Commands lists every execute-command identifier the Session
// registers, for building ServerCapabilities.
var Commands = []string{CmdTakeOwnership, CmdRemoveDeadRule, CmdDedupeOwners, CmdAddCatchAll}

// Session is the per-workspace orchestrator described in spec §4.7. One
// Session tracks exactly one manifest document; non-manifest files are
// queried against the compiled rule set but their content is never
// held here, since the workspace root is the source of truth for them.
type Session struct {
	root        string
	manifestURI string

	cfg        diagnostics.Config
	individual string
	team       string

	index     *repoindex.Index
	validator *validate.Validator // nil: validate_owners disabled
	history   authoring.CommitHistory // nil: suggest_owners unavailable
	logger    *slog.Logger

	mu            sync.RWMutex
	doc           *manifest.Document
	version       int
	rules         []match.Rule
	patternErrors map[int]error
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithValidator enables owner-validation diagnostics and hovers.
func WithValidator(v *validate.Validator) Option {
	return func(s *Session) { s.validator = v }
}

// WithCommitHistory enables the suggest_owners capability.
func WithCommitHistory(h authoring.CommitHistory) Option {
	return func(s *Session) { s.history = h }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// New creates a Session for one workspace. root is the workspace's
// absolute path; manifestURI is the URI the transport collaborator uses
// to identify the manifest document. index must already be wired to a
// FileEnumerator; cfg is the resolved configuration record of spec §6.
func New(root, manifestURI string, index *repoindex.Index, cfg diagnostics.Config, individual, team string, opts ...Option) *Session {
	s := &Session{
		root:        root,
		manifestURI: manifestURI,
		cfg:         cfg,
		individual:  individual,
		team:        team,
		index:       index,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open parses a newly opened manifest document and compiles its rules.
// Non-manifest URIs are accepted as a no-op: the session holds no state
// for files it does not own the content of.
func (s *Session) Open(uri, text string, version int) error {
	if uri != s.manifestURI {
		return nil
	}
	doc := manifest.Parse(text)
	rules, patternErrors := compileRules(doc)

	s.mu.Lock()
	s.doc = doc
	s.version = version
	s.rules = rules
	s.patternErrors = patternErrors
	s.mu.Unlock()

	s.refreshOwnersAsync(ownerTokens(rules))
	return nil
}

// Change replaces the manifest document with a new full-text version.
// Per the ordering guarantee of spec §5, a version not newer than the
// one currently held is refused rather than silently applied out of order.
func (s *Session) Change(uri, text string, version int) error {
	if uri != s.manifestURI {
		return nil
	}

	s.mu.RLock()
	hadDoc := s.doc != nil
	current := s.version
	s.mu.RUnlock()
	if hadDoc && version <= current {
		return lspwire.ErrStaleVersion
	}

	doc := manifest.Parse(text)
	rules, patternErrors := compileRules(doc)

	s.mu.Lock()
	s.doc = doc
	s.version = version
	s.rules = rules
	s.patternErrors = patternErrors
	s.mu.Unlock()

	s.refreshOwnersAsync(ownerTokens(rules))
	return nil
}

// Close discards the manifest document's in-memory state.
func (s *Session) Close(uri string) error {
	if uri != s.manifestURI {
		return nil
	}
	s.mu.Lock()
	s.doc = nil
	s.rules = nil
	s.patternErrors = nil
	s.mu.Unlock()
	return nil
}

// snapshot returns a consistent view of the current document, its
// compiled rules, pattern errors, and version, without holding the lock
// for the duration of any subsequent I/O the caller performs.
func (s *Session) snapshot() (doc *manifest.Document, rules []match.Rule, patternErrors map[int]error, version int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil, nil, nil, 0, false
	}
	return s.doc, s.rules, s.patternErrors, s.version, true
}

// refreshOwnersAsync kicks off a background validator refresh for the
// current rule set's owner tokens, if a validator is configured. It
// does not block the caller: Hover and Diagnostics tolerate Unknown or
// Stale records and the refresh simply improves results as it lands.
func (s *Session) refreshOwnersAsync(tokens []string) {
	if s.validator == nil || len(tokens) == 0 {
		return
	}
	go func() {
		ctx, span := sessionTracer.Start(context.Background(), "session.refreshOwnersAsync")
		defer span.End()
		if err := s.validator.Refresh(ctx, tokens); err != nil {
			s.logger.Warn("background owner validation refresh failed", "error", err)
		}
	}()
}

// compileRules compiles every Rule line's pattern, collecting per-line
// compile errors for lines the matcher must treat as matching nothing.
func compileRules(doc *manifest.Document) ([]match.Rule, map[int]error) {
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

func ownerTokens(rules []match.Rule) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rules {
		for _, o := range r.Owners {
			key := validate.CanonicalKey(o)
			if !seen[key] {
				seen[key] = true
				out = append(out, o)
			}
		}
	}
	return out
}

// sweepRepo enumerates the repository index's current file set (a
// suspension point, performed without the document lock held) and
// sweeps rules against it.
func (s *Session) sweepRepo(ctx context.Context, rules []match.Rule) (*match.Table, []string, error) {
	ctx, span := sessionTracer.Start(ctx, "session.sweepRepo")
	defer span.End()

	files, err := s.index.AllFiles(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}
	return match.Sweep(rules, files), files, nil
}

func unownedFiles(table *match.Table, files []string) []string {
	var out []string
	for _, f := range files {
		if table.Owner[f] == -1 {
			out = append(out, f)
		}
	}
	return out
}

func (s *Session) ownerLookup() diagnostics.OwnerLookup {
	if s.validator == nil {
		return nil
	}
	return func(token string) validate.Record { return s.validator.Lookup(token) }
}

// pathForURI maps a file:// document URI to a repository-relative,
// forward-slash path. URI scheme handling stays minimal here: framing a
// full JSON-RPC transport is an external collaborator's job, but a
// Session operating on "open/change/close(uri, text)" still needs to
// turn its input URIs into the paths its rules match against.
func (s *Session) pathForURI(uri string) string {
	p := strings.TrimPrefix(uri, "file://")
	if rel, err := filepath.Rel(s.root, p); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(p)
}

func argString(args []interface{}, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("session: missing argument %d", i)
	}
	v, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("session: argument %d is not a string", i)
	}
	return v, nil
}

func argInt(args []interface{}, i int) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("session: missing argument %d", i)
	}
	switch v := args[i].(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("session: argument %d is not a number", i)
	}
}
