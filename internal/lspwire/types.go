// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lspwire holds the JSON-RPC/LSP struct vocabulary the Session
// speaks at its transport boundary, plus a Content-Length framed
// Transport (transport.go) that reads and writes JSON-RPC messages.
package lspwire

// =============================================================================
// POSITION & RANGE TYPES
// =============================================================================

// Position is a position in a text document. Line and Character are
// 0-indexed per the LSP specification.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open span in a text document: Start is inclusive, End
// is exclusive.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location is a range within a specific document.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// =============================================================================
// DOCUMENT IDENTIFIERS
// =============================================================================

// TextDocumentIdentifier identifies a document by URI.
type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

// VersionedTextDocumentIdentifier identifies a specific version of a
// document, used to detect and refuse stale-version operations.
type VersionedTextDocumentIdentifier struct {
	TextDocumentIdentifier
	Version int `json:"version"`
}

// TextDocumentItem is a document together with its full content, sent on
// open.
type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

// =============================================================================
// LIFECYCLE PARAMS (client -> server)
// =============================================================================

// DidOpenTextDocumentParams carries the full text of a newly opened
// document.
type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

// DidChangeTextDocumentParams carries a new document version. The core
// treats sync as whole-document (ContentChanges[0].Text replaces the
// entire text), matching spec.md's `open/change/close(uri, text)`
// surface; partial-range incremental sync is a transport concern.
type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

// TextDocumentContentChangeEvent describes one change. Range is nil for
// full-document sync.
type TextDocumentContentChangeEvent struct {
	Range *Range `json:"range,omitempty"`
	Text  string `json:"text"`
}

// DidCloseTextDocumentParams identifies a closed document.
type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// =============================================================================
// QUERY PARAMS
// =============================================================================

// TextDocumentPositionParams identifies a position within a document;
// the shared shape of hover, definition, and similar requests.
type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

// InlayHintParams requests inlay hints over a range of a document.
type InlayHintParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Range        Range                  `json:"range"`
}

// CodeActionParams requests the code actions applicable at a range.
type CodeActionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Range        Range                  `json:"range"`
}

// ExecuteCommandParams runs a prepared authoring operation against a
// specific document version; per spec.md §6 every execute-command
// identifier takes a document URI, a document version, and
// operation-specific arguments.
type ExecuteCommandParams struct {
	Command         string        `json:"command"`
	DocumentURI     string        `json:"documentUri"`
	DocumentVersion int           `json:"documentVersion"`
	Arguments       []interface{} `json:"arguments,omitempty"`
}

// =============================================================================
// RESULT TYPES
// =============================================================================

// HoverResult is the response to a hover request.
type HoverResult struct {
	Contents MarkupContent `json:"contents"`
	Range    *Range        `json:"range,omitempty"`
}

// MarkupContent is hover/documentation content.
type MarkupContent struct {
	Kind  string `json:"kind"` // "plaintext" or "markdown"
	Value string `json:"value"`
}

// InlayHint is one inlay hint annotation.
type InlayHint struct {
	Position    Position `json:"position"`
	Label       string   `json:"label"`
	PaddingLeft bool     `json:"paddingLeft,omitempty"`
}

// TextEdit is a single text replacement over a document range.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// WorkspaceEdit describes changes to one or more documents. The Session
// only ever edits the single manifest document it owns, so Changes
// always holds exactly one URI's edits.
type WorkspaceEdit struct {
	Changes map[string][]TextEdit `json:"changes,omitempty"`
}

// Command is a reference to a registered execute-command identifier
// with its prepared arguments. CodeAction has no Command field: a code
// action carries its prepared Edit directly.
type Command struct {
	Title     string        `json:"title"`
	Command   string        `json:"command"`
	Arguments []interface{} `json:"arguments,omitempty"`
}

// CodeAction is one authoring operation applicable at a requested range.
type CodeAction struct {
	Title string         `json:"title"`
	Kind  string         `json:"kind"`
	Edit  *WorkspaceEdit `json:"edit,omitempty"`
}

// =============================================================================
// INITIALIZE / CAPABILITIES
// =============================================================================

// ServerCapabilities announces the operations this Session implements,
// returned from the initialize handshake.
type ServerCapabilities struct {
	TextDocumentSync       int                    `json:"textDocumentSync"`
	HoverProvider          bool                   `json:"hoverProvider,omitempty"`
	InlayHintProvider      bool                   `json:"inlayHintProvider,omitempty"`
	CodeActionProvider     bool                   `json:"codeActionProvider,omitempty"`
	DefinitionProvider     bool                   `json:"definitionProvider,omitempty"`
	ExecuteCommandProvider *ExecuteCommandOptions `json:"executeCommandProvider,omitempty"`
}

// ExecuteCommandOptions lists the execute-command identifiers this
// Session registers: one per authoring operation, per spec.md §6.
type ExecuteCommandOptions struct {
	Commands []string `json:"commands"`
}

// TextDocumentSyncFull requests that the client always send the entire
// document text on change, matching the core's whole-document model.
const TextDocumentSyncFull = 1
