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
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/radiosilence/codeowners-lsp/internal/lspwire"
	"github.com/radiosilence/codeowners-lsp/internal/repoindex"
	"github.com/radiosilence/codeowners-lsp/internal/session"
	"github.com/radiosilence/codeowners-lsp/pkg/logging"
)

func runServe(cmd *cobra.Command, args []string) {
	root, err := workspaceRoot()
	if err != nil {
		log.Fatalf("serve: %v", err)
	}
	rec, err := loadWorkspaceConfig(root)
	if err != nil {
		log.Fatalf("serve: %v", err)
	}

	logger := logging.New(logging.Config{Level: logging.LevelInfo, Service: "codeowners-lsp", LogDir: serveLogDir})
	defer logger.Close()

	ctx := context.Background()
	shutdownTelemetry, err := initTelemetry(ctx, telemetryConfig{ServiceName: "codeowners-lsp", ServiceVersion: "0.1.0"}, logger)
	if err != nil {
		logger.Warn("telemetry initialization failed, continuing without it", "error", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}
	defer shutdownTelemetry(ctx)

	sess, idx, err := openWorkspace(root, rec, logger)
	if err != nil {
		log.Fatalf("serve: %v", err)
	}

	watcher, err := repoindex.Watch(idx, root, repoindex.WithLogger(logger.Slog()))
	if err != nil {
		logger.Warn("filesystem watch unavailable, repository index will not auto-refresh", "error", err)
	} else {
		defer watcher.Close()
	}

	logger.Info("codeowners-lsp serving over stdio", "root", root, "manifest", rec.Path)

	transport := lspwire.NewTransport(os.Stdin, os.Stdout)
	d := &dispatcher{sess: sess, transport: transport, logger: logger}
	if err := d.loop(); err != nil && !errors.Is(err, io.EOF) {
		logger.Error("serve loop terminated", "error", err)
		os.Exit(1)
	}
}

// dispatcher routes framed JSON-RPC messages to Session operations and
// writes back the corresponding response. One dispatcher serves exactly
// one workspace/session, matching the one-Session-per-workspace model.
type dispatcher struct {
	sess      *session.Session
	transport *lspwire.Transport
	logger    *logging.Logger
}

func (d *dispatcher) loop() error {
	for {
		msg, err := d.transport.ReadMessage()
		if err != nil {
			return err
		}

		requestID := uuid.NewString()
		logger := d.logger.With("request_id", requestID, "method", msg.Method)

		if msg.Method == "exit" {
			return nil
		}

		result, respErr := d.handle(msg.Method, msg.Params, logger)
		if msg.ID == nil {
			// Notification: no response expected, regardless of outcome.
			if respErr != nil {
				logger.Warn("notification handling failed", "error", respErr)
			}
			continue
		}

		if respErr != nil {
			logger.Warn("request failed", "error", respErr)
			if err := d.transport.WriteError(*msg.ID, toResponseError(respErr)); err != nil {
				return err
			}
			continue
		}
		if err := d.transport.WriteResult(*msg.ID, result); err != nil {
			return err
		}
	}
}

func toResponseError(err error) *lspwire.ResponseError {
	var re *lspwire.ResponseError
	if errors.As(err, &re) {
		return re
	}
	return &lspwire.ResponseError{Code: -32603, Message: err.Error()}
}

func (d *dispatcher) handle(method string, params json.RawMessage, logger *logging.Logger) (interface{}, error) {
	ctx := context.Background()

	switch method {
	case "initialize":
		return lspwire.ServerCapabilities{
			TextDocumentSync:   lspwire.TextDocumentSyncFull,
			HoverProvider:      true,
			InlayHintProvider:  true,
			CodeActionProvider: true,
			DefinitionProvider: true,
			ExecuteCommandProvider: &lspwire.ExecuteCommandOptions{
				Commands: session.Commands,
			},
		}, nil

	case "textDocument/didOpen":
		var p lspwire.DidOpenTextDocumentParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, invalidParams(err)
		}
		return nil, d.sess.Open(p.TextDocument.URI, p.TextDocument.Text, p.TextDocument.Version)

	case "textDocument/didChange":
		var p lspwire.DidChangeTextDocumentParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, invalidParams(err)
		}
		if len(p.ContentChanges) == 0 {
			return nil, nil
		}
		return nil, d.sess.Change(p.TextDocument.URI, p.ContentChanges[0].Text, p.TextDocument.Version)

	case "textDocument/didClose":
		var p lspwire.DidCloseTextDocumentParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, invalidParams(err)
		}
		return nil, d.sess.Close(p.TextDocument.URI)

	case "textDocument/hover":
		var p lspwire.TextDocumentPositionParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, invalidParams(err)
		}
		return d.sess.Hover(ctx, p.TextDocument.URI, p.Position)

	case "textDocument/inlayHint":
		var p lspwire.InlayHintParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, invalidParams(err)
		}
		return d.sess.InlayHints(ctx, p.TextDocument.URI, p.Range)

	case "textDocument/codeAction":
		var p lspwire.CodeActionParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, invalidParams(err)
		}
		return d.sess.CodeActions(ctx, p.TextDocument.URI, p.Range)

	case "textDocument/definition":
		var p lspwire.TextDocumentPositionParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, invalidParams(err)
		}
		return d.sess.GotoDefinition(ctx, p.TextDocument.URI, p.Position)

	case "workspace/executeCommand":
		var p lspwire.ExecuteCommandParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, invalidParams(err)
		}
		return d.sess.Execute(ctx, p)

	case "textDocument/diagnostic":
		return d.sess.Diagnostics(ctx)

	case "initialized", "$/cancelRequest":
		return nil, nil

	default:
		return nil, &lspwire.ResponseError{Code: -32801, Message: "unrecognised method: " + method}
	}
}

func invalidParams(err error) error {
	return &lspwire.ResponseError{Code: -32602, Message: "invalid params: " + err.Error()}
}
