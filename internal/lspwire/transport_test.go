// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lspwire

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestTransport_WriteResult(t *testing.T) {
	t.Run("writes Content-Length header", func(t *testing.T) {
		var buf bytes.Buffer
		tr := NewTransport(nil, &buf)

		if err := tr.WriteResult(1, map[string]string{"key": "value"}); err != nil {
			t.Fatalf("WriteResult: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Content-Length:") {
			t.Errorf("missing Content-Length header in: %s", output)
		}
	})

	t.Run("writes valid JSON body", func(t *testing.T) {
		var buf bytes.Buffer
		tr := NewTransport(nil, &buf)

		if err := tr.WriteResult(1, map[string]string{"key": "value"}); err != nil {
			t.Fatalf("WriteResult: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, `"jsonrpc":"2.0"`) {
			t.Errorf("missing jsonrpc field in: %s", output)
		}
		if !strings.Contains(output, `"id":1`) {
			t.Errorf("missing id field in: %s", output)
		}
		if !strings.Contains(output, `"key":"value"`) {
			t.Errorf("missing result in: %s", output)
		}
	})
}

func TestTransport_WriteError(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransport(nil, &buf)

	if err := tr.WriteError(7, &ResponseError{Code: -32602, Message: "bad params"}); err != nil {
		t.Fatalf("WriteError: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, `"code":-32602`) {
		t.Errorf("missing error code in: %s", output)
	}
	if !strings.Contains(output, `"message":"bad params"`) {
		t.Errorf("missing error message in: %s", output)
	}
	if strings.Contains(output, `"result"`) {
		t.Errorf("error response should not carry a result: %s", output)
	}
}

func TestTransport_WriteNotification(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransport(nil, &buf)

	if err := tr.WriteNotification("textDocument/publishDiagnostics", struct{ URI string }{URI: "file:///x"}); err != nil {
		t.Fatalf("WriteNotification: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, `"method":"textDocument/publishDiagnostics"`) {
		t.Errorf("missing method in: %s", output)
	}
	if strings.Contains(output, `"id":`) {
		t.Errorf("notification should not have an id in: %s", output)
	}
}

func TestTransport_ReadMessage(t *testing.T) {
	t.Run("reads a request with an id", func(t *testing.T) {
		msg := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`
		input := fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(msg), msg)

		tr := NewTransport(strings.NewReader(input), nil)
		got, err := tr.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		if got.ID == nil || *got.ID != 1 {
			t.Errorf("ID = %v, want 1", got.ID)
		}
		if got.Method != "initialize" {
			t.Errorf("Method = %q, want initialize", got.Method)
		}
	})

	t.Run("reads a notification with no id", func(t *testing.T) {
		msg := `{"jsonrpc":"2.0","method":"initialized","params":{}}`
		input := fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(msg), msg)

		tr := NewTransport(strings.NewReader(input), nil)
		got, err := tr.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		if got.ID != nil {
			t.Errorf("ID = %v, want nil", got.ID)
		}
	})

	t.Run("handles multiple headers", func(t *testing.T) {
		msg := `{"jsonrpc":"2.0","id":2,"method":"shutdown"}`
		input := fmt.Sprintf("Content-Length: %d\r\nContent-Type: application/vscode-jsonrpc; charset=utf-8\r\n\r\n%s", len(msg), msg)

		tr := NewTransport(strings.NewReader(input), nil)
		got, err := tr.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		if got.Method != "shutdown" {
			t.Errorf("Method = %q, want shutdown", got.Method)
		}
	})

	t.Run("returns error for missing Content-Length", func(t *testing.T) {
		tr := NewTransport(strings.NewReader("\r\n{}"), nil)
		if _, err := tr.ReadMessage(); err == nil {
			t.Error("expected error for missing Content-Length")
		}
	})

	t.Run("returns EOF for empty input", func(t *testing.T) {
		tr := NewTransport(strings.NewReader(""), nil)
		if _, err := tr.ReadMessage(); err != io.EOF {
			t.Errorf("expected EOF, got %v", err)
		}
	})
}

func TestTransport_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransport(&buf, &buf)

	if err := tr.WriteResult(9, []int{1, 2, 3}); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}

	got, err := tr.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if got.ID == nil || *got.ID != 9 {
		t.Errorf("ID = %v, want 9", got.ID)
	}
}
