// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lsp

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"

	"go.pyscope.dev/checker"
	"go.pyscope.dev/config"
)

type client struct {
	conn  *jsonrpc2.Conn
	diags chan lsp.PublishDiagnosticsParams
	done  chan error
}

// startServer connects a client to a server over an in-memory pipe.
func startServer(t *testing.T, cfg *config.Config) *client {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serverSide, clientSide := net.Pipe()

	c := &client{
		diags: make(chan lsp.PublishDiagnosticsParams, 10),
		done:  make(chan error, 1),
	}
	go func() { c.done <- Serve(ctx, serverSide, checker.New(cfg, nil, nil), nil) }()

	h := jsonrpc2.HandlerWithError(func(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
		if req.Method == "textDocument/publishDiagnostics" && req.Params != nil {
			var params lsp.PublishDiagnosticsParams
			if err := json.Unmarshal(*req.Params, &params); err == nil {
				c.diags <- params
			}
		}
		return nil, nil
	})
	c.conn = jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}), h)
	t.Cleanup(func() {
		c.conn.Close()
		cancel()
	})
	return c
}

func (c *client) notify(t *testing.T, method string, params interface{}) {
	t.Helper()
	if err := c.conn.Notify(context.Background(), method, params); err != nil {
		t.Fatalf("%s: %v", method, err)
	}
}

func (c *client) nextDiagnostics(t *testing.T) lsp.PublishDiagnosticsParams {
	t.Helper()
	select {
	case params := <-c.diags:
		return params
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for diagnostics")
		panic("unreachable")
	}
}

func TestServer(t *testing.T) {
	c := startServer(t, nil)
	ctx := context.Background()

	var init lsp.InitializeResult
	if err := c.conn.Call(ctx, "initialize", lsp.InitializeParams{}, &init); err != nil {
		t.Fatal(err)
	}
	sync := init.Capabilities.TextDocumentSync
	if sync == nil || sync.Options == nil || !sync.Options.OpenClose || sync.Options.Change != lsp.TDSKFull {
		t.Errorf("unexpected sync capabilities %+v", sync)
	}
	c.notify(t, "initialized", struct{}{})

	const uri = lsp.DocumentURI("file:///project/a.py")
	c.notify(t, "textDocument/didOpen", lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: uri, LanguageID: "python", Version: 1,
			Text: "import os\nprint(os.sep, missing)\n"},
	})
	got := c.nextDiagnostics(t)
	want := lsp.PublishDiagnosticsParams{
		URI: uri,
		Diagnostics: []lsp.Diagnostic{{
			Range: lsp.Range{
				Start: lsp.Position{Line: 1, Character: 14},
				End:   lsp.Position{Line: 1, Character: 21},
			},
			Severity: lsp.Error,
			Code:     "F821",
			Source:   Source,
			Message:  "name 'missing' is not defined",
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("didOpen diagnostics differ (-want +got):\n%s", diff)
	}

	c.notify(t, "textDocument/didChange", lsp.DidChangeTextDocumentParams{
		TextDocument:   lsp.VersionedTextDocumentIdentifier{TextDocumentIdentifier: lsp.TextDocumentIdentifier{URI: uri}, Version: 2},
		ContentChanges: []lsp.TextDocumentContentChangeEvent{{Text: "missing = 1\nprint(missing)\n"}},
	})
	if got := c.nextDiagnostics(t); len(got.Diagnostics) != 0 {
		t.Errorf("didChange: unexpected diagnostics %v", got.Diagnostics)
	}

	c.notify(t, "textDocument/didChange", lsp.DidChangeTextDocumentParams{
		TextDocument:   lsp.VersionedTextDocumentIdentifier{TextDocumentIdentifier: lsp.TextDocumentIdentifier{URI: uri}, Version: 3},
		ContentChanges: []lsp.TextDocumentContentChangeEvent{{Text: "def f(:\n"}},
	})
	got = c.nextDiagnostics(t)
	if len(got.Diagnostics) != 1 || got.Diagnostics[0].Code != "E999" || got.Diagnostics[0].Severity != lsp.Error {
		t.Errorf("syntax error: got diagnostics %v", got.Diagnostics)
	}

	c.notify(t, "textDocument/didClose", lsp.DidCloseTextDocumentParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: uri},
	})
	if got := c.nextDiagnostics(t); got.URI != uri || len(got.Diagnostics) != 0 {
		t.Errorf("didClose: got %v", got)
	}

	if err := c.conn.Call(ctx, "shutdown", nil, nil); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	c.notify(t, "exit", nil)
	select {
	case err := <-c.done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Error("server did not exit")
	}
}

func TestStarImportWarning(t *testing.T) {
	c := startServer(t, nil)
	const uri = lsp.DocumentURI("file:///project/star.py")
	c.notify(t, "textDocument/didOpen", lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: uri, Text: "from m import *\nprint(anything)\n"},
	})
	got := c.nextDiagnostics(t)
	if len(got.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(got.Diagnostics), got.Diagnostics)
	}
	d := got.Diagnostics[0]
	if d.Code != "F403" || d.Severity != lsp.Warning || d.Range.Start != (lsp.Position{}) {
		t.Errorf("unexpected diagnostic %+v", d)
	}
}

func TestUnknownMethod(t *testing.T) {
	c := startServer(t, nil)
	err := c.conn.Call(context.Background(), "textDocument/hover", struct{}{}, nil)
	rpcErr, ok := err.(*jsonrpc2.Error)
	if !ok || rpcErr.Code != jsonrpc2.CodeMethodNotFound {
		t.Errorf("hover error = %v, want method not found", err)
	}
}

func TestLSPPosition(t *testing.T) {
	lines := []string{"x = 1", "s = 'é😀' + y"}
	for _, test := range []struct {
		line, col int32
		want      lsp.Position
	}{
		{0, 0, lsp.Position{}},
		{1, 1, lsp.Position{Line: 0, Character: 0}},
		{1, 5, lsp.Position{Line: 0, Character: 4}},
		{2, 13, lsp.Position{Line: 1, Character: 13}},
		{9, 3, lsp.Position{Line: 8, Character: 0}},
	} {
		if got := lspPosition(lines, test.line, test.col); got != test.want {
			t.Errorf("lspPosition(%d, %d) = %+v, want %+v", test.line, test.col, got, test.want)
		}
	}
	if n := utf16Len("a😀"); n != 3 {
		t.Errorf("utf16Len = %d, want 3", n)
	}
}
