// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lsp

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"unicode/utf8"

	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"

	"go.pyscope.dev/checker"
	"go.pyscope.dev/resolve"
)

// Source is the source of every published diagnostic.
const Source = "pyscope"

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
)

type server struct {
	checker *checker.Checker
	log     *log.Logger // may be nil

	mu      sync.Mutex
	content map[lsp.DocumentURI]string
}

func newServer(c *checker.Checker, logger *log.Logger) *server {
	if c == nil {
		c = checker.New(nil, nil, logger)
	}
	return &server{checker: c, log: logger, content: make(map[lsp.DocumentURI]string)}
}

func (s *server) logf(format string, args ...interface{}) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func handler(s *server) jsonrpc2.Handler {
	return routingHandler(map[string]method{
		"initialize":             s.initialize,
		"textDocument/didOpen":   s.didOpen,
		"textDocument/didChange": s.didChange,
		"textDocument/didClose":  s.didClose,
		"shutdown":               noop,
		"exit":                   exit,

		"initialized":                     noop,
		"workspace/didChangeWatchedFiles": noop,
	})
}

type method func(context.Context, jsonrpc2.JSONRPC2, json.RawMessage) (interface{}, error)

func noop(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (interface{}, error) {
	return nil, nil
}

func exit(_ context.Context, conn jsonrpc2.JSONRPC2, _ json.RawMessage) (interface{}, error) {
	return nil, conn.Close()
}

func routingHandler(methods map[string]method) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
		fn, ok := methods[req.Method]
		if !ok {
			return nil, errMethodNotFound
		}
		var params json.RawMessage
		if req.Params != nil {
			params = *req.Params
		}
		return fn(ctx, conn, params)
	})
}

func (s *server) initialize(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (interface{}, error) {
	return &lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
				Options: &lsp.TextDocumentSyncOptions{
					OpenClose: true,
					Change:    lsp.TDSKFull,
				},
			},
		},
	}, nil
}

func (s *server) didOpen(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (interface{}, error) {
	var params lsp.DidOpenTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	s.update(ctx, conn, params.TextDocument.URI, params.TextDocument.Text)
	return nil, nil
}

func (s *server) didChange(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (interface{}, error) {
	var params lsp.DidChangeTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil || len(params.ContentChanges) == 0 {
		return nil, errInvalidParams
	}
	// Only full-text changes are advertised by initialize.
	changes := params.ContentChanges
	s.update(ctx, conn, params.TextDocument.URI, changes[len(changes)-1].Text)
	return nil, nil
}

func (s *server) didClose(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (interface{}, error) {
	var params lsp.DidCloseTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	uri := params.TextDocument.URI
	s.mu.Lock()
	delete(s.content, uri)
	s.mu.Unlock()
	s.publish(ctx, conn, uri, []lsp.Diagnostic{})
	return nil, nil
}

func (s *server) update(ctx context.Context, conn jsonrpc2.JSONRPC2, uri lsp.DocumentURI, content string) {
	s.mu.Lock()
	s.content[uri] = content
	s.mu.Unlock()
	s.publish(ctx, conn, uri, s.diagnostics(ctx, uri, content))
}

func (s *server) publish(ctx context.Context, conn jsonrpc2.JSONRPC2, uri lsp.DocumentURI, diags []lsp.Diagnostic) {
	err := conn.Notify(ctx, "textDocument/publishDiagnostics",
		lsp.PublishDiagnosticsParams{URI: uri, Diagnostics: diags})
	if err != nil {
		s.logf("%s: %v", uri, err)
	}
}

func (s *server) diagnostics(ctx context.Context, uri lsp.DocumentURI, content string) []lsp.Diagnostic {
	findings, err := s.checker.CheckSource(ctx, uriFilename(uri), []byte(content))
	if err != nil {
		s.logf("%s: %v", uri, err)
		return []lsp.Diagnostic{}
	}
	lines := strings.Split(content, "\n")
	diags := make([]lsp.Diagnostic, len(findings))
	for i, f := range findings {
		start := lspPosition(lines, f.Pos.Line, f.Pos.Col)
		end := start
		if f.Code == resolve.CodeUnresolved {
			end.Character += utf16Len(f.Name)
		}
		diags[i] = lsp.Diagnostic{
			Range:    lsp.Range{Start: start, End: end},
			Severity: lspSeverity(f.Severity),
			Code:     f.Code,
			Source:   Source,
			Message:  f.Msg,
		}
	}
	return diags
}

func lspSeverity(sev resolve.Severity) lsp.DiagnosticSeverity {
	if sev == resolve.SeverityError {
		return lsp.Error
	}
	return lsp.Warning
}

func uriFilename(uri lsp.DocumentURI) string {
	return strings.TrimPrefix(string(uri), "file://")
}

// lspPosition converts a 1-based line and rune column into a 0-based
// line and UTF-16 character offset.
func lspPosition(lines []string, line, col int32) lsp.Position {
	if line <= 0 {
		return lsp.Position{}
	}
	pos := lsp.Position{Line: int(line) - 1}
	if int(line) > len(lines) || col <= 1 {
		return pos
	}
	text := lines[line-1]
	for n := int32(1); n < col && len(text) > 0; n++ {
		r, size := utf8.DecodeRuneInString(text)
		pos.Character += utf16Width(r)
		text = text[size:]
	}
	return pos
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Width(r)
	}
	return n
}

func utf16Width(r rune) int {
	if r <= 0xFFFF {
		return 1
	}
	return 2
}
