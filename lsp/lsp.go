// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lsp implements a language server that publishes the findings
// of the checker as diagnostics of open Python documents.
package lsp // import "go.pyscope.dev/lsp"

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/sourcegraph/jsonrpc2"

	"go.pyscope.dev/checker"
)

// Serve runs a language server over rwc until the client disconnects
// or ctx is done.
func Serve(ctx context.Context, rwc io.ReadWriteCloser, c *checker.Checker, logger *log.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s := newServer(c, logger)
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}),
		handler(s))
	select {
	case <-conn.DisconnectNotify():
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	}
	return nil
}

// ServeStdio runs a language server over the standard input and output.
func ServeStdio(ctx context.Context, c *checker.Checker, logger *log.Logger) error {
	return Serve(ctx, stdrwc{}, c, logger)
}

type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdrwc) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		os.Stdout.Close()
		return err
	}
	return os.Stdout.Close()
}
