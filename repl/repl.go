// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package repl provides an interactive read/resolve/print loop for
// Python.
//
// It supports readline-style command editing,
// and interrupts through Control-C.
//
// Each input item is a simple statement or a compound statement
// terminated by a blank line. The REPL resolves the item as though it
// were appended to the items entered before it, and prints the
// findings. Names bound at module level by earlier items are visible
// to later ones.
package repl // import "go.pyscope.dev/repl"

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/chzyer/readline"

	"go.pyscope.dev/resolve"
	"go.pyscope.dev/syntax"
)

var interrupted = make(chan os.Signal, 1)

// A Session accumulates the module-level names of successive items.
type Session struct {
	opts    resolve.Options
	globals resolve.NameSet
	star    bool // an earlier item contained a wildcard import
}

// NewSession returns a session whose items are resolved with the
// specified options. A nil opts is equivalent to the zero Options.
func NewSession(opts *resolve.Options) *Session {
	s := &Session{globals: make(resolve.NameSet)}
	if opts != nil {
		s.opts = *opts
	}
	return s
}

// Globals returns the names bound at module level so far, in order.
func (s *Session) Globals() []string { return s.globals.Names() }

// Resolve resolves one item in the context of the earlier ones and
// returns its findings.
func (s *Session) Resolve(ctx context.Context, f *syntax.File) ([]resolve.Finding, error) {
	opts := s.opts
	opts.Predeclared = s.opts.Predeclared.Union(s.globals)
	res, err := resolve.ResolveContext(ctx, f, &opts)
	if err != nil {
		return nil, err
	}
	for _, name := range res.Globals {
		s.globals[name] = true
	}
	s.star = s.star || res.StarImport

	findings := res.Findings
	if s.star && !res.StarImport && opts.StarImports == resolve.SuppressUnresolved {
		// A wildcard import in an earlier item still hides
		// unresolved names.
		findings = findings[:0:0]
		for _, f := range res.Findings {
			if f.Code != resolve.CodeUnresolved {
				findings = append(findings, f)
			}
		}
	}
	return findings, nil
}

// REPL executes a read, resolve, print loop.
func REPL(s *Session) {
	signal.Notify(interrupted, os.Interrupt)
	defer signal.Stop(interrupted)

	rl, err := readline.New(">>> ")
	if err != nil {
		PrintError(err)
		return
	}
	defer rl.Close()
	for {
		if err := rep(rl, s); err != nil {
			if err == readline.ErrInterrupt {
				fmt.Println(err)
				continue
			}
			break
		}
	}
	fmt.Println()
}

// rep reads, resolves, and prints one item.
//
// It returns an error (possibly readline.ErrInterrupt)
// only if readline failed. Other errors are printed.
func rep(rl *readline.Instance, s *Session) error {
	// Each item gets its own context,
	// which is cancelled by a SIGINT.
	//
	// Note: during Readline calls, Control-C causes Readline to return
	// ErrInterrupt but does not generate a SIGINT.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-interrupted:
			cancel()
		case <-ctx.Done():
		}
	}()

	// readline returns EOF, ErrInterrupted, or a line including "\n".
	rl.SetPrompt(">>> ")
	readline := func() ([]byte, error) {
		line, err := rl.Readline()
		rl.SetPrompt("... ")
		if err != nil {
			return nil, err
		}
		return []byte(line + "\n"), nil
	}
	return s.item(ctx, readline, rl.Stdout())
}

// item parses one item from readline, resolves it, and prints its
// findings to out. It returns an error only if readline failed.
func (s *Session) item(ctx context.Context, readline func() ([]byte, error), out io.Writer) error {
	var rlErr error
	f, err := syntax.ParseCompoundStmt("<stdin>", func() ([]byte, error) {
		line, err := readline()
		if err != nil {
			rlErr = err
		}
		return line, err
	})
	if err != nil {
		if rlErr != nil {
			return rlErr
		}
		PrintError(err)
		return nil
	}

	findings, err := s.Resolve(ctx, f)
	if err != nil {
		PrintError(err)
		return nil
	}
	for _, f := range findings {
		fmt.Fprintf(out, "%s [%s %s]\n", f, f.Severity, f.Code)
	}
	return nil
}

// PrintError prints the error to stderr.
func PrintError(err error) {
	fmt.Fprintln(os.Stderr, err)
}
