// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package checker_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/txtar"

	"go.pyscope.dev/cache"
	"go.pyscope.dev/checker"
	"go.pyscope.dev/config"
	"go.pyscope.dev/resolve"
)

const tree = `
A small project.

-- pkg/a.py --
import os
print(os.sep, missing)
-- pkg/b.py --
def f(:
    pass
-- pkg/c.py --
from m import *
print(anything)
-- pkg/__pycache__/d.py --
undefined
-- pkg/.hidden/e.py --
undefined
-- pkg/notes.txt --
undefined
-- pkg/migrations/m.py --
undefined
-- pkg/sub/ok.py --
x = 1
`

// extract writes the files of a txtar archive beneath a temporary
// directory and returns its name.
func extract(t *testing.T, archive string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range txtar.Parse([]byte(archive)).Files {
		filename := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filename, f.Data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// summarize returns "file:line code" for each finding, with file
// relative to dir.
func summarize(dir string, findings []resolve.Finding) []string {
	var out []string
	for _, f := range findings {
		rel, _ := filepath.Rel(dir, f.Pos.Filename())
		out = append(out, fmt.Sprintf("%s:%d %s", filepath.ToSlash(rel), f.Pos.Line, f.Code))
	}
	return out
}

func relPaths(dir string, paths []string) []string {
	var out []string
	for _, path := range paths {
		rel, _ := filepath.Rel(dir, path)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

// newConfig returns the configuration used with tree.
func newConfig() *config.Config {
	cfg := config.Default()
	cfg.Exclude = []string{"migrations"}
	return cfg
}

func TestDiscover(t *testing.T) {
	dir := extract(t, tree)
	cfg := newConfig()

	paths, err := checker.Discover(cfg, dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"pkg/a.py", "pkg/b.py", "pkg/c.py", "pkg/sub/ok.py"}
	if diff := cmp.Diff(want, relPaths(dir, paths)); diff != "" {
		t.Errorf("Discover differs (-want +got):\n%s", diff)
	}

	// An explicit file is returned even if it is not a .py file,
	// and duplicates are dropped.
	notes := filepath.Join(dir, "pkg", "notes.txt")
	paths, err = checker.Discover(cfg, notes, notes)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"pkg/notes.txt"}, relPaths(dir, paths)); diff != "" {
		t.Errorf("Discover(file) differs (-want +got):\n%s", diff)
	}

	cfg.MaxFiles = 2
	paths, err = checker.Discover(cfg, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Errorf("Discover with max_files=2 returned %d files", len(paths))
	}

	empty := t.TempDir()
	if _, err := checker.Discover(cfg, empty); !errors.Is(err, checker.ErrNoFiles) {
		t.Errorf("Discover(empty) error = %v, want ErrNoFiles", err)
	}
}

func TestRun(t *testing.T) {
	dir := extract(t, tree)
	for _, test := range []struct {
		policy string
		want   []string
	}{
		{"suppress", []string{"pkg/a.py:2 F821", "pkg/b.py:1 E999", "pkg/c.py:1 F403"}},
		{"report", []string{"pkg/a.py:2 F821", "pkg/b.py:1 E999", "pkg/c.py:1 F403", "pkg/c.py:2 F821"}},
	} {
		cfg := newConfig()
		cfg.StarImports = test.policy
		cfg.Jobs = 2
		res, err := checker.New(cfg, nil, nil).CheckPaths(context.Background(), filepath.Join(dir, "pkg"))
		if err != nil {
			t.Fatal(err)
		}
		if res.Files != 4 {
			t.Errorf("%s: checked %d files, want 4", test.policy, res.Files)
		}
		if len(res.Failed) != 0 {
			t.Errorf("%s: unexpected failures %v", test.policy, res.Failed)
		}
		if diff := cmp.Diff(test.want, summarize(dir, res.Findings)); diff != "" {
			t.Errorf("%s: findings differ (-want +got):\n%s", test.policy, diff)
		}
	}
}

func TestCheckSource(t *testing.T) {
	c := checker.New(nil, nil, nil)
	ctx := context.Background()

	findings, err := c.CheckSource(ctx, "bad.py", []byte("x = 1\ny = 'caf\xe9'\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	if got, want := findings[0].String(), "bad.py:2:9: invalid UTF-8 encoding"; got != want {
		t.Errorf("finding = %q, want %q", got, want)
	}
	if findings[0].Code != resolve.CodeIO {
		t.Errorf("code = %s, want %s", findings[0].Code, resolve.CodeIO)
	}

	findings, err = c.CheckSource(ctx, "syntax.py", []byte("x = (1,\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 1 || findings[0].Code != resolve.CodeSyntax ||
		!strings.HasPrefix(findings[0].Msg, "syntax error: ") {
		t.Errorf("got %v, want one syntax error", findings)
	}

	findings, err = c.CheckSource(ctx, "ok.py", []byte("print(len([]))\n"))
	if err != nil || len(findings) != 0 {
		t.Errorf("CheckSource(ok.py) = %v, %v", findings, err)
	}
}

func TestCheckFileUnreadable(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.py")
	findings, err := checker.New(nil, nil, nil).CheckFile(context.Background(), missing)
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 1 || findings[0].Code != resolve.CodeIO {
		t.Fatalf("got %v, want one E902 finding", findings)
	}
	if findings[0].Pos.Filename() != missing || findings[0].Pos.Line != 0 {
		t.Errorf("finding position = %v", findings[0].Pos)
	}
}

func TestCache(t *testing.T) {
	dir := extract(t, tree)
	db, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	c := checker.New(newConfig(), db, nil)
	first, err := c.CheckPaths(context.Background(), filepath.Join(dir, "pkg"))
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached != 0 {
		t.Errorf("first run: %d files from cache, want 0", first.Cached)
	}
	second, err := c.CheckPaths(context.Background(), filepath.Join(dir, "pkg"))
	if err != nil {
		t.Fatal(err)
	}
	if second.Cached != 4 {
		t.Errorf("second run: %d files from cache, want 4", second.Cached)
	}
	if diff := cmp.Diff(summarize(dir, first.Findings), summarize(dir, second.Findings)); diff != "" {
		t.Errorf("cached findings differ (-first +second):\n%s", diff)
	}

	// A different configuration does not share entries.
	cfg := newConfig()
	cfg.Allow = []string{"missing"}
	third, err := checker.New(cfg, db, nil).CheckPaths(context.Background(), filepath.Join(dir, "pkg"))
	if err != nil {
		t.Fatal(err)
	}
	if third.Cached != 0 {
		t.Errorf("run with new config: %d files from cache, want 0", third.Cached)
	}
	want := []string{"pkg/b.py:1 E999", "pkg/c.py:1 F403"}
	if diff := cmp.Diff(want, summarize(dir, third.Findings)); diff != "" {
		t.Errorf("findings differ (-want +got):\n%s", diff)
	}
}

func TestCancel(t *testing.T) {
	dir := extract(t, tree)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := checker.New(nil, nil, nil).CheckPaths(ctx, dir)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("CheckPaths error = %v, want context.Canceled", err)
	}
	if res != nil {
		t.Errorf("CheckPaths returned partial results")
	}
}
