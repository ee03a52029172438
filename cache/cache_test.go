// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache_test

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.pyscope.dev/cache"
	"go.pyscope.dev/resolve"
	"go.pyscope.dev/syntax"
)

func mustOpen(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func summarize(findings []resolve.Finding) []string {
	var out []string
	for _, f := range findings {
		out = append(out, f.String()+" "+f.Code+" "+f.Name+" "+f.Severity.String())
	}
	return out
}

func TestPutGet(t *testing.T) {
	c := mustOpen(t)
	src := []byte("def f(a):\n    return a + b\nfrom m import *\n")
	f, err := syntax.Parse("old.py", src)
	if err != nil {
		t.Fatal(err)
	}
	findings, err := resolve.File(f, &resolve.Options{StarImports: resolve.ReportUnresolved})
	if err != nil {
		t.Fatal(err)
	}

	key := cache.Key("fp", src)
	if _, ok, err := c.Get(key, "new.py"); err != nil || ok {
		t.Fatalf("Get before Put = %t, %v", ok, err)
	}
	if err := c.Put(key, findings); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get(key, "new.py")
	if err != nil || !ok {
		t.Fatalf("Get after Put = %t, %v", ok, err)
	}
	want := []string{
		"new.py:2:16: name 'b' is not defined F821 b ERROR",
		"new.py:3:1: 'from m import *' used; unable to detect undefined names F403 m WARNING",
	}
	if diff := cmp.Diff(want, summarize(got)); diff != "" {
		t.Errorf("cached findings differ (-want +got):\n%s", diff)
	}

	if n, err := c.Len(); err != nil || n != 1 {
		t.Errorf("Len = %d, %v; want 1", n, err)
	}
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if n, err := c.Len(); err != nil || n != 0 {
		t.Errorf("Len after Clear = %d, %v; want 0", n, err)
	}
}

func TestEmptyFindings(t *testing.T) {
	c := mustOpen(t)
	key := cache.Key("fp", []byte("x = 1\n"))
	if err := c.Put(key, nil); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get(key, "a.py")
	if err != nil || !ok {
		t.Fatalf("Get = %t, %v", ok, err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want no findings", got)
	}
}

func TestSuggestion(t *testing.T) {
	c := mustOpen(t)
	filename := "a.py"
	in := []resolve.Finding{{
		Pos:        syntax.MakePosition(&filename, 1, 1),
		Name:       "pritn",
		Code:       resolve.CodeUnresolved,
		Severity:   resolve.SeverityError,
		Msg:        "name 'pritn' is not defined",
		Suggestion: "print",
	}}
	if err := c.Put("k", in); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get("k", "b.py")
	if err != nil || !ok || len(got) != 1 {
		t.Fatalf("Get = %v, %t, %v", got, ok, err)
	}
	if got[0].Suggestion != "print" || got[0].Pos.Filename() != "b.py" {
		t.Errorf("got %+v", got[0])
	}
}

func TestKey(t *testing.T) {
	src := []byte("x = 1\n")
	if cache.Key("a", src) != cache.Key("a", src) {
		t.Errorf("Key is not deterministic")
	}
	if cache.Key("a", src) == cache.Key("b", src) {
		t.Errorf("Key ignores the fingerprint")
	}
	if cache.Key("a", src) == cache.Key("a", []byte("x = 2\n")) {
		t.Errorf("Key ignores the content")
	}
}

func TestReopen(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "cache.db")
	c, err := cache.Open(filename)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put("k", nil); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	c, err = cache.Open(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, ok, err := c.Get("k", "a.py"); err != nil || !ok {
		t.Errorf("entry lost across reopen: %t, %v", ok, err)
	}
}
