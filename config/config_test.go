// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.pyscope.dev/config"
	"go.pyscope.dev/resolve"
)

func TestParse(t *testing.T) {
	const src = `
builtins: [print, len]
extra_builtins: [_]
allow: [injected]
star_imports: report
exclude: [migrations]
max_files: 10
jobs: 2
cache: cache.db
`
	cfg, err := config.Parse("a.yaml", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	want := &config.Config{
		Builtins:      []string{"print", "len"},
		ExtraBuiltins: []string{"_"},
		Allow:         []string{"injected"},
		StarImports:   "report",
		Exclude:       []string{"migrations"},
		MaxFiles:      10,
		Jobs:          2,
		Cache:         "cache.db",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config differs (-want +got):\n%s", diff)
	}

	opts := cfg.Options()
	if diff := cmp.Diff([]string{"_", "len", "print"}, opts.Builtins.Names()); diff != "" {
		t.Errorf("builtins differ (-want +got):\n%s", diff)
	}
	if !opts.Predeclared.Has("injected") {
		t.Errorf("allow-list not applied")
	}
	if opts.StarImports != resolve.ReportUnresolved {
		t.Errorf("StarImports = %v, want report", opts.StarImports)
	}
}

func TestDefault(t *testing.T) {
	for _, src := range []string{"", "# only a comment\n"} {
		cfg, err := config.Parse("a.yaml", []byte(src))
		if err != nil {
			t.Errorf("Parse(%q): %v", src, err)
			continue
		}
		if diff := cmp.Diff(config.Default(), cfg); diff != "" {
			t.Errorf("Parse(%q) differs from default (-want +got):\n%s", src, diff)
		}
	}

	opts := config.Default().Options()
	if !opts.Builtins.Has("len") || opts.StarImports != resolve.SuppressUnresolved {
		t.Errorf("default options are not the standard ones")
	}
}

func TestParseErrors(t *testing.T) {
	for _, test := range []struct {
		src, want string
	}{
		{"unknown: 1\n", "field unknown not found"},
		{"star_imports: ignore\n", `star_imports: invalid star import policy "ignore"`},
		{"jobs: -1\n", "jobs: must not be negative"},
		{"max_files: -2\n", "max_files: must not be negative"},
		{"allow: [a-b]\n", `"a-b" is not an identifier`},
		{"builtins: [1x]\n", `"1x" is not an identifier`},
		{"jobs: [\n", "a.yaml: yaml:"},
	} {
		_, err := config.Parse("a.yaml", []byte(test.src))
		if err == nil {
			t.Errorf("Parse(%q) succeeded unexpectedly", test.src)
			continue
		}
		if !strings.Contains(err.Error(), test.want) {
			t.Errorf("Parse(%q) error = %q, want substring %q", test.src, err, test.want)
		}
		if !strings.HasPrefix(err.Error(), "a.yaml: ") {
			t.Errorf("Parse(%q) error %q lacks file name", test.src, err)
		}
	}
}

func TestFingerprint(t *testing.T) {
	a := config.Default()
	b := config.Default()
	b.Jobs = 8
	b.Exclude = []string{"build"}
	if a.Fingerprint() != b.Fingerprint() {
		t.Errorf("fingerprint depends on fields that do not affect findings")
	}
	for _, change := range []func(*config.Config){
		func(c *config.Config) { c.Allow = []string{"x"} },
		func(c *config.Config) { c.ExtraBuiltins = []string{"x"} },
		func(c *config.Config) { c.Builtins = []string{"print"} },
		func(c *config.Config) { c.StarImports = "report" },
	} {
		c := config.Default()
		change(c)
		if c.Fingerprint() == a.Fingerprint() {
			t.Errorf("fingerprint unchanged by %+v", c)
		}
	}
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, "a", config.DefaultFile)
	if err := os.WriteFile(want, []byte("jobs: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := config.Find(sub)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("Find = %q, want %q", got, want)
	}
	cfg, err := config.Load(got)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Jobs != 1 {
		t.Errorf("Jobs = %d, want 1", cfg.Jobs)
	}
}
