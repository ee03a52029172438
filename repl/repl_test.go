// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package repl

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.pyscope.dev/resolve"
	"go.pyscope.dev/syntax"
)

// lines returns a readline function that yields the specified lines,
// then io.EOF.
func lines(input ...string) func() ([]byte, error) {
	return func() ([]byte, error) {
		if len(input) == 0 {
			return nil, io.EOF
		}
		line := input[0]
		input = input[1:]
		return []byte(line), nil
	}
}

func TestSession(t *testing.T) {
	for _, test := range []struct {
		policy resolve.StarImportPolicy
		want   []string // output of each item
	}{
		{resolve.SuppressUnresolved, []string{
			"",
			"<stdin>:2:16: name 'y' is not defined [ERROR F821]\n",
			"",
			"<stdin>:1:1: 'from m import *' used; unable to detect undefined names [WARNING F403]\n",
			"",
		}},
		{resolve.ReportUnresolved, []string{
			"",
			"<stdin>:2:16: name 'y' is not defined [ERROR F821]\n",
			"",
			"<stdin>:1:1: 'from m import *' used; unable to detect undefined names [WARNING F403]\n",
			"<stdin>:1:7: name 'z' is not defined [ERROR F821]\n",
		}},
	} {
		s := NewSession(&resolve.Options{StarImports: test.policy})
		readline := lines(
			"x = 1\n",
			"def f():\n", "    return x + y\n", "\n",
			"print(f(x))\n",
			"from m import *\n",
			"print(z)\n",
		)
		var got []string
		for range test.want {
			var out bytes.Buffer
			if err := s.item(context.Background(), readline, &out); err != nil {
				t.Fatalf("%s: %v", test.policy, err)
			}
			got = append(got, out.String())
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("%s: output differs (-want +got):\n%s", test.policy, diff)
		}
		if err := s.item(context.Background(), readline, io.Discard); err != io.EOF {
			t.Errorf("%s: item at end of input returned %v, want EOF", test.policy, err)
		}
		if diff := cmp.Diff([]string{"f", "x"}, s.Globals()); diff != "" {
			t.Errorf("%s: globals differ (-want +got):\n%s", test.policy, diff)
		}
	}
}

func TestSessionSyntaxError(t *testing.T) {
	s := NewSession(nil)
	var out bytes.Buffer
	if err := s.item(context.Background(), lines("1 +\n", "y = 2\n"), &out); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
	if len(s.Globals()) != 0 {
		t.Errorf("syntax error bound globals %v", s.Globals())
	}
}

func TestSessionPredeclared(t *testing.T) {
	s := NewSession(&resolve.Options{Predeclared: resolve.NewNameSet("app")})
	findings, err := s.Resolve(context.Background(), mustParse(t, "app.run(cfg)\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 1 || findings[0].Name != "cfg" {
		t.Fatalf("got %v, want one finding for cfg", findings)
	}
	if _, err := s.Resolve(context.Background(), mustParse(t, "cfg = {}\n")); err != nil {
		t.Fatal(err)
	}
	findings, err = s.Resolve(context.Background(), mustParse(t, "app.run(cfg)\n"))
	if err != nil || len(findings) != 0 {
		t.Errorf("after binding cfg: %v, %v", findings, err)
	}
}

func mustParse(t *testing.T, src string) *syntax.File {
	t.Helper()
	f, err := syntax.Parse("<stdin>", src)
	if err != nil {
		t.Fatal(err)
	}
	return f
}
