// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.pyscope.dev/internal/chunkedfile"
	"go.pyscope.dev/resolve"
	"go.pyscope.dev/syntax"
)

func options(src string) *resolve.Options {
	opts := &resolve.Options{Predeclared: resolve.NewNameSet("M")}
	if option(src, "report-star") {
		opts.StarImports = resolve.ReportUnresolved
	}
	return opts
}

func option(chunk, name string) bool {
	return strings.Contains(chunk, "option:"+name)
}

func TestResolve(t *testing.T) {
	filename := "testdata/resolve.py"
	for _, chunk := range chunkedfile.Read(filename, t) {
		f, err := syntax.Parse(filename, chunk.Source)
		if err != nil {
			t.Error(err)
			continue
		}

		// A chunk may set options by containing e.g. "option:report-star".
		findings, err := resolve.File(f, options(chunk.Source))
		if err != nil {
			t.Error(err)
			continue
		}
		for _, finding := range findings {
			chunk.GotError(int(finding.Pos.Line), finding.Msg)
		}
		chunk.Done()
	}
}

// summarize returns "line:col code name" for each finding.
func summarize(findings []resolve.Finding) []string {
	var out []string
	for _, f := range findings {
		out = append(out, fmt.Sprintf("%d:%d %s %s", f.Pos.Line, f.Pos.Col, f.Code, f.Name))
	}
	return out
}

func resolveString(t *testing.T, src string, opts *resolve.Options) []resolve.Finding {
	t.Helper()
	f, err := syntax.Parse("a.py", src)
	if err != nil {
		t.Fatal(err)
	}
	findings, err := resolve.File(f, opts)
	if err != nil {
		t.Fatal(err)
	}
	return findings
}

func TestFindings(t *testing.T) {
	for _, test := range []struct {
		src  string
		want []string
	}{
		{"def f(a):\n    return a + b\n",
			[]string{"2:16 F821 b"}},
		{"class C:\n    def m(self):\n        return helper()\n",
			[]string{"3:16 F821 helper"}},
		// One finding per occurrence.
		{"x = y + y\nz = (y,\n     y)\n",
			[]string{"1:5 F821 y", "1:9 F821 y", "2:6 F821 y", "3:6 F821 y"}},
		// The call target is reported once.
		{"f(g(h))\n",
			[]string{"1:1 F821 f", "1:3 F821 g", "1:5 F821 h"}},
		{"[x for x in range(n)]\nx\n",
			[]string{"1:19 F821 n", "2:1 F821 x"}},
		{"for x in x:\n    x\n",
			[]string{"1:10 F821 x"}},
		// Nested comprehensions: the first iterable of the inner
		// comprehension is evaluated in the outer one.
		{"[[y for y in x] for x in xs]\n",
			[]string{"1:26 F821 xs"}},
		{"[y for x in [1] for y in y]\n",
			[]string{"1:26 F821 y"}},
		{"def f():\n    def g():\n        return x\n    return g\nx\n",
			[]string{"3:16 F821 x", "5:1 F821 x"}},
		// Predeclared names are always bound.
		{"M + N\n",
			[]string{"1:5 F821 N"}},
		{"from m import *\nundefined\n",
			[]string{"1:1 F403 m"}},
		{"import a.b.c\na.b, b\n",
			[]string{"2:6 F821 b"}},
		{"def f(*, key, **kw):\n    return key, kw, args\n",
			[]string{"2:21 F821 args"}},
		{"with a as b:\n    pass\nb\n",
			[]string{"1:6 F821 a"}},
		{"try:\n    pass\nexcept E as e:\n    e\n",
			[]string{"3:8 F821 E"}},
		{"x: T = 1\ny: int\ny\n",
			[]string{"1:4 F821 T", "3:1 F821 y"}},
		{"a.b = c\nd[e] = 1\n",
			[]string{"1:1 F821 a", "1:7 F821 c", "2:1 F821 d", "2:3 F821 e"}},
		// Names in f-strings are reported at their own columns.
		{"print(f\"{undefined}\")\n",
			[]string{"1:10 F821 undefined"}},
		{"x = f\"{a}-{b!r:{c}}\"\n",
			[]string{"1:8 F821 a", "1:12 F821 b", "1:17 F821 c"}},
		{"s = f'{f\"{a}\"}'\nt = f\"\"\"\n  {b}\"\"\"\n",
			[]string{"1:11 F821 a", "3:4 F821 b"}},
		{"match p:\n    case Q(x) if x:\n        pass\n",
			[]string{"1:7 F821 p", "2:10 F821 Q"}},
		{"type A[T] = dict[T, B]\n",
			[]string{"1:21 F821 B"}},
	} {
		got := summarize(resolveString(t, test.src, &resolve.Options{Predeclared: resolve.NewNameSet("M")}))
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("resolve %q: findings differ (-want +got):\n%s", test.src, diff)
		}
	}
}

func TestFindingFields(t *testing.T) {
	findings := resolveString(t, "def f(a):\n    return a + b\n", nil)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	got := findings[0]
	if got.Pos.Filename() != "a.py" {
		t.Errorf("Filename = %q, want a.py", got.Pos.Filename())
	}
	if got.Severity != resolve.SeverityError || got.Severity.String() != "ERROR" {
		t.Errorf("Severity = %v, want ERROR", got.Severity)
	}
	if got.Code != resolve.CodeUnresolved {
		t.Errorf("Code = %s, want %s", got.Code, resolve.CodeUnresolved)
	}
	if want := "a.py:2:16: name 'b' is not defined"; got.String() != want {
		t.Errorf("String = %q, want %q", got.String(), want)
	}
}

func TestSuggestion(t *testing.T) {
	for _, test := range []struct {
		src, want string
	}{
		{"def f(count):\n    return coutn + 1\n", "count"},
		{"pritn('x')\n", "print"},
		{"x = 1\nprint(zzzzzz)\n", ""},
		// Class-body names are not visible within methods.
		{"class C:\n    limit = 1\n    def f(self):\n        return limt\n", "list"},
	} {
		findings := resolveString(t, test.src, nil)
		if len(findings) != 1 {
			t.Errorf("%q: got %d findings, want 1", test.src, len(findings))
			continue
		}
		if got := findings[0].Suggestion; got != test.want {
			t.Errorf("%q: suggestion = %q, want %q", test.src, got, test.want)
		}
	}
}

func TestWellFormedProgramHasNoFindings(t *testing.T) {
	const src = `
import sys
from typing import List

CONSTANT = 10

class Stack:
    """A stack."""

    def __init__(self, items: List[int] = None):
        self.items = list(items or [])

    def push(self, x):
        self.items.append(x)
        return self

    @property
    def top(self):
        return self.items[-1] if self.items else None

    @staticmethod
    def build(*xs):
        s = Stack()
        for x in xs:
            s.push(x)
        return s

def main(argv):
    s = Stack.build(*[int(a) for a in argv[1:]])
    total = sum(x * CONSTANT for x in s.items)
    with open(argv[0]) as f:
        data = f.read()
    try:
        n = int(data)
    except ValueError as e:
        print(e, file=sys.stderr)
        n = 0
    lookup = {k: v for k, v in zip(range(n), s.items)}
    return total, lookup

if __name__ == "__main__":
    main(sys.argv)
`
	if got := resolveString(t, src, nil); len(got) != 0 {
		t.Errorf("got findings %v, want none", got)
	}
}

func TestIdempotent(t *testing.T) {
	const src = "def f():\n    return a, b\nc\n[d for x in e]\nfrom m import *\n"
	f, err := syntax.Parse("a.py", src)
	if err != nil {
		t.Fatal(err)
	}
	opts := &resolve.Options{StarImports: resolve.ReportUnresolved}
	first, err := resolve.File(f, opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := resolve.File(f, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 6 {
		t.Errorf("got %d findings, want 6: %v", len(first), first)
	}
	if diff := cmp.Diff(summarize(first), summarize(second)); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestResult(t *testing.T) {
	const src = "import os\nx = 1\ndef f():\n    global g\n    g = 1\nclass C:\n    y = 2\n[z for z in os.sep]\n"
	f, err := syntax.Parse("a.py", src)
	if err != nil {
		t.Fatal(err)
	}
	res, err := resolve.Resolve(f, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"C", "f", "g", "os", "x"}
	if diff := cmp.Diff(want, res.Globals); diff != "" {
		t.Errorf("Globals differ (-want +got):\n%s", diff)
	}
	if res.StarImport {
		t.Errorf("StarImport = true, want false")
	}
}

func TestStarImportPolicy(t *testing.T) {
	const src = "from a import *\nfrom b import *\nundefined\n"
	for _, test := range []struct {
		policy resolve.StarImportPolicy
		want   []string
	}{
		{resolve.SuppressUnresolved, []string{"1:1 F403 a", "2:1 F403 b"}},
		{resolve.ReportUnresolved, []string{"1:1 F403 a", "2:1 F403 b", "3:1 F821 undefined"}},
	} {
		got := summarize(resolveString(t, src, &resolve.Options{StarImports: test.policy}))
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("policy %v: findings differ (-want +got):\n%s", test.policy, diff)
		}
	}

	for _, name := range []string{"suppress", "report"} {
		p, err := resolve.ParseStarImportPolicy(name)
		if err != nil {
			t.Errorf("ParseStarImportPolicy(%q): %v", name, err)
		} else if p.String() != name {
			t.Errorf("ParseStarImportPolicy(%q) = %v", name, p)
		}
	}
	if _, err := resolve.ParseStarImportPolicy("ignore"); err == nil {
		t.Errorf("ParseStarImportPolicy(ignore) succeeded unexpectedly")
	}
}

func TestBuiltinsOption(t *testing.T) {
	const src = "print(len(x))\n"
	got := summarize(resolveString(t, src, &resolve.Options{Builtins: resolve.NewNameSet("print", "x")}))
	want := []string{"1:7 F821 len"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("findings differ (-want +got):\n%s", diff)
	}

	if !resolve.Builtins.Has("len") || !resolve.Builtins.Has("ValueError") || !resolve.Builtins.Has("__name__") {
		t.Errorf("Builtins is missing standard names")
	}
	if resolve.Builtins.Has("self") {
		t.Errorf("Builtins contains self")
	}
}

func TestCancel(t *testing.T) {
	f, err := syntax.Parse("a.py", "x = 1\ny\n")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	findings, err := resolve.FileContext(ctx, f, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("FileContext error = %v, want context.Canceled", err)
	}
	if findings != nil {
		t.Errorf("FileContext returned partial findings %v", findings)
	}
}

func TestSortFindings(t *testing.T) {
	a, b := "a.py", "b.py"
	mk := func(file *string, line, col int32, code, name string) resolve.Finding {
		return resolve.Finding{Pos: syntax.MakePosition(file, line, col), Code: code, Name: name}
	}
	findings := []resolve.Finding{
		mk(&b, 1, 1, "F821", "x"),
		mk(&a, 2, 1, "F821", "x"),
		mk(&a, 1, 5, "F821", "y"),
		mk(&a, 1, 5, "F403", "m"),
		mk(&a, 1, 5, "F821", "b"),
	}
	resolve.SortFindings(findings)
	var got []string
	for _, f := range findings {
		got = append(got, fmt.Sprintf("%s %s %s", f.Pos, f.Code, f.Name))
	}
	want := []string{
		"a.py:1:5 F403 m",
		"a.py:1:5 F821 b",
		"a.py:1:5 F821 y",
		"a.py:2:1 F821 x",
		"b.py:1:1 F821 x",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order differs (-want +got):\n%s", diff)
	}
}

func ExampleFile() {
	const src = `
def f(a):
    return a + b

class C:
    def m(self):
        return helper()
`
	f, err := syntax.Parse("example.py", src)
	if err != nil {
		panic(err)
	}
	findings, err := resolve.File(f, nil)
	if err != nil {
		panic(err)
	}
	for _, finding := range findings {
		fmt.Println(finding)
	}

	// Output:
	// example.py:3:16: name 'b' is not defined
	// example.py:7:16: name 'helper' is not defined
}
