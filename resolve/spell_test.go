// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve

import "testing"

func TestFoldName(t *testing.T) {
	for _, test := range []struct{ name, want string }{
		{"maxLen", "maxlen"},
		{"MAX_LEN", "maxlen"},
		{"__init__", "init"},
		{"x", "x"},
	} {
		if got := foldName(test.name); got != test.want {
			t.Errorf("foldName(%q) = %q, want %q", test.name, got, test.want)
		}
	}
}

func TestEditDistance(t *testing.T) {
	for _, test := range []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"count", "coutn", 2},
	} {
		if got := editDistance(test.a, test.b, 100); got != test.want {
			t.Errorf("editDistance(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}

	// Past the bound, only the comparison matters.
	if got := editDistance("abcdef", "uvwxyz", 2); got < 2 {
		t.Errorf("editDistance with bound 2 = %d, want >= 2", got)
	}
}

func TestClosest(t *testing.T) {
	for _, test := range []struct {
		name       string
		candidates []string
		want       string
	}{
		{"lenght", []string{"len", "length", "list"}, "length"},
		{"maxlen", []string{"min", "max_len"}, "max_len"},
		{"x", []string{"y"}, ""},
		{"abcd", []string{"abce", "abcf"}, "abce"},
		{"anything", nil, ""},
	} {
		if got := closest(test.name, test.candidates); got != test.want {
			t.Errorf("closest(%q, %q) = %q, want %q", test.name, test.candidates, got, test.want)
		}
	}
}
