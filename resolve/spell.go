// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve

// Suggestions for unresolved names, as in
// "name 'lenght' is not defined (did you mean length?)".

import (
	"sort"
	"strings"
	"unicode"
)

// suggest returns the bound name most like the unresolved name,
// or "" if none is close enough.
func (r *resolver) suggest(name string) string {
	seen := make(map[string]bool)
	var candidates []string
	add := func(c string) {
		if c != name && !seen[c] {
			seen[c] = true
			candidates = append(candidates, c)
		}
	}
	r.stack.visible(add)
	for c := range r.imports {
		add(c)
	}
	for c := range r.opts.Predeclared {
		add(c)
	}
	for c := range r.builtins {
		add(c)
	}
	sort.Strings(candidates)
	return closest(name, candidates)
}

// foldName returns the form in which names are compared for
// spelling: lower case, without underscores. Thus maxLen, max_len and
// MAXLEN all fold to maxlen.
func foldName(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' {
			return -1
		}
		return unicode.ToLower(r)
	}, name)
}

// closest returns the candidate spelled most like name, or "" if
// every candidate differs from it in at least half its letters.
// Of equally close candidates the first is chosen.
func closest(name string, candidates []string) string {
	want := foldName(name)
	best, limit := "", (len(want)+1)/2
	for _, c := range candidates {
		if d := editDistance(want, foldName(c), limit); d < limit {
			best, limit = c, d
		}
	}
	return best
}

// editDistance returns the number of byte insertions, deletions and
// substitutions needed to turn a into b. Once the distance is known to
// be at least bound, it returns early with some value >= bound.
func editDistance(a, b string, bound int) int {
	for len(a) > 0 && len(b) > 0 && a[0] == b[0] {
		a, b = a[1:], b[1:]
	}
	for len(a) > 0 && len(b) > 0 && a[len(a)-1] == b[len(b)-1] {
		a, b = a[:len(a)-1], b[:len(b)-1]
	}
	if a == "" {
		return len(b)
	}
	if b == "" {
		return len(a)
	}

	// prev[j] is the distance between the first i-1 bytes of a
	// and the first j bytes of b; cur is the row for i.
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		least := i
		for j := 1; j <= len(b); j++ {
			sub := prev[j-1]
			if a[i-1] != b[j-1] {
				sub++
			}
			cur[j] = min(sub, prev[j]+1, cur[j-1]+1)
			least = min(least, cur[j])
		}
		if least >= bound {
			return least
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
