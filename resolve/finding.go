// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve

import (
	"fmt"
	"sort"
	"strings"

	"go.pyscope.dev/syntax"
)

// Diagnostic codes. Codes are stable across releases.
const (
	CodeUnresolved = "F821" // name used but not bound
	CodeStarImport = "F403" // wildcard import; resolution incomplete
	CodeSyntax     = "E999" // source could not be parsed
	CodeIO         = "E902" // source could not be read or decoded
)

// Severity is the severity of a finding.
type Severity uint8

const (
	SeverityWarning Severity = iota
	SeverityError
)

var severityNames = [...]string{
	SeverityWarning: "WARNING",
	SeverityError:   "ERROR",
}

func (s Severity) String() string { return severityNames[s] }

// A Finding is a defect reported against one position of a file.
type Finding struct {
	Pos      syntax.Position
	Name     string // the identifier concerned, if any
	Code     string
	Severity Severity
	Msg      string

	// Suggestion is a bound name spelled like Name, if any.
	Suggestion string
}

func (f Finding) String() string { return f.Pos.String() + ": " + f.Msg }

func unresolvedMsg(name string) string {
	return fmt.Sprintf("name '%s' is not defined", name)
}

// SortFindings sorts findings by file, line, column, code and name.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool { return findingLess(findings[i], findings[j]) })
}

func findingLess(x, y Finding) bool {
	if c := strings.Compare(x.Pos.Filename(), y.Pos.Filename()); c != 0 {
		return c < 0
	}
	if x.Pos.Line != y.Pos.Line {
		return x.Pos.Line < y.Pos.Line
	}
	if x.Pos.Col != y.Pos.Col {
		return x.Pos.Col < y.Pos.Col
	}
	if x.Code != y.Code {
		return x.Code < y.Code
	}
	return x.Name < y.Name
}

type findingKey struct {
	line, col  int32
	name, code string
}

// An emitter accumulates the findings of one resolver run.
// Repeated emission of the same finding is suppressed;
// distinct occurrences of a name are distinct findings.
type emitter struct {
	findings []Finding
	seen     map[findingKey]bool
}

func (e *emitter) emit(f Finding) {
	k := findingKey{f.Pos.Line, f.Pos.Col, f.Name, f.Code}
	if e.seen[k] {
		return
	}
	if e.seen == nil {
		e.seen = make(map[findingKey]bool)
	}
	e.seen[k] = true
	e.findings = append(e.findings, f)
}

func (e *emitter) unresolved(id *syntax.Ident, suggestion string) {
	e.emit(Finding{
		Pos:        id.NamePos,
		Name:       id.Name,
		Code:       CodeUnresolved,
		Severity:   SeverityError,
		Msg:        unresolvedMsg(id.Name),
		Suggestion: suggestion,
	})
}

// finish returns the sorted findings. If the file has a wildcard
// import and the policy says so, unresolved names are dropped.
func (e *emitter) finish(star bool, policy StarImportPolicy) []Finding {
	out := e.findings[:0:0]
	for _, f := range e.findings {
		if star && policy == SuppressUnresolved && f.Code == CodeUnresolved {
			continue
		}
		out = append(out, f)
	}
	SortFindings(out)
	return out
}
