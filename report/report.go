// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report renders the results of a check as text for people,
// or as a protocol message (JSON, text or wire format) for programs.
package report // import "go.pyscope.dev/report"

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"go.pyscope.dev/checker"
	"go.pyscope.dev/resolve"
)

// A Format is an output format.
type Format uint8

const (
	Text Format = iota
	JSON
	ProtoText
	Wire
)

var formatNames = [...]string{
	Text:      "text",
	JSON:      "json",
	ProtoText: "prototext",
	Wire:      "wire",
}

func (f Format) String() string { return formatNames[f] }

// ParseFormat returns the format of the specified name.
func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if s == name {
			return Format(f), nil
		}
	}
	return 0, fmt.Errorf("unsupported output format: %s", s)
}

// Options controls the rendering of a report.
type Options struct {
	Format Format

	// The remaining options apply to the text format only.
	Color   bool // highlight with ANSI escapes
	Context bool // show the source line of each finding
	Width   int  // if positive, clip source lines to this many columns

	// ReadFile reads the source of a file for Context.
	// If nil, os.ReadFile is used.
	ReadFile func(filename string) ([]byte, error)
}

// Summary holds the statistics of a check.
type Summary struct {
	Files      int
	Cached     int
	Failed     int
	Findings   int
	BySeverity map[string]int
	ByCode     map[string]int
}

// Summarize computes the statistics of res.
func Summarize(res *checker.Results) Summary {
	s := Summary{
		Files:      res.Files,
		Cached:     res.Cached,
		Failed:     len(res.Failed),
		Findings:   len(res.Findings),
		BySeverity: make(map[string]int),
		ByCode:     make(map[string]int),
	}
	for _, f := range res.Findings {
		s.BySeverity[f.Severity.String()]++
		s.ByCode[f.Code]++
	}
	return s
}

// Write renders res to w.
func Write(w io.Writer, res *checker.Results, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Format != Text {
		data, err := marshal(res, opts.Format)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	bw := bufio.NewWriter(w)
	newTextWriter(bw, opts).write(res)
	return bw.Flush()
}

// ANSI escapes.
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31;1m"
	ansiYellow = "\033[33;1m"
	ansiGreen  = "\033[32m"
)

type textWriter struct {
	w     io.Writer
	opts  *Options
	lines map[string][]string // source lines by file name
}

func newTextWriter(w io.Writer, opts *Options) *textWriter {
	return &textWriter{w: w, opts: opts, lines: make(map[string][]string)}
}

func (tw *textWriter) color(code, s string) string {
	if !tw.opts.Color {
		return s
	}
	return code + s + ansiReset
}

func (tw *textWriter) severityColor(sev resolve.Severity) string {
	if sev == resolve.SeverityError {
		return ansiRed
	}
	return ansiYellow
}

func (tw *textWriter) write(res *checker.Results) {
	fmt.Fprintf(tw.w, "ERRORS: ['%d']\n", len(res.Findings))
	if len(res.Findings) == 0 {
		fmt.Fprintln(tw.w, tw.color(ansiGreen, "No findings."))
	}
	for i, f := range res.Findings {
		msg := f.Msg
		if f.Suggestion != "" {
			msg += " (did you mean " + f.Suggestion + "?)"
		}
		fmt.Fprintf(tw.w, "%d. %s: %s %s\n", i+1,
			tw.color(ansiBold, f.Pos.String()),
			msg,
			tw.color(tw.severityColor(f.Severity), "["+f.Severity.String()+" "+f.Code+"]"))
		if tw.opts.Context {
			tw.excerpt(f)
		}
	}
	for _, e := range res.Failed {
		fmt.Fprintf(tw.w, "%s: %s\n", tw.color(ansiRed, "failed"), e)
	}
	tw.summary(Summarize(res))
}

// excerpt prints the source line of a finding with a caret beneath
// its column.
func (tw *textWriter) excerpt(f resolve.Finding) {
	if f.Pos.Line <= 0 {
		return
	}
	lines := tw.source(f.Pos.Filename())
	if int(f.Pos.Line) > len(lines) {
		return
	}
	line := strings.ReplaceAll(lines[f.Pos.Line-1], "\t", " ")
	col := int(f.Pos.Col)
	if w := tw.opts.Width - 4; tw.opts.Width > 0 && utf8.RuneCountInString(line) > w && w > 0 {
		line = string([]rune(line)[:w])
	}
	fmt.Fprintf(tw.w, "    %s\n", line)
	if col > 0 && col <= utf8.RuneCountInString(line)+1 {
		fmt.Fprintf(tw.w, "    %s%s\n", strings.Repeat(" ", col-1), tw.color(tw.severityColor(f.Severity), "^"))
	}
}

func (tw *textWriter) source(filename string) []string {
	if lines, ok := tw.lines[filename]; ok {
		return lines
	}
	readFile := tw.opts.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	var lines []string
	if data, err := readFile(filename); err == nil {
		data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
		lines = strings.Split(string(data), "\n")
	}
	tw.lines[filename] = lines
	return lines
}

func (tw *textWriter) summary(s Summary) {
	fmt.Fprintln(tw.w)
	fmt.Fprintln(tw.w, strings.Repeat("=", 60))
	fmt.Fprintf(tw.w, "Files checked: %d", s.Files)
	if s.Failed > 0 || s.Cached > 0 {
		fmt.Fprintf(tw.w, " (%d failed, %d from cache)", s.Failed, s.Cached)
	}
	fmt.Fprintln(tw.w)
	fmt.Fprintf(tw.w, "Findings: %d\n", s.Findings)
	writeCounts(tw.w, "By severity", s.BySeverity)
	writeCounts(tw.w, "By code", s.ByCode)
}

func writeCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %d\n", k, counts[k])
	}
}
