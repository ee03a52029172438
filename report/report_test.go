// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report_test

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"go.pyscope.dev/checker"
	"go.pyscope.dev/report"
	"go.pyscope.dev/resolve"
	"go.pyscope.dev/syntax"
)

func results() *checker.Results {
	a, b := "a.py", "b.py"
	return &checker.Results{
		Files:  3,
		Cached: 1,
		Failed: []*checker.FileError{{Path: "c.py", Err: errors.New("boom")}},
		Findings: []resolve.Finding{
			{
				Pos:      syntax.MakePosition(&a, 2, 7),
				Name:     "missing",
				Code:     resolve.CodeUnresolved,
				Severity: resolve.SeverityError,
				Msg:      "name 'missing' is not defined",
			},
			{
				Pos:      syntax.MakePosition(&b, 1, 1),
				Name:     "m",
				Code:     resolve.CodeStarImport,
				Severity: resolve.SeverityWarning,
				Msg:      "'from m import *' used; unable to detect undefined names",
			},
		},
	}
}

const summary = `
============================================================
Files checked: 3 (1 failed, 1 from cache)
Findings: 2
By severity:
  ERROR: 1
  WARNING: 1
By code:
  F403: 1
  F821: 1
`

func TestText(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Write(&buf, results(), nil); err != nil {
		t.Fatal(err)
	}
	want := `ERRORS: ['2']
1. a.py:2:7: name 'missing' is not defined [ERROR F821]
2. b.py:1:1: 'from m import *' used; unable to detect undefined names [WARNING F403]
failed: c.py: boom
` + summary
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("text report differs (-want +got):\n%s", diff)
	}
}

func TestTextNoFindings(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Write(&buf, &checker.Results{Files: 2}, &report.Options{}); err != nil {
		t.Fatal(err)
	}
	want := "ERRORS: ['0']\nNo findings.\n\n" + strings.Repeat("=", 60) + "\nFiles checked: 2\nFindings: 0\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("text report differs (-want +got):\n%s", diff)
	}
}

func TestTextContext(t *testing.T) {
	readFile := func(filename string) ([]byte, error) {
		if filename == "a.py" {
			return []byte("import os\r\nprint(missing)\r\n"), nil
		}
		return nil, os.ErrNotExist
	}
	for _, test := range []struct {
		width int
		want  string
	}{
		{0, "    print(missing)\n          ^\n"},
		{10, "    print(\n          ^\n"},
	} {
		var buf bytes.Buffer
		opts := &report.Options{Context: true, Width: test.width, ReadFile: readFile}
		if err := report.Write(&buf, results(), opts); err != nil {
			t.Fatal(err)
		}
		want := "ERRORS: ['2']\n" +
			"1. a.py:2:7: name 'missing' is not defined [ERROR F821]\n" +
			test.want +
			"2. b.py:1:1: 'from m import *' used; unable to detect undefined names [WARNING F403]\n" +
			"failed: c.py: boom\n" + summary
		if diff := cmp.Diff(want, buf.String()); diff != "" {
			t.Errorf("width %d: text report differs (-want +got):\n%s", test.width, diff)
		}
	}
}

func TestTextColor(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Write(&buf, results(), &report.Options{Color: true}); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	for _, want := range []string{
		"\033[1ma.py:2:7\033[0m",
		"\033[31;1m[ERROR F821]\033[0m",
		"\033[33;1m[WARNING F403]\033[0m",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("colored report lacks %q:\n%s", want, got)
		}
	}
}

func TestProtoFormats(t *testing.T) {
	want, err := report.Message(results())
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range []struct {
		format    report.Format
		unmarshal func([]byte, proto.Message) error
	}{
		{report.JSON, protojson.Unmarshal},
		{report.ProtoText, prototext.Unmarshal},
		{report.Wire, proto.Unmarshal},
	} {
		var buf bytes.Buffer
		if err := report.Write(&buf, results(), &report.Options{Format: test.format}); err != nil {
			t.Errorf("%s: %v", test.format, err)
			continue
		}
		got := new(structpb.Struct)
		if err := test.unmarshal(buf.Bytes(), got); err != nil {
			t.Errorf("%s: %v", test.format, err)
			continue
		}
		if !proto.Equal(got, want) {
			t.Errorf("%s: round trip differs:\ngot  %v\nwant %v", test.format, got, want)
		}
	}
}

func TestMessage(t *testing.T) {
	msg, err := report.Message(results())
	if err != nil {
		t.Fatal(err)
	}
	m := msg.AsMap()
	if m["files"] != 3.0 || m["cached"] != 1.0 {
		t.Errorf("files, cached = %v, %v", m["files"], m["cached"])
	}
	findings := m["findings"].([]interface{})
	if len(findings) != 2 {
		t.Fatalf("got %d findings, want 2", len(findings))
	}
	first := findings[0].(map[string]interface{})
	wantFirst := map[string]interface{}{
		"file":     "a.py",
		"line":     2.0,
		"column":   7.0,
		"name":     "missing",
		"code":     "F821",
		"severity": "ERROR",
		"message":  "name 'missing' is not defined",
	}
	if diff := cmp.Diff(wantFirst, first); diff != "" {
		t.Errorf("first finding differs (-want +got):\n%s", diff)
	}
	byCode := m["summary"].(map[string]interface{})["by_code"].(map[string]interface{})
	if byCode["F403"] != 1.0 || byCode["F821"] != 1.0 {
		t.Errorf("by_code = %v", byCode)
	}
}

func TestTextSuggestion(t *testing.T) {
	res := results()
	res.Findings[0].Suggestion = "missed"
	var buf bytes.Buffer
	if err := report.Write(&buf, res, nil); err != nil {
		t.Fatal(err)
	}
	want := "1. a.py:2:7: name 'missing' is not defined (did you mean missed?) [ERROR F821]\n"
	if !strings.Contains(buf.String(), want) {
		t.Errorf("report lacks %q:\n%s", want, buf.String())
	}
	msg, err := report.Message(res)
	if err != nil {
		t.Fatal(err)
	}
	first := msg.AsMap()["findings"].([]interface{})[0].(map[string]interface{})
	if first["suggestion"] != "missed" {
		t.Errorf("suggestion = %v", first["suggestion"])
	}
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"text", "json", "prototext", "wire"} {
		f, err := report.ParseFormat(name)
		if err != nil {
			t.Errorf("ParseFormat(%q): %v", name, err)
		} else if f.String() != name {
			t.Errorf("ParseFormat(%q) = %s", name, f)
		}
	}
	if _, err := report.ParseFormat("xml"); err == nil || err.Error() != "unsupported output format: xml" {
		t.Errorf("ParseFormat(xml) error = %v", err)
	}
}
