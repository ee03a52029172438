// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/structpb"

	"go.pyscope.dev/checker"
	"go.pyscope.dev/resolve"
)

// Message returns res as a google.protobuf.Struct of the form:
//
//	files: 4
//	cached: 0
//	failed: [{path: "x.py", error: "..."}]
//	findings: [{file, line, column, name, code, severity, message}]
//	summary: {by_severity: {ERROR: 2}, by_code: {F821: 2}}
func Message(res *checker.Results) (*structpb.Struct, error) {
	findings := make([]interface{}, 0, len(res.Findings))
	for _, f := range res.Findings {
		findings = append(findings, findingMap(f))
	}
	failed := make([]interface{}, 0, len(res.Failed))
	for _, e := range res.Failed {
		failed = append(failed, map[string]interface{}{
			"path":  e.Path,
			"error": e.Err.Error(),
		})
	}
	s := Summarize(res)
	return structpb.NewStruct(map[string]interface{}{
		"files":    s.Files,
		"cached":   s.Cached,
		"failed":   failed,
		"findings": findings,
		"summary": map[string]interface{}{
			"by_severity": countsMap(s.BySeverity),
			"by_code":     countsMap(s.ByCode),
		},
	})
}

func findingMap(f resolve.Finding) map[string]interface{} {
	m := map[string]interface{}{
		"file":     f.Pos.Filename(),
		"line":     int(f.Pos.Line),
		"column":   int(f.Pos.Col),
		"name":     f.Name,
		"code":     f.Code,
		"severity": f.Severity.String(),
		"message":  f.Msg,
	}
	if f.Suggestion != "" {
		m["suggestion"] = f.Suggestion
	}
	return m
}

func countsMap(counts map[string]int) map[string]interface{} {
	m := make(map[string]interface{}, len(counts))
	for k, n := range counts {
		m[k] = n
	}
	return m
}

func marshal(res *checker.Results, format Format) ([]byte, error) {
	msg, err := Message(res)
	if err != nil {
		return nil, err
	}
	var marshal func(protoreflect.ProtoMessage) ([]byte, error)
	switch format {
	case Wire:
		marshal = proto.MarshalOptions{Deterministic: true}.Marshal
	case ProtoText:
		marshal = prototext.MarshalOptions{Multiline: true, Indent: "\t"}.Marshal
	case JSON:
		marshal = protojson.MarshalOptions{Multiline: true, Indent: "\t"}.Marshal
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	data, err := marshal(msg)
	if err != nil {
		return nil, err
	}
	if format != Wire && (len(data) == 0 || data[len(data)-1] != '\n') {
		data = append(data, '\n')
	}
	return data, nil
}
