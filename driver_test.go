package main

import (
	"context"
	"testing"
)

func TestAnalyzeEndToEnd(t *testing.T) {
	schema := `
syntax = "proto3";
package testpkg;

message Inner {
  string value = 1;
}

message Outer {
  Inner inner = 1;
  repeated string tags = 2;
}
`
	source := `inner {
  value: "hello"
}
tags: "a"
tags: "b"
`
	unit := &CompilationUnit{
		SourceFile: "source.textproto",
		Argument:   []string{"proto_message=testpkg.Outer"},
		RequiredInput: []RequiredInput{
			{Path: "source.textproto", Identity: Identity{Signature: "file:source.textproto", Path: "source.textproto", Language: LanguageTextproto}},
			{Path: "schema.proto", Identity: Identity{Signature: "file:schema.proto", Path: "schema.proto", Language: "protobuf"}},
		},
	}
	files := []FileData{
		{Path: "source.textproto", Content: []byte(source)},
		{Path: "schema.proto", Content: []byte(schema)},
	}

	sink := NewMemorySink()
	if err := Analyze(context.Background(), unit, files, sink, AnalyzeOptions{}); err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	if len(sink.Files) != 1 {
		t.Fatalf("sink.Files has %d entries; want 1", len(sink.Files))
	}
	if sink.Files[0].Text != source {
		t.Errorf("sink.Files[0].Text = %q; want the source text", sink.Files[0].Text)
	}

	// inner field anchor, value field anchor inside it, tags[0], tags[1] = 4 anchors.
	if len(sink.Anchors) != 4 {
		t.Errorf("sink.Anchors has %d entries; want 4, got %+v", len(sink.Anchors), sink.Anchors)
	}
	if len(sink.Edges) != 4 {
		t.Errorf("sink.Edges has %d entries; want 4 (one reference per anchored field)", len(sink.Edges))
	}
}

func TestAnalyzeMissingSourceFileIsNotFound(t *testing.T) {
	unit := &CompilationUnit{
		SourceFile: "missing.textproto",
		Argument:   []string{"proto_message=testpkg.Outer"},
	}
	sink := NewMemorySink()
	err := Analyze(context.Background(), unit, nil, sink, AnalyzeOptions{})
	if err == nil {
		t.Fatalf("Analyze() with no matching file content = nil error; want *NotFoundError")
	}
	if _, ok := err.(*NotFoundError); !ok {
		t.Errorf("Analyze() error type = %T; want *NotFoundError", err)
	}
}

func TestAnalyzeEmptySourceFileIsPrecondition(t *testing.T) {
	unit := &CompilationUnit{}
	sink := NewMemorySink()
	err := Analyze(context.Background(), unit, nil, sink, AnalyzeOptions{})
	if err == nil {
		t.Fatalf("Analyze() with no source file = nil error; want *PreconditionError")
	}
	if _, ok := err.(*PreconditionError); !ok {
		t.Errorf("Analyze() error type = %T; want *PreconditionError", err)
	}
}

func TestAnalyzeUnknownRootMessageIsNotFound(t *testing.T) {
	unit := &CompilationUnit{
		SourceFile: "source.textproto",
		Argument:   []string{"proto_message=testpkg.DoesNotExist"},
		RequiredInput: []RequiredInput{
			{Path: "source.textproto", Identity: Identity{Path: "source.textproto"}},
			{Path: "schema.proto", Identity: Identity{Path: "schema.proto"}},
		},
	}
	files := []FileData{
		{Path: "source.textproto", Content: []byte("")},
		{Path: "schema.proto", Content: []byte(`syntax = "proto3"; package testpkg; message Outer { string x = 1; }`)},
	}
	sink := NewMemorySink()
	err := Analyze(context.Background(), unit, files, sink, AnalyzeOptions{})
	if err == nil {
		t.Fatalf("Analyze() with unknown root message = nil error; want *NotFoundError")
	}
	if _, ok := err.(*NotFoundError); !ok {
		t.Errorf("Analyze() error type = %T; want *NotFoundError", err)
	}
}

func TestAnalyzeMalformedTextprotoIsParseFailure(t *testing.T) {
	unit := &CompilationUnit{
		SourceFile: "source.textproto",
		Argument:   []string{"proto_message=testpkg.Outer"},
		RequiredInput: []RequiredInput{
			{Path: "source.textproto", Identity: Identity{Path: "source.textproto"}},
			{Path: "schema.proto", Identity: Identity{Path: "schema.proto"}},
		},
	}
	files := []FileData{
		{Path: "source.textproto", Content: []byte("inner {")}, // unterminated message body
		{Path: "schema.proto", Content: []byte(`syntax = "proto3"; package testpkg; message Inner { string value = 1; } message Outer { Inner inner = 1; }`)},
	}
	sink := NewMemorySink()
	err := Analyze(context.Background(), unit, files, sink, AnalyzeOptions{})
	if err == nil {
		t.Fatalf("Analyze() with an unterminated message body = nil error; want *ParseFailureError")
	}
	if _, ok := err.(*ParseFailureError); !ok {
		t.Errorf("Analyze() error type = %T; want *ParseFailureError", err)
	}
}
