package main

import (
	"context"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/reflect/protoreflect"
)

func TestMessageNameFromTypeURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"type.googleapis.com/testpkg.Foo", "testpkg.Foo"},
		{"testpkg.Foo", "testpkg.Foo"},
		{"a/b/testpkg.Foo", "testpkg.Foo"},
	}
	for _, tc := range tests {
		if got := messageNameFromTypeURL(tc.url); got != tc.want {
			t.Errorf("messageNameFromTypeURL(%q) = %q; want %q", tc.url, got, tc.want)
		}
	}
}

func anyTestPool(t *testing.T) DescriptorPool {
	t.Helper()
	pool, err := CompileSchema(context.Background(), map[string]string{
		"google/protobuf/any.proto": anyProtoSource,
		"any_test.proto": `
syntax = "proto3";
package testpkg;
import "google/protobuf/any.proto";

message Wrapped {
  string label = 1;
}

message Holder {
  google.protobuf.Any payload = 1;
}
`,
	}, []string{"any_test.proto"})
	if err != nil {
		t.Fatalf("CompileSchema() error: %v", err)
	}
	return pool
}

func TestLocateAnyTypeURLSpan(t *testing.T) {
	text := "payload {\n  [type.googleapis.com/testpkg.Wrapped] {\n    label: \"hi\"\n  }\n}"
	a := &analyzer{text: text, lineIndex: NewLineIndex(text)}

	begin, end, ok := a.locateAnyTypeURLSpan(1, 0)
	if !ok {
		t.Fatalf("locateAnyTypeURLSpan() = _, _, false; want true")
	}
	got := text[begin:end]
	if got != "testpkg.Wrapped" {
		t.Errorf("locateAnyTypeURLSpan() span = %q; want %q", got, "testpkg.Wrapped")
	}
}

func TestLocateAnyTypeURLSpanAbsentWhenUnlocated(t *testing.T) {
	a := &analyzer{text: "payload {}", lineIndex: NewLineIndex("payload {}")}
	_, _, ok := a.locateAnyTypeURLSpan(0, 0)
	if ok {
		t.Errorf("locateAnyTypeURLSpan(0, 0) = _, _, true; want false for ownerLine<=0")
	}
}

func TestAnalyzeAnyResolvesAndRecurses(t *testing.T) {
	pool := anyTestPool(t)
	text := "payload {\n  [type.googleapis.com/testpkg.Wrapped] {\n    label: \"hi\"\n  }\n}"

	holderMD, _ := pool.FindMessageByName("testpkg.Holder")
	root := dynamicpb.NewMessage(holderMD)
	tree, err := ParseText(text, root, holderMD, pool, false)
	if err != nil {
		t.Fatalf("ParseText() error: %v", err)
	}

	unit := &CompilationUnit{
		RequiredInput: []RequiredInput{
			{Path: "any_test.proto", Identity: Identity{Signature: "file:any_test.proto", Path: "any_test.proto", Language: "protobuf"}},
		},
	}
	resolver := NewPathResolver(unit, nil)
	sink := &fakeSink{}
	a := &analyzer{
		text:         text,
		lineIndex:    NewLineIndex(text),
		resolver:     resolver,
		identities:   NewIdentityBuilder(resolver),
		anchors:      NewAnchorEmitter(sink),
		sink:         sink,
		pool:         pool,
		anyTypeCache: newAnyTypeCache(),
	}

	payloadField := holderMD.Fields().ByName("payload")
	anyMsg := root.Get(payloadField).Message()
	anyDesc := payloadField.Message()
	nested := tree.Nested(payloadField, NonRepeatedIndex)

	if err := a.analyzeAny(Identity{Path: "f.textproto"}, anyMsg, anyDesc, nested, 1, 0); err != nil {
		t.Fatalf("analyzeAny() error: %v", err)
	}

	if len(sink.anchors) == 0 {
		t.Fatalf("sink.anchors empty; want at least the type-URL anchor")
	}
	if len(sink.edges) == 0 {
		t.Fatalf("sink.edges empty; want a reference edge to testpkg.Wrapped")
	}
}

func TestAnalyzeAnyFallsBackToPlainMessageWhenNoLiteralSpan(t *testing.T) {
	pool := anyTestPool(t)
	holderMD, _ := pool.FindMessageByName("testpkg.Holder")
	anyDesc := holderMD.Fields().ByName("payload").Message()
	anyMsg := dynamicpb.NewMessage(anyDesc)

	wrappedMD, _ := pool.FindMessageByName("testpkg.Wrapped")
	inner := dynamicpb.NewMessage(wrappedMD)
	inner.Set(wrappedMD.Fields().ByName("label"), protoreflect.ValueOfString("direct"))
	valueBytes, err := proto.Marshal(inner)
	if err != nil {
		t.Fatalf("proto.Marshal() error: %v", err)
	}
	anyMsg.Set(anyDesc.Fields().ByName("type_url"), protoreflect.ValueOfString("type.googleapis.com/testpkg.Wrapped"))
	anyMsg.Set(anyDesc.Fields().ByName("value"), protoreflect.ValueOfBytes(valueBytes))

	sink := &fakeSink{}
	unit := &CompilationUnit{
		RequiredInput: []RequiredInput{
			{Path: "any_test.proto", Identity: Identity{Path: "any_test.proto"}},
		},
	}
	resolver := NewPathResolver(unit, nil)
	a := &analyzer{
		text:         "payload {}",
		lineIndex:    NewLineIndex("payload {}"),
		resolver:     resolver,
		identities:   NewIdentityBuilder(resolver),
		anchors:      NewAnchorEmitter(sink),
		sink:         sink,
		pool:         pool,
		anyTypeCache: newAnyTypeCache(),
	}

	// ownerLine 0 means "no location for the owning field", which forces
	// the no-literal-span fallback: the Any is walked as plain type_url/value fields.
	tree := newMutableLocationTree()
	if err := a.analyzeAny(Identity{}, anyMsg, anyDesc, tree, 0, 0); err != nil {
		t.Fatalf("analyzeAny() error: %v", err)
	}
	if len(sink.edges) != 0 {
		t.Errorf("sink.edges = %v; want none (type_url/value get ordinary field treatment, no interpretation of value's bytes)", sink.edges)
	}
}
