package main

import "testing"

// fakeSink is a minimal Sink recorder for exercising AnchorEmitter
// without pulling in MemorySink's locking/snapshot machinery.
type fakeSink struct {
	files       []Identity
	anchors     []Identity
	edges       []EdgeRecordPair
	diagnostics []string
}

type EdgeRecordPair struct {
	From Identity
	Kind EdgeKind
	To   Identity
}

func (s *fakeSink) AddFileNode(id Identity, text string) {
	s.files = append(s.files, id)
}

func (s *fakeSink) AddAnchor(id Identity, begin, end int) {
	s.anchors = append(s.anchors, id)
}

func (s *fakeSink) AddEdge(from Identity, kind EdgeKind, to Identity) {
	s.edges = append(s.edges, EdgeRecordPair{From: from, Kind: kind, To: to})
}

func (s *fakeSink) AddDiagnostic(fileID Identity, message string) {
	s.diagnostics = append(s.diagnostics, message)
}

func TestAnchorEmitterEmit(t *testing.T) {
	sink := &fakeSink{}
	emitter := NewAnchorEmitter(sink)
	file := Identity{Signature: "file:foo.textproto", Path: "foo.textproto"}

	anchor := emitter.Emit(file, 10, 20)

	if anchor.Signature != "@10:20" {
		t.Errorf("Emit().Signature = %q; want %q", anchor.Signature, "@10:20")
	}
	if anchor.Language != LanguageTextproto {
		t.Errorf("Emit().Language = %q; want %q", anchor.Language, LanguageTextproto)
	}
	if anchor.Path != file.Path {
		t.Errorf("Emit().Path = %q; want %q (copied from owning file)", anchor.Path, file.Path)
	}
	if len(sink.anchors) != 1 || sink.anchors[0] != anchor {
		t.Errorf("sink.anchors = %v; want exactly the emitted anchor", sink.anchors)
	}
	if len(sink.edges) != 0 {
		t.Errorf("Emit() without a target recorded %d edges; want 0", len(sink.edges))
	}
}

func TestAnchorEmitterEmitReference(t *testing.T) {
	sink := &fakeSink{}
	emitter := NewAnchorEmitter(sink)
	file := Identity{Signature: "file:foo.textproto", Path: "foo.textproto"}
	target := Identity{Signature: "message:testpkg.Outer", Language: "protobuf"}

	anchor := emitter.EmitReference(file, 5, 15, target)

	if len(sink.edges) != 1 {
		t.Fatalf("sink.edges has %d entries; want 1", len(sink.edges))
	}
	edge := sink.edges[0]
	if edge.From != anchor {
		t.Errorf("edge.From = %+v; want the emitted anchor %+v", edge.From, anchor)
	}
	if edge.Kind != EdgeReference {
		t.Errorf("edge.Kind = %q; want %q", edge.Kind, EdgeReference)
	}
	if edge.To != target {
		t.Errorf("edge.To = %+v; want %+v", edge.To, target)
	}
}
