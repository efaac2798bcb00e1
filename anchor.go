package main

import "fmt"

// Sink is the graph the analyzer writes nodes and edges into. It is the
// one collaborator every layer above the Line Index ultimately writes
// through; concrete backends live in sink.go.
type Sink interface {
	// AddFileNode records a file node for id, carrying its raw text.
	AddFileNode(id Identity, text string)
	// AddAnchor records an anchor node spanning [begin, end) bytes of
	// its owning file.
	AddAnchor(id Identity, begin, end int)
	// AddEdge records a directed edge of the given kind from one node
	// to another.
	AddEdge(from Identity, kind EdgeKind, to Identity)
	// AddDiagnostic attaches a non-fatal diagnostic message to the file
	// identified by fileID.
	AddDiagnostic(fileID Identity, message string)
}

// AnchorEmitter mints anchor Identities by copying the owning file's
// Identity and overwriting its Signature and Language, then records the
// anchor (and, when a target is given, a reference edge to it) in the
// Sink.
type AnchorEmitter struct {
	sink Sink
}

// NewAnchorEmitter constructs an emitter writing into sink.
func NewAnchorEmitter(sink Sink) *AnchorEmitter {
	return &AnchorEmitter{sink: sink}
}

// Emit records an anchor over [begin, end) of the file identified by
// file and returns the anchor's own Identity.
func (e *AnchorEmitter) Emit(file Identity, begin, end int) Identity {
	anchor := file
	anchor.Signature = fmt.Sprintf("@%d:%d", begin, end)
	anchor.Language = LanguageTextproto
	e.sink.AddAnchor(anchor, begin, end)
	return anchor
}

// EmitReference records an anchor over [begin, end) of file and a
// reference edge from that anchor to target, returning the anchor's
// Identity.
func (e *AnchorEmitter) EmitReference(file Identity, begin, end int, target Identity) Identity {
	anchor := e.Emit(file, begin, end)
	e.sink.AddEdge(anchor, EdgeReference, target)
	return anchor
}
