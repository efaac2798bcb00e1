package main

import "google.golang.org/protobuf/reflect/protoreflect"

// LocationTree mirrors the shape of a parsed message value: for each
// (field, occurrence) pair it can report where that occurrence started
// in the source text, and, for message-typed fields, hand back the
// nested subtree covering that occurrence's own fields. occurrence is
// NonRepeatedIndex for singular fields and extensions, or a 0-based
// index into a repeated field's values.
//
// There is no off-the-shelf Go equivalent of this (text-format parsers
// in the ecosystem don't expose per-field source positions), so the
// parser in this package builds and returns one directly.
type LocationTree interface {
	Location(fd protoreflect.FieldDescriptor, occurrence int) Position
	Nested(fd protoreflect.FieldDescriptor, occurrence int) LocationTree
}

type locationKey struct {
	number     protoreflect.FieldNumber
	occurrence int
}

// mutableLocationTree is the LocationTree implementation the parser
// populates while scanning. An empty tree (no recorded locations or
// children) is itself a valid, fully-absent LocationTree, which is what
// Nested returns for an occurrence that was never located.
type mutableLocationTree struct {
	locations map[locationKey]Position
	nested    map[locationKey]*mutableLocationTree
}

func newMutableLocationTree() *mutableLocationTree {
	return &mutableLocationTree{
		locations: make(map[locationKey]Position),
		nested:    make(map[locationKey]*mutableLocationTree),
	}
}

func (t *mutableLocationTree) Location(fd protoreflect.FieldDescriptor, occurrence int) Position {
	if pos, ok := t.locations[locationKey{fd.Number(), occurrence}]; ok {
		return pos
	}
	return Position{Line: -1}
}

func (t *mutableLocationTree) Nested(fd protoreflect.FieldDescriptor, occurrence int) LocationTree {
	if child, ok := t.nested[locationKey{fd.Number(), occurrence}]; ok {
		return child
	}
	return newMutableLocationTree()
}

func (t *mutableLocationTree) setLocation(fd protoreflect.FieldDescriptor, occurrence int, pos Position) {
	t.locations[locationKey{fd.Number(), occurrence}] = pos
}

func (t *mutableLocationTree) child(fd protoreflect.FieldDescriptor, occurrence int) *mutableLocationTree {
	key := locationKey{fd.Number(), occurrence}
	if child, ok := t.nested[key]; ok {
		return child
	}
	child := newMutableLocationTree()
	t.nested[key] = child
	return child
}
