package main

import "google.golang.org/protobuf/reflect/protoreflect"

// analyzeField implements the per-(field, occurrence) truth table: it
// decides whether an anchor is owed for this occurrence, emits it and
// its reference edge when so, then dispatches into the Any-wrapper or
// ordinary message analyzer when the field's declared type is a
// message.
//
// occurrence is NonRepeatedIndex for singular fields (including
// singular extensions) or a 0-based index into a repeated field's
// values. The possible combinations and their outcomes:
//
//   - non-repeated, non-extension, unlocated: the field was never set;
//     nothing to do.
//   - non-repeated, non-extension, located: ordinary case, anchor it.
//   - extension (any occurrence), unlocated: an extension the parser
//     recorded no location for is a bug in the parser or pool, not a
//     legitimately-unset field (an extension only appears in the value
//     tree if it was actually parsed).
//   - repeated, occurrence 0, unlocated: same bug as above — the first
//     occurrence of a repeated field must have a location if it's in
//     the value tree at all.
//   - repeated, occurrence > 0, unlocated: a continuation entry inside
//     an inline `field: [a, b, c]` list, which the parser doesn't
//     separately locate. Anchor is skipped, but the walk continues so a
//     message-typed continuation entry still gets analyzed.
func (a *analyzer) analyzeField(fileID Identity, parent protoreflect.Message, loc LocationTree, fd protoreflect.FieldDescriptor, occurrence int) error {
	raw := loc.Location(fd, occurrence)
	line := raw.Line + 1
	column := raw.Column

	emitAnchor := true
	if line == 0 {
		switch {
		case fd.IsExtension():
			return &InternalError{Msg: "extension " + string(fd.FullName()) + " has no recorded location"}
		case occurrence == NonRepeatedIndex:
			return nil
		case occurrence == 0:
			return &InternalError{Msg: "first occurrence of repeated field " + string(fd.FullName()) + " has no recorded location"}
		default:
			emitAnchor = false
		}
	}

	if emitAnchor {
		nameLen := len(fd.Name())
		if fd.IsExtension() {
			nameLen = len(fd.FullName())
			column++ // the recorded position is the opening '[', skip past it
		}
		begin, err := a.lineIndex.ByteOffset(line, column)
		if err != nil {
			return err
		}
		end := begin + nameLen

		fieldID, err := a.identities.ForField(fd)
		if err != nil {
			return err
		}
		a.anchors.EmitReference(fileID, begin, end, fieldID)
	}

	if fd.Kind() != protoreflect.MessageKind && fd.Kind() != protoreflect.GroupKind {
		return nil
	}

	nestedLoc := loc.Nested(fd, occurrence)
	var subMsg protoreflect.Message
	if occurrence == NonRepeatedIndex {
		if !parent.Has(fd) {
			return nil
		}
		subMsg = parent.Get(fd).Message()
	} else {
		subMsg = parent.Get(fd).List().Get(occurrence).Message()
	}
	subDesc := fd.Message()

	if subDesc.FullName() == anyFullName {
		ownerLine := 0
		ownerColumn := 0
		if emitAnchor {
			ownerLine, ownerColumn = line, column
		}
		return a.analyzeAny(fileID, subMsg, subDesc, nestedLoc, ownerLine, ownerColumn)
	}
	return a.analyzeMessage(fileID, subMsg, subDesc, nestedLoc)
}
