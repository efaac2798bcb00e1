package main

import (
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// ParseText parses textproto source text into root (which must be an
// empty message of rootDesc's type), resolving message-typed fields
// against rootDesc's own nested types and Any wrappers against pool. It
// returns a LocationTree recording where each field occurrence started.
//
// There is no existing Go library that both parses textproto and
// tracks per-field source positions the way C++'s
// TextFormat::ParseInfoTree does, so this is a hand-written scanner
// extending the byte-scanning technique used elsewhere in this package
// for proto source files, with line/column bookkeeping added.
//
// When permissive is true, unknown field and extension names are
// skipped silently (their values discarded) rather than treated as
// parse errors, the way the
// Driver configures the parser it drives (spec permits "tolerate …
// unknown extensions").
func ParseText(text string, root protoreflect.Message, rootDesc protoreflect.MessageDescriptor, pool DescriptorPool, permissive bool) (LocationTree, error) {
	p := &parser{text: text, pool: pool, permissive: permissive}
	tree := newMutableLocationTree()
	if err := p.parseMessageBody(root, rootDesc, tree, false); err != nil {
		return nil, err
	}
	return tree, nil
}

type parser struct {
	text       string
	pos        int
	line       int // 0-indexed
	col        int // 0-indexed code point column on the current line
	pool       DescriptorPool
	permissive bool
}

func isIdentStartByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return isIdentStartByte(c) || (c >= '0' && c <= '9')
}

func (p *parser) peek() byte {
	if p.pos >= len(p.text) {
		return 0
	}
	return p.text[p.pos]
}

func (p *parser) atEnd() bool { return p.pos >= len(p.text) }

func (p *parser) advance() byte {
	c := p.text[p.pos]
	p.pos++
	if c == '\n' {
		p.line++
		p.col = 0
	} else if c < 0x80 || c >= 0xC0 {
		p.col++
	}
	return c
}

func (p *parser) skipWhitespaceAndComments() {
	for !p.atEnd() {
		switch c := p.peek(); {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == ',':
			p.advance()
		case c == '#':
			for !p.atEnd() && p.peek() != '\n' {
				p.advance()
			}
		default:
			return
		}
	}
}

func (p *parser) scanIdent() string {
	start := p.pos
	if !p.atEnd() && isIdentStartByte(p.peek()) {
		p.advance()
		for !p.atEnd() && (isIdentByte(p.peek()) || p.peek() == '.') {
			p.advance()
		}
	}
	return p.text[start:p.pos]
}

func (p *parser) parseMessageBody(msg protoreflect.Message, desc protoreflect.MessageDescriptor, tree *mutableLocationTree, braced bool) error {
	for {
		p.skipWhitespaceAndComments()
		if p.atEnd() {
			if braced {
				return fmt.Errorf("unexpected end of input, expected '}' closing %s", desc.FullName())
			}
			return nil
		}
		if braced && p.peek() == '}' {
			p.advance()
			return nil
		}
		if err := p.parseFieldEntry(msg, desc, tree); err != nil {
			return err
		}
	}
}

func (p *parser) parseFieldEntry(msg protoreflect.Message, desc protoreflect.MessageDescriptor, tree *mutableLocationTree) error {
	startLine, startCol := p.line, p.col

	var fd protoreflect.FieldDescriptor
	if p.peek() == '[' {
		p.advance()
		p.skipWhitespaceAndComments()
		name := p.scanIdent()
		p.skipWhitespaceAndComments()
		if p.peek() != ']' {
			return fmt.Errorf("expected ']' after extension name %q at line %d", name, p.line+1)
		}
		p.advance()
		fd = p.findExtension(desc, name)
		if fd == nil {
			if p.permissive {
				return p.skipUnknownFieldValue()
			}
			return fmt.Errorf("unknown extension %q in message %s", name, desc.FullName())
		}
	} else {
		name := p.scanIdent()
		if name == "" {
			return fmt.Errorf("expected field name at line %d", p.line+1)
		}
		fd = desc.Fields().ByName(protoreflect.Name(name))
		if fd == nil {
			if p.permissive {
				return p.skipUnknownFieldValue()
			}
			return fmt.Errorf("unknown field %q in message %s", name, desc.FullName())
		}
	}

	p.skipWhitespaceAndComments()
	if p.peek() == ':' {
		p.advance()
		p.skipWhitespaceAndComments()
	}

	occurrence := NonRepeatedIndex
	if fd.Cardinality() == protoreflect.Repeated {
		occurrence = msg.Get(fd).List().Len()
	}
	tree.setLocation(fd, occurrence, Position{Line: startLine, Column: startCol})

	if p.peek() == '[' && fd.Cardinality() == protoreflect.Repeated {
		return p.parseInlineRepeatedList(msg, fd, tree, occurrence)
	}
	return p.parseFieldValue(msg, fd, tree, occurrence)
}

// parseInlineRepeatedList parses `field: [v1, v2, …]`. Only the first
// element reuses the location recorded for the field name itself;
// later elements get no location of their own, which is exactly the
// case analyzeField's truth table treats as "skip anchor, keep walking".
func (p *parser) parseInlineRepeatedList(msg protoreflect.Message, fd protoreflect.FieldDescriptor, tree *mutableLocationTree, firstOccurrence int) error {
	p.advance() // consume '['
	occurrence := firstOccurrence
	for {
		p.skipWhitespaceAndComments()
		if p.peek() == ']' {
			p.advance()
			return nil
		}
		if err := p.parseFieldValue(msg, fd, tree, occurrence); err != nil {
			return err
		}
		occurrence++
		p.skipWhitespaceAndComments()
		if p.peek() == ',' {
			p.advance()
		}
	}
}

func (p *parser) parseFieldValue(msg protoreflect.Message, fd protoreflect.FieldDescriptor, tree *mutableLocationTree, occurrence int) error {
	if fd.Kind() == protoreflect.MessageKind || fd.Kind() == protoreflect.GroupKind {
		return p.parseMessageValue(msg, fd, tree, occurrence)
	}
	return p.parseScalarValue(msg, fd, occurrence)
}

func (p *parser) parseMessageValue(msg protoreflect.Message, fd protoreflect.FieldDescriptor, tree *mutableLocationTree, occurrence int) error {
	p.skipWhitespaceAndComments()
	if p.peek() != '{' {
		return fmt.Errorf("expected '{' for message field %s at line %d", fd.FullName(), p.line+1)
	}
	p.advance()

	subDesc := fd.Message()
	childTree := tree.child(fd, occurrence)

	var subMsg protoreflect.Message
	if fd.Cardinality() == protoreflect.Repeated {
		subMsg = msg.Mutable(fd).List().AppendMutable().Message()
	} else {
		subMsg = msg.Mutable(fd).Message()
	}

	if subDesc.FullName() == anyFullName {
		return p.parseAnyBody(subMsg, subDesc, childTree)
	}
	return p.parseMessageBody(subMsg, subDesc, childTree, true)
}

// parseAnyBody parses the body of a google.protobuf.Any value, which
// may be written either directly (ordinary type_url/value fields) or
// as a literal `[authority/message.Type] { … }`. For the literal form,
// the embedded message is parsed against its own resolved descriptor
// and serialized into the Any's type_url/value fields, matching what a
// text-format parser does internally for this syntax.
func (p *parser) parseAnyBody(msg protoreflect.Message, desc protoreflect.MessageDescriptor, tree *mutableLocationTree) error {
	p.skipWhitespaceAndComments()
	if p.peek() != '[' {
		return p.parseMessageBody(msg, desc, tree, true)
	}
	p.advance()
	p.skipWhitespaceAndComments()
	start := p.pos
	for !p.atEnd() && p.peek() != ']' {
		p.advance()
	}
	if p.peek() != ']' {
		return fmt.Errorf("unterminated Any type URL at line %d", p.line+1)
	}
	typeURL := strings.TrimSpace(p.text[start:p.pos])
	p.advance()
	p.skipWhitespaceAndComments()

	msgName := protoreflect.FullName(messageNameFromTypeURL(typeURL))
	innerDesc, ok := p.pool.FindMessageByName(msgName)
	if !ok {
		return fmt.Errorf("unable to resolve Any literal type %q", msgName)
	}

	inner := dynamicpb.NewMessage(innerDesc)
	p.skipWhitespaceAndComments()
	if p.peek() == '{' {
		p.advance()
		if err := p.parseMessageBody(inner, innerDesc, tree, true); err != nil {
			return err
		}
	}
	p.skipWhitespaceAndComments()
	if p.peek() != '}' {
		return fmt.Errorf("expected '}' closing Any literal at line %d", p.line+1)
	}
	p.advance()

	valueBytes, err := proto.Marshal(inner)
	if err != nil {
		return fmt.Errorf("serializing Any literal as %s: %w", msgName, err)
	}
	typeURLField := desc.Fields().ByName("type_url")
	valueField := desc.Fields().ByName("value")
	msg.Set(typeURLField, protoreflect.ValueOfString(typeURL))
	msg.Set(valueField, protoreflect.ValueOfBytes(valueBytes))
	return nil
}

func (p *parser) parseScalarValue(msg protoreflect.Message, fd protoreflect.FieldDescriptor, occurrence int) error {
	p.skipWhitespaceAndComments()
	lit, err := p.scanLiteral()
	if err != nil {
		return err
	}
	v, err := scalarValueFromLiteral(fd, lit)
	if err != nil {
		return err
	}
	if fd.Cardinality() == protoreflect.Repeated {
		msg.Mutable(fd).List().Append(v)
	} else {
		msg.Set(fd, v)
	}
	return nil
}

func (p *parser) scanLiteral() (string, error) {
	c := p.peek()
	if c == '"' || c == '\'' {
		return p.scanQuotedString(c)
	}
	start := p.pos
	for !p.atEnd() {
		switch p.peek() {
		case ' ', '\t', '\r', '\n', ',', ';', ']', '}', '#':
			goto done
		}
		p.advance()
	}
done:
	if p.pos == start {
		return "", fmt.Errorf("expected scalar literal at line %d", p.line+1)
	}
	return p.text[start:p.pos], nil
}

func (p *parser) scanQuotedString(quote byte) (string, error) {
	p.advance()
	var sb strings.Builder
	for {
		if p.atEnd() {
			return "", fmt.Errorf("unterminated string literal at line %d", p.line+1)
		}
		c := p.peek()
		if c == quote {
			p.advance()
			return sb.String(), nil
		}
		if c == '\\' {
			p.advance()
			if p.atEnd() {
				return "", fmt.Errorf("unterminated escape sequence at line %d", p.line+1)
			}
			esc := p.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(esc)
			}
			continue
		}
		sb.WriteByte(c)
		p.advance()
	}
}

// skipUnknownFieldValue discards the value following an unrecognized
// field or extension name, handling brace- and bracket-balanced values
// so a following sibling field isn't misparsed.
func (p *parser) skipUnknownFieldValue() error {
	p.skipWhitespaceAndComments()
	if p.peek() == ':' {
		p.advance()
		p.skipWhitespaceAndComments()
	}
	switch p.peek() {
	case '{':
		return p.skipBalanced('{', '}')
	case '[':
		return p.skipBalanced('[', ']')
	default:
		_, err := p.scanLiteral()
		return err
	}
}

func (p *parser) skipBalanced(open, close byte) error {
	depth := 0
	for !p.atEnd() {
		c := p.peek()
		switch {
		case c == '"' || c == '\'':
			if _, err := p.scanQuotedString(c); err != nil {
				return err
			}
			continue
		case c == open:
			depth++
		case c == close:
			depth--
			p.advance()
			if depth == 0 {
				return nil
			}
			continue
		}
		p.advance()
	}
	return fmt.Errorf("unterminated value starting with %q at line %d", open, p.line+1)
}

func (p *parser) findExtension(desc protoreflect.MessageDescriptor, name string) protoreflect.FieldDescriptor {
	ext, ok := p.pool.FindExtensionByName(protoreflect.FullName(name))
	if !ok {
		return nil
	}
	if ext.ContainingMessage().FullName() != desc.FullName() {
		return nil
	}
	return ext
}

func scalarValueFromLiteral(fd protoreflect.FieldDescriptor, lit string) (protoreflect.Value, error) {
	switch fd.Kind() {
	case protoreflect.StringKind:
		return protoreflect.ValueOfString(lit), nil
	case protoreflect.BytesKind:
		return protoreflect.ValueOfBytes([]byte(lit)), nil
	case protoreflect.BoolKind:
		switch lit {
		case "true", "1":
			return protoreflect.ValueOfBool(true), nil
		case "false", "0":
			return protoreflect.ValueOfBool(false), nil
		}
		return protoreflect.Value{}, fmt.Errorf("invalid bool literal %q", lit)
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		n, err := strconv.ParseInt(lit, 10, 32)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfInt32(int32(n)), nil
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfInt64(n), nil
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		n, err := strconv.ParseUint(lit, 10, 32)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfUint32(uint32(n)), nil
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		n, err := strconv.ParseUint(lit, 10, 64)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfUint64(n), nil
	case protoreflect.FloatKind:
		f, err := strconv.ParseFloat(lit, 32)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfFloat32(float32(f)), nil
	case protoreflect.DoubleKind:
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfFloat64(f), nil
	case protoreflect.EnumKind:
		if ev := fd.Enum().Values().ByName(protoreflect.Name(lit)); ev != nil {
			return protoreflect.ValueOfEnum(ev.Number()), nil
		}
		if n, err := strconv.ParseInt(lit, 10, 32); err == nil {
			return protoreflect.ValueOfEnum(protoreflect.EnumNumber(n)), nil
		}
		return protoreflect.Value{}, fmt.Errorf("unknown enum value %q for %s", lit, fd.Enum().FullName())
	default:
		return protoreflect.Value{}, fmt.Errorf("unsupported scalar field kind %v", fd.Kind())
	}
}
