package main

import (
	"fmt"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const anyFullName protoreflect.FullName = "google.protobuf.Any"

// anyWrapperCacheSize bounds the lookup cache mapping an Any message's
// type name to its resolved descriptor. Eviction here only costs a
// repeated pool lookup, never correctness, unlike the Path Resolver's
// cache (see pathresolver.go and DESIGN.md).
const anyWrapperCacheSize = 512

// messageNameFromTypeURL returns the fully-qualified message name
// encoded in a google.protobuf.Any type_url: the part after the last
// '/', or the whole string if there is no slash.
func messageNameFromTypeURL(url string) string {
	if i := strings.LastIndexByte(url, '/'); i >= 0 {
		return url[i+1:]
	}
	return url
}

// Regexes used to locate the span of an Any literal's type URL in the
// raw source text, starting from the byte offset of the owning field's
// name. They mirror the scan the original indexer performs with RE2:
// consume the field name (or extension bracket) and opening brace,
// skip any comments, then capture the message name following the
// authority slash inside the literal's own brackets.
var (
	anyFieldOpenRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\[\]]*\s*:?\s*\{`)
	anyCommentRE   = regexp.MustCompile(`^(\s*#[^\n]*\n)+`)
	anyTypeURLRE   = regexp.MustCompile(`^\s*\[\s*[^/\]\s]+/([^\]\s]+)\s*\]`)
)

// locateAnyTypeURLSpan scans the raw text starting at the owning
// field's (1-indexed line, 0-indexed column) for an Any literal's
// bracketed type URL, and returns the byte span of the message-name
// portion of that URL (after the authority slash). ok is false if
// ownerLine is 0 (no location was recorded for the owning field, e.g.
// an inline-repeated continuation) or the literal form isn't found at
// all, in which case the caller falls back to treating the Any as
// written in direct (type_url/value) form.
func (a *analyzer) locateAnyTypeURLSpan(ownerLine, ownerColumn int) (begin, end int, ok bool) {
	if ownerLine <= 0 {
		return 0, 0, false
	}
	start, err := a.lineIndex.ByteOffset(ownerLine, ownerColumn)
	if err != nil {
		return 0, 0, false
	}
	rest := a.text[start:]

	m := anyFieldOpenRE.FindStringIndex(rest)
	if m == nil {
		return 0, 0, false
	}
	consumed := m[1]
	rest = rest[m[1]:]

	if cm := anyCommentRE.FindStringIndex(rest); cm != nil {
		consumed += cm[1]
		rest = rest[cm[1]:]
	}

	tm := anyTypeURLRE.FindStringSubmatchIndex(rest)
	if tm == nil {
		return 0, 0, false
	}
	return start + consumed + tm[2], start + consumed + tm[3], true
}

// analyzeAny implements the Any-wrapper analysis rule: if the literal
// bracketed type-URL form can be located in the source, anchor its
// message-name span and, if the named type resolves, emit a reference
// to it and recurse into the decoded embedded message using the same
// location subtree the Any field itself occupies. If the literal form
// can't be located, the Any is walked as an ordinary message instead
// (its type_url and value fields get the usual field treatment, with no
// attempt to interpret value's bytes).
func (a *analyzer) analyzeAny(fileID Identity, msg protoreflect.Message, md protoreflect.MessageDescriptor, loc LocationTree, ownerLine, ownerColumn int) error {
	begin, end, ok := a.locateAnyTypeURLSpan(ownerLine, ownerColumn)
	if !ok {
		return a.analyzeMessage(fileID, msg, md, loc)
	}

	typeURLField := md.Fields().ByName("type_url")
	valueField := md.Fields().ByName("value")
	if typeURLField == nil || valueField == nil {
		return &InternalError{Msg: "google.protobuf.Any descriptor is missing type_url or value"}
	}

	typeURLAnchor := a.anchors.Emit(fileID, begin, end)

	typeURL := msg.Get(typeURLField).String()
	msgName := protoreflect.FullName(messageNameFromTypeURL(typeURL))

	msgDesc, found := a.lookupAnyType(msgName)
	if !found {
		a.logger.WithFields(logrus.Fields{"type": string(msgName)}).Warn("could not resolve Any wrapper type, skipping reference")
		return nil
	}

	targetID, err := a.identities.ForMessage(msgDesc)
	if err != nil {
		return err
	}
	a.sink.AddEdge(typeURLAnchor, EdgeReference, targetID)

	valueBytes := msg.Get(valueField).Bytes()
	if len(valueBytes) == 0 {
		return nil
	}
	inner := dynamicpb.NewMessage(msgDesc)
	if err := proto.Unmarshal(valueBytes, inner); err != nil {
		return &ParseFailureError{Err: fmt.Errorf("decoding Any value as %s: %w", msgName, err)}
	}
	return a.analyzeMessage(fileID, inner, msgDesc, loc)
}

// lookupAnyType resolves name against the descriptor pool, caching hits
// in a bounded LRU so repeated Any literals of the same type (common in
// test fixtures and config files that embed many instances of one
// wrapper) don't re-walk the pool every time.
func (a *analyzer) lookupAnyType(name protoreflect.FullName) (protoreflect.MessageDescriptor, bool) {
	if a.anyTypeCache != nil {
		if cached, ok := a.anyTypeCache.Get(name); ok {
			return cached, true
		}
	}
	md, ok := a.pool.FindMessageByName(name)
	if ok && a.anyTypeCache != nil {
		a.anyTypeCache.Add(name, md)
	}
	return md, ok
}

func newAnyTypeCache() *lru.Cache[protoreflect.FullName, protoreflect.MessageDescriptor] {
	cache, _ := lru.New[protoreflect.FullName, protoreflect.MessageDescriptor](anyWrapperCacheSize)
	return cache
}
