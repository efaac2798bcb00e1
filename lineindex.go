package main

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// LineIndex maps (line, column) positions in a textproto source file to
// byte offsets. Lines are 1-indexed to match the positions a parser
// reports; columns are 0-indexed counts of Unicode code points from the
// start of the line, not bytes, since a textproto file may contain
// multi-byte identifiers or string literals.
type LineIndex struct {
	text       string
	lineStarts []int
}

// NewLineIndex scans text once and records the byte offset of the start
// of every line.
func NewLineIndex(text string) *LineIndex {
	starts := make([]int, 1, strings.Count(text, "\n")+1)
	starts[0] = 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{text: text, lineStarts: starts}
}

// ByteOffset converts a 1-indexed line and 0-indexed code-point column
// into a byte offset into the original text. It returns an
// *InternalError if line is less than 1 or beyond the last line in the
// file: a parser that produced such a position has a bug, since every
// position it reports must refer back to text it actually scanned.
func (li *LineIndex) ByteOffset(line, column int) (int, error) {
	if line < 1 || line > len(li.lineStarts) {
		return 0, &InternalError{Msg: fmt.Sprintf("line %d out of range (file has %d lines)", line, len(li.lineStarts))}
	}
	offset := li.lineStarts[line-1]
	lineEnd := len(li.text)
	if line < len(li.lineStarts) {
		lineEnd = li.lineStarts[line]
	}
	remaining := column
	for remaining > 0 && offset < lineEnd {
		_, size := utf8.DecodeRuneInString(li.text[offset:lineEnd])
		offset += size
		remaining--
	}
	return offset, nil
}
