package main

import (
	"errors"
	"testing"
)

func TestLineIndexByteOffset(t *testing.T) {
	text := "abc\ndef\nghi"
	li := NewLineIndex(text)

	tests := []struct {
		name       string
		line, col  int
		wantOffset int
		wantErr    bool
	}{
		{"start of first line", 1, 0, 0, false},
		{"mid first line", 1, 2, 2, false},
		{"start of second line", 2, 0, 4, false},
		{"mid second line", 2, 1, 5, false},
		{"start of third line", 3, 0, 8, false},
		{"end of last line", 3, 3, 11, false},
		{"line zero is out of range", 0, 0, 0, true},
		{"line beyond file is out of range", 4, 0, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			offset, err := li.ByteOffset(tc.line, tc.col)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ByteOffset(%d, %d) = %d, nil; want error", tc.line, tc.col, offset)
				}
				var internalErr *InternalError
				if !errors.As(err, &internalErr) {
					t.Fatalf("ByteOffset(%d, %d) error = %v; want *InternalError", tc.line, tc.col, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ByteOffset(%d, %d) unexpected error: %v", tc.line, tc.col, err)
			}
			if offset != tc.wantOffset {
				t.Errorf("ByteOffset(%d, %d) = %d; want %d", tc.line, tc.col, offset, tc.wantOffset)
			}
		})
	}
}

func TestLineIndexMultiByteColumns(t *testing.T) {
	// "café\nbar" - "café" has 4 code points but 5 bytes ('é' is 2 bytes).
	text := "café\nbar"
	li := NewLineIndex(text)

	offset, err := li.ByteOffset(1, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if offset != 5 {
		t.Errorf("ByteOffset(1, 4) = %d; want 5 (code-point column, not byte column)", offset)
	}

	offset, err = li.ByteOffset(2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if offset != 6 {
		t.Errorf("ByteOffset(2, 0) = %d; want 6", offset)
	}
}

func TestLineIndexNoTrailingNewline(t *testing.T) {
	li := NewLineIndex("onlyline")
	offset, err := li.ByteOffset(1, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if offset != 8 {
		t.Errorf("ByteOffset(1, 8) = %d; want 8", offset)
	}
	if _, err := li.ByteOffset(2, 0); err == nil {
		t.Errorf("ByteOffset(2, 0) on single-line file; want error")
	}
}
