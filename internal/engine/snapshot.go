package engine

import (
	"unicode/utf16"
)

// Snapshot is immutable document text addressed in UTF-16 code units.
type Snapshot interface {
	GetText(start, end int) string
	GetLength() int
}

// StringSnapshot is a Snapshot over a Go string.
type StringSnapshot struct {
	text  string
	units []uint16
}

// NewStringSnapshot creates a snapshot of text.
func NewStringSnapshot(text string) *StringSnapshot {
	return &StringSnapshot{text: text, units: utf16.Encode([]rune(text))}
}

// GetText returns the text between two UTF-16 offsets, clamped to the snapshot.
func (s *StringSnapshot) GetText(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(s.units) {
		end = len(s.units)
	}
	if start >= end {
		return ""
	}
	if start == 0 && end == len(s.units) {
		return s.text
	}
	return string(utf16.Decode(s.units[start:end]))
}

// GetLength returns the length in UTF-16 code units.
func (s *StringSnapshot) GetLength() int { return len(s.units) }

// String returns the whole text.
func (s *StringSnapshot) String() string { return s.text }

// SnapshotText reads the full text out of any snapshot.
func SnapshotText(s Snapshot) string {
	if ss, ok := s.(*StringSnapshot); ok {
		return ss.text
	}
	return s.GetText(0, s.GetLength())
}
