// Package coords translates between editor positions (1-based line and
// column, columns in UTF-16 code units) and the engine's flat offsets into
// the document text.
package coords

import (
	"fmt"

	"tsbridge/internal/errors"
)

// Position is a 1-based line/column pair.
type Position struct {
	LineNumber int `json:"lineNumber"`
	Column     int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.LineNumber, p.Column)
}

// Before reports whether p sorts strictly before o.
func (p Position) Before(o Position) bool {
	if p.LineNumber != o.LineNumber {
		return p.LineNumber < o.LineNumber
	}
	return p.Column < o.Column
}

// Range is a half-open span between two positions.
type Range struct {
	StartLineNumber int `json:"startLineNumber"`
	StartColumn     int `json:"startColumn"`
	EndLineNumber   int `json:"endLineNumber"`
	EndColumn       int `json:"endColumn"`
}

// NewRange builds a Range from two positions.
func NewRange(start, end Position) Range {
	return Range{
		StartLineNumber: start.LineNumber,
		StartColumn:     start.Column,
		EndLineNumber:   end.LineNumber,
		EndColumn:       end.Column,
	}
}

func (r Range) Start() Position { return Position{r.StartLineNumber, r.StartColumn} }
func (r Range) End() Position { return Position{r.EndLineNumber, r.EndColumn} }

// IsEmpty reports whether start equals end.
func (r Range) IsEmpty() bool {
	return r.StartLineNumber == r.EndLineNumber && r.StartColumn == r.EndColumn
}

func (r Range) String() string {
	return fmt.Sprintf("[%s-%s]", r.Start(), r.End())
}

// TextSpan is a flat [Start, Start+Length) span into a document.
type TextSpan struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// End returns the exclusive end offset.
func (s TextSpan) End() int { return s.Start + s.Length }

// LineModel is what translation needs from a document.
type LineModel interface {
	LineCount() int
	// LineLength returns the UTF-16 length of line n (1-based), excluding the terminator.
	LineLength(n int) int
	EOL() string
}

func eolLen(m LineModel) int {
	n := 0
	for _, r := range m.EOL() {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// PositionToOffset maps a position to a flat offset. Columns may point one
// past the last character of a line.
func PositionToOffset(m LineModel, pos Position) (int, error) {
	count := m.LineCount()
	if pos.LineNumber < 1 || pos.LineNumber > count {
		return 0, errors.Newf(errors.OutOfRange, "line %d outside 1..%d", pos.LineNumber, count)
	}
	width := m.LineLength(pos.LineNumber)
	if pos.Column < 1 || pos.Column > width+1 {
		return 0, errors.Newf(errors.OutOfRange, "column %d outside 1..%d on line %d", pos.Column, width+1, pos.LineNumber)
	}
	sep := eolLen(m)
	offset := 0
	for line := 1; line < pos.LineNumber; line++ {
		offset += m.LineLength(line) + sep
	}
	return offset + pos.Column - 1, nil
}

// OffsetToPosition maps a flat offset back to a position. The offset equal to
// the text length is valid; an offset inside a multi-unit line terminator is not.
func OffsetToPosition(m LineModel, offset int) (Position, error) {
	if offset < 0 {
		return Position{}, errors.Newf(errors.OutOfRange, "negative offset %d", offset)
	}
	sep := eolLen(m)
	count := m.LineCount()
	remaining := offset
	for line := 1; line <= count; line++ {
		width := m.LineLength(line)
		if remaining <= width {
			return Position{LineNumber: line, Column: remaining + 1}, nil
		}
		if line == count {
			break
		}
		if remaining < width+sep {
			return Position{}, errors.Newf(errors.OutOfRange, "offset %d splits the line terminator of line %d", offset, line)
		}
		remaining -= width + sep
	}
	return Position{}, errors.Newf(errors.OutOfRange, "offset %d beyond end of document", offset)
}

// TextSpanToRange maps a flat span to a range.
func TextSpanToRange(m LineModel, span TextSpan) (Range, error) {
	if span.Length < 0 {
		return Range{}, errors.Newf(errors.OutOfRange, "negative span length %d", span.Length)
	}
	start, err := OffsetToPosition(m, span.Start)
	if err != nil {
		return Range{}, err
	}
	end, err := OffsetToPosition(m, span.End())
	if err != nil {
		return Range{}, err
	}
	return NewRange(start, end), nil
}

// RangeToOffsets maps a range to its start and end offsets.
func RangeToOffsets(m LineModel, r Range) (start, end int, err error) {
	if start, err = PositionToOffset(m, r.Start()); err != nil {
		return 0, 0, err
	}
	if end, err = PositionToOffset(m, r.End()); err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, errors.Newf(errors.OutOfRange, "range %s ends before it starts", r)
	}
	return start, end, nil
}

// TextLength returns the total UTF-16 length of the model including terminators.
func TextLength(m LineModel) int {
	sep := eolLen(m)
	n := 0
	count := m.LineCount()
	for line := 1; line <= count; line++ {
		n += m.LineLength(line)
		if line < count {
			n += sep
		}
	}
	return n
}
