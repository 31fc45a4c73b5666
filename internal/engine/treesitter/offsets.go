package treesitter

import "unicode/utf8"

// offsetMap converts between byte offsets into UTF-8 source, which the
// parser works in, and UTF-16 code unit offsets, which the host and every
// result use.
type offsetMap struct {
	// units[b] is the UTF-16 offset of the rune containing byte b
	units []int
	// bytes[u] is the byte offset of the rune containing code unit u
	bytes []int
}

func newOffsetMap(src []byte) *offsetMap {
	m := &offsetMap{
		units: make([]int, len(src)+1),
		bytes: make([]int, 0, len(src)+1),
	}
	u := 0
	for i := 0; i < len(src); {
		r, size := utf8.DecodeRune(src[i:])
		width := 1
		if r >= 0x10000 {
			width = 2
		}
		for j := 0; j < size; j++ {
			m.units[i+j] = u
		}
		for j := 0; j < width; j++ {
			m.bytes = append(m.bytes, i)
		}
		i += size
		u += width
	}
	m.units[len(src)] = u
	m.bytes = append(m.bytes, len(src))
	return m
}

// toUnit converts a byte offset, clamped to the source.
func (m *offsetMap) toUnit(b int) int {
	if b <= 0 {
		return 0
	}
	if b >= len(m.units) {
		return m.units[len(m.units)-1]
	}
	return m.units[b]
}

// toByte converts a UTF-16 offset, clamped to the source.
func (m *offsetMap) toByte(u int) int {
	if u <= 0 {
		return 0
	}
	if u >= len(m.bytes) {
		return m.bytes[len(m.bytes)-1]
	}
	return m.bytes[u]
}

// length is the source length in UTF-16 code units.
func (m *offsetMap) length() int { return len(m.bytes) - 1 }
