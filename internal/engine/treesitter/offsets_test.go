package treesitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOffsetMapASCII(t *testing.T) {
	m := newOffsetMap([]byte("let x"))
	assert.Equal(t, 5, m.length())
	for i := 0; i <= 5; i++ {
		assert.Equal(t, i, m.toUnit(i))
		assert.Equal(t, i, m.toByte(i))
	}
}

func TestOffsetMapMultiByte(t *testing.T) {
	// é is two bytes and one unit, 😀 is four bytes and two units
	m := newOffsetMap([]byte("é😀x"))
	assert.Equal(t, 4, m.length())

	assert.Equal(t, 0, m.toUnit(0))
	assert.Equal(t, 0, m.toUnit(1))
	assert.Equal(t, 1, m.toUnit(2))
	assert.Equal(t, 3, m.toUnit(6))
	assert.Equal(t, 4, m.toUnit(7))

	assert.Equal(t, 2, m.toByte(1))
	assert.Equal(t, 2, m.toByte(2), "second surrogate maps to the rune start")
	assert.Equal(t, 6, m.toByte(3))
	assert.Equal(t, 7, m.toByte(4))
}

func TestOffsetMapClamps(t *testing.T) {
	m := newOffsetMap([]byte("ab"))
	assert.Equal(t, 0, m.toUnit(-3))
	assert.Equal(t, 2, m.toUnit(99))
	assert.Equal(t, 0, m.toByte(-1))
	assert.Equal(t, 2, m.toByte(99))

	empty := newOffsetMap(nil)
	assert.Equal(t, 0, empty.length())
	assert.Equal(t, 0, empty.toByte(5))
}
