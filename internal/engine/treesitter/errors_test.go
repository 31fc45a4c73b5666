package treesitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReportsUnavailableWithoutEngine(t *testing.T) {
	require.Error(t, ErrUnavailable)
	if Available() {
		t.Skip("engine compiled in")
	}
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}
