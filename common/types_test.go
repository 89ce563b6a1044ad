package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlphaMode(t *testing.T) {
	for _, mode := range []AlphaMode{AlphaOpaque, AlphaMask, AlphaBlend} {
		got, err := ParseAlphaMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, got)
	}
	_, err := ParseAlphaMode("glass")
	assert.Error(t, err)
}
