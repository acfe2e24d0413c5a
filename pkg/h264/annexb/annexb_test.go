package annexb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasStartCode(t *testing.T) {
	require.True(t, HasStartCode([]byte{0, 0, 0, 1, 0x67}))
	require.True(t, HasStartCode([]byte{0, 0, 1, 0x67}))
	require.False(t, HasStartCode([]byte{0, 0, 2, 0x67}))
	require.False(t, HasStartCode([]byte{0, 0}))
	require.False(t, HasStartCode(nil))
}

func TestCountStartCodes(t *testing.T) {
	stream := []byte{
		0, 0, 0, 1, 0x67, 0xAA, // SPS
		0, 0, 0, 1, 0x68, 0xBB, // PPS
		0, 0, 1, 0x65, 0xCC, 0xDD, // IDR, short start code
	}
	require.Equal(t, 3, CountStartCodes(stream))
	require.Equal(t, 0, CountStartCodes([]byte{0x67, 0xAA}))
	require.Equal(t, 0, CountStartCodes(nil))
}
