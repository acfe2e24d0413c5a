//go:build linux && (386 || arm || amd64 || arm64)

package decode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSinkRaw(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	s := newSink(buf, false, 4, 4, 25)

	require.NoError(t, s.Write([]byte{1, 2, 3}))
	require.NoError(t, s.Write([]byte{4}))
	require.NoError(t, s.Flush())
	require.Equal(t, []byte{1, 2, 3, 4}, buf.Bytes())
}

func TestSinkY4M(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	s := newSink(buf, true, 4, 4, 25)

	frame := make([]byte, 4*4*3/2)
	for i := range frame {
		frame[i] = byte(i)
	}

	// split across writes, plus a partial trailing frame
	require.NoError(t, s.Write(frame[:10]))
	require.NoError(t, s.Write(frame[10:]))
	require.NoError(t, s.Write(frame[:5]))
	require.NoError(t, s.Flush())

	want := append([]byte("YUV4MPEG2 W4 H4 F25:1 Ip A1:1 C420mpeg2\nFRAME\n"), frame...)
	require.Equal(t, want, buf.Bytes())
}
