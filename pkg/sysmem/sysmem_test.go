//go:build linux

package sysmem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseVmRSS(t *testing.T) {
	status := []byte(`Name:	rpidec
VmPeak:	 1238012 kB
VmSize:	 1238012 kB
VmRSS:	   18240 kB
VmData:	   90300 kB
`)
	n, err := parseVmRSS(status)
	require.NoError(t, err)
	require.Equal(t, uint64(18240), n)

	_, err = parseVmRSS([]byte("Name:\trpidec\n"))
	require.Error(t, err)
}

func TestResidentKiB(t *testing.T) {
	n, err := ResidentKiB()
	require.NoError(t, err)
	require.Greater(t, n, uint64(0))
}

func TestFreeKiB(t *testing.T) {
	n, err := FreeKiB()
	require.NoError(t, err)
	require.Greater(t, n, uint64(0))
}
