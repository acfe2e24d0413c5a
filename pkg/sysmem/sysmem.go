//go:build linux

// Package sysmem reads the process resident set and system free memory,
// both in kibibytes.
package sysmem

import (
	"bytes"
	"errors"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

var errNoVmRSS = errors.New("sysmem: no VmRSS in process status")

// ResidentKiB returns the calling process's resident set size.
func ResidentKiB() (uint64, error) {
	b, err := os.ReadFile("/proc/self/status")
	if err != nil {
		return 0, err
	}
	return parseVmRSS(b)
}

// VmRSS:      1824 kB
func parseVmRSS(b []byte) (uint64, error) {
	for len(b) > 0 {
		line := b
		if i := bytes.IndexByte(b, '\n'); i >= 0 {
			line, b = b[:i], b[i+1:]
		} else {
			b = nil
		}

		value, ok := bytes.CutPrefix(line, []byte("VmRSS:"))
		if !ok {
			continue
		}
		value = bytes.TrimSuffix(bytes.TrimSpace(value), []byte(" kB"))
		return strconv.ParseUint(string(value), 10, 64)
	}
	return 0, errNoVmRSS
}

// FreeKiB returns combined free system RAM and swap.
func FreeKiB() (uint64, error) {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return 0, err
	}
	unit := uint64(si.Unit)
	if unit == 0 {
		unit = 1
	}
	return (uint64(si.Freeram) + uint64(si.Freeswap)) * unit / 1024, nil
}
