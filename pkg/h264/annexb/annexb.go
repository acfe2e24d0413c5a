// Package annexb inspects Annex-B delimited H.264 elementary streams.
package annexb

import "bytes"

const StartCode = "\x00\x00\x00\x01"

var startCode3 = []byte{0, 0, 1}

// HasStartCode reports whether b begins with a three or four byte start code.
func HasStartCode(b []byte) bool {
	if len(b) >= 4 && string(b[:4]) == StartCode {
		return true
	}
	return len(b) >= 3 && bytes.Equal(b[:3], startCode3)
}

// CountStartCodes counts NAL unit start codes inside b. A start code split
// across two chunks is missed, which is fine for per-chunk statistics.
func CountStartCodes(b []byte) (n int) {
	for {
		i := bytes.Index(b, startCode3)
		if i < 0 {
			return
		}
		n++
		b = b[i+3:]
	}
}
