//go:build linux && (amd64 || arm64)

package device

type v4l2_format struct { // size 208
	typ    uint32                 // offset 0, size 4
	_      [4]byte                // align fmt union
	pix_mp v4l2_pix_format_mplane // offset 8, size 192
	_      [8]byte                // filler
}

type v4l2_plane struct { // size 64
	bytesused   uint32     // offset 0, size 4
	length      uint32     // offset 4, size 4
	mem_offset  uint32     // offset 8, size 4 (union m)
	_           [4]byte    // rest of union m
	data_offset uint32     // offset 16, size 4
	reserved    [11]uint32 // offset 20, size 44
}

type v4l2_buffer struct { // size 88
	index     uint32        // offset 0, size 4
	typ       uint32        // offset 4, size 4
	bytesused uint32        // offset 8, size 4
	flags     uint32        // offset 12, size 4
	field     uint32        // offset 16, size 4
	_         [4]byte       // align
	timestamp [16]byte      // offset 24, struct timeval
	timecode  v4l2_timecode // offset 40, size 16
	sequence  uint32        // offset 56, size 4
	memory    uint32        // offset 60, size 4
	planes    *v4l2_plane   // offset 64, size 8 (union m)
	length    uint32        // offset 72, size 4
	_         [12]byte      // reserved2, request_fd, filler
}
