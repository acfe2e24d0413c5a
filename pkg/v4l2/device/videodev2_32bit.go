//go:build linux && (386 || arm)

package device

type v4l2_format struct { // size 204
	typ    uint32                 // offset 0, size 4
	pix_mp v4l2_pix_format_mplane // offset 4, size 192
	_      [8]byte                // filler
}

type v4l2_plane struct { // size 60
	bytesused   uint32     // offset 0, size 4
	length      uint32     // offset 4, size 4
	mem_offset  uint32     // offset 8, size 4 (union m)
	data_offset uint32     // offset 12, size 4
	reserved    [11]uint32 // offset 16, size 44
}

type v4l2_buffer struct { // size 68
	index     uint32        // offset 0, size 4
	typ       uint32        // offset 4, size 4
	bytesused uint32        // offset 8, size 4
	flags     uint32        // offset 12, size 4
	field     uint32        // offset 16, size 4
	timestamp [8]byte       // offset 20, struct timeval
	timecode  v4l2_timecode // offset 28, size 16
	sequence  uint32        // offset 44, size 4
	memory    uint32        // offset 48, size 4
	planes    *v4l2_plane   // offset 52, size 4 (union m)
	length    uint32        // offset 56, size 4
	_         [8]byte       // reserved2, reserved
}
