//go:build linux && (386 || arm || amd64 || arm64)

package device

import (
	"unsafe"

	"github.com/ukicomputers/rpidec/pkg/ioctl"
)

// Request codes depend on the per-arch struct sizes below.
var (
	VIDIOC_QUERYCAP  = ioctl.IOR('V', 0, uint16(unsafe.Sizeof(v4l2_capability{})))
	VIDIOC_G_FMT     = ioctl.IORW('V', 4, uint16(unsafe.Sizeof(v4l2_format{})))
	VIDIOC_S_FMT     = ioctl.IORW('V', 5, uint16(unsafe.Sizeof(v4l2_format{})))
	VIDIOC_REQBUFS   = ioctl.IORW('V', 8, uint16(unsafe.Sizeof(v4l2_requestbuffers{})))
	VIDIOC_QUERYBUF  = ioctl.IORW('V', 9, uint16(unsafe.Sizeof(v4l2_buffer{})))
	VIDIOC_QBUF      = ioctl.IORW('V', 15, uint16(unsafe.Sizeof(v4l2_buffer{})))
	VIDIOC_DQBUF     = ioctl.IORW('V', 17, uint16(unsafe.Sizeof(v4l2_buffer{})))
	VIDIOC_STREAMON  = ioctl.IOW('V', 18, 4)
	VIDIOC_STREAMOFF = ioctl.IOW('V', 19, 4)
)

const (
	V4L2_BUF_TYPE_VIDEO_CAPTURE_MPLANE = 9
	V4L2_BUF_TYPE_VIDEO_OUTPUT_MPLANE  = 10

	V4L2_MEMORY_MMAP = 1
	V4L2_FIELD_NONE  = 1

	V4L2_BUF_FLAG_LAST = 0x00100000

	V4L2_CAP_VIDEO_M2M_MPLANE = 0x00004000
	V4L2_CAP_STREAMING        = 0x04000000
	V4L2_CAP_DEVICE_CAPS      = 0x80000000

	V4L2_PIX_FMT_H264   = 0x34363248 // "H264"
	V4L2_PIX_FMT_YUV420 = 0x32315559 // "YU12"
)

// FourCC renders a pixel format code as its four character tag.
func FourCC(pixFmt uint32) string {
	return string([]byte{
		byte(pixFmt), byte(pixFmt >> 8), byte(pixFmt >> 16), byte(pixFmt >> 24),
	})
}

type v4l2_capability struct { // size 104
	driver       [16]byte  // offset 0, size 16
	card         [32]byte  // offset 16, size 32
	bus_info     [32]byte  // offset 48, size 32
	version      uint32    // offset 80, size 4
	capabilities uint32    // offset 84, size 4
	device_caps  uint32    // offset 88, size 4
	reserved     [3]uint32 // offset 92, size 12
}

type v4l2_requestbuffers struct { // size 20
	count        uint32   // offset 0, size 4
	typ          uint32   // offset 4, size 4
	memory       uint32   // offset 8, size 4
	capabilities uint32   // offset 12, size 4
	flags        uint8    // offset 16, size 1
	reserved     [3]uint8 // offset 17, size 3
}

// v4l2_pix_format_mplane is packed in the kernel, no alignment padding.
type v4l2_pix_format_mplane struct { // size 192
	width        uint32                    // offset 0, size 4
	height       uint32                    // offset 4, size 4
	pixelformat  uint32                    // offset 8, size 4
	field        uint32                    // offset 12, size 4
	colorspace   uint32                    // offset 16, size 4
	plane_fmt    [8]v4l2_plane_pix_format  // offset 20, size 160
	num_planes   uint8                     // offset 180, size 1
	flags        uint8                     // offset 181, size 1
	ycbcr_enc    uint8                     // offset 182, size 1
	quantization uint8                     // offset 183, size 1
	xfer_func    uint8                     // offset 184, size 1
	_            [7]uint8                  // filler
}

type v4l2_plane_pix_format struct { // size 20
	sizeimage    uint32    // offset 0, size 4
	bytesperline uint32    // offset 4, size 4
	_            [6]uint16 // filler
}

type v4l2_timecode struct { // size 16
	typ      uint32   // offset 0, size 4
	flags    uint32   // offset 4, size 4
	frames   uint8    // offset 8, size 1
	seconds  uint8    // offset 9, size 1
	minutes  uint8    // offset 10, size 1
	hours    uint8    // offset 11, size 1
	userbits [4]uint8 // offset 12, size 4
}
