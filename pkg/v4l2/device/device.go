//go:build linux && (386 || arm || amd64 || arm64)

// Package device talks to a V4L2 memory-to-memory node: multiplanar format
// negotiation, mmap buffer pools and queue ownership transfers.
package device

import (
	"errors"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ukicomputers/rpidec/pkg/ioctl"
)

type Device struct {
	fd int
}

func Open(path string) (*Device, error) {
	fd, err := syscall.Open(path, syscall.O_RDWR|syscall.O_NONBLOCK|syscall.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	return &Device{fd: fd}, nil
}

type Capability struct {
	Driver  string
	Card    string
	BusInfo string
	Caps    uint32
}

func (d *Device) Capability() (*Capability, error) {
	c := v4l2_capability{}
	if err := ioctl.Retry(d.fd, VIDIOC_QUERYCAP, unsafe.Pointer(&c)); err != nil {
		return nil, err
	}

	caps := c.capabilities
	if caps&V4L2_CAP_DEVICE_CAPS != 0 {
		caps = c.device_caps
	}

	return &Capability{
		Driver:  ioctl.Str(c.driver[:]),
		Card:    ioctl.Str(c.card[:]),
		BusInfo: ioctl.Str(c.bus_info[:]),
		Caps:    caps,
	}, nil
}

// HasMem2Mem reports whether the node is a multiplanar mem2mem transformer.
func (c *Capability) HasMem2Mem() bool {
	return c.Caps&V4L2_CAP_VIDEO_M2M_MPLANE != 0 && c.Caps&V4L2_CAP_STREAMING != 0
}

// PixFormat is the negotiated geometry of one queue direction. Width and
// Height may exceed the requested size after stride alignment.
type PixFormat struct {
	Width       uint32
	Height      uint32
	PixelFormat uint32
	PlaneSizes  []uint32
}

func (d *Device) SetFormat(typ, width, height, pixFmt uint32) error {
	f := v4l2_format{typ: typ}
	f.pix_mp.width = width
	f.pix_mp.height = height
	f.pix_mp.pixelformat = pixFmt
	f.pix_mp.field = V4L2_FIELD_NONE
	f.pix_mp.num_planes = 1
	return ioctl.Retry(d.fd, VIDIOC_S_FMT, unsafe.Pointer(&f))
}

func (d *Device) Format(typ uint32) (*PixFormat, error) {
	f := v4l2_format{typ: typ}
	if err := ioctl.Retry(d.fd, VIDIOC_G_FMT, unsafe.Pointer(&f)); err != nil {
		return nil, err
	}

	pf := &PixFormat{
		Width:       f.pix_mp.width,
		Height:      f.pix_mp.height,
		PixelFormat: f.pix_mp.pixelformat,
	}
	for i := uint8(0); i < f.pix_mp.num_planes; i++ {
		pf.PlaneSizes = append(pf.PlaneSizes, f.pix_mp.plane_fmt[i].sizeimage)
	}
	return pf, nil
}

func (d *Device) StreamOn(typ uint32) error {
	return ioctl.Retry(d.fd, VIDIOC_STREAMON, unsafe.Pointer(&typ))
}

func (d *Device) StreamOff(typ uint32) error {
	return ioctl.Retry(d.fd, VIDIOC_STREAMOFF, unsafe.Pointer(&typ))
}

// Readiness events for Poll. x/sys/unix only carries the epoll spellings of
// the RDNORM/WRNORM bits, so the poll(2) values are laid out here.
const (
	pollRDNORM = 0x0040
	pollWRNORM = 0x0100

	PollIn  = unix.POLLIN | pollRDNORM  // decoded output ready
	PollOut = unix.POLLOUT | pollWRNORM // can accept more input
)

// Poll blocks until one of the events is signalled or the timeout expires.
// Returns false on timeout. Signal interruption is retried transparently.
func (d *Device) Poll(events int16, timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(d.fd), Events: events}}
	for {
		n, err := unix.Poll(fds, int(timeout.Milliseconds()))
		if errors.Is(err, syscall.EINTR) {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0 && fds[0].Revents&events != 0, nil
	}
}

func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := syscall.Close(d.fd)
	d.fd = -1
	return err
}
