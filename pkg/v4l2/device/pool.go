//go:build linux && (386 || arm || amd64 || arm64)

package device

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"

	"github.com/ukicomputers/rpidec/pkg/ioctl"
)

// ErrNoBuffers is returned when the device grants zero usable buffers.
var ErrNoBuffers = errors.New("device: no buffers granted")

// Buffer is one indexed slot of a Pool. It is owned by either the device or
// the application; ownership moves only through Pool.Queue and Pool.Dequeue,
// and its planes must not be touched while the device owns it.
type Buffer struct {
	Index  uint32
	Planes [][]byte // mmapped at full capacity
	Used   []uint32 // bytes used per plane, set by whichever side last wrote
	Last   bool     // end-of-stream mark
}

// Pool is a fixed-count buffer array for one queue direction. Planes are
// mapped once at allocation and unmapped only by Release.
type Pool struct {
	dev    *Device
	typ    uint32
	planes uint32
	bufs   []*Buffer
}

// AllocPool requests count buffers from the device, maps every plane of every
// granted buffer and queues them all, so the device starts out owning the
// whole pool. On any failure everything mapped so far is unmapped before the
// error is returned.
func (d *Device) AllocPool(typ, planes, count uint32) (*Pool, error) {
	rb := v4l2_requestbuffers{count: count, typ: typ, memory: V4L2_MEMORY_MMAP}
	if err := ioctl.Retry(d.fd, VIDIOC_REQBUFS, unsafe.Pointer(&rb)); err != nil {
		return nil, fmt.Errorf("reqbufs: %w", err)
	}
	if rb.count == 0 {
		return nil, ErrNoBuffers
	}

	p := &Pool{dev: d, typ: typ, planes: planes, bufs: make([]*Buffer, rb.count)}

	for i := uint32(0); i < rb.count; i++ {
		pl := make([]v4l2_plane, planes)
		qb := v4l2_buffer{
			index:  i,
			typ:    typ,
			memory: V4L2_MEMORY_MMAP,
			planes: &pl[0],
			length: planes,
		}
		if err := ioctl.Retry(d.fd, VIDIOC_QUERYBUF, unsafe.Pointer(&qb)); err != nil {
			p.Release()
			return nil, fmt.Errorf("querybuf %d: %w", i, err)
		}

		buf := &Buffer{
			Index:  i,
			Planes: make([][]byte, planes),
			Used:   make([]uint32, planes),
		}
		p.bufs[i] = buf

		for j := range pl {
			data, err := syscall.Mmap(
				d.fd, int64(pl[j].mem_offset), int(pl[j].length),
				syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED,
			)
			if err != nil {
				p.Release()
				return nil, fmt.Errorf("mmap buffer %d plane %d: %w", i, j, err)
			}
			buf.Planes[j] = data
		}

		if err := p.Queue(buf); err != nil {
			p.Release()
			return nil, fmt.Errorf("queue buffer %d: %w", i, err)
		}
	}

	return p, nil
}

func (p *Pool) Count() int {
	return len(p.bufs)
}

// Requeue returns every buffer to the device with cleared used lengths and
// end-of-stream marks. StreamOff hands the whole queue back to the
// application, so a restarted stream must begin from full device ownership
// again, the same as AllocPool leaves it.
func (p *Pool) Requeue() error {
	for _, b := range p.bufs {
		for j := range b.Used {
			b.Used[j] = 0
		}
		b.Last = false
		if err := p.Queue(b); err != nil {
			return err
		}
	}
	return nil
}

// Queue hands the buffer to the device, carrying per-plane used lengths and
// the end-of-stream mark.
func (p *Pool) Queue(b *Buffer) error {
	pl := make([]v4l2_plane, p.planes)
	for j := range pl {
		pl[j].bytesused = b.Used[j]
	}

	qb := v4l2_buffer{
		index:  b.Index,
		typ:    p.typ,
		memory: V4L2_MEMORY_MMAP,
		planes: &pl[0],
		length: p.planes,
	}
	if b.Last {
		qb.flags = V4L2_BUF_FLAG_LAST
	}
	return ioctl.Retry(p.dev.fd, VIDIOC_QBUF, unsafe.Pointer(&qb))
}

// Dequeue reclaims one buffer from the device. syscall.EAGAIN means the
// device is not ready yet, syscall.EPIPE on a capture queue means no more
// output for this submission; both pass through for the caller's policy.
func (p *Pool) Dequeue() (*Buffer, error) {
	pl := make([]v4l2_plane, p.planes)
	qb := v4l2_buffer{
		typ:    p.typ,
		memory: V4L2_MEMORY_MMAP,
		planes: &pl[0],
		length: p.planes,
	}
	if err := ioctl.Retry(p.dev.fd, VIDIOC_DQBUF, unsafe.Pointer(&qb)); err != nil {
		return nil, err
	}

	b := p.bufs[qb.index]
	for j := range pl {
		b.Used[j] = pl[j].bytesused
	}
	b.Last = qb.flags&V4L2_BUF_FLAG_LAST != 0
	return b, nil
}

// Release unmaps every mapped plane. Planes that were never mapped are
// skipped; calling Release again is a no-op.
func (p *Pool) Release() {
	if p == nil {
		return
	}
	for _, b := range p.bufs {
		if b == nil {
			continue
		}
		for j, data := range b.Planes {
			if data != nil {
				_ = syscall.Munmap(data)
				b.Planes[j] = nil
			}
		}
	}
	p.bufs = nil
}
