//go:build linux && (386 || arm || amd64 || arm64)

// Package v4l2 decodes an Annex-B H.264 elementary stream into planar
// YUV 4:2:0 through a V4L2 memory-to-memory hardware decoder, for example
// /dev/video10 on Raspberry Pi.
package v4l2

import (
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/ukicomputers/rpidec/pkg/sysmem"
	"github.com/ukicomputers/rpidec/pkg/v4l2/device"
)

// InitStatus is the result of Initialize.
type InitStatus uint8

const (
	InitOK InitStatus = iota
	InitDeviceNotFound
	InitIncompatibleHardware
	InitInsufficientMemory
	InitFailed
)

func (s InitStatus) String() string {
	switch s {
	case InitOK:
		return "OK"
	case InitDeviceNotFound:
		return "DEVICE_NOT_FOUND"
	case InitIncompatibleHardware:
		return "INCOMPATIBLE_HARDWARE"
	case InitInsufficientMemory:
		return "INSUFFICIENT_MEMORY"
	}
	return "FAILED"
}

// Status is the result of Decode.
type Status uint8

const (
	StatusOK Status = iota
	StatusNotInitialized
	StatusInsufficientMemory
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNotInitialized:
		return "NOT_INITIALIZED"
	case StatusInsufficientMemory:
		return "INSUFFICIENT_MEMORY"
	}
	return "FAILED"
}

// Frame is the accumulated decoded bytes of one Decode call. Output may be
// empty on OK when the device has not yet produced a full picture. Width and
// Height are the negotiated dimensions, stable for the life of the session
// and possibly stride-rounded above the requested size.
type Frame struct {
	Status Status
	Output []byte
	Width  uint32
	Height uint32
}

type Config struct {
	Width  uint32
	Height uint32

	Device        string        // decode node, default /dev/video10
	InputBuffers  uint32        // compressed queue depth, default 4
	OutputBuffers uint32        // decoded queue depth, default 4
	WaitTimeout   time.Duration // readiness wait bound, default 100ms

	// MemoryLimit caps the process resident set in KiB; when zero the
	// decoder instead requires FreeMemoryFloor KiB of free RAM+swap
	// (default 64 MiB) before draining more output.
	MemoryLimit     uint64
	FreeMemoryFloor uint64
}

const (
	DefaultDevice  = "/dev/video10"
	defaultBuffers = 4
	defaultTimeout = 100 * time.Millisecond
	defaultFloor   = 64 << 10 // KiB
)

type state uint8

const (
	stateUninitialized state = iota
	stateConfigured
	stateStreaming
	stateStopped
)

// queue is the pool surface the pumps drive.
type queue interface {
	Queue(b *device.Buffer) error
	Dequeue() (*device.Buffer, error)
	Requeue() error
	Release()
	Count() int
}

// streamer is the device surface the session drives.
type streamer interface {
	StreamOn(typ uint32) error
	StreamOff(typ uint32) error
	Poll(events int16, timeout time.Duration) (bool, error)
	Close() error
}

// Decoder is one decode session owning the device handle and both buffer
// pools. It is not safe for concurrent Decode calls.
type Decoder struct {
	cfg Config

	dev    streamer
	input  queue // compressed bytes, OUTPUT queue
	output queue // decoded planes, CAPTURE queue

	width  uint32
	height uint32

	state state
	err   error
}

var errMemoryLimit = errors.New("v4l2: memory limit reached")

func NewDecoder(cfg Config) *Decoder {
	if cfg.Device == "" {
		cfg.Device = DefaultDevice
	}
	if cfg.InputBuffers == 0 {
		cfg.InputBuffers = defaultBuffers
	}
	if cfg.OutputBuffers == 0 {
		cfg.OutputBuffers = defaultBuffers
	}
	if cfg.WaitTimeout == 0 {
		cfg.WaitTimeout = defaultTimeout
	}
	if cfg.FreeMemoryFloor == 0 {
		cfg.FreeMemoryFloor = defaultFloor
	}
	return &Decoder{cfg: cfg}
}

// Initialize opens the decode node, negotiates both queue formats and maps
// both buffer pools. Idempotent once it has returned InitOK.
func (d *Decoder) Initialize() InitStatus {
	if d.state != stateUninitialized {
		return InitOK
	}

	dev, err := device.Open(d.cfg.Device)
	if err != nil {
		d.err = err
		return InitDeviceNotFound
	}

	if status := d.configure(dev); status != InitOK {
		d.releasePools()
		_ = dev.Close()
		return status
	}

	d.dev = dev
	d.state = stateConfigured
	return InitOK
}

func (d *Decoder) configure(dev *device.Device) InitStatus {
	caps, err := dev.Capability()
	if err != nil {
		d.err = fmt.Errorf("querycap: %w", err)
		return InitFailed
	}
	if !caps.HasMem2Mem() {
		d.err = fmt.Errorf("%s is not a mem2mem decoder", caps.Card)
		return InitIncompatibleHardware
	}

	// Compressed input side.
	if err = dev.SetFormat(
		device.V4L2_BUF_TYPE_VIDEO_OUTPUT_MPLANE,
		d.cfg.Width, d.cfg.Height, device.V4L2_PIX_FMT_H264,
	); err != nil {
		return d.fail("set input format", err)
	}

	// Decoded output side.
	if err = dev.SetFormat(
		device.V4L2_BUF_TYPE_VIDEO_CAPTURE_MPLANE,
		d.cfg.Width, d.cfg.Height, device.V4L2_PIX_FMT_YUV420,
	); err != nil {
		return d.fail("set output format", err)
	}

	// Re-read the output side, the hardware may round the size up to its
	// stride alignment.
	format, err := dev.Format(device.V4L2_BUF_TYPE_VIDEO_CAPTURE_MPLANE)
	if err != nil {
		return d.fail("get output format", err)
	}
	d.width = format.Width
	d.height = format.Height

	if d.input, err = dev.AllocPool(
		device.V4L2_BUF_TYPE_VIDEO_OUTPUT_MPLANE, 1, d.cfg.InputBuffers,
	); err != nil {
		return d.allocFail("input", err)
	}
	if d.output, err = dev.AllocPool(
		device.V4L2_BUF_TYPE_VIDEO_CAPTURE_MPLANE, 1, d.cfg.OutputBuffers,
	); err != nil {
		return d.allocFail("output", err)
	}

	return InitOK
}

func (d *Decoder) fail(op string, err error) InitStatus {
	d.err = fmt.Errorf("%s: %w", op, err)
	if errors.Is(err, syscall.EINVAL) {
		return InitIncompatibleHardware
	}
	return InitFailed
}

func (d *Decoder) allocFail(dir string, err error) InitStatus {
	d.err = fmt.Errorf("allocate %s pool: %w", dir, err)
	if errors.Is(err, device.ErrNoBuffers) {
		return InitInsufficientMemory
	}
	if errors.Is(err, syscall.EINVAL) {
		return InitIncompatibleHardware
	}
	return InitFailed
}

// Size returns the negotiated output dimensions.
func (d *Decoder) Size() (width, height uint32) {
	return d.width, d.height
}

// Err returns the cause behind the most recent non-OK status.
func (d *Decoder) Err() error {
	return d.err
}

// SetMemoryLimit replaces the resident-set cap in KiB for subsequent Decode
// calls. Zero switches back to the free-memory floor.
func (d *Decoder) SetMemoryLimit(kib uint64) {
	d.cfg.MemoryLimit = kib
}

// Decode feeds one chunk of the compressed stream and drains whatever the
// device has decoded so far. Chunk boundaries are arbitrary; last must be
// true on the call carrying the stream's final byte. Not reentrant.
func (d *Decoder) Decode(data []byte, last bool) Frame {
	frame := Frame{Width: d.width, Height: d.height}

	switch d.state {
	case stateUninitialized:
		frame.Status = StatusNotInitialized
		return frame
	case stateStreaming:
	default:
		if d.state == stateStopped {
			if err := d.restart(); err != nil {
				d.err = err
				frame.Status = StatusFailed
				return frame
			}
		}
		if err := d.streamOn(); err != nil {
			d.err = err
			frame.Status = StatusFailed
			return frame
		}
		d.state = stateStreaming
	}

	if err := d.feed(data, last); err != nil {
		d.err = err
		frame.Status = StatusFailed
		return frame
	}

	out, err := d.drain(nil)
	frame.Output = out
	if err != nil {
		d.err = err
		if errors.Is(err, errMemoryLimit) {
			frame.Status = StatusInsufficientMemory
		} else {
			frame.Status = StatusFailed
		}
	}
	return frame
}

// restart hands both pools back to the device before streaming again; the
// preceding stream off returned every buffer to the application.
func (d *Decoder) restart() error {
	if err := d.input.Requeue(); err != nil {
		return fmt.Errorf("requeue input pool: %w", err)
	}
	if err := d.output.Requeue(); err != nil {
		return fmt.Errorf("requeue output pool: %w", err)
	}
	return nil
}

func (d *Decoder) streamOn() error {
	if err := d.dev.StreamOn(device.V4L2_BUF_TYPE_VIDEO_OUTPUT_MPLANE); err != nil {
		return fmt.Errorf("stream on input: %w", err)
	}
	if err := d.dev.StreamOn(device.V4L2_BUF_TYPE_VIDEO_CAPTURE_MPLANE); err != nil {
		return fmt.Errorf("stream on output: %w", err)
	}
	return nil
}

// feed pushes the chunk into the input pool, one buffer capacity at a time.
// A chunk may span many buffers and a buffer may span many chunks.
func (d *Decoder) feed(data []byte, last bool) error {
	for len(data) > 0 {
		buf, err := d.input.Dequeue()
		if err != nil {
			if errors.Is(err, syscall.EAGAIN) {
				if ready, _ := d.dev.Poll(device.PollOut, d.cfg.WaitTimeout); ready {
					continue
				}
			}
			return fmt.Errorf("reclaim input buffer: %w", err)
		}

		n := copy(buf.Planes[0], data)
		data = data[n:]

		buf.Used[0] = uint32(n)
		buf.Last = last && len(data) == 0

		if err = d.input.Queue(buf); err != nil {
			return fmt.Errorf("submit input buffer: %w", err)
		}
	}
	return nil
}

// drain reclaims decoded buffers until the device reports end-of-batch or
// hands back the end-of-stream buffer, appending plane bytes to out. The
// memory guard runs before every iteration; on any failure the bytes already
// accumulated are returned alongside the error.
func (d *Decoder) drain(out []byte) ([]byte, error) {
	for {
		if err := d.checkMemory(); err != nil {
			return out, err
		}

		buf, err := d.output.Dequeue()
		if err != nil {
			if errors.Is(err, syscall.EAGAIN) {
				if ready, _ := d.dev.Poll(device.PollIn, d.cfg.WaitTimeout); ready {
					continue
				}
			}
			if errors.Is(err, syscall.EPIPE) {
				// No more output for this submission.
				return out, nil
			}
			return out, fmt.Errorf("reclaim output buffer: %w", err)
		}

		for j, plane := range buf.Planes {
			if n := buf.Used[j]; n > 0 {
				out = append(out, plane[:n]...)
				buf.Used[j] = 0
			}
		}
		last := buf.Last

		buf.Last = false
		if err = d.output.Queue(buf); err != nil {
			return out, fmt.Errorf("recycle output buffer: %w", err)
		}

		if last {
			return out, nil
		}
	}
}

// checkMemory aborts the drain when the configured resident-set cap is
// reached, or without a cap when free RAM+swap falls under the floor.
// Decoded output grows unboundedly for large inputs otherwise.
func (d *Decoder) checkMemory() error {
	if d.cfg.MemoryLimit > 0 {
		rss, err := sysmem.ResidentKiB()
		if err == nil && rss >= d.cfg.MemoryLimit {
			return fmt.Errorf("%w: resident %d KiB, limit %d KiB",
				errMemoryLimit, rss, d.cfg.MemoryLimit)
		}
		return nil
	}

	free, err := sysmem.FreeKiB()
	if err == nil && free < d.cfg.FreeMemoryFloor {
		return fmt.Errorf("%w: %d KiB free, floor %d KiB",
			errMemoryLimit, free, d.cfg.FreeMemoryFloor)
	}
	return nil
}

// Stop halts both device queues without releasing any mapping. Safe to call
// repeatedly and from any state.
func (d *Decoder) Stop() {
	if d.state != stateStreaming {
		return
	}
	_ = d.dev.StreamOff(device.V4L2_BUF_TYPE_VIDEO_OUTPUT_MPLANE)
	_ = d.dev.StreamOff(device.V4L2_BUF_TYPE_VIDEO_CAPTURE_MPLANE)
	d.state = stateStopped
}

// Unload stops the queues, unmaps both pools and closes the device.
// Idempotent and safe from any state, including a failed Initialize.
func (d *Decoder) Unload() {
	d.Stop()
	d.releasePools()

	if d.dev != nil {
		_ = d.dev.Close()
		d.dev = nil
	}
	d.state = stateUninitialized
}

func (d *Decoder) releasePools() {
	if d.input != nil {
		d.input.Release()
	}
	if d.output != nil {
		d.output.Release()
	}
	d.input, d.output = nil, nil
}
