// Package y4m writes a YUV4MPEG2 stream from raw planar 4:2:0 frames.
//
// https://manned.org/yuv4mpeg.5
package y4m

import (
	"fmt"
	"io"
)

const frameHdr = "FRAME\n"

type Writer struct {
	wr     io.Writer
	width  uint32
	height uint32
	fps    uint32
	header bool
}

func NewWriter(wr io.Writer, width, height, fps uint32) *Writer {
	return &Writer{wr: wr, width: width, height: height, fps: fps}
}

// FrameSize is the byte length of one 4:2:0 frame at the stream geometry.
func (w *Writer) FrameSize() int {
	return int(w.width) * int(w.height) * 3 / 2
}

// WriteFrame writes one frame of exactly FrameSize bytes. The stream header
// goes out in front of the first frame.
func (w *Writer) WriteFrame(frame []byte) error {
	if len(frame) != w.FrameSize() {
		return fmt.Errorf("y4m: frame size %d, expected %d", len(frame), w.FrameSize())
	}

	if !w.header {
		// YUV4MPEG2 W1920 H1088 F25:1 Ip A1:1 C420mpeg2
		hdr := fmt.Sprintf(
			"YUV4MPEG2 W%d H%d F%d:1 Ip A1:1 C420mpeg2\n", w.width, w.height, w.fps,
		)
		if _, err := w.wr.Write([]byte(hdr)); err != nil {
			return err
		}
		w.header = true
	}

	if _, err := w.wr.Write([]byte(frameHdr)); err != nil {
		return err
	}
	_, err := w.wr.Write(frame)
	return err
}
