//go:build linux && (386 || arm || amd64 || arm64)

// Package decode is the file-to-file harness around the pkg/v4l2 session:
// it reads the compressed stream in chunks and persists the decoded bytes,
// raw or wrapped as YUV4MPEG2.
package decode

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ukicomputers/rpidec/internal/app"
	"github.com/ukicomputers/rpidec/pkg/h264/annexb"
	"github.com/ukicomputers/rpidec/pkg/v4l2"
	"github.com/ukicomputers/rpidec/pkg/y4m"
)

var log zerolog.Logger

type config struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`

	Device    string `yaml:"device"`
	Buffers   uint32 `yaml:"buffers"`
	ChunkSize int    `yaml:"chunk_size"`
	TimeoutMS uint32 `yaml:"timeout_ms"`

	MemoryLimit uint64 `yaml:"memory_limit"` // KiB of resident set
	MemoryFloor uint64 `yaml:"memory_floor"` // KiB of free RAM+swap

	Y4M bool   `yaml:"y4m"`
	FPS uint32 `yaml:"fps"`
}

func loadConfig() config {
	var cfg struct {
		Mod config `yaml:"decode"`
	}

	cfg.Mod.ChunkSize = 220 << 10
	cfg.Mod.FPS = 25

	app.LoadConfig(&cfg)
	return cfg.Mod
}

func Run() error {
	log = app.GetLogger("decode")
	cfg := loadConfig()

	if cfg.Input == "" || cfg.Output == "" {
		return errors.New("decode.input and decode.output are required")
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return errors.New("decode.width and decode.height are required")
	}

	dec := v4l2.NewDecoder(v4l2.Config{
		Width:           cfg.Width,
		Height:          cfg.Height,
		Device:          cfg.Device,
		InputBuffers:    cfg.Buffers,
		OutputBuffers:   cfg.Buffers,
		WaitTimeout:     time.Duration(cfg.TimeoutMS) * time.Millisecond,
		MemoryLimit:     cfg.MemoryLimit,
		FreeMemoryFloor: cfg.MemoryFloor,
	})

	if status := dec.Initialize(); status != v4l2.InitOK {
		log.Error().Err(dec.Err()).Msgf("[decode] initialize: %s", status)
		return fmt.Errorf("initialize decoder: %s", status)
	}
	defer dec.Unload()

	width, height := dec.Size()
	log.Info().
		Uint32("width", width).Uint32("height", height).
		Msg("[decode] negotiated output")

	src, err := os.Open(cfg.Input)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(cfg.Output)
	if err != nil {
		return err
	}
	defer dst.Close()

	sink := newSink(dst, cfg.Y4M, width, height, cfg.FPS)

	if err = pump(dec, bufio.NewReaderSize(src, cfg.ChunkSize), sink, cfg.ChunkSize); err != nil {
		return err
	}
	return sink.Flush()
}

// pump feeds the stream chunk by chunk, raising the final-chunk flag on the
// call that carries the last byte.
func pump(dec *v4l2.Decoder, src *bufio.Reader, sink *sink, chunkSize int) error {
	chunk := make([]byte, chunkSize)

	var chunks, totalIn, totalOut int
	start := time.Now()

	for {
		n, err := io.ReadFull(src, chunk)
		if n == 0 {
			if err == io.EOF && chunks > 0 {
				break
			}
			return fmt.Errorf("read input: %w", err)
		}

		last := err != nil // short read, stream exhausted
		if !last {
			if _, peek := src.Peek(1); peek == io.EOF {
				last = true
			}
		}

		if chunks == 0 && !annexb.HasStartCode(chunk[:n]) {
			log.Warn().Msg("[decode] input does not start with an Annex-B start code")
		}

		begin := time.Now()
		frame := dec.Decode(chunk[:n], last)

		if len(frame.Output) > 0 {
			if err = sink.Write(frame.Output); err != nil {
				return err
			}
		}

		chunks++
		totalIn += n
		totalOut += len(frame.Output)

		log.Debug().
			Int("in", n).Int("out", len(frame.Output)).
			Int("nalu", annexb.CountStartCodes(chunk[:n])).
			Dur("took", time.Since(begin)).
			Msg("[decode] chunk")

		switch frame.Status {
		case v4l2.StatusOK:
		case v4l2.StatusInsufficientMemory:
			log.Error().Err(dec.Err()).Msg("[decode] memory pressure, raise decode.memory_limit")
			return fmt.Errorf("decode: %s", frame.Status)
		default:
			log.Error().Err(dec.Err()).Msgf("[decode] decode: %s", frame.Status)
			return fmt.Errorf("decode: %s", frame.Status)
		}

		if last {
			break
		}
	}

	frameSize := int(sink.width) * int(sink.height) * 3 / 2
	log.Info().
		Int("chunks", chunks).Int("in", totalIn).Int("out", totalOut).
		Int("frames", totalOut/frameSize).
		Dur("took", time.Since(start)).
		Msg("[decode] done")

	return nil
}

// sink persists decoded bytes, either verbatim or split into frames behind a
// YUV4MPEG2 header.
type sink struct {
	wr      io.Writer
	y4m     *y4m.Writer
	pending []byte
	width   uint32
	height  uint32
}

func newSink(wr io.Writer, wrapY4M bool, width, height, fps uint32) *sink {
	s := &sink{wr: wr, width: width, height: height}
	if wrapY4M {
		s.y4m = y4m.NewWriter(wr, width, height, fps)
	}
	return s
}

func (s *sink) Write(b []byte) error {
	if s.y4m == nil {
		_, err := s.wr.Write(b)
		return err
	}

	s.pending = append(s.pending, b...)
	size := s.y4m.FrameSize()
	for len(s.pending) >= size {
		if err := s.y4m.WriteFrame(s.pending[:size]); err != nil {
			return err
		}
		s.pending = s.pending[size:]
	}
	return nil
}

func (s *sink) Flush() error {
	if len(s.pending) > 0 {
		log.Warn().Int("bytes", len(s.pending)).Msg("[decode] dropping partial trailing frame")
		s.pending = nil
	}
	return nil
}
