package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseConfString(t *testing.T) {
	require.Nil(t, parseConfString("no-equals"))
	require.Nil(t, parseConfString("single=1"))

	data := parseConfString("decode.input=video.h264")
	require.Equal(t, "{decode: {input: video.h264}}", string(data))

	data = parseConfString("log.level=debug")
	require.Equal(t, "{log: {level: debug}}", string(data))
}

func TestLoadConfig(t *testing.T) {
	configs = [][]byte{
		[]byte("decode:\n  input: a.h264\n  width: 1280\n"),
		[]byte("{decode: {input: b.h264}}"),
	}
	defer func() { configs = nil }()

	var cfg struct {
		Mod struct {
			Input string `yaml:"input"`
			Width uint32 `yaml:"width"`
		} `yaml:"decode"`
	}

	LoadConfig(&cfg)

	// later sources win, untouched keys survive
	require.Equal(t, "b.h264", cfg.Mod.Input)
	require.Equal(t, uint32(1280), cfg.Mod.Width)
}
