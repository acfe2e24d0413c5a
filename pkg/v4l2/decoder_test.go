//go:build linux && (386 || arm || amd64 || arm64)

package v4l2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	d := NewDecoder(Config{Width: 1920, Height: 1080})

	require.Equal(t, DefaultDevice, d.cfg.Device)
	require.Equal(t, uint32(defaultBuffers), d.cfg.InputBuffers)
	require.Equal(t, uint32(defaultBuffers), d.cfg.OutputBuffers)
	require.Equal(t, 100*time.Millisecond, d.cfg.WaitTimeout)
	require.Equal(t, uint64(defaultFloor), d.cfg.FreeMemoryFloor)
	require.Equal(t, uint64(0), d.cfg.MemoryLimit)
}

func TestDecodeBeforeInitialize(t *testing.T) {
	d := NewDecoder(Config{Width: 1920, Height: 1080})

	for _, data := range [][]byte{nil, {}, {0, 0, 0, 1, 0x67}} {
		frame := d.Decode(data, true)
		require.Equal(t, StatusNotInitialized, frame.Status)
		require.Empty(t, frame.Output)
	}
}

func TestInitializeMissingDevice(t *testing.T) {
	d := NewDecoder(Config{Width: 1920, Height: 1080, Device: "/dev/video-rpidec-none"})

	require.Equal(t, InitDeviceNotFound, d.Initialize())
	require.Error(t, d.Err())
	require.Nil(t, d.input)
	require.Nil(t, d.output)

	frame := d.Decode([]byte{0}, false)
	require.Equal(t, StatusNotInitialized, frame.Status)

	// Unload is safe after a failed Initialize, and repeatedly.
	d.Unload()
	d.Unload()
}

func TestMemoryGuard(t *testing.T) {
	d := NewDecoder(Config{Width: 1920, Height: 1080, MemoryLimit: 1})
	require.ErrorIs(t, d.checkMemory(), errMemoryLimit)

	// A raised cap recovers the session.
	d.SetMemoryLimit(1 << 40)
	require.NoError(t, d.checkMemory())

	// Without a cap the free RAM+swap floor applies.
	d.SetMemoryLimit(0)
	d.cfg.FreeMemoryFloor = 1 << 40
	require.ErrorIs(t, d.checkMemory(), errMemoryLimit)

	d.cfg.FreeMemoryFloor = 1
	require.NoError(t, d.checkMemory())
}

func TestStatusStrings(t *testing.T) {
	require.Equal(t, "OK", InitOK.String())
	require.Equal(t, "DEVICE_NOT_FOUND", InitDeviceNotFound.String())
	require.Equal(t, "INCOMPATIBLE_HARDWARE", InitIncompatibleHardware.String())
	require.Equal(t, "INSUFFICIENT_MEMORY", InitInsufficientMemory.String())
	require.Equal(t, "FAILED", InitFailed.String())

	require.Equal(t, "OK", StatusOK.String())
	require.Equal(t, "NOT_INITIALIZED", StatusNotInitialized.String())
	require.Equal(t, "INSUFFICIENT_MEMORY", StatusInsufficientMemory.String())
	require.Equal(t, "FAILED", StatusFailed.String())
}

// Needs real decode hardware, for example bcm2835-codec on Raspberry Pi.
func TestInitializeHardware(t *testing.T) {
	d := NewDecoder(Config{Width: 1920, Height: 1080})

	switch status := d.Initialize(); status {
	case InitDeviceNotFound:
		t.Skipf("%s not present", DefaultDevice)
	case InitOK:
	default:
		t.Fatalf("initialize: %s (%v)", status, d.Err())
	}
	defer d.Unload()

	// Idempotent once OK.
	require.Equal(t, InitOK, d.Initialize())

	w, h := d.Size()
	require.GreaterOrEqual(t, w, uint32(1920))
	require.GreaterOrEqual(t, h, uint32(1080))

	// The device may grant fewer buffers than requested, never zero.
	require.GreaterOrEqual(t, d.input.Count(), 1)
	require.GreaterOrEqual(t, d.output.Count(), 1)

	d.Stop()
	d.Stop()
}
