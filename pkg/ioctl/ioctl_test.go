package ioctl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequests(t *testing.T) {
	// #define VIDIOC_STREAMON _IOW('V', 18, int)
	require.Equal(t, uintptr(0x40045612), IOW('V', 18, 4))
	// #define VIDIOC_STREAMOFF _IOW('V', 19, int)
	require.Equal(t, uintptr(0x40045613), IOW('V', 19, 4))
	// #define VIDIOC_QUERYCAP _IOR('V', 0, struct v4l2_capability)
	require.Equal(t, uintptr(0x80685600), IOR('V', 0, 104))
	// #define VIDIOC_REQBUFS _IOWR('V', 8, struct v4l2_requestbuffers)
	require.Equal(t, uintptr(0xc0145608), IORW('V', 8, 20))
}

func TestStr(t *testing.T) {
	require.Equal(t, "bcm2835-codec", Str([]byte("bcm2835-codec\x00\x00\x00")))
	require.Equal(t, "no-nul", Str([]byte("no-nul")))
}
