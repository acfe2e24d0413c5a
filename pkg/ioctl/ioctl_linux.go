package ioctl

import (
	"errors"
	"syscall"
	"unsafe"
)

const (
	write = 1
	read  = 2
)

func Ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, err := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if err != 0 {
		return err
	}
	return nil
}

// Retry repeats the request while it is interrupted by a signal.
// Interruption never surfaces to the caller.
func Retry(fd int, req uintptr, arg unsafe.Pointer) error {
	for {
		err := Ioctl(fd, req, arg)
		if !errors.Is(err, syscall.EINTR) {
			return err
		}
	}
}
