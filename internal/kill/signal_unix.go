package kill

import (
	"golang.org/x/sys/unix"
)

var (
	errPermission error = unix.EPERM
	errNoProcess  error = unix.ESRCH
)

// unixSignaler delivers real signals through the kill syscall.
type unixSignaler struct{}

func defaultSignaler() Signaler {
	return unixSignaler{}
}

func (unixSignaler) Signal(pid int, force bool) error {
	sig := unix.SIGTERM
	if force {
		sig = unix.SIGKILL
	}
	return unix.Kill(pid, sig)
}
