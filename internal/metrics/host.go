package metrics

import (
	"os"

	"golang.org/x/sys/unix"
)

// HostInfo identifies the monitored machine for the dashboard header.
type HostInfo struct {
	Hostname string
	Kernel   string
	Arch     string
}

// CollectHostInfo reads the host identity once at startup. Fields that
// cannot be determined stay empty; identity is cosmetic, never fatal.
func CollectHostInfo() HostInfo {
	var info HostInfo
	if name, err := os.Hostname(); err == nil {
		info.Hostname = name
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		info.Kernel = unix.ByteSliceToString(uts.Release[:])
		info.Arch = unix.ByteSliceToString(uts.Machine[:])
	}
	return info
}
