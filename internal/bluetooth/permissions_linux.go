//go:build linux

package bluetooth

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"
)

// HostPermissions checks process privileges. Raw HCI access needs root or
// CAP_NET_ADMIN; location has no Linux equivalent and is always granted.
type HostPermissions struct {
	// capget is swapped in tests.
	capget func() (effective uint64, euid int, err error)
}

// NewHostPermissions returns the authority for this platform.
func NewHostPermissions() *HostPermissions {
	return &HostPermissions{capget: processCaps}
}

func (h *HostPermissions) Request(ctx context.Context, perms []Permission) (map[Permission]Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	effective, euid, err := h.capget()
	if err != nil {
		return nil, fmt.Errorf("read process capabilities: %w", err)
	}
	radio := euid == 0 || effective&(1<<unix.CAP_NET_ADMIN) != 0

	out := make(map[Permission]Grant, len(perms))
	for _, p := range perms {
		switch {
		case p == PermissionLocation, radio:
			out[p] = Granted
		default:
			out[p] = Denied
		}
	}
	return out, nil
}

func processCaps() (uint64, int, error) {
	hdr := unix.CapUserHeader{Version: unix.LINUX_CAPABILITY_VERSION_3}
	var data [2]unix.CapUserData
	if err := unix.Capget(&hdr, &data[0]); err != nil {
		return 0, 0, err
	}
	effective := uint64(data[0].Effective) | uint64(data[1].Effective)<<32
	return effective, unix.Geteuid(), nil
}
