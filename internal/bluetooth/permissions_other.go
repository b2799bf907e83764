//go:build !linux

package bluetooth

import "context"

// HostPermissions defers to the operating system, which prompts the user
// the first time the radio is used.
type HostPermissions struct{}

// NewHostPermissions returns the authority for this platform.
func NewHostPermissions() *HostPermissions { return &HostPermissions{} }

func (*HostPermissions) Request(ctx context.Context, perms []Permission) (map[Permission]Grant, error) {
	return AllowAll{}.Request(ctx, perms)
}
