package bluetooth

import "context"

// Permission is a platform permission the session asks for before using
// the radio.
type Permission string

const (
	PermissionScan      Permission = "bluetooth-scan"
	PermissionAdvertise Permission = "bluetooth-advertise"
	PermissionConnect   Permission = "bluetooth-connect"
	PermissionLocation  Permission = "location"
)

// AllPermissions is the set requested during setup.
var AllPermissions = []Permission{
	PermissionScan,
	PermissionAdvertise,
	PermissionConnect,
	PermissionLocation,
}

// Grant is the outcome of a permission request.
type Grant string

const (
	Granted Grant = "granted"
	Denied  Grant = "denied"
)

// PermissionAuthority answers permission requests for the host platform.
type PermissionAuthority interface {
	Request(ctx context.Context, perms []Permission) (map[Permission]Grant, error)
}

// AllowAll grants every permission. Used in demo mode.
type AllowAll struct{}

func (AllowAll) Request(ctx context.Context, perms []Permission) (map[Permission]Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[Permission]Grant, len(perms))
	for _, p := range perms {
		out[p] = Granted
	}
	return out, nil
}
