package security

import "errors"

var (
	// ErrIPBlocked rejects a request from an actively blocked address.
	// The wrapped message stays generic for anonymous callers; the block
	// reason is only attached for privileged roles.
	ErrIPBlocked = errors.New("access denied")

	// ErrRateLimited rejects authentication once the failed-attempt
	// threshold is reached. Temporary: the block expires.
	ErrRateLimited = errors.New("too many failed login attempts")

	// ErrMaintenance rejects non-privileged traffic while the system is in
	// maintenance mode.
	ErrMaintenance = errors.New("system under maintenance")
)
