package autorecord

import "errors"

var (
	// ErrAuthFailed is returned by Backend.Connect when the backend rejects
	// the supplied credential. The attempt is terminal; a new explicit
	// connect is required.
	ErrAuthFailed = errors.New("backend authentication failed")

	// ErrBadAddress is returned by Backend.Connect for a malformed address.
	// The connection status is left unchanged.
	ErrBadAddress = errors.New("invalid backend address")

	// ErrNotConnected is returned by backend operations invoked without an
	// established connection.
	ErrNotConnected = errors.New("backend not connected")
)
