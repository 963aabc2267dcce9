package topology

import "errors"

var (
	// ErrDeviceNotFound is returned when a device id is unknown
	ErrDeviceNotFound = errors.New("device not found")

	// ErrLinkNotFound is returned when a link id is unknown
	ErrLinkNotFound = errors.New("link not found")

	// ErrDeviceExists is returned on duplicate device creation
	ErrDeviceExists = errors.New("device already exists")

	// ErrLinkExists is returned on duplicate link creation
	ErrLinkExists = errors.New("link already exists")

	// ErrInUse is returned when removing a resource still referenced by a
	// link, an active service path, or a GPON split tree
	ErrInUse = errors.New("resource in use")

	// ErrInvalidLink is returned when a link configuration is invalid
	ErrInvalidLink = errors.New("invalid link configuration")

	// ErrInsufficientCapacity is returned when a path reservation loses a
	// capacity race. The caller may recompute the path and retry; no
	// partial allocation is left behind.
	ErrInsufficientCapacity = errors.New("insufficient capacity")

	// ErrCorrupt signals an internal invariant breach (a stored path
	// referencing a missing resource, a release underflow). Operations
	// abort without mutating further state; this is never retryable.
	ErrCorrupt = errors.New("topology state corrupt")
)
