package pathfind

import "errors"

var (
	// ErrPathNotFound is returned when no feasible route exists under the
	// given constraints. Terminal; never retried internally.
	ErrPathNotFound = errors.New("no feasible path found")

	// ErrSameDevice is returned for self-loop requests (source == target).
	ErrSameDevice = errors.New("source and target are the same device")
)
