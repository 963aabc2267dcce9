package device

import "errors"

var (
	// ErrUnknownType is returned when a device type tag is not recognised
	ErrUnknownType = errors.New("unknown device type")

	// ErrInvalidConfig is returned when a device configuration is invalid
	ErrInvalidConfig = errors.New("invalid device configuration")

	// ErrInvalidStatus is returned when a status value is not recognised
	ErrInvalidStatus = errors.New("invalid device status")

	// ErrReleaseUnderflow is returned when a release exceeds the allocated
	// amount. This is an internal corruption signal, not a business outcome.
	ErrReleaseUnderflow = errors.New("release exceeds allocated capacity")
)
