package provision

import "errors"

var (
	// ErrValidationFailed indicates the provisioning request was malformed
	// and no service was created.
	ErrValidationFailed = errors.New("service request validation failed")

	// ErrRuleViolation indicates a candidate path was found but the rule
	// engine rejected it.
	ErrRuleViolation = errors.New("service violates provisioning rules")

	// ErrInvalidState indicates the service is not in a state that allows
	// the requested transition.
	ErrInvalidState = errors.New("invalid service state for operation")
)
