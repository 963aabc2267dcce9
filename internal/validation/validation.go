// Package validation provides input validation for the netfab API.
// It includes validators for resource identifiers, names, and numeric
// parameters to prevent injection attacks and ensure data integrity.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Error types for validation failures
var (
	ErrEmptyValue        = fmt.Errorf("value cannot be empty")
	ErrInvalidFormat     = fmt.Errorf("invalid format")
	ErrValueTooLong      = fmt.Errorf("value exceeds maximum length")
	ErrInvalidCharacters = fmt.Errorf("value contains invalid characters")
	ErrOutOfRange        = fmt.Errorf("value is out of valid range")
	ErrDangerousInput    = fmt.Errorf("potentially dangerous input detected")
)

// ValidationError provides detailed information about validation failures
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new validation error
func NewValidationError(field, value, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Err:     err,
	}
}

// Constants for validation limits
const (
	MaxResourceIDLength = 128
	MaxNameLength       = 256
	MaxLocationLength   = 256
	MaxBandwidth        = 1_000_000 // Gbps, sanity bound
	MaxLatency          = 60_000    // ms, sanity bound
)

// Precompiled regular expressions for common patterns
var (
	// resourceIDPattern allows alphanumeric characters, hyphens, underscores, and dots
	resourceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,126}[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)

	// Patterns to detect potentially dangerous input
	sqlInjectionPattern = regexp.MustCompile(`(?i)(--|;|'|"|\/\*|\*\/|xp_|exec|execute|insert|select|delete|update|drop|alter|create|truncate|union|into|load_file|outfile)`)

	// Path traversal pattern
	pathTraversalPattern = regexp.MustCompile(`(\.\.\/|\.\.\\|%2e%2e%2f|%2e%2e\/|\.\.%2f|%2e%2e%5c)`)

	// Script injection pattern
	scriptInjectionPattern = regexp.MustCompile(`(?i)(<script|javascript:|on\w+\s*=|<iframe|<object|<embed)`)
)

// ValidateResourceID validates a device, link, service, or rule identifier.
func ValidateResourceID(field, id string) error {
	if id == "" {
		return NewValidationError(field, id, fmt.Sprintf("%s is required", field), ErrEmptyValue)
	}

	if len(id) > MaxResourceIDLength {
		return NewValidationError(field, id, fmt.Sprintf("%s exceeds maximum length of %d", field, MaxResourceIDLength), ErrValueTooLong)
	}

	if !resourceIDPattern.MatchString(id) {
		return NewValidationError(field, id, fmt.Sprintf("%s must contain only alphanumeric characters, hyphens, underscores, and dots", field), ErrInvalidFormat)
	}

	if err := checkDangerousInput(id); err != nil {
		return NewValidationError(field, id, fmt.Sprintf("%s contains potentially dangerous characters", field), err)
	}

	return nil
}

// ValidateName validates a human-readable name.
func ValidateName(field, name string) error {
	if name == "" {
		return NewValidationError(field, name, fmt.Sprintf("%s is required", field), ErrEmptyValue)
	}

	if len(name) > MaxNameLength {
		return NewValidationError(field, name, fmt.Sprintf("%s exceeds maximum length of %d", field, MaxNameLength), ErrValueTooLong)
	}

	if err := checkDangerousInput(name); err != nil {
		return NewValidationError(field, name, fmt.Sprintf("%s contains potentially dangerous characters", field), err)
	}

	return nil
}

// ValidateLocation validates an optional location string.
func ValidateLocation(location string) error {
	if location == "" {
		return nil
	}

	if len(location) > MaxLocationLength {
		return NewValidationError("location", location, fmt.Sprintf("location exceeds maximum length of %d", MaxLocationLength), ErrValueTooLong)
	}

	if err := checkDangerousInput(location); err != nil {
		return NewValidationError("location", location, "location contains potentially dangerous characters", err)
	}

	return nil
}

// ValidateBandwidth validates a bandwidth value in Gbps. Bandwidth must be
// strictly positive.
func ValidateBandwidth(field string, bandwidth float64) error {
	if bandwidth <= 0 {
		return NewValidationError(field, fmt.Sprintf("%v", bandwidth),
			fmt.Sprintf("%s must be greater than zero", field), ErrOutOfRange)
	}
	if bandwidth > MaxBandwidth {
		return NewValidationError(field, fmt.Sprintf("%v", bandwidth),
			fmt.Sprintf("%s exceeds maximum of %d", field, MaxBandwidth), ErrOutOfRange)
	}
	return nil
}

// ValidateLatency validates a latency value in milliseconds. Zero is
// allowed; negative values are not.
func ValidateLatency(field string, latency float64) error {
	if latency < 0 {
		return NewValidationError(field, fmt.Sprintf("%v", latency),
			fmt.Sprintf("%s cannot be negative", field), ErrOutOfRange)
	}
	if latency > MaxLatency {
		return NewValidationError(field, fmt.Sprintf("%v", latency),
			fmt.Sprintf("%s exceeds maximum of %d", field, MaxLatency), ErrOutOfRange)
	}
	return nil
}

// SanitizeString removes or escapes potentially dangerous characters from a string
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	// Remove control characters except newlines and tabs
	var result strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			continue
		}
		result.WriteRune(r)
	}

	return strings.TrimSpace(result.String())
}

// checkDangerousInput checks for potentially dangerous input patterns
func checkDangerousInput(s string) error {
	// Check for SQL injection patterns
	if sqlInjectionPattern.MatchString(s) {
		return ErrDangerousInput
	}

	// Check for path traversal
	if pathTraversalPattern.MatchString(s) {
		return ErrDangerousInput
	}

	// Check for script injection
	if scriptInjectionPattern.MatchString(s) {
		return ErrDangerousInput
	}

	// Check for null bytes
	if strings.Contains(s, "\x00") {
		return ErrDangerousInput
	}

	return nil
}

// ValidateRequestSize validates that a request body is within acceptable limits
func ValidateRequestSize(size int64, maxSize int64) error {
	if size > maxSize {
		return NewValidationError("request_body", fmt.Sprintf("%d bytes", size),
			fmt.Sprintf("request body exceeds maximum size of %d bytes", maxSize), ErrOutOfRange)
	}
	return nil
}
