package profile

import (
	"errors"
	"fmt"
)

// ProfileError represents a profile construction error with structured context.
// It supports errors.Is() and errors.As().
type ProfileError struct {
	Name string // Profile name
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *ProfileError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("profile %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("profile: %v", e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ProfileError) Unwrap() error { return e.Err }

// NewProfileError creates a new ProfileError with the given name and error.
func NewProfileError(name string, err error) *ProfileError {
	return &ProfileError{Name: name, Err: err}
}

// ValidationError represents a specific validation failure within a profile.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // The invalid value
	Message string // Description of the validation failure
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("validation failed for %s=%q: %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Is makes every ValidationError match ErrInvalidProfile.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidProfile
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// Sentinel errors for profile operations.
var (
	// ErrProfileNotFound indicates the requested profile preset does not exist.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrInvalidProfile indicates the profile values are invalid.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrExtKeyUsageInvalid indicates an unknown extended key usage.
	ErrExtKeyUsageInvalid = errors.New("invalid extended key usage")
)
