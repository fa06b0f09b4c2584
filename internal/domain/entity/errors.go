package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error taxonomy. Typed errors below match them via
// errors.Is so callers can branch on the category without a type switch.
var (
	// ErrFetch indicates a network failure, timeout or non-2xx response.
	ErrFetch = errors.New("fetch failed")

	// ErrParse indicates that expected markup was absent or malformed.
	ErrParse = errors.New("parse failed")

	// ErrDispatch indicates that sending a notification failed.
	ErrDispatch = errors.New("dispatch failed")

	// ErrConfig indicates fatal startup misconfiguration.
	ErrConfig = errors.New("invalid configuration")

	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")
)

// FetchError is returned when a remote page could not be retrieved.
// StatusCode is zero for transport-level failures.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// ParseError is returned when a page does not contain the markup the scraper
// depends on. It is an external-contract break, not a transient condition.
type ParseError struct {
	URL     string
	Field   string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s: %s", e.URL, e.Field, e.Message)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// DispatchError wraps a failed announcement for a single item.
type DispatchError struct {
	ItemID ItemID
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch item %s: %v", e.ItemID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

func (e *DispatchError) Is(target error) bool { return target == ErrDispatch }

// ConfigError is fatal and only produced during startup.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// ValidationError represents a validation error with detailed field information.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidationFailed }
