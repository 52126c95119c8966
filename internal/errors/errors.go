package errors

import (
	"fmt"
	"time"
)

// Error types for the stylefire resolution engine
type ErrorType string

const (
	// Resolution errors
	ErrorTypeStaleReference ErrorType = "stale_reference"

	// Source write-back errors
	ErrorTypeApply ErrorType = "apply"

	// Configuration errors
	ErrorTypeConfig  ErrorType = "config"
	ErrorTypeFixture ErrorType = "fixture"

	// Internal errors
	ErrorTypeInternal ErrorType = "internal"
)

// StaleReferenceError describes a source element that became invalid between
// search and path construction. It is only ever logged, never returned to the
// caller of the resolution pipeline.
type StaleReferenceError struct {
	Type      ErrorType
	Kind      string // "file", "directory", "element"
	Path      string
	Operation string
	Timestamp time.Time
}

// NewStaleReferenceError creates a new stale reference error
func NewStaleReferenceError(op, kind, path string) *StaleReferenceError {
	return &StaleReferenceError{
		Type:      ErrorTypeStaleReference,
		Kind:      kind,
		Path:      path,
		Operation: op,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface
func (e *StaleReferenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: invalid %s (nil)", e.Operation, e.Kind)
	}
	return fmt.Sprintf("%s: invalid %s %s", e.Operation, e.Kind, e.Path)
}

// ApplyError represents a failure to write an accepted change back to source
type ApplyError struct {
	Type       ErrorType
	Property   string
	FilePath   string
	Underlying error
	Timestamp  time.Time
}

// NewApplyError creates a new apply error
func NewApplyError(property, path string, err error) *ApplyError {
	return &ApplyError{
		Type:       ErrorTypeApply,
		Property:   property,
		FilePath:   path,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ApplyError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("apply %s failed for %s: %v", e.Property, e.FilePath, e.Underlying)
	}
	return fmt.Sprintf("apply %s failed: %v", e.Property, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ApplyError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// FixtureError represents a failure to load a project snapshot
type FixtureError struct {
	Type       ErrorType
	Path       string
	Underlying error
	Timestamp  time.Time
}

// NewFixtureError creates a new fixture error
func NewFixtureError(path string, err error) *FixtureError {
	return &FixtureError{
		Type:       ErrorTypeFixture,
		Path:       path,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *FixtureError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("fixture: %v", e.Underlying)
	}
	return fmt.Sprintf("fixture %s: %v", e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FixtureError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrOrNil returns nil when no errors were collected
func (e *MultiError) ErrOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
