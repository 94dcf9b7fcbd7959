// Package errors provides the error taxonomy shared by the Reformed Chapter
// packages. Typed errors carry context for logs and API responses and unwrap
// to a small set of sentinels so callers can branch with errors.Is.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a book, chapter, resource or job does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates a request or record failed validation
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstream indicates a hosted dependency (database, payment provider) failed
	ErrUpstream = errors.New("upstream failure")
	// ErrUnsupported indicates an unsupported format or operation
	ErrUnsupported = errors.New("unsupported")
)

// NotFoundError represents a missing entity with context
type NotFoundError struct {
	Resource string // Kind of entity (e.g., "book", "chapter", "job")
	ID       string // Identifier that was looked up
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Unwrap returns the underlying error alongside ErrNotFound.
func (e *NotFoundError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Err, ErrNotFound}
	}
	return []error{ErrNotFound}
}

// ValidationError represents a field that failed validation
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Offending value (may be truncated)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Err, ErrInvalidInput}
	}
	return []error{ErrInvalidInput}
}

// ParseError represents a decoding failure for an import or request body
type ParseError struct {
	Format  string // Format being parsed (e.g., "JSON", "YAML", "xz")
	Path    string // File path, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

// Unwrap returns the underlying error. A ParseError without one still
// matches ErrInvalidInput.
func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Err, ErrInvalidInput}
	}
	return []error{ErrInvalidInput}
}

// UpstreamError represents a failed call to a hosted service
type UpstreamError struct {
	Service   string // Service name (e.g., "stripe", "postgres")
	Operation string // Operation attempted (e.g., "create payment intent")
	Err       error  // Underlying error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s failed: %v", e.Service, e.Operation, e.Err)
	}
	return fmt.Sprintf("%s: %s failed", e.Service, e.Operation)
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Err, ErrUpstream}
	}
	return []error{ErrUpstream}
}

// UnsupportedError represents an unsupported feature or format
type UnsupportedError struct {
	Feature string // Feature or format that is unsupported
	Reason  string // Why it's not supported
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupported
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewParse creates a ParseError wrapping err
func NewParse(format, path string, err error) *ParseError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &ParseError{
		Format:  format,
		Path:    path,
		Message: msg,
		Err:     err,
	}
}

// NewUpstream creates an UpstreamError
func NewUpstream(service, operation string, err error) *UpstreamError {
	return &UpstreamError{
		Service:   service,
		Operation: operation,
		Err:       err,
	}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Feature: feature,
		Reason:  reason,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join wraps errors.Join for convenience
func Join(errs ...error) error {
	return errors.Join(errs...)
}
