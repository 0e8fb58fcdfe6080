// Package errdefs defines the error taxonomy shared by the pipeline
// components.
//
// Errors are typed so callers can branch with errors.As (or the Is*
// predicates below), and every error carries the identifiers needed to
// diagnose a failure from the message alone: the offending field for
// validation errors, the collection and both dimensions for mismatches,
// the provider name for generation failures.
package errdefs

import (
	"errors"
	"fmt"
)

// ValidationError reports a request rejected before any work began:
// an unknown strategy, model or backend name, or an out-of-range
// numeric parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validationf builds a ValidationError for the named field.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// DimensionMismatchError reports a vector whose dimension disagrees with
// the dimension a collection was established at. Mismatches are always
// rejected, never padded or truncated.
type DimensionMismatchError struct {
	Collection string
	Want       int
	Got        int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch in collection %q: collection has dimension %d, got %d",
		e.Collection, e.Want, e.Got)
}

// DimensionMismatch builds a DimensionMismatchError for the collection.
func DimensionMismatch(collection string, want, got int) error {
	return &DimensionMismatchError{Collection: collection, Want: want, Got: got}
}

// IsDimensionMismatch reports whether err is or wraps a DimensionMismatchError.
func IsDimensionMismatch(err error) bool {
	var target *DimensionMismatchError
	return errors.As(err, &target)
}

// NotFoundError reports an unknown document or collection.
type NotFoundError struct {
	Kind string // "document", "collection"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// NotFound builds a NotFoundError for the named resource.
func NotFound(kind, name string) error {
	return &NotFoundError{Kind: kind, Name: name}
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// ConfigurationError reports that a requested model, provider, or backend
// is not available in the current deployment.
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Component, e.Reason)
}

// Configurationf builds a ConfigurationError for the named component.
func Configurationf(component, format string, args ...any) error {
	return &ConfigurationError{Component: component, Reason: fmt.Sprintf(format, args...)}
}

// IsConfiguration reports whether err is or wraps a ConfigurationError.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// ProviderError reports an LLM call failure: network, auth, rate limit,
// or timeout. In compare mode it is isolated to its provider's slot; in
// single-query mode it is the request's failure.
type ProviderError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Reason)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Provider builds a ProviderError. err may be nil when the reason alone
// describes the failure.
func Provider(provider, reason string, err error) error {
	return &ProviderError{Provider: provider, Reason: reason, Err: err}
}

// IsProvider reports whether err is or wraps a ProviderError.
func IsProvider(err error) bool {
	var target *ProviderError
	return errors.As(err, &target)
}
