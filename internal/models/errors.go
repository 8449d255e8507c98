package models

import "fmt"

// ConfigurationError reports an invalid parameter. Fatal at setup time and
// never silently corrected.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// NewConfigurationError creates a ConfigurationError for field with a reason.
func NewConfigurationError(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// DimensionMismatchError reports an embedding whose length differs from the
// index's fixed dimensionality. Never silently truncated or padded.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: got %d, expected %d", e.Got, e.Want)
}

// CapabilityError reports an external capability (embedder, reranker,
// generator, scorer) that could not be reached or returned a failure.
type CapabilityError struct {
	Provider string
	Err      error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s unavailable: %v", e.Provider, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// NewCapabilityError wraps err as a failure of the named provider.
func NewCapabilityError(provider string, err error) *CapabilityError {
	return &CapabilityError{Provider: provider, Err: err}
}
