package config

import (
	"errors"
	"fmt"
)

// Sentinel errors for configuration loading and lookups. Callers match
// these with errors.Is; the structured error types below add context.
var (
	// ErrConfigNotFound indicates a configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidYAML indicates a configuration file contains invalid YAML.
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrAgentNotFound indicates the requested agent is not registered.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrLLMProviderNotFound indicates the requested LLM provider is not registered.
	ErrLLMProviderNotFound = errors.New("LLM provider not found")

	// ErrMissingRequiredField indicates a required configuration field is empty.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrInvalidValue indicates a configuration field holds an unusable value.
	ErrInvalidValue = errors.New("invalid value")
)

// ValidationError reports which component failed validation and why.
type ValidationError struct {
	Component string // "agent", "llm_provider", "system", "queue", "history", "vsphere", "forklift"
	ID        string // component identifier, empty for singleton sections
	Field     string // offending field, empty when the whole component is invalid
	Err       error
}

func (e *ValidationError) Error() string {
	switch {
	case e.ID != "" && e.Field != "":
		return fmt.Sprintf("%s %q: field %q: %v", e.Component, e.ID, e.Field, e.Err)
	case e.ID != "":
		return fmt.Sprintf("%s %q: %v", e.Component, e.ID, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s: field %q: %v", e.Component, e.Field, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Component, e.Err)
	}
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationError for the given component.
func NewValidationError(component, id, field string, err error) *ValidationError {
	return &ValidationError{Component: component, ID: id, Field: field, Err: err}
}

// LoadError reports a failure to read or parse a configuration file.
type LoadError struct {
	File string
	Err  error
}

// NewLoadError wraps err with the configuration file it came from.
func NewLoadError(file string, err error) *LoadError {
	return &LoadError{File: file, Err: err}
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.File, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
