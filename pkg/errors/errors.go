// Package errors provides custom error types for the taxmap system.
// These errors enable programmatic error checking and carry enough
// source identity (file, row, raw input) for run-level diagnostics.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the taxmap system
var (
	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidKeyInput indicates an empty city or state after trimming,
	// so no jurisdiction key can be built
	ErrInvalidKeyInput = errors.New("invalid key input")

	// ErrUnknownState indicates a state name missing from the state-code table
	ErrUnknownState = errors.New("unknown state")

	// ErrDuplicateKey indicates two records within one source collapsed
	// to the same jurisdiction key
	ErrDuplicateKey = errors.New("duplicate jurisdiction key")

	// ErrEmptyInput indicates a whole input collection was missing or empty,
	// which is fatal to the run
	ErrEmptyInput = errors.New("empty input collection")

	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")
)

// ValidationError represents a validation failure on a single record field
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// KeyInputError represents a city/state pair that is empty after trimming
type KeyInputError struct {
	City  string
	State string
}

// Error implements the error interface
func (e *KeyInputError) Error() string {
	return fmt.Sprintf("cannot build jurisdiction key from city %q, state %q", e.City, e.State)
}

// Is implements errors.Is support
func (e *KeyInputError) Is(target error) bool {
	return target == ErrInvalidKeyInput || target == ErrInvalidInput
}

// NewKeyInputError creates a new KeyInputError
func NewKeyInputError(city, state string) *KeyInputError {
	return &KeyInputError{City: city, State: state}
}

// UnknownStateError represents a state name with no entry in the
// state-code table. It indicates either a data error or a missing
// table entry, so it is surfaced in the run's warning list.
type UnknownStateError struct {
	Name string
}

// Error implements the error interface
func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("state %q not present in state-code table", e.Name)
}

// Is implements errors.Is support
func (e *UnknownStateError) Is(target error) bool {
	return target == ErrUnknownState
}

// NewUnknownStateError creates a new UnknownStateError
func NewUnknownStateError(name string) *UnknownStateError {
	return &UnknownStateError{Name: name}
}

// DuplicateKeyError names both colliding raw city/state inputs when two
// records within the same source normalize to the same jurisdiction key.
type DuplicateKeyError struct {
	Source string
	Key    string
	First  string
	Second string
}

// Error implements the error interface
func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %s in %s: %q collides with %q (first occurrence kept)",
		e.Key, e.Source, e.Second, e.First)
}

// Is implements errors.Is support
func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// NewDuplicateKeyError creates a new DuplicateKeyError
func NewDuplicateKeyError(source, key, first, second string) *DuplicateKeyError {
	return &DuplicateKeyError{Source: source, Key: key, First: first, Second: second}
}

// ParseError represents an error when parsing data formats or values
type ParseError struct {
	Format  string // "xlsx", "yaml", "rate", "date", "location", etc.
	File    string
	Row     int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Row > 0 {
		return fmt.Sprintf("parse error in %s at %s row %d: %s", e.Format, e.File, e.Row, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, row int, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Row:     row,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ExtractError represents a failure to extract records from a source file.
// It carries the source name so diagnostics can name which feed broke.
type ExtractError struct {
	Source  string // "APEX", "COMMAND", "EDITS"
	Path    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ExtractError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("extract error for %s (%s): %s", e.Source, e.Path, e.Message)
	}
	return fmt.Sprintf("extract error for %s: %s", e.Source, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ExtractError) Unwrap() error {
	return e.Err
}

// NewExtractError creates a new ExtractError
func NewExtractError(source, path, message string, err error) *ExtractError {
	return &ExtractError{Source: source, Path: path, Message: message, Err: err}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// Helper functions for error checking

// IsInvalidKeyInput checks if an error is a key input error
func IsInvalidKeyInput(err error) bool {
	return errors.Is(err, ErrInvalidKeyInput)
}

// IsUnknownState checks if an error is an unknown state error
func IsUnknownState(err error) bool {
	return errors.Is(err, ErrUnknownState)
}

// IsDuplicateKey checks if an error is a duplicate key error
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, row int, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, row, err.Error(), err)
}

// WrapExtract wraps an error as an ExtractError
func WrapExtract(source, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewExtractError(source, path, err.Error(), err)
}
