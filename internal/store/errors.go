package store

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeVersionMismatch means the stored tag differs from the compiled one.
	ErrTypeVersionMismatch ErrorType = iota
	// ErrTypeStorageRead indicates the region could not be read.
	ErrTypeStorageRead
	// ErrTypeStorageWrite indicates a write or commit failed.
	ErrTypeStorageWrite
	// ErrTypeLayout indicates the region is too small for the registry.
	ErrTypeLayout
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeVersionMismatch:
		return "Config Version Mismatch"
	case ErrTypeStorageRead:
		return "Storage Read Failure"
	case ErrTypeStorageWrite:
		return "Storage Write Failure"
	case ErrTypeLayout:
		return "Layout Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// StoreError is returned by Load and Save.
type StoreError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *StoreError) Unwrap() error {
	return e.Err
}

func newError(t ErrorType, message string, err error) *StoreError {
	return &StoreError{Type: t, Message: message, Err: err}
}

func isType(err error, t ErrorType) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Type == t
	}
	return false
}

// IsVersionMismatch reports whether err means "no valid configuration".
func IsVersionMismatch(err error) bool {
	return isType(err, ErrTypeVersionMismatch)
}

// IsStorageRead reports whether err is a read failure.
func IsStorageRead(err error) bool {
	return isType(err, ErrTypeStorageRead)
}

// IsStorageWrite reports whether err is a write or commit failure.
func IsStorageWrite(err error) bool {
	return isType(err, ErrTypeStorageWrite)
}
