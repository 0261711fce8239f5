package models

import (
	"errors"
	"fmt"
)

// ErrObjectNotFound means the key does not exist in any searched location.
var ErrObjectNotFound = errors.New("object not found")

// ErrInvalidPolicy is returned for policies with an unknown visibility.
var ErrInvalidPolicy = errors.New("invalid access policy")

type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Field, e.Reason)
}

// SigningError reports a signed-URL backend failure. StatusCode is the
// backend's HTTP status when one was received, 0 otherwise.
type SigningError struct {
	StatusCode int
	Err        error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("failed to sign object URL, status %d: %v", e.StatusCode, e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// AccessDeniedError distinguishes a missing identity (401) from an identity
// without permission (403).
type AccessDeniedError struct {
	Authenticated bool
}

func (e *AccessDeniedError) Error() string {
	if e.Authenticated {
		return "access denied"
	}
	return "authentication required"
}

type TransformError struct {
	Stage string
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s: %v", e.Stage, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
