// Package apperr defines the error taxonomy shared by the pipeline packages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// ConfigError reports a required setting that is absent or unusable.
// It is fatal: the process must not proceed.
type ConfigError struct {
	Setting string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Setting, e.Reason)
}

// UpstreamError is a non-success response from the generation service.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("generation service error (%d): %s", e.StatusCode, e.Body)
}

// ParseError reports a structured payload that is malformed or lacks a
// required field.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse: %v", e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// QueryError is a non-success response from the store's query endpoint.
type QueryError struct {
	StatusCode int
	Body       string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("store query error (%d): %s", e.StatusCode, e.Body)
}

// WriteError is a non-success response from the store's mutate endpoint.
// A failed transaction is never partially applied.
type WriteError struct {
	StatusCode int
	Body       string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store write error (%d): %s", e.StatusCode, e.Body)
}

// IsRemote reports whether err originates from one of the remote services
// (non-success status or unusable payload).
func IsRemote(err error) bool {
	var (
		up *UpstreamError
		pe *ParseError
		qe *QueryError
		we *WriteError
	)
	return errors.As(err, &up) || errors.As(err, &pe) || errors.As(err, &qe) || errors.As(err, &we)
}
