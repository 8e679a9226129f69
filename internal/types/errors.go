package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for matching with errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrConnectivity  = errors.New("connectivity error")
	ErrParse         = errors.New("parse error")
	ErrWriteConflict = errors.New("write conflict")
)

// ConfigurationError reports missing or invalid settings. It is fatal and is
// raised before any network call.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration: %v", e.Err)
	}
	return fmt.Sprintf("configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error        { return e.Err }
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// ConnectivityError reports an external service that is unreachable or
// rejected the credentials.
type ConnectivityError struct {
	Service string
	Op      string
	Err     error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error        { return e.Err }
func (e *ConnectivityError) Is(target error) bool { return target == ErrConnectivity }

// ParseError reports a malformed todo line or calendar event. Callers log and
// skip it; it never aborts a run.
type ParseError struct {
	Source Source
	Input  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v (%q)", e.Source, e.Err, e.Input)
}

func (e *ParseError) Unwrap() error        { return e.Err }
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// WriteConflictError reports that a target changed between read and write.
// It is surfaced and not retried.
type WriteConflictError struct {
	Target string
	Detail string
}

func (e *WriteConflictError) Error() string {
	return fmt.Sprintf("write conflict on %s: %s", e.Target, e.Detail)
}

func (e *WriteConflictError) Is(target error) bool { return target == ErrWriteConflict }

// Connectivity wraps err as a ConnectivityError unless it is nil or already one.
func Connectivity(service, op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConnectivityError
	if errors.As(err, &ce) {
		return err
	}
	return &ConnectivityError{Service: service, Op: op, Err: err}
}
