// Package errs defines the error kinds the daemon recovers from locally
// versus the ones that terminate the process at startup.
package errs

import "errors"

// ParseError wraps a malformed-datagram failure. Always recovered: the
// datagram is counted and dropped, never re-raised.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "parse error: " + e.Reason }

// NewParseError builds a ParseError with the given reason.
func NewParseError(reason string) *ParseError {
	return &ParseError{Reason: reason}
}

// ErrQueueFull is returned by the batcher when its bounded queue cannot
// accept a record; the caller counts and drops, never blocks.
var ErrQueueFull = errors.New("batcher: queue full")

// BackendTransient wraps a retryable backend I/O error.
type BackendTransient struct {
	Err error
}

func (e *BackendTransient) Error() string { return "backend transient: " + e.Err.Error() }
func (e *BackendTransient) Unwrap() error { return e.Err }

// NewBackendTransient wraps err as a retryable backend error.
func NewBackendTransient(err error) *BackendTransient {
	return &BackendTransient{Err: err}
}

// BackendFatal wraps a batch-level failure surviving retry exhaustion. The
// batch is logged and dropped; the daemon continues.
type BackendFatal struct {
	Err   error
	Count int
}

func (e *BackendFatal) Error() string {
	return "backend fatal, batch dropped"
}
func (e *BackendFatal) Unwrap() error { return e.Err }

// NewBackendFatal wraps err as an unrecoverable-for-this-batch error.
func NewBackendFatal(err error, count int) *BackendFatal {
	return &BackendFatal{Err: err, Count: count}
}

// ConfigError is fatal at startup.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "config error: " + e.Reason }

// NewConfigError builds a ConfigError with the given reason.
func NewConfigError(reason string) *ConfigError {
	return &ConfigError{Reason: reason}
}

// BindError is fatal at startup: the UDP socket could not be bound.
type BindError struct {
	Err error
}

func (e *BindError) Error() string { return "bind error: " + e.Err.Error() }
func (e *BindError) Unwrap() error { return e.Err }

// NewBindError wraps err as a startup bind failure.
func NewBindError(err error) *BindError {
	return &BindError{Err: err}
}

// ErrShutdownTimeout is returned when drain exceeds its wall-clock cap; the
// remaining batch is logged and discarded, and the process still exits.
var ErrShutdownTimeout = errors.New("shutdown: drain timed out")
