// Package apierror defines the failure taxonomy shared by the translation engine.
package apierror

import (
	"errors"
	"fmt"
)

// Kind categorizes errors.
type Kind string

const (
	// KindConfig covers missing credentials and invalid settings. Fatal to connect.
	KindConfig Kind = "config_error"
	// KindCapture covers a missing microphone or denied permission. Fatal to connect.
	KindCapture Kind = "capture_error"
	// KindTransport covers connection drops and protocol faults. Terminates the session.
	KindTransport Kind = "transport_error"
	// KindRateLimit covers quota failures from the translate endpoint. Transient.
	KindRateLimit Kind = "rate_limit_error"
	// KindDecode covers malformed inbound audio. The chunk is dropped.
	KindDecode Kind = "decode_error"
)

// Error is a categorized error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewConfigError creates a configuration error.
func NewConfigError(message string) *Error {
	return &Error{Kind: KindConfig, Message: message}
}

// NewCaptureError creates a capture error wrapping the device failure.
func NewCaptureError(message string, err error) *Error {
	return &Error{Kind: KindCapture, Message: message, Err: err}
}

// NewTransportError creates a transport error wrapping the connection failure.
func NewTransportError(message string, err error) *Error {
	return &Error{Kind: KindTransport, Message: message, Err: err}
}

// NewRateLimitError creates a rate limit error.
func NewRateLimitError(message string, err error) *Error {
	return &Error{Kind: KindRateLimit, Message: message, Err: err}
}

// NewDecodeError creates a decode error.
func NewDecodeError(message string) *Error {
	return &Error{Kind: KindDecode, Message: message}
}

// Is reports whether any error in err's chain is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind == kind
	}
	return false
}
