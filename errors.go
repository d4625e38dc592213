// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package iptvportal

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Usage and transport-level error reasons.
//
// The transport reasons (ErrTimeout, ErrConnection, ErrTLS) classify the
// underlying network failure and are preserved by wrapping: check them with
// errors.Is on an AuthError or RetryExhaustedError.
var (
	// ErrNotConnected is returned when Execute or Ping is called before
	// Connect, or after Close.
	ErrNotConnected = errors.New("iptvportal: client not connected")

	// ErrTimeout indicates a request attempt exceeded its timeout.
	ErrTimeout = errors.New("iptvportal: request timed out")

	// ErrConnection indicates the connection to the server failed.
	ErrConnection = errors.New("iptvportal: connection failed")

	// ErrTLS indicates the TLS handshake or certificate verification failed.
	ErrTLS = errors.New("iptvportal: tls handshake failed")
)

// AuthError indicates the authentication exchange failed: the server rejected
// the credentials, returned an invalid session identifier, or the authorize
// request itself failed at the transport level.
//
// AuthError is terminal for the call that raised it. The client retries
// authentication at most once per Execute, and only after a downstream
// request was rejected as unauthorized.
type AuthError struct {
	// Message describes the authentication failure
	Message string

	// Err is the underlying transport classification, if any
	Err error
}

// Error implements the error interface
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("iptvportal: authentication failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("iptvportal: authentication failed: %s", e.Message)
}

// Unwrap returns the underlying transport error, if any
func (e *AuthError) Unwrap() error {
	return e.Err
}

// APIError indicates the server returned an application-level error object,
// or the HTTP status was a non-retryable client error (4xx).
//
// APIError is never retried by the transport. Client errors are considered
// non-transient: a bad request shape will not get better on retry.
type APIError struct {
	// StatusCode is the HTTP status code of the response
	StatusCode int

	// Code is the JSONRPC error code, if the server returned an error object
	Code int64

	// Message is the server-provided error message
	Message string

	// Data carries the optional JSON-encoded error data field
	Data string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("iptvportal: api error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("iptvportal: api error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Unauthorized reports whether the error indicates a rejected session.
//
// The client uses this to decide whether to invalidate the cached session
// token and re-authenticate once before surfacing the error.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// RetryExhaustedError indicates every retry attempt for a single request
// failed with a transient (HTTP 5xx or transport) error.
type RetryExhaustedError struct {
	// Attempts is the total number of attempts made
	Attempts int

	// Err is the last recorded failure
	Err error
}

// Error implements the error interface
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("iptvportal: request failed after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the last recorded failure
func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// classifyTransportError maps a raw network error to one of the transport
// reason sentinels while preserving the original error text.
//
// Classification order matters: timeouts are reported by net.Error even when
// they occur during a TLS handshake, so the timeout check runs first.
func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return fmt.Errorf("%w: %v", ErrTLS, err)
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return fmt.Errorf("%w: %v", ErrTLS, err)
	}

	return fmt.Errorf("%w: %v", ErrConnection, err)
}
