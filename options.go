// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package iptvportal

import "time"

// Client configuration options using the functional options pattern

// Username sets the username for the authorize exchange
func Username(username string) func(*Client) {
	return func(c *Client) {
		c.username = username
	}
}

// Password sets the password for the authorize exchange
func Password(password string) func(*Client) {
	return func(c *Client) {
		c.password = password
	}
}

// Timeout sets the per-attempt request timeout (default: 30s)
//
// The timeout applies to each individual HTTP attempt; retries reset it. A
// timed-out attempt is a transient failure and is retried under the normal
// backoff policy.
func Timeout(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.Timeout = duration
	}
}

// MaxRetries sets the maximum number of retry attempts for transient errors
// (default: 3). A request makes up to MaxRetries+1 attempts in total.
func MaxRetries(retries int) func(*Client) {
	return func(c *Client) {
		c.MaxRetries = retries
	}
}

// RetryBackoffFactor sets the exponential backoff base factor in seconds
// (default: 1.0). The delay before retry attempt n is factor * 2^n seconds.
func RetryBackoffFactor(factor float64) func(*Client) {
	return func(c *Client) {
		c.RetryBackoffFactor = factor
	}
}

// VerifyCertificate enables or disables TLS certificate verification
// (default: true)
//
// WARNING: Disabling certificate verification makes the connection
// vulnerable to Man-in-the-Middle attacks. Only use this in testing
// environments where security is not a concern.
//
// Example:
//
//	client, _ := iptvportal.NewClient("example.iptvportal.ru",
//	    iptvportal.Username("admin"),
//	    iptvportal.Password("secret"),
//	    iptvportal.VerifyCertificate(false))  // Insecure, use only for testing
func VerifyCertificate(verify bool) func(*Client) {
	return func(c *Client) {
		c.VerifyCertificate = verify
	}
}

// AllowHTTP2 enables or disables ALPN-negotiated HTTP/2 (default: true)
func AllowHTTP2(enabled bool) func(*Client) {
	return func(c *Client) {
		c.AllowHTTP2 = enabled
	}
}

// WithLogger configures a custom logger for the client
//
// By default, the client uses NoOpLogger which discards all log messages.
// Use this option to enable logging with DefaultLogger or a custom logger.
//
// Payloads logged at Debug level are automatically redacted to remove
// sensitive fields (password, sid).
//
// Example:
//
//	logger := iptvportal.NewDefaultLogger(iptvportal.LogLevelInfo)
//	client, _ := iptvportal.NewClient("example.iptvportal.ru",
//	    iptvportal.Username("admin"),
//	    iptvportal.Password("secret"),
//	    iptvportal.WithLogger(logger))
func WithLogger(logger Logger) func(*Client) {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}
