// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package iptvportal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// session holds the cached authentication token and its issue time.
//
// A session is valid iff now < issuedAt + SessionTTL. Once invalid it is
// never reused; the next token() call replaces it wholesale.
type session struct {
	token    string
	issuedAt time.Time
}

// valid reports whether the session token can still be used at the given time
func (s session) valid(now time.Time) bool {
	return s.token != "" && now.Sub(s.issuedAt) < SessionTTL
}

// token returns a valid session token, authenticating if the cached one is
// missing or expired.
//
// The whole read-check-refresh sequence runs under sessMu: concurrent
// callers racing on an expired session serialize behind the first one, which
// authenticates exactly once and populates the cache for the rest. Callers
// holding a valid cached token never touch the network.
//
// httpClient is the caller's snapshot of the connection pool. Taking c.mu
// here is forbidden: Close holds c.mu while acquiring sessMu, so touching
// c.mu under sessMu would invert the lock order and deadlock.
func (c *Client) token(ctx context.Context, httpClient *http.Client) (string, error) {
	c.sessMu.Lock()
	defer c.sessMu.Unlock()

	if c.sess.valid(time.Now()) {
		c.logger.Debug("session cache hit",
			"domain", c.Domain)
		return c.sess.token, nil
	}

	tok, err := c.authenticate(ctx, httpClient)
	if err != nil {
		return "", err
	}

	c.sess = session{token: tok, issuedAt: time.Now()}
	return tok, nil
}

// Invalidate discards the cached session token unconditionally.
//
// The next Execute (or Ping) forces a fresh authentication round-trip. This
// is called automatically when a request is rejected as unauthorized, and
// may be called manually when a token is known to be stale.
func (c *Client) Invalidate() {
	c.sessMu.Lock()
	c.sess = session{}
	c.sessMu.Unlock()

	c.logger.Debug("session invalidated",
		"domain", c.Domain)
}

// authenticate performs the authorize exchange and returns the session id.
//
// The exchange sends a JSONRPC envelope with method "authorize" and params
// {user, password} to the API endpoint. Unlike Execute, authentication is a
// single attempt: network failures are classified and wrapped in AuthError
// rather than retried, and the caller decides whether to try again.
//
// PRECONDITION: Caller must hold c.sessMu and must not hold c.mu; the
// connection pool is passed in rather than read from the client so this
// path never acquires c.mu under sessMu.
func (c *Client) authenticate(ctx context.Context, httpClient *http.Client) (string, error) {
	if httpClient == nil {
		return "", ErrNotConnected
	}

	payload, err := authPayload(c.username, c.password)
	if err != nil {
		return "", &AuthError{Message: "failed to build authorize request", Err: err}
	}

	c.logger.Debug("authorize request",
		"domain", c.Domain,
		"user", c.username)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL(), strings.NewReader(payload))
	if err != nil {
		return "", &AuthError{Message: "failed to build authorize request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpRes, err := httpClient.Do(httpReq)
	if err != nil {
		return "", &AuthError{Message: "authorize request failed", Err: classifyTransportError(err)}
	}
	defer httpRes.Body.Close() //nolint:errcheck // Response body close error is not actionable

	body, err := io.ReadAll(httpRes.Body)
	if err != nil {
		return "", &AuthError{Message: "failed to read authorize response", Err: classifyTransportError(err)}
	}

	if httpRes.StatusCode < 200 || httpRes.StatusCode >= 300 {
		return "", &AuthError{Message: fmt.Sprintf("authorize request returned HTTP %d", httpRes.StatusCode)}
	}

	if errField := gjson.GetBytes(body, "error"); errField.Exists() {
		msg := errField.Get("message").String()
		if msg == "" {
			msg = errField.Raw
		}
		return "", &AuthError{Message: fmt.Sprintf("authorization rejected: %s", msg)}
	}

	// The session id MUST be a non-empty string even when the HTTP exchange
	// itself succeeded. The three failure shapes get distinguishable
	// messages for diagnostics.
	sid := gjson.GetBytes(body, "result.sid")
	switch {
	case !sid.Exists():
		return "", &AuthError{Message: "missing session id in authorize response"}
	case sid.Type == gjson.Null:
		return "", &AuthError{Message: "null session id in authorize response"}
	case sid.String() == "":
		return "", &AuthError{Message: "invalid session id in authorize response: empty string"}
	}

	c.logger.Info("authorized",
		"domain", c.Domain,
		"user", c.username)

	return sid.String(), nil
}

// authPayload builds the authorize envelope:
//
//	{"jsonrpc":"2.0","id":1,"method":"authorize","params":{"user":...,"password":...}}
//
// The id is fixed at 1: the authorize exchange is its own conversation and
// does not consume Builder ids.
func authPayload(user, password string) (string, error) {
	body, err := sjson.Set("", "jsonrpc", protocolVersion)
	if err == nil {
		body, err = sjson.Set(body, "id", 1)
	}
	if err == nil {
		body, err = sjson.Set(body, "method", "authorize")
	}
	if err == nil {
		body, err = sjson.Set(body, "params.user", user)
	}
	if err == nil {
		body, err = sjson.Set(body, "params.password", password)
	}
	return body, err
}
