// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package iptvportal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// do delivers one request envelope to the API endpoint with the session
// token attached, applying the retry policy:
//
//   - attempts 0..MaxRetries inclusive (up to MaxRetries+1 total attempts)
//   - HTTP 4xx: APIError immediately, never retried
//   - HTTP 5xx and transport failures (timeout, connection, TLS): transient;
//     sleep Backoff(attempt) before the next attempt
//   - 2xx body carrying an error field: APIError, never retried
//   - exhaustion: RetryExhaustedError wrapping the last failure
//
// Backoff sleeps are context-aware and block only the calling goroutine;
// concurrent requests on the same client keep making progress.
func (c *Client) do(ctx context.Context, req Req, token string) (Res, error) {
	c.mu.RLock()
	httpClient := c.httpClient
	c.mu.RUnlock()
	if httpClient == nil {
		return Res{}, ErrNotConnected
	}

	payload, err := req.marshal()
	if err != nil {
		return Res{}, fmt.Errorf("failed to encode request: %w", err)
	}

	c.logger.Debug("request",
		"method", req.Method,
		"id", req.ID,
		"payload", c.redactPayload(payload))

	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if err := checkContextCancellation(ctx); err != nil {
			return Res{}, err
		}

		res, retryable, err := c.attempt(ctx, httpClient, payload, token)
		if err == nil {
			c.logger.Debug("response",
				"method", req.Method,
				"id", req.ID,
				"attempt", attempt)
			return res, nil
		}
		if !retryable {
			return Res{}, err
		}
		lastErr = err

		if attempt < c.MaxRetries {
			backoff := c.Backoff(attempt)
			c.logger.Warn("transient error, retrying",
				"method", req.Method,
				"attempt", attempt+1,
				"max_retries", c.MaxRetries,
				"backoff", backoff,
				"error", err.Error())

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return Res{}, fmt.Errorf("request canceled during backoff: %w", ctx.Err())
			}
		}
	}

	c.logger.Error("request failed, retries exhausted",
		"method", req.Method,
		"id", req.ID,
		"attempts", c.MaxRetries+1,
		"error", lastErr.Error())

	return Res{}, &RetryExhaustedError{Attempts: c.MaxRetries + 1, Err: lastErr}
}

// attempt performs a single HTTP exchange for the envelope.
//
// The second return value reports whether the error is transient and the
// attempt may be retried. Explicit caller cancellation is never retried.
func (c *Client) attempt(ctx context.Context, httpClient *http.Client, payload, token string) (Res, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL(), strings.NewReader(payload))
	if err != nil {
		return Res{}, false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		// Session credential rides as a cookie, matching the server's
		// sid-based session scheme
		httpReq.Header.Set("Cookie", "sid="+token)
	}

	httpRes, err := httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Res{}, false, context.Canceled
		}
		return Res{}, true, classifyTransportError(err)
	}
	defer httpRes.Body.Close() //nolint:errcheck // Response body close error is not actionable

	body, err := io.ReadAll(httpRes.Body)
	if err != nil {
		return Res{}, true, classifyTransportError(err)
	}

	switch {
	case httpRes.StatusCode >= 400 && httpRes.StatusCode < 500:
		// Client errors are non-transient: the request shape or the
		// credential is wrong and will not improve on retry
		return Res{}, false, &APIError{
			StatusCode: httpRes.StatusCode,
			Message:    httpErrorMessage(httpRes.StatusCode, body),
		}
	case httpRes.StatusCode < 200 || httpRes.StatusCode >= 300:
		return Res{}, true, fmt.Errorf("server returned HTTP %d: %s", httpRes.StatusCode, httpErrorMessage(httpRes.StatusCode, body))
	}

	if errField := gjson.GetBytes(body, "error"); errField.Exists() {
		// Application errors arrive with a 2xx status and are not retried
		return Res{}, false, &APIError{
			StatusCode: httpRes.StatusCode,
			Code:       errField.Get("code").Int(),
			Message:    errField.Get("message").String(),
			Data:       errField.Get("data").Raw,
		}
	}

	result := gjson.GetBytes(body, "result")
	if !result.Exists() {
		// Exactly one of result/error must be present
		return Res{}, false, &APIError{
			StatusCode: httpRes.StatusCode,
			Message:    "response carries neither result nor error",
		}
	}

	return Res{Raw: result.Raw}, false, nil
}

// httpErrorMessage extracts a human-readable message from an HTTP error
// response, preferring the JSONRPC error message when the body carries one.
func httpErrorMessage(statusCode int, body []byte) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return msg.String()
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return http.StatusText(statusCode)
	}
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return text
}

// checkContextCancellation checks if context is canceled or deadline exceeded
//
// This is a non-blocking check used before retry attempts to avoid wasted
// work. Returns the context error, or nil if the context is still valid.
func checkContextCancellation(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
