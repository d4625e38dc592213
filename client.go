// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package iptvportal

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http2"
)

// Default client configuration values
const (
	DefaultTimeout            = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultRetryBackoffFactor = 1.0
	DefaultVerifyCertificate  = true
	DefaultAllowHTTP2         = true
)

// SessionTTL is the lifetime of a cached session token. The wire protocol
// does not report an expiry, so the token is treated as expired after this
// fixed duration and re-authentication is forced.
const SessionTTL = 3600 * time.Second

// apiPath is the fixed request path under the configured domain
const apiPath = "/api"

// Connection pool limits, matching the server-side keepalive policy
const (
	maxIdleConnsPerHost = 20
	maxConnsPerHost     = 100
)

// MaxJSONSizeForLogging limits the payload size processed by the log
// redaction pass (1MB) to prevent ReDoS on pathological inputs.
const MaxJSONSizeForLogging = 1 * 1024 * 1024

// JSONTooLargeMessage replaces payloads that exceed MaxJSONSizeForLogging
const JSONTooLargeMessage = "[JSON TOO LARGE FOR LOGGING]"

// defaultRedactionPatterns contains regex patterns for redacting sensitive
// data in logged payloads
var defaultRedactionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"password"\s*:\s*"[^"]*"`),
	regexp.MustCompile(`"sid"\s*:\s*"[^"]*"`),
}

// redactionReplacements are applied positionally with defaultRedactionPatterns
var redactionReplacements = []string{
	`"password":"[REDACTED]"`,
	`"sid":"[REDACTED]"`,
}

// Client represents a connection to an IPTVPortal JSONSQL API endpoint
type Client struct {
	// httpClient is the shared connection pool, created by Connect
	httpClient *http.Client

	// connected tracks the Connect/Close lifecycle
	connected bool

	// mu synchronizes access to the lifecycle state
	mu sync.RWMutex

	// Connection parameters
	Domain   string
	username string // unexported for security
	password string // unexported for security

	// Timeout applies to each individual request attempt
	Timeout time.Duration

	// Retry configuration
	MaxRetries         int
	RetryBackoffFactor float64

	// TLS and transport options
	VerifyCertificate bool
	AllowHTTP2        bool

	// Cached session, guarded by its own mutex so that token refresh
	// serializes without blocking unrelated lifecycle operations
	sess   session
	sessMu sync.Mutex

	// Logging configuration
	logger            Logger
	redactionPatterns []*regexp.Regexp
}

// NewClient creates a new IPTVPortal client for the specified domain.
//
// The client validates its configuration but does NOT open any connection
// or authenticate; call Connect before Execute. Authentication happens
// lazily on the first Execute and the resulting session token is cached
// for SessionTTL.
//
// Example:
//
//	client, err := iptvportal.NewClient(
//	    "example.iptvportal.ru",
//	    iptvportal.Username("admin"),
//	    iptvportal.Password("secret"),
//	    iptvportal.MaxRetries(5),
//	)
//	if err != nil {
//	    log.Fatal(err)  // Configuration error
//	}
//	if err := client.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
// Returns a configured Client or an error if configuration validation fails.
func NewClient(domain string, opts ...func(*Client)) (*Client, error) {
	client := &Client{
		Domain:             domain,
		Timeout:            DefaultTimeout,
		MaxRetries:         DefaultMaxRetries,
		RetryBackoffFactor: DefaultRetryBackoffFactor,
		VerifyCertificate:  DefaultVerifyCertificate,
		AllowHTTP2:         DefaultAllowHTTP2,
		logger:             &NoOpLogger{},
		redactionPatterns:  defaultRedactionPatterns,
	}

	// Apply functional options
	for _, opt := range opts {
		opt(client)
	}

	if err := client.validateConfig(); err != nil {
		return nil, err
	}

	client.logger.Info("iptvportal client created",
		"domain", client.Domain,
		"max_retries", client.MaxRetries,
		"http2", client.AllowHTTP2)

	return client, nil
}

// Connect builds the connection pool and marks the client connected.
//
// Connect does not perform authentication; the session token is obtained
// lazily on the first Execute. Calling Connect on an already-connected
// client is a no-op.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			//nolint:gosec // G402: VerifyCertificate(false) is an explicit caller opt-in
			InsecureSkipVerify: !c.VerifyCertificate,
			MinVersion:         tls.VersionTLS12,
		},
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		MaxConnsPerHost:     maxConnsPerHost,
	}

	if c.AllowHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			return fmt.Errorf("failed to configure http2 transport: %w", err)
		}
	} else {
		// An empty TLSNextProto map disables ALPN-negotiated HTTP/2
		transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	}

	c.httpClient = &http.Client{
		Transport: transport,
		Timeout:   c.Timeout,
	}
	c.connected = true

	c.logger.Info("iptvportal client connected",
		"domain", c.Domain,
		"http2", c.AllowHTTP2)

	return nil
}

// Close releases the connection pool and clears the cached session.
//
// Close is idempotent: closing an already-closed client is a no-op, not an
// error. This method is typically used in defer statements to ensure proper
// cleanup:
//
//	client, err := iptvportal.NewClient("example.iptvportal.ru", opts...)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
// Thread-safe: safe to call multiple times and concurrently with Execute
// (in-flight requests fail with a transport error once the pool is gone).
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}

	c.httpClient.CloseIdleConnections()
	c.httpClient = nil
	c.connected = false

	c.sessMu.Lock()
	c.sess = session{}
	c.sessMu.Unlock()

	c.logger.Info("iptvportal client closed",
		"domain", c.Domain)

	return nil
}

// Execute sends a request envelope and returns the parsed result.
//
// The call resolves a valid session token (authenticating if the cached one
// expired), delivers the envelope with retry/backoff, and classifies any
// failure. If the server rejects the session as unauthorized, the cached
// token is invalidated and authentication is retried exactly once before
// the error surfaces.
//
// Returns ErrNotConnected if called before Connect or after Close.
//
// Example:
//
//	qb := iptvportal.NewBuilder()
//	req, err := qb.Select([]string{"id", "name"}, "tv_channel",
//	    iptvportal.Limit(10))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := client.Execute(ctx, req)
func (c *Client) Execute(ctx context.Context, req Req) (Res, error) {
	// Snapshot the pool before touching the session: token() holds sessMu
	// and must never acquire c.mu (Close takes them in the opposite order)
	c.mu.RLock()
	connected := c.connected
	httpClient := c.httpClient
	c.mu.RUnlock()
	if !connected {
		return Res{}, ErrNotConnected
	}

	token, err := c.token(ctx, httpClient)
	if err != nil {
		return Res{}, err
	}

	res, err := c.do(ctx, req, token)

	// One re-authentication per call: a rejected session usually means the
	// server expired it before the TTL elapsed.
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Unauthorized() {
		c.logger.Warn("session rejected, re-authenticating",
			"method", req.Method,
			"status", apiErr.StatusCode)

		c.Invalidate()
		token, err = c.token(ctx, httpClient)
		if err != nil {
			return Res{}, err
		}
		return c.do(ctx, req, token)
	}

	return res, err
}

// ExecuteMany executes a batch of request envelopes concurrently.
//
// The returned slice is positionally aligned with reqs: results[i] is the
// result of reqs[i] regardless of network-level completion order. Failed
// requests leave a zero Res at their position; the individual errors are
// joined into the returned error. An empty batch returns an empty slice.
//
// All requests share the client's connection pool and session token.
//
// Example:
//
//	reqs := []iptvportal.Req{req1, req2, req3}
//	results, err := client.ExecuteMany(ctx, reqs)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for i, res := range results {
//	    fmt.Printf("query %d: %s\n", i, res.String())
//	}
func (c *Client) ExecuteMany(ctx context.Context, reqs []Req) ([]Res, error) {
	results := make([]Res, len(reqs))
	errs := make([]error, len(reqs))

	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = c.Execute(ctx, reqs[idx])
		}(i)
	}
	wg.Wait()

	return results, errors.Join(errs...)
}

// Ping verifies connectivity and credentials by resolving a session token.
//
// If no valid cached token exists this performs a full authentication
// round-trip; otherwise it is a no-op returning nil.
func (c *Client) Ping(ctx context.Context) error {
	c.mu.RLock()
	connected := c.connected
	httpClient := c.httpClient
	c.mu.RUnlock()
	if !connected {
		return ErrNotConnected
	}

	_, err := c.token(ctx, httpClient)
	return err
}

// Run connects a client, invokes fn, and guarantees Close on every exit
// path, including when fn returns an error or the connect fails.
//
// This is the scoped-acquisition form of the Connect/Close lifecycle:
//
//	err := iptvportal.Run("example.iptvportal.ru", func(client *iptvportal.Client) error {
//	    res, err := client.Execute(ctx, req)
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(res.String())
//	    return nil
//	}, iptvportal.Username("admin"), iptvportal.Password("secret"))
func Run(domain string, fn func(*Client) error, opts ...func(*Client)) error {
	client, err := NewClient(domain, opts...)
	if err != nil {
		return err
	}
	if err := client.Connect(); err != nil {
		return err
	}
	defer func() {
		_ = client.Close() //nolint:errcheck // Close on an open client cannot fail
	}()

	return fn(client)
}

// Backoff calculates the delay before the next retry attempt using pure
// exponential backoff without jitter:
//
//	delay = RetryBackoffFactor * 2^attempt seconds
//
// Parameters:
//   - attempt: The retry attempt number (0-indexed)
//
// Returns the duration to wait before retrying.
func (c *Client) Backoff(attempt int) time.Duration {
	delay := c.RetryBackoffFactor * math.Pow(2, float64(attempt))
	return time.Duration(delay * float64(time.Second))
}

// apiURL returns the full endpoint URL under the configured domain.
//
// The domain is normally a bare hostname and the scheme is fixed to https;
// an explicit scheme prefix is honored as-is.
func (c *Client) apiURL() string {
	if strings.Contains(c.Domain, "://") {
		return c.Domain + apiPath
	}
	return "https://" + c.Domain + apiPath
}

// redactPayload redacts sensitive fields (password, sid) in a JSON payload
// before it is logged at Debug level.
//
// Payloads over MaxJSONSizeForLogging are not processed and are replaced
// wholesale, which bounds the regex work on hostile input.
func (c *Client) redactPayload(jsonStr string) string {
	if len(jsonStr) > MaxJSONSizeForLogging {
		return JSONTooLargeMessage
	}

	result := jsonStr
	for i, pattern := range c.redactionPatterns {
		result = pattern.ReplaceAllString(result, redactionReplacements[i])
	}
	return result
}

// validateConfig validates client configuration before use
//
// Validates:
//   - Non-empty domain, username, and password
//   - Positive timeout
//   - Non-negative max retries
//   - Positive retry backoff factor
//
// Returns an error if validation fails.
func (c *Client) validateConfig() error {
	if strings.TrimSpace(c.Domain) == "" {
		return fmt.Errorf("domain cannot be empty")
	}
	if c.username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if c.password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got: %v", c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got: %d", c.MaxRetries)
	}
	if c.RetryBackoffFactor <= 0 {
		return fmt.Errorf("retry backoff factor must be positive, got: %f", c.RetryBackoffFactor)
	}

	if !c.VerifyCertificate {
		c.logger.Warn("certificate verification disabled",
			"domain", c.Domain,
			"security_risk", "Man-in-the-Middle attacks possible",
			"recommendation", "Use only in testing environments")
	}

	return nil
}
