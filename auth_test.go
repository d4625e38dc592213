// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package iptvportal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

// TestTokenCaching tests that a valid session token is reused
func TestTokenCaching(t *testing.T) {
	var authCalls atomic.Int32
	srv := httptest.NewTLSServer(jsonrpcHandler(&authCalls, nil, okQuery))
	defer srv.Close()

	client := newTestClient(t, srv)

	for i := 0; i < 3; i++ {
		if _, err := client.Execute(context.Background(), testSelect(t)); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}
	if authCalls.Load() != 1 {
		t.Errorf("Expected 1 auth call across 3 executes, got %d", authCalls.Load())
	}
}

// TestInvalidateForcesReauth tests that Invalidate discards the cached token
func TestInvalidateForcesReauth(t *testing.T) {
	var authCalls atomic.Int32
	srv := httptest.NewTLSServer(jsonrpcHandler(&authCalls, nil, okQuery))
	defer srv.Close()

	client := newTestClient(t, srv)

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	client.Invalidate()
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if authCalls.Load() != 2 {
		t.Errorf("Expected 2 auth calls, got %d", authCalls.Load())
	}
}

// TestAuthorizePayload tests the shape of the authorize envelope
func TestAuthorizePayload(t *testing.T) {
	payload, err := authPayload("admin", "secret")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if got := gjson.Get(payload, "jsonrpc").String(); got != "2.0" {
		t.Errorf("Expected jsonrpc 2.0, got %s", got)
	}
	if got := gjson.Get(payload, "id").Int(); got != 1 {
		t.Errorf("Expected id 1, got %d", got)
	}
	if got := gjson.Get(payload, "method").String(); got != "authorize" {
		t.Errorf("Expected method authorize, got %s", got)
	}
	if got := gjson.Get(payload, "params.user").String(); got != "admin" {
		t.Errorf("Expected params.user admin, got %s", got)
	}
	if got := gjson.Get(payload, "params.password").String(); got != "secret" {
		t.Errorf("Expected params.password secret, got %s", got)
	}
}

// TestAuthorizeRequestShape tests what the server actually receives
func TestAuthorizeRequestShape(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api" {
			t.Errorf("Expected path /api, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Expected application/json content type, got %s", got)
		}
		if r.Header.Get("Cookie") != "" {
			t.Errorf("Expected no cookie on authorize, got %s", r.Header.Get("Cookie"))
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":{"sid":"%s"}}`, testSID)
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

// TestAuthorizeInvalidSid tests the three distinguishable invalid-sid shapes
func TestAuthorizeInvalidSid(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "missing sid",
			response: `{"jsonrpc":"2.0","id":1,"result":{}}`,
			want:     "missing session id",
		},
		{
			name:     "null sid",
			response: `{"jsonrpc":"2.0","id":1,"result":{"sid":null}}`,
			want:     "null session id",
		},
		{
			name:     "empty sid",
			response: `{"jsonrpc":"2.0","id":1,"result":{"sid":""}}`,
			want:     "empty string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, tt.response)
			}))
			defer srv.Close()

			client := newTestClient(t, srv)

			err := client.Ping(context.Background())
			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("Expected AuthError, got: %v", err)
			}
			if !strings.Contains(authErr.Message, tt.want) {
				t.Errorf("Expected message containing %q, got %q", tt.want, authErr.Message)
			}
		})
	}
}

// TestAuthorizeRejected tests a server-side error object on authorize
func TestAuthorizeRejected(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"invalid credentials"}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	err := client.Ping(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected AuthError, got: %v", err)
	}
	if !strings.Contains(authErr.Message, "invalid credentials") {
		t.Errorf("Expected server message preserved, got %q", authErr.Message)
	}
}

// TestAuthorizeHTTPError tests a non-2xx status on the authorize exchange
func TestAuthorizeHTTPError(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	err := client.Ping(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected AuthError, got: %v", err)
	}
	if !strings.Contains(authErr.Message, "HTTP 500") {
		t.Errorf("Expected HTTP status in message, got %q", authErr.Message)
	}
}

// TestAuthorizeConnectionFailure tests transport classification on authorize
func TestAuthorizeConnectionFailure(t *testing.T) {
	client, err := NewClient("127.0.0.1:1",
		Username(testUsername),
		Password(testPassword),
		VerifyCertificate(false))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := client.Connect(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	defer client.Close() //nolint:errcheck

	err = client.Ping(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected AuthError, got: %v", err)
	}
	if !errors.Is(err, ErrConnection) {
		t.Errorf("Expected ErrConnection reason, got: %v", err)
	}
}

// TestAuthorizeCertificateFailure tests that an untrusted certificate is
// classified as a TLS failure when verification is enabled
func TestAuthorizeCertificateFailure(t *testing.T) {
	srv := httptest.NewTLSServer(jsonrpcHandler(nil, nil, okQuery))
	defer srv.Close()

	client, err := NewClient(srv.Listener.Addr().String(),
		Username(testUsername),
		Password(testPassword))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := client.Connect(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	defer client.Close() //nolint:errcheck

	err = client.Ping(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected AuthError, got: %v", err)
	}
	if !errors.Is(err, ErrTLS) {
		t.Errorf("Expected ErrTLS reason, got: %v", err)
	}
}

// TestSessionValidity tests the TTL arithmetic in isolation
func TestSessionValidity(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		sess session
		want bool
	}{
		{
			name: "fresh token",
			sess: session{token: testSID, issuedAt: now},
			want: true,
		},
		{
			name: "almost expired",
			sess: session{token: testSID, issuedAt: now.Add(-SessionTTL + 1)},
			want: true,
		},
		{
			name: "exactly expired",
			sess: session{token: testSID, issuedAt: now.Add(-SessionTTL)},
			want: false,
		},
		{
			name: "empty token",
			sess: session{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sess.valid(now); got != tt.want {
				t.Errorf("Expected valid == %v, got %v", tt.want, got)
			}
		})
	}
}
