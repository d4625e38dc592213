// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package iptvportal

import (
	"testing"
	"time"
)

// TestOptionApplication tests that functional options reach the client
func TestOptionApplication(t *testing.T) {
	logger := NewDefaultLogger(LogLevelError)

	client, err := NewClient("example.iptvportal.ru",
		Username("user1"),
		Password("pass1"),
		Timeout(5*time.Second),
		MaxRetries(7),
		RetryBackoffFactor(0.25),
		VerifyCertificate(false),
		AllowHTTP2(false),
		WithLogger(logger))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if client.username != "user1" {
		t.Errorf("Expected username user1, got %s", client.username)
	}
	if client.password != "pass1" {
		t.Errorf("Expected password pass1, got %s", client.password)
	}
	if client.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %v", client.Timeout)
	}
	if client.MaxRetries != 7 {
		t.Errorf("Expected max retries 7, got %d", client.MaxRetries)
	}
	if client.RetryBackoffFactor != 0.25 {
		t.Errorf("Expected backoff factor 0.25, got %f", client.RetryBackoffFactor)
	}
	if client.VerifyCertificate {
		t.Error("Expected certificate verification disabled")
	}
	if client.AllowHTTP2 {
		t.Error("Expected HTTP/2 disabled")
	}
	if client.logger != logger {
		t.Error("Expected custom logger to be applied")
	}
}

// TestOptionOrder tests that later options win
func TestOptionOrder(t *testing.T) {
	client, err := NewClient("example.iptvportal.ru",
		Username("user1"),
		Password("pass1"),
		MaxRetries(1),
		MaxRetries(5))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if client.MaxRetries != 5 {
		t.Errorf("Expected max retries 5, got %d", client.MaxRetries)
	}
}
