// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package iptvportal provides a simple, fluent API for interacting with the
// IPTVPortal JSONSQL API over its JSONRPC 2.0 HTTPS protocol.
//
// The library provides a high-level client that handles session management
// with TTL-based token caching, automatic retry with exponential backoff,
// structured error classification, and thread-safe concurrent operations.
//
// # Quick Start
//
// Create a client, connect, and execute a query:
//
//	client, err := iptvportal.NewClient(
//	    "example.iptvportal.ru",
//	    iptvportal.Username("admin"),
//	    iptvportal.Password("secret"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	qb := iptvportal.NewBuilder()
//	req, err := qb.Select([]string{"id", "name"}, "tv_channel",
//	    iptvportal.Where(iptvportal.Eq("disabled", false)),
//	    iptvportal.Limit(10),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := client.Execute(context.Background(), req)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Parse response using gjson paths
//	name := res.GetValue("0.name").String()
//	fmt.Println("Channel:", name)
//
// # Query Building
//
// The Builder produces JSONRPC request envelopes for the five JSONSQL
// operations (select, insert, update, delete, upsert) plus subquery
// fragments. Conditions compose with the Q-style operators:
//
//	where := iptvportal.And(
//	    iptvportal.Eq("status", "active"),
//	    iptvportal.Gt("views", 1000),
//	)
//	req, err := qb.Select("id", "media", iptvportal.Where(where))
//
// # Error Handling
//
// Transient failures (HTTP 5xx, timeouts, connection errors) are retried
// automatically with exponential backoff:
//
//	client, err := iptvportal.NewClient(
//	    "example.iptvportal.ru",
//	    iptvportal.Username("admin"),
//	    iptvportal.Password("secret"),
//	    iptvportal.MaxRetries(5),
//	    iptvportal.RetryBackoffFactor(0.5),
//	)
//
// Terminal failures surface as classified errors: AuthError for
// authentication problems, APIError for application-level and HTTP 4xx
// errors, RetryExhaustedError when all attempts fail.
//
// # Thread Safety
//
// A single Client is safe for concurrent use. Concurrent Execute calls
// share one connection pool and one cached session token; the token is
// refreshed at most once regardless of how many callers race on an
// expired session. ExecuteMany runs a batch of requests concurrently and
// returns results positionally aligned with the input.
//
// # References
//
//   - JSONRPC 2.0: https://www.jsonrpc.org/specification
//   - gjson: https://github.com/tidwall/gjson
//   - sjson: https://github.com/tidwall/sjson
package iptvportal
