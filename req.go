// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package iptvportal

import "github.com/tidwall/sjson"

// protocolVersion is the JSONRPC protocol version carried by every envelope
const protocolVersion = "2.0"

// Req represents one JSONRPC request envelope.
//
// Envelopes are produced by the Builder; the params object is carried as
// JSON text so the wire shape is exactly what the builder emitted.
//
// Example:
//
//	qb := iptvportal.NewBuilder()
//	req, err := qb.Select([]string{"id", "name"}, "tv_channel")
//	res, err := client.Execute(ctx, req)
type Req struct {
	// Method is the JSONRPC method name (select, insert, update, delete)
	Method string

	// Params is the JSON-encoded params object
	Params string

	// ID is the request id assigned by the Builder. Ids are strictly
	// increasing per Builder instance and carry no meaning across instances.
	ID int64
}

// marshal renders the full JSONRPC envelope as JSON text:
//
//	{"jsonrpc":"2.0","id":<id>,"method":<method>,"params":<params>}
func (r Req) marshal() (string, error) {
	body, err := sjson.Set("", "jsonrpc", protocolVersion)
	if err == nil {
		body, err = sjson.Set(body, "id", r.ID)
	}
	if err == nil {
		body, err = sjson.Set(body, "method", r.Method)
	}
	if err == nil {
		params := r.Params
		if params == "" {
			params = "{}"
		}
		body, err = sjson.SetRaw(body, "params", params)
	}
	return body, err
}
