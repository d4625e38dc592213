// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package iptvportal

import "github.com/tidwall/gjson"

// Res represents the result of a successful JSONRPC exchange.
//
// Raw holds the JSON-encoded value of the response's result field. The
// transport guarantees that exactly one of result/error was present in the
// response body; error responses never produce a Res.
type Res struct {
	// Raw is the JSON-encoded result value returned by the server
	Raw string
}

// GetValue retrieves a value from the result using a gjson path.
//
// Example paths for a select over tv_channel:
//   - "0.id" - id of the first row
//   - "#.name" - names of all rows
//   - "#(number==100).name" - name of the row with number 100
//
// Returns gjson.Result which can be converted to specific types:
//   - result.String() for string values
//   - result.Int() for integer values
//   - result.Bool() for boolean values
//   - result.Array() for array values
//
// Example:
//
//	res, err := client.Execute(ctx, req)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	id := res.GetValue("0.id").Int()
func (r Res) GetValue(path string) gjson.Result {
	if r.Raw == "" {
		return gjson.Result{}
	}
	return gjson.Get(r.Raw, path)
}

// Result returns the whole result value for further gjson processing
func (r Res) Result() gjson.Result {
	return gjson.Parse(r.Raw)
}

// String returns the raw JSON text of the result value
func (r Res) String() string {
	return r.Raw
}
