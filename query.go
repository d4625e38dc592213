// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package iptvportal

import (
	"fmt"
	"sync/atomic"

	"github.com/tidwall/sjson"
)

// Builder produces JSONRPC request envelopes for the JSONSQL operations.
//
// Each Builder carries its own request-id counter: ids start at 1 and
// increase by 1 on every built envelope (subquery fragments do not consume
// ids). Ids are unique per Builder instance and carry no meaning across
// instances.
//
// A Builder is safe for concurrent use.
//
// Example:
//
//	qb := iptvportal.NewBuilder()
//	req, err := qb.Select([]string{"id", "name"}, "tv_channel",
//	    iptvportal.Where(iptvportal.Eq("disabled", false)),
//	    iptvportal.OrderBy("number"),
//	    iptvportal.Limit(10),
//	)
type Builder struct {
	id atomic.Int64
}

// NewBuilder creates a new query builder with a fresh request-id counter
func NewBuilder() *Builder {
	return &Builder{}
}

// QueryMods carries the optional clauses of a query. Clauses are supplied
// via the functional modifiers (Where, OrderBy, GroupBy, Limit, Offset,
// Returning); absent clauses are omitted from the params object entirely,
// never emitted as null. Each operation documents the clauses it honors;
// the rest are ignored.
type QueryMods struct {
	where     *Condition
	orderBy   any
	groupBy   any
	limit     *int
	offset    *int
	returning any
}

// Where sets the where clause condition tree
func Where(condition Condition) func(*QueryMods) {
	return func(q *QueryMods) {
		q.where = &condition
	}
}

// OrderBy sets the order_by clause. A single field is emitted as a string,
// multiple fields as an ordered list.
func OrderBy(fields ...string) func(*QueryMods) {
	return func(q *QueryMods) {
		q.orderBy = fieldsValue(fields)
	}
}

// GroupBy sets the group_by clause. A single field is emitted as a string,
// multiple fields as an ordered list.
func GroupBy(fields ...string) func(*QueryMods) {
	return func(q *QueryMods) {
		q.groupBy = fieldsValue(fields)
	}
}

// Limit sets the limit clause
func Limit(n int) func(*QueryMods) {
	return func(q *QueryMods) {
		q.limit = &n
	}
}

// Offset sets the offset clause. Offset zero is a meaningful value and is
// emitted when supplied.
func Offset(n int) func(*QueryMods) {
	return func(q *QueryMods) {
		q.offset = &n
	}
}

// Returning sets the returning clause of a write operation. A single field
// is emitted as a string, multiple fields as an ordered list.
func Returning(fields ...string) func(*QueryMods) {
	return func(q *QueryMods) {
		q.returning = fieldsValue(fields)
	}
}

// fieldsValue collapses a single-element field list to a bare string,
// matching the wire protocol's string-or-list convention. An empty list
// yields nil so the clause is omitted entirely.
func fieldsValue(fields []string) any {
	switch len(fields) {
	case 0:
		return nil
	case 1:
		return fields[0]
	default:
		return fields
	}
}

// applyMods builds a QueryMods from the supplied modifiers
func applyMods(mods []func(*QueryMods)) *QueryMods {
	q := &QueryMods{}
	for _, mod := range mods {
		mod(q)
	}
	return q
}

// Select builds a select envelope.
//
// data is the projection: a field name, an ordered list of field names, or
// any JSON-marshalable alias mapping. from is a table name or an ordered
// list of join specifications. Honored modifiers: Where, OrderBy, GroupBy,
// Limit, Offset.
//
// Example:
//
//	req, err := qb.Select([]string{"id", "name"}, "tv_channel",
//	    iptvportal.Where(iptvportal.Eq("id", 5402)))
func (b *Builder) Select(data any, from any, mods ...func(*QueryMods)) (Req, error) {
	q := applyMods(mods)

	params, err := setJSONValue("{}", "data", data)
	if err == nil {
		params, err = setJSONValue(params, "from", from)
	}
	if err == nil && q.where != nil {
		params, err = setJSONValue(params, "where", *q.where)
	}
	if err == nil && q.orderBy != nil {
		params, err = sjson.Set(params, "order_by", q.orderBy)
	}
	if err == nil && q.limit != nil {
		params, err = sjson.Set(params, "limit", *q.limit)
	}
	if err == nil && q.offset != nil {
		params, err = sjson.Set(params, "offset", *q.offset)
	}
	if err == nil && q.groupBy != nil {
		params, err = sjson.Set(params, "group_by", q.groupBy)
	}
	if err != nil {
		return Req{}, fmt.Errorf("select: %w", err)
	}

	return b.newReq("select", params), nil
}

// Insert builds an insert envelope.
//
// columns is the ordered column list; values is an ordered list of value
// tuples. Tuple lengths are not validated here - a mismatch surfaces as an
// application error from the server. Honored modifiers: Returning.
//
// Example:
//
//	req, err := qb.Insert("tv_channel",
//	    []string{"name", "number"},
//	    [][]any{{"Test Channel", 100}},
//	    iptvportal.Returning("id"))
func (b *Builder) Insert(into string, columns []string, values [][]any, mods ...func(*QueryMods)) (Req, error) {
	q := applyMods(mods)

	params, err := sjson.Set("{}", "into", into)
	if err == nil {
		params, err = sjson.Set(params, "columns", columns)
	}
	if err == nil {
		params, err = sjson.Set(params, "values", values)
	}
	if err == nil && q.returning != nil {
		params, err = sjson.Set(params, "returning", q.returning)
	}
	if err != nil {
		return Req{}, fmt.Errorf("insert: %w", err)
	}

	return b.newReq("insert", params), nil
}

// Update builds an update envelope.
//
// set maps column names to their new values. Honored modifiers: Where,
// Returning.
//
// Example:
//
//	req, err := qb.Update("tv_channel",
//	    map[string]any{"name": "Updated Name"},
//	    iptvportal.Where(iptvportal.Eq("id", 5402)))
func (b *Builder) Update(table string, set map[string]any, mods ...func(*QueryMods)) (Req, error) {
	q := applyMods(mods)

	params, err := sjson.Set("{}", "table", table)
	if err == nil {
		params, err = sjson.Set(params, "set", set)
	}
	if err == nil && q.where != nil {
		params, err = setJSONValue(params, "where", *q.where)
	}
	if err == nil && q.returning != nil {
		params, err = sjson.Set(params, "returning", q.returning)
	}
	if err != nil {
		return Req{}, fmt.Errorf("update: %w", err)
	}

	return b.newReq("update", params), nil
}

// Delete builds a delete envelope.
//
// Honored modifiers: Where, Returning.
//
// Example:
//
//	req, err := qb.Delete("tv_channel",
//	    iptvportal.Where(iptvportal.Eq("id", 5402)))
func (b *Builder) Delete(from string, mods ...func(*QueryMods)) (Req, error) {
	q := applyMods(mods)

	params, err := sjson.Set("{}", "from", from)
	if err == nil && q.where != nil {
		params, err = setJSONValue(params, "where", *q.where)
	}
	if err == nil && q.returning != nil {
		params, err = sjson.Set(params, "returning", q.returning)
	}
	if err != nil {
		return Req{}, fmt.Errorf("delete: %w", err)
	}

	return b.newReq("delete", params), nil
}

// Upsert builds an INSERT ... ON CONFLICT ... DO UPDATE envelope.
//
// The wire protocol models upsert as an insert envelope carrying an
// on_conflict clause; there is no separate server operation. conflictColumns
// are checked for conflicts and updateSet maps columns to their replacement
// values on conflict (use map[string]any{"excluded": "column"} to reference
// the incoming row). Honored modifiers: Returning.
//
// Example:
//
//	req, err := qb.Upsert("subscriber",
//	    []string{"username", "password"},
//	    [][]any{{"user1", "pass1"}},
//	    []string{"username"},
//	    map[string]any{"password": map[string]any{"excluded": "password"}},
//	    iptvportal.Returning("id"))
func (b *Builder) Upsert(into string, columns []string, values [][]any, conflictColumns []string, updateSet map[string]any, mods ...func(*QueryMods)) (Req, error) {
	q := applyMods(mods)

	params, err := sjson.Set("{}", "into", into)
	if err == nil {
		params, err = sjson.Set(params, "columns", columns)
	}
	if err == nil {
		params, err = sjson.Set(params, "values", values)
	}
	if err == nil {
		params, err = sjson.Set(params, "on_conflict.columns", conflictColumns)
	}
	if err == nil {
		params, err = sjson.Set(params, "on_conflict.do", "update")
	}
	if err == nil {
		params, err = sjson.Set(params, "on_conflict.set", updateSet)
	}
	if err == nil && q.returning != nil {
		params, err = sjson.Set(params, "returning", q.returning)
	}
	if err != nil {
		return Req{}, fmt.Errorf("upsert: %w", err)
	}

	return b.newReq("insert", params), nil
}

// Subquery is a select fragment usable as a value inside another query's
// where clause; it is not a complete request envelope and carries no id.
type Subquery struct {
	// raw contains the JSON fragment
	raw string
	// err tracks the first error encountered during building
	err error
}

// Raw returns the JSON text of the fragment and any building error
func (s Subquery) Raw() (string, error) {
	return s.raw, s.err
}

// Err returns any error that occurred while building the fragment
func (s Subquery) Err() error {
	return s.err
}

// SelectSubquery builds a select fragment for nesting inside a where
// clause, typically as the value side of an In condition:
//
//	sub := qb.SelectSubquery("id", "subscriber",
//	    iptvportal.Where(iptvportal.Eq("username", "test")))
//	req, err := qb.Delete("subscriber_package",
//	    iptvportal.Where(iptvportal.In("subscriber_id", sub)))
//
// Honored modifiers: Where. The fragment shape is {"select":{data,from,where?}}.
func (b *Builder) SelectSubquery(data any, from any, mods ...func(*QueryMods)) Subquery {
	q := applyMods(mods)

	inner, err := setJSONValue("{}", "data", data)
	if err == nil {
		inner, err = setJSONValue(inner, "from", from)
	}
	if err == nil && q.where != nil {
		inner, err = setJSONValue(inner, "where", *q.where)
	}

	var raw string
	if err == nil {
		raw, err = sjson.SetRaw("{}", "select", inner)
	}
	if err != nil {
		return Subquery{err: fmt.Errorf("select subquery: %w", err)}
	}

	return Subquery{raw: raw}
}

// newReq assigns the next request id and wraps the params in an envelope
func (b *Builder) newReq(method, params string) Req {
	return Req{
		Method: method,
		Params: params,
		ID:     b.id.Add(1),
	}
}
