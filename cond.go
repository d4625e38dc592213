// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package iptvportal

import (
	"fmt"

	"github.com/tidwall/sjson"
)

// Condition represents one node of a boolean condition tree used in where
// clauses. Conditions are immutable JSON fragments built with sjson; the
// canonical shape is a one-key object whose value is a fixed-position list
// of operands, field name(s) first:
//
//	iptvportal.Eq("id", 5402)          // {"eq":["id",5402]}
//	iptvportal.In("id", []int{1, 2})   // {"in":["id",[1,2]]}
//
// Composition preserves input order:
//
//	iptvportal.And(a, b, c)            // {"and":[a,b,c]}
//
// Construction errors are sticky: a failed operand propagates through any
// composition and surfaces when the condition is attached to a query.
type Condition struct {
	// raw contains the JSON fragment
	raw string
	// err tracks the first error encountered during building
	err error
}

// Raw returns the JSON text of the condition and any building error
func (q Condition) Raw() (string, error) {
	return q.raw, q.err
}

// Err returns any error that occurred while building the condition
func (q Condition) Err() error {
	return q.err
}

// Eq matches rows where field = value
func Eq(field string, value any) Condition { return operand("eq", field, value) }

// Neq matches rows where field != value
func Neq(field string, value any) Condition { return operand("neq", field, value) }

// Gt matches rows where field > value
func Gt(field string, value any) Condition { return operand("gt", field, value) }

// Gte matches rows where field >= value
func Gte(field string, value any) Condition { return operand("gte", field, value) }

// Lt matches rows where field < value
func Lt(field string, value any) Condition { return operand("lt", field, value) }

// Lte matches rows where field <= value
func Lte(field string, value any) Condition { return operand("lte", field, value) }

// In matches rows where field is a member of values.
//
// values is typically a slice, but may also be a Subquery fragment:
//
//	sub := qb.SelectSubquery("id", "subscriber",
//	    iptvportal.Where(iptvportal.Eq("username", "test")))
//	cond := iptvportal.In("subscriber_id", sub)
func In(field string, values any) Condition { return operand("in", field, values) }

// Like matches rows where field matches the SQL LIKE pattern
func Like(field string, pattern string) Condition { return operand("like", field, pattern) }

// ILike matches rows where field matches the pattern case-insensitively
func ILike(field string, pattern string) Condition { return operand("ilike", field, pattern) }

// Is matches rows where field IS value; use a nil value for NULL tests
func Is(field string, value any) Condition { return operand("is", field, value) }

// IsNot matches rows where field IS NOT value
func IsNot(field string, value any) Condition { return operand("is_not", field, value) }

// And composes conditions with boolean AND, preserving input order
func And(conditions ...Condition) Condition { return composite("and", conditions) }

// Or composes conditions with boolean OR, preserving input order
func Or(conditions ...Condition) Condition { return composite("or", conditions) }

// Not negates a single condition: {"not":[condition]}
func Not(condition Condition) Condition {
	if condition.err != nil {
		return Condition{err: fmt.Errorf("not: %w", condition.err)}
	}
	raw, err := sjson.SetRaw(`{"not":[]}`, "not.-1", condition.raw)
	if err != nil {
		return Condition{err: fmt.Errorf("not: %w", err)}
	}
	return Condition{raw: raw}
}

// operand builds a binary condition {"op":[field,value]}
func operand(op string, field string, value any) Condition {
	raw, err := sjson.Set(`{"`+op+`":[]}`, op+".-1", field)
	if err == nil {
		raw, err = setJSONValue(raw, op+".-1", value)
	}
	if err != nil {
		return Condition{err: fmt.Errorf("%s(%q): %w", op, field, err)}
	}
	return Condition{raw: raw}
}

// composite builds {"op":[cond,cond,...]} over an ordered condition list
func composite(op string, conditions []Condition) Condition {
	raw := `{"` + op + `":[]}`
	var err error
	for i, cond := range conditions {
		if cond.err != nil {
			return Condition{err: fmt.Errorf("%s: condition %d: %w", op, i, cond.err)}
		}
		raw, err = sjson.SetRaw(raw, op+".-1", cond.raw)
		if err != nil {
			return Condition{err: fmt.Errorf("%s: condition %d: %w", op, i, err)}
		}
	}
	return Condition{raw: raw}
}

// setJSONValue writes value at path, splicing prebuilt JSON fragments
// (Condition, Subquery) verbatim and marshaling everything else.
func setJSONValue(json, path string, value any) (string, error) {
	switch v := value.(type) {
	case Condition:
		if v.err != nil {
			return "", v.err
		}
		return sjson.SetRaw(json, path, v.raw)
	case Subquery:
		if v.err != nil {
			return "", v.err
		}
		return sjson.SetRaw(json, path, v.raw)
	default:
		return sjson.Set(json, path, v)
	}
}
