// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package iptvportal

import (
	"errors"
	"testing"
)

var errTestSentinel = errors.New("test error")

// TestConditionOperators tests the canonical shape of each condition operator
func TestConditionOperators(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		want string
	}{
		{
			name: "eq",
			cond: Eq("id", 5402),
			want: `{"eq":["id",5402]}`,
		},
		{
			name: "eq string value",
			cond: Eq("status", "active"),
			want: `{"eq":["status","active"]}`,
		},
		{
			name: "neq",
			cond: Neq("status", "disabled"),
			want: `{"neq":["status","disabled"]}`,
		},
		{
			name: "gt",
			cond: Gt("views", 1000),
			want: `{"gt":["views",1000]}`,
		},
		{
			name: "gte",
			cond: Gte("views", 1000),
			want: `{"gte":["views",1000]}`,
		},
		{
			name: "lt",
			cond: Lt("number", 100),
			want: `{"lt":["number",100]}`,
		},
		{
			name: "lte",
			cond: Lte("number", 100),
			want: `{"lte":["number",100]}`,
		},
		{
			name: "in",
			cond: In("id", []int{1, 2, 3}),
			want: `{"in":["id",[1,2,3]]}`,
		},
		{
			name: "like",
			cond: Like("name", "%sport%"),
			want: `{"like":["name","%sport%"]}`,
		},
		{
			name: "ilike",
			cond: ILike("name", "%Sport%"),
			want: `{"ilike":["name","%Sport%"]}`,
		},
		{
			name: "is null",
			cond: Is("deleted_at", nil),
			want: `{"is":["deleted_at",null]}`,
		},
		{
			name: "is not null",
			cond: IsNot("deleted_at", nil),
			want: `{"is_not":["deleted_at",null]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.cond.Raw()
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if raw != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, raw)
			}
		})
	}
}

// TestConditionComposition tests that and/or preserve input order
func TestConditionComposition(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		want string
	}{
		{
			name: "and preserves order",
			cond: And(Eq("status", "active"), Gt("views", 1000), Lt("number", 50)),
			want: `{"and":[{"eq":["status","active"]},{"gt":["views",1000]},{"lt":["number",50]}]}`,
		},
		{
			name: "or preserves order",
			cond: Or(Eq("id", 1), Eq("id", 2)),
			want: `{"or":[{"eq":["id",1]},{"eq":["id",2]}]}`,
		},
		{
			name: "not wraps single condition",
			cond: Not(Eq("disabled", true)),
			want: `{"not":[{"eq":["disabled",true]}]}`,
		},
		{
			name: "nested composition",
			cond: Or(And(Eq("a", 1), Eq("b", 2)), Not(Eq("c", 3))),
			want: `{"or":[{"and":[{"eq":["a",1]},{"eq":["b",2]}]},{"not":[{"eq":["c",3]}]}]}`,
		},
		{
			name: "and with single condition",
			cond: And(Eq("id", 7)),
			want: `{"and":[{"eq":["id",7]}]}`,
		},
		{
			name: "empty and",
			cond: And(),
			want: `{"and":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.cond.Raw()
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if raw != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, raw)
			}
		})
	}
}

// TestConditionWithSubquery tests nesting a select fragment as an operand
func TestConditionWithSubquery(t *testing.T) {
	qb := NewBuilder()
	sub := qb.SelectSubquery("id", "subscriber", Where(Eq("username", "test")))
	if err := sub.Err(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	cond := In("subscriber_id", sub)
	raw, err := cond.Raw()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := `{"in":["subscriber_id",{"select":{"data":"id","from":"subscriber","where":{"eq":["username","test"]}}}]}`
	if raw != want {
		t.Errorf("Expected %s, got %s", want, raw)
	}
}

// TestConditionErrorPropagation tests that a failed operand is sticky
// through composition
func TestConditionErrorPropagation(t *testing.T) {
	bad := Condition{err: errTestSentinel}

	if And(Eq("a", 1), bad).Err() == nil {
		t.Error("Expected error to propagate through And")
	}
	if Or(bad).Err() == nil {
		t.Error("Expected error to propagate through Or")
	}
	if Not(bad).Err() == nil {
		t.Error("Expected error to propagate through Not")
	}
}
