// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package library

import (
	"fmt"
	"strconv"
	"strings"
)

// Operators understood by the query engine.
const (
	OpIs             = "is"
	OpIsNot          = "isNot"
	OpContains       = "contains"
	OpDoesNotContain = "doesNotContain"
	OpBeginsWith     = "beginsWith"
	OpIsBefore       = "isBefore"
	OpIsAfter        = "isAfter"
	OpIsLessThan     = "isLessThan"
	OpIsGreaterThan  = "isGreaterThan"
)

var operators = map[string]struct{}{
	OpIs: {}, OpIsNot: {}, OpContains: {}, OpDoesNotContain: {}, OpBeginsWith: {},
	OpIsBefore: {}, OpIsAfter: {}, OpIsLessThan: {}, OpIsGreaterThan: {},
}

// matcher evaluates one condition against an item.
type matcher struct {
	required bool
	match    func(*Item) bool
}

// collectionResolver maps a collection key to its ID.
type collectionResolver func(key string) (int64, bool, error)

// compileQuery validates a query and turns it into matchers.
func compileQuery(q *Query, schema *Schema, resolve collectionResolver) ([]matcher, error) {
	if q == nil {
		return nil, nil
	}
	out := make([]matcher, 0, len(q.Conditions))
	for _, c := range q.Conditions {
		if _, ok := operators[c.Operator]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, c.Operator)
		}
		values, err := conditionValues(c.Condition, schema)
		if err != nil {
			return nil, err
		}

		m := matcher{required: c.Required}
		if c.Condition == "collection" {
			if c.Operator != OpIs && c.Operator != OpIsNot {
				return nil, fmt.Errorf("%w: %q is not supported for collection", ErrUnknownOperator, c.Operator)
			}
			id, ok, err := resolve(c.Value)
			if err != nil {
				return nil, fmt.Errorf("resolve collection %q: %w", c.Value, err)
			}
			negate := c.Operator == OpIsNot
			m.match = func(it *Item) bool {
				in := ok && it.InCollection(id)
				return in != negate
			}
		} else {
			op, value := c.Operator, c.Value
			m.match = func(it *Item) bool {
				return compare(values(it), op, value)
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// conditionValues returns the extractor for the values a condition inspects.
func conditionValues(condition string, schema *Schema) (func(*Item) []string, error) {
	switch condition {
	case "collection":
		return nil, nil
	case "itemType":
		return func(it *Item) []string { return []string{it.ItemType} }, nil
	case "key":
		return func(it *Item) []string { return []string{it.Key} }, nil
	case "tag":
		return func(it *Item) []string {
			out := make([]string, 0, len(it.tags))
			for _, t := range it.tags {
				out = append(out, t.Tag)
			}
			return out
		}, nil
	case "creator":
		return func(it *Item) []string {
			out := make([]string, 0, len(it.Creators)*2)
			for _, c := range it.Creators {
				for _, part := range []string{c.FirstName, c.LastName, c.Name} {
					if part != "" {
						out = append(out, part)
					}
				}
			}
			return out
		}, nil
	case "dateAdded":
		return func(it *Item) []string { return []string{it.DateAdded.UTC().Format(DateFormat)} }, nil
	case "dateModified":
		return func(it *Item) []string { return []string{it.DateModified.UTC().Format(DateFormat)} }, nil
	case "anyField":
		return func(it *Item) []string {
			out := make([]string, 0, len(it.fields))
			for _, f := range it.fields {
				out = append(out, f.Value)
			}
			return out
		}, nil
	}
	if schema.IsField(condition) {
		return func(it *Item) []string {
			if v := it.Field(condition); v != "" {
				return []string{v}
			}
			return nil
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCondition, condition)
}

// compare applies op across a multi-valued attribute. Positive operators match
// when any value matches; negated operators match when no value does.
func compare(values []string, op, want string) bool {
	switch op {
	case OpIsNot:
		return !anyOf(values, func(v string) bool { return v == want })
	case OpDoesNotContain:
		return !anyOf(values, func(v string) bool { return containsFold(v, want) })
	}
	return anyOf(values, func(v string) bool {
		switch op {
		case OpIs:
			return v == want
		case OpContains:
			return containsFold(v, want)
		case OpBeginsWith:
			return strings.HasPrefix(strings.ToLower(v), strings.ToLower(want))
		case OpIsBefore:
			return v < want
		case OpIsAfter:
			return v > want
		case OpIsLessThan, OpIsGreaterThan:
			a, errA := strconv.ParseFloat(v, 64)
			b, errB := strconv.ParseFloat(want, 64)
			if errA != nil || errB != nil {
				return false
			}
			if op == OpIsLessThan {
				return a < b
			}
			return a > b
		}
		return false
	})
}

func anyOf(values []string, pred func(string) bool) bool {
	for _, v := range values {
		if pred(v) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// matches reports whether an item satisfies the compiled query: every required
// matcher must hold, and at least one optional matcher when any exist.
func matches(it *Item, ms []matcher) bool {
	optional, optionalHit := 0, false
	for _, m := range ms {
		if m.required {
			if !m.match(it) {
				return false
			}
			continue
		}
		optional++
		if !optionalHit && m.match(it) {
			optionalHit = true
		}
	}
	return optional == 0 || optionalHit
}
