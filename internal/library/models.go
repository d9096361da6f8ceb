// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package library

import (
	"encoding/json"
	"time"
)

// Tag types.
const (
	TagManual    = 0
	TagAutomatic = 1
)

// DateFormat is the wire and storage layout for item timestamps (UTC).
const DateFormat = "2006-01-02 15:04:05"

// Item is a single bibliographic record in the library.
// Field values live behind SetField/Field so they can be checked against the
// item type's legal field set.
type Item struct {
	ID           int64
	Key          string
	LibraryID    int64
	ItemType     string
	Version      int
	Creators     []Creator
	Collections  []int64
	DateAdded    time.Time
	DateModified time.Time

	fields []fieldValue
	tags   []Tag
	schema *Schema
}

type fieldValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Creator is an author, editor or other contributor. Name holds the
// single-field form (institutions) and is empty for two-field creators.
type Creator struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Name        string `json:"name,omitempty"`
	CreatorType string `json:"creatorType"`
}

// MarshalJSON emits {name, creatorType} for single-field creators and
// {firstName, lastName, creatorType} otherwise, keeping empty name parts.
func (c Creator) MarshalJSON() ([]byte, error) {
	if c.Name != "" {
		return json.Marshal(struct {
			Name        string `json:"name"`
			CreatorType string `json:"creatorType"`
		}{c.Name, c.CreatorType})
	}
	return json.Marshal(struct {
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		CreatorType string `json:"creatorType"`
	}{c.FirstName, c.LastName, c.CreatorType})
}

// Tag is a label attached to an item.
type Tag struct {
	Tag  string `json:"tag"`
	Type int    `json:"type"`
}

// Collection represents a named group of items.
type Collection struct {
	ID           int64     `json:"id"`
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	ParentKey    string    `json:"parent_key,omitempty"`
	DateAdded    time.Time `json:"date_added"`
	DateModified time.Time `json:"date_modified"`
}

// Condition is one clause of a search. Condition and Operator are names from
// the query vocabulary (see query.go).
type Condition struct {
	Condition string
	Operator  string
	Value     string
	Required  bool
}

// Query is an ordered list of conditions.
type Query struct {
	Conditions []Condition
}

// AddCondition appends a condition to the query.
func (q *Query) AddCondition(condition, operator, value string, required bool) {
	q.Conditions = append(q.Conditions, Condition{
		Condition: condition,
		Operator:  operator,
		Value:     value,
		Required:  required,
	})
}
