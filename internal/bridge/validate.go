// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mtreilly/arc-bridge/internal/library"
)

// Item actions accepted by the /item endpoint.
const (
	ActionGet    = "get"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

var validActions = []string{ActionGet, ActionUpdate, ActionDelete}

// CreateRequest is the /items body.
type CreateRequest struct {
	ItemType    string                     `json:"itemType"`
	Fields      map[string]json.RawMessage `json:"fields"`
	Creators    json.RawMessage            `json:"creators"`
	Tags        json.RawMessage            `json:"tags"`
	Collections json.RawMessage            `json:"collections"`
}

// ItemRequest is the /item body. Fields, Creators, Tags and Collections are
// only read for updates.
type ItemRequest struct {
	Action      string                     `json:"action"`
	Key         string                     `json:"key"`
	Fields      map[string]json.RawMessage `json:"fields"`
	Creators    json.RawMessage            `json:"creators"`
	Tags        json.RawMessage            `json:"tags"`
	Collections json.RawMessage            `json:"collections"`
}

// SearchCondition is one clause of a /search body.
type SearchCondition struct {
	Condition string `json:"condition"`
	Operator  string `json:"operator"`
	Value     Scalar `json:"value"`
	Required  *bool  `json:"required"`
}

// SearchRequest is the /search body.
type SearchRequest struct {
	Conditions      []SearchCondition `json:"conditions"`
	Limit           *int              `json:"limit"`
	IncludeFullData bool              `json:"includeFullData"`
}

// Scalar is a JSON string, number, bool or null read as a string.
type Scalar string

func (s *Scalar) UnmarshalJSON(data []byte) error {
	v, ok := coerceScalar(data)
	if !ok {
		return fmt.Errorf("expected a string, number or boolean, got %s", data)
	}
	*s = Scalar(v)
	return nil
}

// DecodeCreateRequest parses a /items body.
func DecodeCreateRequest(data []byte) (*CreateRequest, error) {
	var req CreateRequest
	if err := decodeBody(data, &req); err != nil {
		return nil, err
	}
	if req.ItemType == "" {
		return nil, invalid("itemType is required")
	}
	return &req, nil
}

// DecodeItemRequest parses a /item body and checks the action and key.
func DecodeItemRequest(data []byte) (*ItemRequest, error) {
	var req ItemRequest
	if err := decodeBody(data, &req); err != nil {
		return nil, err
	}
	if err := validateAction(req.Action); err != nil {
		return nil, err
	}
	if req.Key == "" {
		return nil, invalid("key is required")
	}
	return &req, nil
}

// DecodeSearchRequest parses a /search body.
func DecodeSearchRequest(data []byte) (*SearchRequest, error) {
	var req SearchRequest
	if err := decodeBody(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// decodeBody unmarshals a JSON object. An empty body decodes as {}.
func decodeBody(data []byte, v any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		data = []byte("{}")
	}
	if !json.Valid(data) {
		var probe any
		err := json.Unmarshal(data, &probe)
		return &ValidationError{Message: fmt.Sprintf("%v: %v", ErrInvalidJSON, err), Err: ErrInvalidJSON}
	}
	if data[0] != '{' {
		return &ValidationError{Message: fmt.Sprintf("%v: body must be a JSON object", ErrInvalidJSON), Err: ErrInvalidJSON}
	}
	if err := json.Unmarshal(data, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return invalid("invalid value for %s: expected %s", typeErr.Field, typeErr.Type)
		}
		return invalid("invalid request: %v", err)
	}
	return nil
}

func validateAction(action string) error {
	for _, a := range validActions {
		if action == a {
			return nil
		}
	}
	msg := "action is required"
	if action != "" {
		msg = fmt.Sprintf("invalid action: %s", action)
	}
	return &ValidationError{
		Message: msg,
		Details: map[string]any{"validActions": append([]string(nil), validActions...)},
	}
}

func (s *Service) validateItemType(itemType string) error {
	if itemType == "" {
		return invalid("itemType is required")
	}
	schema := s.store.Schema()
	if _, ok := schema.ItemType(itemType); ok {
		return nil
	}
	return &ValidationError{
		Message: fmt.Sprintf("invalid itemType: %s", itemType),
		Details: map[string]any{"validTypes": schema.ItemTypeNames()},
	}
}

// requireItem resolves key to an item or returns a NotFoundError.
func (s *Service) requireItem(ctx context.Context, key string) (*library.Item, error) {
	if key == "" {
		return nil, invalid("key is required")
	}
	item, err := s.store.ItemByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load item %s: %w", key, err)
	}
	if item == nil {
		return nil, &NotFoundError{Key: key}
	}
	return item, nil
}

// coerceScalar renders a JSON scalar as a field value. null becomes "".
func coerceScalar(raw json.RawMessage) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// present reports whether an optional array member was supplied.
// A JSON null counts as absent.
func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
