// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package bridge

import (
	"errors"
	"fmt"
)

// ErrInvalidJSON marks request bodies that could not be parsed.
var ErrInvalidJSON = errors.New("invalid JSON")

// ValidationError is a request the bridge refused before touching the store.
// Details are merged into the error envelope next to the message.
type ValidationError struct {
	Message string
	Details map[string]any
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports a key that does not resolve to an item.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("item not found: %s", e.Key) }

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
