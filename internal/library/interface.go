// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package library

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when an item or collection does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidField is returned by Item.SetField for fields the item type does not accept.
	ErrInvalidField = errors.New("invalid field for item type")
	// ErrInvalidCreatorType is returned by Item.SetCreators for unknown creator types.
	ErrInvalidCreatorType = errors.New("invalid creator type")
	// ErrUnknownItemType is returned by NewItem for types outside the vocabulary.
	ErrUnknownItemType = errors.New("unknown item type")
	// ErrUnknownCondition is returned by Query for conditions outside the query vocabulary.
	ErrUnknownCondition = errors.New("unknown search condition")
	// ErrUnknownOperator is returned by Query for operators outside the query vocabulary.
	ErrUnknownOperator = errors.New("unknown search operator")
)

// RecordStore is the record store the HTTP bridge runs against.
// Implementations may use SQL, KV storage, or in-memory structures.
type RecordStore interface {
	// Vocabulary
	Schema() *Schema

	// Item operations
	NewItem(itemType string) (*Item, error)
	ItemByKey(ctx context.Context, key string) (*Item, error)
	ItemsByID(ctx context.Context, ids []int64) ([]*Item, error)
	Commit(ctx context.Context, item *Item) error
	Erase(ctx context.Context, item *Item) error

	// Collection operations
	CreateCollection(ctx context.Context, name, parentKey string) (*Collection, error)
	CollectionByKey(ctx context.Context, key string) (*Collection, error)
	CollectionsByID(ctx context.Context, ids []int64) ([]*Collection, error)
	ListCollections(ctx context.Context) ([]*Collection, error)

	// Search
	Query(ctx context.Context, q *Query) ([]int64, error)

	Close() error
}
