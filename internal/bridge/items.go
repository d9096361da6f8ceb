// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mtreilly/arc-bridge/internal/library"
	"go.uber.org/zap"
)

// CreateResponse is returned for a newly created item.
type CreateResponse struct {
	Key      string `json:"key"`
	ItemID   int64  `json:"itemID"`
	Version  int    `json:"version"`
	ItemType string `json:"itemType"`
}

// UpdateResponse is returned after an update is committed.
type UpdateResponse struct {
	Key          string `json:"key"`
	Version      int    `json:"version"`
	DateModified string `json:"dateModified"`
}

// Create builds, populates and commits a new item.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*CreateResponse, error) {
	item, err := s.ApplyCreate(ctx, req)
	if err != nil {
		return nil, err
	}
	return &CreateResponse{
		Key:      item.Key,
		ItemID:   item.ID,
		Version:  item.Version,
		ItemType: item.ItemType,
	}, nil
}

// ApplyCreate validates the item type, applies the payload and commits.
// Fields and tags the store rejects are logged and skipped.
func (s *Service) ApplyCreate(ctx context.Context, req *CreateRequest) (*library.Item, error) {
	if err := s.validateItemType(req.ItemType); err != nil {
		return nil, err
	}
	item, err := s.store.NewItem(req.ItemType)
	if err != nil {
		return nil, fmt.Errorf("new item: %w", err)
	}

	s.applyFields(item, req.Fields)
	if err := s.applyCreators(item, req.Creators); err != nil {
		return nil, err
	}
	for _, t := range s.parseTags(req.Tags) {
		item.AddTag(t.Tag, t.Type)
	}
	if present(req.Collections) {
		ids, err := s.resolveCollections(ctx, req.Collections)
		if err != nil {
			return nil, err
		}
		// An empty resolved set leaves the new item with no collections.
		if len(ids) > 0 {
			item.SetCollections(ids)
		}
	}

	if err := s.store.Commit(ctx, item); err != nil {
		return nil, fmt.Errorf("commit item: %w", err)
	}
	s.logger.Info("item created",
		zap.String("key", item.Key),
		zap.String("item_type", item.ItemType),
		zap.Int64("item_id", item.ID),
	)
	return item, nil
}

// Get returns the serialized item for key.
func (s *Service) Get(ctx context.Context, key string) (*ItemJSON, error) {
	item, err := s.requireItem(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.Serialize(ctx, item)
}

// Update applies a partial update to an existing item and commits it.
func (s *Service) Update(ctx context.Context, req *ItemRequest) (*UpdateResponse, error) {
	item, err := s.requireItem(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyUpdate(ctx, item, req); err != nil {
		return nil, err
	}
	if err := s.store.Commit(ctx, item); err != nil {
		if errors.Is(err, library.ErrNotFound) {
			return nil, &NotFoundError{Key: req.Key}
		}
		return nil, fmt.Errorf("commit item %s: %w", item.Key, err)
	}
	s.logger.Info("item updated", zap.String("key", item.Key), zap.Int("version", item.Version))
	return &UpdateResponse{
		Key:          item.Key,
		Version:      item.Version,
		DateModified: formatDate(item.DateModified),
	}, nil
}

// ApplyUpdate mutates item in place. Named fields are overwritten and others
// left alone. Creators, tags and collections are replaced whenever present,
// including as an empty array.
func (s *Service) ApplyUpdate(ctx context.Context, item *library.Item, req *ItemRequest) error {
	s.applyFields(item, req.Fields)
	if err := s.applyCreators(item, req.Creators); err != nil {
		return err
	}
	if present(req.Tags) {
		for _, t := range item.Tags() {
			item.RemoveTag(t.Tag)
		}
		for _, t := range s.parseTags(req.Tags) {
			item.AddTag(t.Tag, t.Type)
		}
	}
	if present(req.Collections) {
		ids, err := s.resolveCollections(ctx, req.Collections)
		if err != nil {
			return err
		}
		item.SetCollections(ids)
	}
	return nil
}

// Delete erases the item for key.
func (s *Service) Delete(ctx context.Context, key string) error {
	item, err := s.requireItem(ctx, key)
	if err != nil {
		return err
	}
	if err := s.store.Erase(ctx, item); err != nil {
		if errors.Is(err, library.ErrNotFound) {
			return &NotFoundError{Key: key}
		}
		return fmt.Errorf("erase item %s: %w", key, err)
	}
	s.logger.Info("item deleted", zap.String("key", key))
	return nil
}

// applyFields sets every coercible field, in name order so repeated
// requests produce the same item.
func (s *Service) applyFields(item *library.Item, fields map[string]json.RawMessage) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value, ok := coerceScalar(fields[name])
		if !ok {
			s.logger.Warn("skipping non-scalar field value",
				zap.String("item_type", item.ItemType),
				zap.String("field", name),
			)
			continue
		}
		if err := item.SetField(name, value); err != nil {
			s.logger.Warn("skipping field",
				zap.String("item_type", item.ItemType),
				zap.String("field", name),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) applyCreators(item *library.Item, raw json.RawMessage) error {
	if !present(raw) {
		return nil
	}
	var creators []library.Creator
	if err := json.Unmarshal(raw, &creators); err != nil {
		s.logger.Warn("ignoring creators", zap.String("item_type", item.ItemType), zap.Error(err))
		return nil
	}
	if err := item.SetCreators(creators); err != nil {
		return fmt.Errorf("set creators: %w", err)
	}
	return nil
}

// parseTags accepts bare strings (manual tags) and {tag, type} objects.
// Anything else is logged and skipped.
func (s *Service) parseTags(raw json.RawMessage) []library.Tag {
	if !present(raw) {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn("ignoring tags", zap.Error(err))
		return nil
	}

	tags := make([]library.Tag, 0, len(entries))
	for i, e := range entries {
		var name string
		if err := json.Unmarshal(e, &name); err == nil {
			if name != "" {
				tags = append(tags, library.Tag{Tag: name, Type: library.TagManual})
				continue
			}
		} else {
			var obj struct {
				Tag  string `json:"tag"`
				Type int    `json:"type"`
			}
			if err := json.Unmarshal(e, &obj); err == nil && obj.Tag != "" {
				tags = append(tags, library.Tag{Tag: obj.Tag, Type: obj.Type})
				continue
			}
		}
		s.logger.Warn("skipping tag", zap.Int("index", i), zap.ByteString("value", e))
	}
	return tags
}

// resolveCollections maps collection keys to IDs. Unknown keys are dropped.
func (s *Service) resolveCollections(ctx context.Context, raw json.RawMessage) ([]int64, error) {
	var keys []json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		s.logger.Warn("ignoring collections", zap.Error(err))
		return nil, nil
	}

	ids := make([]int64, 0, len(keys))
	for _, k := range keys {
		var key string
		if err := json.Unmarshal(k, &key); err != nil || key == "" {
			s.logger.Warn("skipping collection", zap.ByteString("value", k))
			continue
		}
		c, err := s.store.CollectionByKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("resolve collection %s: %w", key, err)
		}
		if c == nil {
			s.logger.Warn("skipping unknown collection", zap.String("collection", key))
			continue
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(library.DateFormat)
}
