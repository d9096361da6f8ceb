// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// KV is the minimal key-value backend KVStore needs.
// Get returns ErrNotFound for missing keys.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryKV is an in-memory KV. Nothing survives the process.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV creates an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// KVStore implements RecordStore on top of a KV.
type KVStore struct {
	kv        KV
	schema    *Schema
	libraryID int64

	// mu serializes writes so index maintenance stays consistent.
	mu  sync.Mutex
	now func() time.Time
}

// NewKVStore creates a record store backed by the given KV.
func NewKVStore(kv KV, schema *Schema, libraryID int64) (*KVStore, error) {
	if kv == nil {
		return nil, errors.New("kv is nil")
	}
	if schema == nil {
		schema = DefaultSchema()
	}
	return &KVStore{kv: kv, schema: schema, libraryID: libraryID, now: time.Now}, nil
}

// generateKey creates namespaced keys for different entity types.
func (s *KVStore) generateKey(prefix, id string) string {
	return fmt.Sprintf("arc-bridge:%s:%s", prefix, id)
}

func (s *KVStore) Schema() *Schema { return s.schema }

// Close closes the underlying KV when it holds resources.
func (s *KVStore) Close() error {
	if c, ok := s.kv.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Item operations

func (s *KVStore) NewItem(itemType string) (*Item, error) {
	return newItem(s.schema, itemType)
}

func (s *KVStore) ItemByKey(ctx context.Context, key string) (*Item, error) {
	data, err := s.kv.Get(ctx, s.generateKey("item", key))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var r itemRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return r.item(s.schema), nil
}

func (s *KVStore) itemByID(ctx context.Context, id int64) (*Item, error) {
	keyData, err := s.kv.Get(ctx, s.generateKey("item:id", strconv.FormatInt(id, 10)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.ItemByKey(ctx, string(keyData))
}

func (s *KVStore) ItemsByID(ctx context.Context, ids []int64) ([]*Item, error) {
	items := make([]*Item, 0, len(ids))
	for _, id := range ids {
		it, err := s.itemByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if it == nil {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

func (s *KVStore) Commit(ctx context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	isNew := item.Key == ""
	var id int64
	if isNew {
		next, err := s.nextID(ctx, "item")
		if err != nil {
			return err
		}
		id = next
	} else {
		// The item may have been erased since the caller loaded it.
		if _, err := s.kv.Get(ctx, s.generateKey("item", item.Key)); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("update item %s: %w", item.Key, ErrNotFound)
			}
			return err
		}
	}

	prev := item.snapshotStamp()
	if err := item.stamp(id, s.libraryID, s.now().UTC()); err != nil {
		return err
	}
	if err := s.writeItem(ctx, item, isNew); err != nil {
		// Leave the caller's item as it was before the failed commit.
		item.restoreStamp(prev)
		return err
	}
	return nil
}

func (s *KVStore) writeItem(ctx context.Context, item *Item, isNew bool) error {
	data, err := json.Marshal(item.record())
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	if err := s.kv.Set(ctx, s.generateKey("item", item.Key), data); err != nil {
		return fmt.Errorf("set item: %w", err)
	}
	if !isNew {
		return nil
	}
	idKey := s.generateKey("item:id", strconv.FormatInt(item.ID, 10))
	if err := s.kv.Set(ctx, idKey, []byte(item.Key)); err != nil {
		return fmt.Errorf("set item id index: %w", err)
	}
	return s.addToIndex(ctx, "items", item.ID)
}

func (s *KVStore) Erase(ctx context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.ItemByKey(ctx, item.Key)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("erase item %s: %w", item.Key, ErrNotFound)
	}

	if err := s.removeFromIndex(ctx, "items", existing.ID); err != nil {
		return err
	}
	_ = s.kv.Delete(ctx, s.generateKey("item:id", strconv.FormatInt(existing.ID, 10)))
	return s.kv.Delete(ctx, s.generateKey("item", existing.Key))
}

// Collection operations

func (s *KVStore) CreateCollection(ctx context.Context, name, parentKey string) (*Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("collection name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if parentKey != "" {
		parent, err := s.CollectionByKey(ctx, parentKey)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("parent collection %s: %w", parentKey, ErrNotFound)
		}
	}

	id, err := s.nextID(ctx, "collection")
	if err != nil {
		return nil, err
	}
	key, err := newKey()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c := &Collection{
		ID:           id,
		Key:          key,
		Name:         name,
		ParentKey:    parentKey,
		DateAdded:    now,
		DateModified: now,
	}

	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal collection: %w", err)
	}
	if err := s.kv.Set(ctx, s.generateKey("collection", c.Key), data); err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, s.generateKey("collection:id", strconv.FormatInt(id, 10)), []byte(c.Key)); err != nil {
		return nil, err
	}
	if err := s.addToIndex(ctx, "collections", id); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *KVStore) CollectionByKey(ctx context.Context, key string) (*Collection, error) {
	data, err := s.kv.Get(ctx, s.generateKey("collection", key))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal collection: %w", err)
	}
	return &c, nil
}

func (s *KVStore) CollectionsByID(ctx context.Context, ids []int64) ([]*Collection, error) {
	out := make([]*Collection, 0, len(ids))
	for _, id := range ids {
		keyData, err := s.kv.Get(ctx, s.generateKey("collection:id", strconv.FormatInt(id, 10)))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		c, err := s.CollectionByKey(ctx, string(keyData))
		if err != nil {
			return nil, err
		}
		if c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *KVStore) ListCollections(ctx context.Context) ([]*Collection, error) {
	ids, err := s.getIndex(ctx, "collections")
	if err != nil {
		return nil, err
	}
	collections, err := s.CollectionsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(collections, func(i, j int) bool {
		return collections[i].Name < collections[j].Name
	})
	return collections, nil
}

// Search

func (s *KVStore) Query(ctx context.Context, q *Query) ([]int64, error) {
	ms, err := compileQuery(q, s.schema, func(key string) (int64, bool, error) {
		c, err := s.CollectionByKey(ctx, key)
		if err != nil || c == nil {
			return 0, false, err
		}
		return c.ID, true, nil
	})
	if err != nil {
		return nil, err
	}

	ids, err := s.getIndex(ctx, "items")
	if err != nil {
		return nil, err
	}
	items, err := s.ItemsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]int64, 0, len(items))
	for _, it := range items {
		if matches(it, ms) {
			out = append(out, it.ID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Index maintenance

func (s *KVStore) nextID(ctx context.Context, entity string) (int64, error) {
	seqKey := s.generateKey("seq", entity)
	var n int64
	data, err := s.kv.Get(ctx, seqKey)
	switch {
	case err == nil:
		n, err = strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %s sequence: %w", entity, err)
		}
	case !errors.Is(err, ErrNotFound):
		return 0, err
	}
	n++
	if err := s.kv.Set(ctx, seqKey, []byte(strconv.FormatInt(n, 10))); err != nil {
		return 0, fmt.Errorf("set %s sequence: %w", entity, err)
	}
	return n, nil
}

func (s *KVStore) addToIndex(ctx context.Context, name string, id int64) error {
	ids, err := s.getIndex(ctx, name)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)
	data, _ := json.Marshal(ids)
	return s.kv.Set(ctx, s.generateKey("index", name), data)
}

func (s *KVStore) removeFromIndex(ctx context.Context, name string, id int64) error {
	ids, err := s.getIndex(ctx, name)
	if err != nil {
		return err
	}
	newIDs := make([]int64, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			newIDs = append(newIDs, existing)
		}
	}
	data, _ := json.Marshal(newIDs)
	return s.kv.Set(ctx, s.generateKey("index", name), data)
}

func (s *KVStore) getIndex(ctx context.Context, name string) ([]int64, error) {
	data, err := s.kv.Get(ctx, s.generateKey("index", name))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("unmarshal %s index: %w", name, err)
	}
	return ids, nil
}
