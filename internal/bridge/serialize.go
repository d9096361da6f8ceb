// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mtreilly/arc-bridge/internal/library"
)

// fallbackFields are probed after the item type's own fields so values stored
// under a common name still reach the client.
var fallbackFields = []string{"title", "abstractNote", "url", "accessDate", "date", "extra"}

// FieldMap is a string map that keeps insertion order on the wire.
type FieldMap struct {
	keys   []string
	values map[string]string
}

// Set adds or overwrites a field. New keys go to the end.
func (m *FieldMap) Set(name, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[name]; !ok {
		m.keys = append(m.keys, name)
	}
	m.values[name] = value
}

// Get returns a field value and whether it is present.
func (m FieldMap) Get(name string) (string, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Keys returns the field names in insertion order.
func (m FieldMap) Keys() []string { return append([]string(nil), m.keys...) }

// Len returns the number of fields.
func (m FieldMap) Len() int { return len(m.keys) }

func (m FieldMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *FieldMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("fields: expected object")
	}
	*m = FieldMap{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("fields.%s: %w", name, err)
		}
		m.Set(name, value)
	}
	_, err = dec.Token()
	return err
}

// ItemJSON is the wire form of an item.
type ItemJSON struct {
	Key          string            `json:"key"`
	ItemID       int64             `json:"itemID"`
	ItemType     string            `json:"itemType"`
	Version      int               `json:"version"`
	LibraryID    int64             `json:"libraryID"`
	DateAdded    string            `json:"dateAdded"`
	DateModified string            `json:"dateModified"`
	Fields       FieldMap          `json:"fields"`
	Creators     []library.Creator `json:"creators"`
	Tags         []library.Tag     `json:"tags"`
	Collections  []string          `json:"collections"`
}

// Serialize renders an item in its wire form. Collection IDs are reported
// as collection keys.
func (s *Service) Serialize(ctx context.Context, item *library.Item) (*ItemJSON, error) {
	out := &ItemJSON{
		Key:          item.Key,
		ItemID:       item.ID,
		ItemType:     item.ItemType,
		Version:      item.Version,
		LibraryID:    item.LibraryID,
		DateAdded:    formatDate(item.DateAdded),
		DateModified: formatDate(item.DateModified),
		Fields:       collectFields(s.store.Schema(), item),
		Creators:     append([]library.Creator{}, item.Creators...),
		Tags:         append([]library.Tag{}, item.Tags()...),
		Collections:  []string{},
	}

	if len(item.Collections) > 0 {
		colls, err := s.store.CollectionsByID(ctx, item.Collections)
		if err != nil {
			return nil, fmt.Errorf("load collections for %s: %w", item.Key, err)
		}
		for _, c := range colls {
			out.Collections = append(out.Collections, c.Key)
		}
	}
	return out, nil
}

// collectFields gathers the item type's fields in schema order, then any
// fallback field that is set but was not listed for the type.
func collectFields(schema *library.Schema, item *library.Item) FieldMap {
	var fields FieldMap
	if t, ok := schema.ItemType(item.ItemType); ok {
		for _, name := range t.Fields {
			if v := item.Field(name); v != "" {
				fields.Set(name, v)
			}
		}
	}
	for _, name := range fallbackFields {
		if _, done := fields.Get(name); done {
			continue
		}
		if v := item.Field(name); v != "" {
			fields.Set(name, v)
		}
	}
	return fields
}
