// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package library

import (
	"fmt"
	"strings"
	"time"
)

func newItem(schema *Schema, itemType string) (*Item, error) {
	if _, ok := schema.ItemType(itemType); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownItemType, itemType)
	}
	return &Item{ItemType: itemType, schema: schema}, nil
}

// SetField sets a field value. An empty value clears the field.
// Fields the item type does not accept are rejected with ErrInvalidField.
func (it *Item) SetField(name, value string) error {
	if it.schema != nil && !it.schema.IsValidField(it.ItemType, name) {
		return fmt.Errorf("%w: %q is not valid for %s", ErrInvalidField, name, it.ItemType)
	}
	for i, f := range it.fields {
		if f.Name != name {
			continue
		}
		if value == "" {
			it.fields = append(it.fields[:i], it.fields[i+1:]...)
		} else {
			it.fields[i].Value = value
		}
		return nil
	}
	if value != "" {
		it.fields = append(it.fields, fieldValue{Name: name, Value: value})
	}
	return nil
}

// Field returns the value of a field, or "" when unset.
func (it *Item) Field(name string) string {
	for _, f := range it.fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// FieldNames lists set fields in the order they were first set.
func (it *Item) FieldNames() []string {
	names := make([]string, 0, len(it.fields))
	for _, f := range it.fields {
		names = append(names, f.Name)
	}
	return names
}

// SetCreators replaces the creator list. An empty creator type means author.
func (it *Item) SetCreators(creators []Creator) error {
	out := make([]Creator, 0, len(creators))
	for i, c := range creators {
		if c.CreatorType == "" {
			c.CreatorType = "author"
		}
		if it.schema != nil && !it.schema.IsCreatorType(c.CreatorType) {
			return fmt.Errorf("%w: %q at position %d", ErrInvalidCreatorType, c.CreatorType, i)
		}
		out = append(out, c)
	}
	it.Creators = out
	return nil
}

// AddTag attaches a tag. It reports false when the tag is blank or already present.
func (it *Item) AddTag(tag string, tagType int) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	for _, t := range it.tags {
		if t.Tag == tag {
			return false
		}
	}
	it.tags = append(it.tags, Tag{Tag: tag, Type: tagType})
	return true
}

// RemoveTag detaches a tag. It reports whether the tag was present.
func (it *Item) RemoveTag(tag string) bool {
	for i, t := range it.tags {
		if t.Tag == tag {
			it.tags = append(it.tags[:i], it.tags[i+1:]...)
			return true
		}
	}
	return false
}

// Tags returns a copy of the item's tags.
func (it *Item) Tags() []Tag {
	return append([]Tag(nil), it.tags...)
}

// HasTag reports whether the item carries tag.
func (it *Item) HasTag(tag string) bool {
	for _, t := range it.tags {
		if t.Tag == tag {
			return true
		}
	}
	return false
}

// SetCollections replaces collection membership. Duplicate IDs are collapsed.
func (it *Item) SetCollections(ids []int64) {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	it.Collections = out
}

// InCollection reports whether the item belongs to the collection with the given ID.
func (it *Item) InCollection(id int64) bool {
	for _, c := range it.Collections {
		if c == id {
			return true
		}
	}
	return false
}

// itemRecord is the persisted form of an Item.
type itemRecord struct {
	ID           int64        `json:"id"`
	Key          string       `json:"key"`
	LibraryID    int64        `json:"library_id"`
	ItemType     string       `json:"item_type"`
	Version      int          `json:"version"`
	Fields       []fieldValue `json:"fields"`
	Creators     []Creator    `json:"creators"`
	Tags         []Tag        `json:"tags"`
	Collections  []int64      `json:"collections"`
	DateAdded    time.Time    `json:"date_added"`
	DateModified time.Time    `json:"date_modified"`
}

func (it *Item) record() itemRecord {
	return itemRecord{
		ID:           it.ID,
		Key:          it.Key,
		LibraryID:    it.LibraryID,
		ItemType:     it.ItemType,
		Version:      it.Version,
		Fields:       append([]fieldValue(nil), it.fields...),
		Creators:     append([]Creator(nil), it.Creators...),
		Tags:         append([]Tag(nil), it.tags...),
		Collections:  append([]int64(nil), it.Collections...),
		DateAdded:    it.DateAdded,
		DateModified: it.DateModified,
	}
}

// item rebuilds an Item from storage. Stored field values are kept even when
// the current schema no longer lists them for the item type.
func (r itemRecord) item(schema *Schema) *Item {
	return &Item{
		ID:           r.ID,
		Key:          r.Key,
		LibraryID:    r.LibraryID,
		ItemType:     r.ItemType,
		Version:      r.Version,
		Creators:     r.Creators,
		Collections:  r.Collections,
		DateAdded:    r.DateAdded,
		DateModified: r.DateModified,
		fields:       r.Fields,
		tags:         r.Tags,
		schema:       schema,
	}
}

// stamp applies commit bookkeeping: identity on first save, version bump and
// modification time on every save.
func (it *Item) stamp(id int64, libraryID int64, now time.Time) error {
	if it.Key == "" {
		key, err := newKey()
		if err != nil {
			return err
		}
		it.Key = key
		it.ID = id
		it.LibraryID = libraryID
		it.DateAdded = now
	}
	it.Version++
	it.DateModified = now
	return nil
}

// stampState is the part of an item that stamp assigns.
type stampState struct {
	key          string
	id           int64
	libraryID    int64
	version      int
	dateAdded    time.Time
	dateModified time.Time
}

func (it *Item) snapshotStamp() stampState {
	return stampState{
		key:          it.Key,
		id:           it.ID,
		libraryID:    it.LibraryID,
		version:      it.Version,
		dateAdded:    it.DateAdded,
		dateModified: it.DateModified,
	}
}

// restoreStamp undoes a stamp whose commit failed.
func (it *Item) restoreStamp(st stampState) {
	it.Key = st.key
	it.ID = st.id
	it.LibraryID = st.libraryID
	it.Version = st.version
	it.DateAdded = st.dateAdded
	it.DateModified = st.dateModified
}
