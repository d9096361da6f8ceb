// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store provides persistence for library data using SQLite.
type Store struct {
	db        *sql.DB
	schema    *Schema
	libraryID int64
	now       func() time.Time
}

// OpenStore opens (creating if needed) the SQLite database at path.
func OpenStore(path string, schema *Schema, libraryID int64) (*Store, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	s, err := NewStore(db, schema, libraryID)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// openSQLite opens a database file with the pragmas both SQLite backends use.
func openSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps writers from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	return db, nil
}

// NewStore creates a new library store and initializes the schema.
func NewStore(db *sql.DB, schema *Schema, libraryID int64) (*Store, error) {
	if schema == nil {
		schema = DefaultSchema()
	}
	s := &Store{db: db, schema: schema, libraryID: libraryID, now: time.Now}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL UNIQUE,
		library_id INTEGER NOT NULL,
		item_type TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0,
		fields TEXT NOT NULL DEFAULT '[]',
		creators TEXT NOT NULL DEFAULT '[]',
		tags TEXT NOT NULL DEFAULT '[]',
		date_added TEXT NOT NULL,
		date_modified TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS collections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		parent_key TEXT,
		date_added TEXT NOT NULL,
		date_modified TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS collection_items (
		collection_id INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		PRIMARY KEY (collection_id, item_id),
		FOREIGN KEY (collection_id) REFERENCES collections(id) ON DELETE CASCADE,
		FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_items_type ON items(item_type);
	CREATE INDEX IF NOT EXISTS idx_collection_items_item ON collection_items(item_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Schema() *Schema { return s.schema }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Item operations

func (s *Store) NewItem(itemType string) (*Item, error) {
	return newItem(s.schema, itemType)
}

const itemColumns = `id, key, library_id, item_type, version, fields, creators, tags, date_added, date_modified`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (itemRecord, error) {
	var r itemRecord
	var fieldsJSON, creatorsJSON, tagsJSON, added, modified string
	err := row.Scan(&r.ID, &r.Key, &r.LibraryID, &r.ItemType, &r.Version, &fieldsJSON, &creatorsJSON, &tagsJSON, &added, &modified)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &r.Fields); err != nil {
		return r, fmt.Errorf("decode fields: %w", err)
	}
	if err := json.Unmarshal([]byte(creatorsJSON), &r.Creators); err != nil {
		return r, fmt.Errorf("decode creators: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
		return r, fmt.Errorf("decode tags: %w", err)
	}
	r.DateAdded, _ = time.Parse(time.RFC3339Nano, added)
	r.DateModified, _ = time.Parse(time.RFC3339Nano, modified)
	return r, nil
}

// ItemByKey retrieves an item by key. A missing item is (nil, nil).
func (s *Store) ItemByKey(ctx context.Context, key string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE key = ?`, key)
	r, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	memberships, err := s.memberships(ctx, []int64{r.ID})
	if err != nil {
		return nil, err
	}
	r.Collections = memberships[r.ID]
	return r.item(s.schema), nil
}

// ItemsByID returns the items for ids in the given order, skipping missing ones.
func (s *Store) ItemsByID(ctx context.Context, ids []int64) ([]*Item, error) {
	if len(ids) == 0 {
		return []*Item{}, nil
	}
	var records []itemRecord
	for _, chunk := range chunkIDs(ids, maxQueryArgs) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+itemColumns+` FROM items WHERE id IN (`+placeholders(len(chunk))+`)`, idArgs(chunk)...)
		if err != nil {
			return nil, err
		}
		batch, err := scanItems(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, batch...)
	}
	memberships, err := s.memberships(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := s.buildItems(records, memberships)

	items := make([]*Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			items = append(items, it)
		}
	}
	return items, nil
}

// allItems loads every item together with its memberships.
func (s *Store) allItems(ctx context.Context) (map[int64]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items`)
	if err != nil {
		return nil, err
	}
	records, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT item_id, collection_id FROM collection_items ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	memberships, err := scanMemberships(rows)
	if err != nil {
		return nil, err
	}
	return s.buildItems(records, memberships), nil
}

func scanItems(rows *sql.Rows) ([]itemRecord, error) {
	defer rows.Close()
	var records []itemRecord
	for rows.Next() {
		r, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) buildItems(records []itemRecord, memberships map[int64][]int64) map[int64]*Item {
	out := make(map[int64]*Item, len(records))
	for _, r := range records {
		r.Collections = memberships[r.ID]
		out[r.ID] = r.item(s.schema)
	}
	return out
}

func (s *Store) memberships(ctx context.Context, itemIDs []int64) (map[int64][]int64, error) {
	out := make(map[int64][]int64, len(itemIDs))
	for _, chunk := range chunkIDs(itemIDs, maxQueryArgs) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT item_id, collection_id FROM collection_items WHERE item_id IN (`+placeholders(len(chunk))+`) ORDER BY rowid`, idArgs(chunk)...)
		if err != nil {
			return nil, err
		}
		batch, err := scanMemberships(rows)
		if err != nil {
			return nil, err
		}
		for itemID, cids := range batch {
			out[itemID] = cids
		}
	}
	return out, nil
}

func scanMemberships(rows *sql.Rows) (map[int64][]int64, error) {
	defer rows.Close()
	out := make(map[int64][]int64)
	for rows.Next() {
		var itemID, collectionID int64
		if err := rows.Scan(&itemID, &collectionID); err != nil {
			return nil, err
		}
		out[itemID] = append(out[itemID], collectionID)
	}
	return out, rows.Err()
}

// Commit saves an item in a single transaction.
func (s *Store) Commit(ctx context.Context, item *Item) error {
	prev := item.snapshotStamp()
	isNew := item.Key == ""
	if err := item.stamp(0, s.libraryID, s.now().UTC()); err != nil {
		return err
	}
	if err := s.commit(ctx, item, isNew); err != nil {
		item.restoreStamp(prev)
		return err
	}
	return nil
}

func (s *Store) commit(ctx context.Context, item *Item, isNew bool) error {
	r := item.record()
	fieldsJSON, _ := json.Marshal(nonNil(r.Fields))
	creatorsJSON, _ := json.Marshal(nonNil(r.Creators))
	tagsJSON, _ := json.Marshal(nonNil(r.Tags))
	added := r.DateAdded.Format(time.RFC3339Nano)
	modified := r.DateModified.Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if isNew {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO items (key, library_id, item_type, version, fields, creators, tags, date_added, date_modified)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.Key, r.LibraryID, r.ItemType, r.Version, string(fieldsJSON), string(creatorsJSON), string(tagsJSON), added, modified)
		if err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
		item.ID = id
	} else {
		res, err := tx.ExecContext(ctx, `
			UPDATE items
			SET version = ?, fields = ?, creators = ?, tags = ?, date_modified = ?
			WHERE id = ?
		`, r.Version, string(fieldsJSON), string(creatorsJSON), string(tagsJSON), modified, r.ID)
		if err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("update item %s: %w", r.Key, ErrNotFound)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM collection_items WHERE item_id = ?`, item.ID); err != nil {
		return fmt.Errorf("clear collections: %w", err)
	}
	for _, cid := range item.Collections {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO collection_items (collection_id, item_id) VALUES (?, ?)`, cid, item.ID); err != nil {
			return fmt.Errorf("add to collection %d: %w", cid, err)
		}
	}

	return tx.Commit()
}

// Erase removes an item and its collection memberships.
func (s *Store) Erase(ctx context.Context, item *Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM collection_items WHERE item_id IN (SELECT id FROM items WHERE key = ?)`, item.Key); err != nil {
		return fmt.Errorf("clear collections: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE key = ?`, item.Key)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("erase item %s: %w", item.Key, ErrNotFound)
	}
	return tx.Commit()
}

// Collection operations

func (s *Store) CreateCollection(ctx context.Context, name, parentKey string) (*Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("collection name is required")
	}
	if parentKey != "" {
		parent, err := s.CollectionByKey(ctx, parentKey)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("parent collection %s: %w", parentKey, ErrNotFound)
		}
	}

	key, err := newKey()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c := &Collection{
		Key:          key,
		Name:         name,
		ParentKey:    parentKey,
		DateAdded:    now,
		DateModified: now,
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (key, name, parent_key, date_added, date_modified)
		VALUES (?, ?, ?, ?, ?)
	`, c.Key, c.Name, nullString(c.ParentKey), now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert collection: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("insert collection: %w", err)
	}
	return c, nil
}

func scanCollection(row rowScanner) (*Collection, error) {
	var c Collection
	var parent sql.NullString
	var added, modified string
	if err := row.Scan(&c.ID, &c.Key, &c.Name, &parent, &added, &modified); err != nil {
		return nil, err
	}
	if parent.Valid {
		c.ParentKey = parent.String
	}
	c.DateAdded, _ = time.Parse(time.RFC3339Nano, added)
	c.DateModified, _ = time.Parse(time.RFC3339Nano, modified)
	return &c, nil
}

const collectionColumns = `id, key, name, parent_key, date_added, date_modified`

// CollectionByKey retrieves a collection by key. A missing collection is (nil, nil).
func (s *Store) CollectionByKey(ctx context.Context, key string) (*Collection, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+collectionColumns+` FROM collections WHERE key = ?`, key)
	c, err := scanCollection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (s *Store) CollectionsByID(ctx context.Context, ids []int64) ([]*Collection, error) {
	if len(ids) == 0 {
		return []*Collection{}, nil
	}
	byID := make(map[int64]*Collection, len(ids))
	for _, chunk := range chunkIDs(ids, maxQueryArgs) {
		if err := s.collectionsIn(ctx, chunk, byID); err != nil {
			return nil, err
		}
	}

	out := make([]*Collection, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) collectionsIn(ctx context.Context, ids []int64, into map[int64]*Collection) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE id IN (`+placeholders(len(ids))+`)`, idArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return err
		}
		into[c.ID] = c
	}
	return rows.Err()
}

func (s *Store) ListCollections(ctx context.Context) ([]*Collection, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+collectionColumns+` FROM collections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Search

// Query runs the conditions against every item in the library.
func (s *Store) Query(ctx context.Context, q *Query) ([]int64, error) {
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

	items, err := s.allItems(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(items))
	for id, it := range items {
		if matches(it, ms) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// maxQueryArgs bounds the bound variables in one IN clause. SQLite rejects
// statements with more than 32766.
const maxQueryArgs = 500

// chunkIDs splits ids into consecutive slices of at most size elements.
func chunkIDs(ids []int64, size int) [][]int64 {
	var out [][]int64
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func idArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
