// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtreilly/arc-bridge/internal/bridge"
	"github.com/mtreilly/arc-bridge/internal/config"
	"github.com/mtreilly/arc-bridge/internal/library"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Bind: "127.0.0.1", Port: 23120},
		Storage: config.StorageConfig{Backend: config.BackendMemory},
		Plugin:  config.PluginConfig{Name: "arc-bridge", Version: "test"},
		Host:    config.HostConfig{LibraryID: 1},
		Search:  config.SearchConfig{DefaultLimit: 100},
	}
}

func run(t *testing.T, store library.RecordStore, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(testConfig(), store, nil)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func newStore(t *testing.T) library.RecordStore {
	t.Helper()
	s, err := library.NewKVStore(library.NewMemoryKV(), nil, 1)
	require.NoError(t, err)
	return s
}

func seedItem(t *testing.T, store library.RecordStore, itemType, title string) *library.Item {
	t.Helper()
	it, err := store.NewItem(itemType)
	require.NoError(t, err)
	if title != "" {
		require.NoError(t, it.SetField("title", title))
	}
	require.NoError(t, store.Commit(context.Background(), it))
	return it
}

func TestTypesCommand(t *testing.T) {
	store := newStore(t)

	out, err := run(t, store, "types")
	require.NoError(t, err)
	assert.Contains(t, out, "journalArticle")

	out, err = run(t, store, "types", "--json")
	require.NoError(t, err)
	var payload struct {
		ItemTypes []struct {
			Name string `json:"name"`
		} `json:"itemTypes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Len(t, payload.ItemTypes, len(store.Schema().ItemTypes))

	_, err = run(t, store, "types", "-o", "xml")
	require.Error(t, err)
}

func TestCollectionCommands(t *testing.T) {
	store := newStore(t)
	item := seedItem(t, store, "book", "Dune")

	out, err := run(t, store, "collection", "create", "Reading")
	require.NoError(t, err)
	assert.Contains(t, out, "Created collection: Reading")

	colls, err := store.ListCollections(context.Background())
	require.NoError(t, err)
	require.Len(t, colls, 1)
	key := colls[0].Key

	_, err = run(t, store, "collection", "create", "Orphan", "--parent", "ZZZZZZZZ")
	require.Error(t, err)

	out, err = run(t, store, "collection", "add", key, item.Key, "NOSUCHKY")
	require.NoError(t, err)
	assert.Contains(t, out, "Item not found: NOSUCHKY")
	assert.Contains(t, out, "Updated 1 item(s) in Reading.")

	got, _ := store.ItemByKey(context.Background(), item.Key)
	assert.True(t, got.InCollection(colls[0].ID))

	out, err = run(t, store, "collection", "list", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, key)

	_, err = run(t, store, "collection", "remove", key, item.Key)
	require.NoError(t, err)
	got, _ = store.ItemByKey(context.Background(), item.Key)
	assert.False(t, got.InCollection(colls[0].ID))
}

func TestSearchCommand(t *testing.T) {
	store := newStore(t)
	seedItem(t, store, "book", "Dune")
	seedItem(t, store, "book", "Emma")
	seedItem(t, store, "note", "")

	out, err := run(t, store, "search", "--json")
	require.NoError(t, err)
	var resp struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 2, resp.Total)

	out, err = run(t, store, "search", "-c", "title:contains:dun")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 item(s)")
	assert.Contains(t, out, "Dune")
	assert.NotContains(t, out, "Emma")

	out, err = run(t, store, "search", "--any", "title:is:Dune", "--any", "title:is:Emma", "-n", "1", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.Total)

	_, err = run(t, store, "search", "-c", "title")
	require.Error(t, err)
}

func TestItemCommands(t *testing.T) {
	store := newStore(t)
	item := seedItem(t, store, "webpage", "Home")

	out, err := run(t, store, "item", "get", item.Key)
	require.NoError(t, err)
	var got bridge.ItemJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	title, _ := got.Fields.Get("title")
	assert.Equal(t, "Home", title)

	_, err = run(t, store, "item", "delete", item.Key)
	require.NoError(t, err)
	_, err = run(t, store, "item", "get", item.Key)
	var nf *bridge.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestParseCondition(t *testing.T) {
	c, err := parseCondition("url:beginsWith:https://example.org", true)
	require.NoError(t, err)
	assert.Equal(t, "url", c.Condition)
	assert.Equal(t, "beginsWith", c.Operator)
	assert.Equal(t, bridge.Scalar("https://example.org"), c.Value)
	require.NotNil(t, c.Required)
	assert.True(t, *c.Required)

	_, err = parseCondition("::x", true)
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.True(t, strings.HasPrefix(truncate("ééééééé", 5), "éé"))
}
