// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package library

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultSchema(t *testing.T) {
	s := DefaultSchema()

	for _, name := range []string{"book", "journalArticle", "webpage", "attachment", "note"} {
		if _, ok := s.ItemType(name); !ok {
			t.Errorf("item type %q missing", name)
		}
	}
	if !s.IsValidField("book", "ISBN") {
		t.Error("book should accept ISBN")
	}
	if s.IsValidField("note", "title") {
		t.Error("note should not accept title")
	}
	if s.IsValidField("nope", "title") {
		t.Error("unknown type accepted a field")
	}
	if !s.IsField("publicationTitle") || s.IsField("bogus") {
		t.Error("IsField mismatch")
	}
	if !s.IsCreatorType("editor") || s.IsCreatorType("wizard") {
		t.Error("IsCreatorType mismatch")
	}
	names := s.ItemTypeNames()
	if len(names) != len(s.ItemTypes) || names[0] != "artwork" {
		t.Errorf("ItemTypeNames: %v", names)
	}
}

func TestParseSchemaErrors(t *testing.T) {
	cases := map[string]string{
		"empty":     "creatorTypes: [author]\n",
		"no name":   "itemTypes:\n  - fields: [title]\n",
		"duplicate": "itemTypes:\n  - name: a\n  - name: a\n",
		"bad yaml":  "itemTypes: [",
	}
	for name, in := range cases {
		if _, err := ParseSchema([]byte(in)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadSchemaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	data := "creatorTypes: [author]\nitemTypes:\n  - name: memo\n    fields: [title, extra]\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSchemaFile(path)
	if err != nil {
		t.Fatalf("LoadSchemaFile: %v", err)
	}
	if !s.IsValidField("memo", "extra") {
		t.Fatal("memo.extra missing")
	}
	if _, err := LoadSchemaFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
