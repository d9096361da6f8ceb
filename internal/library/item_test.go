// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package library

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestItemSetField(t *testing.T) {
	item, err := newItem(DefaultSchema(), "journalArticle")
	if err != nil {
		t.Fatal(err)
	}

	if err := item.SetField("title", "On Computable Numbers"); err != nil {
		t.Fatalf("SetField title: %v", err)
	}
	if err := item.SetField("DOI", "10.1112/plms/s2-42.1.230"); err != nil {
		t.Fatalf("SetField DOI: %v", err)
	}
	if err := item.SetField("ISBN", "123"); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("SetField ISBN on journalArticle: got %v, want ErrInvalidField", err)
	}

	// Overwrite keeps position; empty value clears.
	item.SetField("title", "On Computable Numbers, with an Application")
	names := item.FieldNames()
	if len(names) != 2 || names[0] != "title" || names[1] != "DOI" {
		t.Fatalf("FieldNames: got %v", names)
	}
	item.SetField("DOI", "")
	if item.Field("DOI") != "" || len(item.FieldNames()) != 1 {
		t.Fatalf("empty value did not clear DOI: %v", item.FieldNames())
	}
}

func TestItemSetCreators(t *testing.T) {
	item, _ := newItem(DefaultSchema(), "book")

	err := item.SetCreators([]Creator{
		{FirstName: "Ada", LastName: "Lovelace"},
		{Name: "Royal Society", CreatorType: "contributor"},
	})
	if err != nil {
		t.Fatalf("SetCreators: %v", err)
	}
	if item.Creators[0].CreatorType != "author" {
		t.Fatalf("empty creator type not defaulted: %q", item.Creators[0].CreatorType)
	}

	err = item.SetCreators([]Creator{{LastName: "X", CreatorType: "wizard"}})
	if !errors.Is(err, ErrInvalidCreatorType) {
		t.Fatalf("SetCreators wizard: got %v", err)
	}
	if len(item.Creators) != 2 {
		t.Fatal("failed SetCreators modified the creator list")
	}
}

func TestItemTags(t *testing.T) {
	item, _ := newItem(DefaultSchema(), "book")

	if !item.AddTag("history", TagManual) {
		t.Fatal("AddTag history returned false")
	}
	if item.AddTag("history", TagAutomatic) {
		t.Fatal("duplicate tag added")
	}
	if item.AddTag("   ", TagManual) {
		t.Fatal("blank tag added")
	}
	item.AddTag("auto", TagAutomatic)

	tags := item.Tags()
	if len(tags) != 2 || tags[1].Type != TagAutomatic {
		t.Fatalf("Tags: %+v", tags)
	}
	if !item.RemoveTag("history") || item.HasTag("history") {
		t.Fatal("RemoveTag failed")
	}
	if item.RemoveTag("history") {
		t.Fatal("RemoveTag on missing tag returned true")
	}
}

func TestNewKeyShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		k, err := newKey()
		if err != nil {
			t.Fatal(err)
		}
		if len(k) != keyLength {
			t.Fatalf("key %q has length %d", k, len(k))
		}
		for _, r := range k {
			found := false
			for _, a := range keyAlphabet {
				if r == a {
					found = true
				}
			}
			if !found {
				t.Fatalf("key %q contains %q outside the alphabet", k, r)
			}
		}
		seen[k] = true
	}
	if len(seen) < 95 {
		t.Fatalf("too many duplicate keys: %d unique of 100", len(seen))
	}
}

func TestCreatorJSON(t *testing.T) {
	tests := []struct {
		name    string
		creator Creator
		want    string
	}{
		{"two field", Creator{FirstName: "Ada", LastName: "Lovelace", CreatorType: "author"},
			`{"firstName":"Ada","lastName":"Lovelace","creatorType":"author"}`},
		{"empty first name", Creator{LastName: "Plato", CreatorType: "author"},
			`{"firstName":"","lastName":"Plato","creatorType":"author"}`},
		{"single field", Creator{Name: "W3C", CreatorType: "contributor"},
			`{"name":"W3C","creatorType":"contributor"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.creator)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Fatalf("Marshal = %s, want %s", data, tt.want)
			}
			var back Creator
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if back != tt.creator {
				t.Fatalf("round trip = %+v, want %+v", back, tt.creator)
			}
		})
	}
}
