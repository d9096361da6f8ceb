// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package library

import (
	"context"
	"errors"
	"testing"
)

type fixture struct {
	book, article, note, attachment *Item
	collection                      *Collection
}

func seed(t *testing.T, s RecordStore) fixture {
	t.Helper()
	ctx := context.Background()

	coll, err := s.CreateCollection(ctx, "Reading", "")
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	mk := func(itemType string, fields map[string]string, tags ...string) *Item {
		it, err := s.NewItem(itemType)
		if err != nil {
			t.Fatalf("NewItem(%s): %v", itemType, err)
		}
		for k, v := range fields {
			if err := it.SetField(k, v); err != nil {
				t.Fatalf("SetField(%s): %v", k, err)
			}
		}
		for _, tag := range tags {
			it.AddTag(tag, TagManual)
		}
		return it
	}

	f := fixture{collection: coll}
	f.book = mk("book", map[string]string{"title": "Gödel, Escher, Bach", "numPages": "777", "date": "1979"}, "philosophy")
	f.book.SetCreators([]Creator{{FirstName: "Douglas", LastName: "Hofstadter"}})
	f.book.SetCollections([]int64{coll.ID})
	f.article = mk("journalArticle", map[string]string{"title": "Computing Machinery and Intelligence", "date": "1950"}, "ai", "philosophy")
	f.article.SetCreators([]Creator{{FirstName: "Alan", LastName: "Turing"}})
	f.note = mk("note", nil)
	f.attachment = mk("attachment", map[string]string{"title": "Full Text PDF"})

	for _, it := range []*Item{f.book, f.article, f.note, f.attachment} {
		if err := s.Commit(ctx, it); err != nil {
			t.Fatalf("Commit: %v", err)
		}
	}
	return f
}

func TestQuery(t *testing.T) {
	eachStore(t, func(t *testing.T, s RecordStore) {
		f := seed(t, s)
		ctx := context.Background()

		cases := []struct {
			name  string
			conds []Condition
			want  []*Item
		}{
			{"no conditions", nil, []*Item{f.book, f.article, f.note, f.attachment}},
			{"exclude notes and attachments", []Condition{
				{Condition: "itemType", Operator: OpIsNot, Value: "attachment", Required: true},
				{Condition: "itemType", Operator: OpIsNot, Value: "note", Required: true},
			}, []*Item{f.book, f.article}},
			{"title contains, case-insensitive", []Condition{
				{Condition: "title", Operator: OpContains, Value: "machinery", Required: true},
			}, []*Item{f.article}},
			{"tag is", []Condition{
				{Condition: "tag", Operator: OpIs, Value: "philosophy", Required: true},
			}, []*Item{f.book, f.article}},
			{"tag doesNotContain", []Condition{
				{Condition: "tag", Operator: OpDoesNotContain, Value: "ai", Required: true},
				{Condition: "tag", Operator: OpIs, Value: "philosophy", Required: true},
			}, []*Item{f.book}},
			{"creator beginsWith", []Condition{
				{Condition: "creator", Operator: OpBeginsWith, Value: "turi", Required: true},
			}, []*Item{f.article}},
			{"collection is", []Condition{
				{Condition: "collection", Operator: OpIs, Value: f.collection.Key, Required: true},
			}, []*Item{f.book}},
			{"unknown collection matches nothing", []Condition{
				{Condition: "collection", Operator: OpIs, Value: "ZZZZZZZZ", Required: true},
			}, nil},
			{"date isBefore", []Condition{
				{Condition: "date", Operator: OpIsBefore, Value: "1960", Required: true},
			}, []*Item{f.article}},
			{"numeric isGreaterThan", []Condition{
				{Condition: "numPages", Operator: OpIsGreaterThan, Value: "500", Required: true},
			}, []*Item{f.book}},
			{"optional conditions are OR-ed", []Condition{
				{Condition: "itemType", Operator: OpIs, Value: "book", Required: false},
				{Condition: "itemType", Operator: OpIs, Value: "note", Required: false},
			}, []*Item{f.book, f.note}},
			{"required plus optional", []Condition{
				{Condition: "tag", Operator: OpIs, Value: "philosophy", Required: true},
				{Condition: "itemType", Operator: OpIs, Value: "journalArticle", Required: false},
				{Condition: "itemType", Operator: OpIs, Value: "note", Required: false},
			}, []*Item{f.article}},
			{"anyField", []Condition{
				{Condition: "anyField", Operator: OpContains, Value: "pdf", Required: true},
			}, []*Item{f.attachment}},
			{"key is", []Condition{
				{Condition: "key", Operator: OpIs, Value: f.note.Key, Required: true},
			}, []*Item{f.note}},
		}

		for _, tc := range cases {
			ids, err := s.Query(ctx, &Query{Conditions: tc.conds})
			if err != nil {
				t.Fatalf("%s: Query: %v", tc.name, err)
			}
			if len(ids) != len(tc.want) {
				t.Fatalf("%s: got %d ids %v, want %d", tc.name, len(ids), ids, len(tc.want))
			}
			for i, it := range tc.want {
				if ids[i] != it.ID {
					t.Fatalf("%s: ids[%d] = %d, want %d", tc.name, i, ids[i], it.ID)
				}
			}
		}
	})
}

func TestQueryVocabularyErrors(t *testing.T) {
	eachStore(t, func(t *testing.T, s RecordStore) {
		ctx := context.Background()

		_, err := s.Query(ctx, &Query{Conditions: []Condition{{Condition: "color", Operator: OpIs, Value: "red"}}})
		if !errors.Is(err, ErrUnknownCondition) {
			t.Fatalf("unknown condition: got %v", err)
		}
		_, err = s.Query(ctx, &Query{Conditions: []Condition{{Condition: "title", Operator: "resembles", Value: "x"}}})
		if !errors.Is(err, ErrUnknownOperator) {
			t.Fatalf("unknown operator: got %v", err)
		}
		_, err = s.Query(ctx, &Query{Conditions: []Condition{{Condition: "collection", Operator: OpContains, Value: "x"}}})
		if !errors.Is(err, ErrUnknownOperator) {
			t.Fatalf("collection contains: got %v", err)
		}
	})
}

func TestQueryAddCondition(t *testing.T) {
	var q Query
	q.AddCondition("itemType", OpIs, "book", true)
	if len(q.Conditions) != 1 || q.Conditions[0].Value != "book" || !q.Conditions[0].Required {
		t.Fatalf("AddCondition: %+v", q.Conditions)
	}
}
