// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package bridge

import (
	"context"
	"fmt"
	"testing"

	"github.com/mtreilly/arc-bridge/internal/library"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func search(t *testing.T, svc *Service, body string) *SearchResponse {
	t.Helper()
	req, err := DecodeSearchRequest([]byte(body))
	require.NoError(t, err)
	resp, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	return resp
}

func TestBuildQueryDefaults(t *testing.T) {
	q := BuildQuery(nil)
	require.Len(t, q.Conditions, 2)
	assert.Equal(t, library.Condition{Condition: "itemType", Operator: library.OpIsNot, Value: "attachment", Required: true}, q.Conditions[0])
	assert.Equal(t, library.Condition{Condition: "itemType", Operator: library.OpIsNot, Value: "note", Required: true}, q.Conditions[1])

	no := false
	q = BuildQuery([]SearchCondition{
		{Operator: "is", Value: "skipped"},
		{Condition: "title", Value: "Dune"},
		{Condition: "tag", Operator: "contains", Value: "sci", Required: &no},
	})
	require.Len(t, q.Conditions, 2)
	assert.Equal(t, library.OpIs, q.Conditions[0].Operator)
	assert.True(t, q.Conditions[0].Required)
	assert.False(t, q.Conditions[1].Required)
}

func TestSearchExcludesNotesAndAttachments(t *testing.T) {
	svc, _ := newTestService(t)
	for _, typ := range []string{"book", "note", "attachment", "webpage", "note"} {
		create(t, svc, fmt.Sprintf(`{"itemType":%q}`, typ))
	}

	for _, body := range []string{`{}`, `{"conditions":[]}`, `{"conditions":[],"limit":1000}`, ``} {
		resp := search(t, svc, body)
		require.Equal(t, 2, resp.Total, body)
		for _, it := range resp.Items {
			hit := it.(SearchHit)
			assert.NotEqual(t, "note", hit.ItemType)
			assert.NotEqual(t, "attachment", hit.ItemType)
		}
	}
}

func TestSearchLimit(t *testing.T) {
	svc, _ := newTestService(t)
	for i := 0; i < 7; i++ {
		create(t, svc, fmt.Sprintf(`{"itemType":"book","fields":{"title":"Volume %d"}}`, i))
	}

	resp := search(t, svc, `{"limit":3}`)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 3, resp.Limit)
	assert.Len(t, resp.Items, 3)
	assert.Equal(t, "Volume 0", resp.Items[0].(SearchHit).Title)

	resp = search(t, svc, `{"limit":0}`)
	assert.Equal(t, DefaultSearchLimit, resp.Limit)
	assert.Equal(t, 7, resp.Total)

	req, err := DecodeSearchRequest([]byte(`{"limit":-1}`))
	require.NoError(t, err)
	_, err = svc.Search(context.Background(), req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestSearchConfiguredDefaultLimit(t *testing.T) {
	store, err := library.NewKVStore(library.NewMemoryKV(), nil, 1)
	require.NoError(t, err)
	svc := New(store, HostInfo{}, nil, 2)
	for i := 0; i < 4; i++ {
		create(t, svc, `{"itemType":"book"}`)
	}
	resp := search(t, svc, `{}`)
	assert.Equal(t, 2, resp.Limit)
	assert.Equal(t, 2, resp.Total)
}

func TestSearchFullData(t *testing.T) {
	svc, _ := newTestService(t)
	c := create(t, svc, `{"itemType":"book","fields":{"title":"Dune"},"tags":["scifi"]}`)
	create(t, svc, `{"itemType":"book","fields":{"title":"Emma"}}`)

	resp := search(t, svc, `{"conditions":[{"condition":"tag","operator":"is","value":"scifi"}],"includeFullData":true}`)
	require.Equal(t, 1, resp.Total)
	full, ok := resp.Items[0].(*ItemJSON)
	require.True(t, ok)
	assert.Equal(t, c.Key, full.Key)
	assert.Equal(t, []library.Tag{{Tag: "scifi"}}, full.Tags)
}

func TestSearchConditionValues(t *testing.T) {
	svc, _ := newTestService(t)
	create(t, svc, `{"itemType":"book","fields":{"title":"Short","numPages":90}}`)
	create(t, svc, `{"itemType":"book","fields":{"title":"Long","numPages":900}}`)

	resp := search(t, svc, `{"conditions":[{"condition":"numPages","operator":"isGreaterThan","value":100}]}`)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "Long", resp.Items[0].(SearchHit).Title)

	_, err := DecodeSearchRequest([]byte(`{"conditions":[{"condition":"title","value":{"x":1}}]}`))
	require.Error(t, err)

	req, err := DecodeSearchRequest([]byte(`{"conditions":[{"condition":"color","value":"red"}]}`))
	require.NoError(t, err)
	_, err = svc.Search(context.Background(), req)
	require.ErrorIs(t, err, library.ErrUnknownCondition)
}
