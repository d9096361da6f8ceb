// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package bridge

import (
	"context"
	"fmt"

	"github.com/mtreilly/arc-bridge/internal/library"
	"go.uber.org/zap"
)

// SearchHit is the compact projection of a matching item.
type SearchHit struct {
	Key          string `json:"key"`
	ItemID       int64  `json:"itemID"`
	ItemType     string `json:"itemType"`
	Title        string `json:"title"`
	DateModified string `json:"dateModified"`
}

// SearchResponse is the /search payload. Items holds SearchHit values, or
// ItemJSON values when full data was requested.
type SearchResponse struct {
	Total int   `json:"total"`
	Limit int   `json:"limit"`
	Items []any `json:"items"`
}

// BuildQuery turns request conditions into a store query. With no conditions
// the query excludes attachments and notes.
func BuildQuery(conds []SearchCondition) *library.Query {
	q := &library.Query{}
	for _, c := range conds {
		if c.Condition == "" {
			continue
		}
		op := c.Operator
		if op == "" {
			op = library.OpIs
		}
		required := true
		if c.Required != nil {
			required = *c.Required
		}
		q.AddCondition(c.Condition, op, string(c.Value), required)
	}
	if len(conds) == 0 {
		q.AddCondition("itemType", library.OpIsNot, "attachment", true)
		q.AddCondition("itemType", library.OpIsNot, "note", true)
	}
	return q
}

// Search runs the query and truncates the full match set to the limit.
func (s *Service) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	limit := s.defaultLimit
	if req.Limit != nil {
		switch {
		case *req.Limit < 0:
			return nil, invalid("limit must not be negative")
		case *req.Limit > 0:
			limit = *req.Limit
		}
	}

	ids, err := s.store.Query(ctx, BuildQuery(req.Conditions))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	matched := len(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	items, err := s.store.ItemsByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load search results: %w", err)
	}

	out := make([]any, 0, len(items))
	for _, it := range items {
		if req.IncludeFullData {
			full, err := s.Serialize(ctx, it)
			if err != nil {
				return nil, err
			}
			out = append(out, full)
			continue
		}
		out = append(out, SearchHit{
			Key:          it.Key,
			ItemID:       it.ID,
			ItemType:     it.ItemType,
			Title:        it.Field("title"),
			DateModified: formatDate(it.DateModified),
		})
	}

	s.logger.Debug("search",
		zap.Int("conditions", len(req.Conditions)),
		zap.Int("matched", matched),
		zap.Int("returned", len(out)),
	)
	return &SearchResponse{Total: len(out), Limit: limit, Items: out}, nil
}
